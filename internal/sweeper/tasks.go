// Package sweeper enforces time-based expiry. Exact-time asynq tasks fire
// the moment a deadline passes; a coarse ticker sweep backstops them so a
// lost task never strands a lock or a hold.
package sweeper

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLockExpire = "locks.expire"

const TaskHoldLift = "holds.lift"

type LockExpirePayload struct {
	LeadID string `json:"leadId"`
}

type HoldLiftPayload struct {
	HoldID    string `json:"holdId"`
	PartnerID string `json:"partnerId"`
}

func NewLockExpireTask(payload LockExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLockExpire, data), nil
}

func ParseLockExpirePayload(task *asynq.Task) (LockExpirePayload, error) {
	var payload LockExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LockExpirePayload{}, err
	}
	return payload, nil
}

func NewHoldLiftTask(payload HoldLiftPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHoldLift, data), nil
}

func ParseHoldLiftPayload(task *asynq.Task) (HoldLiftPayload, error) {
	var payload HoldLiftPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HoldLiftPayload{}, err
	}
	return payload, nil
}
