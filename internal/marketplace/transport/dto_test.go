package transport

import (
	"testing"

	ordersrepo "reprice_backend/internal/orders/repository"
)

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+919812345670", "+*********5670"},
		{"9812345670", "******5670"},
		{"1234", "1234"},
		{"", ""},
		{"98-123-456", "**-**3-456" /* 8 digits, last 4 kept */},
	}
	for _, tt := range tests {
		if got := MaskPhone(tt.in); got != tt.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskedDetailRedactsContact(t *testing.T) {
	email := "asha@example.com"
	address := "12 MG Road"
	detail := ToLeadDetail(ordersrepo.Order{
		CustomerName:      "Asha Rao",
		CustomerPhone:     "+919812345670",
		CustomerEmail:     &email,
		PhoneName:         "Pixel 8",
		PickupAddressLine: &address,
	}).Masked()

	if detail.CustomerName != "Asha" {
		t.Errorf("CustomerName = %q, want first name only", detail.CustomerName)
	}
	if detail.CustomerPhone != "+*********5670" {
		t.Errorf("CustomerPhone = %q, not masked", detail.CustomerPhone)
	}
	if detail.CustomerEmail != nil {
		t.Error("CustomerEmail not redacted")
	}
	if detail.PickupAddressLine != nil {
		t.Error("PickupAddressLine not redacted")
	}
	if detail.PhoneName != "Pixel 8" {
		t.Errorf("device info should survive masking, got %q", detail.PhoneName)
	}
}
