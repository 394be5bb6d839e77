package models

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeConsultationPhoneValidation(t *testing.T) {
	cases := []struct {
		phone string
		valid bool
	}{
		{"13812345678", true},
		{"10000000000", true},
		{" 13812345678 ", true}, // trimmed before validation
		{"23812345678", false},  // wrong prefix
		{"1381234567", false},   // 10 digits
		{"138123456789", false}, // 12 digits
		{"1381234567a", false},
		{"", false},
	}

	for _, tc := range cases {
		_, err := NormalizeConsultation(ConsultationSubmission{
			Phone:             tc.phone,
			IntentionProducts: []string{"serum"},
		})
		if tc.valid && err != nil {
			t.Errorf("phone %q: expected valid, got %v", tc.phone, err)
		}
		if !tc.valid && !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("phone %q: expected ErrInvalidPhone, got %v", tc.phone, err)
		}
	}
}

func TestNormalizeConsultationProducts(t *testing.T) {
	rec, err := NormalizeConsultation(ConsultationSubmission{
		Phone:             "13812345678",
		IntentionProducts: []string{" serum ", "serum", "", "  ", "cream"},
	})
	if err != nil {
		t.Fatalf("NormalizeConsultation failed: %v", err)
	}
	if len(rec.IntentionProducts) != 2 {
		t.Fatalf("expected 2 products after dedup, got %v", rec.IntentionProducts)
	}
	if rec.IntentionProducts[0] != "serum" || rec.IntentionProducts[1] != "cream" {
		t.Errorf("expected insertion order kept, got %v", rec.IntentionProducts)
	}
}

func TestNormalizeConsultationEmptyProducts(t *testing.T) {
	for _, products := range [][]string{nil, {}, {"", "   "}} {
		_, err := NormalizeConsultation(ConsultationSubmission{
			Phone:             "13812345678",
			IntentionProducts: products,
		})
		if !errors.Is(err, ErrInvalidProducts) {
			t.Errorf("products %v: expected ErrInvalidProducts, got %v", products, err)
		}
	}
}

func TestNormalizeConsultationCapsAndDefaults(t *testing.T) {
	rec, err := NormalizeConsultation(ConsultationSubmission{
		Name:              "  " + strings.Repeat("x", 50),
		Phone:             "13812345678",
		IntentionProducts: []string{strings.Repeat("p", 45)},
	})
	if err != nil {
		t.Fatalf("NormalizeConsultation failed: %v", err)
	}
	if len(rec.Name) != 40 {
		t.Errorf("expected name capped at 40 chars, got %d", len(rec.Name))
	}
	if len(rec.IntentionProducts[0]) != 30 {
		t.Errorf("expected product capped at 30 chars, got %d", len(rec.IntentionProducts[0]))
	}
	if rec.SourcePage != "unknown" {
		t.Errorf("expected sourcePage default \"unknown\", got %q", rec.SourcePage)
	}
	if rec.ID != "" || rec.CreatedAt != "" {
		t.Errorf("normalizer must not assign id or acceptance time")
	}
}

func TestNormalizePhoneLead(t *testing.T) {
	rec, err := NormalizePhoneLead(PhoneLeadSubmission{Phone: "13900001111"})
	if err != nil {
		t.Fatalf("NormalizePhoneLead failed: %v", err)
	}
	if rec.Source != "unknown" {
		t.Errorf("expected source default \"unknown\", got %q", rec.Source)
	}

	if _, err := NormalizePhoneLead(PhoneLeadSubmission{Phone: "9912345678"}); !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}
}
