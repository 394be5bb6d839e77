package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	maxNameLen    = 40
	maxSourceLen  = 40
	maxProductLen = 30

	defaultSource = "unknown"
)

var (
	ErrInvalidPhone    = errors.New("phone must be 11 digits starting with 1")
	ErrInvalidProducts = errors.New("at least one intention product is required")
)

var phonePattern = regexp.MustCompile(`^1\d{10}$`)

// ConsultationSubmission is the raw consultation payload before
// normalization. Field values arrive untrimmed and uncapped.
type ConsultationSubmission struct {
	Name              string   `json:"name"`
	Phone             string   `json:"phone"`
	IntentionProducts []string `json:"intentionProducts"`
	SourcePage        string   `json:"sourcePage"`
}

// PhoneLeadSubmission is the raw phone-lead payload.
type PhoneLeadSubmission struct {
	Phone  string `json:"phone"`
	Source string `json:"source"`
}

// NormalizeConsultation validates and canonicalizes a raw submission.
// It is a pure transformation: ID and CreatedAt are assigned later, at
// the moment the store accepts the record.
func NormalizeConsultation(sub ConsultationSubmission) (*ConsultationRecord, error) {
	phone := strings.TrimSpace(sub.Phone)
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	products := normalizeProducts(sub.IntentionProducts)
	if len(products) == 0 {
		return nil, ErrInvalidProducts
	}

	return &ConsultationRecord{
		Name:              truncate(strings.TrimSpace(sub.Name), maxNameLen),
		Phone:             phone,
		IntentionProducts: products,
		SourcePage:        normalizeSource(sub.SourcePage),
	}, nil
}

// NormalizePhoneLead validates and canonicalizes a raw phone lead.
func NormalizePhoneLead(sub PhoneLeadSubmission) (*PhoneLeadRecord, error) {
	phone := strings.TrimSpace(sub.Phone)
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	return &PhoneLeadRecord{
		Phone:  phone,
		Source: normalizeSource(sub.Source),
	}, nil
}

// ValidPhone reports whether s already satisfies the stored phone format.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// NowStamp formats an acceptance time the way records store it.
func NowStamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func normalizeSource(s string) string {
	s = truncate(strings.TrimSpace(s), maxSourceLen)
	if s == "" {
		return defaultSource
	}
	return s
}

// normalizeProducts trims, caps and deduplicates while keeping first
// occurrence order. Entries that trim to nothing are dropped.
func normalizeProducts(raw []string) Products {
	seen := make(map[string]struct{}, len(raw))
	out := make(Products, 0, len(raw))
	for _, p := range raw {
		p = truncate(strings.TrimSpace(p), maxProductLen)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// truncate caps by rune count so multibyte names are not split mid-character.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
