package query

import (
	"errors"
	"sort"
	"strings"
	"time"

	"leadflow/models"
)

var (
	ErrInvalidDate  = errors.New("invalid date bound")
	ErrInvalidRange = errors.New("start date is after end date")
	ErrInvalidPage  = errors.New("invalid pagination parameters")
)

// Filters narrows a snapshot. Free-text fields match case-insensitive
// substrings; Product requires exact set membership; StartAt/EndAt bound
// createdAt inclusively and accept RFC3339 or plain dates.
type Filters struct {
	Name       string
	Phone      string
	SourcePage string
	Source     string
	Product    string
	StartAt    string
	EndAt      string
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

type bounds struct {
	start, end       time.Time
	hasStart, hasEnd bool
}

// parseBounds validates both date bounds before any filtering happens.
func (f Filters) parseBounds() (bounds, error) {
	var b bounds
	var err error
	if f.StartAt != "" {
		if b.start, err = parseDate(f.StartAt); err != nil {
			return b, err
		}
		b.hasStart = true
	}
	if f.EndAt != "" {
		if b.end, err = parseDate(f.EndAt); err != nil {
			return b, err
		}
		// A bare date as upper bound means the whole of that day.
		if len(f.EndAt) == len("2006-01-02") {
			b.end = b.end.Add(24*time.Hour - time.Nanosecond)
		}
		b.hasEnd = true
	}
	if b.hasStart && b.hasEnd && b.start.After(b.end) {
		return b, ErrInvalidRange
	}
	return b, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func (b bounds) contains(t time.Time) bool {
	if b.hasStart && t.Before(b.start) {
		return false
	}
	if b.hasEnd && t.After(b.end) {
		return false
	}
	return true
}

// CreatedAtTime parses a record timestamp; anything unparsable counts as
// the epoch so such records sort oldest instead of being dropped.
func CreatedAtTime(createdAt string) time.Time {
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// FilterConsultations returns matching consultations sorted by createdAt
// descending.
func FilterConsultations(snap *models.Snapshot, f Filters) ([]models.ConsultationRecord, error) {
	b, err := f.parseBounds()
	if err != nil {
		return nil, err
	}

	out := make([]models.ConsultationRecord, 0, len(snap.Consultations))
	for _, rec := range snap.Consultations {
		if !containsFold(rec.Name, f.Name) ||
			!containsFold(rec.Phone, f.Phone) ||
			!containsFold(rec.SourcePage, f.SourcePage) {
			continue
		}
		if f.Product != "" && !hasProduct(rec.IntentionProducts, f.Product) {
			continue
		}
		if !b.contains(CreatedAtTime(rec.CreatedAt)) {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return CreatedAtTime(out[i].CreatedAt).After(CreatedAtTime(out[j].CreatedAt))
	})
	return out, nil
}

// FilterPhoneLeads returns matching phone leads sorted by createdAt
// descending.
func FilterPhoneLeads(snap *models.Snapshot, f Filters) ([]models.PhoneLeadRecord, error) {
	b, err := f.parseBounds()
	if err != nil {
		return nil, err
	}

	out := make([]models.PhoneLeadRecord, 0, len(snap.PhoneLeads))
	for _, rec := range snap.PhoneLeads {
		if !containsFold(rec.Phone, f.Phone) ||
			!containsFold(rec.Source, f.Source) {
			continue
		}
		if !b.contains(CreatedAtTime(rec.CreatedAt)) {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return CreatedAtTime(out[i].CreatedAt).After(CreatedAtTime(out[j].CreatedAt))
	})
	return out, nil
}

func containsFold(field, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(needle))
}

func hasProduct(products models.Products, want string) bool {
	for _, p := range products {
		if p == want {
			return true
		}
	}
	return false
}
