package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Records are immutable once accepted: no update, no delete. The whole
// collection is replaced on every write, so the gorm tags only describe
// column shapes, not relations.

type ConsultationRecord struct {
	ID                string   `json:"id" gorm:"primaryKey"`
	Name              string   `json:"name" gorm:"not null"`
	Phone             string   `json:"phone" gorm:"not null;index"`
	IntentionProducts Products `json:"intentionProducts" gorm:"type:text;not null"`
	SourcePage        string   `json:"sourcePage" gorm:"not null"`
	CreatedAt         string   `json:"createdAt" gorm:"not null"`
}

func (ConsultationRecord) TableName() string { return "consultations" }

type PhoneLeadRecord struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Phone     string `json:"phone" gorm:"not null;index"`
	Source    string `json:"source" gorm:"not null"`
	CreatedAt string `json:"createdAt" gorm:"not null"`
}

func (PhoneLeadRecord) TableName() string { return "phone_leads" }

// Snapshot is the complete collection of both record kinds at an instant.
// It is the unit of persistence: readers always see a whole snapshot,
// never a partially written one.
type Snapshot struct {
	Consultations []ConsultationRecord `json:"consultations"`
	PhoneLeads    []PhoneLeadRecord    `json:"phoneLeads"`
}

func (s *Snapshot) Empty() bool {
	return len(s.Consultations) == 0 && len(s.PhoneLeads) == 0
}

// Clone returns a copy whose slices can be appended to without
// disturbing readers of the original.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Consultations: make([]ConsultationRecord, len(s.Consultations)),
		PhoneLeads:    make([]PhoneLeadRecord, len(s.PhoneLeads)),
	}
	copy(out.Consultations, s.Consultations)
	copy(out.PhoneLeads, s.PhoneLeads)
	return out
}

// Products is a set of product names stored as a JSON array in a text
// column, so the snapshot tables stay plain rows without join tables.
type Products []string

func (p Products) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal products: %w", err)
	}
	return string(b), nil
}

func (p *Products) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), p)
	case []byte:
		return json.Unmarshal(v, p)
	case nil:
		*p = nil
		return nil
	default:
		return errors.New("unsupported source type for products")
	}
}
