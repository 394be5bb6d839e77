package query

import (
	"sort"
	"time"

	"leadflow/models"
)

// CountEntry is one group in an aggregate, e.g. a source page and how
// many records carry it.
type CountEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary aggregates the whole snapshot for the dashboard view.
type Summary struct {
	TotalConsultations        int          `json:"totalConsultations"`
	TotalPhoneLeads           int          `json:"totalPhoneLeads"`
	ConsultationsToday        int          `json:"consultationsToday"`
	PhoneLeadsToday           int          `json:"phoneLeadsToday"`
	ConsultationsBySourcePage []CountEntry `json:"consultationsBySourcePage"`
	ConsultationsByProduct    []CountEntry `json:"consultationsByProduct"`
	PhoneLeadsBySource        []CountEntry `json:"phoneLeadsBySource"`
}

// Summarize group-counts the snapshot. Product counts increment once per
// product per record. "Today" runs from local midnight of now.
func Summarize(snap *models.Snapshot, now time.Time) Summary {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	bySourcePage := make(map[string]int)
	byProduct := make(map[string]int)
	bySource := make(map[string]int)

	s := Summary{
		TotalConsultations: len(snap.Consultations),
		TotalPhoneLeads:    len(snap.PhoneLeads),
	}

	for _, rec := range snap.Consultations {
		bySourcePage[rec.SourcePage]++
		for _, p := range rec.IntentionProducts {
			byProduct[p]++
		}
		if !CreatedAtTime(rec.CreatedAt).Before(midnight) {
			s.ConsultationsToday++
		}
	}
	for _, rec := range snap.PhoneLeads {
		bySource[rec.Source]++
		if !CreatedAtTime(rec.CreatedAt).Before(midnight) {
			s.PhoneLeadsToday++
		}
	}

	s.ConsultationsBySourcePage = sortedCounts(bySourcePage)
	s.ConsultationsByProduct = sortedCounts(byProduct)
	s.PhoneLeadsBySource = sortedCounts(bySource)
	return s
}

// sortedCounts orders counts descending, ties broken by key so the
// output is stable.
func sortedCounts(m map[string]int) []CountEntry {
	out := make([]CountEntry, 0, len(m))
	for k, v := range m {
		out = append(out, CountEntry{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
