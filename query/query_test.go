package query

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"leadflow/models"
)

func snapshotOf(consultations ...models.ConsultationRecord) *models.Snapshot {
	return &models.Snapshot{Consultations: consultations}
}

func stamped(offset time.Duration) string {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(offset).Format(time.RFC3339)
}

func TestFilterConsultationsSubstringCaseInsensitive(t *testing.T) {
	snap := snapshotOf(
		models.ConsultationRecord{Name: "Zhang Wei", Phone: "13812345678", SourcePage: "/Landing", CreatedAt: stamped(0)},
		models.ConsultationRecord{Name: "Li Na", Phone: "13900001111", SourcePage: "/pricing", CreatedAt: stamped(time.Minute)},
	)

	got, err := FilterConsultations(snap, Filters{Name: "zhang"})
	if err != nil {
		t.Fatalf("FilterConsultations failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Zhang Wei" {
		t.Errorf("name filter: got %v", got)
	}

	got, _ = FilterConsultations(snap, Filters{SourcePage: "landing"})
	if len(got) != 1 {
		t.Errorf("sourcePage filter should be case-insensitive, got %d matches", len(got))
	}

	got, _ = FilterConsultations(snap, Filters{Phone: "139"})
	if len(got) != 1 || got[0].Phone != "13900001111" {
		t.Errorf("phone substring filter: got %v", got)
	}
}

func TestFilterConsultationsProductMembership(t *testing.T) {
	snap := snapshotOf(
		models.ConsultationRecord{Phone: "1", IntentionProducts: models.Products{"serum", "cream"}, CreatedAt: stamped(0)},
		models.ConsultationRecord{Phone: "2", IntentionProducts: models.Products{"mask"}, CreatedAt: stamped(time.Minute)},
	)

	got, err := FilterConsultations(snap, Filters{Product: "serum"})
	if err != nil {
		t.Fatalf("FilterConsultations failed: %v", err)
	}
	if len(got) != 1 || got[0].Phone != "1" {
		t.Errorf("product filter: got %v", got)
	}

	// Membership is exact, not substring.
	got, _ = FilterConsultations(snap, Filters{Product: "ser"})
	if len(got) != 0 {
		t.Errorf("partial product name must not match, got %v", got)
	}
}

func TestFilterDateBounds(t *testing.T) {
	snap := snapshotOf(
		models.ConsultationRecord{Phone: "early", CreatedAt: "2026-03-01T10:00:00Z"},
		models.ConsultationRecord{Phone: "mid", CreatedAt: "2026-03-02T10:00:00Z"},
		models.ConsultationRecord{Phone: "late", CreatedAt: "2026-03-03T10:00:00Z"},
	)

	got, err := FilterConsultations(snap, Filters{StartAt: "2026-03-02", EndAt: "2026-03-02"})
	if err != nil {
		t.Fatalf("FilterConsultations failed: %v", err)
	}
	if len(got) != 1 || got[0].Phone != "mid" {
		t.Errorf("inclusive day bounds: got %v", got)
	}

	if _, err := FilterConsultations(snap, Filters{StartAt: "not-a-date"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := FilterConsultations(snap, Filters{StartAt: "2026-03-03", EndAt: "2026-03-01"}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestSortDescendingWithUnparsableTimestamps(t *testing.T) {
	snap := snapshotOf(
		models.ConsultationRecord{Phone: "bad", CreatedAt: "garbage"},
		models.ConsultationRecord{Phone: "new", CreatedAt: stamped(time.Hour)},
		models.ConsultationRecord{Phone: "old", CreatedAt: stamped(0)},
	)

	got, err := FilterConsultations(snap, Filters{})
	if err != nil {
		t.Fatalf("FilterConsultations failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unparsable timestamps must not drop records, got %d", len(got))
	}
	want := []string{"new", "old", "bad"}
	for i, phone := range want {
		if got[i].Phone != phone {
			t.Fatalf("position %d: got %q, want %q (order %v)", i, got[i].Phone, phone, got)
		}
	}
}

func TestPageBounds(t *testing.T) {
	// 25 records, pageSize 10: pages are 10, 10, 5.
	cases := []struct {
		page               int
		wantStart, wantEnd int
		wantPage           int
		hasPrev, hasNext   bool
	}{
		{1, 0, 10, 1, false, true},
		{2, 10, 20, 2, true, true},
		{3, 20, 25, 3, true, false},
		{4, 20, 25, 3, true, false}, // clamps to the last page
	}

	for _, tc := range cases {
		start, end, meta, err := PageBounds(25, tc.page, 10)
		if err != nil {
			t.Fatalf("page %d: %v", tc.page, err)
		}
		if start != tc.wantStart || end != tc.wantEnd {
			t.Errorf("page %d: bounds [%d,%d), want [%d,%d)", tc.page, start, end, tc.wantStart, tc.wantEnd)
		}
		if meta.Page != tc.wantPage || meta.HasPrev != tc.hasPrev || meta.HasNext != tc.hasNext {
			t.Errorf("page %d: meta %+v", tc.page, meta)
		}
		if meta.TotalPages != 3 {
			t.Errorf("page %d: totalPages %d, want 3", tc.page, meta.TotalPages)
		}
	}
}

func TestPageBoundsEmptyAndInvalid(t *testing.T) {
	start, end, meta, err := PageBounds(0, 5, 10)
	if err != nil {
		t.Fatalf("empty set: %v", err)
	}
	if start != 0 || end != 0 || meta.TotalPages != 0 || meta.Page != 1 {
		t.Errorf("empty set: start=%d end=%d meta=%+v", start, end, meta)
	}

	for _, bad := range [][2]int{{0, 10}, {-1, 10}, {1, 0}, {1, 101}} {
		if _, _, _, err := PageBounds(25, bad[0], bad[1]); !errors.Is(err, ErrInvalidPage) {
			t.Errorf("page=%d pageSize=%d: expected ErrInvalidPage, got %v", bad[0], bad[1], err)
		}
	}
}

func TestSummarizeGroupCounts(t *testing.T) {
	snap := &models.Snapshot{
		Consultations: []models.ConsultationRecord{
			{SourcePage: "/a", IntentionProducts: models.Products{"x"}, CreatedAt: stamped(0)},
			{SourcePage: "/a", IntentionProducts: models.Products{"x", "y"}, CreatedAt: stamped(time.Minute)},
			{SourcePage: "/b", IntentionProducts: models.Products{"y"}, CreatedAt: stamped(2 * time.Minute)},
		},
		PhoneLeads: []models.PhoneLeadRecord{
			{Source: "banner", CreatedAt: stamped(0)},
		},
	}

	s := Summarize(snap, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))

	wantPages := map[string]int{"/a": 2, "/b": 1}
	for _, e := range s.ConsultationsBySourcePage {
		if wantPages[e.Key] != e.Count {
			t.Errorf("sourcePage %q: count %d, want %d", e.Key, e.Count, wantPages[e.Key])
		}
	}
	wantProducts := map[string]int{"x": 2, "y": 2}
	for _, e := range s.ConsultationsByProduct {
		if wantProducts[e.Key] != e.Count {
			t.Errorf("product %q: count %d, want %d", e.Key, e.Count, wantProducts[e.Key])
		}
	}
	if len(s.PhoneLeadsBySource) != 1 || s.PhoneLeadsBySource[0].Count != 1 {
		t.Errorf("phone lead counts: %v", s.PhoneLeadsBySource)
	}
	if s.TotalConsultations != 3 || s.TotalPhoneLeads != 1 {
		t.Errorf("totals: %d/%d", s.TotalConsultations, s.TotalPhoneLeads)
	}
}

func TestSummarizeTodayCounts(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	snap := &models.Snapshot{
		Consultations: []models.ConsultationRecord{
			{CreatedAt: "2026-03-02T01:00:00Z"}, // today
			{CreatedAt: "2026-03-01T23:59:00Z"}, // yesterday
			{CreatedAt: "bogus"},                // epoch, not today
		},
	}

	s := Summarize(snap, now)
	if s.ConsultationsToday != 1 {
		t.Errorf("consultationsToday = %d, want 1", s.ConsultationsToday)
	}
}

func TestSortedCountsOrdering(t *testing.T) {
	entries := sortedCounts(map[string]int{"b": 2, "a": 2, "c": 5})
	got := fmt.Sprintf("%v", entries)
	want := "[{c 5} {a 2} {b 2}]"
	if got != want {
		t.Errorf("ordering: got %s, want %s", got, want)
	}
}
