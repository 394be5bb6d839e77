package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"leadflow/models"
)

// DedupWindow is how long an accepted submission blocks re-submission of
// an equivalent one.
const DedupWindow = 10 * time.Minute

// ConsultationKey builds the equality key for consultation dedup:
// phone + source page + the product set independent of input order.
func ConsultationKey(rec *models.ConsultationRecord) string {
	products := make([]string, len(rec.IntentionProducts))
	copy(products, rec.IntentionProducts)
	sort.Strings(products)
	return "c|" + rec.Phone + "|" + rec.SourcePage + "|" + strings.Join(products, ",")
}

// PhoneLeadKey builds the equality key for phone-lead dedup.
func PhoneLeadKey(rec *models.PhoneLeadRecord) string {
	return "p|" + rec.Phone + "|" + rec.Source
}

// Detector decides whether a prospective record is a re-submission.
// IsDuplicate is always consulted before a write; Remember is called
// after a write persists.
type Detector interface {
	IsDuplicate(key string, now time.Time, snap *models.Snapshot) bool
	Remember(key string, now time.Time)
}

// WindowDetector tracks equality keys and their last acceptance time in
// memory. Expired keys are evicted lazily on every check, so memory stays
// bounded without a background sweeper. Suppression state does not
// survive a restart.
type WindowDetector struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func NewWindowDetector(window time.Duration) *WindowDetector {
	return &WindowDetector{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

func (d *WindowDetector) IsDuplicate(key string, now time.Time, _ *models.Snapshot) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, at := range d.seen {
		if now.Sub(at) > d.window {
			delete(d.seen, k)
		}
	}

	_, ok := d.seen[key]
	return ok
}

func (d *WindowDetector) Remember(key string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[key] = now
}

// HistoryDetector scans the current snapshot for a record with the same
// equality key accepted within the window. Slower than WindowDetector but
// duplicate suppression survives process restarts.
type HistoryDetector struct {
	window time.Duration
}

func NewHistoryDetector(window time.Duration) *HistoryDetector {
	return &HistoryDetector{window: window}
}

func (d *HistoryDetector) IsDuplicate(key string, now time.Time, snap *models.Snapshot) bool {
	if snap == nil {
		return false
	}
	for i := range snap.Consultations {
		rec := &snap.Consultations[i]
		if ConsultationKey(rec) == key && d.within(rec.CreatedAt, now) {
			return true
		}
	}
	for i := range snap.PhoneLeads {
		rec := &snap.PhoneLeads[i]
		if PhoneLeadKey(rec) == key && d.within(rec.CreatedAt, now) {
			return true
		}
	}
	return false
}

// Remember is a no-op: the snapshot itself is the history.
func (d *HistoryDetector) Remember(string, time.Time) {}

func (d *HistoryDetector) within(createdAt string, now time.Time) bool {
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		// Unparsable timestamps come only from legacy imports, which are
		// older than any dedup window.
		return false
	}
	return now.Sub(t) <= d.window
}
