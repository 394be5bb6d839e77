package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadflow/models"
)

var (
	ErrDuplicate        = errors.New("duplicate submission")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store owns the authoritative snapshot and mediates every read and
// write. Writes are serialized: one append-then-persist completes
// (success or failure) before the next begins, and each applies against
// the latest snapshot. Readers only observe whichever snapshot reference
// is currently installed.
type Store struct {
	repo     models.Repository
	detector Detector
	now      func() time.Time
	newID    func() string

	writeMu sync.Mutex
	snapMu  sync.RWMutex
	snap    *models.Snapshot
}

type Option func(*Store)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc replaces the id source, for deterministic tests.
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

func New(repo models.Repository, detector Detector, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		detector: detector,
		now:      time.Now,
		newID:    uuid.NewString,
		snap:     &models.Snapshot{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load installs the durable snapshot as the in-memory one. Called once at
// startup before the store serves traffic.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	s.install(snap)
	return nil
}

// MigrateLegacyIfEmpty imports the legacy flat-file snapshot when the
// durable store holds no records yet. Read and parse failures mean
// "nothing to migrate" and are never fatal; only a persistence failure of
// the imported snapshot is reported.
func (s *Store) MigrateLegacyIfEmpty(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.CurrentSnapshot().Empty() {
		return nil
	}

	legacy, err := ReadLegacySnapshot(path)
	if err != nil {
		log.Printf("Legacy migration skipped: %v", err)
		return nil
	}
	if legacy.Empty() {
		return nil
	}

	if err := s.repo.ReplaceAll(ctx, legacy); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.install(legacy)
	log.Printf("Migrated legacy snapshot: %d consultations, %d phone leads",
		len(legacy.Consultations), len(legacy.PhoneLeads))
	return nil
}

// AppendConsultation runs the duplicate check and, if the record is new,
// persists a snapshot containing it. The returned record carries the
// assigned id and acceptance time.
func (s *Store) AppendConsultation(ctx context.Context, rec models.ConsultationRecord) (models.ConsultationRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	key := ConsultationKey(&rec)
	if s.detector.IsDuplicate(key, now, s.CurrentSnapshot()) {
		return rec, ErrDuplicate
	}

	rec.ID = s.newID()
	rec.CreatedAt = models.NowStamp(now)

	next := s.CurrentSnapshot().Clone()
	next.Consultations = append(next.Consultations, rec)

	if err := s.repo.ReplaceAll(ctx, next); err != nil {
		// In-memory snapshot stays untouched so durable and in-memory
		// views never diverge after a failed write.
		return rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.detector.Remember(key, now)
	s.install(next)
	return rec, nil
}

// AppendPhoneLead is the phone-lead counterpart of AppendConsultation.
func (s *Store) AppendPhoneLead(ctx context.Context, rec models.PhoneLeadRecord) (models.PhoneLeadRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	key := PhoneLeadKey(&rec)
	if s.detector.IsDuplicate(key, now, s.CurrentSnapshot()) {
		return rec, ErrDuplicate
	}

	rec.ID = s.newID()
	rec.CreatedAt = models.NowStamp(now)

	next := s.CurrentSnapshot().Clone()
	next.PhoneLeads = append(next.PhoneLeads, rec)

	if err := s.repo.ReplaceAll(ctx, next); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.detector.Remember(key, now)
	s.install(next)
	return rec, nil
}

// CurrentSnapshot returns the installed snapshot. Callers must treat it
// as read-only; writers replace the reference instead of mutating it.
func (s *Store) CurrentSnapshot() *models.Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

func (s *Store) install(snap *models.Snapshot) {
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}
