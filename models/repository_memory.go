package models

import (
	"context"
	"sync"
)

// MemoryRepository keeps snapshots in process memory. It backs tests and
// local runs without Postgres; the Fail hook lets tests inject a
// persistence fault for the next ReplaceAll.
type MemoryRepository struct {
	mu   sync.Mutex
	snap *Snapshot
	Fail error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snap: &Snapshot{}}
}

func (r *MemoryRepository) ReplaceAll(_ context.Context, snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		err := r.Fail
		r.Fail = nil
		return err
	}
	r.snap = snap.Clone()
	return nil
}

func (r *MemoryRepository) LoadSnapshot(_ context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone(), nil
}

func (r *MemoryRepository) Close() error { return nil }
