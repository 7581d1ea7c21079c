package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]map[uint64]*Snapshot
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]map[uint64]*Snapshot)}
}

func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySeq := s.snapshots[snap.SessionID]
	if bySeq == nil {
		bySeq = make(map[uint64]*Snapshot)
		s.snapshots[snap.SessionID] = bySeq
	}
	cp := *snap
	bySeq[snap.Seq] = &cp
	return nil
}

func (s *MemoryStore) Latest(ctx context.Context, sessionID string) (*Snapshot, error) {
	list, err := s.List(ctx, sessionID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (s *MemoryStore) List(ctx context.Context, sessionID string, limit int) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Snapshot
	for _, snap := range s.snapshots[sessionID] {
		cp := *snap
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
