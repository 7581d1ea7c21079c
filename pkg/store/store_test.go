package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/errors"
)

func snapshot(session string, seq uint64) *Snapshot {
	return &Snapshot{
		ID:        session + "-" + string(rune('a'+seq)),
		SessionID: session,
		Seq:       seq,
		Caller:    "crate::foo",
		Diagram: &diagram.Diagram{Nodes: []diagram.Node{
			{ID: "crate::foo", Label: "crate::foo", Width: 112, Height: 38.4, Kind: diagram.KindSafeRoot},
		}},
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	if snap, err := s.Latest(ctx, "empty"); err != nil || snap != nil {
		t.Fatalf("Latest on empty session = %v, %v", snap, err)
	}

	for _, seq := range []uint64{2, 10, 1} {
		if err := s.Save(ctx, snapshot("s1", seq)); err != nil {
			t.Fatalf("Save(%d): %v", seq, err)
		}
	}
	if err := s.Save(ctx, snapshot("s2", 5)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	latest, err := s.Latest(ctx, "s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Seq != 10 {
		t.Errorf("Latest seq = %d, want 10", latest.Seq)
	}
	if latest.Diagram == nil || len(latest.Diagram.Nodes) != 1 || latest.Diagram.Nodes[0].Kind != diagram.KindSafeRoot {
		t.Errorf("diagram not preserved: %+v", latest.Diagram)
	}

	list, err := s.List(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var seqs []uint64
	for _, snap := range list {
		seqs = append(seqs, snap.Seq)
	}
	if len(seqs) != 3 || seqs[0] != 10 || seqs[1] != 2 || seqs[2] != 1 {
		t.Errorf("List seqs = %v, want [10 2 1]", seqs)
	}
	if list, _ := s.List(ctx, "s1", 2); len(list) != 2 {
		t.Errorf("List limit 2 returned %d", len(list))
	}

	// Saving the same seq replaces.
	replaced := snapshot("s1", 10)
	replaced.Caller = "crate::bar"
	if err := s.Save(ctx, replaced); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if latest, _ := s.Latest(ctx, "s1"); latest.Caller != "crate::bar" {
		t.Errorf("replaced caller = %s", latest.Caller)
	}

	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if snap, _ := s.Latest(ctx, "s1"); snap != nil {
		t.Error("snapshots survived Delete")
	}
	if snap, _ := s.Latest(ctx, "s2"); snap == nil {
		t.Error("Delete removed another session")
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	snap := snapshot("s1", 1)
	_ = s.Save(ctx, snap)
	snap.Caller = "mutated"
	if got, _ := s.Latest(ctx, "s1"); got.Caller != "crate::foo" {
		t.Errorf("store shares the caller's snapshot: %s", got.Caller)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	testStore(t, s)
}

func TestFileStoreSkipsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	_ = s.Save(ctx, snapshot("s1", 1))
	if err := os.WriteFile(filepath.Join(dir, "s1", snapshotName(2)), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	latest, err := s.Latest(ctx, "s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Seq != 1 {
		t.Errorf("Latest = %+v, want seq 1", latest)
	}
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	err := s.Save(context.Background(), snapshot("../escape", 1))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}
