// Package session sequences renders so only the freshest result is shown.
//
// Renders of one session may overlap: a user edits the input while the
// previous render is still in its layout stages. Each render draws a
// monotonically increasing sequence number before it starts. When it
// finishes, it commits only if no render with a higher number has
// committed in the meantime; otherwise it fails with STALE_RENDER and the
// visible diagram is left alone. A failed render commits nothing.
//
// Committed snapshots are delivered to subscribers (the websocket stream)
// and, when a store is configured, persisted.
//
// # Usage
//
//	sess := session.New(runner, session.WithStore(st))
//	snap, err := sess.Render(ctx, session.Request{Caller: caller, Options: opts})
//	if errors.Is(err, errors.ErrCodeStaleRender) {
//	    // a newer render already won
//	}
package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/observability"
	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/store"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// Renderer produces a diagram for a caller. [pipeline.Runner] implements it.
type Renderer interface {
	Render(ctx context.Context, caller *upg.Caller, tags upg.TagTable, opts pipeline.Options) (*pipeline.Result, error)
}

// Request is one render request.
type Request struct {
	Caller  *upg.Caller      `json:"caller"`
	Tags    upg.TagTable     `json:"tags,omitempty"`
	Options pipeline.Options `json:"options"`
}

// Session is a sequence of renders with one visible result.
type Session struct {
	ID        string
	CreatedAt time.Time

	renderer Renderer
	store    store.Store
	logger   *log.Logger
	now      func() time.Time

	mu        sync.Mutex
	next      uint64
	committed uint64
	current   *store.Snapshot
	subs      map[int]chan *store.Snapshot
	nextSub   int
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id instead of a random UUID.
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// WithStore persists every commit to st.
func WithStore(st store.Store) Option {
	return func(s *Session) { s.store = st }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session rendering with r.
func New(r Renderer, opts ...Option) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		renderer: r,
		now:      time.Now,
		subs:     make(map[int]chan *store.Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s.CreatedAt = s.now()
	return s
}

// Begin reserves the next sequence number.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Render renders req under a fresh sequence number and commits the
// result. It returns STALE_RENDER when a newer render committed first.
func (s *Session) Render(ctx context.Context, req Request) (*store.Snapshot, error) {
	if req.Caller == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "caller is required")
	}
	seq := s.Begin()
	res, err := s.renderer.Render(ctx, req.Caller, req.Tags, req.Options)
	if err != nil {
		s.logger.Debug("render failed", "session", s.ID, "seq", seq, "err", err)
		return nil, err
	}
	return s.Commit(ctx, seq, req.Caller.Name, res)
}

// Commit makes res the visible result unless a render with a higher
// sequence number already committed.
func (s *Session) Commit(ctx context.Context, seq uint64, caller string, res *pipeline.Result) (*store.Snapshot, error) {
	s.mu.Lock()
	if seq <= s.committed {
		latest := s.committed
		s.mu.Unlock()
		observability.Pipeline().OnCommit(ctx, s.ID, seq, true)
		s.logger.Debug("discarded stale render", "session", s.ID, "seq", seq, "committed", latest)
		return nil, errors.New(errors.ErrCodeStaleRender, "render %d superseded by render %d", seq, latest)
	}
	snap := &store.Snapshot{
		ID:          uuid.NewString(),
		SessionID:   s.ID,
		Seq:         seq,
		Caller:      caller,
		Diagram:     res.Diagram,
		Diagnostics: res.Diagnostics,
		CreatedAt:   s.now(),
	}
	s.committed = seq
	s.current = snap
	for _, ch := range s.subs {
		offer(ch, snap)
	}
	s.mu.Unlock()

	observability.Pipeline().OnCommit(ctx, s.ID, seq, false)
	if s.store != nil {
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.Warn("failed to persist snapshot", "session", s.ID, "seq", seq, "err", err)
		}
	}
	return snap, nil
}

// offer delivers snap, replacing an undelivered older snapshot so slow
// subscribers always see the latest one.
func offer(ch chan *store.Snapshot, snap *store.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Current returns the committed snapshot, or nil before the first commit.
func (s *Session) Current() *store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Restore makes snap the visible result when nothing newer is committed.
// It is used to resume a session from its store.
func (s *Session) Restore(snap *store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == nil || snap.Seq <= s.committed {
		return
	}
	s.current = snap
	s.committed = snap.Seq
	if s.next < snap.Seq {
		s.next = snap.Seq
	}
}

// Subscribe returns a channel receiving every later commit and a function
// that ends the subscription and closes the channel. The current snapshot,
// if any, is delivered first.
func (s *Session) Subscribe() (<-chan *store.Snapshot, func()) {
	ch := make(chan *store.Snapshot, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.current != nil {
		ch <- s.current
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}
