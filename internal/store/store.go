// Package store owns the current documentation snapshot. It runs the
// fetch, validate, sort cycle on demand and publishes the result to every
// reader at once.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docnav/internal/query"
	"github.com/dgallion1/docnav/internal/schema"
	"github.com/dgallion1/docnav/internal/sorter"
)

// Status is the lifecycle state of the store.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// State is an immutable view of the store at one point in time.
type State struct {
	Status    Status
	Snapshot  *query.Snapshot // nil unless a load has succeeded and no later load failed
	Err       error
	UpdatedAt time.Time
	Version   uint64
}

// Message returns the human-readable error message, or "".
func (s State) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Recorder receives load outcomes. internal/metrics provides one.
type Recorder interface {
	ObserveLoad(start time.Time, outcome string)
	SetNodes(n int)
}

// Load outcomes passed to Recorder.
const (
	OutcomeReady      = "ready"
	OutcomeTransport  = "transport_error"
	OutcomeValidation = "validation_error"
)

// Store holds the validated, sorted documentation tree.
type Store struct {
	fetcher  Fetcher
	log      *slog.Logger
	recorder Recorder
	prefix   string

	mu       sync.RWMutex
	state    State
	inflight int
	closed   bool
	subs     map[int]chan State
	nextSub  int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithRecorder attaches a load metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithPrefix sets the documentation URL prefix used by published snapshots.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates an idle store. Nothing is fetched until Load is called.
func New(f Fetcher, opts ...Option) *Store {
	s := &Store{
		fetcher: f,
		log:     slog.New(slog.DiscardHandler),
		prefix:  query.DefaultPrefix,
		state:   State{Status: StatusIdle, UpdatedAt: time.Now()},
		subs:    make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the current snapshot, or nil when none is available.
func (s *Store) Snapshot() *query.Snapshot {
	return s.State().Snapshot
}

// Load fetches, validates and sorts the structure, then publishes the result.
// The returned error is also recorded in State; callers may ignore it.
// While the load is in flight the previous snapshot stays readable with
// status loading. A failed load discards the previous snapshot.
func (s *Store) Load(ctx context.Context) error {
	_, err := s.LoadState(ctx)
	return err
}

// LoadState is Load that also returns the state this load produced. With
// overlapping loads, State may already show a later result; the returned
// value always describes this call.
func (s *Store) LoadState(ctx context.Context) (State, error) {
	start := time.Now()
	s.begin()

	snap, err := s.build(ctx)
	return s.finish(start, snap, err), err
}

// Refetch re-runs Load. Overlapping calls are not serialized; whichever
// completes last is the one readers end up seeing.
func (s *Store) Refetch(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Store) build(ctx context.Context) (*query.Snapshot, error) {
	raw, err := s.fetcher.Fetch(ctx)
	if err != nil {
		var terr *TransportError
		if !errors.As(err, &terr) {
			err = &TransportError{Err: err}
		}
		return nil, err
	}
	nodes, err := schema.Decode(raw)
	if err != nil {
		return nil, err
	}
	return query.New(sorter.Sort(nodes), query.WithPrefix(s.prefix)), nil
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	if s.closed {
		return
	}
	s.publishLocked(State{Status: StatusLoading, Snapshot: s.state.Snapshot})
}

func (s *Store) finish(start time.Time, snap *query.Snapshot, err error) State {
	next := State{Status: StatusReady, Snapshot: snap}
	if err != nil {
		next = State{Status: StatusError, Err: err}
	}
	outcome := OutcomeReady
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		outcome = OutcomeValidation
	case err != nil:
		outcome = OutcomeTransport
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.closed {
		next.UpdatedAt = time.Now()
		return next
	}

	if s.recorder != nil {
		s.recorder.ObserveLoad(start, outcome)
	}
	durMS := time.Since(start).Milliseconds()
	if err != nil {
		s.log.Warn("structure load failed", "outcome", outcome, "error", err, "duration_ms", durMS)
		s.publishLocked(next)
		if s.recorder != nil {
			s.recorder.SetNodes(0)
		}
		return s.state
	}

	n := snap.Len()
	s.log.Info("structure loaded", "nodes", n, "files", len(snap.AllFiles()), "duration_ms", durMS)
	s.publishLocked(next)
	if s.recorder != nil {
		s.recorder.SetNodes(n)
	}
	return s.state
}

// publishLocked swaps in next and notifies subscribers. Caller holds s.mu.
func (s *Store) publishLocked(next State) {
	next.Version = s.state.Version + 1
	next.UpdatedAt = time.Now()
	s.state = next
	for _, ch := range s.subs {
		offer(ch, next)
	}
}

// offer delivers st, replacing an unread older state if the buffer is full.
func offer(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

// Subscribe returns a channel that receives the latest state after every
// change, starting with the current one. Slow readers only ever see the
// newest state. The cancel func removes the subscription and closes the
// channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// InFlight returns the number of loads currently running.
func (s *Store) InFlight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight
}

// Close tears the store down. Loads still in flight finish without
// publishing, and all subscriber channels are closed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
