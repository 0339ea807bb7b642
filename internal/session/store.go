package session

import (
	"slices"
	"sync"
	"time"

	"github.com/possamhq/possam/internal/identity"
)

// State is a snapshot of everything the UI needs to render: the active
// route, the session (nil while unauthenticated), pending-verification
// details, and the loading/error surface.
//
// Invariants: Session != nil exactly when Route is main or settings;
// PendingEmail != "" exactly when a created account awaits confirmation
// (mutually exclusive with Session).
type State struct {
	Route             Route
	Session           *identity.Session
	PendingEmail      string
	PendingSince      time.Time
	IsLoading         bool
	LoadingMessage    string
	ErrorMessage      string
	HasConnectedTools bool

	// Applied counts state mutations since startup. Overlapping
	// operations resolve last-write-wins; the counter makes that
	// ordering observable.
	Applied uint64
}

// Sink receives a snapshot after every state mutation.
type Sink interface {
	OnStateChange(State)
}

// Store holds the coordinator's mutable state. The coordinator is the only
// writer; everyone else reads snapshots or subscribes.
type Store struct {
	mu    sync.Mutex
	state State
	sinks []Sink
}

func NewStore() *Store {
	return &Store{state: State{Route: RouteSplash}}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a sink notified after each mutation.
func (s *Store) Subscribe(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// mutate applies fn under the lock, bumps the Applied counter, and fans the
// resulting snapshot out to subscribers. Mutations land in the order their
// initiating operations complete, not the order they were issued.
func (s *Store) mutate(fn func(*State)) State {
	s.mu.Lock()
	fn(&s.state)
	s.state.Applied++
	snapshot := s.state
	sinks := slices.Clone(s.sinks)
	s.mu.Unlock()

	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		sink.OnStateChange(snapshot)
	}
	return snapshot
}
