// Package toolstate persists whether this install has connected the
// third-party tools the assistant needs, plus the set of connected tool
// IDs. The flag is keyed per install, not per account; keys are namespaced
// so a per-account migration stays mechanical.
package toolstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/possamhq/possam/internal/dbx"
	"github.com/possamhq/possam/internal/localstore"
	"github.com/possamhq/possam/internal/logging"
)

const (
	keyConnected = "tools/connected"
	keyToolIDs   = "tools/ids"
)

// Event describes a change of the connected flag.
type Event struct {
	Connected bool
}

// Sink receives tools-connection change events. Replaces the app-wide
// broadcast the original UI used: consumers subscribe to this store
// directly instead of listening for a stringly-named notification.
type Sink interface {
	OnToolsConnectionChanged(Event)
}

// Store is the persisted tools-connection state.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu    sync.Mutex
	sinks []Sink
}

func NewStore(db *sql.DB, log logging.Logger) *Store {
	return &Store{db: db, log: log.With("component", "toolstate")}
}

// Subscribe registers a sink for change events.
func (s *Store) Subscribe(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

func (s *Store) notify(ev Event) {
	s.mu.Lock()
	sinks := slices.Clone(s.sinks)
	s.mu.Unlock()

	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		sink.OnToolsConnectionChanged(ev)
	}
}

// Connected reports whether the required tools have been connected.
// Read failures count as "not connected".
func (s *Store) Connected(ctx context.Context) bool {
	v, err := localstore.NewSQLiteKV(s.db).Get(ctx, keyConnected)
	if err != nil {
		s.log.Error(ctx, "failed to read connected flag", "error", err)
		return false
	}
	return string(v) == "1"
}

// MarkConnected sets the flag and notifies subscribers.
func (s *Store) MarkConnected(ctx context.Context) error {
	if err := localstore.NewSQLiteKV(s.db).Set(ctx, keyConnected, []byte("1")); err != nil {
		return fmt.Errorf("mark tools connected: %w", err)
	}
	s.notify(Event{Connected: true})
	return nil
}

// Reset clears the flag and the connected-tool set. Called whenever a
// brand-new account is created.
func (s *Store) Reset(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		kv := localstore.NewSQLiteKV(tx)
		if err := kv.Set(ctx, keyConnected, []byte("0")); err != nil {
			return err
		}
		return kv.Delete(ctx, keyToolIDs)
	})
	if err != nil {
		return fmt.Errorf("reset tools state: %w", err)
	}
	s.notify(Event{Connected: false})
	return nil
}

// AddTool records a connected tool ID. Adding a known ID is a no-op.
func (s *Store) AddTool(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		kv := localstore.NewSQLiteKV(tx)
		ids, err := readToolIDs(ctx, kv)
		if err != nil {
			return err
		}
		if slices.Contains(ids, id) {
			return nil
		}
		ids = append(ids, id)
		data, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return kv.Set(ctx, keyToolIDs, data)
	})
}

// Tools returns the connected tool IDs.
func (s *Store) Tools(ctx context.Context) ([]string, error) {
	return readToolIDs(ctx, localstore.NewSQLiteKV(s.db))
}

func readToolIDs(ctx context.Context, kv localstore.KV) ([]string, error) {
	data, err := kv.Get(ctx, keyToolIDs)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode tool ids: %w", err)
	}
	return ids, nil
}
