// Package cursor implements the persisted sync watermark: the single
// row that remembers when the last successful sync
// started, so the orchestrator knows whether to run full or delta
// and, for delta, where to start.
package cursor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lakpahana/discord-forum/internal/errkind"
)

// configKey is the fixed key_name the cursor row lives under in the
// generic config table.
const configKey = "sync_state"

// epoch is the default LastSync for a database that has never synced.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// State is the decoded cursor. Its wire form (see wireState) is
// {"last_sync":ISO-8601,"is_first_run":0|1}.
type State struct {
	LastSync   time.Time `json:"last_sync"`
	IsFirstRun bool      `json:"is_first_run"`
}

// wireState is State's JSON encoding, since is_first_run is an int
// (0|1) on the wire rather than a bool, and last_sync needs
// millisecond ISO-8601 formatting.
type wireState struct {
	LastSync   string `json:"last_sync"`
	IsFirstRun int    `json:"is_first_run"`
}

const isoMillis = "2006-01-02T15:04:05.000Z"

func (s State) marshal() (string, error) {
	firstRun := 0
	if s.IsFirstRun {
		firstRun = 1
	}
	w := wireState{LastSync: s.LastSync.UTC().Format(isoMillis), IsFirstRun: firstRun}
	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("cursor: marshaling state: %w", err)
	}
	return string(b), nil
}

func unmarshal(raw string) (State, error) {
	var w wireState
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return State{}, fmt.Errorf("cursor: unmarshaling state: %w", err)
	}
	ts, err := time.Parse(isoMillis, w.LastSync)
	if err != nil {
		return State{}, fmt.Errorf("cursor: parsing last_sync %q: %w", w.LastSync, err)
	}
	return State{LastSync: ts, IsFirstRun: w.IsFirstRun != 0}, nil
}

// ConfigStore is the narrow slice of pkg/store.Store the cursor needs:
// the generic key-value primitive, not the full store surface.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Store is the cursor store, backed by a ConfigStore.
type Store struct {
	cfg ConfigStore
}

// New wraps a ConfigStore (ordinarily *store.Store) as a Cursor Store.
func New(cfg ConfigStore) *Store {
	return &Store{cfg: cfg}
}

// Get returns the persisted cursor, defaulting to (epoch, first-run)
// if the row is somehow absent — the migration seeds it, but a fresh
// or hand-built database should not crash the orchestrator over it.
func (s *Store) Get(ctx context.Context) (State, error) {
	raw, ok, err := s.cfg.GetConfig(ctx, configKey)
	if err != nil {
		return State{}, errkind.Wrap(errkind.Transient, fmt.Errorf("cursor: loading state: %w", err))
	}
	if !ok {
		return State{LastSync: epoch, IsFirstRun: true}, nil
	}
	state, err := unmarshal(raw)
	if err != nil {
		return State{}, errkind.Wrap(errkind.Integrity, err)
	}
	return state, nil
}

// Set persists ts as the new last-successful-sync timestamp and
// clears is_first_run. Callers MUST pass the wall-clock captured at
// the START of the sync run, never the end, so that
// events arriving mid-sync are not skipped by the next delta window.
func (s *Store) Set(ctx context.Context, ts time.Time) error {
	state := State{LastSync: ts.UTC(), IsFirstRun: false}
	raw, err := state.marshal()
	if err != nil {
		return errkind.Wrap(errkind.Integrity, err)
	}
	if err := s.cfg.SetConfig(ctx, configKey, raw); err != nil {
		return errkind.Wrap(errkind.Transient, fmt.Errorf("cursor: persisting state: %w", err))
	}
	return nil
}
