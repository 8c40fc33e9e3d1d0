// Package sync implements the sync orchestrator: it reads the
// cursor, selects full or delta mode, drives the Traversal Engine and
// Reconciler, and writes the cursor back on a clean return.
package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lakpahana/discord-forum/internal/errkind"
	"github.com/lakpahana/discord-forum/pkg/cursor"
	"github.com/lakpahana/discord-forum/pkg/platform"
	"github.com/lakpahana/discord-forum/pkg/store"
	"github.com/lakpahana/discord-forum/pkg/traversal"
)

// CursorStore is the narrow slice of pkg/cursor.Store the orchestrator needs.
type CursorStore interface {
	Get(ctx context.Context) (cursor.State, error)
	Set(ctx context.Context, ts time.Time) error
}

// Traverser drives the platform walk, matching traversal.Engine's Run method.
type Traverser interface {
	Run(ctx context.Context, opts traversal.Options, handle traversal.Handler) (traversal.Stats, error)
}

// Reconciler normalizes one thread's messages into store writes,
// matching reconcile.Reconciler's ReconcileThread method.
type Reconciler interface {
	ReconcileThread(ctx context.Context, channel platform.Channel, thread platform.Thread, messages []platform.Message) error
}

// ThreadFinder answers whether a thread already exists in the store,
// for the --skip-existing CLI flag. Optional; nil disables skipping.
type ThreadFinder interface {
	FindThread(ctx context.Context, id int64) (*store.Thread, error)
}

// Options parameterizes a single orchestrator run, mirroring the CLI's
// --guild/--channel/--thread/--limit/--skip-existing scope overrides.
type Options struct {
	ForceFull    bool
	MaxThreads   int
	GuildID      string
	ChannelID    string
	ThreadID     string
	SkipExisting bool
}

// Result mirrors traversal.Stats; kept as a distinct type so callers
// depend on this package's contract rather than traversal's.
type Result struct {
	Guilds   int
	Channels int
	Threads  int
	Posts    int
	Errors   int
	Mode     traversal.Mode
}

// Orchestrator owns one whole sync pass, cursor to cursor.
type Orchestrator struct {
	Cursor     CursorStore
	Traversal  Traverser
	Reconciler Reconciler
	Threads    ThreadFinder
	Log        zerolog.Logger
}

// Run executes one sync pass. Failure of
// the orchestrator itself (cursor load failure, traversal-level
// connectivity/auth errors) propagates without touching the cursor;
// per-entity failures inside a thread are counted in Result.Errors and
// never abort the run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Result, error) {
	log := o.Log.With().Str("run_id", uuid.NewString()[:8]).Logger()

	state, err := o.Cursor.Get(ctx)
	if err != nil {
		return Result{}, errkind.Wrap(errkind.Catastrophic, fmt.Errorf("sync: loading cursor: %w", err))
	}

	mode := traversal.ModeDelta
	if opts.ForceFull || state.IsFirstRun {
		mode = traversal.ModeFull
	}
	log.Info().Str("mode", string(mode)).Time("since", state.LastSync).Msg("sync: starting run")

	// Captured before traversal starts: events arriving mid-sync must
	// fall inside the window the *next* delta run covers.
	startTS := time.Now().UTC()

	stats, err := o.Traversal.Run(ctx, traversal.Options{
		Mode:       mode,
		Since:      state.LastSync,
		MaxThreads: opts.MaxThreads,
		GuildID:    opts.GuildID,
		ChannelID:  opts.ChannelID,
		ThreadID:   opts.ThreadID,
		SkipThread: o.skipThreadFunc(opts, log),
	}, o.handlerFunc(log))
	if err != nil {
		return Result{}, errkind.Wrap(errkind.Catastrophic, fmt.Errorf("sync: traversal failed: %w", err))
	}

	if ctx.Err() != nil {
		log.Warn().Msg("sync: run canceled; cursor left unchanged")
		return resultFrom(stats, mode), nil
	}

	if err := o.Cursor.Set(ctx, startTS); err != nil {
		return resultFrom(stats, mode), errkind.Wrap(errkind.Catastrophic, fmt.Errorf("sync: writing cursor: %w", err))
	}

	log.Info().
		Int("threads", stats.Threads).
		Int("posts", stats.Posts).
		Int("errors", stats.Errors).
		Msg("sync: run complete")
	return resultFrom(stats, mode), nil
}

func (o *Orchestrator) handlerFunc(log zerolog.Logger) traversal.Handler {
	return func(ctx context.Context, batch traversal.Batch) error {
		if err := o.Reconciler.ReconcileThread(ctx, batch.Channel, batch.Thread, batch.Messages); err != nil {
			log.Warn().Err(err).Str("thread_id", batch.Thread.ID).Msg("sync: reconciliation failed for thread")
			return err
		}
		return nil
	}
}

// skipThreadFunc builds the traversal SkipThread hook for
// --skip-existing: a thread already present in the store is skipped
// before its messages are ever paged.
func (o *Orchestrator) skipThreadFunc(opts Options, log zerolog.Logger) func(ctx context.Context, t platform.Thread) bool {
	if !opts.SkipExisting || o.Threads == nil {
		return nil
	}
	return func(ctx context.Context, t platform.Thread) bool {
		id, err := strconv.ParseInt(t.ID, 10, 64)
		if err != nil {
			return false
		}
		existing, err := o.Threads.FindThread(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("thread_id", t.ID).Msg("sync: skip-existing lookup failed; not skipping")
			return false
		}
		return existing != nil
	}
}

func resultFrom(stats traversal.Stats, mode traversal.Mode) Result {
	return Result{
		Guilds:   stats.Guilds,
		Channels: stats.Channels,
		Threads:  stats.Threads,
		Posts:    stats.Posts,
		Errors:   stats.Errors,
		Mode:     mode,
	}
}
