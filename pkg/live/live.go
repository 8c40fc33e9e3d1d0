// Package live consumes
// platform push events and applies the same reconciler primitives the
// sync path uses, so a row written by either path converges on the
// same state. Handlers are idempotent and never touch the cursor.
package live

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lakpahana/discord-forum/pkg/platform"
	"github.com/lakpahana/discord-forum/pkg/store"
)

// Actor names the writer credited in the audit log for every write
// the live path makes, distinguishing it from the sync path's rows.
const Actor = "live"

// Reconciler is the slice of reconcile.Reconciler the handler invokes.
type Reconciler interface {
	ReconcilePost(ctx context.Context, threadID int64, m platform.Message) error
	ReconcileThreadStarter(ctx context.Context, thread platform.Thread, starter platform.Message) error
	UpdateThreadBody(ctx context.Context, threadID int64, m platform.Message) error
}

// ThreadStore is the thread-facing store surface the handler needs.
type ThreadStore interface {
	FindThread(ctx context.Context, id int64) (*store.Thread, error)
	SetThreadReplyCount(ctx context.Context, threadID int64, n int) error
	DeleteThread(ctx context.Context, actor string, id int64) error
}

// PostStore is the post-facing store surface the handler needs.
type PostStore interface {
	FindPost(ctx context.Context, id int64) (*store.Post, error)
	CountPosts(ctx context.Context, threadID int64) (int, error)
	DeletePost(ctx context.Context, actor string, id int64) (bool, error)
}

// StarterFetcher fetches a thread's first message, for thread_create
// and thread_update events that arrive without one inline.
type StarterFetcher interface {
	FetchStarterMessage(ctx context.Context, threadID string) (platform.Message, error)
}

// Handler dispatches platform push events.
type Handler struct {
	Reconciler Reconciler
	Threads    ThreadStore
	Posts      PostStore
	Client     StarterFetcher
	Log        zerolog.Logger
}

// Run subscribes the handler to src and blocks until ctx is canceled.
// A per-event failure is logged and swallowed: one malformed event
// must not take the event loop down.
func (h *Handler) Run(ctx context.Context, src platform.EventSource) error {
	return src.Subscribe(ctx, func(e platform.Event) {
		if err := h.Dispatch(ctx, e); err != nil {
			h.Log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("live: event handling failed")
		}
	})
}

// Dispatch applies one event. It is safe to call concurrently with a
// running sync: every write is the same idempotent upsert of the same
// source state, so last-writer-wins at the row level cannot diverge.
func (h *Handler) Dispatch(ctx context.Context, e platform.Event) error {
	switch e.Kind {
	case platform.EventMessageCreate:
		return h.messageCreate(ctx, e.Message)
	case platform.EventMessageUpdate:
		return h.messageUpdate(ctx, e.Message)
	case platform.EventMessageDelete:
		return h.messageDelete(ctx, e.Message)
	case platform.EventThreadCreate, platform.EventThreadUpdate:
		return h.threadUpsert(ctx, e.Thread)
	case platform.EventThreadDelete:
		return h.threadDelete(ctx, e.Thread)
	default:
		return fmt.Errorf("live: unknown event kind %q", e.Kind)
	}
}

func (h *Handler) messageCreate(ctx context.Context, m *platform.Message) error {
	if m == nil || m.AuthorIsBot {
		return nil
	}
	// The starter shares its thread's ID; thread_create owns that path.
	if m.ID == m.ThreadID {
		return nil
	}

	threadID, err := parseID(m.ThreadID)
	if err != nil {
		return fmt.Errorf("live: parsing thread id %q: %w", m.ThreadID, err)
	}
	thread, err := h.Threads.FindThread(ctx, threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		// Not a mirrored forum thread (ordinary channel message).
		return nil
	}

	if err := h.Reconciler.ReconcilePost(ctx, threadID, *m); err != nil {
		return err
	}
	return h.refreshReplyCount(ctx, threadID)
}

func (h *Handler) messageUpdate(ctx context.Context, m *platform.Message) error {
	if m == nil {
		return nil
	}
	id, err := parseID(m.ID)
	if err != nil {
		return fmt.Errorf("live: parsing message id %q: %w", m.ID, err)
	}

	if post, err := h.Posts.FindPost(ctx, id); err != nil {
		return err
	} else if post != nil {
		return h.Reconciler.ReconcilePost(ctx, post.ThreadID, *m)
	}

	// No matching post: the edit may be to a thread's starter message,
	// whose ID equals the thread's own.
	return h.Reconciler.UpdateThreadBody(ctx, id, *m)
}

func (h *Handler) messageDelete(ctx context.Context, m *platform.Message) error {
	if m == nil {
		return nil
	}
	id, err := parseID(m.ID)
	if err != nil {
		return fmt.Errorf("live: parsing message id %q: %w", m.ID, err)
	}

	deleted, err := h.Posts.DeletePost(ctx, Actor, id)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	threadID, err := parseID(m.ThreadID)
	if err != nil {
		return nil
	}
	if thread, err := h.Threads.FindThread(ctx, threadID); err != nil || thread == nil {
		return err
	}
	return h.refreshReplyCount(ctx, threadID)
}

func (h *Handler) threadUpsert(ctx context.Context, t *platform.Thread) error {
	if t == nil {
		return nil
	}
	starter, err := h.Client.FetchStarterMessage(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("live: fetching starter for thread %s: %w", t.ID, err)
	}
	if starter.AuthorIsBot {
		return nil
	}
	return h.Reconciler.ReconcileThreadStarter(ctx, *t, starter)
}

// threadDelete removes a mirrored thread; the threads->posts foreign
// key cascades to its posts. This is the only path that ever deletes
// a thread — the sync engine never does.
func (h *Handler) threadDelete(ctx context.Context, t *platform.Thread) error {
	if t == nil {
		return nil
	}
	id, err := parseID(t.ID)
	if err != nil {
		return fmt.Errorf("live: parsing thread id %q: %w", t.ID, err)
	}

	existing, err := h.Threads.FindThread(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	return h.Threads.DeleteThread(ctx, Actor, id)
}

// refreshReplyCount recomputes a thread's reply_count from the posts
// table rather than incrementing, so replayed events stay idempotent.
// The starter lives on the thread row, not in posts, so the count is
// the reply count as-is.
func (h *Handler) refreshReplyCount(ctx context.Context, threadID int64) error {
	count, err := h.Posts.CountPosts(ctx, threadID)
	if err != nil {
		return err
	}
	return h.Threads.SetThreadReplyCount(ctx, threadID, count)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
