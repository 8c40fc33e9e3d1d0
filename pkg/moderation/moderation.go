// Package moderation exposes the moderation-queue operations the
// admin surface reviews flagged content through. The sync and live
// paths enqueue entries via FlagForModeration whenever the sanitizer
// reports redacted PII or a stripped script.
package moderation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lakpahana/discord-forum/pkg/store"
)

// QueueStore is the store surface the service drives.
type QueueStore interface {
	FlagForModeration(ctx context.Context, entry store.ModerationEntry) (int64, error)
	ReviewModeration(ctx context.Context, id int64, status store.ModerationStatus, reviewedBy string) error
	ListPendingModeration(ctx context.Context) ([]store.ModerationEntry, error)
}

// Service wraps the moderation queue with flag-time defaults and
// review-decision logging.
type Service struct {
	Store QueueStore
	Log   zerolog.Logger
}

// FlagForModeration enqueues entry as pending, stamping FlaggedAt if
// the caller left it zero. Satisfies reconcile.ModerationFlagger.
func (s *Service) FlagForModeration(ctx context.Context, entry store.ModerationEntry) (int64, error) {
	if entry.FlaggedAt.IsZero() {
		entry.FlaggedAt = time.Now().UTC()
	}
	id, err := s.Store.FlagForModeration(ctx, entry)
	if err != nil {
		return 0, err
	}
	s.Log.Info().
		Int64("entry_id", id).
		Str("content_type", string(entry.ContentType)).
		Int64("content_id", entry.ContentID).
		Str("reason", entry.Reason).
		Msg("moderation: content flagged")
	return id, nil
}

// Approve marks a pending entry approved.
func (s *Service) Approve(ctx context.Context, id int64, reviewedBy string) error {
	return s.Store.ReviewModeration(ctx, id, store.ModerationApproved, reviewedBy)
}

// Reject marks a pending entry rejected.
func (s *Service) Reject(ctx context.Context, id int64, reviewedBy string) error {
	return s.Store.ReviewModeration(ctx, id, store.ModerationRejected, reviewedBy)
}

// ListPending returns every entry awaiting review, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]store.ModerationEntry, error) {
	return s.Store.ListPendingModeration(ctx)
}
