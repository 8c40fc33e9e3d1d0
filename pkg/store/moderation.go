package store

import (
	"context"
	"fmt"
)

// FlagForModeration inserts a pending moderation_queue row. Called
// (through moderation.Service) by the reconciler when the sanitizer
// reports redacted PII or a stripped script, on both the sync and the
// live path.
func (s *Store) FlagForModeration(ctx context.Context, entry ModerationEntry) (int64, error) {
	res, err := s.q().ExecContext(ctx, `
		INSERT INTO moderation_queue (content_type, content_id, status, reason, flagged_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ContentType, entry.ContentID, ModerationPending, entry.Reason, entry.FlaggedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("store: flagging %s %d for moderation: %w", entry.ContentType, entry.ContentID, err)
	}
	return res.LastInsertId()
}

// ReviewModeration transitions a pending entry to approved or
// rejected.
func (s *Store) ReviewModeration(ctx context.Context, id int64, status ModerationStatus, reviewedBy string) error {
	_, err := s.q().ExecContext(ctx, `
		UPDATE moderation_queue
		SET status = ?, reviewed_by = ?, reviewed_at = UTC_TIMESTAMP(3)
		WHERE id = ?`,
		status, reviewedBy, id,
	)
	if err != nil {
		return fmt.Errorf("store: reviewing moderation entry %d: %w", id, err)
	}
	return nil
}

// ListPendingModeration returns every entry awaiting review.
func (s *Store) ListPendingModeration(ctx context.Context) ([]ModerationEntry, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT id, content_type, content_id, status, reason, flagged_at, reviewed_at, reviewed_by
		FROM moderation_queue WHERE status = ? ORDER BY flagged_at ASC`, ModerationPending)
	if err != nil {
		return nil, fmt.Errorf("store: listing pending moderation: %w", err)
	}
	defer rows.Close()

	var entries []ModerationEntry
	for rows.Next() {
		var e ModerationEntry
		if err := rows.Scan(&e.ID, &e.ContentType, &e.ContentID, &e.Status, &e.Reason, &e.FlaggedAt, &e.ReviewedAt, &e.ReviewedBy); err != nil {
			return nil, fmt.Errorf("store: scanning moderation entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
