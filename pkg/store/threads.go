package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// UpsertThread inserts or updates a thread on its primary key. It
// never touches reply_count — that is maintained separately by
// SetThreadReplyCount once all of a thread's messages have been
// reconciled.
func (s *Store) UpsertThread(ctx context.Context, actor string, t Thread) error {
	return s.upsertThread(ctx, s.q(), actor, t)
}

// UpsertThreadTx is the transactional variant, running on a
// caller-supplied querier so the thread write can commit or roll back
// together with other changes. The Reconciler does not call it; it
// uses UpsertThreadWithReplyCount.
func (s *Store) UpsertThreadTx(ctx context.Context, q querier, actor string, t Thread) error {
	return s.upsertThread(ctx, q, actor, t)
}

func (s *Store) upsertThread(ctx context.Context, q querier, actor string, t Thread) error {
	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("store: marshaling tags for thread %d: %w", t.ID, err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO threads (id, channel_id, slug, title, author_alias, body_html, tags, reply_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title),
			body_html = VALUES(body_html),
			tags = VALUES(tags),
			updated_at = VALUES(updated_at)`,
		t.ID, t.ChannelID, t.Slug, t.Title, t.AuthorAlias, t.BodyHTML, tagsJSON, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upserting thread %d: %w", t.ID, err)
	}
	return s.appendAudit(ctx, q, actor, AuditInsert, "threads", nil, t)
}

// UpsertThreadWithReplyCount upserts a thread and stamps its initial
// reply_count atomically, for the starter-message + reply-count write
// that must commit or roll back together.
func (s *Store) UpsertThreadWithReplyCount(ctx context.Context, actor string, t Thread, replyCount int) error {
	return s.WithTx(ctx, func(ctx context.Context, q querier) error {
		if err := s.upsertThread(ctx, q, actor, t); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `UPDATE threads SET reply_count = ? WHERE id = ?`, replyCount, t.ID); err != nil {
			return fmt.Errorf("store: setting reply_count for thread %d: %w", t.ID, err)
		}
		return nil
	})
}

// SetThreadReplyCount sets threads.reply_count directly. It does not
// touch updated_at:
// reply-count maintenance is bookkeeping derived from the posts
// table, not a content edit.
func (s *Store) SetThreadReplyCount(ctx context.Context, threadID int64, n int) error {
	_, err := s.q().ExecContext(ctx, `UPDATE threads SET reply_count = ? WHERE id = ?`, n, threadID)
	if err != nil {
		return fmt.Errorf("store: setting reply_count for thread %d: %w", threadID, err)
	}
	return nil
}

// FindThread returns the thread with the given ID, or (nil, nil) if
// it does not exist.
func (s *Store) FindThread(ctx context.Context, id int64) (*Thread, error) {
	row := s.q().QueryRowContext(ctx, `
		SELECT id, channel_id, slug, title, author_alias, body_html, tags, reply_count, created_at, updated_at
		FROM threads WHERE id = ?`, id)
	return scanThread(row)
}

func scanThread(row interface {
	Scan(dest ...any) error
}) (*Thread, error) {
	var t Thread
	var tagsJSON []byte
	if err := row.Scan(&t.ID, &t.ChannelID, &t.Slug, &t.Title, &t.AuthorAlias, &t.BodyHTML, &tagsJSON, &t.ReplyCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scanning thread: %w", err)
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &t.Tags); err != nil {
			return nil, fmt.Errorf("store: unmarshaling tags: %w", err)
		}
	}
	return &t, nil
}

// DeleteThread removes a thread, cascading to its posts per the
// threads->posts ON DELETE CASCADE foreign key. Only the live event
// handler's thread-delete path calls this; the sync engine never
// deletes threads.
func (s *Store) DeleteThread(ctx context.Context, actor string, id int64) error {
	return s.WithTx(ctx, func(ctx context.Context, q querier) error {
		old, err := s.findThreadTx(ctx, q, id)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: deleting thread %d: %w", id, err)
		}
		return s.appendAudit(ctx, q, actor, AuditDelete, "threads", old, nil)
	})
}

func (s *Store) findThreadTx(ctx context.Context, q querier, id int64) (*Thread, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, channel_id, slug, title, author_alias, body_html, tags, reply_count, created_at, updated_at
		FROM threads WHERE id = ?`, id)
	return scanThread(row)
}
