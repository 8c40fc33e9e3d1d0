package store

import (
	"context"
	"fmt"
)

// UpsertPost inserts or updates a post on its primary key.
func (s *Store) UpsertPost(ctx context.Context, actor string, p Post) error {
	return s.upsertPost(ctx, s.q(), actor, p)
}

// UpsertPostTx is the transactional variant used when a post write
// must commit atomically with other changes on the same querier.
func (s *Store) UpsertPostTx(ctx context.Context, q querier, actor string, p Post) error {
	return s.upsertPost(ctx, q, actor, p)
}

func (s *Store) upsertPost(ctx context.Context, q querier, actor string, p Post) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO posts (id, thread_id, author_alias, body_html, reply_to_id, reply_to_author_alias, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			body_html = VALUES(body_html),
			reply_to_id = VALUES(reply_to_id),
			reply_to_author_alias = VALUES(reply_to_author_alias),
			updated_at = VALUES(updated_at)`,
		p.ID, p.ThreadID, p.AuthorAlias, p.BodyHTML, p.ReplyToID, p.ReplyToAuthorAlias, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upserting post %d: %w", p.ID, err)
	}
	return s.appendAudit(ctx, q, actor, AuditInsert, "posts", nil, p)
}

// SetPostReplyTo backfills reply_to_id/reply_to_author_alias on a post
// whose referent was not yet known at insert time, during the
// deferred-reference repair pass.
func (s *Store) SetPostReplyTo(ctx context.Context, actor string, postID, replyToID int64, replyToAuthorAlias string) error {
	_, err := s.q().ExecContext(ctx, `
		UPDATE posts SET reply_to_id = ?, reply_to_author_alias = ? WHERE id = ?`,
		replyToID, replyToAuthorAlias, postID,
	)
	if err != nil {
		return fmt.Errorf("store: repairing reply reference on post %d: %w", postID, err)
	}
	return s.appendAudit(ctx, s.q(), actor, AuditUpdate, "posts", nil, map[string]any{
		"id": postID, "reply_to_id": replyToID, "reply_to_author_alias": replyToAuthorAlias,
	})
}

// FindPost returns the post with the given ID, or (nil, nil) if it
// does not exist. Used by post reconciliation to resolve reply_to and
// by deferred-reference repair.
func (s *Store) FindPost(ctx context.Context, id int64) (*Post, error) {
	row := s.q().QueryRowContext(ctx, `
		SELECT id, thread_id, author_alias, body_html, reply_to_id, reply_to_author_alias, created_at, updated_at
		FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

func scanPost(row interface {
	Scan(dest ...any) error
}) (*Post, error) {
	var p Post
	if err := row.Scan(&p.ID, &p.ThreadID, &p.AuthorAlias, &p.BodyHTML, &p.ReplyToID, &p.ReplyToAuthorAlias, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scanning post: %w", err)
	}
	return &p, nil
}

// CountPosts returns the number of posts under a thread, the basis
// for reply-count maintenance.
func (s *Store) CountPosts(ctx context.Context, threadID int64) (int, error) {
	row := s.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE thread_id = ?`, threadID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("store: counting posts for thread %d: %w", threadID, err)
	}
	return n, nil
}

// DeletePost removes a post. The posts->posts reply_to_id ON DELETE
// SET NULL foreign key handles repair of any post that replied to it;
// callers still recompute reply_count afterward. Returns false if the
// post did not exist.
func (s *Store) DeletePost(ctx context.Context, actor string, id int64) (bool, error) {
	var existed bool
	err := s.WithTx(ctx, func(ctx context.Context, q querier) error {
		old, err := findPostTx(ctx, q, id)
		if err != nil {
			return err
		}
		if old == nil {
			return nil
		}
		existed = true

		if _, err := q.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: deleting post %d: %w", id, err)
		}
		return s.appendAudit(ctx, q, actor, AuditDelete, "posts", old, nil)
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

func findPostTx(ctx context.Context, q querier, id int64) (*Post, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, thread_id, author_alias, body_html, reply_to_id, reply_to_author_alias, created_at, updated_at
		FROM posts WHERE id = ?`, id)
	return scanPost(row)
}
