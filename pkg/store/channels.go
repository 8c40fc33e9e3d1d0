package store

import (
	"context"
	"fmt"
)

// UpsertChannel inserts or updates a channel on its primary key.
// Channels are never deleted by the core (audit requirement), so
// there is no DeleteChannel.
func (s *Store) UpsertChannel(ctx context.Context, c Channel) error {
	return s.upsertChannel(ctx, s.q(), "sync", c)
}

func (s *Store) upsertChannel(ctx context.Context, q querier, actor string, c Channel) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO channels (id, slug, name, description, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			slug = VALUES(slug),
			name = VALUES(name),
			description = VALUES(description),
			position = VALUES(position)`,
		c.ID, c.Slug, c.Name, c.Description, c.Position, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upserting channel %d: %w", c.ID, err)
	}
	return s.appendAudit(ctx, q, actor, AuditInsert, "channels", nil, c)
}

// FindChannel returns the channel with the given ID, or (nil, nil) if
// it does not exist.
func (s *Store) FindChannel(ctx context.Context, id int64) (*Channel, error) {
	row := s.q().QueryRowContext(ctx, `
		SELECT id, slug, name, description, position, created_at
		FROM channels WHERE id = ?`, id)

	var c Channel
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.Position, &c.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: finding channel %d: %w", id, err)
	}
	return &c, nil
}
