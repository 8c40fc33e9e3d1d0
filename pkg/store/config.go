package store

import (
	"context"
	"fmt"
)

// GetConfig returns the raw string value for key, or ("", false, nil)
// if unset. This is the generic primitive the cursor store builds its
// JSON cursor semantics on top of.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	row := s.q().QueryRowContext(ctx, `SELECT value FROM config WHERE key_name = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: getting config %s: %w", key, err)
	}
	return value, true, nil
}

// SetConfig upserts key to value, stamping updated_at with the
// database's own clock.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.q().ExecContext(ctx, `
		INSERT INTO config (key_name, value, updated_at)
		VALUES (?, ?, UTC_TIMESTAMP(3))
		ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store: setting config %s: %w", key, err)
	}
	return nil
}
