package store

import (
	"context"
	"fmt"
)

// UpsertStaffRole inserts or updates a staff role keyed by the hashed
// user ID. A CSV re-import overwrites public_tag for the same
// user_id_hash.
func (s *Store) UpsertStaffRole(ctx context.Context, actor string, role StaffRole) error {
	_, err := s.q().ExecContext(ctx, `
		INSERT INTO staff_roles (user_id_hash, public_tag, added_by, added_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			public_tag = VALUES(public_tag),
			added_by = VALUES(added_by)`,
		role.UserIDHash, role.PublicTag, role.AddedBy, role.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upserting staff role %s: %w", role.UserIDHash, err)
	}
	return s.appendAudit(ctx, s.q(), actor, AuditInsert, "staff_roles", nil, role)
}

// FindStaffRole returns the staff role for a hashed user ID, or
// (nil, nil) if the user has no role.
func (s *Store) FindStaffRole(ctx context.Context, userIDHash string) (*StaffRole, error) {
	row := s.q().QueryRowContext(ctx, `
		SELECT user_id_hash, public_tag, added_by, added_at
		FROM staff_roles WHERE user_id_hash = ?`, userIDHash)

	var r StaffRole
	if err := row.Scan(&r.UserIDHash, &r.PublicTag, &r.AddedBy, &r.AddedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: finding staff role %s: %w", userIDHash, err)
	}
	return &r, nil
}
