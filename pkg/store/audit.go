package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// isNoRows reports whether err is sql.ErrNoRows, the sentinel every
// typed find-by-id operation translates into a nil, nil return.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// appendAudit appends one row to audit_log with whatever old and new
// values the caller passes. Deletes pass the removed row as old_val;
// upserts and the reply-reference repair pass only new_val, so their
// old_val is NULL. It runs on the same querier
// (pool or transaction) as the mutation it records, so a rollback
// undoes both together.
func (s *Store) appendAudit(ctx context.Context, q querier, actor string, action AuditAction, table string, oldVal, newVal any) error {
	oldJSON, err := marshalNullable(oldVal)
	if err != nil {
		return fmt.Errorf("store: marshaling audit old_val: %w", err)
	}
	newJSON, err := marshalNullable(newVal)
	if err != nil {
		return fmt.Errorf("store: marshaling audit new_val: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_log (actor, action, table_name, old_val, new_val, ts)
		VALUES (?, ?, ?, ?, ?, UTC_TIMESTAMP(3))`,
		actor, string(action), table, oldJSON, newJSON,
	)
	if err != nil {
		return fmt.Errorf("store: appending audit log: %w", err)
	}
	return nil
}

func marshalNullable(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
