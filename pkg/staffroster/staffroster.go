// Package staffroster loads the optional StaffRole bootstrap file
// named by STAFF_CSV_PATH: a two-column, headerless CSV of
// discord_user_id,tag pairs that seeds the staff_roles side-table.
package staffroster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lakpahana/discord-forum/internal/errkind"
	"github.com/lakpahana/discord-forum/pkg/store"
)

// RoleWriter is the narrow store surface staff-roster import needs.
type RoleWriter interface {
	UpsertStaffRole(ctx context.Context, actor string, role store.StaffRole) error
}

// Hasher maps a raw Discord user ID to its stable alias, matching the
// hashing every other identity reference in the store goes through.
type Hasher interface {
	Alias(userID string) string
}

// Import reads r as a discord_user_id,tag CSV with no header, trims
// whitespace on both columns, skips empty rows, and upserts a
// StaffRole per row keyed by the hashed user ID. Re-importing the same
// ID overwrites public_tag.
func Import(ctx context.Context, r io.Reader, roles RoleWriter, hasher Hasher, addedBy string) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	imported := 0
	now := time.Now().UTC()

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, errkind.Wrap(errkind.Configuration, fmt.Errorf("staffroster: reading CSV row: %w", err))
		}

		userID, tag, ok := parseRow(record)
		if !ok {
			continue
		}

		role := store.StaffRole{
			UserIDHash: hasher.Alias(userID),
			PublicTag:  tag,
			AddedBy:    addedBy,
			AddedAt:    now,
		}
		if err := roles.UpsertStaffRole(ctx, addedBy, role); err != nil {
			return imported, fmt.Errorf("staffroster: upserting role for %s: %w", userID, err)
		}
		imported++
	}

	return imported, nil
}

// parseRow extracts a (userID, tag) pair from a raw CSV record,
// trimming whitespace and rejecting rows that are empty or missing a
// column.
func parseRow(record []string) (userID, tag string, ok bool) {
	if len(record) == 0 {
		return "", "", false
	}
	userID = strings.TrimSpace(record[0])
	if userID == "" {
		return "", "", false
	}
	if len(record) < 2 {
		return "", "", false
	}
	tag = strings.TrimSpace(record[1])
	if tag == "" {
		return "", "", false
	}
	return userID, tag, true
}
