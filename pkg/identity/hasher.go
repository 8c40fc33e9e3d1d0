// Package identity implements the one-way source-user-ID -> alias
// mapping. The hash function is fixed at SHA-256; never swap it,
// or aliases stop lining up with historical rows.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AliasLength is the number of hex characters kept from the digest.
const AliasLength = 12

// Hasher maps source user IDs to stable 12-char aliases using a
// process-wide pepper. Pepper is loaded once at startup and treated as
// immutable; Hasher carries no other mutable state.
type Hasher struct {
	pepper []byte
}

// New constructs a Hasher from a 64-hex-char pepper (256 bits). It
// fails if the pepper is absent or malformed.
func New(pepperHex string) (*Hasher, error) {
	if len(pepperHex) != 64 {
		return nil, fmt.Errorf("identity: pepper must be 64 hex characters, got %d", len(pepperHex))
	}
	pepper, err := hex.DecodeString(pepperHex)
	if err != nil {
		return nil, fmt.Errorf("identity: pepper is not valid hex: %w", err)
	}
	return &Hasher{pepper: pepper}, nil
}

// Alias computes the 12-char alias for a source user ID. Deterministic
// for a fixed pepper: Alias(uid) == Alias(uid) across processes.
func (h *Hasher) Alias(userID string) string {
	sum := sha256.Sum256(append([]byte(userID), h.pepper...))
	return hex.EncodeToString(sum[:])[:AliasLength]
}

// AliasWithTag appends a staff public tag to the first 8 characters of
// the alias: "{alias[:8]}:{tag}".
func AliasWithTag(alias, tag string) string {
	prefix := alias
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + ":" + tag
}
