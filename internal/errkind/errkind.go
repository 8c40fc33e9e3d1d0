// Package errkind classifies errors along the taxonomy the sync engine
// uses to decide whether to abort, retry, skip, or exit non-zero.
package errkind

import "errors"

// Kind labels an error with the handling policy it requires.
type Kind string

const (
	// Configuration errors are fatal at startup.
	Configuration Kind = "configuration"
	// Transient covers retryable transport failures (5xx, reset, 429).
	Transient Kind = "transient"
	// PerEntity covers a single message/attachment failing to process.
	PerEntity Kind = "per_entity"
	// Integrity covers FK-shaped races resolved by deferred repair.
	Integrity Kind = "integrity"
	// Catastrophic bubbles to the caller without advancing the cursor.
	Catastrophic Kind = "catastrophic"
	// UserInput covers bad CLI flags or invalid scope arguments.
	UserInput Kind = "user_input"
)

// classified wraps an error with a Kind, preserving Unwrap for errors.Is/As.
type classified struct {
	kind Kind
	err  error
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }

// Wrap annotates err with kind. A nil err returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &classified{kind: kind, err: err}
}

// Of reports the Kind attached to err, or "" if err was never classified.
func Of(err error) Kind {
	var c *classified
	if errors.As(err, &c) {
		return c.kind
	}
	return ""
}

// Is reports whether err (or any error it wraps) carries kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
