// Package store implements the persistence layer: typed
// upsert/query operations over channels/threads/posts with
// transactional guarantees, plus the generic config key-value table
// that the Cursor Store and other small singletons are built on.
package store

import "time"

// Channel mirrors the channels table.
type Channel struct {
	ID          int64
	Slug        string
	Name        string
	Description string
	Position    int
	CreatedAt   time.Time
}

// Thread mirrors the threads table. Tags is an ordered set of
// strings, stored as a JSON array.
type Thread struct {
	ID          int64
	ChannelID   int64
	Slug        string
	Title       string
	AuthorAlias string
	BodyHTML    string
	Tags        []string
	ReplyCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Post mirrors the posts table. ReplyToID and ReplyToAuthorAlias are
// both null together or set together.
type Post struct {
	ID                 int64
	ThreadID           int64
	AuthorAlias        string
	BodyHTML           string
	ReplyToID          *int64
	ReplyToAuthorAlias *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// StaffRole mirrors the staff_roles table.
type StaffRole struct {
	UserIDHash string
	PublicTag  string
	AddedBy    string
	AddedAt    time.Time
}

// AuditAction enumerates audit_log.action.
type AuditAction string

const (
	AuditInsert AuditAction = "INSERT"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// ModerationStatus enumerates moderation_queue.status.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// ModerationContentType enumerates moderation_queue.content_type.
type ModerationContentType string

const (
	ModerationThread ModerationContentType = "thread"
	ModerationPost   ModerationContentType = "post"
)

// ModerationEntry mirrors the moderation_queue table.
type ModerationEntry struct {
	ID          int64
	ContentType ModerationContentType
	ContentID   int64
	Status      ModerationStatus
	Reason      string
	FlaggedAt   time.Time
	ReviewedAt  *time.Time
	ReviewedBy  *string
}
