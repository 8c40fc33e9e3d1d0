// Package reconcile turns raw
// platform threads and messages into normalized store writes,
// including the two-pass deferred-reference repair that resolves
// within-thread out-of-order replies without a topological sort.
package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lakpahana/discord-forum/pkg/identity"
	"github.com/lakpahana/discord-forum/pkg/media"
	"github.com/lakpahana/discord-forum/pkg/platform"
	"github.com/lakpahana/discord-forum/pkg/sanitize"
	"github.com/lakpahana/discord-forum/pkg/store"
)

// Hasher maps a raw source user ID to its stable alias.
type Hasher interface {
	Alias(userID string) string
}

// Sanitizer normalizes free-form source text.
type Sanitizer interface {
	Sanitize(input string) sanitize.Result
}

// MediaProcessor runs a single attachment through the image pipeline.
type MediaProcessor interface {
	ProcessAttachment(ctx context.Context, url, filename string) (media.Result, error)
}

// StaffStore resolves optional staff labels for an identity hash.
type StaffStore interface {
	FindStaffRole(ctx context.Context, userIDHash string) (*store.StaffRole, error)
}

// ChannelStore is the channel-facing slice of the Store Gateway the
// Reconciler needs.
type ChannelStore interface {
	UpsertChannel(ctx context.Context, c store.Channel) error
}

// ThreadStore is the thread-facing slice of the Store Gateway the
// Reconciler needs.
type ThreadStore interface {
	UpsertThreadWithReplyCount(ctx context.Context, actor string, t store.Thread, replyCount int) error
	FindThread(ctx context.Context, id int64) (*store.Thread, error)
	SetThreadReplyCount(ctx context.Context, threadID int64, n int) error
}

// PostStore is the post-facing slice of the Store Gateway the
// Reconciler needs.
type PostStore interface {
	UpsertPost(ctx context.Context, actor string, p store.Post) error
	FindPost(ctx context.Context, id int64) (*store.Post, error)
	SetPostReplyTo(ctx context.Context, actor string, postID, replyToID int64, replyToAuthorAlias string) error
	CountPosts(ctx context.Context, threadID int64) (int, error)
	DeletePost(ctx context.Context, actor string, id int64) (bool, error)
}

// ModerationFlagger receives content the sanitizer judged sensitive.
// It is optional — a nil Flagger disables auto-flagging.
type ModerationFlagger interface {
	FlagForModeration(ctx context.Context, entry store.ModerationEntry) (int64, error)
}

// Actor names the writer credited in the audit log for every write
// this package makes.
const Actor = "sync"

// Reconciler is wired over the narrow interfaces above so it can be
// exercised against fakes without a live database or platform.
type Reconciler struct {
	Hasher     Hasher
	Sanitizer  Sanitizer
	Staff      StaffStore
	Channels   ChannelStore
	Threads    ThreadStore
	Posts      PostStore
	Media      MediaProcessor
	Moderation ModerationFlagger
	Log        zerolog.Logger
}

// ReconcileThread runs thread-starter reconciliation followed by post
// reconciliation for every reply, then deferred-reference repair and
// reply-count maintenance. messages must be in
// source-chronological ascending order, as traversal.Engine produces
// them. A returned error means the orchestrator should count this
// thread as a per-entity failure and move on.
func (r *Reconciler) ReconcileThread(ctx context.Context, channel platform.Channel, thread platform.Thread, messages []platform.Message) error {
	channelID, err := parseID(channel.ID)
	if err != nil {
		return fmt.Errorf("reconcile: parsing channel id %q: %w", channel.ID, err)
	}
	threadID, err := parseID(thread.ID)
	if err != nil {
		return fmt.Errorf("reconcile: parsing thread id %q: %w", thread.ID, err)
	}

	if r.Channels != nil {
		if err := r.Channels.UpsertChannel(ctx, store.Channel{
			ID:          channelID,
			Slug:        Slugify(channel.Name),
			Name:        channel.Name,
			Description: channel.Topic,
			Position:    channel.Position,
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("reconcile: upserting channel %d: %w", channelID, err)
		}
	}

	starter, replies := splitStarter(thread.ID, messages)
	if starter == nil {
		return fmt.Errorf("reconcile: thread %s has no starter message in its message list", thread.ID)
	}
	// Bot filtering applies to the starter the same as to replies: a
	// bot-created thread is never mirrored, and skipping it here also
	// keeps its replies out (they would have no thread row to hang on).
	if starter.AuthorIsBot {
		r.Log.Debug().Str("thread_id", thread.ID).Msg("reconcile: skipping bot-authored thread")
		return nil
	}

	if err := r.reconcileThreadStarter(ctx, channelID, threadID, thread, *starter); err != nil {
		return fmt.Errorf("reconcile: thread starter %s: %w", thread.ID, err)
	}

	sourceRefs := make(map[int64]int64, len(replies))
	for _, m := range replies {
		if m.AuthorIsBot {
			continue
		}
		postID, err := parseID(m.ID)
		if err != nil {
			r.Log.Warn().Err(err).Str("message_id", m.ID).Msg("reconcile: skipping message with unparseable id")
			continue
		}

		if err := r.ReconcilePost(ctx, threadID, m); err != nil {
			r.Log.Warn().Err(err).Str("message_id", m.ID).Msg("reconcile: post reconciliation failed")
			continue
		}
		if m.ReplyToID != "" {
			if refID, err := parseID(m.ReplyToID); err == nil {
				sourceRefs[postID] = refID
			}
		}
	}

	if err := r.repairDeferredReferences(ctx, sourceRefs); err != nil {
		return fmt.Errorf("reconcile: deferred-reference repair for thread %s: %w", thread.ID, err)
	}

	// The starter lives on the thread row, not in posts, so the post
	// count already excludes it and IS the reply count.
	count, err := r.Posts.CountPosts(ctx, threadID)
	if err != nil {
		return fmt.Errorf("reconcile: counting posts for thread %d: %w", threadID, err)
	}
	if err := r.Threads.SetThreadReplyCount(ctx, threadID, count); err != nil {
		return fmt.Errorf("reconcile: setting reply_count for thread %d: %w", threadID, err)
	}

	return nil
}

// splitStarter pulls the message whose ID equals the thread's ID (the
// platform's own starter-message convention) out of messages, leaving
// the rest as replies in their original order.
func splitStarter(threadID string, messages []platform.Message) (*platform.Message, []platform.Message) {
	for i, m := range messages {
		if m.ID == threadID {
			starter := m
			replies := make([]platform.Message, 0, len(messages)-1)
			replies = append(replies, messages[:i]...)
			replies = append(replies, messages[i+1:]...)
			return &starter, replies
		}
	}
	if len(messages) == 0 {
		return nil, nil
	}
	starter := messages[0]
	return &starter, messages[1:]
}

// ReconcileThreadStarter reconciles just a thread's starter message:
// the thread-create/update path the live event handler shares with
// the full ReconcileThread walk. It preserves an existing row's
// reply_count, which only reply reconciliation may change.
func (r *Reconciler) ReconcileThreadStarter(ctx context.Context, thread platform.Thread, starter platform.Message) error {
	channelID, err := parseID(thread.ChannelID)
	if err != nil {
		return fmt.Errorf("reconcile: parsing channel id %q: %w", thread.ChannelID, err)
	}
	threadID, err := parseID(thread.ID)
	if err != nil {
		return fmt.Errorf("reconcile: parsing thread id %q: %w", thread.ID, err)
	}
	return r.reconcileThreadStarter(ctx, channelID, threadID, thread, starter)
}

func (r *Reconciler) reconcileThreadStarter(ctx context.Context, channelID, threadID int64, thread platform.Thread, starter platform.Message) error {
	alias, err := r.authorAlias(ctx, starter.AuthorID)
	if err != nil {
		return err
	}

	result := r.Sanitizer.Sanitize(starter.Content)
	body := r.embedImages(ctx, result.HTML, starter.Attachments)
	r.maybeFlag(ctx, store.ModerationThread, threadID, result)

	replyCount := 0
	if existing, err := r.Threads.FindThread(ctx, threadID); err != nil {
		return fmt.Errorf("looking up thread %d: %w", threadID, err)
	} else if existing != nil {
		replyCount = existing.ReplyCount
	}

	t := store.Thread{
		ID:          threadID,
		ChannelID:   channelID,
		Slug:        Slugify(thread.Title),
		Title:       thread.Title,
		AuthorAlias: alias,
		BodyHTML:    body,
		Tags:        append([]string{}, thread.Tags...),
		CreatedAt:   starter.Timestamp,
		UpdatedAt:   starter.Timestamp,
	}

	return r.Threads.UpsertThreadWithReplyCount(ctx, Actor, t, replyCount)
}

// ReconcilePost normalizes and upserts one reply. It is exported for
// the live event handler, which applies the same normalization to
// pushed message_create/update events.
func (r *Reconciler) ReconcilePost(ctx context.Context, threadID int64, m platform.Message) error {
	postID, err := parseID(m.ID)
	if err != nil {
		return fmt.Errorf("parsing post id %q: %w", m.ID, err)
	}

	alias, err := r.authorAlias(ctx, m.AuthorID)
	if err != nil {
		return err
	}

	var replyToID *int64
	var replyToAlias *string
	if m.ReplyToID != "" {
		refID, err := parseID(m.ReplyToID)
		if err == nil {
			if referent, err := r.Posts.FindPost(ctx, refID); err == nil && referent != nil {
				replyToID = &refID
				replyToAlias = &referent.AuthorAlias
			}
			// referent not found yet: both fields stay nil, repaired later.
		}
	}

	result := r.Sanitizer.Sanitize(m.Content)
	body := r.embedImages(ctx, result.HTML, m.Attachments)
	r.maybeFlag(ctx, store.ModerationPost, postID, result)

	p := store.Post{
		ID:                 postID,
		ThreadID:           threadID,
		AuthorAlias:        alias,
		BodyHTML:           body,
		ReplyToID:          replyToID,
		ReplyToAuthorAlias: replyToAlias,
		CreatedAt:          m.Timestamp,
		UpdatedAt:          m.Timestamp,
	}
	return r.Posts.UpsertPost(ctx, Actor, p)
}

// UpdateThreadBody re-sanitizes an edited starter message into an
// existing thread's body_html, for message updates whose ID matches a
// thread rather than a post. A missing thread is not an error: the
// edit raced a delete.
func (r *Reconciler) UpdateThreadBody(ctx context.Context, threadID int64, m platform.Message) error {
	existing, err := r.Threads.FindThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("reconcile: looking up thread %d: %w", threadID, err)
	}
	if existing == nil {
		return nil
	}

	result := r.Sanitizer.Sanitize(m.Content)
	r.maybeFlag(ctx, store.ModerationThread, threadID, result)

	t := *existing
	t.BodyHTML = r.embedImages(ctx, result.HTML, m.Attachments)
	t.UpdatedAt = m.Timestamp
	return r.Threads.UpsertThreadWithReplyCount(ctx, Actor, t, existing.ReplyCount)
}

// repairDeferredReferences re-checks every post whose source carried
// a reply reference, and backfills the stored row if the referent has
// since appeared.
func (r *Reconciler) repairDeferredReferences(ctx context.Context, sourceRefs map[int64]int64) error {
	for postID, refID := range sourceRefs {
		current, err := r.Posts.FindPost(ctx, postID)
		if err != nil {
			return err
		}
		if current == nil || current.ReplyToID != nil {
			continue
		}

		referent, err := r.Posts.FindPost(ctx, refID)
		if err != nil {
			return err
		}
		if referent == nil {
			continue
		}

		if err := r.Posts.SetPostReplyTo(ctx, Actor, postID, refID, referent.AuthorAlias); err != nil {
			return err
		}
	}
	return nil
}

// authorAlias computes the hashed alias and, if a StaffRole exists
// for the raw user ID, appends the public tag.
func (r *Reconciler) authorAlias(ctx context.Context, userID string) (string, error) {
	alias := r.Hasher.Alias(userID)

	role, err := r.Staff.FindStaffRole(ctx, alias)
	if err != nil {
		return "", fmt.Errorf("looking up staff role: %w", err)
	}
	if role == nil {
		return alias, nil
	}
	return identity.AliasWithTag(alias, role.PublicTag), nil
}

// embedImages runs every attachment through the Media Pipeline and
// appends successful results as <img> tags. A per-attachment failure
// is logged and the image is skipped; it never
// fails the enclosing post.
func (r *Reconciler) embedImages(ctx context.Context, bodyHTML string, attachments []platform.Attachment) string {
	if r.Media == nil || len(attachments) == 0 {
		return bodyHTML
	}

	var tags []string
	for _, a := range attachments {
		result, err := r.Media.ProcessAttachment(ctx, a.URL, a.Filename)
		if err != nil {
			r.Log.Warn().Err(err).Str("url", a.URL).Msg("reconcile: skipping attachment")
			continue
		}
		tags = append(tags, fmt.Sprintf(`<img src="%s" width="%d" height="%d">`, result.URL, result.Width, result.Height))
	}
	if len(tags) == 0 {
		return bodyHTML
	}
	return bodyHTML + "<br>" + strings.Join(tags, "<br>")
}

// maybeFlag submits content for moderation when the sanitizer
// reported redacted PII or a stripped script.
func (r *Reconciler) maybeFlag(ctx context.Context, contentType store.ModerationContentType, contentID int64, result sanitize.Result) {
	if r.Moderation == nil || (!result.RedactedPII && !result.HadScript) {
		return
	}

	reason := "script stripped"
	if result.RedactedPII {
		reason = "PII redacted"
	}

	if _, err := r.Moderation.FlagForModeration(ctx, store.ModerationEntry{
		ContentType: contentType,
		ContentID:   contentID,
		Reason:      reason,
	}); err != nil {
		r.Log.Warn().Err(err).Int64("content_id", contentID).Msg("reconcile: failed to flag content for moderation")
	}
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
