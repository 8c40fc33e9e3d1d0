package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to a real MySQL-compatible instance named by
// MYSQL_TEST_DSN and migrates it from scratch. These are integration
// tests, not unit tests: the store's SQL is MySQL dialect throughout
// (ON DUPLICATE KEY UPDATE, JSON columns, ENUMs) and has no portable
// in-memory substitute. Skipped when no DSN is configured.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set; skipping store integration test")
	}

	s, err := Open(dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Migrate())

	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertChannelIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := Channel{ID: 1, Slug: "general", Name: "General", Description: "d", Position: 0, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.UpsertChannel(ctx, c))
	require.NoError(t, s.UpsertChannel(ctx, c))

	got, err := s.FindChannel(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "general", got.Slug)
}

func TestThreadReplyCountLaw(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChannel(ctx, Channel{ID: 10, Slug: "c", Name: "C", CreatedAt: time.Now().UTC()}))
	require.NoError(t, s.UpsertThread(ctx, "sync", Thread{
		ID: 100, ChannelID: 10, Slug: "t", Title: "T", AuthorAlias: "aaaaaaaaaaaa",
		BodyHTML: "<p>hi</p>", Tags: []string{}, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.UpsertPost(ctx, "sync", Post{
			ID: 200 + i, ThreadID: 100, AuthorAlias: "bbbbbbbbbbbb",
			BodyHTML: "<p>reply</p>", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}))
	}

	count, err := s.CountPosts(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	require.NoError(t, s.SetThreadReplyCount(ctx, 100, count))
	thread, err := s.FindThread(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, 3, thread.ReplyCount)
}

func TestDeletePostSetsReferrerNull(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChannel(ctx, Channel{ID: 20, Slug: "c2", Name: "C2", CreatedAt: time.Now().UTC()}))
	require.NoError(t, s.UpsertThread(ctx, "sync", Thread{
		ID: 300, ChannelID: 20, Slug: "t2", Title: "T2", AuthorAlias: "aaaaaaaaaaaa",
		BodyHTML: "<p>hi</p>", Tags: []string{}, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	parentID := int64(400)
	require.NoError(t, s.UpsertPost(ctx, "sync", Post{
		ID: parentID, ThreadID: 300, AuthorAlias: "bbbbbbbbbbbb",
		BodyHTML: "<p>parent</p>", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))
	parentAlias := "bbbbbbbbbbbb"
	require.NoError(t, s.UpsertPost(ctx, "sync", Post{
		ID: 401, ThreadID: 300, AuthorAlias: "cccccccccccc", ReplyToID: &parentID, ReplyToAuthorAlias: &parentAlias,
		BodyHTML: "<p>child</p>", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	existed, err := s.DeletePost(ctx, "sync", parentID)
	require.NoError(t, err)
	require.True(t, existed)

	child, err := s.FindPost(ctx, 401)
	require.NoError(t, err)
	require.NotNil(t, child)
	require.Nil(t, child.ReplyToID)
}

func TestConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetConfig(ctx, "test_key", "test_value"))
	value, ok, err := s.GetConfig(ctx, "test_key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "test_value", value)
}

func TestDeleteThreadCascadesToPosts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChannel(ctx, Channel{ID: 30, Slug: "c3", Name: "C3", CreatedAt: time.Now().UTC()}))
	require.NoError(t, s.UpsertThread(ctx, "live", Thread{
		ID: 500, ChannelID: 30, Slug: "t3", Title: "T3", AuthorAlias: "aaaaaaaaaaaa",
		BodyHTML: "<p>hi</p>", Tags: []string{}, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.UpsertPost(ctx, "live", Post{
		ID: 501, ThreadID: 500, AuthorAlias: "bbbbbbbbbbbb",
		BodyHTML: "<p>reply</p>", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteThread(ctx, "live", 500))

	thread, err := s.FindThread(ctx, 500)
	require.NoError(t, err)
	require.Nil(t, thread)

	post, err := s.FindPost(ctx, 501)
	require.NoError(t, err)
	require.Nil(t, post)
}
