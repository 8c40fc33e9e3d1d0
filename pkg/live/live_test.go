package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lakpahana/discord-forum/pkg/platform"
	"github.com/lakpahana/discord-forum/pkg/store"
)

type fakeReconciler struct {
	posts       []int64
	starters    []string
	bodyUpdates []int64
	postErr     error
}

func (f *fakeReconciler) ReconcilePost(ctx context.Context, threadID int64, m platform.Message) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, threadID)
	return nil
}

func (f *fakeReconciler) ReconcileThreadStarter(ctx context.Context, thread platform.Thread, starter platform.Message) error {
	f.starters = append(f.starters, thread.ID)
	return nil
}

func (f *fakeReconciler) UpdateThreadBody(ctx context.Context, threadID int64, m platform.Message) error {
	f.bodyUpdates = append(f.bodyUpdates, threadID)
	return nil
}

type fakeThreads struct {
	threads     map[int64]store.Thread
	replyCounts map[int64]int
}

func newFakeThreads() *fakeThreads {
	return &fakeThreads{threads: map[int64]store.Thread{}, replyCounts: map[int64]int{}}
}

func (f *fakeThreads) FindThread(ctx context.Context, id int64) (*store.Thread, error) {
	if t, ok := f.threads[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeThreads) SetThreadReplyCount(ctx context.Context, threadID int64, n int) error {
	f.replyCounts[threadID] = n
	return nil
}

func (f *fakeThreads) DeleteThread(ctx context.Context, actor string, id int64) error {
	delete(f.threads, id)
	return nil
}

type fakePosts struct {
	posts map[int64]store.Post
}

func newFakePosts() *fakePosts { return &fakePosts{posts: map[int64]store.Post{}} }

func (f *fakePosts) FindPost(ctx context.Context, id int64) (*store.Post, error) {
	if p, ok := f.posts[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakePosts) CountPosts(ctx context.Context, threadID int64) (int, error) {
	n := 0
	for _, p := range f.posts {
		if p.ThreadID == threadID {
			n++
		}
	}
	return n, nil
}

func (f *fakePosts) DeletePost(ctx context.Context, actor string, id int64) (bool, error) {
	if _, ok := f.posts[id]; !ok {
		return false, nil
	}
	delete(f.posts, id)
	return true, nil
}

type fakeFetcher struct {
	starters map[string]platform.Message
	err      error
}

func (f *fakeFetcher) FetchStarterMessage(ctx context.Context, threadID string) (platform.Message, error) {
	if f.err != nil {
		return platform.Message{}, f.err
	}
	return f.starters[threadID], nil
}

func newHandler() (*Handler, *fakeReconciler, *fakeThreads, *fakePosts, *fakeFetcher) {
	rec := &fakeReconciler{}
	threads := newFakeThreads()
	posts := newFakePosts()
	fetcher := &fakeFetcher{starters: map[string]platform.Message{}}
	h := &Handler{
		Reconciler: rec,
		Threads:    threads,
		Posts:      posts,
		Client:     fetcher,
		Log:        zerolog.Nop(),
	}
	return h, rec, threads, posts, fetcher
}

func msg(id, threadID string) *platform.Message {
	return &platform.Message{ID: id, ThreadID: threadID, AuthorID: "42", Content: "hi", Timestamp: time.Now().UTC()}
}

func TestMessageCreateReconcilesPostAndRefreshesCount(t *testing.T) {
	h, rec, threads, posts, _ := newHandler()
	threads.threads[100] = store.Thread{ID: 100}
	posts.posts[200] = store.Post{ID: 200, ThreadID: 100}
	posts.posts[201] = store.Post{ID: 201, ThreadID: 100}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageCreate, Message: msg("201", "100")})
	require.NoError(t, err)
	require.Equal(t, []int64{100}, rec.posts)
	require.Equal(t, 2, threads.replyCounts[100])
}

func TestMessageCreateIgnoresUntrackedThread(t *testing.T) {
	h, rec, _, _, _ := newHandler()

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageCreate, Message: msg("201", "999")})
	require.NoError(t, err)
	require.Empty(t, rec.posts)
}

func TestMessageCreateIgnoresBots(t *testing.T) {
	h, rec, threads, _, _ := newHandler()
	threads.threads[100] = store.Thread{ID: 100}

	m := msg("201", "100")
	m.AuthorIsBot = true
	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageCreate, Message: m})
	require.NoError(t, err)
	require.Empty(t, rec.posts)
}

func TestMessageCreateIgnoresStarter(t *testing.T) {
	h, rec, threads, _, _ := newHandler()
	threads.threads[100] = store.Thread{ID: 100}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageCreate, Message: msg("100", "100")})
	require.NoError(t, err)
	require.Empty(t, rec.posts)
}

func TestMessageUpdateExistingPost(t *testing.T) {
	h, rec, _, posts, _ := newHandler()
	posts.posts[200] = store.Post{ID: 200, ThreadID: 100}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageUpdate, Message: msg("200", "100")})
	require.NoError(t, err)
	require.Equal(t, []int64{100}, rec.posts)
	require.Empty(t, rec.bodyUpdates)
}

func TestMessageUpdateStarterEditFallsThroughToThread(t *testing.T) {
	h, rec, _, _, _ := newHandler()

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageUpdate, Message: msg("100", "100")})
	require.NoError(t, err)
	require.Empty(t, rec.posts)
	require.Equal(t, []int64{100}, rec.bodyUpdates)
}

func TestMessageDeleteRecomputesReplyCount(t *testing.T) {
	h, _, threads, posts, _ := newHandler()
	threads.threads[100] = store.Thread{ID: 100}
	posts.posts[200] = store.Post{ID: 200, ThreadID: 100}
	posts.posts[201] = store.Post{ID: 201, ThreadID: 100}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageDelete, Message: &platform.Message{ID: "201", ThreadID: "100"}})
	require.NoError(t, err)
	require.NotContains(t, posts.posts, int64(201))
	require.Equal(t, 1, threads.replyCounts[100])
}

func TestMessageDeleteOfUnknownPostIsANoOp(t *testing.T) {
	h, _, threads, _, _ := newHandler()
	threads.threads[100] = store.Thread{ID: 100}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventMessageDelete, Message: &platform.Message{ID: "999", ThreadID: "100"}})
	require.NoError(t, err)
	require.Empty(t, threads.replyCounts)
}

func TestThreadCreateFetchesStarterAndReconciles(t *testing.T) {
	h, rec, _, _, fetcher := newHandler()
	fetcher.starters["100"] = platform.Message{ID: "100", ThreadID: "100", AuthorID: "42", Content: "first"}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventThreadCreate, Thread: &platform.Thread{ID: "100", ChannelID: "10", Title: "T"}})
	require.NoError(t, err)
	require.Equal(t, []string{"100"}, rec.starters)
}

func TestThreadCreateSkipsBotStarter(t *testing.T) {
	h, rec, _, _, fetcher := newHandler()
	fetcher.starters["100"] = platform.Message{ID: "100", AuthorIsBot: true}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventThreadCreate, Thread: &platform.Thread{ID: "100", ChannelID: "10"}})
	require.NoError(t, err)
	require.Empty(t, rec.starters)
}

func TestThreadCreateStarterFetchFailurePropagates(t *testing.T) {
	h, _, _, _, fetcher := newHandler()
	fetcher.err = errors.New("gateway hiccup")

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventThreadCreate, Thread: &platform.Thread{ID: "100"}})
	require.Error(t, err)
}

func TestThreadDeleteRemovesMirroredThread(t *testing.T) {
	h, _, threads, _, _ := newHandler()
	threads.threads[100] = store.Thread{ID: 100}

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventThreadDelete, Thread: &platform.Thread{ID: "100", ChannelID: "10"}})
	require.NoError(t, err)
	require.NotContains(t, threads.threads, int64(100))
}

func TestThreadDeleteOfUnknownThreadIsANoOp(t *testing.T) {
	h, _, threads, _, _ := newHandler()

	err := h.Dispatch(context.Background(), platform.Event{Kind: platform.EventThreadDelete, Thread: &platform.Thread{ID: "999"}})
	require.NoError(t, err)
	require.Empty(t, threads.threads)
}
