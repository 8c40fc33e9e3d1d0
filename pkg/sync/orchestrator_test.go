package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lakpahana/discord-forum/internal/errkind"
	"github.com/lakpahana/discord-forum/pkg/cursor"
	"github.com/lakpahana/discord-forum/pkg/platform"
	"github.com/lakpahana/discord-forum/pkg/store"
	"github.com/lakpahana/discord-forum/pkg/traversal"
)

type fakeCursor struct {
	state  cursor.State
	setTo  *time.Time
	getErr error
	setErr error
}

func (f *fakeCursor) Get(ctx context.Context) (cursor.State, error) {
	return f.state, f.getErr
}

func (f *fakeCursor) Set(ctx context.Context, ts time.Time) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setTo = &ts
	return nil
}

type fakeTraverser struct {
	gotOpts traversal.Options
	stats   traversal.Stats
	err     error
	// cancel, when set, is called during Run to simulate a signal
	// arriving mid-traversal.
	cancel context.CancelFunc
}

func (f *fakeTraverser) Run(ctx context.Context, opts traversal.Options, handle traversal.Handler) (traversal.Stats, error) {
	f.gotOpts = opts
	if f.cancel != nil {
		f.cancel()
	}
	return f.stats, f.err
}

type fakeReconciler struct{ calls int }

func (f *fakeReconciler) ReconcileThread(ctx context.Context, channel platform.Channel, thread platform.Thread, messages []platform.Message) error {
	f.calls++
	return nil
}

type fakeThreadFinder struct{ existing map[int64]bool }

func (f *fakeThreadFinder) FindThread(ctx context.Context, id int64) (*store.Thread, error) {
	if f.existing[id] {
		return &store.Thread{ID: id}, nil
	}
	return nil, nil
}

func newOrchestrator(c *fakeCursor, t *fakeTraverser) *Orchestrator {
	return &Orchestrator{
		Cursor:     c,
		Traversal:  t,
		Reconciler: &fakeReconciler{},
		Log:        zerolog.Nop(),
	}
}

func TestFirstRunSelectsFullMode(t *testing.T) {
	c := &fakeCursor{state: cursor.State{IsFirstRun: true}}
	tr := &fakeTraverser{}
	o := newOrchestrator(c, tr)

	result, err := o.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, traversal.ModeFull, result.Mode)
	require.Equal(t, traversal.ModeFull, tr.gotOpts.Mode)
}

func TestSubsequentRunSelectsDeltaWithSince(t *testing.T) {
	since := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &fakeCursor{state: cursor.State{LastSync: since, IsFirstRun: false}}
	tr := &fakeTraverser{}
	o := newOrchestrator(c, tr)

	result, err := o.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, traversal.ModeDelta, result.Mode)
	require.Equal(t, since, tr.gotOpts.Since)
}

func TestForceFullOverridesDelta(t *testing.T) {
	c := &fakeCursor{state: cursor.State{LastSync: time.Now(), IsFirstRun: false}}
	tr := &fakeTraverser{}
	o := newOrchestrator(c, tr)

	result, err := o.Run(context.Background(), Options{ForceFull: true})
	require.NoError(t, err)
	require.Equal(t, traversal.ModeFull, result.Mode)
}

func TestCursorAdvancesToStartOfRun(t *testing.T) {
	old := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := &fakeCursor{state: cursor.State{LastSync: old}}
	tr := &fakeTraverser{}
	o := newOrchestrator(c, tr)

	before := time.Now().UTC()
	_, err := o.Run(context.Background(), Options{})
	after := time.Now().UTC()

	require.NoError(t, err)
	require.NotNil(t, c.setTo)
	// Monotonic: new cursor is at or after the old one, and inside the
	// run's own window — i.e. the timestamp captured before traversal.
	require.False(t, c.setTo.Before(old))
	require.False(t, c.setTo.Before(before))
	require.False(t, c.setTo.After(after))
}

func TestTraversalFailureLeavesCursorUntouched(t *testing.T) {
	c := &fakeCursor{state: cursor.State{IsFirstRun: true}}
	tr := &fakeTraverser{err: errors.New("auth rejected")}
	o := newOrchestrator(c, tr)

	_, err := o.Run(context.Background(), Options{})
	require.Error(t, err)
	require.Equal(t, errkind.Catastrophic, errkind.Of(err))
	require.Nil(t, c.setTo)
}

func TestCursorLoadFailureAborts(t *testing.T) {
	c := &fakeCursor{getErr: errors.New("pool exhausted")}
	o := newOrchestrator(c, &fakeTraverser{})

	_, err := o.Run(context.Background(), Options{})
	require.Error(t, err)
	require.Equal(t, errkind.Catastrophic, errkind.Of(err))
}

func TestCancellationLeavesCursorUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &fakeCursor{state: cursor.State{IsFirstRun: true}}
	tr := &fakeTraverser{cancel: cancel, stats: traversal.Stats{Threads: 3, Posts: 10}}
	o := newOrchestrator(c, tr)

	result, err := o.Run(ctx, Options{})
	require.NoError(t, err)
	require.Nil(t, c.setTo)
	require.Equal(t, 3, result.Threads)
}

func TestScopeOptionsReachTraversal(t *testing.T) {
	c := &fakeCursor{state: cursor.State{IsFirstRun: true}}
	tr := &fakeTraverser{}
	o := newOrchestrator(c, tr)

	_, err := o.Run(context.Background(), Options{
		GuildID:    "1",
		ChannelID:  "2",
		ThreadID:   "3",
		MaxThreads: 7,
	})
	require.NoError(t, err)
	require.Equal(t, "1", tr.gotOpts.GuildID)
	require.Equal(t, "2", tr.gotOpts.ChannelID)
	require.Equal(t, "3", tr.gotOpts.ThreadID)
	require.Equal(t, 7, tr.gotOpts.MaxThreads)
}

func TestSkipExistingSkipsStoredThreads(t *testing.T) {
	c := &fakeCursor{state: cursor.State{IsFirstRun: true}}
	tr := &fakeTraverser{}
	o := newOrchestrator(c, tr)
	o.Threads = &fakeThreadFinder{existing: map[int64]bool{100: true}}

	_, err := o.Run(context.Background(), Options{SkipExisting: true})
	require.NoError(t, err)
	require.NotNil(t, tr.gotOpts.SkipThread)

	ctx := context.Background()
	require.True(t, tr.gotOpts.SkipThread(ctx, platform.Thread{ID: "100"}))
	require.False(t, tr.gotOpts.SkipThread(ctx, platform.Thread{ID: "101"}))
}

func TestSkipExistingDisabledLeavesHookNil(t *testing.T) {
	c := &fakeCursor{state: cursor.State{IsFirstRun: true}}
	tr := &fakeTraverser{}
	o := newOrchestrator(c, tr)

	_, err := o.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Nil(t, tr.gotOpts.SkipThread)
}
