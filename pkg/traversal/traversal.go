// Package traversal walks
// guilds -> forum channels -> threads -> messages against a
// platform.Client, yielding each thread's messages in
// source-chronological order for the Reconciler to normalize.
package traversal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lakpahana/discord-forum/internal/errkind"
	"github.com/lakpahana/discord-forum/pkg/platform"
)

// maxWorkers bounds the number of threads reconciled concurrently:
// parallelism must not cross a single thread's own message stream,
// but independent threads may run in parallel up to this cap.
const maxWorkers = 4

// Mode selects full or delta traversal.
type Mode string

const (
	ModeFull  Mode = "full"
	ModeDelta Mode = "delta"
)

// pageSleep is the cooperative inter-page rate-limit delay.
const pageSleep = 100 * time.Millisecond

// Options parameterizes a single traversal run.
type Options struct {
	Mode Mode
	// Since is the delta watermark; ignored in full mode.
	Since time.Time
	// MaxThreads bounds the number of threads visited in full mode.
	// Zero means unbounded.
	MaxThreads int
	// GuildID, ChannelID, and ThreadID narrow the walk to a single
	// guild, channel, or thread when non-empty, for the CLI's scope
	// flags. ThreadID implies its channel still has to be
	// discovered, so the walk runs normally and filters at each level.
	GuildID   string
	ChannelID string
	ThreadID  string
	// SkipThread, when non-nil, is consulted before a thread's
	// messages are paged; returning true drops the thread. Backs the
	// CLI's --skip-existing flag.
	SkipThread func(ctx context.Context, t platform.Thread) bool
}

// Batch is everything the Reconciler needs to reconcile one thread:
// the thread itself plus its full message list, oldest first.
type Batch struct {
	Channel  platform.Channel
	Thread   platform.Thread
	Messages []platform.Message
}

// Stats aggregates the counters the sync orchestrator reports.
type Stats struct {
	Guilds   int
	Channels int
	Threads  int
	Posts    int
	Errors   int
}

// Handler is invoked once per thread with its full message batch. A
// returned error is treated as a per-entity failure: it increments
// Stats.Errors and the traversal continues with the next thread.
type Handler func(ctx context.Context, batch Batch) error

// Engine drives a platform.Client through the guild walk.
type Engine struct {
	client platform.Client
	sleep  time.Duration
	log    zerolog.Logger
}

// New constructs an Engine. sleep overrides the inter-page delay for
// tests; pass 0 to use the default.
func New(client platform.Client, sleep time.Duration, log zerolog.Logger) *Engine {
	if sleep == 0 {
		sleep = pageSleep
	}
	return &Engine{client: client, sleep: sleep, log: log}
}

// Run walks every guild the client reports, invoking handle once per
// thread. Message fetching stays sequential per thread (pagination
// order matters and shares the rate-limit sleep), but reconciling
// distinct threads is dispatched to a bounded worker pool (≤4) so
// that sanitization, image processing, and store writes for
// one thread don't stall the next thread's page fetches.
//
// Transport failures below the guild listing are isolated to the
// guild, channel, or thread they hit: logged, counted in
// Stats.Errors, and the walk continues elsewhere. Only a failure to
// list guilds at all (connectivity, auth) aborts Run.
//
// It respects ctx cancellation at every page boundary: the in-flight
// page completes, then traversal stops without error (the caller's
// cursor is therefore not advanced for a canceled run — that decision
// lives in the orchestrator, not here).
func (e *Engine) Run(ctx context.Context, opts Options, handle Handler) (Stats, error) {
	var (
		mu    sync.Mutex
		stats Stats
	)

	guilds, err := e.client.ListGuilds(ctx)
	if err != nil {
		return stats, errkind.Wrap(errkind.Transient, fmt.Errorf("traversal: listing guilds: %w", err))
	}
	stats.Guilds = len(guilds)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxWorkers)

	threadsVisited := 0
	for _, guild := range guilds {
		if ctx.Err() != nil {
			break
		}
		if opts.GuildID != "" && guild.ID != opts.GuildID {
			continue
		}

		channels, err := e.client.ListForumChannels(ctx, guild.ID)
		if err != nil {
			// Transient: skip this guild and keep walking the rest.
			e.log.Warn().Err(err).Str("guild_id", guild.ID).Msg("traversal: listing channels failed; skipping guild")
			mu.Lock()
			stats.Errors++
			mu.Unlock()
			continue
		}
		mu.Lock()
		stats.Channels += len(channels)
		mu.Unlock()

		for _, channel := range channels {
			if ctx.Err() != nil {
				break
			}
			if opts.ChannelID != "" && channel.ID != opts.ChannelID {
				continue
			}

			threads, err := e.listThreads(ctx, channel, opts)
			if err != nil {
				// Rate limits and other transport failures abort only
				// this channel; the walk continues elsewhere.
				e.log.Warn().Err(err).Str("channel_id", channel.ID).Msg("traversal: listing threads failed; skipping channel")
				mu.Lock()
				stats.Errors++
				mu.Unlock()
				continue
			}

			for _, thread := range threads {
				if ctx.Err() != nil {
					break
				}
				if opts.ThreadID != "" && thread.ID != opts.ThreadID {
					continue
				}
				if opts.Mode == ModeFull && opts.MaxThreads > 0 && threadsVisited >= opts.MaxThreads {
					break
				}
				if opts.SkipThread != nil && opts.SkipThread(ctx, thread) {
					continue
				}
				threadsVisited++

				messages, err := e.listMessages(ctx, thread.ID, opts)
				if err != nil {
					e.log.Warn().Err(err).Str("thread_id", thread.ID).Msg("traversal: listing messages failed; skipping thread")
					mu.Lock()
					stats.Errors++
					mu.Unlock()
					continue
				}

				channel, thread, messages := channel, thread, messages
				eg.Go(func() error {
					batch := Batch{Channel: channel, Thread: thread, Messages: messages}
					err := handle(egCtx, batch)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						stats.Errors++
						return nil
					}
					stats.Threads++
					stats.Posts += len(messages)
					return nil
				})
			}
		}
	}

	_ = eg.Wait()
	return stats, nil
}

// listThreads fetches active then archived threads for a channel,
// unions them by ID (archived entries win on collision, since they
// are fetched second), and applies the mode's filter.
func (e *Engine) listThreads(ctx context.Context, channel platform.Channel, opts Options) ([]platform.Thread, error) {
	active, err := e.client.ListActiveThreads(ctx, channel.ID)
	if err != nil {
		return nil, errkind.Wrap(errkind.Transient, fmt.Errorf("traversal: listing active threads for channel %s: %w", channel.ID, err))
	}

	byID := make(map[string]platform.Thread, len(active))
	for _, t := range active {
		byID[t.ID] = t
	}

	archived, err := e.fetchArchivedThreads(ctx, channel)
	if err != nil {
		return nil, err
	}
	for _, t := range archived {
		byID[t.ID] = t
	}

	var threads []platform.Thread
	for _, t := range byID {
		if e.includeThread(t, opts) {
			threads = append(threads, t)
		}
	}
	return threads, nil
}

// fetchArchivedThreads pages backwards through a channel's public
// archived threads until an empty page, in both modes; it does not
// stop early at the delta cutoff. Delta filtering happens afterwards,
// in includeThread.
func (e *Engine) fetchArchivedThreads(ctx context.Context, channel platform.Channel) ([]platform.Thread, error) {
	var all []platform.Thread
	var before *time.Time

	for {
		if ctx.Err() != nil {
			return all, nil
		}

		page, err := e.client.ListArchivedThreads(ctx, channel.ID, before)
		if err != nil {
			return nil, errkind.Wrap(errkind.Transient, fmt.Errorf("traversal: listing archived threads for channel %s: %w", channel.ID, err))
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		oldest := page[len(page)-1].ArchiveTimestamp
		before = &oldest

		time.Sleep(e.sleep)
	}

	return all, nil
}

func (e *Engine) includeThread(t platform.Thread, opts Options) bool {
	if opts.Mode == ModeFull {
		return true
	}
	return t.CreatedAt.After(opts.Since) || t.ArchiveTimestamp.After(opts.Since)
}

// listMessages pages a thread's messages 100 at a time, walking
// backwards via before=<last_seen_id> until an empty page (or, in
// delta mode, until a page's latest message is at or before the
// cutoff), then returns them oldest-first.
func (e *Engine) listMessages(ctx context.Context, threadID string, opts Options) ([]platform.Message, error) {
	var pages [][]platform.Message
	beforeID := ""

	for {
		if ctx.Err() != nil {
			break
		}

		page, err := e.client.ListMessages(ctx, threadID, beforeID)
		if err != nil {
			return nil, errkind.Wrap(errkind.PerEntity, fmt.Errorf("traversal: listing messages for thread %s: %w", threadID, err))
		}
		if len(page) == 0 {
			break
		}

		pages = append(pages, page)

		// Pages arrive newest-first; the last element is the oldest in
		// the page and becomes the next page's cursor.
		oldest := page[len(page)-1]
		beforeID = oldest.ID

		if opts.Mode == ModeDelta {
			newest := page[0]
			if !newest.Timestamp.After(opts.Since) {
				break
			}
		}

		time.Sleep(e.sleep)
	}

	return flattenAscending(pages), nil
}

// flattenAscending concatenates newest-first pages (each itself
// newest-first) into a single oldest-first slice.
func flattenAscending(pages [][]platform.Message) []platform.Message {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	out := make([]platform.Message, 0, total)
	for i := len(pages) - 1; i >= 0; i-- {
		page := pages[i]
		for j := len(page) - 1; j >= 0; j-- {
			out = append(out, page[j])
		}
	}
	return out
}
