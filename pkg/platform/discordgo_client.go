package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// pageSize is the message-pagination page size.
const pageSize = 100

// DiscordClient is the discordgo-backed Client and EventSource
// implementation. It is the only file in this module that imports
// discordgo directly.
type DiscordClient struct {
	session *discordgo.Session
}

// NewDiscordClient opens a session authenticated with token. Callers
// are responsible for calling Close when done.
func NewDiscordClient(token string) (*DiscordClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("platform: constructing discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("platform: opening discord session: %w", err)
	}
	return &DiscordClient{session: session}, nil
}

// Close releases the underlying gateway connection.
func (c *DiscordClient) Close() error {
	return c.session.Close()
}

func (c *DiscordClient) ListGuilds(ctx context.Context) ([]Guild, error) {
	guilds := make([]Guild, 0, len(c.session.State.Guilds))
	for _, g := range c.session.State.Guilds {
		guilds = append(guilds, Guild{ID: g.ID, Name: g.Name})
	}
	return guilds, nil
}

func (c *DiscordClient) ListForumChannels(ctx context.Context, guildID string) ([]Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("platform: listing channels for guild %s: %w", guildID, err)
	}

	var forums []Channel
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildForum {
			continue
		}
		forums = append(forums, Channel{
			ID:       ch.ID,
			GuildID:  ch.GuildID,
			Name:     ch.Name,
			Topic:    ch.Topic,
			Position: ch.Position,
		})
	}
	return forums, nil
}

func (c *DiscordClient) ListActiveThreads(ctx context.Context, channelID string) ([]Thread, error) {
	list, err := c.session.ThreadsActive(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("platform: listing active threads for channel %s: %w", channelID, err)
	}
	return convertThreads(list.Threads), nil
}

func (c *DiscordClient) ListArchivedThreads(ctx context.Context, channelID string, before *time.Time) ([]Thread, error) {
	list, err := c.session.ThreadsArchived(channelID, before, pageSize, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("platform: listing archived threads for channel %s: %w", channelID, err)
	}
	return convertThreads(list.Threads), nil
}

func (c *DiscordClient) ListMessages(ctx context.Context, threadID string, beforeID string) ([]Message, error) {
	messages, err := c.session.ChannelMessages(threadID, pageSize, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("platform: listing messages for thread %s: %w", threadID, err)
	}

	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, convertMessage(m))
	}
	return out, nil
}

func (c *DiscordClient) FetchStarterMessage(ctx context.Context, threadID string) (Message, error) {
	m, err := c.session.ChannelMessage(threadID, threadID, discordgo.WithContext(ctx))
	if err != nil {
		return Message{}, fmt.Errorf("platform: fetching starter message for thread %s: %w", threadID, err)
	}
	return convertMessage(m), nil
}

// Subscribe registers gateway handlers for every event kind the Live
// Event Handler dispatches on and blocks until ctx is canceled.
func (c *DiscordClient) Subscribe(ctx context.Context, handle func(Event)) error {
	remove := []func(){
		c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageCreate) {
			handle(Event{Kind: EventMessageCreate, Message: ptr(convertMessage(e.Message))})
		}),
		c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageUpdate) {
			handle(Event{Kind: EventMessageUpdate, Message: ptr(convertMessage(e.Message))})
		}),
		c.session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageDelete) {
			handle(Event{Kind: EventMessageDelete, ChannelID: e.ChannelID, Message: &Message{ID: e.ID, ThreadID: e.ChannelID}})
		}),
		c.session.AddHandler(func(s *discordgo.Session, e *discordgo.ThreadCreate) {
			handle(Event{Kind: EventThreadCreate, Thread: ptr(convertThread(e.Channel))})
		}),
		c.session.AddHandler(func(s *discordgo.Session, e *discordgo.ThreadUpdate) {
			handle(Event{Kind: EventThreadUpdate, Thread: ptr(convertThread(e.Channel))})
		}),
		c.session.AddHandler(func(s *discordgo.Session, e *discordgo.ThreadDelete) {
			handle(Event{Kind: EventThreadDelete, Thread: ptr(convertThread(e.Channel))})
		}),
	}

	<-ctx.Done()
	for _, r := range remove {
		r()
	}
	return ctx.Err()
}

func convertThreads(channels []*discordgo.Channel) []Thread {
	threads := make([]Thread, 0, len(channels))
	for _, ch := range channels {
		threads = append(threads, convertThread(ch))
	}
	return threads
}

func convertThread(ch *discordgo.Channel) Thread {
	t := Thread{
		ID:        ch.ID,
		ChannelID: ch.ParentID,
		Title:     ch.Name,
	}
	if ch.ThreadMetadata != nil {
		t.Archived = ch.ThreadMetadata.Archived
		t.ArchiveTimestamp = ch.ThreadMetadata.ArchiveTimestamp
	}
	for _, tagID := range ch.AppliedTags {
		t.Tags = append(t.Tags, tagID)
	}
	snowflakeTime, err := discordgo.SnowflakeTimestamp(ch.ID)
	if err == nil {
		t.CreatedAt = snowflakeTime
	}
	return t
}

func convertMessage(m *discordgo.Message) Message {
	out := Message{
		ID:          m.ID,
		ThreadID:    m.ChannelID,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		AuthorIsBot: m.Author != nil && m.Author.Bot,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	if m.MessageReference != nil {
		out.ReplyToID = m.MessageReference.MessageID
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, Attachment{URL: a.URL, Filename: a.Filename})
	}
	return out
}

func ptr[T any](v T) *T { return &v }
