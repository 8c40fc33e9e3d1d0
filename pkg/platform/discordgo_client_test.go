package platform

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

func TestConvertMessageMapsReplyAndAttachments(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	src := &discordgo.Message{
		ID:        "200",
		ChannelID: "100",
		Content:   "hello",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "1", Bot: false},
		MessageReference: &discordgo.MessageReference{
			MessageID: "150",
		},
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn.example/a.png", Filename: "a.png"},
		},
	}

	got := convertMessage(src)

	require.Equal(t, "200", got.ID)
	require.Equal(t, "100", got.ThreadID)
	require.Equal(t, "1", got.AuthorID)
	require.False(t, got.AuthorIsBot)
	require.Equal(t, "150", got.ReplyToID)
	require.Equal(t, ts, got.Timestamp)
	require.Len(t, got.Attachments, 1)
	require.Equal(t, "a.png", got.Attachments[0].Filename)
}

func TestConvertMessageWithoutReferenceLeavesReplyToIDEmpty(t *testing.T) {
	src := &discordgo.Message{ID: "1", ChannelID: "2", Author: &discordgo.User{ID: "3"}}
	got := convertMessage(src)
	require.Empty(t, got.ReplyToID)
}

func TestConvertThreadMapsArchiveMetadataAndTags(t *testing.T) {
	archivedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &discordgo.Channel{
		ID:          "9",
		ParentID:    "5",
		Name:        "How do I X?",
		AppliedTags: []string{"tag-a", "tag-b"},
		ThreadMetadata: &discordgo.ThreadMetadata{
			Archived:         true,
			ArchiveTimestamp: archivedAt,
		},
	}

	got := convertThread(src)

	require.Equal(t, "9", got.ID)
	require.Equal(t, "5", got.ChannelID)
	require.True(t, got.Archived)
	require.Equal(t, archivedAt, got.ArchiveTimestamp)
	require.Equal(t, []string{"tag-a", "tag-b"}, got.Tags)
}
