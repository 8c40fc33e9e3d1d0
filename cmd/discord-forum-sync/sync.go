package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lakpahana/discord-forum/internal/config"
	"github.com/lakpahana/discord-forum/internal/logging"
	forumsync "github.com/lakpahana/discord-forum/pkg/sync"
)

func newSyncCmd() *cobra.Command {
	var (
		guildID      string
		channelID    string
		threadID     string
		limit        int
		skipExisting bool
		token        string
		forceFull    bool
	)

	cmd := &cobra.Command{
		Use:          "sync",
		Short:        "Run one sync pass and exit",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if token != "" {
				cfg.DiscordToken = token
			}
			log := logging.New(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.orch.Run(ctx, forumsync.Options{
				ForceFull:    forceFull || cfg.ForceFullSync,
				MaxThreads:   limit,
				GuildID:      guildID,
				ChannelID:    channelID,
				ThreadID:     threadID,
				SkipExisting: skipExisting,
			})
			if err != nil {
				return err
			}

			log.Info().
				Str("mode", string(result.Mode)).
				Int("guilds", result.Guilds).
				Int("channels", result.Channels).
				Int("threads", result.Threads).
				Int("posts", result.Posts).
				Int("errors", result.Errors).
				Msg("sync finished")
			return nil
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "restrict the sync to one guild ID")
	cmd.Flags().StringVar(&channelID, "channel", "", "restrict the sync to one forum channel ID")
	cmd.Flags().StringVar(&threadID, "thread", "", "restrict the sync to one thread ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of threads processed in a full sync (0 = unbounded)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip threads already present in the store")
	cmd.Flags().StringVar(&token, "token", "", "platform token (overrides DISCORD_TOKEN)")
	cmd.Flags().BoolVar(&forceFull, "full", false, "force a full sync regardless of cursor state")

	return cmd
}
