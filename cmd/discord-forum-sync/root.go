package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lakpahana/discord-forum/internal/config"
	"github.com/lakpahana/discord-forum/internal/logging"
	forumsync "github.com/lakpahana/discord-forum/pkg/sync"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "discord-forum-sync",
		Short:        "Mirror Discord forum channels into a relational store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}
	root.AddCommand(newSyncCmd())
	return root
}

// runDaemon is the long-running entrypoint: optional startup sync,
// then (in watch mode) the live event loop plus cron-scheduled delta
// syncs until SIGINT/SIGTERM.
func runDaemon(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.EnableHistoricalSync {
		result, err := a.orch.Run(ctx, forumsync.Options{ForceFull: cfg.ForceFullSync})
		if err != nil {
			return err
		}
		log.Info().
			Str("mode", string(result.Mode)).
			Int("threads", result.Threads).
			Int("posts", result.Posts).
			Int("errors", result.Errors).
			Msg("startup sync complete")
	}

	if cfg.RunMode == "once" || cfg.ExitAfterSync {
		return nil
	}

	return watch(ctx, a)
}

// watch runs the live event loop and the periodic delta-sync schedule
// side by side. The cron chain skips a tick if the previous sync is
// still running, so two syncs never overlap.
func watch(ctx context.Context, a *app) error {
	cronLog := a.log.With().Str("component", "cron").Logger()
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(&cronLog)),
	))
	_, err := scheduler.AddFunc(a.cfg.SyncCron, func() {
		if _, err := a.orch.Run(ctx, forumsync.Options{}); err != nil {
			a.log.Error().Err(err).Msg("scheduled sync failed")
		}
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.live.Run(ctx, a.client)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	a.log.Info().Str("schedule", a.cfg.SyncCron).Msg("watching for live events")
	return g.Wait()
}
