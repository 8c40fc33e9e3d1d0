package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/lakpahana/discord-forum/internal/config"
	"github.com/lakpahana/discord-forum/pkg/cursor"
	"github.com/lakpahana/discord-forum/pkg/identity"
	"github.com/lakpahana/discord-forum/pkg/live"
	"github.com/lakpahana/discord-forum/pkg/media"
	"github.com/lakpahana/discord-forum/pkg/moderation"
	"github.com/lakpahana/discord-forum/pkg/platform"
	"github.com/lakpahana/discord-forum/pkg/reconcile"
	"github.com/lakpahana/discord-forum/pkg/sanitize"
	"github.com/lakpahana/discord-forum/pkg/staffroster"
	"github.com/lakpahana/discord-forum/pkg/store"
	forumsync "github.com/lakpahana/discord-forum/pkg/sync"
	"github.com/lakpahana/discord-forum/pkg/traversal"
)

// app holds the fully wired component graph. Everything is constructed
// once here and injected; no package carries global state.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	store  *store.Store
	client *platform.DiscordClient
	orch   *forumsync.Orchestrator
	live   *live.Handler
}

// buildApp connects to the database, runs migrations, opens the
// platform session, and wires every component together.
func buildApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	if err := cfg.RequireForSync(cfg.S3Bucket != ""); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.MySQLDSN(), log)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, err
	}

	hasher, err := identity.New(cfg.PIIPepper)
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.StaffCSVPath != "" {
		if err := importStaffCSV(ctx, cfg.StaffCSVPath, st, hasher, log); err != nil {
			st.Close()
			return nil, err
		}
	}

	client, err := platform.NewDiscordClient(cfg.DiscordToken)
	if err != nil {
		st.Close()
		return nil, err
	}

	var pipeline reconcile.MediaProcessor
	if cfg.S3Bucket != "" {
		uploader, err := media.NewS3Uploader(ctx, media.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		})
		if err != nil {
			client.Close()
			st.Close()
			return nil, err
		}
		pipeline = media.New(http.DefaultClient, uploader, media.Config{
			MaxBytes: int64(cfg.ImageMaxMB) * 1024 * 1024,
			MaxW:     cfg.ImageMaxW,
			MaxH:     cfg.ImageMaxH,
		})
	}

	rec := &reconcile.Reconciler{
		Hasher:     hasher,
		Sanitizer:  sanitize.Func(sanitize.SanitizeAllowlisted),
		Staff:      st,
		Channels:   st,
		Threads:    st,
		Posts:      st,
		Media:      pipeline,
		Moderation: &moderation.Service{Store: st, Log: log},
		Log:        log,
	}

	orch := &forumsync.Orchestrator{
		Cursor:     cursor.New(st),
		Traversal:  traversal.New(client, 0, log),
		Reconciler: rec,
		Threads:    st,
		Log:        log,
	}

	handler := &live.Handler{
		Reconciler: rec,
		Threads:    st,
		Posts:      st,
		Client:     client,
		Log:        log,
	}

	return &app{cfg: cfg, log: log, store: st, client: client, orch: orch, live: handler}, nil
}

func (a *app) close() {
	a.client.Close()
	a.store.Close()
}

func importStaffCSV(ctx context.Context, path string, st *store.Store, hasher *identity.Hasher, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening staff CSV %s: %w", path, err)
	}
	defer f.Close()

	n, err := staffroster.Import(ctx, f, st, hasher, "startup")
	if err != nil {
		return err
	}
	log.Info().Int("imported", n).Str("path", path).Msg("staff roster imported")
	return nil
}
