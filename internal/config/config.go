// Package config loads the recognized environment variables into a typed struct
// via caarlos0/env, the pack's idiomatic env-parsing library.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/lakpahana/discord-forum/internal/errkind"
)

// Config is the full set of recognized environment options.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`

	MySQLHost     string `env:"MYSQL_HOST"`
	MySQLPort     int    `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLUser     string `env:"MYSQL_USER"`
	MySQLPassword string `env:"MYSQL_PASSWORD"`
	MySQLDatabase string `env:"MYSQL_DATABASE"`

	PIIPepper string `env:"PII_PEPPER"`

	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION"`
	AWSAccessKeyID  string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey    string `env:"AWS_SECRET_ACCESS_KEY"`

	ImageMaxMB int `env:"IMAGE_MAX_MB" envDefault:"10"`
	ImageMaxW  int `env:"IMAGE_MAX_W" envDefault:"1920"`
	ImageMaxH  int `env:"IMAGE_MAX_H" envDefault:"1080"`

	StaffCSVPath string `env:"STAFF_CSV_PATH"`

	EnableHistoricalSync bool   `env:"ENABLE_HISTORICAL_SYNC" envDefault:"false"`
	ForceFullSync        bool   `env:"FORCE_FULL_SYNC" envDefault:"false"`
	RunMode              string `env:"RUN_MODE" envDefault:"watch"`
	ExitAfterSync        bool   `env:"EXIT_AFTER_SYNC" envDefault:"false"`

	// SyncCron schedules periodic delta syncs in watch mode.
	SyncCron string `env:"SYNC_CRON" envDefault:"@hourly"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load parses environment variables into a Config. It does not check
// that required fields are present; RequireForSync does that.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, errkind.Wrap(errkind.Configuration, fmt.Errorf("parsing environment: %w", err))
	}
	return c, nil
}

// RequireForSync validates the fields the sync engine cannot run without.
// Image/S3 fields are only required when the run will actually process
// attachments, which callers determine before invoking this check.
func (c Config) RequireForSync(requireImages bool) error {
	missing := func(name, val string) error {
		return errkind.Wrap(errkind.Configuration, fmt.Errorf("missing required environment variable %s", name))
	}
	if c.DiscordToken == "" {
		return missing("DISCORD_TOKEN", c.DiscordToken)
	}
	if c.MySQLHost == "" || c.MySQLUser == "" || c.MySQLDatabase == "" {
		return missing("MYSQL_HOST/USER/DATABASE", "")
	}
	if len(c.PIIPepper) != 64 {
		return errkind.Wrap(errkind.Configuration, fmt.Errorf("PII_PEPPER must be 64 hex characters, got %d", len(c.PIIPepper)))
	}
	if requireImages {
		if c.S3Bucket == "" || c.S3Region == "" || c.AWSAccessKeyID == "" || c.AWSSecretKey == "" {
			return missing("S3_BUCKET/REGION, AWS_ACCESS_KEY_ID/SECRET_ACCESS_KEY", "")
		}
	}
	return nil
}

// MySQLDSN renders the go-sql-driver/mysql DSN for this config.
// parseTime=true lets the store scan DATETIME columns into time.Time,
// and loc=UTC reads them back as UTC. No bigint-as-string option is
// set: BIGINT IDs are scanned into int64 by the store layer.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLPort, c.MySQLDatabase)
}
