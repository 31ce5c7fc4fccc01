package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/cardline/platform/internal/domain"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Store
	DatabasePath string `env:"DATABASE_PATH" envDefault:"data/cardline.db"`

	// Scheduler
	Timezone     string `env:"TZ" envDefault:"America/New_York"`
	TickMs       int    `env:"TICK_MS" envDefault:"60000"`
	DryRun       bool   `env:"DRY_RUN" envDefault:"false"`
	FixedCatchup bool   `env:"FIXED_CATCHUP" envDefault:"true"`

	// Job enable flags
	EnableOddsPull    bool `env:"ENABLE_ODDS_PULL" envDefault:"true"`
	EnableNHLModel    bool `env:"ENABLE_NHL_MODEL" envDefault:"true"`
	EnableNBAModel    bool `env:"ENABLE_NBA_MODEL" envDefault:"true"`
	EnableNCAAMModel  bool `env:"ENABLE_NCAAM_MODEL" envDefault:"false"`
	EnableMLBModel    bool `env:"ENABLE_MLB_MODEL" envDefault:"false"`
	EnableNFLModel    bool `env:"ENABLE_NFL_MODEL" envDefault:"false"`
	EnableSoccerModel bool `env:"ENABLE_SOCCER_MODEL" envDefault:"false"`
	EnableFPLModel    bool `env:"ENABLE_FPL_MODEL" envDefault:"false"`

	// External sources
	OddsAPIKey      string `env:"ODDS_API_KEY"`
	OddsAPIBaseURL  string `env:"ODDS_API_BASE_URL" envDefault:"https://api.the-odds-api.com"`
	StatsAPIBaseURL string `env:"STATS_API_BASE_URL" envDefault:"https://api.balldontlie.io/v1"`
	StatsAPIKey     string `env:"STATS_API_KEY"`

	// Settlement
	GradeMinHoursAfterStart int `env:"GRADE_MIN_HOURS_AFTER_START" envDefault:"3"`
	VoidAfterHours          int `env:"VOID_AFTER_HOURS" envDefault:"72"`

	// Read API
	APIPort            int    `env:"API_PORT" envDefault:"3200"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	if c.TickMs < 1000 {
		return fmt.Errorf("TICK_MS must be at least 1000, got %d", c.TickMs)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TZ %q: %w", c.Timezone, err)
	}
	if c.EnableOddsPull && c.OddsAPIKey == "" && !c.DryRun {
		return fmt.Errorf("ODDS_API_KEY is required when ENABLE_ODDS_PULL is on")
	}
	return nil
}

// TickPeriod returns the scheduler tick period.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// Location returns the configured scheduling timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EnabledSports returns the sports whose model jobs are switched on.
func (c *Config) EnabledSports() []domain.Sport {
	flags := map[domain.Sport]bool{
		domain.SportNHL:    c.EnableNHLModel,
		domain.SportNBA:    c.EnableNBAModel,
		domain.SportNCAAM:  c.EnableNCAAMModel,
		domain.SportMLB:    c.EnableMLBModel,
		domain.SportNFL:    c.EnableNFLModel,
		domain.SportSoccer: c.EnableSoccerModel,
		domain.SportFPL:    c.EnableFPLModel,
	}
	var out []domain.Sport
	for _, s := range domain.AllSports {
		if flags[s] {
			out = append(out, s)
		}
	}
	return out
}
