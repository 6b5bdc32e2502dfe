// Package config loads static scheduling parameters from a TOML file and
// overlays environment-sourced secrets, mirroring the daemon's own config
// split: tunables in a checked-in file, credentials only in the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

// Window holds the UTC publication window, in hours [0, 24).
type Window struct {
	MinHour int `toml:"min_hour"`
	MaxHour int `toml:"max_hour"`
}

// Scheduling holds the throughput and cadence constants the Planner and
// LongTermUpdater derive their timing from.
type Scheduling struct {
	PerHour int `toml:"per_hour"`
	LTPosts int `toml:"lt_posts"`
	MTPosts int `toml:"mt_posts"`
}

// Weights holds the Aggregator's configurable default weight set. Any
// dimension omitted from the TOML file falls back to DefaultWeights.
type Weights struct {
	LTTopic    float64 `toml:"lt_topic"`
	LTMood     float64 `toml:"lt_mood"`
	MTTopic    float64 `toml:"mt_topic"`
	MTMood     float64 `toml:"mt_mood"`
	MTAuthor   float64 `toml:"mt_author"`
	TimeBest   float64 `toml:"time_best"`
	TimeExpire float64 `toml:"time_expire"`
}

// DefaultWeights are the weights used when the TOML file omits the section
// entirely, matching the Aggregator's documented defaults.
var DefaultWeights = Weights{
	LTTopic: 0.15, LTMood: 0.15,
	MTTopic: 0.15, MTMood: 0.15, MTAuthor: 0.15,
	TimeBest: 0.20, TimeExpire: 0.05,
}

// AsMap converts Weights into the dimension-keyed map the Aggregator
// operates on.
func (w Weights) AsMap() map[domain.Dimension]float64 {
	return map[domain.Dimension]float64{
		domain.DimLTTopic:    w.LTTopic,
		domain.DimLTMood:     w.LTMood,
		domain.DimMTTopic:    w.MTTopic,
		domain.DimMTMood:     w.MTMood,
		domain.DimMTAuthor:   w.MTAuthor,
		domain.DimTimeBest:   w.TimeBest,
		domain.DimTimeExpire: w.TimeExpire,
	}
}

// Server holds the admin/observability HTTP listener settings.
type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Credentials holds secrets that must never live in a checked-in TOML file.
// They are always sourced from the environment.
type Credentials struct {
	ClassifierAPIKey string
	ClassifierURL    string
	PainterURL       string
	PainterAPIKey    string
	TelegramToken    string
	TelegramChatID   string
	PreviewChatID    string
	RedisAddr        string

	// CacheTTLSeconds overrides the classifier response cache's TTL; read
	// from CACHE_TTL_SECONDS since it is an operational knob ops may want
	// to tune without a redeploy, unlike the checked-in TOML tunables.
	CacheTTLSeconds int
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Window      Window      `toml:"window"`
	Scheduling  Scheduling  `toml:"scheduling"`
	Weights     Weights     `toml:"weights"`
	Server      Server      `toml:"server"`
	DatabasePath string     `toml:"database_path"`

	Credentials Credentials `toml:"-"`
}

// Default returns the baseline configuration used when no TOML file is
// supplied, matching the Python original's env-var defaults (MIN=9, MAX=21,
// PER_HOUR=300, LT_POSTS=50, MT_POSTS=20).
func Default() Config {
	return Config{
		Window:       Window{MinHour: 9, MaxHour: 21},
		Scheduling:   Scheduling{PerHour: 300, LTPosts: 50, MTPosts: 20},
		Weights:      DefaultWeights,
		Server:       Server{Host: "127.0.0.1", Port: 8088},
		DatabasePath: "editor.db",
	}
}

// Load reads a TOML file into a Config seeded with Default, then loads
// credentials from the environment (after overlaying a local .env file, if
// present — godotenv.Load is a no-op error when the file is absent, and that
// is intentionally ignored, matching the Python original's python-dotenv
// usage in config.py).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	cfg.Credentials = Credentials{
		ClassifierAPIKey: os.Getenv("CLASSIFIER_API_KEY"),
		ClassifierURL:    os.Getenv("CLASSIFIER_URL"),
		PainterURL:       os.Getenv("PAINTER_URL"),
		PainterAPIKey:    os.Getenv("PAINTER_API_KEY"),
		TelegramToken:    os.Getenv("TG_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TG_GROUP"),
		PreviewChatID:    os.Getenv("PREVIEW_GROUP"),
		RedisAddr:        envOr("REDIS_ADDR", ""),
		CacheTTLSeconds:  envInt("CACHE_TTL_SECONDS", 3600),
	}

	if cfg.Window.MinHour > cfg.Window.MaxHour {
		return Config{}, domain.ErrInvalidWindow
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// envInt reads an integer environment variable, returning fallback when the
// variable is absent or malformed.
func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
