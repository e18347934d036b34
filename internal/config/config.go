package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

var (
	ErrIrisBaseURL = errors.New("IRIS_BASE_URL is required")
	ErrIrisWSURL   = errors.New("IRIS_WS_URL is required")
	ErrBotPrefix   = errors.New("BOT_PREFIX is required")
)

type AppConfig struct {
	IrisBaseURL string `env:"IRIS_BASE_URL"`
	IrisWSURL   string `env:"IRIS_WS_URL"`

	BotPrefix string `env:"BOT_PREFIX"`

	XUserID    string `env:"X_USER_ID"`
	XUserEmail string `env:"X_USER_EMAIL"`
	XSessionID string `env:"X_SESSION_ID"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	AllowedRooms []string `env:"ALLOWED_ROOMS" envSeparator:","`

	EgressMode            string `env:"EGRESS_MODE" envDefault:"http"`
	EgressDryRun          bool   `env:"EGRESS_DRYRUN" envDefault:"false"`
	MaxConcurrentCommands int    `env:"MAX_CONCURRENT_COMMANDS" envDefault:"64"`
	MessagesDir           string `env:"MESSAGES_DIR"`

	Fortune FortuneConfig `envPrefix:"FORTUNE_"`
}

type FortuneConfig struct {
	Assignment    string        `env:"ASSIGNMENT" envDefault:"fixed"`
	DefaultLocale string        `env:"DEFAULT_LOCALE" envDefault:"en"`
	RevealDelay   time.Duration `env:"REVEAL_DELAY" envDefault:"600ms"`
	ResultsDelay  time.Duration `env:"RESULTS_DELAY" envDefault:"1s"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	HistoryLimit  int           `env:"HISTORY_LIMIT" envDefault:"10"`
	Tick          time.Duration `env:"TICK" envDefault:"10ms"`
	IdleEvict     time.Duration `env:"IDLE_EVICT" envDefault:"30m"`
}

// Load reads an optional .env file (ENV_FILE, default ".env") and then the
// process environment. Values already set in the environment win.
func Load() (*AppConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) normalize() {
	c.IrisBaseURL = strings.TrimSpace(c.IrisBaseURL)
	c.IrisWSURL = strings.TrimSpace(c.IrisWSURL)
	c.BotPrefix = strings.TrimSpace(c.BotPrefix)
	c.XUserID = strings.TrimSpace(c.XUserID)
	c.XUserEmail = strings.TrimSpace(c.XUserEmail)
	c.XSessionID = strings.TrimSpace(c.XSessionID)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.EgressMode = strings.ToLower(strings.TrimSpace(c.EgressMode))

	rooms := c.AllowedRooms[:0]
	for _, r := range c.AllowedRooms {
		if s := strings.TrimSpace(r); s != "" {
			rooms = append(rooms, s)
		}
	}
	c.AllowedRooms = rooms

	if c.MaxConcurrentCommands <= 0 {
		c.MaxConcurrentCommands = 64
	}
	if c.Fortune.HistoryLimit <= 0 {
		c.Fortune.HistoryLimit = 10
	}
	if c.Fortune.SessionTTL <= 0 {
		c.Fortune.SessionTTL = time.Hour
	}
}

// Validate checks required fields and the fortune enums.
func (c *AppConfig) Validate() error {
	if c.IrisBaseURL == "" {
		return ErrIrisBaseURL
	}
	if c.IrisWSURL == "" {
		return ErrIrisWSURL
	}
	if c.BotPrefix == "" {
		return ErrBotPrefix
	}
	if _, err := fortune.ParseAssignment(c.Fortune.Assignment); err != nil {
		return fmt.Errorf("FORTUNE_ASSIGNMENT: %w", err)
	}
	if _, ok := fortune.ParseLocale(c.Fortune.DefaultLocale); !ok {
		return fmt.Errorf("FORTUNE_DEFAULT_LOCALE: unsupported locale %q", c.Fortune.DefaultLocale)
	}
	switch c.EgressMode {
	case "http", "ws", "auto":
	default:
		return fmt.Errorf("EGRESS_MODE: unsupported mode %q", c.EgressMode)
	}
	return nil
}

// Assignment returns the parsed assignment mode; Validate has already accepted it.
func (c *AppConfig) Assignment() fortune.Assignment {
	a, _ := fortune.ParseAssignment(c.Fortune.Assignment)
	return a
}

func (c *AppConfig) DefaultLocale() fortune.Locale {
	l, ok := fortune.ParseLocale(c.Fortune.DefaultLocale)
	if !ok {
		return fortune.LocaleEN
	}
	return l
}

// IrisHeaders builds the X-User-* headers sent on every Iris request.
func (c *AppConfig) IrisHeaders() map[string]string {
	h := map[string]string{}
	if c.XUserID != "" {
		h["X-User-Id"] = c.XUserID
	}
	if c.XUserEmail != "" {
		h["X-User-Email"] = c.XUserEmail
	}
	if c.XSessionID != "" {
		h["X-Session-Id"] = c.XSessionID
	}
	return h
}
