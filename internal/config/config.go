package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"` // /healthz and /metrics
	TZName   string `envconfig:"TZ_NAME" default:"Europe/Moscow"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"` // sqlite|mongo
	DBPath      string `envconfig:"DB_PATH" default:"./data/schedule.db"`
	MongoURI    string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB     string `envconfig:"MONGO_DB" default:"schedule_bot"`

	SourceBaseURL   string        `envconfig:"SOURCE_BASE_URL" default:"https://dmitrov.politeh-mo.ru/rasp"`
	SourceTimeout   time.Duration `envconfig:"SOURCE_TIMEOUT" default:"10s"`
	FetchRetries    int           `envconfig:"FETCH_RETRIES" default:"3"`
	FetchRetryDelay time.Duration `envconfig:"FETCH_RETRY_DELAY" default:"5s"`

	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"60s"`
	DebounceWindow time.Duration `envconfig:"DEBOUNCE_WINDOW" default:"10s"`
	WatchInterval  time.Duration `envconfig:"WATCH_INTERVAL" default:"5s"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"24h"`
	ScheduleTTL    time.Duration `envconfig:"SCHEDULE_TTL" default:"24h"`

	DefaultNotifyTime string `envconfig:"DEFAULT_NOTIFY_TIME" default:"15:00"`
	SendRate          int    `envconfig:"SEND_RATE" default:"25"` // messages per second
}

// Load reads an optional .env file and then environment variables into Config.
func Load() (Config, error) {
	// Missing .env is fine: production passes plain env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("BOT_TOKEN must not be empty")
	}
	switch c.StoreDriver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver)
	}
	if _, err := domain.ValidateTZ(c.TZName); err != nil {
		return fmt.Errorf("TZ_NAME: %w", err)
	}
	if _, err := domain.ParseClock(c.DefaultNotifyTime); err != nil {
		return fmt.Errorf("DEFAULT_NOTIFY_TIME: %w", err)
	}
	if c.PollInterval <= 0 || c.WatchInterval <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.DebounceWindow <= 0 {
		return fmt.Errorf("DEBOUNCE_WINDOW must be positive")
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("SEND_RATE must be positive")
	}
	return nil
}

// Location resolves TZName.
func (c Config) Location() (*time.Location, error) {
	return domain.ValidateTZ(c.TZName)
}
