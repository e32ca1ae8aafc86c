package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_TOKEN" required:"true"`
	DBDSN         string `envconfig:"DB_DSN" required:"true"`
	Environment   string `envconfig:"ENV" default:"development"`

	EasyfitEmail      string `envconfig:"EASYFIT_EMAIL" required:"true"`
	EasyfitPassword   string `envconfig:"EASYFIT_PASSWORD" required:"true"`
	EasyfitBaseURL    string `envconfig:"EASYFIT_BASE_URL" default:"https://app-easyfitpalestre.it"`
	EasyfitFacilityID string `envconfig:"EASYFIT_FACILITY_ID" default:"easyfit:1216915380"`

	// LeadTime is how long before class start the reservation is attempted.
	LeadTime     time.Duration `envconfig:"LEAD_TIME" default:"72h"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"2m"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"10m"`

	// The poller only runs between these local hours.
	ActiveFromHour int `envconfig:"ACTIVE_FROM_HOUR" default:"8"`
	ActiveToHour   int `envconfig:"ACTIVE_TO_HOUR" default:"21"`

	HealthAddr     string `envconfig:"HEALTH_ADDR" default:":10000"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables win in production.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.ActiveFromHour < 0 || cfg.ActiveToHour > 24 || cfg.ActiveFromHour >= cfg.ActiveToHour {
		return nil, fmt.Errorf("invalid active window %d-%d", cfg.ActiveFromHour, cfg.ActiveToHour)
	}
	if cfg.LeadTime <= 0 {
		return nil, fmt.Errorf("lead time must be positive, got %s", cfg.LeadTime)
	}

	return &cfg, nil
}
