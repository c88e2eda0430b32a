package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	Environment        string   `envconfig:"ENV" default:"production"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	DBConnectionString  string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	DBMaxConns          int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMigrationsEnabled bool   `envconfig:"DB_MIGRATIONS_ENABLED" default:"true"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripeCurrency      string `envconfig:"STRIPE_CURRENCY" default:"usd"`
	ProcessorTimeoutSec int    `envconfig:"PROCESSOR_TIMEOUT_SEC" default:"10"`

	// Free selection limits applied when a project row carries no explicit value
	DefaultFreeVideoLimit    int `envconfig:"DEFAULT_FREE_VIDEO_LIMIT" default:"3"`
	DefaultFreeHeadshotLimit int `envconfig:"DEFAULT_FREE_HEADSHOT_LIMIT" default:"0"`

	// Package catalog defaults, in cents
	PriceAdditional3VideosCents int64 `envconfig:"PRICE_ADDITIONAL_3_VIDEOS_CENTS" default:"19900"`
	PriceAllContentCents        int64 `envconfig:"PRICE_ALL_CONTENT_CENTS" default:"49900"`

	// Pub/Sub settings
	GCPProjectID           string `envconfig:"GCP_PROJECT_ID"`
	PubSubEntitlementTopic string `envconfig:"PUBSUB_ENTITLEMENT_TOPIC"`

	// Reconciler settings
	ReconcileIntervalSec   int `envconfig:"RECONCILE_INTERVAL_SEC" default:"60"`
	ReconcileStaleAfterSec int `envconfig:"RECONCILE_STALE_AFTER_SEC" default:"300"`
	ReconcileBatchSize     int `envconfig:"RECONCILE_BATCH_SIZE" default:"50"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the entitlement engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ProcessorTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("PROCESSOR_TIMEOUT_SEC must be positive, got %d", c.ProcessorTimeoutSec))
	}
	if c.DefaultFreeVideoLimit < 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_FREE_VIDEO_LIMIT must not be negative, got %d", c.DefaultFreeVideoLimit))
	}
	if c.DefaultFreeHeadshotLimit < 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_FREE_HEADSHOT_LIMIT must not be negative, got %d", c.DefaultFreeHeadshotLimit))
	}
	if c.PriceAdditional3VideosCents <= 0 || c.PriceAllContentCents <= 0 {
		errs = append(errs, errors.New("package prices must be positive"))
	}
	if c.ReconcileIntervalSec <= 0 || c.ReconcileStaleAfterSec <= 0 || c.ReconcileBatchSize <= 0 {
		errs = append(errs, errors.New("reconciler settings must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) ProcessorTimeout() time.Duration {
	return time.Duration(c.ProcessorTimeoutSec) * time.Second
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSec) * time.Second
}

func (c *Config) ReconcileStaleAfter() time.Duration {
	return time.Duration(c.ReconcileStaleAfterSec) * time.Second
}
