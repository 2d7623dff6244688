// Package config loads server settings from an optional YAML file and the
// environment. Environment values win over the file; anything still unset
// gets a default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/hostcal/internal/archive"
	"github.com/dukerupert/hostcal/internal/ics"
	"github.com/dukerupert/hostcal/internal/kafka"
	"github.com/dukerupert/hostcal/internal/syncer"
)

const (
	DefaultPort       = "8080"
	DefaultDBPath     = "hostcal.db"
	DefaultTimezone   = "America/New_York"
	DefaultKafkaTopic = "bookings.sync"

	// DefaultFeedURL is the published calendar import feed for the
	// original property.
	DefaultFeedURL = "https://calendar.google.com/calendar/ical/" +
		"r2jpg8uh13234dsjiducroruahlv7i2r%40import.calendar.google.com/public/basic.ics"
)

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// Passphrase encrypts archived feeds at rest when set.
	Passphrase string `yaml:"passphrase"`
}

type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	FeedURL      string        `yaml:"feed_url"`
	Timezone     string        `yaml:"timezone"`
	ListingID    *int64        `yaml:"listing_id"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	SyncCron     string        `yaml:"sync_cron"`

	Kafka   KafkaConfig   `yaml:"kafka"`
	Archive ArchiveConfig `yaml:"archive"`
}

// Load reads path (skipped when empty) and applies the process environment.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str(&c.Port, "HOSTCAL_PORT")
	str(&c.DBPath, "HOSTCAL_DB_PATH")
	str(&c.LogLevel, "HOSTCAL_LOG_LEVEL")
	str(&c.LogFormat, "HOSTCAL_LOG_FORMAT")
	str(&c.FeedURL, "RESERVATIONS_ICS_URL")
	str(&c.Timezone, "DEFAULT_TIMEZONE")
	str(&c.SyncCron, "HOSTCAL_SYNC_CRON")
	str(&c.Kafka.Topic, "HOSTCAL_KAFKA_TOPIC")
	str(&c.Archive.Endpoint, "HOSTCAL_S3_ENDPOINT")
	str(&c.Archive.Bucket, "HOSTCAL_S3_BUCKET")
	str(&c.Archive.Region, "HOSTCAL_S3_REGION")
	str(&c.Archive.AccessKey, "HOSTCAL_S3_ACCESS_KEY")
	str(&c.Archive.SecretKey, "HOSTCAL_S3_SECRET_KEY")
	str(&c.Archive.Passphrase, "HOSTCAL_ARCHIVE_PASSPHRASE")

	if v := strings.TrimSpace(getenv("HOSTCAL_KAFKA_BROKERS")); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := strings.TrimSpace(getenv("RESERVATIONS_LISTING_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("RESERVATIONS_LISTING_ID: %q is not an integer", v)
		}
		c.ListingID = &id
	}
	if v := strings.TrimSpace(getenv("HOSTCAL_FETCH_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HOSTCAL_FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Normalize fills in defaults for anything left unset.
func (c *Config) Normalize() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.FeedURL == "" {
		c.FeedURL = DefaultFeedURL
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = ics.DefaultTimeout
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.ListingID != nil && *c.ListingID <= 0 {
		errs = append(errs, fmt.Errorf("listing_id must be positive, got %d", *c.ListingID))
	}
	if c.SyncCron != "" && c.ListingID == nil {
		errs = append(errs, errors.New("sync_cron requires listing_id"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Feed is the explicit pipeline configuration handed to the syncer.
func (c *Config) Feed() syncer.Config {
	return syncer.Config{
		FeedURL:          c.FeedURL,
		Timezone:         c.Timezone,
		FetchTimeout:     c.FetchTimeout,
		DefaultListingID: c.ListingID,
	}
}

// KafkaEnabled reports whether events should also go to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func (c *Config) KafkaProducer() kafka.Config {
	return kafka.Config{Brokers: c.Kafka.Brokers, Topic: c.Kafka.Topic}
}

func (c *Config) ArchiveStorage() archive.Config {
	return archive.Config{
		Endpoint:  c.Archive.Endpoint,
		Bucket:    c.Archive.Bucket,
		Region:    c.Archive.Region,
		AccessKey: c.Archive.AccessKey,
		SecretKey: c.Archive.SecretKey,

		Passphrase: c.Archive.Passphrase,
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
