package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // HKT must resolve on hosts without a zoneinfo database.

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultSourceURL is the Chek Lap Kok (E) 2023 tide table page.
const DefaultSourceURL = "https://www.hko.gov.hk/tide/eCLKtext2023.html"

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceURL string
	HTMLPath  string
	WideCSV   string
	LongCSV   string
	ScriptCSV string
	ScriptVar string
	Year      int
	Location  *time.Location
	TimeZone  string

	FetchTimeout    time.Duration
	FetchRetries    int
	CacheMaxAge     time.Duration
	RefreshInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	cacheMaxAge, err := parseNonNegativeDuration("CACHE_MAX_AGE", "0")
	if err != nil {
		return nil, err
	}
	refresh, err := parseNonNegativeDuration("REFRESH_INTERVAL", "0")
	if err != nil {
		return nil, err
	}

	year, err := parseIntInRange("TIDE_YEAR", 2023, 1, 9999)
	if err != nil {
		return nil, err
	}
	retries, err := parseIntInRange("FETCH_RETRIES", 3, 1, 10)
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("TIDE_TIMEZONE", "Asia/Hong_Kong")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIDE_TIMEZONE: %w", err)
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid KAFKA_ENABLED")
		}
	}

	cfg := &Config{
		SourceURL: sharedcfg.EnvOrDefault("TIDE_SOURCE_URL", DefaultSourceURL),
		HTMLPath:  sharedcfg.EnvOrDefault("TIDE_HTML_PATH", "data/hko_page.html"),
		WideCSV:   sharedcfg.EnvOrDefault("TIDE_WIDE_CSV", "data/chek_lap_kok_e_2023.csv"),
		LongCSV:   sharedcfg.EnvOrDefault("TIDE_LONG_CSV", "data/chek_lap_kok_e_2023_long.csv"),
		ScriptCSV: sharedcfg.EnvOrDefault("TIDE_SCRIPT_CSV", "data/hko_data1.csv"),
		ScriptVar: sharedcfg.EnvOrDefault("TIDE_SCRIPT_VAR", "data1"),
		Year:      year,
		Location:  loc,
		TimeZone:  tz,

		FetchTimeout:    fetchTimeout,
		FetchRetries:    retries,
		CacheMaxAge:     cacheMaxAge,
		RefreshInterval: refresh,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "tide-readings"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseNonNegativeDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative duration", key)
	}
	return d, nil
}

func parseIntInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}
