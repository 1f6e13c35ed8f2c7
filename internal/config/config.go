// Package config loads runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"

	"github.com/stagegate/stagegate/internal/pipeline"
)

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultMaxRetries  = 3
	DefaultRetryBase   = 1 * time.Second
	DefaultTimeout     = 30 * time.Second
	DefaultPort        = 5000
	DefaultWorkers     = 1
	DefaultLookupPause = 200 * time.Millisecond
	DefaultSettleDelay = 500 * time.Millisecond
)

// Config is the full runtime configuration.
type Config struct {
	APIURL   string `mapstructure:"kaiten_api_url"`
	APIToken string `mapstructure:"kaiten_api_token"`

	Fields pipeline.FieldMap `mapstructure:",squash"`

	BoardID int64 `mapstructure:"board_id"`
	SpaceID int64 `mapstructure:"space_id"`

	RulesFile string `mapstructure:"rules_file"`

	Port    int `mapstructure:"webhook_port"`
	Workers int `mapstructure:"workers"`

	MaxRetries  uint64        `mapstructure:"max_retries"`
	RetryBase   time.Duration `mapstructure:"retry_base"`
	Timeout     time.Duration `mapstructure:"request_timeout"`
	LookupPause time.Duration `mapstructure:"lookup_pause"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// envFields maps environment variable names to the mapstructure keys
// used by Config and its embedded FieldMap.
var envFields = map[string]string{
	"KAITEN_API_URL":       "kaiten_api_url",
	"KAITEN_API_TOKEN":     "kaiten_api_token",
	"FIELD_RELEVANCE":      "relevance",
	"FIELD_NOVELTY":        "novelty",
	"FIELD_EXPERIENCE":     "experience",
	"FIELD_APPLICABILITY":  "applicability",
	"FIELD_CHARISMA":       "charisma",
	"FIELD_INFLUENCER":     "influencer",
	"FIELD_REACH":          "reach",
	"FIELD_QUALITY_TIER":   "quality_tier",
	"FIELD_CONTENT_TYPE":   "content_type",
	"FIELD_PRESENTER_TIER": "presenter_tier",
	"FIELD_REACH_TIER":     "reach_tier",
	"BOARD_ID":             "board_id",
	"SPACE_ID":             "space_id",
	"RULES_FILE":           "rules_file",
	"WEBHOOK_PORT":         "webhook_port",
	"WORKERS":              "workers",
	"MAX_RETRIES":          "max_retries",
	"RETRY_BASE":           "retry_base",
	"REQUEST_TIMEOUT":      "request_timeout",
	"LOOKUP_PAUSE":         "lookup_pause",
	"SETTLE_DELAY":         "settle_delay",
}

// Load reads configuration from the process environment. A .env file in
// the working directory is merged in first, without overriding variables
// already set.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone may be complete.
	_ = godotenv.Load()

	values := make(map[string]string)
	for envName, key := range envFields {
		if v, ok := os.LookupEnv(envName); ok {
			values[key] = v
		}
	}
	return FromMap(values)
}

// FromMap builds a Config from raw string settings keyed by the
// mapstructure names in envFields. Numeric and duration values are
// converted from their string forms.
func FromMap(values map[string]string) (*Config, error) {
	cfg := &Config{
		Port:        DefaultPort,
		Workers:     DefaultWorkers,
		MaxRetries:  DefaultMaxRetries,
		RetryBase:   DefaultRetryBase,
		Timeout:     DefaultTimeout,
		LookupPause: DefaultLookupPause,
		SettleDelay: DefaultSettleDelay,
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("building config decoder: %w", err)
	}
	if err := dec.Decode(values); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	var missing []string
	if c.APIURL == "" {
		missing = append(missing, "KAITEN_API_URL")
	}
	if c.APIToken == "" {
		missing = append(missing, "KAITEN_API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
