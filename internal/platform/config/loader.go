package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) if PUNCHTRUST_CONFIG is set
//  3. env (prefix PUNCHTRUST_, e.g. PUNCHTRUST_ADDR, PUNCHTRUST_SHIFT.GRACE_MINUTES)
func Load() (*Config, error) {
	base := Default()

	k := koanf.New(".")

	if path := os.Getenv("PUNCHTRUST_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Map env keys like PUNCHTRUST_DATABASE_URL -> database_url.
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("PUNCHTRUST_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "punchtrust_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Trust.MediumThreshold <= 0 || c.Trust.HighThreshold <= c.Trust.MediumThreshold {
		return fmt.Errorf("trust thresholds must satisfy 0 < medium < high")
	}
	if c.Shift.FullDayMinutes <= 0 {
		return fmt.Errorf("shift.full_day_minutes must be positive")
	}
	if c.HeldListLimit <= 0 {
		return fmt.Errorf("held_list_limit must be positive")
	}
	return nil
}
