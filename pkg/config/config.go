// Package config loads the optional YAML configuration file controlling
// refresh cadence, default sort, lite mode, alert thresholds, and extra
// application-name aliases.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spazyCZ/ptop3/pkg/types"
)

const (
	DefaultRefresh = 2 * time.Second
	MinRefresh     = 1 * time.Second
	MaxRefresh     = 10 * time.Second
)

// Config is the merged runtime configuration. Zero values fall back to the
// defaults from Default().
type Config struct {
	RefreshSeconds float64               `yaml:"refresh_seconds"`
	Sort           string                `yaml:"sort"`
	Lite           bool                  `yaml:"lite"`
	TopRows        int                   `yaml:"top_rows"`
	Aliases        map[string]string     `yaml:"aliases"`
	Thresholds     types.AlertThresholds `yaml:"thresholds"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		RefreshSeconds: DefaultRefresh.Seconds(),
		Sort:           string(types.SortMem),
		TopRows:        15,
		Thresholds:     types.DefaultThresholds(),
	}
}

// Load reads a YAML config file over the defaults. A missing path is not an
// error; a malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg.sanitized(), nil
}

func (c Config) sanitized() Config {
	if c.RefreshSeconds <= 0 {
		c.RefreshSeconds = DefaultRefresh.Seconds()
	}
	if !types.SortKey(c.Sort).Valid() {
		c.Sort = string(types.SortMem)
	}
	if c.TopRows <= 0 {
		c.TopRows = 15
	}
	d := types.DefaultThresholds()
	if c.Thresholds.CPUHotPct <= 0 {
		c.Thresholds.CPUHotPct = d.CPUHotPct
	}
	if c.Thresholds.MemHotPct <= 0 {
		c.Thresholds.MemHotPct = d.MemHotPct
	}
	if c.Thresholds.RSSHotMB <= 0 {
		c.Thresholds.RSSHotMB = d.RSSHotMB
	}
	if c.Thresholds.SwapHotMB <= 0 {
		c.Thresholds.SwapHotMB = d.SwapHotMB
	}
	if c.Thresholds.SwapSuggestPct <= 0 {
		c.Thresholds.SwapSuggestPct = d.SwapSuggestPct
	}
	if c.Thresholds.DiskHighPct <= 0 {
		c.Thresholds.DiskHighPct = d.DiskHighPct
	}
	if c.Thresholds.DiskCritPct <= 0 {
		c.Thresholds.DiskCritPct = d.DiskCritPct
	}
	if c.Thresholds.IOHotMB <= 0 {
		c.Thresholds.IOHotMB = d.IOHotMB
	}
	return c
}

// Refresh returns the refresh interval clamped to the supported range.
func (c Config) Refresh() time.Duration {
	d := time.Duration(c.RefreshSeconds * float64(time.Second))
	if d < MinRefresh {
		return MinRefresh
	}
	if d > MaxRefresh {
		return MaxRefresh
	}
	return d
}
