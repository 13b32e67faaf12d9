package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pytivogo/bridge/internal/log"
)

// Loader handles configuration loading with defaults -> file -> environment
// precedence, the same shape as the teacher's config.Loader.
type Loader struct {
	configPath string
	version    string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a loader reading configPath (may be "" for defaults-only).
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version, lookupEnv: os.LookupEnv}
}

// Load resolves the final Config.
func (l *Loader) Load() (*Config, error) {
	cfg := defaultConfig(l.version)

	if l.configPath != "" {
		f, err := os.Open(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("config: opening %s: %w", l.configPath, err)
		}
		defer f.Close()

		doc, err := parseINI(f)
		if err != nil {
			return nil, err
		}
		if err := mergeFile(cfg, doc); err != nil {
			return nil, err
		}
	}

	l.applyEnv(cfg)

	for _, ov := range cfg.TSNOverrides {
		if len(ov.Shares) > 0 {
			cfg.HasTSNShareACL = true
			break
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	log.WithComponent("config").Info().
		Str("event", "config.loaded").
		Int("shares", len(cfg.Shares)).
		Int("port", cfg.Port).
		Msg("configuration resolved")

	return cfg, nil
}

func (l *Loader) envStr(key string, cur *string) {
	if v, ok := l.lookupEnv(key); ok && v != "" {
		*cur = v
	}
}

func (l *Loader) envInt(key string, cur *int) {
	if v, ok := l.lookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*cur = n
		}
	}
}

func (l *Loader) envBool(key string, cur *bool) {
	if v, ok := l.lookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*cur = b
		}
	}
}

// applyEnv overrides cfg with PYTIVOGO_* environment variables, the
// deployment-time override layer the teacher's config.env.go provides.
func (l *Loader) applyEnv(cfg *Config) {
	l.envStr("PYTIVOGO_LOG_LEVEL", &cfg.LogLevel)
	l.envInt("PYTIVOGO_PORT", &cfg.Port)
	l.envStr("PYTIVOGO_TIVO_MAK", &cfg.TivoMAK)
	l.envStr("PYTIVOGO_TOGO_PATH", &cfg.TogoPath)
	l.envStr("PYTIVOGO_TOGO_TSN", &cfg.TogoTSN)
	l.envInt("PYTIVOGO_TOGO_TS_MAX_RETRIES", &cfg.TogoTSMaxRetries)
	l.envBool("PYTIVOGO_TOGO_SAVE_TXT", &cfg.TogoSaveTxt)
	l.envBool("PYTIVOGO_TOGO_DECODE", &cfg.TogoDecode)
	l.envBool("PYTIVOGO_TOGO_SORTABLE_NAMES", &cfg.TogoSortableNames)
	l.envStr("PYTIVOGO_ZEROCONF", &cfg.Zeroconf)
	l.envBool("PYTIVOGO_BEACON_LISTEN", &cfg.BeaconListen)

	if v, ok := l.lookupEnv("PYTIVOGO_TOGO_TS_ERROR_MODE"); ok && v != "" {
		cfg.TogoTSErrorMode = TSErrorMode(strings.ToLower(v))
	}
	if v, ok := l.lookupEnv("PYTIVOGO_BEACON"); ok && v != "" {
		cfg.BeaconAddrs = strings.Fields(v)
	}
	if v, ok := l.lookupEnv("PYTIVOGO_ALLOWEDIPS"); ok && v != "" {
		cfg.AllowedIPs = strings.Fields(v)
	}
}
