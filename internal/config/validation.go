package config

import "fmt"

// Validate rejects configurations that would violate a spec invariant
// before the daemon starts (spec §3 invariants, §6 recognized options).
func Validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	switch cfg.TogoTSErrorMode {
	case TSErrorIgnore, TSErrorBest, TSErrorReject:
	default:
		return fmt.Errorf("config: invalid togo_ts_error_mode %q", cfg.TogoTSErrorMode)
	}
	if cfg.TogoTSMaxRetries < 0 {
		return fmt.Errorf("config: togo_ts_max_retries must be >= 0")
	}
	seen := make(map[string]bool, len(cfg.Shares))
	for _, s := range cfg.Shares {
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate share name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Kind != ShareDesktop && s.Path == "" {
			return fmt.Errorf("config: share %q: missing path", s.Name)
		}
	}
	for _, ov := range cfg.TSNOverrides {
		for _, sh := range ov.Shares {
			if !seen[sh] {
				return fmt.Errorf("config: _tivo_%s: unknown share %q in ACL", ov.TSN, sh)
			}
		}
	}
	return nil
}
