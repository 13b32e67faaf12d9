package config

import (
	"fmt"
	"strconv"
	"strings"
)

const tsnSectionPrefix = "_tivo_"

var streamProfileModels = map[string]bool{"SD": true, "HD": true, "4K": true}

// mergeFile folds the parsed INI document into cfg, following spec.md §6's
// section taxonomy: [Server], [_tivo_SD]/[_tivo_HD]/[_tivo_4K], [_tivo_<TSN>],
// and one section per share.
func mergeFile(cfg *Config, doc *iniDoc) error {
	for _, name := range doc.order {
		sec := doc.sections[name]
		switch {
		case name == "Server":
			if err := mergeServerSection(cfg, sec); err != nil {
				return err
			}
		case strings.HasPrefix(name, tsnSectionPrefix) && streamProfileModels[strings.TrimPrefix(name, tsnSectionPrefix)]:
			model := strings.TrimPrefix(name, tsnSectionPrefix)
			mergeStreamProfileSection(cfg, model, sec)
		case strings.HasPrefix(name, tsnSectionPrefix):
			tsn := strings.TrimPrefix(name, tsnSectionPrefix)
			mergeTSNSection(cfg, tsn, sec)
		default:
			share, err := shareFromSection(name, sec)
			if err != nil {
				return err
			}
			cfg.Shares = append(cfg.Shares, share)
		}
	}
	return nil
}

func mergeServerSection(cfg *Config, sec *iniSection) error {
	if v := sec.get("port", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: Server.port: %w", err)
		}
		cfg.Port = n
	}
	cfg.TivoMAK = sec.get("tivo_mak", cfg.TivoMAK)
	cfg.TogoPath = sec.get("togo_path", cfg.TogoPath)
	cfg.TogoTSN = sec.get("togo_tsn", cfg.TogoTSN)

	if v := sec.get("togo_ts_error_mode", ""); v != "" {
		mode := TSErrorMode(strings.ToLower(v))
		switch mode {
		case TSErrorIgnore, TSErrorBest, TSErrorReject:
			cfg.TogoTSErrorMode = mode
		default:
			return fmt.Errorf("config: Server.togo_ts_error_mode: invalid value %q", v)
		}
	}
	if v := sec.get("togo_ts_max_retries", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: Server.togo_ts_max_retries: %w", err)
		}
		cfg.TogoTSMaxRetries = n
	}
	if v := sec.get("togo_save_txt", ""); v != "" {
		cfg.TogoSaveTxt = parseBool(v, cfg.TogoSaveTxt)
	}
	if v := sec.get("togo_decode", ""); v != "" {
		cfg.TogoDecode = parseBool(v, cfg.TogoDecode)
	}
	if v := sec.get("togo_sortable_names", ""); v != "" {
		cfg.TogoSortableNames = parseBool(v, cfg.TogoSortableNames)
	}
	cfg.Zeroconf = sec.get("zeroconf", cfg.Zeroconf)

	if v := sec.get("beacon", ""); v != "" {
		fields := strings.Fields(v)
		var addrs []string
		listen := cfg.BeaconListen
		for _, f := range fields {
			if strings.EqualFold(f, "listen") {
				listen = true
				continue
			}
			addrs = append(addrs, f)
		}
		cfg.BeaconAddrs = addrs
		cfg.BeaconListen = listen
	}
	if v := sec.get("allowedips", ""); v != "" {
		cfg.AllowedIPs = strings.Fields(v)
	}
	return nil
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mergeStreamProfileSection(cfg *Config, model string, sec *iniSection) {
	p := cfg.StreamProfiles[model]
	p.Name = model
	if v := sec.get("max_width", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxWidth = n
		}
	}
	if v := sec.get("max_height", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxHeight = n
		}
	}
	if v := sec.get("max_bitrate_kbps", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxBitrateKbps = n
		}
	}
	if v := sec.get("audio_codecs", ""); v != "" {
		p.AudioCodecs = splitCSV(v)
	}
	if v := sec.get("ts_capable", ""); v != "" {
		p.TSCapable = parseBool(v, p.TSCapable)
	} else if model != "SD" {
		p.TSCapable = true
	}
	cfg.StreamProfiles[model] = p
}

func mergeTSNSection(cfg *Config, tsn string, sec *iniSection) {
	ov := cfg.TSNOverrides[tsn]
	ov.TSN = tsn
	ov.MAK = sec.get("tivo_mak", ov.MAK)
	if v := sec.get("shares", ""); v != "" {
		ov.Shares = splitCSV(v)
	}
	cfg.TSNOverrides[tsn] = ov
}

func shareFromSection(name string, sec *iniSection) (Share, error) {
	s := Share{Name: name, Path: sec.get("path", "")}
	kind := ShareKind(strings.ToLower(sec.get("type", "video")))
	switch kind {
	case ShareVideo, ShareMusic, SharePhotos, ShareSettings, ShareToGo, ShareDesktop:
		s.Kind = kind
	default:
		return Share{}, fmt.Errorf("config: share %q: unknown type %q", name, kind)
	}

	s.Recurse = Recurse{Enabled: parseBool(sec.get("recurse", "false"), false)}
	s.AlphaSort = parseBool(sec.get("alpha_sort", "true"), true)
	s.ForceFFmpeg = parseBool(sec.get("force_ffmpeg", "false"), false)
	return s, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
