package config

import "time"

// defaultConfig returns the baseline configuration applied before the file
// and environment layers are merged in, mirroring the teacher's
// defaults-then-file-then-env precedence (internal/config/merge_defaults.go).
func defaultConfig(version string) *Config {
	return &Config{
		Version:            version,
		LogLevel:           "info",
		Port:               9032,
		TogoTSErrorMode:    TSErrorBest,
		TogoTSMaxRetries:   2,
		TogoSaveTxt:        true,
		TogoSortableNames:  false,
		Zeroconf:           "auto",
		BeaconListen:       true,
		Shares:             nil,
		StreamProfiles:     defaultStreamProfiles(),
		TSNOverrides:       map[string]TSNOverride{},
		UploadIdleTimeout:  180 * time.Second,
		BeaconInterval:     60 * time.Second,
		ZeroconfScanWindow: 30 * time.Second,
	}
}

func defaultStreamProfiles() map[string]StreamProfile {
	return map[string]StreamProfile{
		"SD": {Name: "SD", MaxWidth: 720, MaxHeight: 480, MaxBitrateKbps: 8000,
			AudioCodecs: []string{"ac3", "mp2"}, TSCapable: false},
		"HD": {Name: "HD", MaxWidth: 1920, MaxHeight: 1080, MaxBitrateKbps: 20000,
			AudioCodecs: []string{"ac3", "aac"}, TSCapable: true},
		"4K": {Name: "4K", MaxWidth: 3840, MaxHeight: 2160, MaxBitrateKbps: 50000,
			AudioCodecs: []string{"ac3", "aac", "eac3"}, TSCapable: true},
	}
}
