// Package config loads pytivogo's INI-style configuration file (the same
// grammar as the original pyTivo tool: a [Server] section, per-model
// [_tivo_SD]/[_tivo_HD]/[_tivo_4K] stream profile sections, per-TSN
// [_tivo_<id>] sections, and one section per configured share) and merges
// it with environment-variable overrides.
package config

import "time"

// TSErrorMode controls how a ToGo download reacts to transport-stream
// sync-byte loss. See spec §4.5 "TS error policy".
type TSErrorMode string

const (
	TSErrorIgnore TSErrorMode = "ignore"
	TSErrorBest   TSErrorMode = "best"
	TSErrorReject TSErrorMode = "reject"
)

// ShareKind is the content type a Share advertises.
type ShareKind string

const (
	ShareVideo    ShareKind = "video"
	ShareMusic    ShareKind = "music"
	SharePhotos   ShareKind = "photos"
	ShareSettings ShareKind = "settings"
	ShareToGo     ShareKind = "togo"
	ShareDesktop  ShareKind = "desktop"
)

// Recurse describes a share's directory recursion policy: whether
// QueryContainer descends into subdirectories of the share's own tree
// (plugins/video/video.py's allow_recurse).
type Recurse struct {
	Enabled bool
}

// Share is one advertised/served content root.
type Share struct {
	Name        string
	Kind        ShareKind
	Path        string
	Recurse     Recurse
	AlphaSort   bool
	ForceFFmpeg bool
}

// ContentType returns the TiVo container content-type string for this
// share's kind ("x-container/tivo-videos", etc.), or "" for kinds that are
// not enumerable containers (togo, desktop).
func (s Share) ContentType() string {
	switch s.Kind {
	case ShareVideo:
		return "x-container/tivo-videos"
	case ShareMusic:
		return "x-container/tivo-music"
	case SharePhotos:
		return "x-container/tivo-photos"
	default:
		return ""
	}
}

// StreamProfile describes a TiVo model class's transcode target, looked up
// by TSN prefix to decide upload-engine compatibility (spec §4.4, the
// distilled "transcoder compatible" boolean expanded per SPEC_FULL.md).
type StreamProfile struct {
	Name            string
	MaxWidth        int
	MaxHeight       int
	MaxBitrateKbps  int
	AudioCodecs     []string
	TSCapable       bool
}

// TSNOverride is a per-TiVo [_tivo_<TSN>] section: an access-control list
// of share names and/or a dedicated MAK override.
type TSNOverride struct {
	TSN    string
	MAK    string
	Shares []string // empty = inherit global allow-list
}

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	Version  string
	LogLevel string

	// Server
	Port              int
	TivoMAK           string
	TogoPath          string
	TogoTSN           string
	TogoTSErrorMode   TSErrorMode
	TogoTSMaxRetries  int
	TogoSaveTxt       bool
	TogoDecode        bool
	TogoSortableNames bool
	Zeroconf          string // "auto", "true", "false"
	BeaconAddrs       []string
	BeaconListen      bool
	AllowedIPs        []string

	// Sub-sections
	Shares         []Share
	StreamProfiles map[string]StreamProfile
	TSNOverrides   map[string]TSNOverride

	// Derived
	HasTSNShareACL bool // true if any TSNOverride restricts Shares

	// Timeouts carried as knobs rather than constants so tests can shrink them.
	UploadIdleTimeout  time.Duration
	BeaconInterval     time.Duration
	ZeroconfScanWindow time.Duration
}

// ShareByName looks up a share by its configured name.
func (c *Config) ShareByName(name string) (Share, bool) {
	for _, s := range c.Shares {
		if s.Name == name {
			return s, true
		}
	}
	return Share{}, false
}

// StreamProfileFor resolves the stream profile for a TSN using the same
// prefix rule QueryFormats uses for TS capability (spec §4.3): TSNs
// beginning with a digit >= '7', or with "663", are treated as HD/4K-class;
// everything else falls back to SD.
func (c *Config) StreamProfileFor(tsn string) StreamProfile {
	class := "SD"
	if IsTSCapableTSN(tsn) {
		class = "HD"
	}
	if p, ok := c.StreamProfiles[class]; ok {
		return p
	}
	return StreamProfile{Name: class, TSCapable: IsTSCapableTSN(tsn)}
}

// IsTSCapableTSN reports whether tsn belongs to a TiVo generation that can
// receive transport-stream (.ts) pushes rather than only program-stream
// (.mpg), per spec.md §4.3's QueryFormats rule: Series4+ boxes (TSN prefix
// "7", "8", "9") and the "663..." Roamio/Bolt numbering are TS-capable.
func IsTSCapableTSN(tsn string) bool {
	if len(tsn) == 0 {
		return false
	}
	if len(tsn) >= 3 && tsn[:3] == "663" {
		return true
	}
	return tsn[0] >= '7' && tsn[0] <= '9'
}
