package upload

import (
	"path/filepath"
	"strings"

	"github.com/pytivogo/bridge/internal/config"
)

// mimeVideoTS is the transport-stream delivery mime QueryFormats advertises
// only for TSN-capable TiVos (spec.md §4.3's "video/x-tivo-mpeg-ts" entry).
const mimeVideoTS = "video/x-tivo-mpeg-ts"

// audioExtCodec maps a source file's extension to the audio codec it is
// assumed to carry. Real codec probing is a file-format extractor
// dependency this module does not implement (spec.md §2 Non-goals); this
// is the filename-derived heuristic spec.md §4.4's stream-profile lookup
// runs against instead.
var audioExtCodec = map[string]string{
	".ac3":  "ac3",
	".eac3": "eac3",
	".aac":  "aac",
	".m4a":  "aac",
	".mp3":  "mp3",
	".mp4":  "aac",
	".m4v":  "aac",
	".mkv":  "ac3",
	".ts":   "ac3",
	".mpg":  "ac3",
	".mpeg": "ac3",
}

// resolutionHints orders filename markers (as pyTivo-adjacent tools commonly
// embed them, e.g. "Show - 1080p.mpg") from highest to lowest bitrate class,
// each paired with the bitrate ceiling (kbps) a file of that class typically
// needs.
var resolutionHints = []struct {
	marker      string
	bitrateKbps int
}{
	{"2160p", 40000},
	{"4k", 40000},
	{"1080p", 16000},
	{"720p", 8000},
	{"480p", 4000},
}

// StreamProfileCompat is the TranscoderInfo spec.md §4.4 delegates codec
// compatibility decisions to: it consults the requesting TiVo's stream
// profile (resolution, bitrate ceiling, audio codec whitelist) rather than
// a fixed boolean, using filename-derived hints in place of the real codec
// probing this module does not implement.
type StreamProfileCompat struct {
	Config *config.Config
}

// Compatible implements TranscoderInfo.
func (s StreamProfileCompat) Compatible(path, tsn, mime string) (bool, error) {
	profile := s.Config.StreamProfileFor(tsn)

	if mime == mimeVideoTS && !profile.TSCapable {
		return false, nil
	}

	if codec, ok := audioExtCodec[strings.ToLower(filepath.Ext(path))]; ok {
		if len(profile.AudioCodecs) > 0 && !containsFold(profile.AudioCodecs, codec) {
			return false, nil
		}
	}

	if profile.MaxBitrateKbps > 0 {
		if hint, ok := bitrateHintKbps(path); ok && hint > profile.MaxBitrateKbps {
			return false, nil
		}
	}

	return true, nil
}

// bitrateHintKbps guesses a file's encoded bitrate class from a resolution
// marker in its name, falling back to reporting no hint when none is
// found — a file this module cannot classify is passed through rather than
// rejected, matching spec.md §4.4's "default to compatible" fallback.
func bitrateHintKbps(path string) (int, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, h := range resolutionHints {
		if strings.Contains(name, h.marker) {
			return h.bitrateKbps, true
		}
	}
	return 0, false
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
