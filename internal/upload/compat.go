// Package upload implements the TiVo-facing upload engine (spec.md §4.4):
// the compatibility decision, TiVo header synthesis for non-native
// delivery, and range/chunked file serving. Grounded on the teacher's
// `internal/api/fileserver.go` range-serving and path-traversal defenses,
// generalized to also emit synthesized ".tivo" headers and relay a
// transcoder's chunked output.
package upload

// TranscoderInfo is the "transcoder info API" spec.md §4.4 delegates codec
// compatibility decisions to. file-format/codec introspection itself is out
// of scope (spec.md §2 Non-goals); callers supply a concrete implementation.
type TranscoderInfo interface {
	// Compatible reports whether path's audio/video codecs already match
	// the TiVo profile for tsn when delivered as mime, without any
	// transcoding.
	Compatible(path, tsn, mime string) (bool, error)
}

// SourceInfo describes the file being served, as much as the upload engine
// itself needs to know without a full metadata extraction.
type SourceInfo struct {
	IsTivoFile      bool // source has a .tivo extension/container
	IsTS            bool // requested mime is the transport-stream variant
	EncryptedDRM    bool // .tivo file is DRM-encrypted
	HaveLiveDecrypt bool // a live-decrypt subprocess is configured
	SizeKnown       bool
}

const mimeVideoMPEG = "video/mpeg"

// NeedsConversion implements spec.md §4.4's formula:
//
//	needsConversion = isTivoFile && (isTS || !haveLiveDecrypt) && mime == video/mpeg
func NeedsConversion(src SourceInfo, mime string) bool {
	return src.IsTivoFile && (src.IsTS || !src.HaveLiveDecrypt) && mime == mimeVideoMPEG
}

// Compatible decides whether path can stream directly to tsn as mime,
// applying spec.md §4.4's four-part test and the needsConversion/
// transcoderCompatible formula:
//
//	compatible = !needsConversion && transcoderCompatible(path, tsn, mime)
func Compatible(src SourceInfo, path, tsn, mime string, info TranscoderInfo) (bool, error) {
	if !src.SizeKnown {
		return false, nil
	}
	if src.EncryptedDRM && mime == mimeVideoMPEG && !src.HaveLiveDecrypt {
		return false, nil
	}
	if NeedsConversion(src, mime) {
		return false, nil
	}
	return info.Compatible(path, tsn, mime)
}
