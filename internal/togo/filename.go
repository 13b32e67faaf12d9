// Package togo implements the ToGo pull-download engine: per-TiVo FIFO
// queues, one worker goroutine per TiVo, HTTP Digest auth against the
// TiVo's own HTTPS server, transport-stream integrity checking, the
// best-of-N retry policy, and the output filename policy (spec.md §4.5).
// Grounded on original_source/plugins/togo/togo.py for exact queue/worker
// semantics and on the teacher's per-key worker/retry idiom
// (subculture-collective-vod-tender/backend/vod/concurrency.go).
package togo

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metadata is the subset of a recording's extended details the naming
// policy needs. Title == "" signals the "no metadata" fallback branch of
// spec.md §4.5.1.
type Metadata struct {
	Title        string
	EpisodeTitle string
	RecordDate   time.Time
	Callsign     string
}

// Container selects the suffix/extension rule of spec.md §4.5.1:
// decoded+TS -> .ts, decoded+PS -> .mpg, raw+TS -> " (TS).tivo", raw+PS -> " (PS).tivo".
type Container struct {
	Decoded bool
	TS      bool
}

func (c Container) suffix() string {
	switch {
	case c.Decoded && c.TS:
		return ".ts"
	case c.Decoded && !c.TS:
		return ".mpg"
	case !c.Decoded && c.TS:
		return " (TS).tivo"
	default:
		return " (PS).tivo"
	}
}

// forbidden is the filename character substitution table of spec.md §4.5.1.
var forbidden = []struct {
	from string
	to   string
}{
	{`\`, "-"},
	{"/", "-"},
	{":", " -"},
	{";", ","},
	{"*", "."},
	{"?", "."},
	{"!", "."},
	{`"`, "'"},
	{"<", "("},
	{">", ")"},
	{"|", " "},
}

func sanitize(name string) string {
	for _, r := range forbidden {
		name = strings.ReplaceAll(name, r.from, r.to)
	}
	return name
}

// baseName builds the unsuffixed, unsanitized candidate name for meta and
// useHuman, per spec.md §4.5.1's sortable/human forms.
func baseName(meta Metadata, useHuman bool) string {
	if useHuman {
		name := meta.Title
		if meta.EpisodeTitle != "" {
			name += fmt.Sprintf(" - ''%s''", meta.EpisodeTitle)
		}
		recorded := fmt.Sprintf("(Recorded %s", meta.RecordDate.Format("Jan 2, 2006"))
		if meta.Callsign != "" {
			recorded += ", " + meta.Callsign
		}
		recorded += ")"
		return name + " " + recorded
	}

	name := fmt.Sprintf("%s - %s", meta.Title, meta.RecordDate.Format("2006-01-02"))
	if meta.EpisodeTitle != "" {
		name += fmt.Sprintf(" - ''%s''", meta.EpisodeTitle)
	}
	if meta.Callsign != "" {
		name += fmt.Sprintf(" (%s)", meta.Callsign)
	}
	return name
}

// fallbackName builds the no-metadata name: the URL's last path component
// with its "id=" query value appended, per the original get_out_file.
func fallbackName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	base := filepath.Base(u.Path)
	if id := u.Query().Get("id"); id != "" {
		ext := filepath.Ext(base)
		base = strings.TrimSuffix(base, ext) + " - " + id + ext
	}
	return base
}

// exists reports whether path names an existing file, as a function value
// so tests can substitute a fake filesystem check.
type existsFunc func(path string) bool

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// BuildOutputPath implements spec.md §4.5.1 end to end: choose sortable or
// human naming (or the URL fallback when meta has no title), append the
// container suffix, disambiguate against existing files with " (N)", then
// substitute forbidden characters.
func BuildOutputPath(dir string, meta Metadata, rawURL string, container Container, useHuman bool) string {
	return buildOutputPath(dir, meta, rawURL, container, useHuman, fileExists)
}

func buildOutputPath(dir string, meta Metadata, rawURL string, container Container, useHuman bool, exists existsFunc) string {
	var stem string
	if meta.Title != "" {
		stem = baseName(meta, useHuman)
	} else {
		full := fallbackName(rawURL)
		stem = strings.TrimSuffix(full, filepath.Ext(full))
	}

	suffix := container.suffix()
	candidate := filepath.Join(dir, sanitize(stem+suffix))
	if !exists(candidate) {
		return candidate
	}

	for n := 2; ; n++ {
		candidate = filepath.Join(dir, sanitize(fmt.Sprintf("%s (%d)%s", stem, n, suffix)))
		if !exists(candidate) {
			return candidate
		}
	}
}
