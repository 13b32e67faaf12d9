package togo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestBuildOutputPathScenario4 reproduces end-to-end scenario 4 literally.
func TestBuildOutputPathScenario4(t *testing.T) {
	meta := Metadata{
		Title:        "Show",
		EpisodeTitle: "Pilot",
		RecordDate:   time.Date(2023, 4, 1, 20, 0, 0, 0, time.UTC),
		Callsign:     "KXYZ",
	}
	container := Container{Decoded: true, TS: true}

	callCount := 0
	exists := func(path string) bool {
		callCount++
		return callCount == 1 // the un-suffixed candidate exists once
	}

	got := buildOutputPath("/togo", meta, "", container, false, exists)
	assert.Equal(t, "/togo/Show - 2023-04-01 - ''Pilot'' (KXYZ) (2).ts", got)
}

func TestBuildOutputPathNoCollision(t *testing.T) {
	meta := Metadata{Title: "Show", RecordDate: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)}
	got := buildOutputPath("/togo", meta, "", Container{Decoded: true, TS: false}, false, func(string) bool { return false })
	assert.Equal(t, "/togo/Show - 2023-04-01.mpg", got)
}

func TestBuildOutputPathRawTSSuffix(t *testing.T) {
	meta := Metadata{Title: "Show", RecordDate: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)}
	got := buildOutputPath("/togo", meta, "", Container{Decoded: false, TS: true}, false, func(string) bool { return false })
	assert.Equal(t, "/togo/Show - 2023-04-01 (TS).tivo", got)
}

func TestBuildOutputPathRawPSSuffix(t *testing.T) {
	meta := Metadata{Title: "Show", RecordDate: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)}
	got := buildOutputPath("/togo", meta, "", Container{Decoded: false, TS: false}, false, func(string) bool { return false })
	assert.Equal(t, "/togo/Show - 2023-04-01 (PS).tivo", got)
}

func TestBuildOutputPathHumanForm(t *testing.T) {
	meta := Metadata{
		Title:        "Show",
		EpisodeTitle: "Pilot",
		RecordDate:   time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		Callsign:     "KXYZ",
	}
	got := buildOutputPath("/togo", meta, "", Container{Decoded: true, TS: true}, true, func(string) bool { return false })
	assert.Equal(t, "/togo/Show - ''Pilot'' (Recorded Apr 1, 2023, KXYZ).ts", got)
}

func TestBuildOutputPathFallbackToURL(t *testing.T) {
	got := buildOutputPath("/togo", Metadata{}, "https://tivo/NowPlaying/Detail?id=abc123", Container{Decoded: true, TS: false}, false, func(string) bool { return false })
	assert.Equal(t, "/togo/Detail - abc123.mpg", got)
}

func TestSanitizeForbiddenCharacters(t *testing.T) {
	got := sanitize(`a\b/c:d;e*f?g!h"i<j>k|l`)
	assert.Equal(t, "a-b-c -d,e.f.g.h'i(j)k l", got)
}
