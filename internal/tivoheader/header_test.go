package tivoheader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildTotalPaddedLenScenario2 reproduces end-to-end scenario 2
// literally: a 100-byte details document yields a 1024-byte header.
func TestBuildTotalPaddedLenScenario2(t *testing.T) {
	details := bytes.Repeat([]byte("a"), 100)
	require.Len(t, details, 100)

	got := TotalPaddedLen(details)
	assert.Equal(t, 1024, got)

	header := Build(details, MimePS)
	// header = TotalPaddedLen() bytes in all; the 16-byte fixed prelude is
	// part of that length.
	assert.Equal(t, 1024, len(header))
}

func TestBuildTotalPaddedLenAlwaysDivisibleBy1024(t *testing.T) {
	for _, n := range []int{0, 1, 4, 99, 100, 1000, 4096} {
		details := make([]byte, n)
		got := TotalPaddedLen(details)
		assert.Zero(t, got%1024, "len=%d produced non-1024-aligned %d", n, got)
	}
}

func TestBuildHeaderLayout(t *testing.T) {
	details := []byte("<TvBusEnvelope/>")
	header := Build(details, MimeTS)

	assert.Equal(t, "TiVo", string(header[0:4]))
	version := binary.BigEndian.Uint16(header[4:6])
	flag := binary.BigEndian.Uint16(header[6:8])
	reserved := binary.BigEndian.Uint16(header[8:10])
	totalPaddedLen := binary.BigEndian.Uint32(header[10:14])
	chunkCount := binary.BigEndian.Uint16(header[14:16])

	assert.Equal(t, uint16(4), version)
	assert.Equal(t, uint16(flagTS), flag)
	assert.Equal(t, uint16(0), reserved)
	assert.Zero(t, totalPaddedLen%1024)
	assert.Equal(t, uint16(2), chunkCount)

	chunk1ID := binary.BigEndian.Uint16(header[24:26])
	assert.Equal(t, uint16(1), chunk1ID)
}

func TestBuildPSFlag(t *testing.T) {
	header := Build([]byte("x"), MimePS)
	flag := binary.BigEndian.Uint16(header[6:8])
	assert.Equal(t, uint16(flagPS), flag)
}

func TestRenderDetailsContainsTitle(t *testing.T) {
	out, err := RenderDetails(VideoMetadata{Title: "Show", EpisodeTitle: "Pilot"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<title>Show</title>")
	assert.Contains(t, string(out), "<episodeTitle>Pilot</episodeTitle>")
}

func TestDetailsCacheCollapsesAndEvicts(t *testing.T) {
	calls := 0
	cache := NewDetailsCache(func(tsn, path string) ([]byte, error) {
		calls++
		return []byte(tsn + path), nil
	})

	v1, err := cache.Get("tsn1", "/a")
	require.NoError(t, err)
	assert.Equal(t, "tsn1/a", string(v1))

	v2, err := cache.Get("tsn1", "/a")
	require.NoError(t, err)
	assert.Equal(t, "tsn1/a", string(v2))
	assert.Equal(t, 1, calls, "second Get for the same key must hit cache")

	v3, err := cache.Get("tsn1", "/b")
	require.NoError(t, err)
	assert.Equal(t, "tsn1/b", string(v3))
	assert.Equal(t, 2, calls, "LRU(1) must evict on a different key")

	cache.Invalidate("tsn1", "/b")
	_, err = cache.Get("tsn1", "/b")
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "Invalidate must force a re-fetch")
}
