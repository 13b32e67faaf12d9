package upload

import (
	"testing"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		StreamProfiles: map[string]config.StreamProfile{
			"SD": {Name: "SD", MaxBitrateKbps: 8000, AudioCodecs: []string{"ac3", "mp2"}, TSCapable: false},
			"HD": {Name: "HD", MaxBitrateKbps: 20000, AudioCodecs: []string{"ac3", "aac"}, TSCapable: true},
		},
	}
}

func TestStreamProfileCompatRejectsTSForNonTSCapableTSN(t *testing.T) {
	info := StreamProfileCompat{Config: testConfig()}
	ok, err := info.Compatible("/media/show.mpg", "540000000000001", mimeVideoTS)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamProfileCompatAllowsTSForTSCapableTSN(t *testing.T) {
	info := StreamProfileCompat{Config: testConfig()}
	ok, err := info.Compatible("/media/show.ts", "746000000000001", mimeVideoTS)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStreamProfileCompatRejectsCodecOutsideWhitelist(t *testing.T) {
	info := StreamProfileCompat{Config: testConfig()}
	ok, err := info.Compatible("/media/show.mp3", "540000000000001", "video/mpeg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamProfileCompatRejectsBitrateAboveCeiling(t *testing.T) {
	info := StreamProfileCompat{Config: testConfig()}
	ok, err := info.Compatible("/media/Show - 2160p.ac3", "540000000000001", "video/mpeg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamProfileCompatDefaultsToCompatibleWithoutHints(t *testing.T) {
	info := StreamProfileCompat{Config: testConfig()}
	ok, err := info.Compatible("/media/show.mov", "540000000000001", "video/mpeg")
	require.NoError(t, err)
	assert.True(t, ok)
}
