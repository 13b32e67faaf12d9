package registry

import (
	"testing"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiVoRegistryUpsertNeverOverwritesTSN(t *testing.T) {
	r := NewTiVoRegistry()
	r.Upsert(TiVo{TSN: "740000000000001", Address: "10.0.0.5", Name: "Living Room"})
	r.Upsert(TiVo{TSN: "740000000000001", Address: "10.0.0.99", Name: ""})

	got, ok := r.Get("740000000000001")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", got.Address, "address already known must not be overwritten")
	assert.Equal(t, "Living Room", got.Name)
}

func TestTiVoRegistryByAddress(t *testing.T) {
	r := NewTiVoRegistry()
	r.Upsert(TiVo{TSN: "1", Address: "10.0.0.1"})
	got, ok := r.ByAddress("10.0.0.1")
	require.True(t, ok)
	assert.Equal(t, "1", got.TSN)

	_, ok = r.ByAddress("10.0.0.2")
	assert.False(t, ok)
}

func TestShareRegistryContainers(t *testing.T) {
	r := NewShareRegistry([]config.Share{
		{Name: "Movies", Kind: config.ShareVideo},
		{Name: "Desktop", Kind: config.ShareDesktop},
		{Name: "MyShows", Kind: config.ShareVideo},
	})
	containers := r.Containers()
	require.Len(t, containers, 2)
	assert.Equal(t, "Movies", containers[0].Name)
	assert.Equal(t, "MyShows", containers[1].Name)
}

func TestShareRegistryReset(t *testing.T) {
	r := NewShareRegistry([]config.Share{{Name: "A", Kind: config.ShareVideo}})
	_, ok := r.Get("A")
	require.True(t, ok)

	r.Reset([]config.Share{{Name: "B", Kind: config.ShareVideo}})
	_, ok = r.Get("A")
	assert.False(t, ok)
	_, ok = r.Get("B")
	assert.True(t, ok)
}
