package zeroconf

import (
	"net"
	"testing"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterShareRenamesOnCollision(t *testing.T) {
	a := NewAdvertiser(net.ParseIP("192.168.1.10"), 9032)
	observed := map[string]bool{"Movies": true}

	title, ok := a.RegisterShare(config.Share{Name: "Movies", Kind: config.ShareVideo}, observed, "abc")
	require.True(t, ok)
	assert.Equal(t, "Movies [2]", title)

	renamed, ok := a.RenameOf("Movies")
	require.True(t, ok)
	assert.Equal(t, "Movies [2]", renamed)
}

func TestRegisterShareNoCollision(t *testing.T) {
	a := NewAdvertiser(net.ParseIP("192.168.1.10"), 9032)
	title, ok := a.RegisterShare(config.Share{Name: "Movies", Kind: config.ShareVideo}, map[string]bool{}, "abc")
	require.True(t, ok)
	assert.Equal(t, "Movies", title)
	_, renamed := a.RenameOf("Movies")
	assert.False(t, renamed)
}

func TestRegisterShareNonContainerKindSkipped(t *testing.T) {
	a := NewAdvertiser(net.ParseIP("192.168.1.10"), 9032)
	_, ok := a.RegisterShare(config.Share{Name: "NowPlaying", Kind: config.ShareToGo}, map[string]bool{}, "abc")
	assert.False(t, ok)
}

func TestDisabledWhenTSNShareACLPresent(t *testing.T) {
	cfg := &config.Config{Zeroconf: "auto", HasTSNShareACL: true}
	assert.True(t, Disabled(cfg))

	cfg2 := &config.Config{Zeroconf: "auto", HasTSNShareACL: false}
	assert.False(t, Disabled(cfg2))

	cfg3 := &config.Config{Zeroconf: "false"}
	assert.True(t, Disabled(cfg3))
}
