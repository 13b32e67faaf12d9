package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/pytivogo/bridge/internal/registry"
	"github.com/pytivogo/bridge/internal/status"
	"github.com/pytivogo/bridge/internal/togo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, shares []config.Share) *Server {
	t.Helper()
	cfg := &config.Config{Shares: shares}
	shareReg := registry.NewShareRegistry(shares)
	return &Server{
		Config:    cfg,
		TiVos:     registry.NewTiVoRegistry(),
		Shares:    shareReg,
		Uploads:   status.NewUploadRegistry(),
		Downloads: status.NewDownloadRegistry(),
		Togo:      togo.NewManager(recordingRunner{}, nil),
		Lister:    &DirLister{Shares: shareReg},
	}
}

type recordingRunner struct{}

func (recordingRunner) RunOne(_ context.Context, _ *togo.DownloadJob) {}

func TestHandleQueryServerReturnsFixedIdentity(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/TiVoConnect?Command=QueryServer", nil)
	w := httptest.NewRecorder()
	s.handleTiVoConnect(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Result().Body)
	assert.Contains(t, string(body), "<TiVoServer>")
}

func TestHandleQueryFormatsTSCapability(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/TiVoConnect?Command=QueryFormats", nil)
	req.Header.Set("TiVo_TCD_ID", "746000000000001")
	w := httptest.NewRecorder()
	s.handleTiVoConnect(w, req)
	body, _ := io.ReadAll(w.Result().Body)
	assert.Contains(t, string(body), "video/x-tivo-mpeg-ts")

	req2 := httptest.NewRequest(http.MethodGet, "/TiVoConnect?Command=QueryFormats", nil)
	req2.Header.Set("TiVo_TCD_ID", "540000000000001")
	w2 := httptest.NewRecorder()
	s.handleTiVoConnect(w2, req2)
	body2, _ := io.ReadAll(w2.Result().Body)
	assert.NotContains(t, string(body2), "video/x-tivo-mpeg-ts")
}

func TestHandleTiVoConnectDeniesUnlistedIP(t *testing.T) {
	s := newTestServer(t, nil)
	s.Config.AllowedIPs = []string{"10.0.0."}

	req := httptest.NewRequest(http.MethodGet, "/TiVoConnect?Command=QueryServer", nil)
	req.RemoteAddr = "192.168.1.5:1234"
	w := httptest.NewRecorder()
	s.handleTiVoConnect(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleTiVoConnectAllowsMatchingIPPrefix(t *testing.T) {
	s := newTestServer(t, nil)
	s.Config.AllowedIPs = []string{"10.0.0."}

	req := httptest.NewRequest(http.MethodGet, "/TiVoConnect?Command=QueryServer", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	w := httptest.NewRecorder()
	s.handleTiVoConnect(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleQueryContainerListsShareFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mpg"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mpg"), []byte("a"), 0o644))

	share := config.Share{Name: "Movies", Kind: config.ShareVideo, Path: dir, AlphaSort: true}
	s := newTestServer(t, []config.Share{share})

	req := httptest.NewRequest(http.MethodGet, "/TiVoConnect?Command=QueryContainer&Container=Movies", nil)
	w := httptest.NewRecorder()
	s.handleTiVoConnect(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Result().Body)
	text := string(body)
	aIdx := indexOf(text, "a.mpg")
	bIdx := indexOf(text, "b.mpg")
	require.True(t, aIdx >= 0 && bIdx >= 0)
	assert.Less(t, aIdx, bIdx, "alpha sort must list a.mpg before b.mpg")
}

func TestHandleQueryContainerRootListsShares(t *testing.T) {
	share := config.Share{Name: "Movies", Kind: config.ShareVideo, Path: t.TempDir()}
	s := newTestServer(t, []config.Share{share})

	req := httptest.NewRequest(http.MethodGet, "/TiVoConnect?Command=QueryContainer", nil)
	w := httptest.NewRecorder()
	s.handleTiVoConnect(w, req)

	body, _ := io.ReadAll(w.Result().Body)
	assert.Contains(t, string(body), "Movies")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
