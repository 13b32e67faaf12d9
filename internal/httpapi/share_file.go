package httpapi

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pytivogo/bridge/internal/upload"
)

// handleShareFile serves `GET /<share>/<relPath>` (spec.md §4.4): resolve
// the share by name, look up its upload.Handler, classify the source so
// the compatibility decision can run, and delegate to ServeFile.
func (s *Server) handleShareFile(w http.ResponseWriter, r *http.Request) {
	shareName := chi.URLParam(r, "share")
	relPath := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	if _, ok := s.Config.ShareByName(shareName); !ok {
		http.NotFound(w, r)
		return
	}
	if s.ShareHandler == nil {
		http.Error(w, "share serving unavailable", http.StatusServiceUnavailable)
		return
	}
	handler, ok := s.ShareHandler(shareName)
	if !ok {
		http.NotFound(w, r)
		return
	}

	tsn := resolveTSN(r, s.TiVos)
	if !authorize(s.Config, callerIP(r), tsn) {
		denyForbidden(w)
		return
	}
	tivoName := ""
	if t, ok := s.TiVos.Get(tsn); ok {
		tivoName = t.Name
	}

	mime := r.URL.Query().Get("Format")
	src := upload.SourceInfo{
		IsTivoFile: strings.EqualFold(path.Ext(relPath), ".tivo"),
		IsTS:       mime == "video/x-tivo-mpeg-ts",
	}

	handler.ServeFile(w, r, relPath, tivoName, tsn, src)
}
