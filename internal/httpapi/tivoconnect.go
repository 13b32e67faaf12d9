package httpapi

import (
	"net/http"
	"strings"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/pytivogo/bridge/internal/tvxml"
)

// handleTiVoConnect dispatches /TiVoConnect?Command=... per spec.md §4.3's
// command table.
func (s *Server) handleTiVoConnect(w http.ResponseWriter, r *http.Request) {
	tsn := resolveTSN(r, s.TiVos)
	if !authorize(s.Config, callerIP(r), tsn) {
		denyForbidden(w)
		return
	}

	switch r.URL.Query().Get("Command") {
	case "QueryContainer":
		s.handleQueryContainer(w, r, tsn)
	case "QueryItem":
		s.handleQueryItem(w, r, tsn)
	case "QueryFormats":
		s.handleQueryFormats(w, r, tsn)
	case "QueryServer":
		s.handleQueryServer(w, r)
	case "FlushServer", "ResetServer":
		w.WriteHeader(http.StatusOK)
	case "ToGo":
		s.handleToGoEnqueue(w, r)
	case "ToGoStop":
		s.handleToGoStop(w, r)
	case "Unqueue":
		s.handleUnqueue(w, r)
	case "GetActiveTransferCount":
		s.handleGetActiveTransferCount(w, r)
	case "GetTransferStatus":
		s.handleGetTransferStatus(w, r)
	default:
		http.Error(w, "unknown command", http.StatusBadRequest)
	}
}

func (s *Server) handleQueryContainer(w http.ResponseWriter, r *http.Request, tsn string) {
	container := r.URL.Query().Get("Container")
	container = strings.Trim(container, "/")

	if container == "" {
		doc := s.Lister.RootContainer()
		writeXML(w, doc)
		return
	}

	shareName, relPath, _ := strings.Cut(container, "/")
	share, ok := s.Config.ShareByName(shareName)
	if !ok {
		http.NotFound(w, r)
		return
	}

	paging := tvxml.ParsePaging(r.URL.Query())
	doc, err := s.Lister.ShareContainer(share, relPath, paging)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeXML(w, doc)
}

func (s *Server) handleQueryItem(w http.ResponseWriter, r *http.Request, tsn string) {
	url := r.URL.Query().Get("Url")
	shareName, relPath := splitShareURL(url)
	share, ok := s.Config.ShareByName(shareName)
	if !ok {
		http.NotFound(w, r)
		return
	}
	dir, _ := s.Lister.ShareContainer(share, parentDir(relPath), tvxml.Paging{ItemCount: -1})
	for _, item := range dir.Items {
		if item.Details.Title == baseName(relPath) {
			writeXML(w, item)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleQueryFormats(w http.ResponseWriter, r *http.Request, tsn string) {
	doc := tvxml.BuildQueryFormats(config.IsTSCapableTSN(tsn))
	writeXML(w, doc)
}

func (s *Server) handleQueryServer(w http.ResponseWriter, r *http.Request) {
	writeXML(w, tvxml.DefaultServerInfo())
}

type xmlMarshaler interface {
	Marshal() ([]byte, error)
}

func writeXML(w http.ResponseWriter, doc xmlMarshaler) {
	body, err := doc.Marshal()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Write(body)
}

func splitShareURL(url string) (share, rel string) {
	trimmed := strings.TrimPrefix(url, "/")
	share, rel, _ = strings.Cut(trimmed, "/")
	return share, rel
}

func parentDir(relPath string) string {
	i := strings.LastIndex(relPath, "/")
	if i < 0 {
		return ""
	}
	return relPath[:i]
}

func baseName(relPath string) string {
	i := strings.LastIndex(relPath, "/")
	if i < 0 {
		return relPath
	}
	return relPath[i+1:]
}
