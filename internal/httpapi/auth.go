package httpapi

import (
	"net"
	"net/http"
	"strings"

	"github.com/pytivogo/bridge/internal/config"
)

// authorize implements spec.md §4.3's Authorization rule: an empty
// allow-list accepts everyone; otherwise the caller's IP must start with
// one of the configured address prefixes, or tsn must name an explicit
// per-TSN config section.
func authorize(cfg *config.Config, callerIP, tsn string) bool {
	if len(cfg.AllowedIPs) == 0 {
		return true
	}
	for _, prefix := range cfg.AllowedIPs {
		if strings.HasPrefix(callerIP, prefix) {
			return true
		}
	}
	if tsn != "" {
		if _, ok := cfg.TSNOverrides[tsn]; ok {
			return true
		}
	}
	return false
}

// callerIP extracts the request's source IP, stripping the port
// net/http.Request.RemoteAddr always carries.
func callerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// denyForbidden writes spec.md §4.3's "respond 403 text/plain" denial.
func denyForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("Forbidden"))
}
