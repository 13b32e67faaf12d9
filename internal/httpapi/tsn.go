package httpapi

import (
	"net/http"

	"github.com/pytivogo/bridge/internal/beacon"
	"github.com/pytivogo/bridge/internal/registry"
	"github.com/pytivogo/bridge/internal/tvxml"
)

// resolveTSN implements spec.md §4.3's "TSN extraction" rule: pull the TSN
// out of the request, and lazily populate the TiVo registry for a TSN seen
// for the first time, filling address from the caller's IP and name from a
// beacon exchange with that address.
func resolveTSN(r *http.Request, tivos *registry.TiVoRegistry) string {
	tsn := tvxml.TSNFromRequest(r)
	if tsn == "" {
		return ""
	}
	if _, known := tivos.Get(tsn); known {
		return tsn
	}
	ip := callerIP(r)
	tivos.Upsert(registry.TiVo{TSN: tsn, Address: ip, Name: beacon.GetName(ip)})
	return tsn
}
