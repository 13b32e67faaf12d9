package tvxml

import (
	"net/http"
	"strconv"
	"strings"
)

// SortOrder is the TiVo QueryContainer SortOrder value.
type SortOrder string

const (
	SortNone           SortOrder = ""
	SortLastCaptureDate SortOrder = "!CaptureDate"
	SortCaptureDate     SortOrder = "CaptureDate"
	SortAlphabetical    SortOrder = "Title"
	SortAlphabeticalRev SortOrder = "!Title"
)

// Paging holds the QueryContainer paging parameters spec.md §4.3 describes:
// "Dispatch to the share's handler with parsed paging: ItemCount, AnchorItem,
// AnchorOffset, SortOrder, Recurse."
type Paging struct {
	ItemCount    int
	AnchorItem   string
	AnchorOffset int
	SortOrder    SortOrder
	Recurse      bool
}

// ParsePaging reads the paging parameters out of a QueryContainer request's
// query string. Unrecognized or malformed numeric values keep their
// defaults (-1, unbounded, for ItemCount; 0 for AnchorOffset) rather than
// erroring, matching the original server's lenient int() coercion.
func ParsePaging(q map[string][]string) Paging {
	p := Paging{ItemCount: -1}
	if v := first(q, "ItemCount"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.ItemCount = n
		}
	}
	p.AnchorItem = first(q, "AnchorItem")
	if v := first(q, "AnchorOffset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.AnchorOffset = n
		}
	}
	p.SortOrder = SortOrder(first(q, "SortOrder"))
	p.Recurse = strings.EqualFold(first(q, "Recurse"), "Yes") || strings.EqualFold(first(q, "Recurse"), "true")
	return p
}

func first(q map[string][]string, key string) string {
	vs := q[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// TSNFromRequest extracts the requesting TiVo's TSN from the headers the
// protocol actually sends it in: TiVo_TCD_ID first, the legacy tsn header
// second (spec.md §4.3, "TSN extraction").
func TSNFromRequest(r *http.Request) string {
	if v := r.Header.Get("TiVo_TCD_ID"); v != "" {
		return strings.Trim(v, "{}")
	}
	if v := r.Header.Get("tsn"); v != "" {
		return strings.Trim(v, "{}")
	}
	return ""
}
