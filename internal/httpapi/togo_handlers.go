package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pytivogo/bridge/internal/togo"
)

// handleToGoEnqueue implements spec.md §4.5's Enqueue API:
// POST /TiVoConnect?Command=ToGo&TiVo=<ip>&Url=<url>&decode&save&ts_format
// (Url may repeat; "for each URL: create a DownloadJob ...").
func (s *Server) handleToGoEnqueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tivoIP := q.Get("TiVo")
	if tivoIP == "" {
		http.Error(w, "missing TiVo parameter", http.StatusBadRequest)
		return
	}
	urls := q["Url"]
	if len(urls) == 0 {
		http.Error(w, "missing Url parameter", http.StatusBadRequest)
		return
	}

	_, decode := q["decode"]
	_, save := q["save"]
	_, tsFormat := q["ts_format"]

	if s.Togo == nil {
		http.Error(w, "ToGo engine unavailable", http.StatusServiceUnavailable)
		return
	}

	for _, rawURL := range urls {
		job := togo.NewDownloadJob(rawURL, tivoIP, decode, save, tsFormat)
		if s.Downloads != nil {
			s.Downloads.Put(job)
		}
		// Background, not r.Context(): the worker goroutine this spawns must
		// outlive the HTTP request that enqueued it.
		s.Togo.Enqueue(context.Background(), tivoIP, job)
	}

	w.WriteHeader(http.StatusOK)
}

// handleToGoStop cancels every job queued or running for the TiVo named by
// ?TiVo=<ip> (spec.md §4.5 "the public ToGo stop command sets running=false").
func (s *Server) handleToGoStop(w http.ResponseWriter, r *http.Request) {
	tivoIP := r.URL.Query().Get("TiVo")
	if tivoIP == "" || s.Togo == nil {
		http.Error(w, "missing TiVo parameter", http.StatusBadRequest)
		return
	}
	if s.Downloads != nil {
		for _, job := range s.Downloads.All() {
			if job.TivoIP != tivoIP {
				continue
			}
			switch job.State() {
			case togo.StateFinished, togo.StateError, togo.StateCancelled:
				continue
			}
			s.Togo.Unqueue(tivoIP, job.URL)
			job.Cancel()
		}
	}
	w.WriteHeader(http.StatusOK)
}

// handleUnqueue drops a single pending/running job from its TiVo's queue,
// per spec.md §4.5's Unqueue semantics.
func (s *Server) handleUnqueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tivoIP := q.Get("TiVo")
	url := q.Get("Url")
	if tivoIP == "" || url == "" || s.Togo == nil {
		http.Error(w, "missing TiVo/Url parameter", http.StatusBadRequest)
		return
	}
	s.Togo.Unqueue(tivoIP, url)
	if s.Downloads != nil {
		s.Downloads.Remove(url)
	}
	w.WriteHeader(http.StatusOK)
}

// handleGetActiveTransferCount answers the count of currently-running ToGo
// jobs across all TiVos.
func (s *Server) handleGetActiveTransferCount(w http.ResponseWriter, r *http.Request) {
	count := 0
	if s.Downloads != nil {
		for _, job := range s.Downloads.All() {
			if job.IsRunning() {
				count++
			}
		}
	}
	writeJSON(w, map[string]int{"count": count})
}

// transferStatusView is the JSON projection of a togo.JobSnapshot served
// by GetTransferStatus, since spec.md draws no particular wire format for
// this operational endpoint beyond "JSON" (spec.md §4.3 table header).
type transferStatusView struct {
	URL      string `json:"url"`
	State    string `json:"state"`
	Running  bool   `json:"running"`
	Rate     float64 `json:"rate"`
	Size     int64  `json:"size"`
	Error    string `json:"error,omitempty"`
	Retry    int    `json:"retry"`
}

func (s *Server) handleGetTransferStatus(w http.ResponseWriter, r *http.Request) {
	if s.Downloads == nil {
		writeJSON(w, []transferStatusView{})
		return
	}
	out := make([]transferStatusView, 0)
	for _, job := range s.Downloads.All() {
		snap := job.Snapshot()
		out = append(out, transferStatusView{
			URL: snap.URL, State: string(snap.State), Running: snap.Running,
			Rate: snap.Rate, Size: snap.Size, Error: snap.Error, Retry: snap.Retry,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
