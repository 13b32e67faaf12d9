// Package metrics provides Prometheus metrics for every pytivogo component,
// wired promauto-style the way ManuGH-xg2g/internal/api/metrics.go does.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Beacon

	BeaconBroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_beacon_broadcasts_total",
		Help: "Total number of UDP beacon broadcasts sent.",
	})
	BeaconDirectConnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_beacon_direct_connects_total",
		Help: "Total number of TCP direct-connect beacon exchanges accepted.",
	})

	// Zeroconf

	ZeroconfRegisteredRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pytivogo_zeroconf_registered_records",
		Help: "Number of zeroconf service records currently registered.",
	})
	ZeroconfScanDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_zeroconf_scan_discovered_total",
		Help: "Total number of TiVos discovered via zeroconf scans.",
	})

	// HTTP / upload engine

	UploadRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pytivogo_upload_requests_total",
		Help: "Total upload requests by outcome (compatible, transcoded, denied, repeat_offset).",
	}, []string{"outcome"})
	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_upload_bytes_total",
		Help: "Total bytes written to TiVos by the upload engine.",
	})
	UploadActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pytivogo_upload_active",
		Help: "Number of uploads currently streaming.",
	})

	// ToGo download engine

	DownloadsEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_downloads_enqueued_total",
		Help: "Total ToGo downloads enqueued.",
	})
	DownloadsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pytivogo_downloads_completed_total",
		Help: "Total ToGo downloads completed by outcome (success, error, cancelled).",
	}, []string{"outcome"})
	DownloadsActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pytivogo_downloads_active_workers",
		Help: "Number of per-TiVo ToGo worker goroutines currently running.",
	})
	DownloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_download_bytes_total",
		Help: "Total bytes pulled from TiVos by the ToGo engine.",
	})
	TSSyncLossTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_ts_sync_loss_total",
		Help: "Total transport-stream sync-byte losses detected across all downloads.",
	})
	DownloadRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_download_retries_total",
		Help: "Total ToGo download retries triggered by the TS error policy.",
	})

	// Status registry

	StatusSweepEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pytivogo_status_sweep_evicted_total",
		Help: "Total upload status entries evicted by the 24h TTL sweep.",
	})
)
