package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pytivogo/bridge/internal/beacon"
	"github.com/pytivogo/bridge/internal/config"
	"github.com/pytivogo/bridge/internal/httpapi"
	xlog "github.com/pytivogo/bridge/internal/log"
	"github.com/pytivogo/bridge/internal/registry"
	"github.com/pytivogo/bridge/internal/sleepinhibit"
	"github.com/pytivogo/bridge/internal/status"
	"github.com/pytivogo/bridge/internal/tivoheader"
	"github.com/pytivogo/bridge/internal/togo"
	"github.com/pytivogo/bridge/internal/upload"
	"github.com/pytivogo/bridge/internal/zeroconf"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (INI)")
	logLevel := flag.String("loglevel", "", "override the configured log level")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pytivogo %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	xlog.Configure(xlog.Config{Level: "info", Service: "pytivogo"})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		effectiveConfigPath = strings.TrimSpace(os.Getenv("PYTIVOGO_CONFIG"))
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Str("path", effectiveConfigPath).Msg("failed to load configuration")
	}

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "pytivogo"})

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Int("port", cfg.Port).
		Int("shares", len(cfg.Shares)).
		Str("zeroconf", cfg.Zeroconf).
		Msg("starting pytivogo")

	tivos := registry.NewTiVoRegistry()
	shares := registry.NewShareRegistry(cfg.Shares)
	uploads := status.NewUploadRegistry()
	downloads := status.NewDownloadRegistry()

	lookup := &tivoLookup{cfg: cfg, tivos: tivos}

	worker := &togo.Worker{
		Client:     togo.NewClient,
		Lookup:     lookup,
		OutputDir:  func(string) string { return cfg.TogoPath },
		ErrorMode:  cfg.TogoTSErrorMode,
		MaxRetries: cfg.TogoTSMaxRetries,
	}
	inhibit := sleepinhibit.Inhibitor(sleepinhibit.NoOp{})
	togoManager := togo.NewManager(worker, inhibit)
	worker.Manager = togoManager

	lister := &httpapi.DirLister{Shares: shares}

	handlersByShare := buildShareHandlers(cfg, uploads)

	server := &httpapi.Server{
		Config:    cfg,
		TiVos:     tivos,
		Shares:    shares,
		Uploads:   uploads,
		Downloads: downloads,
		Togo:      togoManager,
		Lister:    lister,
		ShareHandler: func(name string) (*upload.Handler, bool) {
			h, ok := handlersByShare[name]
			return h, ok
		},
		Inhibit: inhibit,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: server.NewRouter()}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info().Str("event", "http.listening").Str("addr", addr).Msg("TiVoConnect HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	hostIP := localIP()
	advertiser := zeroconf.NewAdvertiser(hostIP, cfg.Port)

	if !zeroconf.Disabled(cfg) {
		observed, err := zeroconf.Scan(ctx, cfg.ZeroconfScanWindow, tivos)
		if err != nil {
			logger.Warn().Err(err).Msg("initial zeroconf scan failed")
			observed = map[string]bool{}
		}
		advertiser.RegisterDesktop()
		for _, share := range shares.All() {
			advertiser.RegisterShare(share, observed, cfg.TogoTSN)
		}
		group.Go(func() error {
			return advertiser.Serve(gctx)
		})
	} else {
		logger.Info().Str("event", "zeroconf.disabled").Msg("zeroconf advertisement disabled by configuration")
	}

	if len(cfg.BeaconAddrs) > 0 {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "pytivogo"
		}
		guid := uuid.NewString()
		b := beacon.New(guid, hostname, hasMusicOrPhotos(cfg.Shares), nil)
		group.Go(func() error {
			b.Run(gctx, cfg.BeaconAddrs)
			return nil
		})
		if cfg.BeaconListen {
			group.Go(func() error {
				return b.ListenDirectConnect(gctx)
			})
		}
	}

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("pytivogo exited with error")
	}
	logger.Info().Msg("pytivogo exiting")
}

// tivoLookup adapts the registry and configuration to togo.TivoLookup.
type tivoLookup struct {
	cfg   *config.Config
	tivos *registry.TiVoRegistry
}

func (l *tivoLookup) TSN(ip string) string {
	if t, ok := l.tivos.ByAddress(ip); ok {
		return t.TSN
	}
	return l.cfg.TogoTSN
}

func (l *tivoLookup) MAK(ip string) string {
	if tsn := l.TSN(ip); tsn != "" {
		if ov, ok := l.cfg.TSNOverrides[tsn]; ok && ov.MAK != "" {
			return ov.MAK
		}
	}
	return l.cfg.TivoMAK
}

func (l *tivoLookup) Name(ip string) string {
	if t, ok := l.tivos.ByAddress(ip); ok && t.Name != "" {
		return t.Name
	}
	return beacon.GetName(ip)
}

// buildShareHandlers constructs one upload.Handler per configured share
// whose content is servable to a TiVo (every kind except the "togo" share,
// which is download-only). Compatibility decisions go through
// upload.StreamProfileCompat, which consults the requesting TiVo's
// per-TSN stream profile (resolution/bitrate ceiling/audio codec
// whitelist) instead of a fixed boolean; real codec probing is a
// file-format extractor dependency this module does not implement
// (spec.md §2 Non-goals), so the profile is checked against
// filename-derived hints.
func buildShareHandlers(cfg *config.Config, uploads *status.UploadRegistry) map[string]*upload.Handler {
	out := make(map[string]*upload.Handler, len(cfg.Shares))
	info := upload.StreamProfileCompat{Config: cfg}
	for _, share := range cfg.Shares {
		if share.Kind == config.ShareToGo {
			continue
		}
		out[share.Name] = &upload.Handler{
			Root:    share.Path,
			Details: tivoheader.NewDetailsCache(fetchDetailsByFilename),
			Info:    info,
			Status:  uploads,
		}
	}
	return out
}

// fetchDetailsByFilename renders a minimal TvBus details document titled
// after path's base name; real codec/episode metadata extraction is a
// file-format extractor dependency this module does not implement (spec.md
// §2 Non-goals).
func fetchDetailsByFilename(tsn, path string) ([]byte, error) {
	title := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		title = path[i+1:]
	}
	return tivoheader.RenderDetails(tivoheader.VideoMetadata{Title: title})
}

func hasMusicOrPhotos(shares []config.Share) bool {
	for _, s := range shares {
		if s.Kind == config.ShareMusic || s.Kind == config.SharePhotos {
			return true
		}
	}
	return false
}

// localIP best-effort resolves the outbound interface address zeroconf and
// the TiVoConnect links should advertise.
func localIP() net.IP {
	conn, err := net.Dial("udp", "224.0.0.1:80")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP
}
