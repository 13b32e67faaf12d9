package togo

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/pytivogo/bridge/internal/log"
	"github.com/pytivogo/bridge/internal/metrics"
	"github.com/pytivogo/bridge/internal/tivoheader"
)

// tsReadBlockSize is spec.md §4.5 step 7's "524,144-byte blocks (a
// multiple of 188)". 524144 / 188 = 2788 whole TS packets per block.
const tsReadBlockSize = 524144

// TivoLookup resolves the per-TiVo attributes the worker needs to open a
// pull connection: its Service Number (for TS-capability and naming), its
// MAK (Digest password), and a display name for logging.
type TivoLookup interface {
	TSN(tivoIP string) string
	MAK(tivoIP string) string
	Name(tivoIP string) string
}

// Decoder spawns the external tivodecode/tivolibre subprocess that
// decrypts a DRM .tivo stream as it is written, per spec.md §4.5 step 5.
type Decoder interface {
	Start(ctx context.Context, mak, outfile string) (stdin io.WriteCloser, wait func() error, err error)
}

// MetadataLookup resolves the naming-policy Metadata for a download URL;
// file-format/container metadata extraction itself is out of scope, so
// callers without a richer source may supply a func returning a
// zero-value Metadata, which selects the URL-fallback naming branch.
type MetadataLookup func(rawURL string) Metadata

// DetailsURLLookup resolves the TiVo's extended-details URL for a download
// URL, if one was observed in the NowPlaying listing (original_source's
// details_urls map). Returns "" when no details URL is known.
type DetailsURLLookup func(rawURL string) string

// Worker executes DownloadJobs, implementing spec.md §4.5's runOne end to
// end. cmd/pytivogo builds a single Worker and installs it as the Manager's
// Runner, so it serves every TiVo's queue.
type Worker struct {
	Client      func(mak string) *http.Client
	Lookup      TivoLookup
	OutputDir   func(tivoIP string) string
	Decoder     Decoder
	Metadata    MetadataLookup
	DetailsURL  DetailsURLLookup
	Manager     *Manager
	ErrorMode   config.TSErrorMode
	MaxRetries  int
}

// RunOne implements spec.md §4.5 "runOne": resolve the output filename,
// open the TiVo pull connection with Digest auth and 503 retry, read the
// TiVo header, stream 524144-byte blocks to the chosen sink while checking
// TS sync and sampling rate, and apply the TS error policy on completion.
func (w *Worker) RunOne(ctx context.Context, job *DownloadJob) {
	logger := log.WithComponent("togo")
	job.setRunning()

	tsn := w.Lookup.TSN(job.TivoIP)
	mak := w.Lookup.MAK(job.TivoIP)
	tivoName := w.Lookup.Name(job.TivoIP)

	meta := Metadata{}
	if w.Metadata != nil {
		meta = w.Metadata(job.URL)
	}

	ts := job.TSFormat && tsCapable(tsn)
	container := Container{Decoded: job.Decode, TS: ts}
	outputPath := BuildOutputPath(w.OutputDir(job.TivoIP), meta, job.URL, container, false)
	job.OutputFile = outputPath

	pullURL := job.URL
	if ts {
		pullURL += "&Format=video/x-tivo-mpeg-ts"
	}

	client := w.Client(mak)
	resp, err := Open(ctx, client, pullURL)
	if err != nil {
		job.finish(err.Error())
		logger.Warn().Err(err).Str("tivo", tivoName).Msg("togo: failed to open TiVo stream")
		return
	}
	defer resp.Body.Close()

	// best carries the winning attempt across retries; retries themselves
	// are driven by the Manager's own queue loop re-dispatching RunOne for
	// the reinserted job, not by looping in here.
	var best BestOfNState
	if job.RetryCount() > 0 {
		best.HasBest = job.hasBest
		best.BestErrorCount = job.bestErrorCount
		best.BestFile = job.bestFile
	}

	errCount, aborted, abortMsg := w.runAttempt(ctx, job, resp.Body, outputPath, tivoName, ts, &best)
	if aborted {
		job.finish(abortMsg)
		return
	}
	if job.State() == StateCancelled {
		return
	}

	if w.ErrorMode != config.TSErrorBest || errCount == 0 || job.RetryCount() >= w.MaxRetries {
		finalPath := outputPath
		if best.HasBest {
			renamed := RenameBestOfN(best.BestFile, best.BestErrorCount, job.RetryCount())
			if err := os.Rename(best.BestFile, renamed); err == nil {
				finalPath = renamed
				job.OutputFile = finalPath
			}
		}
		job.finish("")
		metrics.DownloadBytesTotal.Add(float64(job.Size()))
		if job.Save {
			w.writeDetailsFile(ctx, client, job, meta, finalPath)
		}
		return
	}

	// best mode, retryable sync loss: decide whether this attempt wins.
	if best.Decide(outputPath, errCount) {
		best.Record(outputPath, errCount)
	} else {
		_ = os.Remove(outputPath)
		_ = os.Remove(outputPath + ".txt")
		finalPath := best.BestFile
		if best.HasBest {
			renamed := RenameBestOfN(best.BestFile, best.BestErrorCount, job.RetryCount())
			if err := os.Rename(best.BestFile, renamed); err == nil {
				finalPath = renamed
			}
		}
		job.OutputFile = finalPath
		job.finish(RejectMessage)
		return
	}

	job.resetForRetry()
	job.hasBest = best.HasBest
	job.bestErrorCount = best.BestErrorCount
	job.bestFile = best.BestFile
	w.Manager.Reinsert(job.TivoIP, job)
	metrics.DownloadRetriesTotal.Inc()
}

// writeDetailsFile implements spec.md §4.5 "Completion": on success,
// optionally fetch the TiVo's extended-details URL and write
// "<outfile>.txt" with metadata lines (original_source's details_urls
// handling). Best-effort: any failure here does not fail the job.
func (w *Worker) writeDetailsFile(ctx context.Context, client *http.Client, job *DownloadJob, meta Metadata, outputPath string) {
	lines := []string{
		fmt.Sprintf("Title: %s", meta.Title),
		fmt.Sprintf("EpisodeTitle: %s", meta.EpisodeTitle),
		fmt.Sprintf("Callsign: %s", meta.Callsign),
	}

	if w.DetailsURL != nil {
		if detailsURL := w.DetailsURL(job.URL); detailsURL != "" {
			resp, err := Open(ctx, client, detailsURL)
			if err == nil {
				defer resp.Body.Close()
				if body, readErr := io.ReadAll(resp.Body); readErr == nil {
					if vm, parseErr := tivoheader.ParseDetails(body); parseErr == nil {
						lines = []string{
							fmt.Sprintf("Title: %s", vm.Title),
							fmt.Sprintf("EpisodeTitle: %s", vm.EpisodeTitle),
							fmt.Sprintf("Description: %s", vm.Description),
							fmt.Sprintf("Callsign: %s", vm.Callsign),
							fmt.Sprintf("RecordDate: %s", vm.RecordDate.Format(time.RFC3339)),
							fmt.Sprintf("Duration: %d", vm.DurationMillis),
						}
					}
				}
			}
		}
	}

	f, err := os.Create(outputPath + ".txt")
	if err != nil {
		return
	}
	defer f.Close()
	for _, line := range lines {
		fmt.Fprintln(f, line)
	}
}

// runAttempt performs one read-and-write pass of the TiVo header plus the
// body, returning the TS sync-loss count observed and whether the attempt
// must abort immediately (togo_ts_error_mode=reject).
func (w *Worker) runAttempt(ctx context.Context, job *DownloadJob, body io.Reader, outputPath, tivoName string, ts bool, best *BestOfNState) (errCount int, aborted bool, abortMsg string) {
	sink, wait, err := w.openSink(ctx, job, outputPath)
	if err != nil {
		return 0, true, err.Error()
	}

	header := make([]byte, 16)
	if _, err := io.ReadFull(body, header); err != nil {
		sink.Close()
		return 0, true, fmt.Sprintf("reading TiVo header: %v", err)
	}
	headerSize := binary.BigEndian.Uint32(header[10:14])
	rest := make([]byte, 0)
	if headerSize > 16 {
		rest = make([]byte, headerSize-16)
		if _, err := io.ReadFull(body, rest); err != nil {
			sink.Close()
			return 0, true, fmt.Sprintf("reading TiVo header tail: %v", err)
		}
	}
	if _, err := sink.Write(header); err != nil {
		sink.Close()
		return 0, true, err.Error()
	}
	if len(rest) > 0 {
		if _, err := sink.Write(rest); err != nil {
			sink.Close()
			return 0, true, err.Error()
		}
	}

	buf := make([]byte, tsReadBlockSize)
	var written int64
	lastSample := time.Now()
	sinceSample := int64(0)

	for job.IsRunning() {
		n, rerr := body.Read(buf)
		if n > 0 {
			if ts {
				losses := CountSyncLosses(buf[:n])
				if losses > 0 {
					job.addTSErrors(losses)
					metrics.TSSyncLossTotal.Add(float64(losses))
					if w.ErrorMode == config.TSErrorReject {
						sink.Close()
						_ = os.Remove(outputPath)
						return job.tsErrorCount(), true, RejectMessage
					}
				}
			}
			if _, werr := sink.Write(buf[:n]); werr != nil {
				sink.Close()
				return job.tsErrorCount(), true, werr.Error()
			}
			written += int64(n)
			sinceSample += int64(n)
			job.setSize(written)

			now := time.Now()
			if now.Sub(lastSample) >= time.Second {
				job.setRate(float64(sinceSample*8) / now.Sub(lastSample).Seconds())
				sinceSample = 0
				lastSample = now
			}
		}
		if rerr != nil {
			break
		}
	}

	sink.Close()
	if wait != nil {
		_ = wait()
	}

	if job.State() == StateCancelled {
		if best == nil || best.BestFile != outputPath {
			_ = os.Remove(outputPath)
		}
	}

	return job.tsErrorCount(), false, ""
}

func (w *Worker) openSink(ctx context.Context, job *DownloadJob, outputPath string) (io.WriteCloser, func() error, error) {
	if job.Decode && w.Decoder != nil {
		return w.Decoder.Start(ctx, w.Lookup.MAK(job.TivoIP), outputPath)
	}
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	return f, nil, err
}
