package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pytivogo/bridge/internal/log"
	"github.com/pytivogo/bridge/internal/metrics"
	"github.com/pytivogo/bridge/internal/tivoheader"
)

const sampleBlockSize = 512 * 1024 // spec.md §4.4 "Read in 512 KiB blocks"

// Transcoder invokes the external transcoder for incompatible sources.
// offset > 0 requests a resume (spec.md §4.4 "call resume_transfer");
// offset == 0 requests a fresh transcode. Its stdout is relayed verbatim as
// the chunked response body.
type Transcoder interface {
	Start(ctx context.Context, path string, offset int64, mime string) (io.ReadCloser, error)
}

// Decryptor exposes a live-decrypt subprocess's stdout in place of the
// plain file reader; spec.md §4.4 notes offset is not supported in this
// mode.
type Decryptor interface {
	Start(ctx context.Context, path string) (io.ReadCloser, error)
}

// Registry is the subset of the shared status registry the handler needs:
// looking up and recording the previous offset served for (tivoName, path)
// to detect the TiVo's repeat-offset retry loop.
type Registry interface {
	Get(tivoName, path string) (*Status, bool)
	Put(tivoName, path string, s *Status)
}

// Handler serves one share's files to TiVos, synthesizing headers for
// non-native delivery and relaying the transcoder for incompatible
// sources, per spec.md §4.4.
type Handler struct {
	Root       string
	Details    *tivoheader.DetailsCache
	Transcoder Transcoder
	Decryptor  Decryptor
	Info       TranscoderInfo
	Status     Registry
}

// ErrRepeatOffset is the diagnostic spec.md §4.4/§8 scenario 6 records when
// a TiVo re-requests the exact byte offset it was already served.
const ErrRepeatOffset = "Repeat offset call"

// ServeFile handles `GET <share>/<file>` with optional Range and Format,
// for requester tsn identified by tivoName (spec.md §4.4).
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request, relPath, tivoName, tsn string, src SourceInfo) {
	logger := log.WithComponent("upload")

	realPath, err := ResolvePath(h.Root, relPath)
	if err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	f, err := os.Open(realPath)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	src.SizeKnown = true
	size := info.Size()

	mime := r.URL.Query().Get("Format")
	if mime == "" {
		mime = tivoheader.MimePS
	}

	offset := parseRangeOffset(r.Header.Get("Range"))

	if prev, ok := h.Status.Get(tivoName, relPath); ok && prev.Offset == offset && offset > 0 {
		prev.Error = ErrRepeatOffset
		logger.Warn().Str("event", "upload.repeat_offset").Str("tivo", tivoName).Str("path", relPath).Int64("offset", offset).Msg(ErrRepeatOffset)
		metrics.UploadRequestsTotal.WithLabelValues("repeat_offset").Inc()
		http.Error(w, ErrRepeatOffset, http.StatusBadRequest)
		return
	}

	status := &Status{TivoName: tivoName, Path: relPath, Offset: offset, Size: size, Active: true, StartedAt: time.Now()}
	h.Status.Put(tivoName, relPath, status)

	compatible, err := Compatible(src, realPath, tsn, mime, h.Info)
	if err != nil {
		logger.Error().Err(err).Msg("compatibility check failed")
		compatible = false
	}

	metrics.UploadActive.Inc()
	defer metrics.UploadActive.Dec()

	if compatible {
		metrics.UploadRequestsTotal.WithLabelValues("compatible").Inc()
		h.serveDirect(w, r, f, size, offset, tivoName, relPath, mime, src, status)
		return
	}
	metrics.UploadRequestsTotal.WithLabelValues("transcoded").Inc()
	h.serveTranscoded(w, r, realPath, offset, mime, status)
}

func parseRangeOffset(rangeHeader string) int64 {
	const prefix = "bytes="
	if !strings.HasPrefix(rangeHeader, prefix) {
		return 0
	}
	spec := strings.TrimPrefix(rangeHeader, prefix)
	spec = strings.TrimSuffix(spec, "-")
	spec = strings.SplitN(spec, "-", 2)[0]
	n, err := strconv.ParseInt(spec, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// serveDirect streams realPath (or, for non-native mime, a synthesized
// header followed by realPath's content) starting at offset, in 512 KiB
// blocks, sampling the transfer rate once per second.
func (h *Handler) serveDirect(w http.ResponseWriter, r *http.Request, f *os.File, size, offset int64, tivoName, relPath, mime string, src SourceInfo, status *Status) {
	var header []byte
	var skipSourceHeader int64

	if needsSyntheticHeader(mime) {
		details, err := h.Details.Get(status.TivoName, relPath)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		header = tivoheader.Build(details, mime)
		if src.IsTivoFile {
			skipSourceHeader = declaredSourceHeaderLen(f)
		}
	}

	contentLen := int64(len(header)) + (size - skipSourceHeader - offset)
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, size-1, size))
	w.Header().Set("Content-Length", strconv.FormatInt(contentLen, 10))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := f.Seek(offset+skipSourceHeader, io.SeekStart); err != nil {
		status.Error = err.Error()
		return
	}

	var reader io.Reader = f
	if src.EncryptedDRM && src.HaveLiveDecrypt && h.Decryptor != nil {
		rc, err := h.Decryptor.Start(r.Context(), f.Name())
		if err != nil {
			status.Error = err.Error()
			return
		}
		defer rc.Close()
		reader = rc
	}

	if len(header) > 0 {
		if _, err := w.Write(header); err != nil {
			status.Error = err.Error()
			return
		}
	}
	h.copyWithSampling(w, reader, status, offset+int64(len(header)))
}

// serveTranscoded relays the external transcoder's stdout as a chunked
// response with no Content-Length, resuming at offset when the transcoder
// supports it (spec.md §4.4).
func (h *Handler) serveTranscoded(w http.ResponseWriter, r *http.Request, realPath string, offset int64, mime string, status *Status) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Transfer-Encoding", "chunked")
	w.WriteHeader(http.StatusPartialContent)

	rc, err := h.Transcoder.Start(r.Context(), realPath, offset, mime)
	if err != nil {
		status.Error = err.Error()
		return
	}
	defer rc.Close()
	h.copyWithSampling(w, rc, status, offset)
}

func (h *Handler) copyWithSampling(w http.ResponseWriter, r io.Reader, status *Status, startOffset int64) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, sampleBlockSize)
	written := startOffset
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				status.Error = werr.Error()
				return
			}
			written += int64(n)
			metrics.UploadBytesTotal.Add(float64(n))
			status.Sample(time.Now(), written)
			status.Offset = written
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				status.Error = err.Error()
			}
			break
		}
	}
	status.Active = false
	status.EndedAt = time.Now()
}

func needsSyntheticHeader(mime string) bool {
	return mime == tivoheader.MimePS || mime == tivoheader.MimeTS
}

// declaredSourceHeaderLen reads a source .tivo file's own 16-byte header to
// learn how many bytes of it to skip, per spec.md §4.4 "write the skipped-
// in-source TiVo header (first 16 bytes + declared header size)".
func declaredSourceHeaderLen(f *os.File) int64 {
	head := make([]byte, 16)
	if _, err := f.ReadAt(head, 0); err != nil {
		return 0
	}
	if string(head[0:4]) != "TiVo" {
		return 0
	}
	declared := int64(head[10])<<24 | int64(head[11])<<16 | int64(head[12])<<8 | int64(head[13])
	return declared
}
