package togo

import (
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTivoLookup struct {
	tsn, mak, name string
}

func (f fakeTivoLookup) TSN(string) string  { return f.tsn }
func (f fakeTivoLookup) MAK(string) string  { return f.mak }
func (f fakeTivoLookup) Name(string) string { return f.name }

func fakeTivoHeader(body []byte) []byte {
	h := make([]byte, 16)
	copy(h, "TiVo")
	binary.BigEndian.PutUint32(h[10:14], 16)
	return append(h, body...)
}

func TestWorkerRunOneWritesOutputFile(t *testing.T) {
	body := fakeTivoHeader([]byte("hello transport stream payload"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	dir := t.TempDir()
	mgr := NewManager(&recordingRunner{}, nil)
	worker := &Worker{
		Client:     func(mak string) *http.Client { return server.Client() },
		Lookup:     fakeTivoLookup{tsn: "130", mak: "MAK", name: "Living Room"},
		OutputDir:  func(string) string { return dir },
		Metadata:   func(string) Metadata { return Metadata{Title: "Show"} },
		Manager:    mgr,
		ErrorMode:  config.TSErrorIgnore,
		MaxRetries: 3,
	}

	job := NewDownloadJob(server.URL, "10.0.0.9", true, false, false)
	worker.RunOne(context.Background(), job)

	require.Equal(t, StateFinished, job.State())
	require.Empty(t, job.ErrMessage())
	require.NotEmpty(t, job.OutputFile)

	written, err := os.ReadFile(job.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, body, written)
	assert.Equal(t, filepath.Dir(job.OutputFile), dir)
}

func TestWorkerRunOneRejectsOnTSSyncLoss(t *testing.T) {
	payload := make([]byte, 188*4)
	for i := 0; i < len(payload); i += 188 {
		payload[i] = 0x47
	}
	// corrupt the sync byte of the second packet to force a detectable loss.
	payload[188] = 0x00

	body := fakeTivoHeader(payload)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	dir := t.TempDir()
	worker := &Worker{
		Client:     func(mak string) *http.Client { return server.Client() },
		Lookup:     fakeTivoLookup{tsn: "730000000000001", mak: "MAK", name: "Bedroom"},
		OutputDir:  func(string) string { return dir },
		Metadata:   func(string) Metadata { return Metadata{Title: "Show"} },
		Manager:    NewManager(&recordingRunner{}, nil),
		ErrorMode:  config.TSErrorReject,
		MaxRetries: 3,
	}

	job := NewDownloadJob(server.URL, "10.0.0.9", true, false, true)
	worker.RunOne(context.Background(), job)

	assert.Equal(t, StateError, job.State())
	assert.Equal(t, RejectMessage, job.ErrMessage())
	_, err := os.Stat(job.OutputFile)
	assert.True(t, os.IsNotExist(err), "rejected output file should be removed")
}
