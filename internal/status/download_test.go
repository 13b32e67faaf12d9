package status

import (
	"testing"

	"github.com/pytivogo/bridge/internal/togo"
	"github.com/stretchr/testify/assert"
)

func TestDownloadRegistryPutGetRemove(t *testing.T) {
	r := NewDownloadRegistry()
	job := togo.NewDownloadJob("http://tivo/a.tivo", "10.0.0.5", true, false, false)

	_, ok := r.Get(job.URL)
	assert.False(t, ok)

	r.Put(job)
	got, ok := r.Get(job.URL)
	assert.True(t, ok)
	assert.Same(t, job, got)
	assert.Len(t, r.All(), 1)

	r.Remove(job.URL)
	_, ok = r.Get(job.URL)
	assert.False(t, ok)
	assert.Empty(t, r.All())
}
