package debug

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zaptopo_debug_test_total",
		Help: "Counter used by the textfile test",
	})
	require.NoError(t, Registry().Register(c))
	t.Cleanup(func() { globalRegistry.Unregister(c) })
	c.Add(3)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "zaptopo_debug_test_total 3")
}

func TestWriteTextfile_BadDir(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "metrics.prom"))
	require.Error(t, err)
}
