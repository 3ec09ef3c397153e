package debug

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Global registry for custom metrics
var globalRegistry = prometheus.NewRegistry()

// Registry returns the Prometheus registry for registering custom metrics.
func Registry() prometheus.Registerer {
	return globalRegistry
}

// Gatherer returns the registry as a Gatherer, for exporting and tests.
func Gatherer() prometheus.Gatherer {
	return globalRegistry
}

// WriteTextfile dumps the registered metrics in the text exposition format,
// suitable for the node exporter textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, globalRegistry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
