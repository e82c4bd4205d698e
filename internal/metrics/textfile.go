package metrics

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes every metric in reg to path in the text exposition
// format, for pickup by a node_exporter textfile collector. The file is
// replaced atomically.
func WriteTextfile(path string, reg prom.Gatherer) error {
	if reg == nil {
		return fmt.Errorf("metrics: nil gatherer")
	}
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
