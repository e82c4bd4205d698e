// Package metrics records build observability data.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if metricsFile != "" {
//	    reg := prometheus.NewRegistry()
//	    rec = metrics.NewPrometheusRecorder(reg)
//	    defer metrics.WriteTextfile(metricsFile, reg)
//	}
//
// A one-shot CLI has no scrape endpoint; WriteTextfile exports the registry
// for a node_exporter textfile collector instead.
package metrics
