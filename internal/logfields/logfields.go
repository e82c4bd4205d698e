package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyLayout     = "layout"
	KeyRule       = "rule"
	KeyKind       = "kind"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyDocuments  = "documents"
	KeyFailures   = "failures"
	KeyConfig     = "config"
	KeyBuildID    = "build_id"
	KeyEvent      = "event"
	KeyEngine     = "engine"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Layout(l string) slog.Attr       { return slog.String(KeyLayout, l) }
func Rule(index int) slog.Attr        { return slog.Int(KeyRule, index) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Documents(n int) slog.Attr       { return slog.Int(KeyDocuments, n) }
func Failures(n int) slog.Attr        { return slog.Int(KeyFailures, n) }
func Config(p string) slog.Attr       { return slog.String(KeyConfig, p) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Event(e string) slog.Attr        { return slog.String(KeyEvent, e) }
func Engine(name string) slog.Attr    { return slog.String(KeyEngine, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
