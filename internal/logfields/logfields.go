package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyBuildMode  = "build_mode"
	KeyStage      = "stage"
	KeySubStage   = "sub_stage"
	KeyProcessor  = "processor"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyLayout     = "layout"
	KeyKind       = "layout_kind"
	KeyType       = "content_type"
	KeyItems      = "items"
	KeyChanges    = "changes"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"

	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func BuildMode(m string) slog.Attr      { return slog.String(KeyBuildMode, m) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func SubStage(name string) slog.Attr    { return slog.String(KeySubStage, name) }
func Processor(name string) slog.Attr   { return slog.String(KeyProcessor, name) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Layout(name string) slog.Attr      { return slog.String(KeyLayout, name) }
func Kind(k string) slog.Attr           { return slog.String(KeyKind, k) }
func ContentType(t string) slog.Attr    { return slog.String(KeyType, t) }
func Items(n int) slog.Attr             { return slog.Int(KeyItems, n) }
func Changes(n int) slog.Attr           { return slog.Int(KeyChanges, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func RemoteAddr(addr string) slog.Attr  { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
