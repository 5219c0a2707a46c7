package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRole       = "role"
	KeyPrevRole   = "prev_role"
	KeyLastError  = "last_error"
	KeySSID       = "ssid"
	KeyAPName     = "ap_name"
	KeyAPOpen     = "ap_open"
	KeyService    = "service"
	KeyKey        = "key"
	KeyBackend    = "backend"
	KeyDurationMS = "duration_ms"
	KeyDeadline   = "deadline"
	KeyJob        = "job"
	KeyAddr       = "addr"
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeySubject    = "subject"
	KeyClients    = "clients"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Role(r string) slog.Attr        { return slog.String(KeyRole, r) }
func PrevRole(r string) slog.Attr    { return slog.String(KeyPrevRole, r) }
func LastError(e string) slog.Attr   { return slog.String(KeyLastError, e) }
func SSID(s string) slog.Attr        { return slog.String(KeySSID, s) }
func APName(n string) slog.Attr      { return slog.String(KeyAPName, n) }
func APOpen(open bool) slog.Attr     { return slog.Bool(KeyAPOpen, open) }
func Service(n string) slog.Attr     { return slog.String(KeyService, n) }
func Key(k string) slog.Attr         { return slog.String(KeyKey, k) }
func Backend(b string) slog.Attr     { return slog.String(KeyBackend, b) }
func Job(n string) slog.Attr         { return slog.String(KeyJob, n) }
func Addr(a string) slog.Attr        { return slog.String(KeyAddr, a) }
func RequestID(id string) slog.Attr  { return slog.String(KeyRequestID, id) }
func Method(m string) slog.Attr      { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr      { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr  { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr  { return slog.String(KeyRemoteAddr, a) }
func Subject(s string) slog.Attr     { return slog.String(KeySubject, s) }
func Clients(n int) slog.Attr        { return slog.Int(KeyClients, n) }
func Deadline(t time.Time) slog.Attr { return slog.Time(KeyDeadline, t) }
func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
