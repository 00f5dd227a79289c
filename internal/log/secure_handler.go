package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// sessionCookies are the cookie names that identify a logged-in Bilibili
// session. The values are credentials: anyone holding SESSDATA can act as
// the account.
var sessionCookies = []string{
	"sessdata",
	"bili_jct",
	"buvid3",
	"buvid4",
	"b_nut",
	"dedeuserid",
	"dedeuserid__ckmd5",
	"sid",
}

// secretHeaders are request headers that carry credentials. Custom headers
// from a config profile may add the last two.
var secretHeaders = []string{
	"cookie",
	"set-cookie",
	"authorization",
	"proxy-authorization",
}

// keyFragments mark keys such as raw_cookie or profile_sessdata.
// "auth" is not listed because it would match "author", a record field.
var keyFragments = []string{"cookie", "sessdata", "bili_jct", "authoriz"}

// cookiePairPattern matches a cookie string that sets a session cookie,
// wherever the value came from.
var cookiePairPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(sessionCookies, "|") + `)=`)

// csrfPattern matches a bare bili_jct value (32 lower-case hex digits).
var csrfPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// MaskValue replaces every masked value.
const MaskValue = "***REDACTED***"

// SecureHandler masks session secrets before a record reaches the wrapped
// handler. A cookie passed with --cookie or a config profile must never
// appear in the log, even with --verbose.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler, or slog.Default().Handler() when nil.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle copies r with masked attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(mask(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs masks attrs once, when the logger is derived.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = mask(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup delegates to the wrapped handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// mask returns a with its value replaced when the key or value is
// sensitive. Groups are walked recursively and LogValuer values are
// resolved first so they cannot bypass the check.
func mask(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = mask(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// isSensitiveKey reports whether an attribute key names a session secret.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if slices.Contains(sessionCookies, key) || slices.Contains(secretHeaders, key) {
		return true
	}
	for _, fragment := range keyFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether a string value looks like a session
// cookie or a CSRF token.
func isSensitiveValue(value string) bool {
	return cookiePairPattern.MatchString(value) || csrfPattern.MatchString(value)
}

// NewSecureLogger returns a text logger on w that masks session secrets.
// Only warnings and errors are written unless verbose is set, in which case
// debug output (one line per request and page) is included.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
