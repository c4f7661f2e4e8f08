package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// sensitiveParams are query parameter names whose values never belong
// in a log line. The bare "key" entry is deliberate here: in query
// strings it is the conventional API key parameter, unlike attribute
// keys where it would be all false positives.
var sensitiveParams = map[string]bool{
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"id_token":      true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"secret":        true,
	"password":      true,
	"signature":     true,
	"sig":           true,
	"auth":          true,
	"session":       true,
}

// sensitiveKeywords mark attribute keys whose whole value is masked,
// whatever it contains.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential",
}

// MaskValue is the string used to replace redacted values.
const MaskValue = "***REDACTED***"

// RedactHandler wraps an slog.Handler to strip secrets from URLs
// before they reach the log. It rewrites userinfo and sensitive query
// parameters in every URL-shaped string, in attribute values and in
// the record message alike.
//
// Design decision: We use a handler wrapper rather than a custom
// logger because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Components that accept *slog.Logger inherit the redaction
type RedactHandler struct {
	// handler is the underlying slog handler that receives redacted
	// records.
	handler slog.Handler
}

// NewRedactHandler creates a RedactHandler wrapping the given handler.
// If handler is nil, the returned RedactHandler wraps
// slog.Default().Handler().
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given
// level. It delegates to the underlying handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record's message and attributes and passes the
// result to the underlying handler.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, RedactText(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, redacted)
}

// WithAttrs returns a new handler with the given attributes added,
// redacted first.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redactedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redactedAttrs[i] = h.redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(redactedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr redacts a single attribute, recursively handling groups.
func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redactedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			redactedAttrs[i] = h.redactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redactedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return slog.String(a.Key, MaskValue)
		}
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactText(a.Value.String()))
	}
	return a
}

// RedactText redacts every URL-shaped token in s. Text without a
// scheme marker passes through untouched.
func RedactText(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}

	parts := strings.Split(s, " ")
	for i, part := range parts {
		if strings.Contains(part, "://") {
			parts[i] = RedactURL(part)
		}
	}
	return strings.Join(parts, " ")
}

// RedactURL masks the userinfo and sensitive query parameters of s.
// Strings that do not parse as absolute URLs come back unchanged.
// Rewriting the query re-encodes it, so parameter order may differ
// from the input.
func RedactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}

	changed := false
	if u.User != nil {
		u.User = url.User(MaskValue)
		changed = true
	}

	if u.RawQuery != "" {
		q := u.Query()
		queryChanged := false
		for name := range q {
			if sensitiveParams[strings.ToLower(name)] {
				q.Set(name, MaskValue)
				queryChanged = true
			}
		}
		if queryChanged {
			u.RawQuery = q.Encode()
			changed = true
		}
	}

	if !changed {
		return s
	}
	return u.String()
}

// NewLogger creates a *slog.Logger whose output has URL secrets
// redacted.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(NewRedactHandler(slog.NewTextHandler(w, opts)))
}

// NewJSONLogger is NewLogger with JSON output, for structured log
// aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(NewRedactHandler(slog.NewJSONHandler(w, opts)))
}
