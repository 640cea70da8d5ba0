package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Logger writes structured log lines.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Logging is best effort and never panics.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// WithAccount scopes the logger to one cache entry.
	WithAccount(meta AccountMeta) Logger
}

// Field is one key/value of a log line.
type Field struct {
	Key   string
	Value any
}

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = []string{"debug", "info", "warn", "error"}

// ParseLogLevel parses a level name. Unknown names are LevelInfo.
func ParseLogLevel(s string) LogLevel {
	if i := slices.Index(levelNames, s); i >= 0 {
		return LogLevel(i)
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "info"
	}
	return levelNames[l]
}

// RedactedFields lists field keys whose values are replaced in log output.
// A key also matches when it ends in "_" plus one of these.
var RedactedFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"authorization",
	"credential",
}

const redacted = "[REDACTED]"

// structuredLogger writes one JSON object per line. Keys keep their order:
// timestamp, level, msg, trace ids, account attributes, then call fields.
type structuredLogger struct {
	level LogLevel
	w     io.Writer
	mu    *sync.Mutex
	attrs []Field
}

// NewLogger returns a JSON logger on stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger on w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{level: ParseLogLevel(level), w: w, mu: &sync.Mutex{}}
}

// WithAccount returns a logger that adds the abi.* attributes of meta.
// It shares l's writer and lock.
func (l *structuredLogger) WithAccount(meta AccountMeta) Logger {
	attrs := slices.Clip(slices.Clone(l.attrs))
	attrs = append(attrs, Field{Key: "abi.account", Value: meta.Account})
	if meta.Chain != "" {
		attrs = append(attrs, Field{Key: "abi.chain", Value: meta.Chain})
	}
	if meta.Source != "" {
		attrs = append(attrs, Field{Key: "abi.source", Value: meta.Source})
	}
	return &structuredLogger{level: l.level, w: l.w, mu: l.mu, attrs: attrs}
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	var e entry
	e.set("timestamp", time.Now().UTC().Format(time.RFC3339Nano))
	e.set("level", level.String())
	e.set("msg", msg)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e.set("trace_id", sc.TraceID().String())
		e.set("span_id", sc.SpanID().String())
	}
	for _, f := range l.attrs {
		e.set(f.Key, f.Value)
	}
	for _, f := range fields {
		if isRedactedField(f.Key) {
			e.set(f.Key, redacted)
			continue
		}
		e.set(f.Key, f.Value)
	}

	var buf bytes.Buffer
	e.encode(&buf)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(buf.Bytes())
}

// entry is an ordered set of log keys. Setting a key again replaces its
// value in place.
type entry struct {
	keys []string
	vals map[string]any
}

func (e *entry) set(k string, v any) {
	if e.vals == nil {
		e.vals = make(map[string]any, 8)
	}
	if _, ok := e.vals[k]; !ok {
		e.keys = append(e.keys, k)
	}
	e.vals[k] = v
}

// encode writes e as a JSON line. Values json cannot encode are written as
// their fmt representation.
func (e *entry) encode(buf *bytes.Buffer) {
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		buf.Write(key)
		buf.WriteByte(':')

		v := e.vals[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		val, err := json.Marshal(v)
		if err != nil {
			val, _ = json.Marshal(fmt.Sprint(v))
		}
		buf.Write(val)
	}
	buf.WriteString("}\n")
}

func isRedactedField(key string) bool {
	lower := strings.ToLower(key)
	return slices.ContainsFunc(RedactedFields, func(r string) bool {
		r = strings.ToLower(r)
		return lower == r || strings.HasSuffix(lower, "_"+r)
	})
}

// NoopLogger returns a logger that discards everything.
func NoopLogger() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) WithAccount(AccountMeta) Logger        { return l }

var (
	_ Logger = (*structuredLogger)(nil)
	_ Logger = noopLogger{}
)
