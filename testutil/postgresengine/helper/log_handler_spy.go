package helper

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// CatalogLogEntry is one log line of the catalog, with its attributes flattened by key.
// Attributes of groups are keyed "group.key".
type CatalogLogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]slog.Value
}

// LogHandlerSpy is a slog.Handler capturing the catalog's log lines for assertions.
type LogHandlerSpy struct {
	sink   *logSink
	preset []slog.Attr
	group  string
}

type logSink struct {
	mu      sync.Mutex
	entries []CatalogLogEntry
	echo    slog.Handler
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
// With echoToStdout set, every captured line is also written to stdout as JSON, to follow a failing test.
func NewLogHandlerSpy(echoToStdout bool) *LogHandlerSpy {
	sink := &logSink{}

	if echoToStdout {
		sink.echo = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return &LogHandlerSpy{sink: sink}
}

// Enabled implements slog.Handler, the spy captures every level.
func (s *LogHandlerSpy) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	entry := CatalogLogEntry{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   make(map[string]slog.Value, record.NumAttrs()+len(s.preset)),
	}

	for _, attr := range s.preset {
		flattenInto(entry.Attrs, "", attr)
	}

	record.Attrs(func(attr slog.Attr) bool {
		flattenInto(entry.Attrs, s.group, attr)

		return true
	})

	s.sink.mu.Lock()
	s.sink.entries = append(s.sink.entries, entry)
	s.sink.mu.Unlock()

	if s.sink.echo != nil {
		return s.sink.echo.Handle(ctx, record)
	}

	return nil
}

// WithAttrs implements slog.Handler, the returned handler captures into the same spy.
func (s *LogHandlerSpy) WithAttrs(attrs []slog.Attr) slog.Handler {
	grouped := make([]slog.Attr, 0, len(s.preset)+len(attrs))
	grouped = append(grouped, s.preset...)

	for _, attr := range attrs {
		if s.group != "" {
			attr.Key = s.group + "." + attr.Key
		}

		grouped = append(grouped, attr)
	}

	return &LogHandlerSpy{sink: s.sink, preset: grouped, group: s.group}
}

// WithGroup implements slog.Handler, the returned handler captures into the same spy.
func (s *LogHandlerSpy) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}

	return &LogHandlerSpy{sink: s.sink, preset: s.preset, group: joinKey(s.group, name)}
}

// Entries returns all captured log lines in emit order.
func (s *LogHandlerSpy) Entries() []CatalogLogEntry {
	s.sink.mu.Lock()
	defer s.sink.mu.Unlock()

	return append([]CatalogLogEntry(nil), s.sink.entries...)
}

// SpyLogRecordMatcher narrows the captured log lines down step by step.
// It matches if at least one line with the level and message passes every step of the chain.
type SpyLogRecordMatcher struct {
	entries []CatalogLogEntry
}

// HasDebugLogWithMessage starts a matcher chain over debug lines, e.g. "executed sql for: query_keys".
func (s *LogHandlerSpy) HasDebugLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.linesWith(slog.LevelDebug, message)
}

// HasInfoLogWithMessage starts a matcher chain over info lines.
func (s *LogHandlerSpy) HasInfoLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.linesWith(slog.LevelInfo, message)
}

// HasWarnLogWithMessage starts a matcher chain over warn lines.
func (s *LogHandlerSpy) HasWarnLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.linesWith(slog.LevelWarn, message)
}

// HasErrorLogWithMessage starts a matcher chain over error lines.
func (s *LogHandlerSpy) HasErrorLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.linesWith(slog.LevelError, message)
}

func (s *LogHandlerSpy) linesWith(level slog.Level, message string) *SpyLogRecordMatcher {
	lines := make([]CatalogLogEntry, 0)

	for _, entry := range s.Entries() {
		if entry.Level == level && entry.Message == message {
			lines = append(lines, entry)
		}
	}

	return &SpyLogRecordMatcher{entries: lines}
}

// WithDurationMS keeps lines carrying a non-negative duration_ms, as the catalog logs for every query.
func (m *SpyLogRecordMatcher) WithDurationMS() *SpyLogRecordMatcher {
	return m.keep("duration_ms", func(value slog.Value) bool {
		switch value.Kind() {
		case slog.KindFloat64:
			return value.Float64() >= 0
		case slog.KindInt64:
			return value.Int64() >= 0
		default:
			return false
		}
	})
}

// WithIntAttr keeps lines where key is the integer want, e.g. key_count or package_count.
func (m *SpyLogRecordMatcher) WithIntAttr(key string, want int) *SpyLogRecordMatcher {
	return m.keep(key, func(value slog.Value) bool {
		return value.Kind() == slog.KindInt64 && value.Int64() == int64(want)
	})
}

// WithStringAttr keeps lines where key is the string want.
func (m *SpyLogRecordMatcher) WithStringAttr(key, want string) *SpyLogRecordMatcher {
	return m.keep(key, func(value slog.Value) bool {
		return value.Kind() == slog.KindString && value.String() == want
	})
}

// WithAttr keeps lines carrying key, whatever its value.
func (m *SpyLogRecordMatcher) WithAttr(key string) *SpyLogRecordMatcher {
	return m.keep(key, func(slog.Value) bool { return true })
}

func (m *SpyLogRecordMatcher) keep(key string, accept func(slog.Value) bool) *SpyLogRecordMatcher {
	kept := m.entries[:0:0]

	for _, entry := range m.entries {
		if value, ok := entry.Attrs[key]; ok && accept(value) {
			kept = append(kept, entry)
		}
	}

	m.entries = kept

	return m
}

// Assert reports whether any log line passed the whole chain.
func (m *SpyLogRecordMatcher) Assert() bool {
	return len(m.entries) > 0
}

func flattenInto(attrs map[string]slog.Value, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()

	if value.Kind() == slog.KindGroup {
		for _, member := range value.Group() {
			flattenInto(attrs, joinKey(prefix, attr.Key), member)
		}

		return
	}

	attrs[joinKey(prefix, attr.Key)] = value
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}
