package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/metapackage-catalog-go/catalog/oteladapters"
)

func Test_SlogBridgeLoggerWithHandler_WritesAllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "executed sql for: query_keys", "duration_ms", 1.5)
	logger.InfoContext(ctx, "catalog operation: fetch by key completed", "package_count", 3)
	logger.WarnContext(ctx, "failed to close database rows")
	logger.ErrorContext(ctx, "failed to query database", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG","msg":"executed sql for: query_keys","duration_ms":1.5`)
	assert.Contains(t, output, `"msg":"catalog operation: fetch by key completed","package_count":3`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"level":"ERROR","msg":"failed to query database","error":"boom"`)
}

func Test_SlogBridgeLogger_UsesTheGivenProvider(t *testing.T) {
	// arrange
	provider := &recordingLoggerProvider{}
	logger := oteladapters.NewSlogBridgeLoggerWithProvider("catalog", provider)

	// act
	logger.InfoContext(context.Background(), "listing completed", "row_count", 4)

	// assert
	records := provider.logger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "listing completed", records[0].Body().AsString())
	assert.Equal(t, log.SeverityInfo, records[0].Severity())
}

func Test_OTelLogger_KeepsAttributeTypes(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.ErrorContext(
		context.Background(),
		"failed to begin read session",
		"error", errors.New("connection refused"),
		"key_count", 2,
		"duration_ms", 0.5,
		"shadow", true,
		42, "non-string key",
		"dangling",
	)

	// assert
	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, log.SeverityError, records[0].Severity())
	assert.Equal(t, "failed to begin read session", records[0].Body().AsString())

	attrs := attributesOf(records[0])
	require.Len(t, attrs, 4)
	assert.Equal(t, "connection refused", attrs["error"].AsString())
	assert.Equal(t, int64(2), attrs["key_count"].AsInt64())
	assert.InDelta(t, 0.5, attrs["duration_ms"].AsFloat64(), 1e-9)
	assert.True(t, attrs["shadow"].AsBool())
}

func Test_OTelLogger_MapsLevelsToSeverities(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug")
	logger.InfoContext(ctx, "info")
	logger.WarnContext(ctx, "warn")
	logger.ErrorContext(ctx, "error")

	// assert
	records := recorder.Records()
	require.Len(t, records, 4)
	assert.Equal(t, log.SeverityDebug, records[0].Severity())
	assert.Equal(t, log.SeverityInfo, records[1].Severity())
	assert.Equal(t, log.SeverityWarn, records[2].Severity())
	assert.Equal(t, log.SeverityError, records[3].Severity())
}

func Test_OTelLogger_WithNoopLogger(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("catalog"))

	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "catalog operation: fetch by key completed", "key", "vim")
	})
}

type recordingLogger struct {
	embedded.Logger

	mu      sync.Mutex
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, record)
}

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}

func (l *recordingLogger) Records() []log.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]log.Record(nil), l.records...)
}

type recordingLoggerProvider struct {
	embedded.LoggerProvider

	logger recordingLogger
}

func (p *recordingLoggerProvider) Logger(string, ...log.LoggerOption) log.Logger {
	return &p.logger
}

func attributesOf(record log.Record) map[string]log.Value {
	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	return attrs
}
