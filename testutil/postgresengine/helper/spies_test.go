package helper_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/metapackage-catalog-go/testutil/postgresengine/helper"
)

func Test_LogHandlerSpy_FlattensGroupedAndPresetAttributes(t *testing.T) {
	// arrange
	spy := helper.NewLogHandlerSpy(false)
	logger := slog.New(spy).With("component", "catalog").WithGroup("fetch")

	// act
	logger.Info("catalog operation: fetch by key completed", "key", "vim", "package_count", 3)

	// assert
	entries := spy.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "catalog", entries[0].Attrs["component"].String())
	assert.Equal(t, "vim", entries[0].Attrs["fetch.key"].String())

	assert.True(t, spy.HasInfoLogWithMessage("catalog operation: fetch by key completed").
		WithIntAttr("fetch.package_count", 3).
		WithStringAttr("component", "catalog").
		Assert())
	assert.False(t, spy.HasInfoLogWithMessage("catalog operation: fetch by key completed").
		WithAttr("key").
		Assert())
	assert.False(t, spy.HasDebugLogWithMessage("catalog operation: fetch by key completed").Assert())
}

func Test_TracingCollectorSpy_KeepsTheFirstFinishOfASpan(t *testing.T) {
	// arrange
	spy := helper.NewTracingCollectorSpy(true)
	_, span := spy.StartSpan(context.Background(), "catalog.fetch_by_key", map[string]string{"key": "vim"})

	// act
	span.AddAttribute("error_type", "scan_row")
	spy.FinishSpan(span, "error", map[string]string{"error_type": "scan_row"})
	spy.FinishSpan(span, "success", map[string]string{"key_count": "1"})

	// assert
	assert.Len(t, spy.GetSpans(), 1)
	assert.True(t, spy.HasSpanRecordForName("catalog.fetch_by_key").
		WithStartAttribute("key", "vim").
		WithSpanAttribute("error_type", "scan_row").
		WithEndAttribute("error_type", "scan_row").
		WithStatus("error").
		Assert())
	assert.False(t, spy.HasSpanRecordForName("catalog.fetch_by_key").WithEndAttribute("key_count", "1").Assert())
}

func Test_TracingCollectorSpy_Disabled_HandsOutNoSpans(t *testing.T) {
	spy := helper.NewTracingCollectorSpy(false)

	_, span := spy.StartSpan(context.Background(), "catalog.fetch_by_key", nil)
	spy.FinishSpan(span, "success", nil)

	assert.Nil(t, span)
	assert.Empty(t, spy.GetSpans())
}
