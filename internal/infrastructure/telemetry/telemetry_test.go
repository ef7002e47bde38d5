package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

func enabledConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:        true,
		SamplingRatio:  1.0,
		ServiceName:    "storefront-test",
		DBTraceEnabled: true,
	}
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), config.TelemetryConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestServiceSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp, err := telemetry.NewTracerProvider(context.Background(), enabledConfig(), zap.NewNop(),
		telemetry.WithSpanExporter(exp), telemetry.WithServiceVersion("test"))
	require.NoError(t, err)
	require.True(t, tp.IsEnabled())
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	func() (err error) {
		ctx, span := telemetry.StartServiceSpan(context.Background(), "checkout", "place_order",
			telemetry.AttrUserID, "u-1", telemetry.AttrItemCount, 3)
		defer telemetry.End(span, &err)
		assert.NotEmpty(t, telemetry.TraceID(ctx))
		telemetry.SetAttributes(span, telemetry.AttrAmount, 19.99, "ignored")
		return errors.New("out of stock")
	}()

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "checkout.place_order", s.Name)
	assert.Equal(t, codes.Error, s.Status.Code)
	assert.Contains(t, s.Attributes, attribute.String(telemetry.AttrUserID, "u-1"))
	assert.Contains(t, s.Attributes, attribute.Int(telemetry.AttrItemCount, 3))
	assert.Contains(t, s.Attributes, attribute.Float64(telemetry.AttrAmount, 19.99))
	assert.Empty(t, telemetry.TraceID(context.Background()))
}

func TestRegisterGormTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	t.Run("disabled is a no-op", func(t *testing.T) {
		require.NoError(t, telemetry.RegisterGormTracing(db, config.TelemetryConfig{}, zap.NewNop()))
	})

	t.Run("enabled registers callbacks", func(t *testing.T) {
		require.NoError(t, telemetry.RegisterGormTracing(db, enabledConfig(), zap.NewNop()))
		var n int
		require.NoError(t, db.Raw("SELECT 1").Scan(&n).Error)
		assert.Equal(t, 1, n)
	})
}
