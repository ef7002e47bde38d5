package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/infrastructure/config"
)

// RegisterGormTracing installs otelgorm so every query becomes a child span
// of the request span. Query variables are left out of spans unless
// DBLogFullSQL is set.
func RegisterGormTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// annotate spans with the table and row count after otelgorm has run
	annotate := func(tx *gorm.DB) {
		if tx.Statement.Context == nil {
			return
		}
		span := trace.SpanFromContext(tx.Statement.Context)
		if !span.IsRecording() {
			return
		}
		if tx.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			RecordError(span, tx.Error)
		}
	}
	cb := db.Callback()
	for name, register := range map[string]func(string, func(*gorm.DB)) error{
		"storefront:annotate_create": cb.Create().After("gorm:create").Register,
		"storefront:annotate_query":  cb.Query().After("gorm:query").Register,
		"storefront:annotate_update": cb.Update().After("gorm:update").Register,
		"storefront:annotate_delete": cb.Delete().After("gorm:delete").Register,
	} {
		if err := register(name, annotate); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled", zap.Bool("log_full_sql", cfg.DBLogFullSQL))
	return nil
}
