package persistence

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// TracingOptions controls the database spans.
type TracingOptions struct {
	// DBSystem is recorded as db.system (postgres, mysql, sqlite)
	DBSystem string
	// LogFullSQL keeps query variables in the span statement
	LogFullSQL bool
}

// EnableTracing registers otelgorm so every statement opens a span under the
// caller's context, then marks failed statements on that span.
func (d *Database) EnableTracing(tp trace.TracerProvider, opts TracingOptions) error {
	pluginOpts := []otelgorm.Option{
		otelgorm.WithTracerProvider(tp),
		otelgorm.WithDBName(opts.DBSystem),
	}
	if !opts.LogFullSQL {
		pluginOpts = append(pluginOpts, otelgorm.WithoutQueryVariables())
	}
	if err := d.DB.Use(otelgorm.NewPlugin(pluginOpts...)); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}
	return registerSpanErrorCallbacks(d.DB)
}

// registerSpanErrorCallbacks runs before otelgorm ends the span.
func registerSpanErrorCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
	}{
		{"magpie:span_error_create", cb.Create().After("gorm:create").Register},
		{"magpie:span_error_query", cb.Query().After("gorm:query").Register},
		{"magpie:span_error_update", cb.Update().After("gorm:update").Register},
		{"magpie:span_error_delete", cb.Delete().After("gorm:delete").Register},
		{"magpie:span_error_row", cb.Row().After("gorm:row").Register},
		{"magpie:span_error_raw", cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.register(s.name, markSpanError); err != nil {
			return fmt.Errorf("failed to register %s: %w", s.name, err)
		}
	}
	return nil
}

func markSpanError(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
