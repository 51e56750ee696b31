package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across folio.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldReportID  = "report_id"
	FieldRequestID = "request_id"

	// Components
	FieldComponent = "component"
	FieldPlugin    = "plugin"

	// Generation
	FieldSpec     = "spec"
	FieldVariable = "variable"
	FieldProvider = "provider"
	FieldModel    = "model"
	FieldTokens   = "tokens"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldQuery     = "query"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount   = "count"
	FieldRecords = "records"

	// Files and paths
	FieldFile = "file"
)

// Context keys for propagating logging context
type contextKey string

const (
	reportIDKey  contextKey = "logger_report_id"
	componentKey contextKey = "logger_component"
)

// WithReportID adds a report generation ID to the context for logging
func WithReportID(ctx context.Context, reportID string) context.Context {
	return context.WithValue(ctx, reportIDKey, reportID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if reportID, ok := ctx.Value(reportIDKey).(string); ok && reportID != "" {
		fields = append(fields, FieldReportID, reportID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Registry struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewRegistry() *Registry {
//	    return &Registry{
//	        logger: logger.ComponentLogger("plugin.registry"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	varLogger := logger.ChildLogger(baseLogger, "variable", v.Name)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
