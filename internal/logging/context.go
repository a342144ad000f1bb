package logging

import (
	"context"
	"log/slog"

	"chapterize/internal/services"
)

// Structured field keys shared by every component.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldItem      = "item" // file being processed
	FieldStage     = "stage"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	// FieldImpact describes what a warning means for the user's files.
	FieldImpact = "impact"
)

// WithContext returns logger with the run, item, and stage carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var attrs []Attr
	if id, ok := services.RunIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldRunID, id))
	}
	if item, ok := services.ItemFromContext(ctx); ok {
		attrs = append(attrs, String(FieldItem, item))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(toArgs(attrs)...)
}
