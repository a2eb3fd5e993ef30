package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment, so business context
// (ticket_id, stage, etc.) appears on every log statement without each call
// site repeating it.
type LogFields struct {
	TicketID  *int64  // Ticketing-system ticket ID
	BatchID   *int64  // Batch run ID when processing many tickets
	MessageID *string // Redis stream message ID
	Stage     *string // Pipeline stage (classify, intent, knowledge, draft)
	Component string  // Component name (e.g. "triage.pipeline")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.TicketID != nil {
		result.TicketID = next.TicketID
	}
	if next.BatchID != nil {
		result.BatchID = next.BatchID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Stage != nil {
		result.Stage = next.Stage
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like prompts or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
