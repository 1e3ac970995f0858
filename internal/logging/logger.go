// Package logging is the structured logger shared by every server component.
package logging

import "context"

// Logger writes leveled, structured records. Args are key/value pairs:
//
//	logger.Info(ctx, "budget created", "budget_id", id)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that prepends args to every record.
	With(args ...any) Logger
}
