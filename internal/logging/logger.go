// Package logging is the structured logger used by the server, the health
// endpoint and tutorctl. Two backends are available: log/slog and zap.
package logging

import "context"

// Logger takes a message followed by key/value pairs:
//
//	log.Info(ctx, "tutor application submitted", "application", id, "new_account", true)
//
// Fields attached to ctx with ContextWith are emitted before args.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes args.
	With(args ...any) Logger
}

type fieldsKey struct{}

// ContextWith returns a copy of ctx carrying args in addition to any fields
// already attached, e.g. the request id of an HTTP call.
func ContextWith(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := contextFields(ctx)
	fields := make([]any, 0, len(prev)+len(args))
	fields = append(append(fields, prev...), args...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

func contextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}

// withContext prepends the fields carried by ctx to args.
func withContext(ctx context.Context, args []any) []any {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return args
	}
	out := make([]any, 0, len(fields)+len(args))
	return append(append(out, fields...), args...)
}
