// Package errutil bridges oops errors into structured logs and tests.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops code attached to err, or the empty string when err is not
// an oops error or carries no code.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}

// Message returns the human readable message of err without wrapping context.
func Message(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return err.Error()
}

// Log logs err at level with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string. Extra attrs are appended as-is.
func Log(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, attrs ...any) {
	if oopsErr, ok := oops.AsOops(err); ok {
		fields := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			fields = append(fields, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			fields = append(fields, "context", errCtx)
		}
		logger.Log(ctx, level, msg, append(fields, attrs...)...)
		return
	}
	logger.Log(ctx, level, msg, append([]any{"error", err}, attrs...)...)
}

// LogError logs err at error level. See Log.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	Log(context.Background(), logger, slog.LevelError, msg, err, attrs...)
}
