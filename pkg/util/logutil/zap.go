package logutil

import (
	"context"

	"go.uber.org/zap"
)

// LogPanic logs the panic reason and stack, then exit the process.
// Commonly used with a `defer`.
func LogPanic(logger *zap.Logger) {
	if e := recover(); e != nil {
		logger.Fatal("panic", zap.Reflect("recover", e))
	}
}

// PanicHandler returns a handler for panics recovered in worker goroutines.
// Unlike LogPanic, it keeps the process alive.
func PanicHandler(logger *zap.Logger) func(context.Context, interface{}) {
	return func(_ context.Context, e interface{}) {
		logger.Error("panic in worker", zap.Reflect("recover", e), zap.Stack("stack"))
	}
}
