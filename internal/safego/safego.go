// Package safego launches goroutines that recover from panics instead of
// crashing the process. Every fan-out point in the session and pipeline
// layers (tool execution, subagent drivers, parallel branches, stream
// drainers) spawns through Go rather than a bare "go" statement.
package safego

import (
	"go.uber.org/zap"
)

// Go launches fn in a new goroutine. A panic inside fn is recovered,
// logged with the given name, and does not propagate.
func Go(logger *zap.Logger, name string, fn func()) {
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panicked",
					zap.String("goroutine", name),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
		}()
		fn()
	}()
}
