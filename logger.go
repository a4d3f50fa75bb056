package relief

import (
	"log/slog"
	"sync/atomic"
)

// silent discards every record. Its handler reports every level as
// disabled, so log calls on the render path cost a single check.
var silent = slog.New(slog.DiscardHandler)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(silent)
}

// SetLogger routes relief diagnostics, including those of the gpu and
// webgpu hosts, to l. A nil l turns logging off again, which is also
// the initial state.
//
// Messages are prefixed with the emitting package and use these levels:
// Debug for negotiated configs and resizes, Info for the backend choice
// and session lifecycle, Warn when something degrades (a fallback
// backend, a missing bake, downsampled sources).
//
//	relief.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
//
// SetLogger is safe to call while sessions are rendering.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	logger.Store(l)
}

// Logger returns the logger relief currently writes to.
func Logger() *slog.Logger {
	return logger.Load()
}
