package logger

import (
	"sync/atomic"
	"time"
)

var globalLogger atomic.Pointer[CentralLogger]

// SetGlobal installs the process-wide central logger
func SetGlobal(cl *CentralLogger) {
	globalLogger.Store(cl)
}

// Global returns a logger rooted at the process-wide central logger. Before
// SetGlobal is called it falls back to an info-level console logger.
func Global() Logger {
	if cl := globalLogger.Load(); cl != nil {
		return cl.Module("")
	}
	return NewSlogLogger(nil, LogLevelInfo, time.Local)
}
