package cart

import (
	"log/slog"
	"os"
	"sync"
)

// logging.go: a single package-level leveled logger for callers of the
// package. Nothing in this module, the CLI tools included, calls it; in
// particular the insert/erase/navigation hot paths never log - logging on
// every tree mutation would defeat the point of a lock-free read path.

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

// Logger returns the package's shared structured logger, defaulting to a
// text handler on stderr at Info level. Call SetLogger before any Map
// operation to redirect or relevel it.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	})
	return logger
}

// SetLogger replaces the package's shared logger. Intended for CLI
// entry points that want JSON output or a different level, and for tests
// that want to silence logging.
func SetLogger(l *slog.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}
