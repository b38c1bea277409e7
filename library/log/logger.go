// Package log is a logging package that provides the shared application logger.
package log

import (
	"context"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

// Logger is the process-wide logger. Components derive named children from it.
//
// It writes to stderr so that command output on stdout stays machine readable.
var Logger logSDK.Logger

func init() {
	var err error
	if Logger, err = newLogger(logSDK.LevelInfo, "stderr"); err != nil {
		logSDK.Shared.Panic("new logger", zap.Error(err))
	}
}

func newLogger(level logSDK.Level, outputs ...string) (logSDK.Logger, error) {
	logger, err := logSDK.New(
		logSDK.WithName("tamerlane"),
		logSDK.WithEncoding(logSDK.EncodingConsole),
		logSDK.WithLevel(level),
		logSDK.WithOutputPaths(outputs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new console logger")
	}

	return logger, nil
}

// SetLevel changes the level of the shared logger, accepting `debug/info/warn/error`.
func SetLevel(level string) error {
	if err := Logger.ChangeLevel(logSDK.Level(level)); err != nil {
		return errors.Wrapf(err, "change log level to %q", level)
	}

	return nil
}

// RedirectToFile replaces the shared logger with one appending to path, keeping the current level.
// Loggers derived before the call keep their previous output.
func RedirectToFile(path string) error {
	logger, err := newLogger(Logger.Level(), path)
	if err != nil {
		return errors.Wrapf(err, "redirect logs to %q", path)
	}

	Logger = logger
	return nil
}

// FromContext returns the request logger attached by the gin logger middleware,
// named after component. Contexts that do not come from a gin request yield fallback.
func FromContext(ctx context.Context, fallback logSDK.Logger, component string) logSDK.Logger {
	if ctx == nil {
		return fallback
	}
	if _, ok := gmw.GetGinCtxFromStdCtx(ctx); !ok {
		return fallback
	}

	return gmw.GetLogger(ctx).Named(component)
}
