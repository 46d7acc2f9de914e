// Package logging builds the structured logger used by the CLI and carries
// it through contexts.
package logging

import (
	"context"
	"errors"
	"io"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerContextKey struct{}

const (
	TimeStampKey = "timestamp"
	MessageKey   = "message"
	VersionKey   = "version"
	GoVersionKey = "go_version"
	CommandKey   = "command"
)

// Logger pairs a logr.Logger with the zap logger behind it so callers can
// flush on exit.
type Logger struct {
	logr.Logger
	zl *zap.Logger
}

// New returns a JSON logger writing to w whose entries carry the command
// name. verbose lowers the level to debug.
func New(w io.Writer, command string, verbose bool) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = TimeStampKey
	encoderCfg.MessageKey = MessageKey

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	fields := []zapcore.Field{zap.String(CommandKey, command)}
	if info, ok := debug.ReadBuildInfo(); ok {
		fields = append(fields,
			zap.String(VersionKey, info.Main.Version),
			zap.String(GoVersionKey, info.GoVersion),
		)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(level),
	).With(fields)

	zl := zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
	return &Logger{Logger: zapr.NewLogger(zl), zl: zl}
}

// Sync flushes buffered entries. Errors from syncing terminals and pipes are
// ignored.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	if err := l.zl.Sync(); err != nil && !isIgnorableSyncError(err) {
		return err
	}
	return nil
}

// isIgnorableSyncError returns true for common Sync errors on pipes/TTYs.
func isIgnorableSyncError(err error) bool {
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.EIO) || errors.Is(err, syscall.EBADF) {
		return true
	}
	return strings.Contains(err.Error(), "The handle is invalid")
}

// WithLogger returns a context carrying log.
func WithLogger(ctx context.Context, log logr.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) logr.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(logr.Logger); ok {
		return log
	}
	return logr.Discard()
}
