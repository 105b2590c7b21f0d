// Package logging builds the process logger: a JSON slog handler wrapped so it
// satisfies types.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"alertsystem/internal/types"
)

// Adapter wraps *slog.Logger to implement types.Logger. slog.Logger already
// has Info, Warn and Error, but its With returns *slog.Logger.
type Adapter struct {
	logger *slog.Logger
}

var _ types.Logger = (*Adapter)(nil)

// Wrap adapts an existing slog logger.
func Wrap(l *slog.Logger) *Adapter {
	return &Adapter{logger: l}
}

func (a *Adapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }

func (a *Adapter) With(args ...any) types.Logger {
	return &Adapter{logger: a.logger.With(args...)}
}

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New writes JSON lines to w, tagged with the service name and environment.
func New(w io.Writer, level, service, env string) *Adapter {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return Wrap(slog.New(h).With("service", service, "env", env))
}

// NewStdout is New on os.Stdout, which is what Lambda ships to CloudWatch Logs.
func NewStdout(level, service, env string) *Adapter {
	return New(os.Stdout, level, service, env)
}
