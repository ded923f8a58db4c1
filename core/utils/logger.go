package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Logger struct {
	l *slog.Logger
}

// NewLogger returns a text logger on stdout, the format used for local runs and tests.
func NewLogger() *Logger {
	return &Logger{l: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))}
}

func NewLoggerForEnv(env string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	switch env {
	case "local", "test":
		return &Logger{l: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	case "dev":
		return &Logger{l: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	default:
		return &Logger{l: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
	}
}

func (lg *Logger) Printf(format string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Info(fmt.Sprintf(format, args...))
}

func (lg *Logger) Debugf(format string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Debug(fmt.Sprintf(format, args...))
}

func (lg *Logger) Errorf(format string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Error(fmt.Sprintf(format, args...))
}

func (lg *Logger) With(args ...any) *Logger {
	if lg == nil || lg.l == nil {
		return lg
	}
	return &Logger{l: lg.l.With(args...)}
}

func (lg *Logger) Slog() *slog.Logger {
	if lg == nil {
		return nil
	}
	return lg.l
}
