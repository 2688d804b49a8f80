package apiclient

import (
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

// Logger routes resty's printf-style diagnostics into slog.
type Logger struct {
	logger *slog.Logger
}

var _ resty.Logger = (*Logger)(nil)

// NewLogger wraps logger for use with resty.Client.SetLogger.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Logger{logger: logger.With("component", "resty")}
}

func (l *Logger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
