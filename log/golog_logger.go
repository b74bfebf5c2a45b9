package log

import (
	"io"

	"github.com/kataras/golog"
)

// GologLogger adapts kataras/golog to the Logger interface. It is the
// logger the application bootstrap installs; library code only ever sees
// the interface.
type GologLogger struct {
	logger *golog.Logger
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{logger: logger}
}

// NewGologLoggerWithLevel builds a fresh golog.Logger writing to out at
// the given level. This is the constructor the bootstrap uses.
func NewGologLoggerWithLevel(out io.Writer, level LogLevel) *GologLogger {
	logger := golog.New()
	logger.SetOutput(out)
	logger.SetLevel(gologLevel(level))
	return &GologLogger{logger: logger}
}

func gologLevel(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "debug"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelNone:
		return "disable"
	default:
		return "info"
	}
}

// Debug logs debug messages.
func (l *GologLogger) Debug(format string, v ...any) {
	l.logger.Debugf(format, v...)
}

// Info logs informational messages.
func (l *GologLogger) Info(format string, v ...any) {
	l.logger.Infof(format, v...)
}

// Warn logs warning messages.
func (l *GologLogger) Warn(format string, v ...any) {
	l.logger.Warnf(format, v...)
}

// Error logs error messages.
func (l *GologLogger) Error(format string, v ...any) {
	l.logger.Errorf(format, v...)
}

// SetLevel changes the underlying golog level.
func (l *GologLogger) SetLevel(level LogLevel) {
	l.logger.SetLevel(gologLevel(level))
}
