package logging

import "github.com/rs/zerolog"

// ChangeLogger adapts zerolog.Logger to vehicle.Logger. Each field change is
// written at debug level.
type ChangeLogger struct {
	logger zerolog.Logger
}

// NewChangeLogger creates a ChangeLogger tagged with component=diff.
func NewChangeLogger(logger zerolog.Logger) *ChangeLogger {
	return &ChangeLogger{logger: Component(logger, "diff")}
}

// Log writes one change line.
func (l *ChangeLogger) Log(msg string) {
	l.logger.Debug().Msg(msg)
}
