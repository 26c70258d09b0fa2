package cache

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-tinte/logging"
)

// badgerLogger routes badger's printf-style messages into a logging.Logger.
// Badger's info output is demoted to debug.
type badgerLogger struct {
	logger logging.Logger
}

func newBadgerLogger(logger logging.Logger) *badgerLogger {
	return &badgerLogger{
		logger: logger.WithFields(logging.Fields{"source": "badger"}),
	}
}

func format(msg string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Errorf(msg string, args ...any) {
	text := format(msg, args...)
	b.logger.Error(fmt.Errorf("%s", text), "Badger error")
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(format(msg, args...))
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.logger.Debug(format(msg, args...))
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(format(msg, args...))
}
