package catalogsync

import "github.com/robinjoseph08/golib/logger"

type stdLogger struct {
	log logger.Logger
}

// NewLogger adapts a plain logger for runs that have no job row, e.g. ones
// triggered over HTTP or from the CLI.
func NewLogger(log logger.Logger) Logger {
	return &stdLogger{log: log.Data(logger.Data{"job": JobName})}
}

func (l *stdLogger) Info(msg string, data logger.Data) {
	l.log.Info(msg, data)
}

func (l *stdLogger) Warn(msg string, data logger.Data) {
	l.log.Warn(msg, data)
}

func (l *stdLogger) Error(msg string, err error, data logger.Data) {
	l.log.Err(err).Error(msg, data)
}
