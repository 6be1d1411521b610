package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logger type used across the engine.
type Logger = *logrus.Logger

// Fields carries structured logging fields.
type Fields = logrus.Fields

// NewLogger returns a JSON logger with the level taken from LOG_LEVEL.
func NewLogger() Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(levelFromEnv())
	return logger
}

// NewLoggerWithService returns a logger that stamps every entry with a
// service field.
func NewLoggerWithService(serviceName string) Logger {
	logger := NewLogger()
	logger.AddHook(serviceHook{name: serviceName})
	return logger
}

type serviceHook struct{ name string }

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = h.name
	return nil
}

func levelFromEnv() logrus.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
