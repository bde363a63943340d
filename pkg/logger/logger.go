package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates the application logger at the given level. Unknown levels fall
// back to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	return logger
}

// Component creates a logger entry tagged with the originating component,
// so relay, sync and notification logs can be told apart.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
