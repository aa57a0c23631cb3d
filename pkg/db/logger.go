package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// NewLogger bridges gorm's logger onto logrus. SQL tracing only shows up at
// the noisiest app log levels.
func NewLogger(logLevel string) logger.Interface {
	mode := logger.Silent
	switch logLevel {
	case "trace":
		mode = logger.Info
	case "debug":
		mode = logger.Warn
	default:
		mode = logger.Error
	}

	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  mode,
		IgnoreRecordNotFoundError: true,
	})
}
