// Package logging configures the process-wide structured logger, the Go
// analogue of the original source's RUST_LOG-filtered pretty_env_logger.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnvLevel is the level-selecting environment variable, checked once at
// first use — the node's RUST_LOG equivalent.
const EnvLevel = "CARBONIS_LOG"

var (
	once sync.Once
	log  *logrus.Logger
)

// Log returns the process-wide logger, initializing it from CARBONIS_LOG
// on first call. An unset or unrecognized level defaults to info.
func Log() *logrus.Logger {
	once.Do(func() {
		log = logrus.New()
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		level, err := logrus.ParseLevel(os.Getenv(EnvLevel))
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)
	})
	return log
}
