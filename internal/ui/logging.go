package ui

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns the logger shared by every stage of a run. Debug
// enables per-request and per-chapter detail.
func NewLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})

	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}
