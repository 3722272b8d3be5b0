package util

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
)

// SetupInterruptHandler removes partial outputs from outputDir and exits
// when the process is interrupted. Calling stop detaches the handler.
func SetupInterruptHandler(outputDir, tmpSuffix string, log logrus.FieldLogger) (stop func()) {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
		case <-done:
			return
		}
		log.Warn("interrupt received, cleaning up")

		CleanupUnfinished(outputDir, tmpSuffix, log)
		RemoveIfEmpty(outputDir, log)
		log.Warn("exiting due to interrupt")

		os.Exit(1)
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}

// CleanupUnfinished deletes files in outputDir ending in tmpSuffix and
// returns how many were removed.
func CleanupUnfinished(outputDir, tmpSuffix string, log logrus.FieldLogger) int {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, tmpSuffix) {
			continue
		}

		full := filepath.Join(outputDir, name)
		if err := os.Remove(full); err != nil {
			log.WithError(err).WithField("path", full).Error("cleanup failed")
			continue
		}
		log.WithField("path", full).Info("removed partial output")
		removed++
	}

	return removed
}

func RemoveIfEmpty(dir string, log logrus.FieldLogger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		if err := os.Remove(dir); err == nil {
			log.WithField("dir", dir).Info("removed empty output folder")
		}
	}
}
