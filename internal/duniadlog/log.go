// Package duniadlog wires up the node's logging backend: a decred/slog
// backend fanning out to stdout and, once InitLogRotator is called, to a
// rotating on-disk log file. Every package that wants to log declares its
// own package-level Logger and registers it here by subsystem tag, the
// same shape the decred/dcrd logging stack (EXCCoin-exccd) uses.
package duniadlog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// backend writes formatted log lines to whatever writer is currently
// installed; initially just stdout, and stdout+file once a rotator is
// attached.
var (
	logWriter = &multiWriter{writers: []io.Writer{os.Stdout}}
	backend   = slog.NewBackend(logWriter)
	logRotator *rotator.Rotator

	subsystems = make(map[string]slog.Logger)
)

// multiWriter fans writes out to every configured sink. A dedicated type
// (rather than io.MultiWriter) lets InitLogRotator swap the file sink in
// after subsystem loggers have already been created.
type multiWriter struct {
	writers []io.Writer
}

func (m *multiWriter) Write(p []byte) (int, error) {
	for _, w := range m.writers {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// NewSubsystem returns (and registers) the leveled logger for a named
// subsystem, e.g. "BLKC", "PEER", "DNSS". Registered loggers have their
// level updated together by SetLogLevels.
func NewSubsystem(tag string) slog.Logger {
	logger := backend.Logger(tag)
	logger.SetLevel(slog.LevelInfo)
	subsystems[tag] = logger
	return logger
}

// SetLogLevels applies level to every subsystem registered so far.
func SetLogLevels(level slog.Level) {
	for _, logger := range subsystems {
		logger.SetLevel(level)
	}
}

// InitLogRotator attaches a rotating file sink under dataDir/logs. It must
// be called once, from main, before heavy logging starts; subsystem
// loggers created earlier keep working because they write through the
// shared multiWriter, not a captured io.Writer.
func InitLogRotator(dataDir string) error {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}
	logFile := filepath.Join(logDir, "duniad.log")

	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	logWriter.writers = []io.Writer{os.Stdout, r}
	return nil
}

// Close flushes and closes the log rotator, if one was attached.
func Close() {
	if logRotator != nil {
		logRotator.Close()
	}
}
