package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"watchturret/internal/config"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger provides leveled logging (debug/info/warning/error) to files and stdout.
type Logger struct {
	log    *logrus.Logger
	files  []*os.File
	logDir string
	mu     sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
// An empty LogDirectory disables the per-level files.
func NewLogger(config *config.Config) (*Logger, error) {
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", config.LogLevel)
	}

	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logger := &Logger{
		log:    base,
		logDir: config.LogDirectory,
	}

	if logger.logDir == "" {
		return logger, nil
	}

	if err := os.MkdirAll(logger.logDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}
	if err := logger.setupFiles(); err != nil {
		logger.Close()
		return nil, err
	}

	return logger, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{log: base}
}

// setupFiles opens the per-level files and attaches them through a hook.
func (l *Logger) setupFiles() error {
	infoFile, err := l.openLogFile("info.log")
	if err != nil {
		return err
	}
	warningFile, err := l.openLogFile("warning.log")
	if err != nil {
		return err
	}
	errorFile, err := l.openLogFile("error.log")
	if err != nil {
		return err
	}

	l.log.AddHook(&levelFileHook{
		formatter: &logrus.TextFormatter{FullTimestamp: true, DisableColors: true},
		writers: map[logrus.Level]io.Writer{
			logrus.DebugLevel: infoFile,
			logrus.InfoLevel:  infoFile,
			logrus.WarnLevel:  warningFile,
			logrus.ErrorLevel: errorFile,
			logrus.FatalLevel: errorFile,
			logrus.PanicLevel: errorFile,
		},
	})
	return nil
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) (*os.File, error) {
	file, err := os.OpenFile(filepath.Join(l.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", name)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

// Close flushes and closes the per-level files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result *multierror.Error
	for _, f := range l.files {
		if err := f.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	l.files = nil
	return result.ErrorOrNil()
}

// levelFileHook mirrors entries into one file per level.
type levelFileHook struct {
	formatter logrus.Formatter
	writers   map[logrus.Level]io.Writer
}

func (h *levelFileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelFileHook) Fire(entry *logrus.Entry) error {
	w, ok := h.writers[entry.Level]
	if !ok {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = w.Write(line)
	return err
}
