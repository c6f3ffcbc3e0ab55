package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"emotioncam/internal/config"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields = logrus.Fields

// Logger provides leveled logging to stdout and one rotating file per level.
type Logger struct {
	base   *logrus.Logger
	entry  *logrus.Entry
	logDir string
	files  map[string]*lumberjack.Logger
	mu     *sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) *Logger {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(consoleFormatter())
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		base.SetLevel(level)
	}

	files := make(map[string]*lumberjack.Logger)
	addHook := func(name string, levels ...logrus.Level) {
		hook := newFileHook(filepath.Join(cfg.LogDirectory, name), levels...)
		files[name] = hook.writer
		base.AddHook(hook)
	}
	addHook("info.log", logrus.InfoLevel, logrus.DebugLevel)
	addHook("warning.log", logrus.WarnLevel)
	addHook("error.log", logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel)

	return &Logger{
		base:   base,
		entry:  logrus.NewEntry(base),
		logDir: cfg.LogDirectory,
		files:  files,
		mu:     &sync.Mutex{},
	}
}

// Discard returns a Logger that drops everything. Used by tests.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{
		base:  base,
		entry: logrus.NewEntry(base),
		mu:    &sync.Mutex{},
	}
}

func consoleFormatter() logrus.Formatter {
	return &formatter.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		FieldsOrder:     []string{"camera", "frame"},
	}
}

// WithFields returns a child logger that attaches fields to every entry.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{
		base:   l.base,
		entry:  l.entry.WithFields(fields),
		logDir: l.logDir,
		files:  l.files,
		mu:     l.mu,
	}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// CleanLogs empties the specified log file. The old content moves to a
// rotated backup so the writer's size accounting stays correct.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logDir == "" {
		return nil
	}

	writer, ok := l.files[filepath.Base(fileName)]
	if !ok {
		return fmt.Errorf("unknown log file %s", fileName)
	}
	if err := writer.Rotate(); err != nil {
		l.Error("Error clearing %s: %v", fileName, err)
		return fmt.Errorf("failed to clear %s: %w", fileName, err)
	}

	l.Info("File content has been cleared: %s", fileName)
	return nil
}

// fileHook writes entries of the given levels to a rotating file.
type fileHook struct {
	writer    *lumberjack.Logger
	levels    []logrus.Level
	formatter logrus.Formatter
}

func newFileHook(path string, levels ...logrus.Level) *fileHook {
	return &fileHook{
		writer: &lumberjack.Logger{
			Filename:   path,
			LocalTime:  true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		},
		levels: levels,
		formatter: &formatter.Formatter{
			TimestampFormat: "2006-01-02 15:04:05",
			NoColors:        true,
			FieldsOrder:     []string{"camera", "frame"},
		},
	}
}

func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
