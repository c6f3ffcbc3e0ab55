package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"emotioncam/internal/config"
)

func newTestLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{LogDirectory: dir, LogLevel: "debug"}
	return NewLogger(cfg), dir
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("read %s failed: %v", name, err)
	}
	return string(data)
}

func TestLevelsGoToSeparateFiles(t *testing.T) {
	l, dir := newTestLogger(t)

	l.Info("camera %s online", "door")
	l.Warning("dropped %d frames", 3)
	l.Error("engine failed: %v", "boom")

	if got := readLog(t, dir, "info.log"); !strings.Contains(got, "camera door online") {
		t.Errorf("info.log missing entry: %q", got)
	}
	if got := readLog(t, dir, "warning.log"); !strings.Contains(got, "dropped 3 frames") {
		t.Errorf("warning.log missing entry: %q", got)
	}
	if got := readLog(t, dir, "error.log"); !strings.Contains(got, "engine failed: boom") {
		t.Errorf("error.log missing entry: %q", got)
	}
	if got := readLog(t, dir, "info.log"); strings.Contains(got, "engine failed") {
		t.Errorf("error entry leaked into info.log")
	}
}

func TestWithFields(t *testing.T) {
	l, dir := newTestLogger(t)

	l.WithFields(Fields{"camera": "hall", "frame": "f-1"}).Info("processed")

	got := readLog(t, dir, "info.log")
	if !strings.Contains(got, "hall") || !strings.Contains(got, "f-1") {
		t.Errorf("expected fields in entry, got %q", got)
	}
}

func TestCleanLogs(t *testing.T) {
	l, dir := newTestLogger(t)

	l.Warning("something odd")
	if err := l.CleanLogs("warning.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	if got := readLog(t, dir, "warning.log"); got != "" {
		t.Errorf("expected empty warning.log, got %q", got)
	}

	l.Warning("after clear")
	got := readLog(t, dir, "warning.log")
	if !strings.Contains(got, "after clear") || strings.Contains(got, "something odd") {
		t.Errorf("warning.log after clear = %q", got)
	}

	backups, err := filepath.Glob(filepath.Join(dir, "warning-*.log"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("expected 1 rotated backup, got %v", backups)
	}
}

func TestCleanLogsUnknownFile(t *testing.T) {
	l, _ := newTestLogger(t)

	if err := l.CleanLogs("other.log"); err == nil {
		t.Error("expected error for unknown log file")
	}
	if err := l.WithFields(Fields{"camera": "door"}).CleanLogs("info.log"); err != nil {
		t.Errorf("child logger CleanLogs failed: %v", err)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	if err := l.CleanLogs("info.log"); err != nil {
		t.Errorf("discard logger CleanLogs should be a no-op, got %v", err)
	}
}
