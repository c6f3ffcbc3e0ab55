package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"emotioncam/internal/config"
	"emotioncam/internal/dto"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"
	"emotioncam/internal/repository/sqlite"
)

func TestSnapshotNameRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 15, 14, 30, 5, 123_000_000, time.Local)

	name := SnapshotName(ts, "unknown_10.0.0.5", []string{"Happy", "Sad"})
	if !strings.HasPrefix(name, "2025-06-15_14-30_05.123_") || !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("unexpected name %q", name)
	}

	parsed, err := ParseSnapshotName(name)
	if err != nil {
		t.Fatalf("ParseSnapshotName failed: %v", err)
	}
	if !parsed.Timestamp.Equal(ts) {
		t.Errorf("timestamp: got %v want %v", parsed.Timestamp, ts)
	}
	if parsed.Camera != "unknown-10.0.0.5" {
		t.Errorf("camera: got %q", parsed.Camera)
	}
	if len(parsed.Emotions) != 2 || parsed.Emotions[0] != "Happy" || parsed.Emotions[1] != "Sad" {
		t.Errorf("emotions: got %v", parsed.Emotions)
	}
}

func TestParseSnapshotNameInvalid(t *testing.T) {
	for _, name := range []string{"", "photo.jpg", "a_b_c_d.jpg", "2025-06-15_xx_05.000_cam_.jpg"} {
		if _, err := ParseSnapshotName(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func newTestBuffer(t *testing.T) (*BufferService, *sqlite.SnapshotRepository, *sqlite.FaceRepository, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	snapshots := sqlite.NewSnapshotRepository(db)
	faces := sqlite.NewFaceRepository(db)
	cfg := &config.Config{
		ImageDirectory:      filepath.Join(dir, "images"),
		SnapshotBufferLimit: 2,
		FlushInterval:       30,
	}
	return NewBufferService(cfg, logger.Discard(), snapshots, faces), snapshots, faces, cfg.ImageDirectory
}

func TestBufferLimitPerCamera(t *testing.T) {
	buffer, _, _, _ := newTestBuffer(t)

	for i := 0; i < 3; i++ {
		buffer.AddSnapshot(dto.BufferedSnapshot{Camera: "door", Data: []byte{1}})
	}
	if !buffer.AddSnapshot(dto.BufferedSnapshot{Camera: "hall", Data: []byte{1}}) {
		t.Errorf("another camera should still have room")
	}
	if buffer.Pending() != 3 {
		t.Errorf("expected 3 pending, got %d", buffer.Pending())
	}
}

func TestFlushWritesFilesAndIndexes(t *testing.T) {
	buffer, snapshots, faces, dir := newTestBuffer(t)

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	buffer.AddSnapshot(dto.BufferedSnapshot{
		Timestamp: ts,
		Camera:    "door",
		FrameID:   "f-1",
		Data:      []byte("jpeg"),
		Faces: []dto.FaceSummary{
			{Emotion: "Happy", Box: models.BoundingBox{Left: 1, Top: 2, Right: 30, Bottom: 40}, Confidence: 60},
			{Emotion: "Happy", Confidence: 55},
		},
	})

	if saved := buffer.FlushSnapshots(); saved != 1 {
		t.Fatalf("expected 1 saved, got %d", saved)
	}
	if buffer.Pending() != 0 {
		t.Errorf("buffer should be empty after flush")
	}

	name := SnapshotName(ts, "door", []string{"Happy"})
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("snapshot file missing or wrong: %v", err)
	}

	stored, err := snapshots.GetByFilename(name)
	if err != nil || stored == nil || stored.FrameID != "f-1" || stored.FileSize != 4 {
		t.Fatalf("snapshot not indexed: %+v, %v", stored, err)
	}
	records, err := faces.GetBySnapshotID(stored.ID)
	if err != nil || len(records) != 2 || records[0].Right != 30 {
		t.Errorf("faces not indexed: %+v, %v", records, err)
	}

	if !buffer.AddSnapshot(dto.BufferedSnapshot{Camera: "door", Data: []byte{1}}) {
		t.Errorf("per-camera counter should reset after flush")
	}
}

func TestFlushPrunesOldest(t *testing.T) {
	buffer, snapshots, _, dir := newTestBuffer(t)
	buffer.maxDirBytes = 10
	buffer.limit = 10

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		buffer.AddSnapshot(dto.BufferedSnapshot{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Camera:    "door",
			Data:      []byte("12345"),
		})
	}
	buffer.FlushSnapshots()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files left, got %d", len(entries))
	}
	oldest := SnapshotName(base, "door", nil)
	if exists, _ := snapshots.Exists(oldest); exists {
		t.Errorf("oldest snapshot should be removed from the database")
	}

	size, err := buffer.DirectorySize()
	if err != nil || size != 10 {
		t.Errorf("DirectorySize = %d, %v", size, err)
	}
}
