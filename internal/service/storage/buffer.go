package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"emotioncam/internal/config"
	"emotioncam/internal/dto"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"
	"emotioncam/internal/repository"
)

// BufferService buffers annotated snapshots in memory and periodically
// flushes them to disk and the database.
type BufferService struct {
	imagesDir     string
	limit         int
	flushInterval time.Duration
	maxDirBytes   int64

	snapshots   []dto.BufferedSnapshot
	bufferCount map[string]int
	mu          sync.Mutex

	logger       *logger.Logger
	snapshotRepo repository.SnapshotRepository
	faceRepo     repository.FaceRepository
}

// NewBufferService creates a new BufferService. Repositories may be nil.
func NewBufferService(cfg *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository, faceRepo repository.FaceRepository) *BufferService {
	return &BufferService{
		imagesDir:     cfg.ImageDirectory,
		limit:         cfg.SnapshotBufferLimit,
		flushInterval: time.Duration(cfg.FlushInterval) * time.Second,
		maxDirBytes:   cfg.MaxImageDirectorySize << 30,
		snapshots:     make([]dto.BufferedSnapshot, 0),
		bufferCount:   make(map[string]int),
		logger:        logger,
		snapshotRepo:  snapshotRepo,
		faceRepo:      faceRepo,
	}
}

// Run flushes on every tick and once more when ctx is cancelled.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushSnapshots()
		case <-ctx.Done():
			s.FlushSnapshots()
			return
		}
	}
}

// AddSnapshot appends a snapshot unless the camera already filled its share.
func (s *BufferService) AddSnapshot(snapshot dto.BufferedSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferCount[snapshot.Camera] >= s.limit {
		return false
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now()
	}

	s.snapshots = append(s.snapshots, snapshot)
	s.bufferCount[snapshot.Camera]++
	s.logger.Debug("Buffer size for camera %s: %d/%d", snapshot.Camera, s.bufferCount[snapshot.Camera], s.limit)
	return true
}

// HasRoom reports whether the camera can buffer another snapshot before the next flush.
func (s *BufferService) HasRoom(camera string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferCount[camera] < s.limit
}

// Pending is the number of snapshots waiting for the next flush.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// FlushSnapshots writes buffered snapshots to disk, indexes them and
// resets the per-camera counters.
func (s *BufferService) FlushSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, snapshot := range s.snapshots {
		filename := SnapshotName(snapshot.Timestamp, snapshot.Camera, snapshot.Emotions())
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, snapshot.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}

		if s.snapshotRepo != nil {
			s.index(snapshot, filename, fullpath)
		}
		savedCount++
	}

	s.logger.Info("💾 Flushed %d snapshots to disk", savedCount)
	s.snapshots = s.snapshots[:0]
	s.bufferCount = make(map[string]int)

	if s.maxDirBytes > 0 {
		s.prune()
	}
	return savedCount
}

func (s *BufferService) index(snapshot dto.BufferedSnapshot, filename, fullpath string) {
	snapshotID, err := s.snapshotRepo.Insert(&models.Snapshot{
		Filename:  filename,
		Camera:    snapshot.Camera,
		FrameID:   snapshot.FrameID,
		Timestamp: snapshot.Timestamp,
		FilePath:  fullpath,
		FileSize:  int64(len(snapshot.Data)),
	})
	if err != nil {
		s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
		return
	}

	if s.faceRepo == nil || len(snapshot.Faces) == 0 {
		return
	}

	faces := make([]models.FaceRecord, 0, len(snapshot.Faces))
	for _, f := range snapshot.Faces {
		faces = append(faces, models.FaceRecord{
			SnapshotID: snapshotID,
			Emotion:    f.Emotion,
			Left:       f.Box.Left,
			Top:        f.Box.Top,
			Right:      f.Box.Right,
			Bottom:     f.Box.Bottom,
			Confidence: f.Confidence,
		})
	}
	if err := s.faceRepo.InsertBatch(faces); err != nil {
		s.logger.Error("Error saving faces to database: %v", err)
	}
}

// prune deletes the oldest snapshots until the directory fits the size cap.
// Filenames start with the timestamp, so name order is age order.
func (s *BufferService) prune() {
	entries, err := os.ReadDir(s.imagesDir)
	if err != nil {
		s.logger.Error("Error reading %s: %v", s.imagesDir, err)
		return
	}

	type file struct {
		name string
		size int64
	}
	var files []file
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{name: e.Name(), size: info.Size()})
		total += info.Size()
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	removed := 0
	for _, f := range files {
		if total <= s.maxDirBytes {
			break
		}
		if err := os.Remove(filepath.Join(s.imagesDir, f.name)); err != nil {
			s.logger.Error("Error removing %s: %v", f.name, err)
			continue
		}
		if s.snapshotRepo != nil {
			if err := s.snapshotRepo.DeleteByFilename(f.name); err != nil {
				s.logger.Error("Error removing %s from database: %v", f.name, err)
			}
		}
		total -= f.size
		removed++
	}

	if removed > 0 {
		s.logger.Warning("🧹 Image directory over limit, removed %d oldest snapshots", removed)
	}
}

// DirectorySize returns the total size of the snapshot directory in bytes.
func (s *BufferService) DirectorySize() (int64, error) {
	var size int64
	err := filepath.WalkDir(s.imagesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return size, err
}

// MaxDirectorySize is the configured cap in bytes, 0 when unlimited.
func (s *BufferService) MaxDirectorySize() int64 {
	return s.maxDirBytes
}

func (s *BufferService) ImagesDir() string {
	return s.imagesDir
}
