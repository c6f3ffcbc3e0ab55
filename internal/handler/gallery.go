package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"emotioncam/internal/dto"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"
	"emotioncam/internal/repository"
	"emotioncam/internal/service"
)

// SnapshotDirectory reports on the directory snapshots are flushed to.
type SnapshotDirectory interface {
	DirectorySize() (int64, error)
	MaxDirectorySize() int64
	ImagesDir() string
}

// CameraStatsProvider reports live runner state.
type CameraStatsProvider interface {
	Stats() []service.CameraStats
}

// GetSnapshotsHandler returns a filtered, paginated list of snapshots from the database.
func GetSnapshotsHandler(dir SnapshotDirectory, logger *logger.Logger,
	snapshotRepo repository.SnapshotRepository, faceRepo repository.FaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.SnapshotFilters{
			Camera:     q.Get("camera"),
			Emotion:    q.Get("emotion"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			TimeAfter:  parseTimeOfDay(q.Get("timeAfter")),
			TimeBefore: parseTimeOfDay(q.Get("timeBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}
		if filter.Emotion != "" {
			if e, err := models.ParseEmotion(filter.Emotion); err == nil {
				filter.Emotion = e.String()
			}
		}

		snapshots, err := snapshotRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying snapshots from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := dir.DirectorySize()
		if err != nil {
			logger.Error("Error getting image directory size: %v", err)
			totalSize = 0
		}

		totalCount, err := snapshotRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting snapshots: %v", err)
			totalCount = len(snapshots)
		}

		infos := make([]dto.SnapshotInfo, 0, len(snapshots))
		for _, s := range snapshots {
			emotions, err := faceRepo.GetEmotionsBySnapshotID(s.ID)
			if err != nil {
				logger.Error("Error getting emotions for snapshot %d: %v", s.ID, err)
			}
			if emotions == nil {
				emotions = []string{}
			}

			infos = append(infos, dto.SnapshotInfo{
				Name:      s.Filename,
				Date:      s.Timestamp,
				TimeOfDay: s.Timestamp,
				Camera:    s.Camera,
				Emotions:  emotions,
			})
		}

		data := dto.SnapshotsData{
			Snapshots:   infos,
			ImagesDir:   dir.ImagesDir(),
			Size:        totalSize,
			MaxSize:     dir.MaxDirectorySize(),
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		writeJSON(w, logger, http.StatusOK, data)
	}
}

// ViewSnapshotHandler serves a single snapshot file specified via the "image" query parameter.
func ViewSnapshotHandler(dir SnapshotDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		filePath := filepath.Join(dir.ImagesDir(), filepath.Base(image))
		http.ServeFile(w, r, filePath)
	}
}

// DeleteSnapshotHandler removes a snapshot from disk and database.
func DeleteSnapshotHandler(dir SnapshotDirectory, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		if filename == "" {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}
		filename = filepath.Base(filename)

		filePath := filepath.Join(dir.ImagesDir(), filename)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}

		if err := snapshotRepo.DeleteByFilename(filename); err != nil {
			logger.Error("Failed to delete from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Deleted snapshot: %s", filename)
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "filename": filename})
	}
}

// ClearSnapshotsHandler deletes all files from the image directory and clears the database.
func ClearSnapshotsHandler(dir SnapshotDirectory, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := os.ReadDir(dir.ImagesDir())
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading snapshot directory: %v", err)
			http.Error(w, "Unable to read snapshot directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if !file.IsDir() {
				if err := os.Remove(filepath.Join(dir.ImagesDir(), file.Name())); err != nil {
					logger.Error("Error deleting file %s: %v", file.Name(), err)
				}
			}
		}

		if err := snapshotRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
		}

		logger.Info("All snapshots cleared from directory: %s", dir.ImagesDir())
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetFiltersHandler lists the cameras and emotions present in the database.
func GetFiltersHandler(logger *logger.Logger, snapshotRepo repository.SnapshotRepository, faceRepo repository.FaceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameras, err := snapshotRepo.GetCameras()
		if err != nil {
			logger.Error("Error getting cameras: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		emotions, err := faceRepo.GetAllEmotions()
		if err != nil {
			logger.Error("Error getting emotions: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if cameras == nil {
			cameras = []string{}
		}
		if emotions == nil {
			emotions = []string{}
		}
		categories := make([]string, 0, models.EmotionCount)
		for _, e := range models.Emotions() {
			categories = append(categories, e.String())
		}

		writeJSON(w, logger, http.StatusOK, dto.FilterOptions{Cameras: cameras, Emotions: emotions, Categories: categories})
	}
}

// GetStatsHandler returns stored snapshot statistics plus per-camera runner state.
func GetStatsHandler(logger *logger.Logger, snapshotRepo repository.SnapshotRepository, runners CameraStatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := snapshotRepo.GetStats()
		if err != nil {
			logger.Error("Error getting snapshot stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		response := struct {
			*models.SnapshotStats
			Cameras []service.CameraStats `json:"cameras"`
		}{SnapshotStats: stats, Cameras: []service.CameraStats{}}
		if runners != nil {
			response.Cameras = runners.Stats()
		}

		writeJSON(w, logger, http.StatusOK, response)
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimeOfDay parses a time-of-day string in the format "15:04" from the request (HTML input format).
func parseTimeOfDay(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
