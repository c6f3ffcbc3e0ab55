package repository

import (
	"emotioncam/internal/dto"
	"emotioncam/internal/models"
)

// SnapshotRepository defines the interface for snapshot data operations.
type SnapshotRepository interface {
	// Create operations
	Insert(s *models.Snapshot) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Snapshot, error)
	GetByFilename(filename string) (*models.Snapshot, error)
	GetAll(filter *dto.SnapshotFilters) ([]models.Snapshot, error)
	GetTotalCount(filter *dto.SnapshotFilters) (int, error)
	Exists(filename string) (bool, error)
	GetCameras() ([]string, error)
	GetStats() (*models.SnapshotStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// FaceRepository defines the interface for classified face operations.
type FaceRepository interface {
	// Create operations
	Insert(face *models.FaceRecord) (int64, error)
	InsertBatch(faces []models.FaceRecord) error

	// Read operations
	GetBySnapshotID(snapshotID int64) ([]models.FaceRecord, error)
	GetEmotionsBySnapshotID(snapshotID int64) ([]string, error)
	GetAllEmotions() ([]string, error)

	// Delete operations
	DeleteBySnapshotID(snapshotID int64) error
}
