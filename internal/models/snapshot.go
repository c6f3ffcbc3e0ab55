package models

import "time"

// Snapshot is an annotated frame persisted to disk.
type Snapshot struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Camera    string    `json:"camera"`
	FrameID   string    `json:"frame_id"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// FaceRecord is one classified face belonging to a snapshot.
type FaceRecord struct {
	ID         int64   `json:"id"`
	SnapshotID int64   `json:"snapshot_id"`
	Emotion    string  `json:"emotion"`
	Left       int     `json:"left"`
	Top        int     `json:"top"`
	Right      int     `json:"right"`
	Bottom     int     `json:"bottom"`
	Confidence float64 `json:"confidence"`
}

// SnapshotStats contains statistics about stored snapshots.
type SnapshotStats struct {
	TotalSnapshots int            `json:"total_snapshots"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerCamera      map[string]int `json:"per_camera"`
	EmotionCounts  map[string]int `json:"emotion_counts"`
}
