package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"emotioncam/internal/dto"
	"emotioncam/internal/models"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert adds a new snapshot record to the database.
func (r *SnapshotRepository) Insert(s *models.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO snapshots (filename, camera, frame_id, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Filename, s.Camera, s.FrameID, s.Timestamp.Format(timestampLayout), s.FilePath, s.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

const snapshotColumns = `s.id, s.filename, s.camera, s.frame_id, s.timestamp, s.filepath, s.filesize`

func scanSnapshot(row interface{ Scan(...interface{}) error }) (*models.Snapshot, error) {
	var s models.Snapshot
	if err := row.Scan(&s.ID, &s.Filename, &s.Camera, &s.FrameID, &s.Timestamp, &s.FilePath, &s.FileSize); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves a snapshot by its ID. A missing row is (nil, nil).
func (r *SnapshotRepository) GetByID(id int64) (*models.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanSnapshot(r.db.Conn().QueryRow(`SELECT `+snapshotColumns+` FROM snapshots s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return s, nil
}

// GetByFilename retrieves a snapshot by its filename. A missing row is (nil, nil).
func (r *SnapshotRepository) GetByFilename(filename string) (*models.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanSnapshot(r.db.Conn().QueryRow(`SELECT `+snapshotColumns+` FROM snapshots s WHERE s.filename = ?`, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return s, nil
}

// filterClause appends WHERE conditions for the gallery filters.
func filterClause(filter *dto.SnapshotFilters) (string, []interface{}) {
	clause := ""
	args := []interface{}{}
	if filter == nil {
		return clause, args
	}

	if filter.Camera != "" {
		clause += " AND s.camera = ?"
		args = append(args, filter.Camera)
	}

	if filter.Emotion != "" {
		clause += " AND EXISTS (SELECT 1 FROM faces f WHERE f.snapshot_id = s.id AND f.emotion = ?)"
		args = append(args, filter.Emotion)
	}

	if !filter.DateAfter.IsZero() {
		clause += " AND DATE(s.timestamp) >= DATE(?)"
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		clause += " AND DATE(s.timestamp) <= DATE(?)"
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	if !filter.TimeAfter.IsZero() {
		clause += " AND TIME(s.timestamp) >= TIME(?)"
		args = append(args, filter.TimeAfter.Format("15:04:05"))
	}

	if !filter.TimeBefore.IsZero() {
		clause += " AND TIME(s.timestamp) <= TIME(?)"
		args = append(args, filter.TimeBefore.Format("15:04:05"))
	}

	return clause, args
}

// GetAll retrieves snapshots based on filter criteria, newest first.
func (r *SnapshotRepository) GetAll(filter *dto.SnapshotFilters) ([]models.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := filterClause(filter)
	query := `SELECT ` + snapshotColumns + ` FROM snapshots s WHERE 1=1` + clause + ` ORDER BY s.timestamp DESC, s.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}

	return snapshots, rows.Err()
}

// GetTotalCount returns the total count of snapshots matching the filter.
func (r *SnapshotRepository) GetTotalCount(filter *dto.SnapshotFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM snapshots s WHERE 1=1`+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return count, nil
}

// Exists checks if a snapshot with the given filename exists.
func (r *SnapshotRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM snapshots WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	return count > 0, nil
}

// GetCameras returns a list of unique camera names.
func (r *SnapshotRepository) GetCameras() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT camera FROM snapshots ORDER BY camera`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []string
	for rows.Next() {
		var camera string
		if err := rows.Scan(&camera); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, camera)
	}
	return cameras, rows.Err()
}

// GetStats returns statistics about stored snapshots.
func (r *SnapshotRepository) GetStats() (*models.SnapshotStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.SnapshotStats{
		PerCamera:     make(map[string]int),
		EmotionCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*), COALESCE(SUM(filesize), 0) FROM snapshots`).Scan(&stats.TotalSnapshots, &stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to count snapshots: %w", err)
	}

	if err := r.countInto(stats.PerCamera, `SELECT camera, COUNT(*) FROM snapshots GROUP BY camera`); err != nil {
		return nil, err
	}

	if err := r.countInto(stats.EmotionCounts, `SELECT emotion, COUNT(*) FROM faces GROUP BY emotion`); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *SnapshotRepository) countInto(dst map[string]int, query string) error {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan stats: %w", err)
		}
		dst[key] = count
	}
	return rows.Err()
}

// Delete removes a snapshot and its faces by ID.
func (r *SnapshotRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	return r.deleteByID(id)
}

func (r *SnapshotRepository) deleteByID(id int64) error {
	if _, err := r.db.Conn().Exec(`DELETE FROM faces WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete faces: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// DeleteByFilename removes a snapshot by its filename. Unknown names are ignored.
func (r *SnapshotRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var id int64
	err := r.db.Conn().QueryRow(`SELECT id FROM snapshots WHERE filename = ?`, filename).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get snapshot id: %w", err)
	}

	return r.deleteByID(id)
}

// DeleteAll removes all snapshots and their faces.
func (r *SnapshotRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM faces`); err != nil {
		return fmt.Errorf("failed to delete faces: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	return nil
}
