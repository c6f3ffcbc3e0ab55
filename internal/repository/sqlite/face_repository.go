package sqlite

import (
	"fmt"

	"emotioncam/internal/models"
)

// FaceRepository implements repository.FaceRepository for SQLite.
type FaceRepository struct {
	db *DB
}

// NewFaceRepository creates a new SQLite face repository.
func NewFaceRepository(db *DB) *FaceRepository {
	return &FaceRepository{db: db}
}

const insertFace = `
	INSERT INTO faces (snapshot_id, emotion, box_left, box_top, box_right, box_bottom, confidence)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Insert adds a new face record to the database.
func (r *FaceRepository) Insert(face *models.FaceRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertFace,
		face.SnapshotID, face.Emotion, face.Left, face.Top, face.Right, face.Bottom, face.Confidence)
	if err != nil {
		return 0, fmt.Errorf("failed to insert face: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple faces in a single transaction.
func (r *FaceRepository) InsertBatch(faces []models.FaceRecord) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertFace)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range faces {
		if _, err := stmt.Exec(f.SnapshotID, f.Emotion, f.Left, f.Top, f.Right, f.Bottom, f.Confidence); err != nil {
			return fmt.Errorf("failed to insert face: %w", err)
		}
	}

	return tx.Commit()
}

// GetBySnapshotID retrieves all faces for a snapshot.
func (r *FaceRepository) GetBySnapshotID(snapshotID int64) ([]models.FaceRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, snapshot_id, emotion, box_left, box_top, box_right, box_bottom, confidence
		FROM faces WHERE snapshot_id = ? ORDER BY id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query faces: %w", err)
	}
	defer rows.Close()

	var faces []models.FaceRecord
	for rows.Next() {
		var f models.FaceRecord
		if err := rows.Scan(&f.ID, &f.SnapshotID, &f.Emotion, &f.Left, &f.Top, &f.Right, &f.Bottom, &f.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan face: %w", err)
		}
		faces = append(faces, f)
	}

	return faces, rows.Err()
}

// GetEmotionsBySnapshotID returns the distinct emotions seen in a snapshot.
func (r *FaceRepository) GetEmotionsBySnapshotID(snapshotID int64) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryStrings(`SELECT DISTINCT emotion FROM faces WHERE snapshot_id = ? ORDER BY emotion`, snapshotID)
}

// GetAllEmotions returns every emotion that was ever stored.
func (r *FaceRepository) GetAllEmotions() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.queryStrings(`SELECT DISTINCT emotion FROM faces ORDER BY emotion`)
}

func (r *FaceRepository) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query emotions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan emotion: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteBySnapshotID removes all faces for a specific snapshot.
func (r *FaceRepository) DeleteBySnapshotID(snapshotID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM faces WHERE snapshot_id = ?`, snapshotID); err != nil {
		return fmt.Errorf("failed to delete faces: %w", err)
	}
	return nil
}
