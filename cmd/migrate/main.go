package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emotioncam/internal/models"
	"emotioncam/internal/repository"
	"emotioncam/internal/repository/sqlite"
	"emotioncam/internal/service/storage"

	"github.com/spf13/cobra"
)

var (
	imagesDir string
	dbPath    string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Index an existing snapshot directory into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrate(imagesDir, dbPath)
	},
}

func init() {
	rootCmd.Flags().StringVar(&imagesDir, "images", "images", "Directory containing snapshots")
	rootCmd.Flags().StringVar(&dbPath, "db", filepath.Join("data", "emotioncam.db"), "Database path")
}

func migrate(imagesDir, dbPath string) error {
	fmt.Printf("Migrating snapshots from %s to database %s\n", imagesDir, dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	snapshotRepo := sqlite.NewSnapshotRepository(db)
	faceRepo := sqlite.NewFaceRepository(db)

	files, err := os.ReadDir(imagesDir)
	if err != nil {
		return fmt.Errorf("failed to read images directory: %w", err)
	}

	inserted, skipped, existing := 0, 0, 0
	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".jpg") {
			continue
		}

		ok, err := indexFile(snapshotRepo, faceRepo, imagesDir, file)
		switch {
		case err != nil:
			fmt.Printf("⚠️  Skipping %s: %v\n", file.Name(), err)
			skipped++
		case !ok:
			existing++
		default:
			inserted++
		}
	}

	fmt.Printf("✅ Indexed %d snapshots (%d already present)\n", inserted, existing)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid format or errors)\n", skipped)
	}

	stats, err := snapshotRepo.GetStats()
	if err == nil {
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Total snapshots: %d\n", stats.TotalSnapshots)
		fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
		for camera, count := range stats.PerCamera {
			fmt.Printf("      - %s: %d snapshots\n", camera, count)
		}
		for emotion, count := range stats.EmotionCounts {
			fmt.Printf("      - %s: %d faces\n", emotion, count)
		}
	}
	return nil
}

// indexFile inserts one snapshot and its faces. It returns false when the file is already indexed.
func indexFile(snapshotRepo repository.SnapshotRepository, faceRepo repository.FaceRepository, dir string, file os.DirEntry) (bool, error) {
	exists, err := snapshotRepo.Exists(file.Name())
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	parsed, err := storage.ParseSnapshotName(file.Name())
	if err != nil {
		return false, err
	}
	info, err := file.Info()
	if err != nil {
		return false, err
	}

	id, err := snapshotRepo.Insert(&models.Snapshot{
		Filename:  file.Name(),
		Camera:    parsed.Camera,
		Timestamp: parsed.Timestamp,
		FilePath:  filepath.Join(dir, file.Name()),
		FileSize:  info.Size(),
	})
	if err != nil {
		return false, err
	}

	// boxes and confidences are not part of the filename
	faces := make([]models.FaceRecord, 0, len(parsed.Emotions))
	for _, name := range parsed.Emotions {
		emotion := name
		if e, err := models.ParseEmotion(name); err == nil {
			emotion = e.String()
		}
		faces = append(faces, models.FaceRecord{SnapshotID: id, Emotion: emotion})
	}
	if err := faceRepo.InsertBatch(faces); err != nil {
		return false, err
	}
	return true, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
