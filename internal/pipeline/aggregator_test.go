package pipeline

import (
	"errors"
	"testing"

	"emotioncam/internal/models"
)

func TestAggregate(t *testing.T) {
	happy := &models.ClassificationResult{Label: models.Happy, ConfidencePercent: 60}
	box := models.BoundingBox{Left: 10, Top: 20, Right: 30, Bottom: 50}

	t.Run("unmirrored keeps boxes", func(t *testing.T) {
		frame := newTestFrame(t, 100, 80, 0, false)
		results, err := Aggregate(frame, []models.BoundingBox{box}, []*models.ClassificationResult{happy})
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		if len(results.Faces) != 1 || results.Faces[0].Box != box {
			t.Errorf("unexpected faces %+v", results.Faces)
		}
		if results.Faces[0].Classification != happy {
			t.Errorf("classification not paired with its box")
		}
		if results.DisplayWidth != 100 || results.DisplayHeight != 80 {
			t.Errorf("unexpected display size %dx%d", results.DisplayWidth, results.DisplayHeight)
		}
	})

	t.Run("mirrored reflects into display space", func(t *testing.T) {
		frame := newTestFrame(t, 100, 80, 0, true)
		results, err := Aggregate(frame, []models.BoundingBox{box}, []*models.ClassificationResult{nil})
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		want := models.BoundingBox{Left: 70, Top: 20, Right: 90, Bottom: 50}
		if results.Faces[0].Box != want {
			t.Errorf("got %+v, want %+v", results.Faces[0].Box, want)
		}
		if results.Faces[0].Box.Left >= results.Faces[0].Box.Right {
			t.Errorf("mirrored box must keep left < right")
		}
	})

	t.Run("rotated uses display size", func(t *testing.T) {
		frame := newTestFrame(t, 100, 80, 270, true)
		results, err := Aggregate(frame, []models.BoundingBox{box}, []*models.ClassificationResult{happy})
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		want := models.BoundingBox{Left: 50, Top: 20, Right: 70, Bottom: 50}
		if results.DisplayWidth != 80 || results.Faces[0].Box != want {
			t.Errorf("got width %d box %+v", results.DisplayWidth, results.Faces[0].Box)
		}
	})

	t.Run("no boxes", func(t *testing.T) {
		frame := newTestFrame(t, 100, 80, 0, false)
		results, err := Aggregate(frame, nil, nil)
		if !errors.Is(err, ErrNoFaceDetected) {
			t.Fatalf("expected ErrNoFaceDetected, got %v", err)
		}
		if len(results.Faces) != 0 {
			t.Errorf("expected no faces")
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		frame := newTestFrame(t, 100, 80, 0, false)
		if _, err := Aggregate(frame, []models.BoundingBox{box}, nil); err == nil {
			t.Errorf("expected an error for mismatched lengths")
		}
	})
}
