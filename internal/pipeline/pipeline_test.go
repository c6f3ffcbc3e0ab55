package pipeline

import (
	"context"
	"errors"
	"testing"

	"emotioncam/internal/models"
)

var live = NewPresentation("live", "canonical")

func TestProcessSingleHappyFace(t *testing.T) {
	frame := newTestFrame(t, 640, 480, 0, false)
	detector := &fakeDetector{boxes: []models.BoundingBox{{Left: 100, Top: 100, Right: 200, Bottom: 200}}}
	engine := &fakeEngine{output: happyOutput}
	p := newTestPipeline(detector, engine, live, models.Size{Width: 1280, Height: 960})

	report := p.Process(context.Background(), frame)

	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if len(report.Results.Faces) != 1 {
		t.Fatalf("expected one face, got %d", len(report.Results.Faces))
	}
	cls := report.Results.Faces[0].Classification
	if cls == nil || cls.Label != models.Happy || cls.ConfidencePercent != 60 {
		t.Fatalf("unexpected classification %+v", cls)
	}

	overlay := report.Overlay
	if !overlay.Clear || overlay.Status != StatusFaceDetected {
		t.Errorf("unexpected overlay header %+v", overlay)
	}
	if len(overlay.Commands) != 2 {
		t.Fatalf("expected rect and text, got %+v", overlay.Commands)
	}
	rect := overlay.Commands[0]
	if rect.Kind != CommandRect || rect.Left != 200 || rect.Top != 200 || rect.Right != 400 || rect.Bottom != 400 {
		t.Errorf("rect not scaled: %+v", rect)
	}
	if overlay.Commands[1].Text != "Happy: 60%" {
		t.Errorf("unexpected label %q", overlay.Commands[1].Text)
	}
	if engine.calls.Load() != 1 {
		t.Errorf("expected one inference, got %d", engine.calls.Load())
	}
}

func TestProcessNoDetections(t *testing.T) {
	engine := &fakeEngine{output: happyOutput}
	p := newTestPipeline(&fakeDetector{}, engine, live, models.Size{Width: 320, Height: 240})

	report := p.Process(context.Background(), newTestFrame(t, 64, 48, 0, false))

	if !errors.Is(report.Err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", report.Err)
	}
	if report.Overlay.Status != StatusNoFaces || !report.Overlay.Clear || len(report.Overlay.Commands) != 0 {
		t.Errorf("unexpected overlay %+v", report.Overlay)
	}
	if engine.calls.Load() != 0 {
		t.Errorf("engine should not run without faces")
	}
}

func TestProcessEdgeDetectionNeverClassified(t *testing.T) {
	detector := &fakeDetector{boxes: []models.BoundingBox{{Left: 0, Top: 10, Right: 30, Bottom: 40}}}
	engine := &fakeEngine{output: happyOutput}
	p := newTestPipeline(detector, engine, live, models.Size{Width: 320, Height: 240})

	report := p.Process(context.Background(), newTestFrame(t, 64, 48, 0, false))

	if engine.calls.Load() != 0 {
		t.Errorf("engine invoked %d times for an excluded box", engine.calls.Load())
	}
	if report.Overlay.Status != StatusNoFaces || len(report.Overlay.Commands) != 0 {
		t.Errorf("unexpected overlay %+v", report.Overlay)
	}
}

func TestProcessDetectionFailure(t *testing.T) {
	p := newTestPipeline(&fakeDetector{err: errBoom}, &fakeEngine{output: happyOutput}, live, models.Size{Width: 320, Height: 240})

	report := p.Process(context.Background(), newTestFrame(t, 64, 48, 0, false))

	if !errors.Is(report.Err, ErrDetectionFailed) {
		t.Errorf("expected ErrDetectionFailed, got %v", report.Err)
	}
	if report.Overlay.Status != StatusDetectionFailed || !report.Overlay.Clear {
		t.Errorf("unexpected overlay %+v", report.Overlay)
	}
}

func TestProcessClassificationFailure(t *testing.T) {
	detector := &fakeDetector{boxes: []models.BoundingBox{{Left: 5, Top: 5, Right: 30, Bottom: 30}}}
	p := newTestPipeline(detector, &fakeEngine{err: errBoom}, live, models.Size{Width: 64, Height: 48})

	report := p.Process(context.Background(), newTestFrame(t, 64, 48, 0, false))

	if !errors.Is(report.Err, ErrClassificationUnavailable) {
		t.Errorf("expected ErrClassificationUnavailable, got %v", report.Err)
	}
	if report.Overlay.Status != StatusClassificationFailed {
		t.Errorf("unexpected status %q", report.Overlay.Status)
	}
	if len(report.Overlay.Commands) != 1 || report.Overlay.Commands[0].Kind != CommandRect {
		t.Errorf("expected the box without a label, got %+v", report.Overlay.Commands)
	}
}

func TestProcessMirroredRotatedFrame(t *testing.T) {
	// 480x640 sensor rotated 90 is 640x480 upright.
	frame := newTestFrame(t, 480, 640, 90, true)
	detector := &fakeDetector{boxes: []models.BoundingBox{{Left: 100, Top: 100, Right: 200, Bottom: 200}}}
	p := newTestPipeline(detector, &fakeEngine{output: happyOutput}, live, models.Size{Width: 640, Height: 480})

	report := p.Process(context.Background(), frame)

	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	rect := report.Overlay.Commands[0]
	if rect.Left != 440 || rect.Right != 540 || rect.Top != 100 || rect.Bottom != 200 {
		t.Errorf("mirrored box not reflected into display space: %+v", rect)
	}
}

func TestClassifyStillPicksLargestFace(t *testing.T) {
	detector := &fakeDetector{boxes: []models.BoundingBox{
		{Left: 5, Top: 5, Right: 15, Bottom: 15},
		{Left: 20, Top: 10, Right: 60, Bottom: 40},
		{Left: 70, Top: 5, Right: 80, Bottom: 30},
	}}
	still := NewPresentation("still", "alternate")
	engine := &fakeEngine{output: happyOutput}
	p := newTestPipeline(detector, engine, still, models.Size{Width: 100, Height: 50})

	result, err := p.ClassifyStill(context.Background(), newTestFrame(t, 100, 50, 0, false))
	if err != nil {
		t.Fatalf("ClassifyStill failed: %v", err)
	}
	if result.Face.Box != detector.boxes[1] {
		t.Errorf("expected the largest box, got %+v", result.Face.Box)
	}
	if result.Text != "The face is 'Happy' with classification value of 60.00 %" {
		t.Errorf("unexpected text %q", result.Text)
	}
	if engine.calls.Load() != 1 {
		t.Errorf("only the largest face should be classified")
	}
}

func TestClassifyStillNoFace(t *testing.T) {
	p := newTestPipeline(&fakeDetector{}, &fakeEngine{output: happyOutput}, NewPresentation("still", "alternate"), models.Size{Width: 10, Height: 10})

	if _, err := p.ClassifyStill(context.Background(), newTestFrame(t, 10, 10, 0, false)); !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}
