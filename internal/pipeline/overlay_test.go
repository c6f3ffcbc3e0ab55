package pipeline

import (
	"testing"

	"emotioncam/internal/models"
)

func TestRenderFullFrameBox(t *testing.T) {
	tests := []struct {
		name            string
		display, canvas models.Size
	}{
		{"upscale", models.Size{Width: 640, Height: 480}, models.Size{Width: 1280, Height: 960}},
		{"odd ratio", models.Size{Width: 333, Height: 777}, models.Size{Width: 1080, Height: 1920}},
		{"downscale", models.Size{Width: 1920, Height: 1080}, models.Size{Width: 301, Height: 199}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := models.FrameResults{
				DisplayWidth:  tt.display.Width,
				DisplayHeight: tt.display.Height,
				Faces: []models.FaceResult{{
					Box: models.BoundingBox{Right: tt.display.Width, Bottom: tt.display.Height},
				}},
			}

			overlay := NewRenderer(NewPresentation("live", "canonical")).Render(tt.canvas, results)

			rect := overlay.Commands[0]
			if rect.Left != 0 || rect.Top != 0 || rect.Right != tt.canvas.Width || rect.Bottom != tt.canvas.Height {
				t.Errorf("full-frame box mapped to %+v", rect)
			}
		})
	}
}

func TestRenderCommands(t *testing.T) {
	results := models.FrameResults{
		DisplayWidth:  400,
		DisplayHeight: 300,
		Faces: []models.FaceResult{
			{
				Box:            models.BoundingBox{Left: 40, Top: 30, Right: 120, Bottom: 90},
				Classification: &models.ClassificationResult{Label: models.Sad, ConfidencePercent: 72},
			},
			{
				Box: models.BoundingBox{Left: 200, Top: 100, Right: 260, Bottom: 160},
			},
		},
	}

	overlay := NewRenderer(NewPresentation("live", "canonical")).Render(models.Size{Width: 800, Height: 600}, results)

	if !overlay.Clear {
		t.Errorf("every overlay must clear the previous one")
	}
	if overlay.ScaleX != 2 || overlay.ScaleY != 2 {
		t.Errorf("unexpected scale %v x %v", overlay.ScaleX, overlay.ScaleY)
	}
	if overlay.Status != StatusClassificationFailed {
		t.Errorf("expected %q, got %q", StatusClassificationFailed, overlay.Status)
	}
	if len(overlay.Commands) != 3 {
		t.Fatalf("expected rect+text+rect, got %+v", overlay.Commands)
	}

	text := overlay.Commands[1]
	if text.Kind != CommandText || text.Text != "Sad: 72%" {
		t.Errorf("unexpected text command %+v", text)
	}
	if text.X != 80 || text.Y != 180 || text.Anchor != AnchorBottomLeft {
		t.Errorf("text should sit at the bottom-left corner, got %+v", text)
	}
	if overlay.Commands[2].Kind != CommandRect {
		t.Errorf("unclassified face should still get a rect")
	}
}

func TestRenderAnchorsInvertedBoxBottomRight(t *testing.T) {
	results := models.FrameResults{
		DisplayWidth:  100,
		DisplayHeight: 100,
		Faces: []models.FaceResult{{
			Box:            models.BoundingBox{Left: 60, Top: 10, Right: 20, Bottom: 50},
			Classification: &models.ClassificationResult{Label: models.Neutral, ConfidencePercent: 51},
		}},
	}

	overlay := NewRenderer(NewPresentation("live", "canonical")).Render(models.Size{Width: 100, Height: 100}, results)

	text := overlay.Commands[1]
	if text.Anchor != AnchorBottomRight || text.X != 20 {
		t.Errorf("expected bottom-right anchor at x=20, got %+v", text)
	}
}

func TestRenderNoFaces(t *testing.T) {
	results := models.FrameResults{DisplayWidth: 100, DisplayHeight: 100}

	overlay := NewRenderer(NewPresentation("live", "canonical")).Render(models.Size{Width: 50, Height: 50}, results)

	if !overlay.Clear || overlay.Status != StatusNoFaces || len(overlay.Commands) != 0 {
		t.Errorf("unexpected overlay %+v", overlay)
	}
}

func TestPresentationLabel(t *testing.T) {
	result := models.ClassificationResult{Label: models.Afraid, ConfidencePercent: 43.21}

	tests := []struct {
		mode, labelSet string
		want           string
	}{
		{"live", "canonical", "Afraid: 43%"},
		{"live", "alternate", "Fear: 43%"},
		{"still", "alternate", "The face is 'Fear' with classification value of 43.21 %"},
		{"still", "canonical", "The face is 'Afraid' with classification value of 43.21 %"},
	}

	for _, tt := range tests {
		if got := NewPresentation(tt.mode, tt.labelSet).Label(result); got != tt.want {
			t.Errorf("%s/%s: got %q, want %q", tt.mode, tt.labelSet, got, tt.want)
		}
	}
}
