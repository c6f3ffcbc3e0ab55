package ai

import (
	"fmt"
	"image"
	"image/color"

	"emotioncam/internal/models"
	"emotioncam/internal/pipeline"

	"gocv.io/x/gocv"
)

var (
	boxColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// SnapshotAnnotator burns overlay commands into a JPEG of the displayed frame.
type SnapshotAnnotator struct{}

func NewSnapshotAnnotator() *SnapshotAnnotator {
	return &SnapshotAnnotator{}
}

// Annotate expects the overlay to be rendered at the frame's display size.
func (a *SnapshotAnnotator) Annotate(frame *models.Frame, overlay pipeline.Overlay) ([]byte, error) {
	mat, err := uprightMat(frame, true)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	for _, cmd := range overlay.Commands {
		switch cmd.Kind {
		case pipeline.CommandRect:
			rect := image.Rect(cmd.Left, cmd.Top, cmd.Right, cmd.Bottom)
			if err := gocv.Rectangle(&mat, rect, boxColor, 2); err != nil {
				return nil, fmt.Errorf("failed to draw rectangle: %v", err)
			}
		case pipeline.CommandText:
			x := cmd.X
			if cmd.Anchor == pipeline.AnchorBottomRight {
				size := gocv.GetTextSize(cmd.Text, gocv.FontHersheySimplex, 0.5, 1)
				x -= size.X
			}
			if err := gocv.PutText(&mat, cmd.Text, image.Pt(x, cmd.Y+15), gocv.FontHersheySimplex, 0.5, textColor, 1); err != nil {
				return nil, fmt.Errorf("failed to draw text: %v", err)
			}
		}
	}

	if overlay.Status != "" {
		if err := gocv.PutText(&mat, overlay.Status, image.Pt(10, 20), gocv.FontHersheySimplex, 0.6, textColor, 2); err != nil {
			return nil, fmt.Errorf("failed to draw status: %v", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
