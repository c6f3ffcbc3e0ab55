package ai

import (
	"fmt"

	"emotioncam/internal/models"
	"emotioncam/internal/pipeline"

	"gocv.io/x/gocv"
)

// uprightMat returns the frame as a BGR Mat in display orientation.
// When mirrored is false the mirror flag of the frame is ignored, which is
// the space detectors report boxes in.
func uprightMat(frame *models.Frame, mirrored bool) (gocv.Mat, error) {
	f := *frame
	f.Mirrored = mirrored && frame.Mirrored
	upright := pipeline.Upright(&f)

	rgba, err := gocv.NewMatFromBytes(upright.Rect.Dy(), upright.Rect.Dx(), gocv.MatTypeCV8UC4, upright.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap frame: %v", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	if err := gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR); err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("failed to convert frame: %v", err)
	}
	return bgr, nil
}
