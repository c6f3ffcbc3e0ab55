package pipeline

import (
	"fmt"

	"emotioncam/internal/models"
)

// Aggregate pairs each box with its classification and moves the box into
// display space. A nil classification marks a face the classifier could not
// handle. An empty box list yields ErrNoFaceDetected.
func Aggregate(frame *models.Frame, boxes []models.BoundingBox, classifications []*models.ClassificationResult) (models.FrameResults, error) {
	displayW, displayH := frame.DisplaySize()
	results := models.FrameResults{
		FrameID:       frame.ID,
		Camera:        frame.Camera,
		DisplayWidth:  displayW,
		DisplayHeight: displayH,
		Faces:         []models.FaceResult{},
	}

	if len(boxes) != len(classifications) {
		return results, fmt.Errorf("aggregate: %d boxes but %d classifications", len(boxes), len(classifications))
	}
	if len(boxes) == 0 {
		return results, ErrNoFaceDetected
	}

	for i, box := range boxes {
		if frame.Mirrored {
			box = box.Mirror(displayW)
		}
		results.Faces = append(results.Faces, models.FaceResult{
			Box:            box,
			Classification: classifications[i],
		})
	}
	return results, nil
}
