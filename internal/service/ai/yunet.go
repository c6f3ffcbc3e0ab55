package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"emotioncam/internal/models"

	"gocv.io/x/gocv"
)

const (
	yunetScoreThreshold = 0.8
	yunetNMSThreshold   = 0.3
	yunetTopK           = 50
)

// YuNetDetector finds faces with the OpenCV YuNet network.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	mu       sync.Mutex
}

func NewYuNetDetector(modelPath string) (*YuNetDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	detector := gocv.NewFaceDetectorYN(modelPath, "", image.Pt(320, 320))
	detector.SetScoreThreshold(yunetScoreThreshold)
	detector.SetNMSThreshold(yunetNMSThreshold)
	detector.SetTopK(yunetTopK)

	return &YuNetDetector{detector: detector}, nil
}

// Detect returns boxes in upright, unmirrored space.
// Output rows are [x, y, w, h, 10 landmark values, score].
func (d *YuNetDetector) Detect(ctx context.Context, frame *models.Frame) ([]models.BoundingBox, error) {
	mat, err := uprightMat(frame, false)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	faces := gocv.NewMat()
	defer faces.Close()

	d.mu.Lock()
	d.detector.SetInputSize(image.Pt(mat.Cols(), mat.Rows()))
	d.detector.Detect(mat, &faces)
	d.mu.Unlock()

	if faces.Empty() {
		return nil, nil
	}

	boxes := make([]models.BoundingBox, 0, faces.Rows())
	for i := 0; i < faces.Rows(); i++ {
		x := int(faces.GetFloatAt(i, 0))
		y := int(faces.GetFloatAt(i, 1))
		w := int(faces.GetFloatAt(i, 2))
		h := int(faces.GetFloatAt(i, 3))
		boxes = append(boxes, models.BoundingBox{Left: x, Top: y, Right: x + w, Bottom: y + h})
	}
	return boxes, nil
}

func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
