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

// CascadeDetector finds frontal faces with an OpenCV Haar cascade.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	minSize    image.Point
	mu         sync.Mutex
}

func NewCascadeDetector(path string) (*CascadeDetector, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("cascade file not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade: %s", path)
	}

	return &CascadeDetector{
		classifier: classifier,
		minSize:    image.Pt(30, 30),
	}, nil
}

// Detect returns boxes in upright, unmirrored space.
func (d *CascadeDetector) Detect(ctx context.Context, frame *models.Frame) ([]models.BoundingBox, error) {
	mat, err := uprightMat(frame, false)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, 1.1, 5, 0, d.minSize, image.Point{})
	d.mu.Unlock()

	return rectsToBoxes(rects), nil
}

func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}

func rectsToBoxes(rects []image.Rectangle) []models.BoundingBox {
	boxes := make([]models.BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, models.BoundingBox{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y})
	}
	return boxes
}
