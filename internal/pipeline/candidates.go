package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"emotioncam/internal/logger"
	"emotioncam/internal/models"
)

// Detector finds faces in a frame. Boxes are returned in upright space:
// rotated to display orientation but not mirrored.
type Detector interface {
	Detect(ctx context.Context, frame *models.Frame) ([]models.BoundingBox, error)
}

// CandidateAdapter wraps a Detector, bounds its runtime and drops every
// box that is not strictly inside the frame.
type CandidateAdapter struct {
	detector  Detector
	timeout   time.Duration
	logger    *logger.Logger
	discarded atomic.Int64
}

func NewCandidateAdapter(detector Detector, timeout time.Duration, logger *logger.Logger) *CandidateAdapter {
	return &CandidateAdapter{
		detector: detector,
		timeout:  timeout,
		logger:   logger,
	}
}

type detectResult struct {
	boxes []models.BoundingBox
	err   error
}

// Detect runs the detector and returns only interior, non-empty boxes.
// On failure the list is empty and the error wraps ErrDetectionFailed.
func (a *CandidateAdapter) Detect(ctx context.Context, frame *models.Frame) ([]models.BoundingBox, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	done := make(chan detectResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- detectResult{err: fmt.Errorf("detector panic: %v", r)}
			}
		}()
		boxes, err := a.detector.Detect(ctx, frame)
		done <- detectResult{boxes: boxes, err: err}
	}()

	var res detectResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrDetectionFailed, ctx.Err())
	}
	if res.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectionFailed, res.err)
	}

	displayW, displayH := frame.DisplaySize()
	kept := make([]models.BoundingBox, 0, len(res.boxes))
	for _, box := range res.boxes {
		if err := CheckBounds(box, displayW, displayH); err != nil {
			a.discarded.Add(1)
			a.logger.Debug("Discarding face candidate: %v", err)
			continue
		}
		kept = append(kept, box)
	}
	return kept, nil
}

// Discarded is the number of boxes dropped for touching or crossing an edge.
func (a *CandidateAdapter) Discarded() int64 {
	return a.discarded.Load()
}

// CheckBounds rejects boxes with no area or that touch or cross the frame edge.
// Boxes are never clamped.
func CheckBounds(box models.BoundingBox, width, height int) error {
	if box.Empty() {
		return fmt.Errorf("%w: empty box %+v", ErrRegionOutOfBounds, box)
	}
	if box.Left <= 0 || box.Top <= 0 || box.Left+box.Width() > width || box.Top+box.Height() > height {
		return fmt.Errorf("%w: box %+v in %dx%d frame", ErrRegionOutOfBounds, box, width, height)
	}
	return nil
}
