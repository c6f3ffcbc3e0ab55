package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emotioncam/internal/logger"
	"emotioncam/internal/models"
)

// FrameReport is the outcome of one pass. Err is frame-scoped and only
// informational; Overlay is always usable.
type FrameReport struct {
	Frame    *models.Frame
	Results  models.FrameResults
	Overlay  Overlay
	Err      error
	Duration time.Duration
}

// Pipeline chains detection, normalization, classification, aggregation and rendering.
type Pipeline struct {
	candidates *CandidateAdapter
	normalizer *Normalizer
	classifier *Classifier
	renderer   *Renderer
	canvas     models.Size
	logger     *logger.Logger
}

func New(candidates *CandidateAdapter, normalizer *Normalizer, classifier *Classifier, renderer *Renderer, canvas models.Size, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		candidates: candidates,
		normalizer: normalizer,
		classifier: classifier,
		renderer:   renderer,
		canvas:     canvas,
		logger:     logger,
	}
}

// Process runs the whole pass for one frame and always returns a renderable overlay.
func (p *Pipeline) Process(ctx context.Context, frame *models.Frame) FrameReport {
	start := time.Now()
	report := FrameReport{Frame: frame}
	log := p.logger.WithFields(map[string]interface{}{"camera": frame.Camera, "frame": frame.ID})

	boxes, err := p.candidates.Detect(ctx, frame)
	if err != nil {
		log.Warning("Face detection failed: %v", err)
		report.Results, _ = Aggregate(frame, nil, nil)
		report.Overlay = p.renderer.Render(p.canvas, report.Results)
		report.Overlay.Status = StatusDetectionFailed
		report.Err = err
		report.Duration = time.Since(start)
		return report
	}

	classifications, classifyErr := p.classifyAll(frame, boxes)

	results, err := Aggregate(frame, boxes, classifications)
	if err != nil && !errors.Is(err, ErrNoFaceDetected) {
		log.Error("Aggregation failed: %v", err)
	}
	report.Results = results
	report.Overlay = p.renderer.Render(p.canvas, results)

	switch {
	case err != nil:
		report.Err = err
	case classifyErr != nil:
		report.Err = classifyErr
		log.Warning("Classification unavailable: %v", classifyErr)
	}

	report.Duration = time.Since(start)
	log.Debug("Processed %d face(s) in %v", len(results.Faces), report.Duration)
	return report
}

// classifyAll returns one entry per box; failed faces get nil.
func (p *Pipeline) classifyAll(frame *models.Frame, boxes []models.BoundingBox) ([]*models.ClassificationResult, error) {
	classifications := make([]*models.ClassificationResult, len(boxes))
	if len(boxes) == 0 {
		return classifications, nil
	}

	upright := Upright(frame)
	var firstErr error
	for i, box := range boxes {
		patch := p.normalizer.NormalizeUpright(upright, frame.Mirrored, box)
		result, err := p.classifier.Classify(patch)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		classifications[i] = &result
	}
	return classifications, firstErr
}

// StillResult is the verdict for a single photo.
type StillResult struct {
	Face models.FaceResult
	Text string
}

// ClassifyStill classifies the largest face in a photo.
func (p *Pipeline) ClassifyStill(ctx context.Context, frame *models.Frame) (StillResult, error) {
	var still StillResult

	boxes, err := p.candidates.Detect(ctx, frame)
	if err != nil {
		return still, err
	}
	if len(boxes) == 0 {
		return still, ErrNoFaceDetected
	}

	largest := boxes[0]
	for _, box := range boxes[1:] {
		if box.Area() > largest.Area() {
			largest = box
		}
	}

	patch := p.normalizer.Normalize(frame, largest)
	result, err := p.classifier.Classify(patch)
	if err != nil {
		return still, err
	}

	results, err := Aggregate(frame, []models.BoundingBox{largest}, []*models.ClassificationResult{&result})
	if err != nil {
		return still, fmt.Errorf("aggregate still: %w", err)
	}

	still.Face = results.Faces[0]
	still.Text = p.renderer.Presentation().Label(result)
	return still, nil
}
