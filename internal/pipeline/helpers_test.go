package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"emotioncam/internal/logger"
	"emotioncam/internal/models"
)

// newTestFrame fills each pixel with R=x, G=y, B=x+y so positions are recognizable.
func newTestFrame(t *testing.T, width, height, rotation int, mirrored bool) *models.Frame {
	t.Helper()
	pixels := make([]byte, width*height*models.BytesPerPixel)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * models.BytesPerPixel
			pixels[o] = byte(x)
			pixels[o+1] = byte(y)
			pixels[o+2] = byte(x + y)
			pixels[o+3] = 0xFF
		}
	}
	frame, err := models.NewFrame("frame-1", "test-cam", pixels, width, height, rotation, mirrored)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return frame
}

type fakeDetector struct {
	boxes []models.BoundingBox
	err   error
	delay time.Duration
	panic bool
	calls atomic.Int32
}

func (d *fakeDetector) Detect(ctx context.Context, frame *models.Frame) ([]models.BoundingBox, error) {
	d.calls.Add(1)
	if d.panic {
		panic("detector exploded")
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return d.boxes, d.err
}

type fakeEngine struct {
	output []float32
	err    error
	calls  atomic.Int32
	closed atomic.Bool
	mu     sync.Mutex
	inputs [][]float32
}

func (e *fakeEngine) Run(input []float32, output []float32) error {
	e.calls.Add(1)
	e.mu.Lock()
	e.inputs = append(e.inputs, append([]float32(nil), input...))
	e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	copy(output, e.output)
	return nil
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

func loaderFor(engine Engine) EngineLoader {
	return func() (Engine, error) { return engine, nil }
}

var errBoom = errors.New("boom")

var happyOutput = []float32{0.1, 0.05, 0.05, 0.6, 0.1, 0.05, 0.05}

func newTestPipeline(detector Detector, engine Engine, presentation Presentation, canvas models.Size) *Pipeline {
	log := logger.Discard()
	return New(
		NewCandidateAdapter(detector, time.Second, log),
		NewNormalizer(1.0),
		NewClassifier(loaderFor(engine), presentation.Decimals, log),
		NewRenderer(presentation),
		canvas,
		log,
	)
}
