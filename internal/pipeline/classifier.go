package pipeline

import (
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"emotioncam/internal/logger"
	"emotioncam/internal/models"
)

// Engine runs the emotion network: 48x48x1 in, 1x7 probabilities out.
// Implementations serialize Run internally.
type Engine interface {
	Run(input []float32, output []float32) error
}

// EngineLoader opens the model. It is called lazily on the first frame and
// again after a failed load.
type EngineLoader func() (Engine, error)

type engineHandle struct {
	engine Engine
}

// Classifier owns the shared engine handle.
type Classifier struct {
	load     EngineLoader
	decimals int
	logger   *logger.Logger

	mu     sync.Mutex
	handle atomic.Pointer[engineHandle]
}

// NewClassifier does not load the engine; the first Classify call does.
func NewClassifier(load EngineLoader, decimals int, logger *logger.Logger) *Classifier {
	return &Classifier{
		load:     load,
		decimals: decimals,
		logger:   logger,
	}
}

func (c *Classifier) engine() (Engine, error) {
	if h := c.handle.Load(); h != nil {
		return h.engine, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if h := c.handle.Load(); h != nil {
		return h.engine, nil
	}

	engine, err := c.load()
	if err != nil {
		return nil, err
	}
	c.handle.Store(&engineHandle{engine: engine})
	c.logger.Info("✅ Emotion classifier loaded")
	return engine, nil
}

// Classify runs the patch through the engine and picks the most likely emotion.
func (c *Classifier) Classify(patch models.NormalizedPatch) (models.ClassificationResult, error) {
	var result models.ClassificationResult

	if len(patch.Pix) != models.PatchSize*models.PatchSize {
		return result, fmt.Errorf("%w: patch has %d values", ErrClassificationUnavailable, len(patch.Pix))
	}

	engine, err := c.engine()
	if err != nil {
		c.logger.Error("Failed to load classifier: %v", err)
		return result, fmt.Errorf("%w: load: %v", ErrClassificationUnavailable, err)
	}

	output := make([]float32, models.EmotionCount)
	if err := engine.Run(patch.Pix, output); err != nil {
		return result, fmt.Errorf("%w: inference: %v", ErrClassificationUnavailable, err)
	}

	label, p, err := SelectLabel(output)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}

	result.Label = label
	copy(result.Probabilities[:], output)
	result.ConfidencePercent = ConfidencePercent(p, c.decimals)
	return result, nil
}

// Loaded reports whether the engine handle is live.
func (c *Classifier) Loaded() bool {
	return c.handle.Load() != nil
}

// Close releases the engine if it holds native resources.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.handle.Swap(nil)
	if h == nil {
		return nil
	}
	if closer, ok := h.engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SelectLabel returns the argmax of probs. Ties go to the lowest index.
func SelectLabel(probs []float32) (models.Emotion, float32, error) {
	if len(probs) != models.EmotionCount {
		return 0, 0, fmt.Errorf("expected %d outputs, got %d", models.EmotionCount, len(probs))
	}

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return models.Emotion(best), probs[best], nil
}

// ConfidencePercent converts a probability to a percentage rounded to decimals places.
func ConfidencePercent(p float32, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(float64(p)*100*pow) / pow
}
