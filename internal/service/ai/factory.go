package ai

import (
	"fmt"
	"io"

	"emotioncam/internal/config"
	"emotioncam/internal/pipeline"
)

// FaceDetector is a pipeline.Detector that holds native resources.
type FaceDetector interface {
	pipeline.Detector
	io.Closer
}

// NewDetector builds the face detector selected by DETECTOR.
func NewDetector(cfg *config.Config) (FaceDetector, error) {
	switch cfg.Detector {
	case "cascade":
		return NewCascadeDetector(cfg.CascadePath)
	case "yunet":
		return NewYuNetDetector(cfg.YuNetPath)
	default:
		return nil, fmt.Errorf("unknown detector %q", cfg.Detector)
	}
}

// NewEngineLoader returns a loader for the engine selected by
// CLASSIFIER_ENGINE. Nothing is opened until the loader runs.
func NewEngineLoader(cfg *config.Config) pipeline.EngineLoader {
	engine := cfg.ClassifierEngine
	path := cfg.ClassifierModelPath
	threads := cfg.ClassifierThreads

	return func() (pipeline.Engine, error) {
		switch engine {
		case "tflite":
			return NewTFLiteEngine(path, threads)
		case "opencv":
			return NewDNNEngine(path)
		default:
			return nil, fmt.Errorf("unknown classifier engine %q", engine)
		}
	}
}
