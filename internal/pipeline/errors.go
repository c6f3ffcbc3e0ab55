package pipeline

import "errors"

// Frame-scoped failures. None of them stop the runner.
var (
	ErrDetectionFailed           = errors.New("face detection failed")
	ErrNoFaceDetected            = errors.New("no face detected")
	ErrRegionOutOfBounds         = errors.New("face region out of bounds")
	ErrClassificationUnavailable = errors.New("classification unavailable")
)
