package dto

import (
	"time"

	"emotioncam/internal/models"
)

// FaceSummary is one labelled face carried with a buffered snapshot.
type FaceSummary struct {
	Emotion    string
	Box        models.BoundingBox
	Confidence float64
}

// BufferedSnapshot holds an annotated JPEG before it is flushed to disk.
type BufferedSnapshot struct {
	Timestamp time.Time
	Camera    string
	FrameID   string
	Faces     []FaceSummary
	Data      []byte
}

// Emotions returns the distinct emotion labels in first-seen order.
func (b *BufferedSnapshot) Emotions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range b.Faces {
		if !seen[f.Emotion] {
			seen[f.Emotion] = true
			out = append(out, f.Emotion)
		}
	}
	return out
}
