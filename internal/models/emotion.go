package models

import (
	"fmt"
	"strings"
)

// Emotion is one of the seven categories the classifier was trained on.
// The numeric value is the output tensor index and must never change.
type Emotion int

const (
	Angry Emotion = iota
	Disgusted
	Afraid
	Happy
	Sad
	Surprised
	Neutral
)

// EmotionCount is the length of the classifier output vector.
const EmotionCount = 7

var emotionNames = [EmotionCount]string{"Angry", "Disgusted", "Afraid", "Happy", "Sad", "Surprised", "Neutral"}

// alternate spelling used by the still-photo presentation
var emotionAltNames = [EmotionCount]string{"Angry", "Disgust", "Fear", "Happy", "Sad", "Surprise", "Neutral"}

func (e Emotion) String() string {
	if e < 0 || int(e) >= EmotionCount {
		return fmt.Sprintf("Emotion(%d)", int(e))
	}
	return emotionNames[e]
}

// AltName returns the alternate label spelling for the same index.
func (e Emotion) AltName() string {
	if e < 0 || int(e) >= EmotionCount {
		return e.String()
	}
	return emotionAltNames[e]
}

// Emotions returns all categories in index order.
func Emotions() []Emotion {
	out := make([]Emotion, EmotionCount)
	for i := range out {
		out[i] = Emotion(i)
	}
	return out
}

// ParseEmotion accepts either spelling, case-insensitively.
func ParseEmotion(name string) (Emotion, error) {
	for i := 0; i < EmotionCount; i++ {
		if strings.EqualFold(name, emotionNames[i]) || strings.EqualFold(name, emotionAltNames[i]) {
			return Emotion(i), nil
		}
	}
	return 0, fmt.Errorf("unknown emotion %q", name)
}

func (e Emotion) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Emotion) UnmarshalText(text []byte) error {
	parsed, err := ParseEmotion(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// NormalizedPatch is the 48x48 single-channel classifier input, row-major.
type NormalizedPatch struct {
	Pix []float32
}

// PatchSize is the edge length of a NormalizedPatch.
const PatchSize = 48

// ClassificationResult is the classifier verdict for a single face.
type ClassificationResult struct {
	Label             Emotion               `json:"label"`
	Probabilities     [EmotionCount]float32 `json:"probabilities"`
	ConfidencePercent float64               `json:"confidence"`
}

// FaceResult pairs a display-space box with its classification.
// A nil Classification means the classifier was unavailable for this face.
type FaceResult struct {
	Box            BoundingBox           `json:"box"`
	Classification *ClassificationResult `json:"classification,omitempty"`
}

// FrameResults is everything the renderer needs for one frame.
type FrameResults struct {
	FrameID       string       `json:"frameId"`
	Camera        string       `json:"camera"`
	DisplayWidth  int          `json:"displayWidth"`
	DisplayHeight int          `json:"displayHeight"`
	Faces         []FaceResult `json:"faces"`
}
