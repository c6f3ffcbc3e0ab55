package pipeline

import (
	"fmt"

	"emotioncam/internal/models"
)

// Status lines shown above the overlay.
const (
	StatusDetectionFailed      = "Failed to run face detection"
	StatusNoFaces              = "No faces were found!"
	StatusFaceDetected         = "A face was detected!"
	StatusClassificationFailed = "Image classification failed!"
	StatusNoFacesStill         = "No faces were detected in the image. Try again!"
)

const (
	CommandRect = "rect"
	CommandText = "text"

	AnchorBottomLeft  = "bottom-left"
	AnchorBottomRight = "bottom-right"
)

// DrawCommand is one primitive in canvas coordinates.
type DrawCommand struct {
	Kind   string `json:"kind"`
	Left   int    `json:"left"`
	Top    int    `json:"top"`
	Right  int    `json:"right"`
	Bottom int    `json:"bottom"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Anchor string `json:"anchor,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Overlay replaces whatever the viewer drew for the previous frame.
type Overlay struct {
	Camera   string        `json:"camera"`
	FrameID  string        `json:"frameId"`
	Clear    bool          `json:"clear"`
	Status   string        `json:"status"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	ScaleX   float64       `json:"scaleX"`
	ScaleY   float64       `json:"scaleY"`
	Commands []DrawCommand `json:"commands"`
}

// Presentation controls how a classification is written out.
type Presentation struct {
	Still     bool
	Alternate bool
	Decimals  int
}

// NewPresentation maps the PRESENTATION and LABEL_SET settings.
// The live overlay shows whole percents; still images show two decimals.
func NewPresentation(mode, labelSet string) Presentation {
	p := Presentation{Alternate: labelSet == "alternate"}
	if mode == "still" {
		p.Still = true
		p.Decimals = 2
	}
	return p
}

// Label formats a classification for display.
func (p Presentation) Label(r models.ClassificationResult) string {
	name := r.Label.String()
	if p.Alternate {
		name = r.Label.AltName()
	}
	if p.Still {
		return fmt.Sprintf("The face is '%s' with classification value of %.*f %%", name, p.Decimals, r.ConfidencePercent)
	}
	return fmt.Sprintf("%s: %.*f%%", name, p.Decimals, r.ConfidencePercent)
}

// Renderer converts frame results into draw commands for a canvas.
type Renderer struct {
	presentation Presentation
}

func NewRenderer(presentation Presentation) *Renderer {
	return &Renderer{presentation: presentation}
}

// Presentation returns the formatting rules used for labels.
func (r *Renderer) Presentation() Presentation {
	return r.presentation
}

// Render scales every face box from display space onto the canvas.
func (r *Renderer) Render(canvas models.Size, results models.FrameResults) Overlay {
	overlay := Overlay{
		Camera:   results.Camera,
		FrameID:  results.FrameID,
		Clear:    true,
		Width:    canvas.Width,
		Height:   canvas.Height,
		Commands: []DrawCommand{},
	}

	if results.DisplayWidth <= 0 || results.DisplayHeight <= 0 {
		overlay.Status = StatusNoFaces
		return overlay
	}

	overlay.ScaleX = float64(canvas.Width) / float64(results.DisplayWidth)
	overlay.ScaleY = float64(canvas.Height) / float64(results.DisplayHeight)

	sx := func(v int) int { return v * canvas.Width / results.DisplayWidth }
	sy := func(v int) int { return v * canvas.Height / results.DisplayHeight }

	classified := true
	for _, face := range results.Faces {
		left, top := sx(face.Box.Left), sy(face.Box.Top)
		right, bottom := sx(face.Box.Right), sy(face.Box.Bottom)

		overlay.Commands = append(overlay.Commands, DrawCommand{
			Kind:   CommandRect,
			Left:   left,
			Top:    top,
			Right:  right,
			Bottom: bottom,
		})

		if face.Classification == nil {
			classified = false
			continue
		}

		text := DrawCommand{
			Kind:   CommandText,
			Text:   r.presentation.Label(*face.Classification),
			Y:      bottom,
			X:      left,
			Anchor: AnchorBottomLeft,
		}
		if left >= right {
			text.X = right
			text.Anchor = AnchorBottomRight
		}
		overlay.Commands = append(overlay.Commands, text)
	}

	switch {
	case len(results.Faces) == 0:
		overlay.Status = StatusNoFaces
	case !classified:
		overlay.Status = StatusClassificationFailed
	default:
		overlay.Status = StatusFaceDetected
	}
	return overlay
}
