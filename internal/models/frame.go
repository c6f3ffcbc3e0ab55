package models

import (
	"fmt"
	"time"
)

// BytesPerPixel is the stride of one RGBA8888 pixel.
const BytesPerPixel = 4

// MaxFrameDimension bounds width and height so the buffer size cannot overflow.
const MaxFrameDimension = 16384

// Frame is one camera frame as delivered by a frame source.
// It is owned by a single pipeline pass and never mutated.
type Frame struct {
	ID         string
	Camera     string
	Pixels     []byte // RGBA8888, row-major, sensor orientation
	Width      int
	Height     int
	Rotation   int // clockwise degrees needed to bring the sensor image upright
	Mirrored   bool
	CapturedAt time.Time
}

// NewFrame validates the buffer size and rotation before building a Frame.
func NewFrame(id, camera string, pixels []byte, width, height, rotation int, mirrored bool) (*Frame, error) {
	if width <= 0 || height <= 0 || width > MaxFrameDimension || height > MaxFrameDimension {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pixels) != width*height*BytesPerPixel {
		return nil, fmt.Errorf("pixel buffer has %d bytes, expected %d for %dx%d RGBA", len(pixels), width*height*BytesPerPixel, width, height)
	}
	if !ValidRotation(rotation) {
		return nil, fmt.Errorf("unsupported rotation %d", rotation)
	}

	return &Frame{
		ID:         id,
		Camera:     camera,
		Pixels:     pixels,
		Width:      width,
		Height:     height,
		Rotation:   rotation,
		Mirrored:   mirrored,
		CapturedAt: time.Now(),
	}, nil
}

// ValidRotation reports whether degrees is one of 0, 90, 180 or 270.
func ValidRotation(degrees int) bool {
	switch degrees {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// DisplaySize returns the frame dimensions after rotation.
func (f *Frame) DisplaySize() (int, int) {
	if f.Rotation == 90 || f.Rotation == 270 {
		return f.Height, f.Width
	}
	return f.Width, f.Height
}

// BoundingBox is an axis-aligned face region in pixel coordinates.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (b BoundingBox) Width() int  { return b.Right - b.Left }
func (b BoundingBox) Height() int { return b.Bottom - b.Top }
func (b BoundingBox) Area() int   { return b.Width() * b.Height() }

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Left >= b.Right || b.Top >= b.Bottom
}

// Mirror reflects the box horizontally inside a space of the given width.
func (b BoundingBox) Mirror(width int) BoundingBox {
	return BoundingBox{
		Left:   width - b.Right,
		Top:    b.Top,
		Right:  width - b.Left,
		Bottom: b.Bottom,
	}
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
