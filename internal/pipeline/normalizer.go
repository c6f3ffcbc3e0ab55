package pipeline

import (
	"fmt"
	"image"

	"emotioncam/internal/models"

	"golang.org/x/image/draw"
)

const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Normalizer turns a face region into the fixed classifier input geometry.
type Normalizer struct {
	scale float32
}

// NewNormalizer builds a Normalizer that multiplies luma by scale.
// A scale of 1 keeps values in 0..255.
func NewNormalizer(scale float64) *Normalizer {
	return &Normalizer{scale: float32(scale)}
}

// Normalize rotates and mirrors the frame, crops the box and rescales it
// to 48x48 grayscale. The box must come from CandidateAdapter.
func (n *Normalizer) Normalize(frame *models.Frame, box models.BoundingBox) models.NormalizedPatch {
	return n.NormalizeUpright(Upright(frame), frame.Mirrored, box)
}

// NormalizeUpright works on an image already produced by Upright, so a frame
// with several faces is only rotated once. The box is in unmirrored space.
func (n *Normalizer) NormalizeUpright(upright *image.RGBA, mirrored bool, box models.BoundingBox) models.NormalizedPatch {
	bounds := upright.Bounds()
	if mirrored {
		box = box.Mirror(bounds.Dx())
	}
	region := image.Rect(box.Left, box.Top, box.Right, box.Bottom)
	if box.Empty() || !region.In(bounds) {
		panic(fmt.Sprintf("normalize: box %+v outside %v", box, bounds))
	}

	scaled := image.NewRGBA(image.Rect(0, 0, models.PatchSize, models.PatchSize))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), upright, region, draw.Src, nil)

	pix := make([]float32, models.PatchSize*models.PatchSize)
	for i := range pix {
		o := i * models.BytesPerPixel
		r := float32(scaled.Pix[o])
		g := float32(scaled.Pix[o+1])
		b := float32(scaled.Pix[o+2])
		pix[i] = (lumaR*r + lumaG*g + lumaB*b) * n.scale
	}
	return models.NormalizedPatch{Pix: pix}
}

// Upright returns the frame rotated clockwise by its Rotation and then
// mirrored horizontally when Mirrored is set.
func Upright(frame *models.Frame) *image.RGBA {
	w, h := frame.Width, frame.Height
	dw, dh := frame.DisplaySize()
	out := image.NewRGBA(image.Rect(0, 0, dw, dh))

	if frame.Rotation == 0 && !frame.Mirrored {
		copy(out.Pix, frame.Pixels)
		return out
	}

	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			ux := x
			if frame.Mirrored {
				ux = dw - 1 - x
			}

			var sx, sy int
			switch frame.Rotation {
			case 90:
				sx, sy = y, h-1-ux
			case 180:
				sx, sy = w-1-ux, h-1-y
			case 270:
				sx, sy = w-1-y, ux
			default:
				sx, sy = ux, y
			}

			s := (sy*w + sx) * models.BytesPerPixel
			d := y*out.Stride + x*models.BytesPerPixel
			copy(out.Pix[d:d+models.BytesPerPixel], frame.Pixels[s:s+models.BytesPerPixel])
		}
	}
	return out
}
