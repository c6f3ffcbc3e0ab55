package ai

import (
	"fmt"

	"gocv.io/x/gocv"
)

// JPEGDecoder decodes camera JPEGs into RGBA8888.
type JPEGDecoder struct{}

func NewJPEGDecoder() *JPEGDecoder {
	return &JPEGDecoder{}
}

func (d *JPEGDecoder) Decode(data []byte) ([]byte, int, int, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, 0, 0, fmt.Errorf("decoded image is empty")
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	if err := gocv.CvtColor(mat, &rgba, gocv.ColorBGRToRGBA); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to convert image to RGBA: %v", err)
	}

	return rgba.ToBytes(), rgba.Cols(), rgba.Rows(), nil
}
