package ai

import (
	"fmt"
	"os"
	"sync"

	"emotioncam/internal/models"

	"gocv.io/x/gocv"
)

// DNNEngine runs the emotion model through the OpenCV dnn module.
// Any format ReadNet understands works (onnx, pb, caffemodel).
type DNNEngine struct {
	net gocv.Net
	mu  sync.Mutex
}

func NewDNNEngine(modelPath string) (*DNNEngine, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to read network: %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set backend: %v", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set target: %v", err)
	}

	return &DNNEngine{net: net}, nil
}

func (e *DNNEngine) Run(input []float32, output []float32) error {
	if len(input) != models.PatchSize*models.PatchSize {
		return fmt.Errorf("input has %d values", len(input))
	}

	blob := gocv.NewMatWithSizes([]int{1, 1, models.PatchSize, models.PatchSize}, gocv.MatTypeCV32F)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("failed to access input blob: %v", err)
	}
	copy(data, input)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	if out.Empty() || int(out.Total()) < len(output) {
		return fmt.Errorf("unexpected output size %d", out.Total())
	}

	for i := range output {
		output[i] = out.GetFloatAt(0, i)
	}
	return nil
}

func (e *DNNEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
