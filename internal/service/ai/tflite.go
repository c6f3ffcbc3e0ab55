package ai

import (
	"fmt"
	"os"
	"sync"

	"emotioncam/internal/models"

	"github.com/mattn/go-tflite"
)

// TFLiteEngine runs the emotion model with the TensorFlow Lite interpreter.
type TFLiteEngine struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	mu          sync.Mutex
}

func NewTFLiteEngine(modelPath string, threads int) (*TFLiteEngine, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return nil, fmt.Errorf("cannot load model: %s", modelPath)
	}

	options := tflite.NewInterpreterOptions()
	if threads > 0 {
		options.SetNumThread(threads)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter for %s", modelPath)
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("allocate tensors failed: %v", status)
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || input.Type() != tflite.Float32 {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("model input must be float32")
	}

	return &TFLiteEngine{
		model:       model,
		options:     options,
		interpreter: interpreter,
	}, nil
}

func (e *TFLiteEngine) Run(input []float32, output []float32) error {
	if len(input) != models.PatchSize*models.PatchSize {
		return fmt.Errorf("input has %d values", len(input))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter == nil {
		return fmt.Errorf("interpreter closed")
	}

	if status := e.interpreter.GetInputTensor(0).CopyFromBuffer(input); status != tflite.OK {
		return fmt.Errorf("copy input failed: %v", status)
	}
	if status := e.interpreter.Invoke(); status != tflite.OK {
		return fmt.Errorf("invoke failed: %v", status)
	}

	probs := e.interpreter.GetOutputTensor(0).Float32s()
	if len(probs) < len(output) {
		return fmt.Errorf("unexpected output size %d", len(probs))
	}
	copy(output, probs)
	return nil
}

func (e *TFLiteEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter != nil {
		e.interpreter.Delete()
		e.options.Delete()
		e.model.Delete()
		e.interpreter = nil
	}
	return nil
}
