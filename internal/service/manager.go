package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"emotioncam/internal/dto"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"
	"emotioncam/internal/pipeline"

	"github.com/google/uuid"
)

// Decoder turns a compressed camera image into RGBA8888 pixels.
type Decoder interface {
	Decode(data []byte) (pixels []byte, width, height int, err error)
}

// Annotator draws an overlay given in display coordinates onto the upright
// frame and returns a JPEG.
type Annotator interface {
	Annotate(frame *models.Frame, overlay pipeline.Overlay) ([]byte, error)
}

type Broadcaster interface {
	BroadcastJSON(v interface{}) error
}

type SnapshotBuffer interface {
	HasRoom(camera string) bool
	AddSnapshot(snapshot dto.BufferedSnapshot) bool
}

type ResultPublisher interface {
	Publish(report pipeline.FrameReport) error
}

// ErrStopped is returned for frames that arrive after Stop.
var ErrStopped = errors.New("manager stopped")

// CameraStats describes one camera runner.
type CameraStats struct {
	Camera  string `json:"camera"`
	Busy    bool   `json:"busy"`
	Dropped uint64 `json:"dropped"`
}

// Manager routes frames to one runner per camera and fans finished
// reports out to viewers, the snapshot buffer and the broker.
type Manager struct {
	processor pipeline.Processor
	renderer  *pipeline.Renderer
	decoder   Decoder
	annotator Annotator
	viewers   Broadcaster
	buffer    SnapshotBuffer
	publisher ResultPublisher
	logger    *logger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	runners map[string]*pipeline.Runner
	stopped bool
	wg      sync.WaitGroup
}

// NewManager wires the collaborators. publisher may be nil.
func NewManager(processor pipeline.Processor, renderer *pipeline.Renderer, decoder Decoder, annotator Annotator, viewers Broadcaster, buffer SnapshotBuffer, publisher ResultPublisher, logger *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		processor: processor,
		renderer:  renderer,
		decoder:   decoder,
		annotator: annotator,
		viewers:   viewers,
		buffer:    buffer,
		publisher: publisher,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		runners:   make(map[string]*pipeline.Runner),
	}
}

// HandleCameraImage decodes a JPEG, shows it to viewers right away and
// queues it for analysis.
func (m *Manager) HandleCameraImage(data []byte, camera string, rotation int, mirrored bool) error {
	m.SendToViewers(data, camera, rotation, mirrored)

	pixels, width, height, err := m.decoder.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode frame from %s: %w", camera, err)
	}

	frame, err := models.NewFrame(uuid.New().String(), camera, pixels, width, height, rotation, mirrored)
	if err != nil {
		return err
	}
	if !m.SubmitFrame(frame) {
		return ErrStopped
	}
	return nil
}

// SubmitFrame hands a frame to its camera's runner, starting one if needed.
// It never blocks; an unprocessed older frame is replaced. It returns false
// once the manager has been stopped.
func (m *Manager) SubmitFrame(frame *models.Frame) bool {
	r := m.runnerFor(frame.Camera)
	if r == nil || !r.Submit(frame) {
		m.logger.Debug("Camera %s: runner stopped, frame %s discarded", frame.Camera, frame.ID)
		return false
	}
	return true
}

func (m *Manager) runnerFor(camera string) *pipeline.Runner {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}
	if r, ok := m.runners[camera]; ok {
		return r
	}

	r := pipeline.NewRunner(camera, m.processor, m.handleReport, m.logger)
	m.runners[camera] = r
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		r.Run(m.ctx)
	}()
	m.logger.Info("📹 Camera %s: runner started", camera)
	return r
}

// SendToViewers broadcasts the raw camera image.
func (m *Manager) SendToViewers(image []byte, camera string, rotation int, mirrored bool) {
	err := m.viewers.BroadcastJSON(dto.ViewerMessage{
		Type:     dto.MessageFrame,
		Camera:   camera,
		Image:    base64.StdEncoding.EncodeToString(image),
		Rotation: rotation,
		Mirrored: mirrored,
	})
	if err != nil {
		m.logger.Error("Failed to encode viewer frame: %v", err)
	}
}

// handleReport runs on the camera's runner goroutine.
func (m *Manager) handleReport(report pipeline.FrameReport) {
	err := m.viewers.BroadcastJSON(dto.ViewerMessage{
		Type:    dto.MessageOverlay,
		Camera:  report.Results.Camera,
		Overlay: report.Overlay,
	})
	if err != nil {
		m.logger.Error("Failed to encode overlay: %v", err)
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(report); err != nil {
			m.logger.Warning("Failed to publish result: %v", err)
		}
	}

	m.bufferSnapshot(report)
}

// bufferSnapshot keeps an annotated copy of frames with at least one classified face.
func (m *Manager) bufferSnapshot(report pipeline.FrameReport) {
	if report.Frame == nil || m.buffer == nil || m.annotator == nil {
		return
	}
	if errors.Is(report.Err, pipeline.ErrDetectionFailed) || errors.Is(report.Err, pipeline.ErrNoFaceDetected) {
		return
	}

	var faces []dto.FaceSummary
	for _, face := range report.Results.Faces {
		if face.Classification == nil {
			continue
		}
		faces = append(faces, dto.FaceSummary{
			Emotion:    face.Classification.Label.String(),
			Box:        face.Box,
			Confidence: face.Classification.ConfidencePercent,
		})
	}
	if len(faces) == 0 || !m.buffer.HasRoom(report.Frame.Camera) {
		return
	}

	display := models.Size{Width: report.Results.DisplayWidth, Height: report.Results.DisplayHeight}
	data, err := m.annotator.Annotate(report.Frame, m.renderer.Render(display, report.Results))
	if err != nil {
		m.logger.Error("Failed to annotate snapshot for %s: %v", report.Frame.Camera, err)
		return
	}

	m.buffer.AddSnapshot(dto.BufferedSnapshot{
		Timestamp: report.Frame.CapturedAt,
		Camera:    report.Frame.Camera,
		FrameID:   report.Frame.ID,
		Faces:     faces,
		Data:      data,
	})
}

// Stats returns per-camera runner state sorted by camera.
func (m *Manager) Stats() []CameraStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]CameraStats, 0, len(m.runners))
	for camera, r := range m.runners {
		stats = append(stats, CameraStats{Camera: camera, Busy: r.Busy(), Dropped: r.Dropped()})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Camera < stats[j].Camera })
	return stats
}

// Stop stops every runner after its current pass.
func (m *Manager) Stop(timeout time.Duration) {
	m.mu.Lock()
	m.stopped = true
	for _, r := range m.runners {
		r.Stop()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("🛑 All camera runners stopped")
	case <-time.After(timeout):
		m.logger.Warning("Camera runners did not stop within %v", timeout)
	}
	m.cancel()
}
