package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"emotioncam/internal/dto"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"
	"emotioncam/internal/pipeline"
)

type stubProcessor struct {
	faces []models.FaceResult
	err   error
}

func (p stubProcessor) Process(ctx context.Context, frame *models.Frame) pipeline.FrameReport {
	dw, dh := frame.DisplaySize()
	results := models.FrameResults{FrameID: frame.ID, Camera: frame.Camera, DisplayWidth: dw, DisplayHeight: dh, Faces: p.faces}
	return pipeline.FrameReport{
		Frame:   frame,
		Results: results,
		Overlay: pipeline.NewRenderer(pipeline.NewPresentation("live", "canonical")).Render(models.Size{Width: dw, Height: dh}, results),
		Err:     p.err,
	}
}

type stubDecoder struct {
	err error
}

func (d stubDecoder) Decode(data []byte) ([]byte, int, int, error) {
	if d.err != nil {
		return nil, 0, 0, d.err
	}
	return make([]byte, 4*3*models.BytesPerPixel), 4, 3, nil
}

type stubAnnotator struct {
	mu       sync.Mutex
	overlays []pipeline.Overlay
}

func (a *stubAnnotator) Annotate(frame *models.Frame, overlay pipeline.Overlay) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overlays = append(a.overlays, overlay)
	return []byte("annotated"), nil
}

type recordingViewers struct {
	mu       sync.Mutex
	messages []dto.ViewerMessage
	got      chan struct{}
}

func newRecordingViewers() *recordingViewers {
	return &recordingViewers{got: make(chan struct{}, 16)}
}

func (v *recordingViewers) BroadcastJSON(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var decoded dto.ViewerMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	v.mu.Lock()
	v.messages = append(v.messages, decoded)
	v.mu.Unlock()
	v.got <- struct{}{}
	return nil
}

func (v *recordingViewers) waitFor(t *testing.T, n int) []dto.ViewerMessage {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-v.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for viewer message %d", i+1)
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]dto.ViewerMessage(nil), v.messages...)
}

type stubBuffer struct {
	mu        sync.Mutex
	snapshots []dto.BufferedSnapshot
	full      bool
}

func (b *stubBuffer) HasRoom(camera string) bool { return !b.full }

func (b *stubBuffer) AddSnapshot(s dto.BufferedSnapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, s)
	return true
}

func (b *stubBuffer) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snapshots)
}

type stubPublisher struct {
	mu      sync.Mutex
	reports []pipeline.FrameReport
}

func (p *stubPublisher) Publish(report pipeline.FrameReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, report)
	return nil
}

func newTestManager(processor pipeline.Processor, decoder Decoder, buffer *stubBuffer, publisher ResultPublisher) (*Manager, *recordingViewers, *stubAnnotator) {
	viewers := newRecordingViewers()
	annotator := &stubAnnotator{}
	m := NewManager(processor, pipeline.NewRenderer(pipeline.NewPresentation("live", "canonical")), decoder, annotator, viewers, buffer, publisher, logger.Discard())
	return m, viewers, annotator
}

var happyFace = models.FaceResult{
	Box:            models.BoundingBox{Left: 1, Top: 1, Right: 3, Bottom: 2},
	Classification: &models.ClassificationResult{Label: models.Happy, ConfidencePercent: 60},
}

func TestHandleCameraImage(t *testing.T) {
	buffer := &stubBuffer{}
	publisher := &stubPublisher{}
	m, viewers, annotator := newTestManager(stubProcessor{faces: []models.FaceResult{happyFace}}, stubDecoder{}, buffer, publisher)
	defer m.Stop(time.Second)

	if err := m.HandleCameraImage([]byte("jpeg"), "door", 90, true); err != nil {
		t.Fatalf("HandleCameraImage failed: %v", err)
	}

	messages := viewers.waitFor(t, 2)
	if messages[0].Type != dto.MessageFrame || messages[0].Camera != "door" || messages[0].Rotation != 90 || !messages[0].Mirrored {
		t.Errorf("unexpected frame message %+v", messages[0])
	}
	if messages[0].Image != "anBlZw==" {
		t.Errorf("frame should carry the base64 image, got %q", messages[0].Image)
	}
	if messages[1].Type != dto.MessageOverlay || messages[1].Overlay == nil {
		t.Errorf("unexpected overlay message %+v", messages[1])
	}

	m.Stop(time.Second)
	if buffer.count() != 1 {
		t.Fatalf("expected one buffered snapshot, got %d", buffer.count())
	}
	snap := buffer.snapshots[0]
	if snap.Camera != "door" || string(snap.Data) != "annotated" || snap.Faces[0].Emotion != "Happy" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	// 4x3 sensor rotated 90 is 3x4 in display space.
	if ov := annotator.overlays[0]; ov.Width != 3 || ov.Height != 4 {
		t.Errorf("snapshot overlay should be in display size, got %dx%d", ov.Width, ov.Height)
	}
	if len(publisher.reports) != 1 {
		t.Errorf("expected one published report, got %d", len(publisher.reports))
	}
}

func TestHandleCameraImageDecodeError(t *testing.T) {
	m, viewers, _ := newTestManager(stubProcessor{}, stubDecoder{err: errors.New("corrupt")}, &stubBuffer{}, nil)
	defer m.Stop(time.Second)

	if err := m.HandleCameraImage([]byte("bad"), "door", 0, false); err == nil {
		t.Fatal("expected decode error")
	}
	viewers.waitFor(t, 1)
	if len(m.Stats()) != 0 {
		t.Errorf("no runner should start for an undecodable frame")
	}
}

func TestNoSnapshotWithoutClassifiedFaces(t *testing.T) {
	tests := []struct {
		name   string
		proc   stubProcessor
		buffer *stubBuffer
	}{
		{"no faces", stubProcessor{err: pipeline.ErrNoFaceDetected}, &stubBuffer{}},
		{"unclassified", stubProcessor{faces: []models.FaceResult{{Box: happyFace.Box}}, err: pipeline.ErrClassificationUnavailable}, &stubBuffer{}},
		{"buffer full", stubProcessor{faces: []models.FaceResult{happyFace}}, &stubBuffer{full: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, viewers, _ := newTestManager(tt.proc, stubDecoder{}, tt.buffer, nil)
			frame, _ := models.NewFrame("f", "hall", make([]byte, 4*4*4), 4, 4, 0, false)

			m.SubmitFrame(frame)
			viewers.waitFor(t, 1)
			m.Stop(time.Second)

			if tt.buffer.count() != 0 {
				t.Errorf("expected no snapshot, got %d", tt.buffer.count())
			}
		})
	}
}

func TestOneRunnerPerCamera(t *testing.T) {
	m, viewers, _ := newTestManager(stubProcessor{}, stubDecoder{}, &stubBuffer{}, nil)
	defer m.Stop(time.Second)

	for _, camera := range []string{"b", "a", "b"} {
		frame, _ := models.NewFrame("f", camera, make([]byte, 4*4*4), 4, 4, 0, false)
		m.SubmitFrame(frame)
	}
	viewers.waitFor(t, 2)

	stats := m.Stats()
	if len(stats) != 2 || stats[0].Camera != "a" || stats[1].Camera != "b" {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	m, viewers, _ := newTestManager(stubProcessor{}, stubDecoder{}, &stubBuffer{}, nil)

	frame, _ := models.NewFrame("f1", "door", make([]byte, 4*4*4), 4, 4, 0, false)
	if !m.SubmitFrame(frame) {
		t.Fatal("frame should be accepted while running")
	}
	viewers.waitFor(t, 1)
	m.Stop(time.Second)

	for _, camera := range []string{"door", "new-camera"} {
		late, _ := models.NewFrame("f2", camera, make([]byte, 4*4*4), 4, 4, 0, false)
		if m.SubmitFrame(late) {
			t.Errorf("%s: frame accepted after Stop", camera)
		}
	}
	if err := m.HandleCameraImage([]byte("jpeg"), "door", 0, false); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if len(m.Stats()) != 1 {
		t.Errorf("no runner should start after Stop, got %+v", m.Stats())
	}
}
