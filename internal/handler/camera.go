package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"emotioncam/internal/config"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// maxFrameBody caps POST /camera/frame bodies (a 4K RGBA frame fits).
const maxFrameBody = 64 << 20

// CameraService accepts frames from every ingest path.
type CameraService interface {
	HandleCameraImage(data []byte, camera string, rotation int, mirrored bool) error
	SubmitFrame(frame *models.Frame) bool
}

// frameAssembler rebuilds JPEG frames split across UDP packets, one buffer per camera.
type frameAssembler struct {
	buffers map[string]*bytes.Buffer
}

func newFrameAssembler() *frameAssembler {
	return &frameAssembler{buffers: make(map[string]*bytes.Buffer)}
}

// add appends a packet and returns a complete frame once the EOI marker arrives.
func (a *frameAssembler) add(camera string, data []byte) []byte {
	buf, ok := a.buffers[camera]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[camera] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	} else if buf.Len() == 0 {
		// mid-frame packet without a start, wait for the next SOI
		return nil
	}
	buf.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil
	}
	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame
}

// UDPCameraHandler listens for UDP packets from cameras, reconstructs JPEG frames,
// and forwards complete frames to the manager. It returns when ctx is cancelled.
func UDPCameraHandler(ctx context.Context, manager CameraService, logger *logger.Logger, cfg *config.Config) {
	port := strconv.Itoa(cfg.CamerasPort)

	addr, err := net.ResolveUDPAddr("udp", ":"+port)
	if err != nil {
		logger.Error("Failed to resolve UDP address: %v", err)
		return
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		logger.Error("Failed to listen on UDP port %s: %v", port, err)
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	logger.Info("UDP Camera handler started on port %s", port)
	serveUDP(ctx, conn, manager, logger, cfg)
}

func serveUDP(ctx context.Context, conn net.PacketConn, manager CameraService, logger *logger.Logger, cfg *config.Config) {
	buffer := make([]byte, 65535)
	assembler := newFrameAssembler()

	for {
		n, remoteAddr, err := conn.ReadFrom(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		ip := remoteAddr.String()
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		camera := cfg.CameraName(ip)

		if frame := assembler.add(camera, buffer[:n]); frame != nil {
			if err := manager.HandleCameraImage(frame, camera, cfg.CameraRotation, cfg.CameraMirrored); err != nil {
				logger.Warning("Dropped frame: %v", err)
			}
		}
	}
}

// CameraFrameHandler handles POST /camera/frame. The body is either a JPEG
// (Content-Type: image/jpeg) or raw RGBA8888 sized by the width and height
// query parameters.
func CameraFrameHandler(manager CameraService, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		camera := q.Get("camera")
		if camera == "" {
			http.Error(w, "Camera parameter is required", http.StatusBadRequest)
			return
		}
		rotation, mirrored, err := parseOrientation(q.Get("rotation"), q.Get("mirrored"), cfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameBody))
		if err != nil {
			http.Error(w, "Unable to read frame", http.StatusRequestEntityTooLarge)
			return
		}

		if strings.HasPrefix(r.Header.Get("Content-Type"), "image/jpeg") {
			if err := manager.HandleCameraImage(body, camera, rotation, mirrored); err != nil {
				logger.Warning("Rejected JPEG frame from %s: %v", camera, err)
				http.Error(w, "Invalid image", http.StatusUnprocessableEntity)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			return
		}

		width, errW := strconv.Atoi(q.Get("width"))
		height, errH := strconv.Atoi(q.Get("height"))
		if errW != nil || errH != nil {
			http.Error(w, "Width and height are required for raw frames", http.StatusBadRequest)
			return
		}

		frame, err := models.NewFrame(uuid.New().String(), camera, body, width, height, rotation, mirrored)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !manager.SubmitFrame(frame) {
			http.Error(w, "Service is shutting down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// CameraWebsocketHandler handles GET /camera/ws. Every binary message is one JPEG frame.
func CameraWebsocketHandler(manager CameraService, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		camera := q.Get("id")
		if camera == "" {
			http.Error(w, "Id parameter is required", http.StatusBadRequest)
			return
		}
		rotation, mirrored, err := parseOrientation(q.Get("rotation"), q.Get("mirrored"), cfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		logger.Info("📹 Camera %s connected", camera)

		for {
			messageType, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Camera %s disconnected", camera)
				} else {
					logger.Error("Camera %s disconnected with error: %v", camera, err)
				}
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			if err := manager.HandleCameraImage(data, camera, rotation, mirrored); err != nil {
				logger.Warning("Dropped frame: %v", err)
			}
		}
	}
}

// parseOrientation falls back to the configured camera orientation for empty values.
func parseOrientation(rotationParam, mirroredParam string, cfg *config.Config) (int, bool, error) {
	rotation := cfg.CameraRotation
	mirrored := cfg.CameraMirrored

	if rotationParam != "" {
		v, err := strconv.Atoi(rotationParam)
		if err != nil || !models.ValidRotation(v) {
			return 0, false, errors.New("rotation must be 0, 90, 180 or 270")
		}
		rotation = v
	}
	if mirroredParam != "" {
		v, err := strconv.ParseBool(mirroredParam)
		if err != nil {
			return 0, false, errors.New("mirrored must be a boolean")
		}
		mirrored = v
	}
	return rotation, mirrored, nil
}
