package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"emotioncam/internal/config"
	"emotioncam/internal/handler"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"
	"emotioncam/internal/pipeline"
	"emotioncam/internal/repository/sqlite"
	"emotioncam/internal/routes"
	"emotioncam/internal/service"
	"emotioncam/internal/service/ai"
	"emotioncam/internal/service/publish"
	"emotioncam/internal/service/storage"
	"emotioncam/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	engine        *Engine
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	publisher     *publish.ResultPublisher
	manager       *service.Manager
	router        http.Handler
}

// Engine is the assembled frame pipeline plus the native resources behind it.
type Engine struct {
	Pipeline   *pipeline.Pipeline
	Classifier *pipeline.Classifier
	Renderer   *pipeline.Renderer
	Detector   ai.FaceDetector
}

// Close releases the classifier engine and the detector.
func (e *Engine) Close() {
	e.Classifier.Close()
	e.Detector.Close()
}

// NewEngine builds detector, normalizer, classifier and renderer from cfg.
// The classifier model is opened on the first face.
func NewEngine(cfg *config.Config, logger *logger.Logger) (*Engine, error) {
	detector, err := ai.NewDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	classifier := pipeline.NewClassifier(ai.NewEngineLoader(cfg), cfg.ConfidenceDecimals(), logger)
	renderer := pipeline.NewRenderer(pipeline.NewPresentation(cfg.Presentation, cfg.LabelSet))
	canvas := models.Size{Width: cfg.OverlayWidth, Height: cfg.OverlayHeight}

	p := pipeline.New(
		pipeline.NewCandidateAdapter(detector, cfg.DetectionTimeout, logger),
		pipeline.NewNormalizer(cfg.PatchScale),
		classifier,
		renderer,
		canvas,
		logger,
	)

	return &Engine{Pipeline: p, Classifier: classifier, Renderer: renderer, Detector: detector}, nil
}

func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := os.MkdirAll(cfg.ImageDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	snapshotRepo := sqlite.NewSnapshotRepository(db)
	faceRepo := sqlite.NewFaceRepository(db)

	engine, err := NewEngine(cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	buffer := storage.NewBufferService(cfg, log, snapshotRepo, faceRepo)
	hub := websocket.NewHubService(log)

	var publisher *publish.ResultPublisher
	var resultPublisher service.ResultPublisher
	if cfg.MQTTBroker != "" {
		publisher, err = publish.Connect(cfg.MQTTBroker, cfg.MQTTTopic, log)
		if err != nil {
			// results are optional, keep serving without the broker
			log.Warning("MQTT disabled: %v", err)
		} else {
			resultPublisher = publisher
		}
	}

	manager := service.NewManager(
		engine.Pipeline,
		engine.Renderer,
		ai.NewJPEGDecoder(),
		ai.NewSnapshotAnnotator(),
		hub,
		buffer,
		resultPublisher,
		log,
	)

	router := routes.SetupRoutes(routes.Deps{
		Cameras:      manager,
		Stats:        manager,
		Viewers:      hub,
		Snapshots:    buffer,
		SnapshotRepo: snapshotRepo,
		FaceRepo:     faceRepo,
	}, cfg, log)

	return &App{
		config:        cfg,
		logger:        log,
		db:            db,
		engine:        engine,
		bufferService: buffer,
		hubService:    hub,
		publisher:     publisher,
		manager:       manager,
		router:        router,
	}, nil
}

// Run serves until ctx is cancelled, then drains runners and flushes snapshots.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	bufferDone := make(chan struct{})
	go func() {
		a.bufferService.Run(bgCtx)
		close(bufferDone)
	}()
	go a.hubService.Run(bgCtx)
	go handler.UDPCameraHandler(bgCtx, a.manager, a.logger, a.config)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: a.router,
	}

	a.logger.Info("🚀 Emotion Camera Server")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("📁 Snapshots: %s", a.config.ImageDirectory)
	a.logger.Info("🤖 Detector: %s, classifier: %s (%s)", a.config.Detector, a.config.ClassifierEngine, a.config.ClassifierModelPath)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Error("HTTP shutdown: %v", shutdownErr)
		}
		cancel()
	}

	a.manager.Stop(shutdownTimeout)
	stopBackground()
	<-bufferDone
	a.close()
	return err
}

func (a *App) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	a.engine.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
}
