package pipeline

import (
	"context"

	"emotioncam/internal/logger"
	"emotioncam/internal/models"
)

// Processor runs one full pass over a frame.
type Processor interface {
	Process(ctx context.Context, frame *models.Frame) FrameReport
}

// Sink receives each finished report on the runner goroutine.
type Sink func(report FrameReport)

// Runner owns one camera: it always processes the newest frame and never
// cancels a pass already in progress.
type Runner struct {
	camera    string
	mailbox   *Mailbox[*models.Frame]
	processor Processor
	sink      Sink
	logger    *logger.Logger
}

func NewRunner(camera string, processor Processor, sink Sink, logger *logger.Logger) *Runner {
	return &Runner{
		camera:    camera,
		mailbox:   NewMailbox[*models.Frame](),
		processor: processor,
		sink:      sink,
		logger:    logger.WithFields(map[string]interface{}{"camera": camera}),
	}
}

// Submit hands a frame to the runner without blocking.
func (r *Runner) Submit(frame *models.Frame) bool {
	return r.mailbox.Put(frame)
}

// Run processes frames until ctx is done or Stop is called.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("🎬 Runner started")
	defer func() {
		r.logger.Info("🛑 Runner stopped (dropped %d frames)", r.mailbox.Dropped())
	}()

	for {
		frame, ok := r.mailbox.Take(ctx)
		if !ok {
			return
		}

		r.mailbox.SetBusy(true)
		report := r.processor.Process(context.WithoutCancel(ctx), frame)
		if r.sink != nil {
			r.sink(report)
		}
		r.mailbox.SetBusy(false)
	}
}

// Stop closes the mailbox; Run returns after the current pass.
func (r *Runner) Stop() {
	r.mailbox.Close()
}

func (r *Runner) Camera() string {
	return r.camera
}

func (r *Runner) Busy() bool {
	return r.mailbox.Busy()
}

func (r *Runner) Dropped() uint64 {
	return r.mailbox.Dropped()
}
