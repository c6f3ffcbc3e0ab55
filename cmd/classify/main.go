package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"emotioncam/internal/app"
	"emotioncam/internal/config"
	"emotioncam/internal/logger"
	"emotioncam/internal/models"
	"emotioncam/internal/pipeline"
	"emotioncam/internal/service/ai"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type options struct {
	Rotation int
	Mirrored bool
	LabelSet string
	JSON     bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "classify <image|directory>",
	Short: "Classify the emotion of the largest face in a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args[0], opts)
	},
}

func init() {
	rootCmd.Flags().IntVarP(&opts.Rotation, "rotation", "r", 0, "Clockwise rotation needed to bring the photo upright (0, 90, 180, 270)")
	rootCmd.Flags().BoolVarP(&opts.Mirrored, "mirrored", "m", false, "Photo was taken with a front-facing camera")
	rootCmd.Flags().StringVarP(&opts.LabelSet, "labels", "l", "alternate", "Label spelling: canonical or alternate")
	rootCmd.Flags().BoolVar(&opts.JSON, "json", false, "Print results as JSON lines")
}

// stillResult is one line of output.
type stillResult struct {
	File    string             `json:"file"`
	Text    string             `json:"text"`
	Emotion string             `json:"emotion,omitempty"`
	Box     models.BoundingBox `json:"box"`
	Error   string             `json:"error,omitempty"`
}

func run(ctx context.Context, input string, opts options) error {
	if !models.ValidRotation(opts.Rotation) {
		return fmt.Errorf("rotation must be 0, 90, 180 or 270")
	}

	cfg := config.Load()
	cfg.Presentation = "still"
	cfg.LabelSet = opts.LabelSet
	if err := cfg.Validate(); err != nil {
		return err
	}

	engine, err := app.NewEngine(cfg, logger.Discard())
	if err != nil {
		return err
	}
	defer engine.Close()

	files, err := collectImages(input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", input)
	}

	var bar *progressbar.ProgressBar
	if len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("🙂 Classifying"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	decoder := ai.NewJPEGDecoder()
	results := make([]stillResult, 0, len(files))
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		results = append(results, classifyFile(ctx, engine.Pipeline, decoder, file, opts))
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	return printResults(results, opts.JSON)
}

func classifyFile(ctx context.Context, p *pipeline.Pipeline, decoder *ai.JPEGDecoder, file string, opts options) stillResult {
	out := stillResult{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	pixels, width, height, err := decoder.Decode(data)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	frame, err := models.NewFrame(uuid.New().String(), "still", pixels, width, height, opts.Rotation, opts.Mirrored)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	still, err := p.ClassifyStill(ctx, frame)
	switch {
	case errors.Is(err, pipeline.ErrNoFaceDetected):
		out.Text = pipeline.StatusNoFacesStill
	case err != nil:
		out.Error = err.Error()
	default:
		out.Text = still.Text
		out.Box = still.Face.Box
		if still.Face.Classification != nil {
			out.Emotion = still.Face.Classification.Label.String()
		}
	}
	return out
}

func printResults(results []stillResult, asJSON bool) error {
	failed := 0
	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if asJSON {
			if err := enc.Encode(r); err != nil {
				return err
			}
			continue
		}
		line := r.Text
		if r.Error != "" {
			line = "error: " + r.Error
		}
		if len(results) > 1 {
			line = filepath.Base(r.File) + ": " + line
		}
		fmt.Println(line)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}

func collectImages(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			files = append(files, filepath.Join(input, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
