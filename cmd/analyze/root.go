package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/camera"
	"github.com/saturnino-fabrica-de-software/phiface/internal/config"
	"github.com/saturnino-fabrica-de-software/phiface/internal/detection"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/face"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/proportion"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
	"github.com/saturnino-fabrica-de-software/phiface/internal/service"
)

// errAnalysisFailed is returned after a failure has been printed, so main
// only sets the exit code.
var errAnalysisFailed = errors.New("analysis failed")

// env holds what the command pulls from the process; tests replace it.
type env struct {
	loadConfig  func() (*config.Config, error)
	newDetector func(cfg *config.Config, logger *slog.Logger) (provider.FaceDetector, error)
	newCamera   func(device int) camera.Source
	readFile    func(name string) ([]byte, error)
	logOutput   io.Writer
}

func defaultEnv() env {
	return env{
		loadConfig: config.Load,
		newDetector: func(cfg *config.Config, logger *slog.Logger) (provider.FaceDetector, error) {
			return face.NewDetector(cfg, audit.NewSlogLogger(logger))
		},
		newCamera: camera.NewDeviceSource,
		readFile:  os.ReadFile,
		logOutput: os.Stderr,
	}
}

type options struct {
	camera   bool
	device   int
	timeout  time.Duration
	provider string
	pretty   bool
}

func newRootCommand(out io.Writer, e env) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "phiface-analyze [image]",
		Short: "Score facial proportions against the golden ratio",
		Long: `Detects the single face in a JPEG, PNG or WebP photo, measures three
facial ratios and prints how close each one is to the golden ratio.

With --camera a still is captured from the local camera instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.camera && len(args) > 0 {
				return errors.New("an image path cannot be combined with --camera")
			}
			if !opts.camera && len(args) != 1 {
				return errors.New("expected exactly one image path, or --camera")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runAnalysis(cmd.Context(), out, e, opts, path)
		},
	}

	cmd.Flags().BoolVar(&opts.camera, "camera", false, "Capture a still from the local camera")
	cmd.Flags().IntVar(&opts.device, "device", -1, "Camera device index (default: CAMERA_DEVICE)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Landmark detection timeout (default: DETECTION_TIMEOUT)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Detector backend: faceapi, rekognition or mock (default: DETECTOR_PROVIDER)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")

	return cmd
}

func runAnalysis(ctx context.Context, out io.Writer, e env, opts *options, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if opts.provider != "" {
		cfg.DetectorProvider = opts.provider
	}
	if opts.timeout > 0 {
		cfg.DetectionTimeout = opts.timeout
	}
	if opts.device >= 0 {
		cfg.CameraDevice = opts.device
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(e.logOutput, &slog.HandlerOptions{Level: slog.LevelWarn}))

	img, err := acquireImage(ctx, e, cfg, opts, path)
	if err != nil {
		var f *domain.Failure
		if errors.As(err, &f) {
			return printFailure(out, opts, f)
		}
		return err
	}

	detector, err := e.newDetector(cfg, logger)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	loader := detection.NewModelLoader(detector, logger, cfg.DetectionTimeout)
	orchestrator := detection.NewOrchestrator(detector, loader, detection.Config{
		MinConfidence: cfg.MinConfidence,
		InputSize:     cfg.InputSize,
		Timeout:       cfg.DetectionTimeout,
	}, logger)
	svc := service.NewAnalysisService(orchestrator, proportion.NewScorer(cfg.GoldenRatio), logger)

	result, err := svc.Analyze(ctx, img)
	if err != nil {
		return printFailure(out, opts, domain.AsFailure(err))
	}
	return writeJSON(out, opts, result.View())
}

func acquireImage(ctx context.Context, e env, cfg *config.Config, opts *options, path string) (*imagesrc.Image, error) {
	if !opts.camera {
		data, err := e.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		return imagesrc.Decode(ctx, data, cfg.ImageLimits())
	}

	stream, err := e.newCamera(cfg.CameraDevice).Open(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNoDevice) {
			return nil, err
		}
		return nil, domain.NewFailure(domain.FailureCameraPermission, err)
	}
	defer stream.Stop()

	data, err := stream.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture still: %w", err)
	}
	return imagesrc.Decode(ctx, data, cfg.ImageLimits())
}

func printFailure(out io.Writer, opts *options, f *domain.Failure) error {
	if err := writeJSON(out, opts, map[string]domain.FailureView{"error": f.View()}); err != nil {
		return err
	}
	return errAnalysisFailed
}

func writeJSON(out io.Writer, opts *options, v any) error {
	enc := json.NewEncoder(out)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
