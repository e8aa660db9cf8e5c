package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cropscan/internal/detector"
	"cropscan/internal/domain/borders"
	"cropscan/internal/ports"
	"cropscan/internal/ports/adapters/ffmpeg"
	"cropscan/internal/types"
)

type Config struct {
	Input  string
	OutDir string
	Mode   types.Mode

	// DetectTimeout bounds the whole detection request, probes included.
	DetectTimeout time.Duration

	ProbeSeconds float64
	StartOffset  float64

	// Strict raises the scorer's rejection floor from 0.5 to 0.6 of each
	// frame axis.
	Strict bool

	// MinAcceptScore is the early-exit policy threshold.
	MinAcceptScore float64

	// Refine enables the second, short-window pass against the cropped
	// intermediate.
	Refine bool

	FFmpegPath  string
	FFprobePath string

	Logger  zerolog.Logger
	OnProbe func()
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	switch c.Mode {
	case types.ModeDark, types.ModeLight, types.ModeMotion:
	default:
		return fmt.Errorf("unknown mode %q (want dark, light or motion)", c.Mode)
	}
	if c.ProbeSeconds < 0 {
		return fmt.Errorf("probe seconds must be >= 0")
	}
	if c.StartOffset < 0 {
		return fmt.Errorf("start offset must be >= 0")
	}
	return nil
}

// Run detects the content rectangle of cfg.Input and materializes the crop:
// dimension query, tiered detection, first re-encode, optional short-window
// refinement against the intermediate, second re-encode, JSON report.
func Run(ctx context.Context, cfg Config) (types.Report, error) {
	a := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	return run(ctx, cfg, a, a)
}

func run(ctx context.Context, cfg Config, analyzer ports.FrameAnalyzer, enc ports.VideoEncoder) (types.Report, error) {
	log := cfg.Logger
	started := time.Now()

	dims, err := analyzer.Dimensions(ctx, cfg.Input)
	if err != nil {
		return types.Report{}, err
	}
	log.Info().Int("width", dims.Width).Int("height", dims.Height).Msg("source dimensions")

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return types.Report{}, err
	}

	det := detector.New(analyzer, log, detector.Options{
		ProbeSeconds:   cfg.ProbeSeconds,
		StartOffset:    cfg.StartOffset,
		MinKeepRatio:   keepRatio(cfg.Strict),
		MinAcceptScore: cfg.MinAcceptScore,
		OnProbe:        cfg.OnProbe,
	})

	detectCtx := ctx
	if cfg.DetectTimeout > 0 {
		var cancel context.CancelFunc
		detectCtx, cancel = context.WithTimeout(ctx, cfg.DetectTimeout)
		defer cancel()
	}

	outcome, err := det.Detect(detectCtx, cfg.Input, dims, cfg.Mode)
	if err != nil {
		return types.Report{}, err
	}
	log.Info().
		Str("strategy", string(outcome.Spec.Kind)).
		Int("x", outcome.Rect.X).Int("y", outcome.Rect.Y).
		Int("w", outcome.Rect.W).Int("h", outcome.Rect.H).
		Msg("first-pass crop")

	report := types.Report{
		Input:      cfg.Input,
		Mode:       cfg.Mode,
		Dimensions: dims,
		Passes: []types.PassReport{
			{Pass: 1, Strategy: outcome.Spec.Kind, Rect: outcome.Rect, Score: outcome.Score},
		},
	}

	finalPath := filepath.Join(outDir, outputName(cfg.Input))
	intermediate := finalPath

	if cfg.Refine {
		intermediate = filepath.Join(outDir, ".intermediate-"+outputName(cfg.Input))
	}
	if err := enc.RenderCrop(ctx, cfg.Input, outcome.Rect, intermediate); err != nil {
		return types.Report{}, err
	}

	if cfg.Refine {
		if err := refine(ctx, cfg, analyzer, enc, outcome, intermediate, finalPath, &report, log); err != nil {
			return types.Report{}, err
		}
	}

	report.Output = finalPath
	report.ElapsedSec = time.Since(started).Seconds()
	if err := writeReport(outDir, report); err != nil {
		return types.Report{}, err
	}
	return report, nil
}

// refine runs a second, much shorter detection window against the cropped
// intermediate. Residual 1-2 pixel remnants only become detectable once the
// dominant border is gone. The second rectangle is composed in the
// intermediate's own coordinate space; no candidate means pass-through.
func refine(
	ctx context.Context,
	cfg Config,
	analyzer ports.FrameAnalyzer,
	enc ports.VideoEncoder,
	first types.Outcome,
	intermediate, finalPath string,
	report *types.Report,
	log zerolog.Logger,
) error {
	defer os.Remove(intermediate)

	interDims := types.FrameDimensions{Width: first.Rect.W, Height: first.Rect.H}
	refiner := detector.New(analyzer, log, detector.Options{
		ProbeSeconds:   detector.RefineProbeSeconds,
		MinKeepRatio:   keepRatio(cfg.Strict),
		MinAcceptScore: cfg.MinAcceptScore,
		OnProbe:        cfg.OnProbe,
	})

	second, err := refiner.Detect(ctx, intermediate, interDims, cfg.Mode)
	if errors.Is(err, borders.ErrCropNotDetected) {
		log.Info().Msg("refinement found nothing to shave, keeping first pass")
		return os.Rename(intermediate, finalPath)
	}
	if err != nil {
		return err
	}
	if second.Rect.FullFrame(interDims) {
		return os.Rename(intermediate, finalPath)
	}

	log.Info().
		Int("x", second.Rect.X).Int("y", second.Rect.Y).
		Int("w", second.Rect.W).Int("h", second.Rect.H).
		Msg("refinement crop")
	report.Passes = append(report.Passes, types.PassReport{
		Pass: 2, Strategy: second.Spec.Kind, Rect: second.Rect, Score: second.Score,
	})
	return enc.RenderCrop(ctx, intermediate, second.Rect, finalPath)
}

func writeReport(outDir string, report types.Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, "report.json"), b, 0o644)
}

func outputName(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-cropped" + ext
}

func keepRatio(strict bool) float64 {
	if strict {
		return 0.6
	}
	return borders.DefaultMinKeepRatio
}

// ensure the adapter satisfies both ports
var _ ports.FrameAnalyzer = (*ffmpeg.Adapter)(nil)
var _ ports.VideoEncoder = (*ffmpeg.Adapter)(nil)
