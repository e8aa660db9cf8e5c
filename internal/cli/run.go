package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cropscan/internal/detector"
	"cropscan/internal/domain/borders"
	"cropscan/internal/pipeline"
	"cropscan/internal/types"
)

func run(cmd *cobra.Command, input string) error {
	mode, _ := cmd.Flags().GetString("mode")
	outDir, _ := cmd.Flags().GetString("out")
	refine, _ := cmd.Flags().GetBool("refine")
	strict, _ := cmd.Flags().GetBool("strict")
	verbose, _ := cmd.Flags().GetBool("verbose")
	probeSec, _ := cmd.Flags().GetFloat64("probe-seconds")
	startOff, _ := cmd.Flags().GetFloat64("start-offset")
	acceptScore, _ := cmd.Flags().GetFloat64("accept-score")
	timeoutSec, _ := cmd.Flags().GetInt("detect-timeout")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	bar := progressbar.NewOptions(probeTotal(types.Mode(mode), probeSec, startOff, refine),
		progressbar.OptionSetDescription("Probing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg := pipeline.Config{
		Input:          absIn,
		OutDir:         outDir,
		Mode:           types.Mode(mode),
		DetectTimeout:  time.Duration(timeoutSec) * time.Second,
		ProbeSeconds:   probeSec,
		StartOffset:    startOff,
		Strict:         strict,
		MinAcceptScore: acceptScore,
		Refine:         refine,

		FFmpegPath:  getenvDefault("CROPSCAN_FFMPEG", "ffmpeg"),
		FFprobePath: getenvDefault("CROPSCAN_FFPROBE", "ffprobe"),

		Logger:  log,
		OnProbe: func() { _ = bar.Add(1) },
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	report, err := pipeline.Run(ctx, cfg)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if errors.Is(err, borders.ErrCropNotDetected) {
		return fmt.Errorf("could not find a crop region in %s (mode %s)", input, mode)
	}
	if err != nil {
		return err
	}

	last := report.Passes[len(report.Passes)-1].Rect
	fmt.Printf("cropped %dx%d -> %dx%d (%d pass(es)): %s\n",
		report.Dimensions.Width, report.Dimensions.Height,
		last.W, last.H, len(report.Passes), report.Output)
	return nil
}

// probeTotal sizes the progress bar at the worst-case probe count.
func probeTotal(mode types.Mode, probeSec, startOff float64, refine bool) int {
	d := detector.New(nil, zerolog.Nop(), detector.Options{
		ProbeSeconds: probeSec,
		StartOffset:  startOff,
	})
	n := d.ProbeCount(mode)
	if refine {
		n *= 2
	}
	return n
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
