//go:build integration

package itest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cropscan/internal/pipeline"
	"cropscan/internal/types"
)

func TestDarkLetterboxEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	tmp := t.TempDir()
	input := filepath.Join(tmp, "letterboxed.mp4")
	if err := makeLetterboxedMP4(input, 1920, 800, 1920, 1080, 140, 6); err != nil {
		t.Fatalf("synthesize input: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := pipeline.Run(ctx, pipeline.Config{
		Input:         input,
		OutDir:        filepath.Join(tmp, "out"),
		Mode:          types.ModeDark,
		DetectTimeout: 2 * time.Minute,
		ProbeSeconds:  4,
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	rect := report.Passes[0].Rect
	// cropdetect rounds to even coordinates; allow a few pixels of slack.
	if rect.W < 1912 || abs(rect.Y-140) > 4 || abs(rect.H-800) > 8 {
		t.Fatalf("detected rect = %+v, want ~{0 140 1920 800}", rect)
	}
	if _, err := os.Stat(report.Output); err != nil {
		t.Fatalf("final output missing: %v", err)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
