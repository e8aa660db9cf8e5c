package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"cropscan/internal/domain/borders"
	"cropscan/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Probe runs one cropdetect-style analysis pass and returns ffmpeg's stderr,
// which carries the per-frame detection lines. The decoded frames are thrown
// away (-f null). cropdetect logs at info, so the usual -loglevel error would
// silence exactly the lines we need.
func (a *Adapter) Probe(ctx context.Context, input string, window types.Window, filterChain string) (string, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-hide_banner",
		"-loglevel", "info",
		"-ss", fmtSeconds(window.Start.Seconds()),
		"-t", fmtSeconds(window.Duration.Seconds()),
		"-i", input,
		"-vf", filterChain,
		"-an",
		"-f", "null", "-",
	)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: ffmpeg probe: %v\n%s", borders.ErrProbeFailed, err, stderr.String())
	}
	return stderr.String(), nil
}

// Dimensions queries the coded resolution of the first video stream.
func (a *Adapter) Dimensions(ctx context.Context, input string) (types.FrameDimensions, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		input,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.FrameDimensions{}, fmt.Errorf("%w: ffprobe: %v\n%s", borders.ErrDimensionsUnavailable, err, string(b))
	}
	dims, err := parseDimensions(string(b))
	if err != nil {
		return types.FrameDimensions{}, fmt.Errorf("%w: %v", borders.ErrDimensionsUnavailable, err)
	}
	return dims, nil
}

// RenderCrop re-encodes the input cropped to rect.
func (a *Adapter) RenderCrop(ctx context.Context, input string, rect types.Rectangle, output string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", input,
		"-vf", CropFilter(rect),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
		output,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render crop: %w\n%s", err, string(b))
	}
	return nil
}

// CropFilter renders rect as an ffmpeg crop filter argument.
func CropFilter(rect types.Rectangle) string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", rect.W, rect.H, rect.X, rect.Y)
}

func parseDimensions(out string) (types.FrameDimensions, error) {
	s := strings.TrimSpace(out)
	// Repeated for multi-stream files; the first line is v:0.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return types.FrameDimensions{}, fmt.Errorf("parse dimensions %q", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return types.FrameDimensions{}, fmt.Errorf("parse width %q: %v", w, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return types.FrameDimensions{}, fmt.Errorf("parse height %q: %v", h, err)
	}
	if width <= 0 || height <= 0 {
		return types.FrameDimensions{}, fmt.Errorf("non-positive dimensions %q", s)
	}
	return types.FrameDimensions{Width: width, Height: height}, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
