//go:build integration

package itest

import (
	"fmt"
	"os/exec"
)

// makeLetterboxedMP4 synthesizes a short clip with uniform black bars top and
// bottom around bright moving content.
func makeLetterboxedMP4(outPath string, contentW, contentH, frameW, frameH, barY int, seconds float64) error {
	src := fmt.Sprintf("testsrc2=size=%dx%d:rate=25:duration=%f", contentW, contentH, seconds)
	pad := fmt.Sprintf("pad=%d:%d:0:%d:black", frameW, frameH, barY)
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", src,
		"-vf", pad,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg synth: %w\n%s", err, string(b))
	}
	return nil
}
