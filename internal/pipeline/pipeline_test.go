package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cropscan/internal/domain/borders"
	"cropscan/internal/types"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	dims    types.FrameDimensions
	dimsErr error

	// respond is keyed on the probed file path, so first-pass and
	// refinement probes can behave differently.
	respond func(input, chain string) string

	windows map[string][]types.Window
}

func (f *fakeAnalyzer) Probe(_ context.Context, input string, window types.Window, chain string) (string, error) {
	f.mu.Lock()
	if f.windows == nil {
		f.windows = map[string][]types.Window{}
	}
	f.windows[input] = append(f.windows[input], window)
	f.mu.Unlock()
	return f.respond(input, chain), nil
}

func (f *fakeAnalyzer) Dimensions(_ context.Context, _ string) (types.FrameDimensions, error) {
	if f.dimsErr != nil {
		return types.FrameDimensions{}, f.dimsErr
	}
	return f.dims, nil
}

type renderCall struct {
	input  string
	rect   types.Rectangle
	output string
}

type fakeEncoder struct {
	mu    sync.Mutex
	calls []renderCall
}

func (f *fakeEncoder) RenderCrop(_ context.Context, input string, rect types.Rectangle, output string) error {
	f.mu.Lock()
	f.calls = append(f.calls, renderCall{input: input, rect: rect, output: output})
	f.mu.Unlock()
	content := fmt.Sprintf("%s|crop=%d:%d:%d:%d", input, rect.W, rect.H, rect.X, rect.Y)
	return os.WriteFile(output, []byte(content), 0o644)
}

func diagFor(rect types.Rectangle) string {
	return fmt.Sprintf("[Parsed_cropdetect_0 @ 0x1] x1:%d x2:%d y1:%d y2:%d w:%d h:%d x:%d y:%d pts:512 t:0.04 crop=%d:%d:%d:%d\n",
		rect.X, rect.X+rect.W-1, rect.Y, rect.Y+rect.H-1,
		rect.W, rect.H, rect.X, rect.Y,
		rect.W, rect.H, rect.X, rect.Y,
	)
}

func testConfig(t *testing.T) (Config, string) {
	t.Helper()
	tmp := t.TempDir()
	input := filepath.Join(tmp, "in.mp4")
	if err := os.WriteFile(input, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return Config{
		Input:  input,
		OutDir: filepath.Join(tmp, "out"),
		Mode:   types.ModeDark,
		Logger: zerolog.Nop(),
	}, input
}

func TestRun_DetectsAndCrops(t *testing.T) {
	t.Parallel()

	cfg, input := testConfig(t)
	rect := types.Rectangle{X: 0, Y: 140, W: 1920, H: 800}
	fa := &fakeAnalyzer{
		dims: types.FrameDimensions{Width: 1920, Height: 1080},
		respond: func(in, _ string) string {
			if in == input {
				return diagFor(rect)
			}
			return ""
		},
	}
	enc := &fakeEncoder{}

	report, err := run(context.Background(), cfg, fa, enc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(report.Passes))
	}
	if report.Passes[0].Rect != rect {
		t.Fatalf("pass rect = %+v, want %+v", report.Passes[0].Rect, rect)
	}
	if len(enc.calls) != 1 || enc.calls[0].rect != rect {
		t.Fatalf("unexpected encoder calls: %+v", enc.calls)
	}
	if _, err := os.Stat(report.Output); err != nil {
		t.Fatalf("final output missing: %v", err)
	}
	if !strings.HasSuffix(report.Output, "in-cropped.mp4") {
		t.Fatalf("unexpected output name: %s", report.Output)
	}

	b, err := os.ReadFile(filepath.Join(cfg.OutDir, "report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), `"mode": "dark"`) {
		t.Fatalf("report missing mode: %s", b)
	}
}

func TestRun_RefinementShavesRemnant(t *testing.T) {
	t.Parallel()

	cfg, input := testConfig(t)
	cfg.Refine = true

	first := types.Rectangle{X: 0, Y: 138, W: 1920, H: 804}
	// Two-pixel remnants in the intermediate's own coordinate space.
	second := types.Rectangle{X: 0, Y: 2, W: 1920, H: 800}

	fa := &fakeAnalyzer{
		dims: types.FrameDimensions{Width: 1920, Height: 1080},
		respond: func(in, _ string) string {
			if in == input {
				return diagFor(first)
			}
			return diagFor(second)
		},
	}
	enc := &fakeEncoder{}

	report, err := run(context.Background(), cfg, fa, enc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Passes) != 2 {
		t.Fatalf("passes = %d, want 2", len(report.Passes))
	}
	if report.Passes[1].Rect != second {
		t.Fatalf("second pass rect = %+v, want %+v", report.Passes[1].Rect, second)
	}
	if len(enc.calls) != 2 {
		t.Fatalf("encoder calls = %d, want 2", len(enc.calls))
	}
	if enc.calls[1].input == input {
		t.Fatalf("second crop must run against the intermediate, not the source")
	}
	if enc.calls[1].rect != second {
		t.Fatalf("second crop rect = %+v, want %+v", enc.calls[1].rect, second)
	}
	if _, err := os.Stat(report.Output); err != nil {
		t.Fatalf("final output missing: %v", err)
	}
	if _, err := os.Stat(enc.calls[0].output); !os.IsNotExist(err) {
		t.Fatalf("intermediate should be cleaned up, stat err=%v", err)
	}

	// Refinement probes the intermediate with the short window.
	for in, ws := range fa.windows {
		if in == input {
			continue
		}
		for _, w := range ws {
			if w.Duration != 2*time.Second {
				t.Fatalf("refinement window = %v, want 2s", w.Duration)
			}
		}
	}
}

func TestRun_RefinementPassThrough(t *testing.T) {
	t.Parallel()

	cfg, input := testConfig(t)
	cfg.Refine = true

	first := types.Rectangle{X: 0, Y: 140, W: 1920, H: 800}
	fa := &fakeAnalyzer{
		dims: types.FrameDimensions{Width: 1920, Height: 1080},
		respond: func(in, _ string) string {
			if in == input {
				return diagFor(first)
			}
			// The once-cropped intermediate has no border left.
			return ""
		},
	}
	enc := &fakeEncoder{}

	report, err := run(context.Background(), cfg, fa, enc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Passes) != 1 {
		t.Fatalf("passes = %d, want 1 (refinement found nothing)", len(report.Passes))
	}
	if len(enc.calls) != 1 {
		t.Fatalf("encoder calls = %d, want 1", len(enc.calls))
	}

	// The final output must be exactly the once-cropped intermediate.
	b, err := os.ReadFile(report.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := fmt.Sprintf("%s|crop=%d:%d:%d:%d", input, first.W, first.H, first.X, first.Y)
	if string(b) != want {
		t.Fatalf("output content = %q, want %q", b, want)
	}
}

func TestRun_CropNotDetectedSurfaces(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t)
	fa := &fakeAnalyzer{
		dims:    types.FrameDimensions{Width: 1280, Height: 720},
		respond: func(string, string) string { return "" },
	}

	_, err := run(context.Background(), cfg, fa, &fakeEncoder{})
	if !errors.Is(err, borders.ErrCropNotDetected) {
		t.Fatalf("err = %v, want ErrCropNotDetected", err)
	}
}

func TestRun_DimensionsFailureIsFatal(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t)
	fa := &fakeAnalyzer{
		dimsErr: fmt.Errorf("%w: ffprobe: exit status 1", borders.ErrDimensionsUnavailable),
		respond: func(string, string) string { return "" },
	}

	_, err := run(context.Background(), cfg, fa, &fakeEncoder{})
	if !errors.Is(err, borders.ErrDimensionsUnavailable) {
		t.Fatalf("err = %v, want ErrDimensionsUnavailable", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	input := filepath.Join(tmp, "in.mp4")
	if err := os.WriteFile(input, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty input", func(c *Config) { c.Input = "" }, true},
		{"missing input", func(c *Config) { c.Input = filepath.Join(tmp, "nope.mp4") }, true},
		{"bad mode", func(c *Config) { c.Mode = "sepia" }, true},
		{"negative probe", func(c *Config) { c.ProbeSeconds = -1 }, true},
		{"negative offset", func(c *Config) { c.StartOffset = -1 }, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Config{Input: input, Mode: types.ModeDark}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}
