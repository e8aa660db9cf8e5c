package ports

import (
	"context"

	"cropscan/internal/types"
)

// FrameAnalyzer is the external frame-analysis capability. One Probe call
// spawns one analysis run over a bounded time window and returns the raw
// diagnostic text stream; the analyzed media itself is discarded.
type FrameAnalyzer interface {
	// Probe runs one analysis pass with the given filter chain over the
	// window and returns the diagnostic text. A window reaching past the
	// end of the source is truncated by the tool, not an error.
	Probe(ctx context.Context, input string, window types.Window, filterChain string) (string, error)

	// Dimensions returns the source's coded width and height.
	Dimensions(ctx context.Context, input string) (types.FrameDimensions, error)
}

// VideoEncoder materializes a crop as a new file. Out of the engine's scope
// but required by the two-pass refinement flow.
type VideoEncoder interface {
	RenderCrop(ctx context.Context, input string, rect types.Rectangle, output string) error
}
