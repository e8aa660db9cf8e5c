package types

import "time"

// Rectangle is a content region in pixel coordinates, origin top-left,
// relative to the probed frame's native resolution. Immutable once produced.
type Rectangle struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Valid reports whether the rectangle has positive area and fits inside
// a frame of the given dimensions.
func (r Rectangle) Valid(dims FrameDimensions) bool {
	return r.W > 0 && r.H > 0 &&
		r.X >= 0 && r.Y >= 0 &&
		r.X+r.W <= dims.Width && r.Y+r.H <= dims.Height
}

// FullFrame reports whether the rectangle covers the whole frame,
// i.e. cropping to it would be a no-op.
func (r Rectangle) FullFrame(dims FrameDimensions) bool {
	return r.X == 0 && r.Y == 0 && r.W == dims.Width && r.H == dims.Height
}

// FrameDimensions is the coded resolution of a source video, obtained once
// per input and shared by every strategy run against it.
type FrameDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Mode selects which border family a detection request targets.
type Mode string

const (
	ModeDark   Mode = "dark"
	ModeLight  Mode = "light"
	ModeMotion Mode = "motion"
)

// StrategyKind tags one detection approach.
type StrategyKind string

const (
	DarkBorder           StrategyKind = "dark-border"
	LightBorderThreshold StrategyKind = "light-threshold"
	InvertedFallback     StrategyKind = "inverted-fallback"
	EdgeFallback         StrategyKind = "edge-fallback"
	MotionBoundingBox    StrategyKind = "motion-bbox"
)

// StrategySpec describes one detection attempt: a strategy kind plus the
// parameters of a single probe run.
type StrategySpec struct {
	Kind StrategyKind

	ProbeSeconds float64
	StartOffset  float64

	// BlurRadius smooths compression noise before detection; 0 disables.
	BlurRadius int

	// SensitivityLimit is how far from the border color a pixel must be
	// to count as content (0-255).
	SensitivityLimit int

	// BrightnessThreshold is the luma value above which a pixel is treated
	// as background. Only meaningful for LightBorderThreshold.
	BrightnessThreshold int

	// BarWeight is the scoring weight for the largest removed bar. Heavier
	// for strategies that specifically target letterbox/pillarbox bars.
	BarWeight int
}

// Candidate is a rectangle tagged with the spec that produced it and its
// score. Candidates are ephemeral: produced, scored, promoted or discarded.
type Candidate struct {
	Rect  Rectangle
	Spec  StrategySpec
	Score float64
}

// Outcome is the durable artifact of one detection request: the winning
// rectangle plus provenance. A request that found nothing yields no Outcome
// but a typed error instead.
type Outcome struct {
	Rect  Rectangle
	Spec  StrategySpec
	Score float64
}

// Window is a bounded probe time range within the source.
type Window struct {
	Start    time.Duration
	Duration time.Duration
}

// Report is the JSON run summary written next to the final output.
type Report struct {
	Input      string          `json:"input"`
	Mode       Mode            `json:"mode"`
	Dimensions FrameDimensions `json:"dimensions"`
	Passes     []PassReport    `json:"passes"`
	Output     string          `json:"output"`
	ElapsedSec float64         `json:"elapsed_sec"`
}

// PassReport records one detect-and-crop pass.
type PassReport struct {
	Pass     int          `json:"pass"`
	Strategy StrategyKind `json:"strategy"`
	Rect     Rectangle    `json:"rect"`
	Score    float64      `json:"score"`
}
