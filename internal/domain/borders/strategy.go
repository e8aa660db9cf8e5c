package borders

import (
	"fmt"
	"strings"

	"cropscan/internal/types"
)

// Parameter grids. Tiers advance through the primary grid (limits or
// thresholds); within a tier the blur variants run in parallel.
var (
	darkLimits      = []int{30, 45, 60, 75}
	darkBlurs       = []int{0, 18, 30}
	lightThresholds = []int{238, 242, 246, 250}
	lightBlurs      = []int{18, 24, 30}
	invertLimits    = []int{30, 45, 60}
	edgeLimits      = []int{30, 45, 60}
	motionLimits    = []int{30, 45, 60}
)

// Bar weights per strategy. Strategies that target uniform letterbox or
// pillarbox bars weigh the largest bar heavily so an obvious big bar beats
// a small, possibly spurious partial crop.
const (
	darkBarWeight   = 200
	lightBarWeight  = 300
	invertBarWeight = 300
	edgeBarWeight   = 100
	motionBarWeight = 100
)

// PlanParams carries the probe window shared by every spec in a plan.
type PlanParams struct {
	ProbeSeconds float64
	StartOffset  float64
}

// Plan returns the tiered search space for a target mode. Order is fixed and
// deterministic per mode:
//
//	dark:   dark-border tiers, one per sensitivity limit
//	light:  threshold-sweep tiers, then inverted fallback, then edge fallback
//	motion: a single motion-bbox tier
//
// A later tier is only attempted when no candidate in the current tier
// clears the acceptance band.
func Plan(mode types.Mode, p PlanParams) [][]types.StrategySpec {
	var tiers [][]types.StrategySpec

	switch mode {
	case types.ModeDark:
		for _, limit := range darkLimits {
			var tier []types.StrategySpec
			for _, blur := range darkBlurs {
				tier = append(tier, types.StrategySpec{
					Kind:             types.DarkBorder,
					ProbeSeconds:     p.ProbeSeconds,
					StartOffset:      p.StartOffset,
					BlurRadius:       blur,
					SensitivityLimit: limit,
					BarWeight:        darkBarWeight,
				})
			}
			tiers = append(tiers, tier)
		}

	case types.ModeLight:
		for _, threshold := range lightThresholds {
			var tier []types.StrategySpec
			for _, blur := range lightBlurs {
				tier = append(tier, types.StrategySpec{
					Kind:                types.LightBorderThreshold,
					ProbeSeconds:        p.ProbeSeconds,
					StartOffset:         p.StartOffset,
					BlurRadius:          blur,
					SensitivityLimit:    24,
					BrightnessThreshold: threshold,
					BarWeight:           lightBarWeight,
				})
			}
			tiers = append(tiers, tier)
		}
		for _, limit := range invertLimits {
			tiers = append(tiers, []types.StrategySpec{{
				Kind:             types.InvertedFallback,
				ProbeSeconds:     p.ProbeSeconds,
				StartOffset:      p.StartOffset,
				SensitivityLimit: limit,
				BarWeight:        invertBarWeight,
			}})
		}
		var edgeTier []types.StrategySpec
		for _, limit := range edgeLimits {
			edgeTier = append(edgeTier, types.StrategySpec{
				Kind:             types.EdgeFallback,
				ProbeSeconds:     p.ProbeSeconds,
				StartOffset:      p.StartOffset,
				SensitivityLimit: limit,
				BarWeight:        edgeBarWeight,
			})
		}
		tiers = append(tiers, edgeTier)

	case types.ModeMotion:
		var tier []types.StrategySpec
		for _, limit := range motionLimits {
			tier = append(tier, types.StrategySpec{
				Kind:             types.MotionBoundingBox,
				ProbeSeconds:     p.ProbeSeconds,
				StartOffset:      p.StartOffset,
				SensitivityLimit: limit,
				BarWeight:        motionBarWeight,
			})
		}
		tiers = append(tiers, tier)
	}

	return tiers
}

// FilterChain renders the ffmpeg video-filter graph for a spec. Every chain
// ends in cropdetect; the front of the chain transforms the frame so that
// the target border family reads as "black background, bright content".
func FilterChain(spec types.StrategySpec) string {
	var parts []string

	if spec.BlurRadius > 0 {
		parts = append(parts, fmt.Sprintf("boxblur=luma_radius=%d:luma_power=1", spec.BlurRadius))
	}

	switch spec.Kind {
	case types.LightBorderThreshold:
		// Luma above the threshold is background: map it to black and
		// everything else to white before detection.
		parts = append(parts, fmt.Sprintf(`lutyuv=y='if(gt(val\,%d)\,0\,255)'`, spec.BrightnessThreshold))
	case types.InvertedFallback:
		parts = append(parts, "negate")
	case types.EdgeFallback:
		parts = append(parts, "edgedetect=low=0.1:high=0.3")
	case types.MotionBoundingBox:
		// Frame difference: static regions go black, moving content stays.
		parts = append(parts, "tblend=all_mode=difference")
	}

	parts = append(parts, fmt.Sprintf("cropdetect=limit=%d:round=2:reset=0", spec.SensitivityLimit))
	return strings.Join(parts, ",")
}

// UsesBBoxUnion reports whether a spec's diagnostics are parsed as a
// per-frame bounding-box union instead of a last-rectangle token.
func UsesBBoxUnion(spec types.StrategySpec) bool {
	return spec.Kind == types.MotionBoundingBox
}

// ParseFor extracts a candidate rectangle from diagnostic text using the
// parse mode appropriate to the spec.
func ParseFor(spec types.StrategySpec, diag string) (types.Rectangle, bool) {
	if UsesBBoxUnion(spec) {
		return ParseBBoxUnion(diag)
	}
	return ParseRectangle(diag)
}
