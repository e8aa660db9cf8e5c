package borders

import "cropscan/internal/types"

// ScoreRejected is the sentinel for candidates inside the rejection band.
// Lower than any valid score (valid scores are >= 0).
const ScoreRejected = -1.0

// DefaultMinKeepRatio is the fraction of each frame axis a candidate must
// retain to avoid rejection. Stricter profiles raise it to 0.6.
const DefaultMinKeepRatio = 0.5

// Score assigns a desirability score to a candidate rectangle. Higher is
// better. Candidates keeping less than minKeepRatio of either axis are
// rejected outright: a detector that over-triggers must never win just
// because it removed the most area.
//
// Accepted candidates score removedArea plus the spec's BarWeight times the
// largest single removed bar. The bar term breaks ties in favor of one big
// uniform letterbox/pillarbox bar over small amounts shaved off many sides.
func Score(c types.Rectangle, spec types.StrategySpec, dims types.FrameDimensions, minKeepRatio float64) float64 {
	if minKeepRatio <= 0 {
		minKeepRatio = DefaultMinKeepRatio
	}
	fw, fh := dims.Width, dims.Height
	if float64(c.W) < minKeepRatio*float64(fw) || float64(c.H) < minKeepRatio*float64(fh) {
		return ScoreRejected
	}

	removed := fw*fh - c.W*c.H

	top := c.Y
	bottom := fh - (c.Y + c.H)
	left := c.X
	right := fw - (c.X + c.W)

	return float64(removed) + float64(spec.BarWeight)*float64(maxInt(top, bottom, left, right))
}

// Accepted reports whether a score clears the acceptance band. minAccept is
// policy, not law: 0 means "any candidate that removes something".
func Accepted(score, minAccept float64) bool {
	return score > minAccept && score != ScoreRejected
}

func maxInt(vs ...int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
