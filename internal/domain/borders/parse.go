package borders

import (
	"regexp"
	"strconv"

	"cropscan/internal/types"
)

var (
	reCropToken = regexp.MustCompile(`crop=(\d+):(\d+):(\d+):(\d+)`)

	// Per-frame bbox components on cropdetect frame lines. The word
	// boundary keeps x1:/x2:/y1:/y2: fields from matching.
	reBBoxX = regexp.MustCompile(`\bx:(-?\d+)`)
	reBBoxY = regexp.MustCompile(`\by:(-?\d+)`)
	reBBoxW = regexp.MustCompile(`\bw:(-?\d+)`)
	reBBoxH = regexp.MustCompile(`\bh:(-?\d+)`)
)

// ParseRectangle extracts the last crop=w:h:x:y token from diagnostic text.
// The analyzer refines its estimate as it processes more frames, so the last
// emission is the most confident. Returns false when no token is present.
func ParseRectangle(diag string) (types.Rectangle, bool) {
	ms := reCropToken.FindAllStringSubmatch(diag, -1)
	if len(ms) == 0 {
		return types.Rectangle{}, false
	}
	m := ms[len(ms)-1]
	w := atoi(m[1])
	h := atoi(m[2])
	x := atoi(m[3])
	y := atoi(m[4])
	if w <= 0 || h <= 0 {
		return types.Rectangle{}, false
	}
	return types.Rectangle{X: x, Y: y, W: w, H: h}, true
}

// ParseBBoxUnion extracts per-frame x/y/w/h components and returns the union
// bounding box across every analyzed frame in the window. Used by the motion
// strategy, where the moving region wanders frame to frame and the crop must
// cover all of it. Returns false when no components were emitted or the
// union degenerates.
func ParseBBoxUnion(diag string) (types.Rectangle, bool) {
	xs := allInts(reBBoxX, diag)
	ys := allInts(reBBoxY, diag)
	ws := allInts(reBBoxW, diag)
	hs := allInts(reBBoxH, diag)

	n := len(xs)
	if n == 0 || len(ys) < n || len(ws) < n || len(hs) < n {
		return types.Rectangle{}, false
	}

	x1, y1 := xs[0], ys[0]
	x2, y2 := xs[0]+ws[0], ys[0]+hs[0]
	for i := 1; i < n; i++ {
		if xs[i] < x1 {
			x1 = xs[i]
		}
		if ys[i] < y1 {
			y1 = ys[i]
		}
		if r := xs[i] + ws[i]; r > x2 {
			x2 = r
		}
		if b := ys[i] + hs[i]; b > y2 {
			y2 = b
		}
	}

	w := x2 - x1
	h := y2 - y1
	if w <= 0 || h <= 0 {
		return types.Rectangle{}, false
	}
	return types.Rectangle{X: x1, Y: y1, W: w, H: h}, true
}

func allInts(re *regexp.Regexp, s string) []int {
	ms := re.FindAllStringSubmatch(s, -1)
	out := make([]int, 0, len(ms))
	for _, m := range ms {
		out = append(out, atoi(m[1]))
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
