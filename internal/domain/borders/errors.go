package borders

import "errors"

// Failure taxonomy for detection. Probe-level failures are recovered inside
// the selector loop; only ErrCropNotDetected and ErrDimensionsUnavailable
// surface to callers.
var (
	// ErrCropNotDetected is the terminal "undetectable" result: every
	// strategy and parameter combination was exhausted without an accepted
	// candidate. Normal and expected for borderless content.
	ErrCropNotDetected = errors.New("no usable crop region detected")

	// ErrNoCandidate means diagnostics were produced but contained no
	// extractable rectangle. Strategy-level, recovered by the selector.
	ErrNoCandidate = errors.New("no candidate parsed from diagnostics")

	// ErrProbeFailed means the analysis subprocess could not run or exited
	// non-zero. Infrastructure-level, recovered per probe.
	ErrProbeFailed = errors.New("probe failed")

	// ErrDimensionsUnavailable means the dimension query failed. Fatal:
	// scoring needs the frame size.
	ErrDimensionsUnavailable = errors.New("input dimensions unavailable")
)
