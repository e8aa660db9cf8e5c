// Package detector drives the border-detection search: it sweeps the tiered
// strategy plan for a target mode, fans probes out within each tier, scores
// every parsed rectangle and keeps the best.
package detector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cropscan/internal/domain/borders"
	"cropscan/internal/ports"
	"cropscan/internal/types"
)

type Options struct {
	// ProbeSeconds is the probe window length. Refinement passes use a
	// much shorter window than first passes.
	ProbeSeconds float64

	// StartOffset skips intros/fade-ins at the head of the source.
	StartOffset float64

	// MinKeepRatio is the scorer's rejection floor per axis (0.5 default,
	// 0.6 for strict profiles).
	MinKeepRatio float64

	// MinAcceptScore is the early-exit threshold: once a tier produces a
	// candidate scoring above it, later tiers are skipped.
	MinAcceptScore float64

	// OnProbe, when set, is called once per finished probe. Feeds the CLI
	// progress bar.
	OnProbe func()
}

const (
	DefaultProbeSeconds = 8.0
	DefaultStartOffset  = 1.0
	RefineProbeSeconds  = 2.0
)

type Detector struct {
	analyzer ports.FrameAnalyzer
	log      zerolog.Logger
	opts     Options
}

func New(analyzer ports.FrameAnalyzer, log zerolog.Logger, opts Options) Detector {
	if opts.ProbeSeconds <= 0 {
		opts.ProbeSeconds = DefaultProbeSeconds
	}
	if opts.MinKeepRatio <= 0 {
		opts.MinKeepRatio = borders.DefaultMinKeepRatio
	}
	return Detector{analyzer: analyzer, log: log, opts: opts}
}

// ProbeCount returns how many probes a full sweep for mode may issue.
func (d Detector) ProbeCount(mode types.Mode) int {
	n := 0
	for _, tier := range borders.Plan(mode, d.planParams()) {
		n += len(tier)
	}
	return n
}

// Detect runs the tiered search against input and returns the winning
// rectangle. Tiers run strictly in order; the probes of one tier run
// concurrently and all finish before the next tier starts. Per-probe
// failures (subprocess errors, unparseable diagnostics, rejected
// rectangles) are recovered locally: they mean "this combination yielded
// nothing", never a wrong answer.
//
// When ctx expires mid-search no further tiers are issued and the best
// candidate found so far wins if it clears the band; otherwise the result
// is ErrCropNotDetected. Exhausting every tier without an accepted
// candidate is the same definitive ErrCropNotDetected, not a retryable
// condition.
func (d Detector) Detect(ctx context.Context, input string, dims types.FrameDimensions, mode types.Mode) (types.Outcome, error) {
	tiers := borders.Plan(mode, d.planParams())

	var (
		mu       sync.Mutex
		best     types.Candidate
		haveBest bool
	)

	for ti, tier := range tiers {
		if ctx.Err() != nil {
			d.log.Debug().Int("tier", ti).Msg("detection deadline hit, finalizing")
			break
		}

		var wg sync.WaitGroup
		for _, spec := range tier {
			wg.Add(1)
			go func(spec types.StrategySpec) {
				defer wg.Done()
				if d.opts.OnProbe != nil {
					defer d.opts.OnProbe()
				}

				cand, err := d.probeOne(ctx, input, dims, spec)
				if err != nil {
					d.logProbeMiss(spec, err)
					return
				}

				mu.Lock()
				if !haveBest || cand.Score > best.Score {
					best = cand
					haveBest = true
				}
				mu.Unlock()
			}(spec)
		}
		wg.Wait()

		if haveBest && borders.Accepted(best.Score, d.opts.MinAcceptScore) {
			d.log.Info().
				Str("strategy", string(best.Spec.Kind)).
				Int("tier", ti).
				Float64("score", best.Score).
				Msg("candidate accepted")
			return types.Outcome{Rect: best.Rect, Spec: best.Spec, Score: best.Score}, nil
		}
	}

	// Exhausted (or timed out). A leftover best that removes nothing is
	// not worth returning: null beats a low-confidence rectangle.
	if haveBest && borders.Accepted(best.Score, 0) {
		return types.Outcome{Rect: best.Rect, Spec: best.Spec, Score: best.Score}, nil
	}
	return types.Outcome{}, borders.ErrCropNotDetected
}

// probeOne runs a single strategy/parameter combination: one subprocess,
// one parse, one score.
func (d Detector) probeOne(ctx context.Context, input string, dims types.FrameDimensions, spec types.StrategySpec) (types.Candidate, error) {
	window := types.Window{
		Start:    secs(spec.StartOffset),
		Duration: secs(spec.ProbeSeconds),
	}
	diag, err := d.analyzer.Probe(ctx, input, window, borders.FilterChain(spec))
	if err != nil {
		return types.Candidate{}, err
	}
	rect, ok := borders.ParseFor(spec, diag)
	if !ok {
		return types.Candidate{}, borders.ErrNoCandidate
	}
	if !rect.Valid(dims) {
		return types.Candidate{}, borders.ErrNoCandidate
	}
	score := borders.Score(rect, spec, dims, d.opts.MinKeepRatio)
	if score == borders.ScoreRejected {
		return types.Candidate{}, errCandidateRejected
	}
	return types.Candidate{Rect: rect, Spec: spec, Score: score}, nil
}

var errCandidateRejected = errors.New("candidate rejected by scorer")

func (d Detector) logProbeMiss(spec types.StrategySpec, err error) {
	// Expected misses stay quiet; they are how the sweep works.
	level := zerolog.DebugLevel
	if errors.Is(err, borders.ErrProbeFailed) {
		level = zerolog.WarnLevel
	}
	d.log.WithLevel(level).
		Str("strategy", string(spec.Kind)).
		Int("limit", spec.SensitivityLimit).
		Int("blur", spec.BlurRadius).
		Err(err).
		Msg("probe yielded no candidate")
}

func (d Detector) planParams() borders.PlanParams {
	return borders.PlanParams{
		ProbeSeconds: d.opts.ProbeSeconds,
		StartOffset:  d.opts.StartOffset,
	}
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
