package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TuneGoal selects which operation the tuner times.
type TuneGoal int

const (
	// GoalHash times a single hash.
	GoalHash TuneGoal = iota
	// GoalHashVerify times a hash followed by a verification of the result.
	GoalHashVerify
)

func (g TuneGoal) String() string {
	switch g {
	case GoalHash:
		return "hash"
	case GoalHashVerify:
		return "hash+verify"
	default:
		return fmt.Sprintf("TuneGoal(%d)", int(g))
	}
}

const (
	defaultTuneMinMemoryKB   uint32 = 8 * 1024
	defaultTuneMaxIterations uint32 = 32
	maxTuneSamples                  = 3
	// iterationOvershoot is how far past the target phase two may go (10%).
	iterationOvershoot = 10
)

var errProbeTimeout = errors.New("tune: probe exceeded timeout")

// TuneOptions configure a cost search.
type TuneOptions struct {
	Target  time.Duration
	Goal    TuneGoal
	Samples int
	// Base supplies parallelism, output length and salt length; memory and
	// iterations are searched.
	Base          CostParams
	MinMemoryKB   uint32
	MaxMemoryKB   uint32
	MaxIterations uint32
}

// TuneResult is the outcome of a search.
type TuneResult struct {
	Params   CostParams
	Measured time.Duration
	Probes   int
}

// Tuner searches Argon2id cost parameters whose latency approaches a target.
type Tuner struct {
	opts    TuneOptions
	logger  *zap.Logger
	measure func(ctx context.Context, params CostParams) (time.Duration, error)
	probes  int
}

// NewTuner validates options and fills defaults.
func NewTuner(opts TuneOptions, logger *zap.Logger) (*Tuner, error) {
	if opts.Target <= 0 {
		return nil, fmt.Errorf("tune: target duration must be positive")
	}
	if opts.Goal != GoalHash && opts.Goal != GoalHashVerify {
		return nil, fmt.Errorf("tune: unknown goal %d", int(opts.Goal))
	}
	if opts.Samples <= 0 {
		opts.Samples = maxTuneSamples
	}
	if opts.Samples > maxTuneSamples {
		opts.Samples = maxTuneSamples
	}
	if opts.Base == (CostParams{}) {
		opts.Base = DefaultCostParams()
	}
	if opts.MinMemoryKB == 0 {
		opts.MinMemoryKB = defaultTuneMinMemoryKB
	}
	if opts.MaxMemoryKB == 0 {
		opts.MaxMemoryKB = DefaultMaxMemoryKB
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = defaultTuneMaxIterations
	}
	if opts.MinMemoryKB > opts.MaxMemoryKB {
		return nil, fmt.Errorf("tune: min memory %d KB exceeds max memory %d KB", opts.MinMemoryKB, opts.MaxMemoryKB)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	probe := opts.Base
	probe.MemoryKB = opts.MinMemoryKB
	probe.Iterations = 1
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	t := &Tuner{opts: opts, logger: logger}
	t.measure = t.timedMeasure
	return t, nil
}

// Tune runs the two-phase search: memory first with one iteration, then
// iterations at the chosen memory.
func (t *Tuner) Tune(ctx context.Context) (TuneResult, error) {
	t.probes = 0

	memory, memDuration, err := t.searchMemory(ctx)
	if err != nil {
		return TuneResult{}, err
	}

	iterations, duration, err := t.searchIterations(ctx, memory, memDuration)
	if err != nil {
		return TuneResult{}, err
	}

	params := t.opts.Base
	params.MemoryKB = memory
	params.Iterations = iterations

	t.logger.Info("argon2 cost tuned",
		zap.String("goal", t.opts.Goal.String()),
		zap.Duration("target", t.opts.Target),
		zap.Duration("measured", duration),
		zap.Uint32("memory_kb", memory),
		zap.Uint32("iterations", iterations),
		zap.Int("probes", t.probes))

	return TuneResult{Params: params, Measured: duration, Probes: t.probes}, nil
}

func (t *Tuner) searchMemory(ctx context.Context) (uint32, time.Duration, error) {
	var (
		lo, hi uint32
		loDur  time.Duration
	)

	for mem := t.opts.MinMemoryKB; mem <= t.opts.MaxMemoryKB; mem *= 2 {
		d, ok, err := t.try(ctx, mem, 1)
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			hi = mem
			break
		}
		lo, loDur = mem, d
		if mem > t.opts.MaxMemoryKB/2 {
			break
		}
	}

	if lo == 0 {
		// Even the minimum is slower than the target; it is still the best available.
		t.logger.Warn("argon2 minimum memory exceeds target", zap.Uint32("memory_kb", t.opts.MinMemoryKB))
		d, _, err := t.try(ctx, t.opts.MinMemoryKB, 1)
		if err != nil {
			return 0, 0, err
		}
		return t.opts.MinMemoryKB, d, nil
	}
	if hi == 0 {
		return lo, loDur, nil
	}

	step := uint32(1024)
	if lo < step {
		step = lo
	}
	for hi-lo > step {
		mid := lo + ((hi-lo)/2/step)*step
		if mid <= lo {
			break
		}
		d, ok, err := t.try(ctx, mid, 1)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			lo, loDur = mid, d
		} else {
			hi = mid
		}
	}
	return lo, loDur, nil
}

func (t *Tuner) searchIterations(ctx context.Context, memory uint32, baseline time.Duration) (uint32, time.Duration, error) {
	best, bestDur := uint32(1), baseline
	limit := t.opts.Target + t.opts.Target*iterationOvershoot/100

	for it := uint32(2); it <= t.opts.MaxIterations; it++ {
		d, err := t.measureOnce(ctx, memory, it)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, 0, ctxErr
			}
			break
		}
		if d > limit {
			break
		}
		if absDuration(t.opts.Target-d) < absDuration(t.opts.Target-bestDur) {
			best, bestDur = it, d
		}
		if d >= t.opts.Target {
			break
		}
	}
	return best, bestDur, nil
}

// try measures one configuration and reports whether it fits within the target.
// Timeouts and probe failures count as "too slow" so the search backs off.
func (t *Tuner) try(ctx context.Context, memory, iterations uint32) (time.Duration, bool, error) {
	d, err := t.measureOnce(ctx, memory, iterations)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, false, ctxErr
		}
		t.logger.Debug("argon2 probe failed",
			zap.Uint32("memory_kb", memory),
			zap.Uint32("iterations", iterations),
			zap.Error(err))
		return 0, false, nil
	}
	return d, d <= t.opts.Target, nil
}

func (t *Tuner) measureOnce(ctx context.Context, memory, iterations uint32) (time.Duration, error) {
	params := t.opts.Base
	params.MemoryKB = memory
	params.Iterations = iterations
	t.probes++
	return t.measure(ctx, params)
}

// timedMeasure averages Samples runs of the goal operation. A run exceeding
// three times the target aborts the probe; the abandoned run finishes in the
// background and its result is discarded.
func (t *Tuner) timedMeasure(ctx context.Context, params CostParams) (time.Duration, error) {
	timeout := 3 * t.opts.Target
	var total time.Duration

	for i := 0; i < t.opts.Samples; i++ {
		done := make(chan error, 1)
		start := time.Now()
		go func() { done <- t.runGoal(params) }()

		timer := time.NewTimer(timeout)
		select {
		case err := <-done:
			timer.Stop()
			if err != nil {
				return 0, err
			}
			total += time.Since(start)
		case <-timer.C:
			return 0, errProbeTimeout
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		}
	}
	return total / time.Duration(t.opts.Samples), nil
}

func (t *Tuner) runGoal(params CostParams) error {
	encoded, err := hashPassword("argon2-cost-probe", params, t.opts.MaxMemoryKB)
	if err != nil {
		return err
	}
	if t.opts.Goal == GoalHashVerify && !verifyPassword("argon2-cost-probe", encoded, t.opts.MaxMemoryKB) {
		return errors.New("tune: probe hash did not verify")
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
