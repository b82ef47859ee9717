package agent

import (
	"context"
	"sync"
	"time"

	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

// Step is one stage of the progress indicator
type Step struct {
	Stage    models.ProcessingStage
	Progress int
	Duration time.Duration
}

// DefaultSteps returns the indicator timings shown while ranking runs.
// They are cosmetic and do not track the ranking service.
func DefaultSteps() []Step {
	return []Step{
		{Stage: models.StageUpload, Progress: 0, Duration: time.Second},
		{Stage: models.StageScreening, Progress: 25, Duration: 2 * time.Second},
		{Stage: models.StageAnalysis, Progress: 50, Duration: 4 * time.Second},
		{Stage: models.StageComplete, Progress: 100, Duration: 500 * time.Millisecond},
	}
}

// StepFunc receives each step as the sequence reaches it
type StepFunc func(step Step)

// ProgressSequence plays every step but the last on a timer and then holds.
// The last step is only shown by Complete.
type ProgressSequence struct {
	steps  []Step
	onStep StepFunc

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewProgressSequence creates a sequence; nothing is emitted until Start
func NewProgressSequence(steps []Step, onStep StepFunc) *ProgressSequence {
	if onStep == nil {
		onStep = func(Step) {}
	}
	return &ProgressSequence{steps: steps, onStep: onStep}
}

// Start begins playback. Calling it twice has no effect.
func (p *ProgressSequence) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)
}

func (p *ProgressSequence) run(ctx context.Context) {
	defer close(p.done)

	if len(p.steps) < 2 {
		return
	}
	for _, step := range p.steps[:len(p.steps)-1] {
		if ctx.Err() != nil {
			return
		}
		p.onStep(step)

		timer := time.NewTimer(step.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Stop halts playback and waits until no further step can be emitted
func (p *ProgressSequence) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Complete stops playback and emits the final step
func (p *ProgressSequence) Complete() {
	p.Stop()
	if len(p.steps) > 0 {
		p.onStep(p.steps[len(p.steps)-1])
	}
}

// Linger is how long the final step stays on screen before results are shown
func (p *ProgressSequence) Linger() time.Duration {
	if len(p.steps) == 0 {
		return 0
	}
	return p.steps[len(p.steps)-1].Duration
}
