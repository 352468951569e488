package workflow

import (
	"context"
	"fmt"

	"github.com/AltairaLabs/stepflow/runtime/logger"
)

type transitionOpts struct {
	kind    TransitionKind
	click   bool
	skipped bool
}

// RequestNavigation moves to step to, as a click or programmatic jump.
//
// The transition is guarded (range, disabled, step click policy, linear
// mode), then the current step is validated when moving forward, then
// committed: every step in [from, to) becomes completed, to becomes current.
func (n *Navigator) RequestNavigation(ctx context.Context, to int) (Outcome, error) {
	if !n.gate.TryAcquire(1) {
		return OutcomeBusy, ErrNavigationInProgress
	}
	defer n.gate.Release(1)

	n.mu.Lock()
	from := n.state.CurrentIndex
	n.mu.Unlock()

	return n.transition(ctx, from, to, transitionOpts{kind: KindJump, click: true})
}

// Advance moves to the next step. On the last step it validates and runs
// the terminal completion instead. Advancing a completed workflow is a no-op.
func (n *Navigator) Advance(ctx context.Context) (Outcome, error) {
	if !n.gate.TryAcquire(1) {
		return OutcomeBusy, ErrNavigationInProgress
	}
	defer n.gate.Release(1)

	return n.advance(ctx, KindAdvance, false)
}

// Retreat moves to the previous step without validating.
func (n *Navigator) Retreat(ctx context.Context) (Outcome, error) {
	if !n.gate.TryAcquire(1) {
		return OutcomeBusy, ErrNavigationInProgress
	}
	defer n.gate.Release(1)

	n.mu.Lock()
	total, from := len(n.steps), n.state.CurrentIndex
	n.mu.Unlock()
	if total == 0 {
		return OutcomeNoop, nil
	}
	return n.transition(ctx, from, from-1, transitionOpts{kind: KindRetreat})
}

// Skip marks the current skippable step skipped and moves on without
// validating it. Skipping the last step completes the workflow.
func (n *Navigator) Skip(ctx context.Context) (Outcome, error) {
	if !n.gate.TryAcquire(1) {
		return OutcomeBusy, ErrNavigationInProgress
	}
	defer n.gate.Release(1)

	n.mu.Lock()
	if len(n.steps) == 0 || n.completed {
		n.mu.Unlock()
		return OutcomeNoop, nil
	}
	from := n.state.CurrentIndex
	step := &n.steps[from]
	last := from == len(n.steps)-1

	if !step.Skippable {
		n.mu.Unlock()
		return n.reject(ctx, rejected(ErrStepNotSkippable, from, from), from, from)
	}
	if !last {
		if err := n.checkGuards(from, from+1, false); err != nil {
			n.mu.Unlock()
			return n.reject(ctx, err, from, from+1)
		}
	}
	n.state.SetStatus(step.ID, StatusSkipped)
	ref := n.ref(from)
	n.mu.Unlock()

	n.emitter.StepSkipped(ref)

	if last {
		return n.finish(ctx, from, true)
	}
	return n.transition(ctx, from, from+1, transitionOpts{kind: KindSkip, skipped: true})
}

// ContentCompleted reports that the content of stepID became complete. With
// AutoAdvanceOnComplete set and stepID current, the navigator advances.
func (n *Navigator) ContentCompleted(ctx context.Context, stepID string) (Outcome, error) {
	n.mu.Lock()
	idx, ok := n.index[stepID]
	applies := ok && n.policy.AutoAdvanceOnComplete && !n.completed && idx == n.state.CurrentIndex
	n.mu.Unlock()

	if !applies {
		return OutcomeNoop, nil
	}
	return n.Advance(ctx)
}

// Reset re-initializes the run at startIndex, clearing completion and
// history, and publishes a fresh workflow.started.
func (n *Navigator) Reset(_ context.Context, startIndex int) (Outcome, error) {
	if !n.gate.TryAcquire(1) {
		return OutcomeBusy, ErrNavigationInProgress
	}
	defer n.gate.Release(1)

	n.mu.Lock()
	n.state.Initialize(n.steps, startIndex)
	n.focused = n.state.CurrentIndex
	n.completed = false
	n.history = nil
	n.startedAt = n.now()
	n.updatedAt = n.startedAt
	total, cur := len(n.steps), n.state.CurrentIndex
	n.mu.Unlock()

	if total == 0 {
		return OutcomeNoop, nil
	}
	n.emitter.WorkflowStarted(total, cur)
	return OutcomeCommitted, nil
}

// advance requires the gate.
func (n *Navigator) advance(ctx context.Context, kind TransitionKind, skipped bool) (Outcome, error) {
	n.mu.Lock()
	total, from, done := len(n.steps), n.state.CurrentIndex, n.completed
	n.mu.Unlock()

	switch {
	case total == 0, done:
		return OutcomeNoop, nil
	case from == total-1:
		return n.finish(ctx, from, skipped)
	}
	return n.transition(ctx, from, from+1, transitionOpts{kind: kind, skipped: skipped})
}

// transition requires the gate.
func (n *Navigator) transition(ctx context.Context, from, to int, opts transitionOpts) (Outcome, error) {
	n.mu.Lock()
	if len(n.steps) == 0 || to == from {
		n.mu.Unlock()
		return OutcomeNoop, nil
	}
	if err := n.checkGuards(from, to, opts.click); err != nil {
		n.mu.Unlock()
		return n.reject(ctx, err, from, to)
	}
	needsValidation := to > from && !opts.skipped && n.needsValidation(from)
	n.mu.Unlock()

	if needsValidation {
		if err := n.validate(ctx, from); err != nil {
			return OutcomeInvalid, err
		}
	}

	n.commit(ctx, from, to, opts)
	return OutcomeCommitted, nil
}

// checkGuards runs the eligibility checks in order. Caller must hold n.mu.
func (n *Navigator) checkGuards(from, to int, click bool) error {
	var reason error
	switch {
	case to < 0 || to >= len(n.steps):
		reason = ErrStepOutOfRange
	case n.steps[to].Disabled:
		reason = ErrStepDisabled
	case click && !n.policy.AllowStepClick && abs(to-from) > 1:
		reason = ErrStepClickDisabled
	case n.policy.Linear && to > from+1:
		reason = ErrLinearSkipAhead
	default:
		return nil
	}
	return rejected(reason, from, to)
}

func (n *Navigator) reject(ctx context.Context, err error, from, to int) (Outcome, error) {
	logger.NavigationRejected(ctx, n.name, from, to, err)
	return OutcomeRejected, err
}

// needsValidation reports whether leaving step index forward runs a
// validator. Caller must hold n.mu.
func (n *Navigator) needsValidation(index int) bool {
	return n.policy.ValidateOnNext && n.steps[index].Validator != nil
}

// validate runs the validator of step index with n.mu released. On failure
// the step is marked error and a *StepError is returned.
func (n *Navigator) validate(ctx context.Context, index int) error {
	n.mu.Lock()
	n.state.Validation = ValidationPending
	step := &n.steps[index]
	ref := n.ref(index)
	n.mu.Unlock()

	n.emitter.ValidationStarted(ref)

	started := n.now()
	err := n.runValidator(ctx, step.Validator)
	elapsed := n.now().Sub(started)

	if err != nil {
		n.mu.Lock()
		n.state.Validation = ValidationInvalid
		n.state.SetStatus(step.ID, StatusError)
		n.updatedAt = n.now()
		msg := n.messages.StepError(step, index, len(n.steps), err)
		n.mu.Unlock()

		logger.ValidationFailure(ctx, n.name, step.ID, index, err)
		n.emitter.ValidationFailed(ref, err, elapsed)
		n.emitter.StepError(ref, err)
		n.announce(msg)
		return &StepError{StepID: step.ID, Index: index, Err: err}
	}

	n.mu.Lock()
	n.state.Validation = ValidationValid
	n.mu.Unlock()

	n.emitter.ValidationPassed(ref, elapsed)
	return nil
}

// runValidator converts false, errors and panics into a non-nil error.
func (n *Navigator) runValidator(ctx context.Context, v Validator) (err error) {
	if n.validationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.validationTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrValidatorPanicked, r)
		}
	}()

	ok, verr := v(ctx)
	switch {
	case verr != nil:
		return verr
	case !ok:
		return ErrValidationFailed
	}
	return nil
}

// commit applies a guarded, validated transition.
func (n *Navigator) commit(ctx context.Context, from, to int, opts transitionOpts) {
	n.mu.Lock()
	var completed []int
	if to > from {
		for i := from; i < to; i++ {
			if opts.skipped && i == from {
				continue
			}
			n.state.SetStatus(n.steps[i].ID, StatusCompleted)
			completed = append(completed, i)
		}
	} else if st, _ := n.state.StatusOf(n.steps[from].ID); st == StatusCurrent {
		n.state.SetStatus(n.steps[from].ID, StatusUpcoming)
	}

	dest := &n.steps[to]
	n.state.SetStatus(dest.ID, StatusCurrent)
	n.state.CurrentIndex = to
	n.state.Validation = ValidationIdle
	n.focused = to
	n.completed = false
	n.record(from, to, opts.kind)

	ref := n.ref(to)
	msg := n.messages.StepChanged(dest, to, len(n.steps), StatusCurrent)
	n.mu.Unlock()

	for _, i := range completed {
		n.emitter.StepCompleted(n.ref(i))
	}
	n.emitter.StepChanged(from, to, ref)
	logger.Navigation(ctx, n.name, from, to, dest.ID, "kind", string(opts.kind))
	n.announce(msg)
}

// finish runs the terminal completion on the last step.
func (n *Navigator) finish(ctx context.Context, index int, skipped bool) (Outcome, error) {
	n.mu.Lock()
	needsValidation := !skipped && n.needsValidation(index)
	n.mu.Unlock()

	if needsValidation {
		if err := n.validate(ctx, index); err != nil {
			return OutcomeInvalid, err
		}
	}

	n.mu.Lock()
	step := &n.steps[index]
	if !skipped {
		n.state.SetStatus(step.ID, StatusCompleted)
	}
	n.state.Validation = ValidationIdle
	n.completed = true
	n.record(index, index, KindComplete)
	ref := n.ref(index)
	total := len(n.steps)
	duration := n.updatedAt.Sub(n.startedAt)
	msg := n.messages.Completed(total)
	n.mu.Unlock()

	if !skipped {
		n.emitter.StepCompleted(ref)
	}
	n.emitter.WorkflowCompleted(total, duration)
	logger.Navigation(ctx, n.name, index, index, step.ID, "kind", string(KindComplete))
	n.announce(msg)
	return OutcomeCompleted, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
