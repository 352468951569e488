package workflow

import "context"

// IsFocusable reports whether step index may receive keyboard focus: it
// exists, is not disabled, and in linear mode has already been reached.
func (n *Navigator) IsFocusable(index int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isFocusable(index)
}

func (n *Navigator) isFocusable(index int) bool {
	if index < 0 || index >= len(n.steps) {
		return false
	}
	if n.steps[index].Disabled {
		return false
	}
	return !n.policy.Linear || index <= n.state.CurrentIndex
}

// FindNext returns the first focusable index after from. The scan does not wrap.
func (n *Navigator) FindNext(from int) (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.findNext(from)
}

// FindPrevious returns the last focusable index before from. The scan does not wrap.
func (n *Navigator) FindPrevious(from int) (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.findPrevious(from)
}

// FindFirst returns the lowest focusable index.
func (n *Navigator) FindFirst() (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.findNext(-1)
}

// FindLast returns the highest focusable index.
func (n *Navigator) FindLast() (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.findPrevious(len(n.steps))
}

func (n *Navigator) findNext(from int) (int, bool) {
	for i := max(from+1, 0); i < len(n.steps); i++ {
		if n.isFocusable(i) {
			return i, true
		}
	}
	return -1, false
}

func (n *Navigator) findPrevious(from int) (int, bool) {
	for i := min(from-1, len(n.steps)-1); i >= 0; i-- {
		if n.isFocusable(i) {
			return i, true
		}
	}
	return -1, false
}

// FocusedIndex returns the focus cursor. It starts on the current step and
// returns there after every committed navigation.
func (n *Navigator) FocusedIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.focused
}

// TabIndex implements a roving tabindex: 0 for the current step, -1 otherwise.
func (n *Navigator) TabIndex(index int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.steps) > 0 && index == n.state.CurrentIndex {
		return 0
	}
	return -1
}

// FocusNext moves focus to the next focusable step (ArrowRight/ArrowDown).
func (n *Navigator) FocusNext() (int, bool) {
	return n.moveFocus(func() (int, bool) { return n.findNext(n.focused) })
}

// FocusPrevious moves focus to the previous focusable step (ArrowLeft/ArrowUp).
func (n *Navigator) FocusPrevious() (int, bool) {
	return n.moveFocus(func() (int, bool) { return n.findPrevious(n.focused) })
}

// FocusFirst moves focus to the first focusable step (Home).
func (n *Navigator) FocusFirst() (int, bool) {
	return n.moveFocus(func() (int, bool) { return n.findNext(-1) })
}

// FocusLast moves focus to the last focusable step (End).
func (n *Navigator) FocusLast() (int, bool) {
	return n.moveFocus(func() (int, bool) { return n.findPrevious(len(n.steps)) })
}

// FocusStep moves focus to index if it is focusable.
func (n *Navigator) FocusStep(index int) (int, bool) {
	return n.moveFocus(func() (int, bool) {
		if n.isFocusable(index) {
			return index, true
		}
		return -1, false
	})
}

// moveFocus applies find under n.mu, then notifies the focus port, the bus
// and the announcer. Workflow state is never changed.
func (n *Navigator) moveFocus(find func() (int, bool)) (int, bool) {
	n.mu.Lock()
	idx, ok := find()
	if !ok {
		n.mu.Unlock()
		return -1, false
	}
	n.focused = idx
	step := &n.steps[idx]
	msg := n.messages.StepFocused(step, idx, len(n.steps), n.state.Statuses[step.ID])
	ref := n.ref(idx)
	port := n.focusPort
	n.mu.Unlock()

	if port != nil {
		port.FocusStep(idx)
	}
	n.emitter.StepFocused(ref)
	n.announce(msg)
	return idx, true
}

// Activate handles Enter or Space on the focused step. A non-current step is
// navigated to. On the current step, incomplete content receives focus;
// otherwise the navigator advances.
func (n *Navigator) Activate(ctx context.Context) (Outcome, error) {
	n.mu.Lock()
	if len(n.steps) == 0 {
		n.mu.Unlock()
		return OutcomeNoop, nil
	}
	idx, cur := n.focused, n.state.CurrentIndex
	step := n.steps[idx]
	n.mu.Unlock()

	if idx != cur {
		return n.RequestNavigation(ctx, idx)
	}
	if step.IsComplete != nil && !step.IsComplete() {
		n.mu.Lock()
		ref := n.ref(idx)
		port := n.focusPort
		n.mu.Unlock()

		n.emitter.ContentFocused(ref)
		if port != nil {
			port.FocusContent(idx)
		}
		return OutcomeContentFocused, nil
	}
	return n.Advance(ctx)
}
