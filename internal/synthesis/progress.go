package synthesis

import "fmt"

// progressBuffer is how many transitions wait for a slow reader before
// Emit starts dropping them.
const progressBuffer = 64

// ProgressReporter lets a CLI or server follow a run's transitions.
type ProgressReporter struct {
	ch chan Transition
}

func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{ch: make(chan Transition, progressBuffer)}
}

// Emit sends a transition without blocking. If the channel is full the
// transition is dropped; the Result still records it.
func (pr *ProgressReporter) Emit(t Transition) {
	select {
	case pr.ch <- t:
	default:
	}
}

// Subscribe returns the transition stream. It is closed by Close.
func (pr *ProgressReporter) Subscribe() <-chan Transition {
	return pr.ch
}

func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatTransition renders t as one indented status line.
func FormatTransition(t Transition) string {
	switch t.To {
	case StateDone:
		return fmt.Sprintf("  ✓ %s (score %.2f)", t.To, t.Score)
	case StateExhausted:
		return fmt.Sprintf("  ✗ %s after %d passes (score %.2f)", t.To, t.Iteration, t.Score)
	case StateEnhancing:
		return fmt.Sprintf("  ● %s pass %d: %s", t.To, t.Iteration, t.Reason)
	default:
		return fmt.Sprintf("  ○ %s -> %s", t.From, t.To)
	}
}
