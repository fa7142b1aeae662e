package gesture

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Outcome is everything one frame produced.
type Outcome struct {
	Result      Result          `json:"result"`
	Confirmed   *ConfirmedEvent `json:"confirmed,omitempty"`
	Fired       *ActionFired    `json:"fired,omitempty"`
	HandPresent bool            `json:"handPresent"`
}

// Engine runs classification, voting and dispatch for one frame at a time.
// It is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	classifier ClassifierConfig
	stabilizer *Stabilizer
}

// NewEngine creates an Engine with the given classifier and stabilizer settings.
func NewEngine(classifier ClassifierConfig, stabilizer StabilizerConfig) *Engine {
	return &Engine{
		classifier: classifier.withDefaults(),
		stabilizer: NewStabilizer(stabilizer),
	}
}

// Process handles one frame. A frame without landmarks means the hand was
// lost and resets the vote; otherwise the frame is classified, observed and,
// when confirmed, dispatched, all under one lock.
func (e *Engine) Process(frame detector.Frame, now time.Time) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !frame.HasHand() {
		e.stabilizer.HandLost()
		return Outcome{Result: NoHand}
	}

	out := Outcome{
		Result:      Classify(frame, e.classifier),
		HandPresent: true,
	}

	out.Confirmed = e.stabilizer.Observe(out.Result, now)
	if out.Confirmed != nil {
		out.Fired = e.stabilizer.Dispatch(*out.Confirmed, now)
	}
	return out
}

// Reset clears the vote window and confirmation state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stabilizer.Reset()
}

// Confirmed returns the currently confirmed state.
func (e *Engine) Confirmed() ConfirmedState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stabilizer.Confirmed()
}

// Window returns a copy of the current vote window.
func (e *Engine) Window() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stabilizer.Window()
}

// Actions returns the current label to action bindings.
func (e *Engine) Actions() ActionMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stabilizer.Config().Actions
}

// SetActionMap replaces the label to action bindings.
func (e *Engine) SetActionMap(actions ActionMap) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stabilizer.SetActionMap(actions)
}
