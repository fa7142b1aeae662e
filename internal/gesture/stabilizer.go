package gesture

import "time"

// StabilizerConfig holds the voting, debounce and cooldown settings.
type StabilizerConfig struct {
	// WindowSize is the number of recent frames that take part in the vote.
	WindowSize int

	// RequiredFraction of WindowSize a label must reach to be actionable.
	RequiredFraction float64

	// MinConfirm is how long a candidate must lead the vote before it is confirmed.
	MinConfirm time.Duration

	// Cooldown is the minimum time between two firings of the same action.
	Cooldown time.Duration

	// Actions maps confirmed labels to action names.
	Actions ActionMap
}

// DefaultStabilizerConfig returns the standard settings.
func DefaultStabilizerConfig() StabilizerConfig {
	return StabilizerConfig{
		WindowSize:       5,
		RequiredFraction: 0.5,
		MinConfirm:       300 * time.Millisecond,
		Cooldown:         1200 * time.Millisecond,
		Actions:          DefaultActionMap(),
	}
}

// ConfirmedState is the label currently held as stable. Since is when the
// label first became the leading candidate.
type ConfirmedState struct {
	Label Label     `json:"label"`
	Since time.Time `json:"since"`
}

type candidate struct {
	label Label
	since time.Time
}

// Stabilizer turns a noisy stream of per-frame results into confirmed
// gesture events and cooldown-gated actions. It is not safe for concurrent
// use; see Engine.
type Stabilizer struct {
	config    StabilizerConfig
	required  int
	window    *VoteWindow
	candidate *candidate
	confirmed ConfirmedState
	cooldowns *CooldownTable
}

// NewStabilizer creates a Stabilizer. Out of range settings are clamped:
// WindowSize to at least 1, RequiredFraction to 0.5 when outside (0,1],
// negative durations to zero.
func NewStabilizer(config StabilizerConfig) *Stabilizer {
	if config.WindowSize < 1 {
		config.WindowSize = 1
	}
	if config.RequiredFraction <= 0 || config.RequiredFraction > 1 {
		config.RequiredFraction = 0.5
	}
	if config.MinConfirm < 0 {
		config.MinConfirm = 0
	}
	if config.Cooldown < 0 {
		config.Cooldown = 0
	}
	if config.Actions == nil {
		config.Actions = ActionMap{}
	} else {
		config.Actions = config.Actions.Clone()
	}

	return &Stabilizer{
		config:    config,
		required:  RequiredVotes(config.WindowSize, config.RequiredFraction),
		window:    NewVoteWindow(config.WindowSize),
		cooldowns: NewCooldownTable(),
	}
}

// Observe feeds one classification result into the vote. It returns a
// ConfirmedEvent when a new label has held an actionable majority for at
// least MinConfirm, and nil otherwise.
func (s *Stabilizer) Observe(result Result, now time.Time) *ConfirmedEvent {
	s.window.Push(result)

	vote, ok := s.window.Majority()
	if !ok || vote.Count < s.required {
		s.confirmed = ConfirmedState{}
		s.candidate = nil
		return nil
	}

	if vote.Label == s.confirmed.Label {
		s.candidate = nil
		return nil
	}

	if s.candidate == nil || s.candidate.label != vote.Label {
		s.candidate = &candidate{label: vote.Label, since: now}
	}

	if now.Sub(s.candidate.since) < s.config.MinConfirm {
		return nil
	}

	s.confirmed = ConfirmedState{Label: vote.Label, Since: s.candidate.since}
	s.candidate = nil

	return &ConfirmedEvent{
		Label:     vote.Label,
		Score:     vote.Score,
		Timestamp: now,
	}
}

// Dispatch looks up the action bound to a confirmed event and fires it unless
// the same action fired less than Cooldown ago. Suppressed events have no
// side effect. Cooldowns are tracked per action, so two labels bound to the
// same action share one clock.
func (s *Stabilizer) Dispatch(event ConfirmedEvent, now time.Time) *ActionFired {
	action := s.config.Actions[event.Label]
	if action == "" {
		return nil
	}
	if !s.cooldowns.Ready(action, now, s.config.Cooldown) {
		return nil
	}

	s.cooldowns.Record(action, now)
	return &ActionFired{
		Action:    action,
		Label:     event.Label,
		Score:     event.Score,
		Timestamp: now,
	}
}

// HandLost clears the vote window and confirmation state. Cooldowns persist.
func (s *Stabilizer) HandLost() {
	s.window.Reset()
	s.candidate = nil
	s.confirmed = ConfirmedState{}
}

// Reset is the operator reset. It clears the same state as HandLost.
func (s *Stabilizer) Reset() {
	s.HandLost()
}

// Confirmed returns the currently confirmed state.
func (s *Stabilizer) Confirmed() ConfirmedState {
	return s.confirmed
}

// Candidate returns the label waiting for confirmation, if any.
func (s *Stabilizer) Candidate() (Label, time.Time, bool) {
	if s.candidate == nil {
		return None, time.Time{}, false
	}
	return s.candidate.label, s.candidate.since, true
}

// Window returns a copy of the vote window, oldest first.
func (s *Stabilizer) Window() []Result {
	return s.window.Entries()
}

// Config returns the effective configuration after clamping.
func (s *Stabilizer) Config() StabilizerConfig {
	c := s.config
	c.Actions = s.config.Actions.Clone()
	return c
}

// SetActionMap replaces the label to action bindings. Cooldowns are kept.
func (s *Stabilizer) SetActionMap(actions ActionMap) {
	if actions == nil {
		actions = ActionMap{}
	}
	s.config.Actions = actions.Clone()
}
