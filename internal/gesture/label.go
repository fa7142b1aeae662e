// Package gesture classifies hand landmarks into a small set of static
// gestures and stabilizes the per-frame labels into confirmed events.
package gesture

import (
	"fmt"
	"time"
)

// Label is the closed set of gestures a frame can be classified as.
type Label int

const (
	// None means no usable hand was present in the frame.
	None Label = iota
	// Unknown means a hand was present but matched no rule.
	Unknown
	// Fist is a closed hand with all fingertips folded toward the wrist.
	Fist
	// OpenHand is a flat hand with all fingers spread.
	OpenHand
	// Point is a hand with only the index finger extended.
	Point
)

var labelNames = [...]string{
	None:     "none",
	Unknown:  "unknown",
	Fist:     "fist",
	OpenHand: "open_hand",
	Point:    "point",
}

// Labels lists every label in declaration order.
var Labels = []Label{None, Unknown, Fist, OpenHand, Point}

// String returns the wire name of the label.
func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("label(%d)", int(l))
	}
	return labelNames[l]
}

// Actionable reports whether the label can take part in a vote.
func (l Label) Actionable() bool {
	return l == Fist || l == OpenHand || l == Point
}

// ParseLabel converts a wire name back into a Label.
func ParseLabel(s string) (Label, error) {
	for i, name := range labelNames {
		if name == s {
			return Label(i), nil
		}
	}
	return None, fmt.Errorf("unknown gesture label %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	if l < 0 || int(l) >= len(labelNames) {
		return nil, fmt.Errorf("invalid gesture label %d", int(l))
	}
	return []byte(labelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Result is the classifier's answer for a single frame.
type Result struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// NoHand is the result reported for frames without a usable hand.
var NoHand = Result{Label: None}

// ConfirmedEvent is emitted when a gesture has held the vote long enough.
type ConfirmedEvent struct {
	Label     Label     `json:"label"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionFired is emitted when a confirmed gesture passes its action cooldown.
type ActionFired struct {
	Action    string    `json:"action"`
	Label     Label     `json:"label"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionMap binds gesture labels to action names.
type ActionMap map[Label]string

// DefaultActionMap returns the media-control bindings.
func DefaultActionMap() ActionMap {
	return ActionMap{
		Fist:     "prev",
		OpenHand: "play",
		Point:    "next",
	}
}

// Clone returns an independent copy of the map.
func (m ActionMap) Clone() ActionMap {
	out := make(ActionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
