package gesture

import "math"

// VoteWindow is a bounded FIFO of recent classification results.
type VoteWindow struct {
	size    int
	entries []Result
}

// NewVoteWindow creates a window holding at most size results.
// Sizes below 1 are clamped to 1.
func NewVoteWindow(size int) *VoteWindow {
	if size < 1 {
		size = 1
	}
	return &VoteWindow{
		size:    size,
		entries: make([]Result, 0, size),
	}
}

// Push appends a result, evicting the oldest entry once the window is full.
func (w *VoteWindow) Push(r Result) {
	if len(w.entries) == w.size {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:w.size-1]
	}
	w.entries = append(w.entries, r)
}

// Len returns the number of results currently held.
func (w *VoteWindow) Len() int {
	return len(w.entries)
}

// Size returns the window capacity.
func (w *VoteWindow) Size() int {
	return w.size
}

// Reset drops every entry.
func (w *VoteWindow) Reset() {
	w.entries = w.entries[:0]
}

// Entries returns a copy of the window, oldest first.
func (w *VoteWindow) Entries() []Result {
	out := make([]Result, len(w.entries))
	copy(out, w.entries)
	return out
}

// Vote is the outcome of a majority count over the window.
type Vote struct {
	Label Label
	Count int
	Score float64
}

// Majority counts actionable labels in the window. The winner has the highest
// count; ties go to the label seen first when scanning oldest to newest. The
// score is the mean score of the winner's entries. ok is false when the
// window holds no actionable label.
func (w *VoteWindow) Majority() (v Vote, ok bool) {
	counts := make(map[Label]int, 3)
	sums := make(map[Label]float64, 3)
	var order []Label

	for _, r := range w.entries {
		if !r.Label.Actionable() {
			continue
		}
		if counts[r.Label] == 0 {
			order = append(order, r.Label)
		}
		counts[r.Label]++
		sums[r.Label] += r.Score
	}

	for _, label := range order {
		if counts[label] > v.Count {
			v = Vote{Label: label, Count: counts[label]}
		}
	}
	if v.Count == 0 {
		return Vote{}, false
	}

	v.Score = sums[v.Label] / float64(v.Count)
	return v, true
}

// RequiredVotes returns ceil(size*fraction), at least 1.
func RequiredVotes(size int, fraction float64) int {
	// The epsilon keeps products like 5*0.6 from rounding up to 4.
	n := int(math.Ceil(float64(size)*fraction - 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}
