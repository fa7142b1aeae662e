package gesture

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func fist(score float64) Result  { return Result{Label: Fist, Score: score} }
func open(score float64) Result  { return Result{Label: OpenHand, Score: score} }
func point(score float64) Result { return Result{Label: Point, Score: score} }

func TestRequiredVotes(t *testing.T) {
	tests := []struct {
		size     int
		fraction float64
		want     int
	}{
		{5, 0.5, 3},
		{5, 0.6, 3},
		{4, 0.5, 2},
		{7, 0.6, 5},
		{10, 0.3, 3},
		{1, 0.5, 1},
		{3, 0.01, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RequiredVotes(tt.size, tt.fraction), "size=%d fraction=%v", tt.size, tt.fraction)
	}
}

func TestVoteWindow(t *testing.T) {
	t.Run("never exceeds its size", func(t *testing.T) {
		w := NewVoteWindow(3)
		for i := 0; i < 10; i++ {
			w.Push(Result{Label: Fist, Score: float64(i)})
			assert.LessOrEqual(t, w.Len(), 3)
		}
		want := []Result{fist(7), fist(8), fist(9)}
		if diff := cmp.Diff(want, w.Entries()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("size below one is clamped", func(t *testing.T) {
		w := NewVoteWindow(0)
		w.Push(fist(1))
		w.Push(open(1))
		assert.Equal(t, 1, w.Size())
		assert.Equal(t, []Result{open(1)}, w.Entries())
	})

	t.Run("none and unknown never win", func(t *testing.T) {
		w := NewVoteWindow(5)
		w.Push(NoHand)
		w.Push(Result{Label: Unknown, Score: MinScore})
		w.Push(Result{Label: Unknown, Score: MinScore})
		w.Push(point(0.9))

		v, ok := w.Majority()
		require.True(t, ok)
		assert.Equal(t, Point, v.Label)
		assert.Equal(t, 1, v.Count)
	})

	t.Run("empty or all unknown has no majority", func(t *testing.T) {
		w := NewVoteWindow(3)
		_, ok := w.Majority()
		assert.False(t, ok)

		w.Push(Result{Label: Unknown, Score: MinScore})
		_, ok = w.Majority()
		assert.False(t, ok)
	})

	t.Run("tie goes to the label seen first", func(t *testing.T) {
		w := NewVoteWindow(4)
		w.Push(point(1))
		w.Push(fist(1))
		w.Push(fist(1))
		w.Push(point(1))

		v, ok := w.Majority()
		require.True(t, ok)
		assert.Equal(t, Point, v.Label)
		assert.Equal(t, 2, v.Count)
	})

	t.Run("majority is deterministic", func(t *testing.T) {
		seq := []Result{open(1), fist(1), open(1), point(1), fist(1)}
		var first Vote
		for i := 0; i < 20; i++ {
			w := NewVoteWindow(5)
			for _, r := range seq {
				w.Push(r)
			}
			v, _ := w.Majority()
			if i == 0 {
				first = v
				continue
			}
			assert.Equal(t, first, v)
		}
		assert.Equal(t, OpenHand, first.Label)
	})

	t.Run("score is the mean of the winner's entries", func(t *testing.T) {
		w := NewVoteWindow(5)
		w.Push(fist(0.4))
		w.Push(open(1))
		w.Push(fist(0.6))
		w.Push(fist(0.8))

		v, ok := w.Majority()
		require.True(t, ok)
		assert.Equal(t, Fist, v.Label)
		assert.InDelta(t, 0.6, v.Score, 1e-9)
	})
}

func TestNewStabilizer_Clamps(t *testing.T) {
	s := NewStabilizer(StabilizerConfig{
		WindowSize:       -3,
		RequiredFraction: 4,
		MinConfirm:       -time.Second,
		Cooldown:         -time.Second,
	})

	cfg := s.Config()
	assert.Equal(t, 1, cfg.WindowSize)
	assert.Equal(t, 0.5, cfg.RequiredFraction)
	assert.Equal(t, time.Duration(0), cfg.MinConfirm)
	assert.Equal(t, time.Duration(0), cfg.Cooldown)
	assert.NotNil(t, cfg.Actions)
}

// singleFrame returns a stabilizer where one frame is a majority so tests
// can focus on debounce timing.
func singleFrame(minConfirm time.Duration) *Stabilizer {
	return NewStabilizer(StabilizerConfig{
		WindowSize:       1,
		RequiredFraction: 1,
		MinConfirm:       minConfirm,
		Cooldown:         1200 * time.Millisecond,
		Actions:          DefaultActionMap(),
	})
}

func TestStabilizer_Debounce(t *testing.T) {
	t.Run("candidate held for 200ms never confirms", func(t *testing.T) {
		s := singleFrame(300 * time.Millisecond)

		for ms := 0; ms <= 200; ms += 50 {
			assert.Nil(t, s.Observe(fist(0.5), at(ms)), "t=%dms", ms)
		}
		assert.Nil(t, s.Observe(open(1), at(250)))
		assert.Equal(t, None, s.Confirmed().Label)
	})

	t.Run("candidate held for 350ms confirms once at 300ms", func(t *testing.T) {
		s := singleFrame(300 * time.Millisecond)

		var events []ConfirmedEvent
		for ms := 0; ms <= 350; ms += 50 {
			if ev := s.Observe(fist(0.5), at(ms)); ev != nil {
				events = append(events, *ev)
			}
		}

		want := []ConfirmedEvent{{Label: Fist, Score: 0.5, Timestamp: at(300)}}
		if diff := cmp.Diff(want, events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, ConfirmedState{Label: Fist, Since: at(0)}, s.Confirmed())
	})

	t.Run("first leading tick does not confirm", func(t *testing.T) {
		s := singleFrame(300 * time.Millisecond)
		assert.Nil(t, s.Observe(point(1), at(0)))

		label, since, ok := s.Candidate()
		require.True(t, ok)
		assert.Equal(t, Point, label)
		assert.Equal(t, at(0), since)
	})

	t.Run("zero min confirm confirms immediately", func(t *testing.T) {
		s := singleFrame(0)
		ev := s.Observe(point(1), at(0))
		require.NotNil(t, ev)
		assert.Equal(t, Point, ev.Label)
	})

	t.Run("label change restarts the timer", func(t *testing.T) {
		s := singleFrame(300 * time.Millisecond)

		assert.Nil(t, s.Observe(fist(1), at(0)))
		assert.Nil(t, s.Observe(fist(1), at(200)))
		assert.Nil(t, s.Observe(open(1), at(250)))
		assert.Nil(t, s.Observe(fist(1), at(300)))
		assert.Nil(t, s.Observe(fist(1), at(500)))

		ev := s.Observe(fist(1), at(600))
		require.NotNil(t, ev)
		assert.Equal(t, Fist, ev.Label)
	})

	t.Run("same candidate keeps its timer", func(t *testing.T) {
		s := NewStabilizer(StabilizerConfig{
			WindowSize:       3,
			RequiredFraction: 0.5,
			MinConfirm:       300 * time.Millisecond,
		})

		// A stray unknown frame keeps fist as the leading candidate.
		assert.Nil(t, s.Observe(fist(1), at(0)))
		assert.Nil(t, s.Observe(fist(1), at(100)))
		assert.Nil(t, s.Observe(Result{Label: Unknown, Score: MinScore}, at(200)))
		ev := s.Observe(fist(1), at(400))
		require.NotNil(t, ev)
		assert.Equal(t, at(400), ev.Timestamp)
	})
}

func TestStabilizer_Majority(t *testing.T) {
	t.Run("below required count is not actionable", func(t *testing.T) {
		s := NewStabilizer(StabilizerConfig{WindowSize: 5, RequiredFraction: 0.5})

		assert.Nil(t, s.Observe(fist(1), at(0)))
		assert.Nil(t, s.Observe(fist(1), at(10)))
		_, _, ok := s.Candidate()
		assert.False(t, ok, "two of five votes must not start a candidate")

		ev := s.Observe(fist(1), at(20))
		require.NotNil(t, ev, "third vote reaches ceil(5*0.5) with zero min confirm")
		assert.Equal(t, Fist, ev.Label)
	})

	t.Run("confirmed label reverts to none without a majority", func(t *testing.T) {
		s := singleFrame(0)
		require.NotNil(t, s.Observe(fist(1), at(0)))

		assert.Nil(t, s.Observe(Result{Label: Unknown, Score: MinScore}, at(10)))
		assert.Equal(t, ConfirmedState{}, s.Confirmed())

		// After the revert the same label can be confirmed again.
		ev := s.Observe(fist(1), at(20))
		require.NotNil(t, ev)
		assert.Equal(t, Fist, ev.Label)
	})

	t.Run("sustained label emits only once", func(t *testing.T) {
		s := singleFrame(0)
		count := 0
		for ms := 0; ms < 1000; ms += 33 {
			if s.Observe(open(1), at(ms)) != nil {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("averaged score is reported", func(t *testing.T) {
		s := NewStabilizer(StabilizerConfig{WindowSize: 3, RequiredFraction: 1})
		s.Observe(point(0.6), at(0))
		s.Observe(point(0.8), at(10))
		ev := s.Observe(point(1.0), at(20))
		require.NotNil(t, ev)
		assert.InDelta(t, 0.8, ev.Score, 1e-9)
	})
}

func TestStabilizer_HandLost(t *testing.T) {
	s := singleFrame(0)
	require.NotNil(t, s.Observe(fist(1), at(0)))
	require.Equal(t, Fist, s.Confirmed().Label)

	s.HandLost()

	assert.Equal(t, ConfirmedState{}, s.Confirmed())
	assert.Empty(t, s.Window())
	_, _, ok := s.Candidate()
	assert.False(t, ok)

	// Voting restarts from empty history.
	s.Observe(open(1), at(10))
	assert.Equal(t, []Result{open(1)}, s.Window())
}

func TestStabilizer_Dispatch(t *testing.T) {
	t.Run("shared action shares one cooldown", func(t *testing.T) {
		s := NewStabilizer(StabilizerConfig{
			WindowSize: 1,
			Cooldown:   1200 * time.Millisecond,
			Actions:    ActionMap{Fist: "play", OpenHand: "play"},
		})

		first := s.Dispatch(ConfirmedEvent{Label: Fist, Score: 1, Timestamp: at(0)}, at(0))
		second := s.Dispatch(ConfirmedEvent{Label: OpenHand, Score: 1, Timestamp: at(100)}, at(100))
		third := s.Dispatch(ConfirmedEvent{Label: Fist, Score: 1, Timestamp: at(1300)}, at(1300))

		require.NotNil(t, first)
		assert.Nil(t, second)
		require.NotNil(t, third)

		want := ActionFired{Action: "play", Label: Fist, Score: 1, Timestamp: at(1300)}
		if diff := cmp.Diff(want, *third); diff != "" {
			t.Errorf("fired mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("suppressed attempt does not extend the cooldown", func(t *testing.T) {
		s := NewStabilizer(StabilizerConfig{WindowSize: 1, Cooldown: time.Second, Actions: DefaultActionMap()})

		require.NotNil(t, s.Dispatch(ConfirmedEvent{Label: Point}, at(0)))
		assert.Nil(t, s.Dispatch(ConfirmedEvent{Label: Point}, at(900)))
		assert.NotNil(t, s.Dispatch(ConfirmedEvent{Label: Point}, at(1000)))
	})

	t.Run("different actions have separate cooldowns", func(t *testing.T) {
		s := NewStabilizer(DefaultStabilizerConfig())

		assert.NotNil(t, s.Dispatch(ConfirmedEvent{Label: Fist}, at(0)))
		assert.NotNil(t, s.Dispatch(ConfirmedEvent{Label: Point}, at(10)))
	})

	t.Run("unmapped label fires nothing", func(t *testing.T) {
		s := NewStabilizer(StabilizerConfig{WindowSize: 1, Actions: ActionMap{Fist: "prev"}})
		assert.Nil(t, s.Dispatch(ConfirmedEvent{Label: OpenHand}, at(0)))
	})

	t.Run("action map can be replaced", func(t *testing.T) {
		s := NewStabilizer(DefaultStabilizerConfig())
		s.SetActionMap(ActionMap{Fist: "mute"})

		fired := s.Dispatch(ConfirmedEvent{Label: Fist}, at(0))
		require.NotNil(t, fired)
		assert.Equal(t, "mute", fired.Action)
		assert.Nil(t, s.Dispatch(ConfirmedEvent{Label: Point}, at(0)))
	})

	t.Run("config actions are copied", func(t *testing.T) {
		actions := ActionMap{Fist: "prev"}
		s := NewStabilizer(StabilizerConfig{WindowSize: 1, Actions: actions})
		actions[Fist] = "changed"

		fired := s.Dispatch(ConfirmedEvent{Label: Fist}, at(0))
		require.NotNil(t, fired)
		assert.Equal(t, "prev", fired.Action)
	})
}

func TestCooldownTable_Bounded(t *testing.T) {
	c := NewCooldownTable()
	for i := 0; i <= MaxCooldownEntries; i++ {
		c.Record(string(rune('a'+i%26))+string(rune('A'+i/26)), at(i))
	}

	assert.Equal(t, MaxCooldownEntries, c.Len())
	_, ok := c.LastFired("aA")
	assert.False(t, ok, "oldest entry should have been pruned")

	last, ok := c.LastFired(string(rune('a'+MaxCooldownEntries%26)) + string(rune('A'+MaxCooldownEntries/26)))
	require.True(t, ok)
	assert.Equal(t, at(MaxCooldownEntries), last)
}
