// Package replay runs a recorded frame log back through a fresh gesture
// engine. It reads the payload written by the frame log export, and also the
// browser logger's export, which has no timestamps or frame size.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Default reference frame used when a record carries no size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// DefaultFrameInterval spaces records that carry no time at all.
const DefaultFrameInterval = 66 * time.Millisecond

// ErrNoRecords is returned for a session without any records.
var ErrNoRecords = errors.New("session has no records")

// Record is one recorded frame.
type Record struct {
	FrameIndex  int64               `json:"frameIndex"`
	TimestampMs int64               `json:"timestampMs"`
	RecordedAt  string              `json:"recorded_at"`
	Width       float64             `json:"width"`
	Height      float64             `json:"height"`
	Landmarks   []detector.Landmark `json:"landmarks"`
}

// Session is a decoded export payload.
type Session struct {
	Meta    json.RawMessage `json:"meta"`
	Records []Record        `json:"records"`
}

// Read decodes a session from r.
func Read(r io.Reader) (*Session, error) {
	var s Session
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if len(s.Records) == 0 {
		return nil, ErrNoRecords
	}
	return &s, nil
}

// ReadFile decodes the session stored at path.
func ReadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Options control a replay.
type Options struct {
	Classifier gesture.ClassifierConfig
	Stabilizer gesture.StabilizerConfig
	// Width and Height are used for records without a frame size.
	Width, Height float64
	// Start and Interval place records that carry no time.
	Start    time.Time
	Interval time.Duration
	// OnOutcome, if set, sees every frame outcome in order.
	OnOutcome func(Record, gesture.Outcome)
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Interval <= 0 {
		o.Interval = DefaultFrameInterval
	}
	if o.Start.IsZero() {
		o.Start = time.Unix(0, 0).UTC()
	}
	if o.Stabilizer.Actions == nil {
		o.Stabilizer.Actions = gesture.DefaultActionMap()
	}
	return o
}

// Summary is the result of a replay.
type Summary struct {
	Frames     int
	HandFrames int
	Labels     map[gesture.Label]int
	Confirmed  []gesture.ConfirmedEvent
	Fired      []gesture.ActionFired
	Start, End time.Time
}

// Duration is the time spanned by the replayed records.
func (s Summary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Run replays every record of s in order.
func Run(s *Session, opts Options) Summary {
	opts = opts.withDefaults()
	engine := gesture.NewEngine(opts.Classifier, opts.Stabilizer)

	sum := Summary{Labels: make(map[gesture.Label]int)}
	for i, rec := range s.Records {
		now := recordTime(rec, i, opts)
		if i == 0 {
			sum.Start = now
		}
		sum.End = now

		frame := detector.Frame{Landmarks: rec.Landmarks, Width: rec.Width, Height: rec.Height}
		if frame.Width <= 0 || frame.Height <= 0 {
			frame.Width, frame.Height = opts.Width, opts.Height
		}

		out := engine.Process(frame, now)
		sum.Frames++
		if out.HandPresent {
			sum.HandFrames++
		}
		sum.Labels[out.Result.Label]++
		if out.Confirmed != nil {
			sum.Confirmed = append(sum.Confirmed, *out.Confirmed)
		}
		if out.Fired != nil {
			sum.Fired = append(sum.Fired, *out.Fired)
		}
		if opts.OnOutcome != nil {
			opts.OnOutcome(rec, out)
		}
	}
	return sum
}

// recordTime picks the record's own timestamp, then its recorded_at string,
// then a synthetic time from its position.
func recordTime(rec Record, i int, opts Options) time.Time {
	if rec.TimestampMs > 0 {
		return time.UnixMilli(rec.TimestampMs).UTC()
	}
	if rec.RecordedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, rec.RecordedAt); err == nil {
			return t.UTC()
		}
	}
	return opts.Start.Add(time.Duration(i) * opts.Interval)
}
