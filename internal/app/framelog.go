package app

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// MaxFrameRecords bounds the in-memory frame log. The oldest records are
// dropped first.
const MaxFrameRecords = 5000

// FPSWindow is the number of detection durations the rolling FPS is averaged over.
const FPSWindow = 30

// FrameRecord is the per-frame classification trace.
type FrameRecord struct {
	FrameIndex  int64               `json:"frameIndex"`
	TimestampMs int64               `json:"timestampMs"`
	Width       float64             `json:"width"`
	Height      float64             `json:"height"`
	Label       gesture.Label       `json:"label"`
	Score       float64             `json:"score"`
	Confirmed   gesture.Label       `json:"confirmed"`
	Action      string              `json:"action,omitempty"`
	FPS         float64             `json:"fps"`
	Landmarks   []detector.Landmark `json:"landmarks"`
}

// ExportMeta describes an exported frame log.
type ExportMeta struct {
	SessionID   string    `json:"sessionId"`
	ExportedAt  time.Time `json:"exportedAt"`
	RecordCount int       `json:"recordCount"`
	WindowSize  int       `json:"windowSize"`
	MinConfirm  string    `json:"minConfirm"`
	Cooldown    string    `json:"cooldown"`
}

// Export is the JSON payload written by the log export. internal/replay
// reads it back.
type Export struct {
	Meta    ExportMeta    `json:"meta"`
	Records []FrameRecord `json:"records"`
}

// FrameLog is a bounded ring of frame records, safe for concurrent use.
type FrameLog struct {
	mu      sync.RWMutex
	records []FrameRecord
	start   int
	limit   int
	next    int64
}

// NewFrameLog creates a FrameLog holding at most limit records.
// A non-positive limit uses MaxFrameRecords.
func NewFrameLog(limit int) *FrameLog {
	if limit <= 0 {
		limit = MaxFrameRecords
	}
	return &FrameLog{limit: limit}
}

// Append stores rec, assigning the next frame index.
func (l *FrameLog) Append(rec FrameRecord) FrameRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.FrameIndex = l.next
	l.next++

	if len(l.records) < l.limit {
		l.records = append(l.records, rec)
		return rec
	}
	l.records[l.start] = rec
	l.start = (l.start + 1) % l.limit
	return rec
}

// Records returns the stored records, oldest first.
func (l *FrameLog) Records() []FrameRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]FrameRecord, 0, len(l.records))
	out = append(out, l.records[l.start:]...)
	out = append(out, l.records[:l.start]...)
	return out
}

// Len returns the number of stored records.
func (l *FrameLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Clear drops every record. Frame indices keep counting.
func (l *FrameLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.start = 0
}

// FPSMeter reports inference frames per second averaged over the last
// FPSWindow detection durations.
type FPSMeter struct {
	durations []time.Duration
	pos       int
	sum       time.Duration
}

// Observe records one detection duration and returns the rolling FPS.
func (m *FPSMeter) Observe(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}

	if len(m.durations) < FPSWindow {
		m.durations = append(m.durations, d)
	} else {
		m.sum -= m.durations[m.pos]
		m.durations[m.pos] = d
		m.pos = (m.pos + 1) % FPSWindow
	}
	m.sum += d
	return m.FPS()
}

// FPS returns the rolling value without recording a sample.
func (m *FPSMeter) FPS() float64 {
	if m.sum <= 0 {
		return 0
	}
	return float64(len(m.durations)) / m.sum.Seconds()
}
