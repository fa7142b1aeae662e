// Package detector provides hand detection interfaces and the landmark model
// consumed by gesture classification.
package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// PixelSpaceThreshold is the raw coordinate above which a frame is treated
// as already being in pixel units.
const PixelSpaceThreshold = 1.5

// FingerTips lists the four non-thumb fingertip indices.
var FingerTips = [4]int{IndexTip, MiddleTip, RingTip, PinkyTip}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// ToFrame converts detector output into a Frame with the given reference size.
func (h *HandLandmarks) ToFrame(width, height float64) Frame {
	if h == nil {
		return Frame{Width: width, Height: height}
	}

	landmarks := make([]Landmark, NumLandmarks)
	for i, p := range h.Points {
		landmarks[i] = Landmark{X: p.X, Y: p.Y, Z: p.Z, Score: 1}
	}

	return Frame{Landmarks: landmarks, Width: width, Height: height}
}

// Landmark is one tracked point of a hand. X and Y are either normalized to
// [0,1] or already in pixels; every landmark of a frame uses the same scale.
type Landmark struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Score float64 `json:"score"`
}

// UnmarshalJSON accepts either an object ({"x":..,"y":..,"z":..,"score":..},
// with "visibility" as an alias for score) or an array [x, y] / [x, y, z].
// A missing score defaults to 1.
func (l *Landmark) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var coords []float64
		if err := json.Unmarshal(data, &coords); err != nil {
			return fmt.Errorf("decode landmark array: %w", err)
		}
		if len(coords) < 2 {
			return fmt.Errorf("landmark array needs at least 2 values, got %d", len(coords))
		}
		*l = Landmark{X: coords[0], Y: coords[1], Score: 1}
		if len(coords) > 2 {
			l.Z = coords[2]
		}
		return nil
	}

	var raw struct {
		X          float64  `json:"x"`
		Y          float64  `json:"y"`
		Z          float64  `json:"z"`
		Score      *float64 `json:"score"`
		Visibility *float64 `json:"visibility"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode landmark: %w", err)
	}

	*l = Landmark{X: raw.X, Y: raw.Y, Z: raw.Z, Score: 1}
	switch {
	case raw.Score != nil:
		l.Score = *raw.Score
	case raw.Visibility != nil:
		l.Score = *raw.Visibility
	}
	return nil
}

// Frame is one hand's landmarks at a single instant plus the pixel size of
// the reference frame. A Frame without landmarks means no hand was detected.
type Frame struct {
	Landmarks []Landmark `json:"landmarks"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
}

// HasHand reports whether the frame carries any landmarks at all.
func (f Frame) HasHand() bool {
	return len(f.Landmarks) > 0
}

// IsPixelSpace reports whether the frame's coordinates are already in pixels.
// The decision is made once for the whole frame so scales never mix.
func (f Frame) IsPixelSpace() bool {
	for _, l := range f.Landmarks {
		if l.X > PixelSpaceThreshold || l.Y > PixelSpaceThreshold {
			return true
		}
	}
	return false
}

// Pixels returns the landmarks projected to pixel space.
func (f Frame) Pixels() []Landmark {
	out := make([]Landmark, len(f.Landmarks))
	copy(out, f.Landmarks)

	if f.IsPixelSpace() {
		return out
	}

	for i := range out {
		out[i].X *= f.Width
		out[i].Y *= f.Height
	}
	return out
}

// Finite reports whether every coordinate in the frame is a finite number.
func (f Frame) Finite() bool {
	for _, l := range f.Landmarks {
		if !isFinite(l.X) || !isFinite(l.Y) || !isFinite(l.Z) {
			return false
		}
	}
	return true
}

// Scale returns a copy of the frame with every coordinate and the reference
// size multiplied by k.
func (f Frame) Scale(k float64) Frame {
	out := Frame{
		Landmarks: make([]Landmark, len(f.Landmarks)),
		Width:     f.Width * k,
		Height:    f.Height * k,
	}
	for i, l := range f.Landmarks {
		out.Landmarks[i] = Landmark{X: l.X * k, Y: l.Y * k, Z: l.Z * k, Score: l.Score}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
