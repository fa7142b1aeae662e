package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// motionBlurSize is the Gaussian kernel applied before differencing.
	motionBlurSize = 21
	// motionPixelDelta is the grey-level change that counts a pixel as moved.
	motionPixelDelta = 25
)

// DefaultMotionFraction is the share of moved pixels that wakes the pipeline.
const DefaultMotionFraction = 0.01

// MotionGate decides whether a frame differs enough from the previous one to
// be worth running landmark detection on. It is only consulted while no hand
// is tracked.
type MotionGate struct {
	mu       sync.Mutex
	fraction float64
	prev     gocv.Mat
	primed   bool
}

// NewMotionGate creates a gate that opens when more than fraction (0..1) of
// the pixels change. A non-positive fraction uses DefaultMotionFraction.
func NewMotionGate(fraction float64) *MotionGate {
	if fraction <= 0 {
		fraction = DefaultMotionFraction
	}
	return &MotionGate{fraction: fraction, prev: gocv.NewMat()}
}

// Fraction returns the share of pixels that must change.
func (g *MotionGate) Fraction() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fraction
}

// Open compares frame with the previous one and reports whether it moved,
// along with the changed fraction. The first frame after creation or Reset
// always opens the gate so a hand already in view is not missed.
func (g *MotionGate) Open(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: motionBlurSize, Y: motionBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.primed {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return true, 1
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)
	gocv.Threshold(diff, &diff, motionPixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols())
	blurred.CopyTo(&g.prev)

	return changed > g.fraction, changed
}

// Reset forgets the previous frame.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
}

// Close releases the stored frame.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prev.Close()
	g.prev = gocv.NewMat()
	g.primed = false
}
