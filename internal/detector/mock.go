package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results, either as a fixed
// answer or as a script of answers consumed one call at a time.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	script [][]HandLandmarks
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetScript queues per-call results. Once the script runs out Detect falls
// back to the hands set with SetHands.
func (m *MockDetector) SetScript(script [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = script
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// palmBase fills the wrist, thumb and knuckle points shared by the presets.
// Coordinates are normalized; at 640x480 the palm size is about 66px.
func palmBase() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: 0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.59, Y: 0.72, Z: 0.02}
	landmarks.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.70, Z: 0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.69, Z: 0.02}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68}
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70}

	return landmarks
}

// curl places a finger's joints folded back toward the palm.
func curl(h *HandLandmarks, mcp, pip, dip, tip int, tipPoint Point3D) {
	base := h.Points[mcp]
	h.Points[pip] = Point3D{X: base.X, Y: base.Y - 0.02, Z: -0.05}
	h.Points[dip] = Point3D{X: (base.X + tipPoint.X) / 2, Y: base.Y, Z: -0.04}
	h.Points[tip] = tipPoint
}

// extend places a finger's joints in a straight line from MCP to tip.
func extend(h *HandLandmarks, mcp, pip, dip, tip int, tipPoint Point3D) {
	base := h.Points[mcp]
	h.Points[pip] = Point3D{X: base.X + (tipPoint.X-base.X)/3, Y: base.Y + (tipPoint.Y-base.Y)/3}
	h.Points[dip] = Point3D{X: base.X + 2*(tipPoint.X-base.X)/3, Y: base.Y + 2*(tipPoint.Y-base.Y)/3}
	h.Points[tip] = tipPoint
}

// FistLandmarks returns a preset closed fist: every fingertip is folded
// back near the palm.
func FistLandmarks() HandLandmarks {
	h := palmBase()
	curl(&h, IndexMCP, IndexPIP, IndexDIP, IndexTip, Point3D{X: 0.54, Y: 0.74, Z: -0.02})
	curl(&h, MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip, Point3D{X: 0.50, Y: 0.73, Z: -0.02})
	curl(&h, RingMCP, RingPIP, RingDIP, RingTip, Point3D{X: 0.46, Y: 0.74, Z: -0.02})
	curl(&h, PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip, Point3D{X: 0.42, Y: 0.76, Z: -0.02})
	return h
}

// OpenPalmLandmarks returns a preset open hand with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	h := palmBase()
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}
	extend(&h, IndexMCP, IndexPIP, IndexDIP, IndexTip, Point3D{X: 0.58, Y: 0.35})
	extend(&h, MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip, Point3D{X: 0.50, Y: 0.28})
	extend(&h, RingMCP, RingPIP, RingDIP, RingTip, Point3D{X: 0.42, Y: 0.35})
	extend(&h, PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip, Point3D{X: 0.34, Y: 0.42})
	return h
}

// PointLandmarks returns a preset pointing hand: the index finger is
// extended while the other fingers stay curled.
func PointLandmarks() HandLandmarks {
	h := palmBase()
	extend(&h, IndexMCP, IndexPIP, IndexDIP, IndexTip, Point3D{X: 0.58, Y: 0.40})
	curl(&h, MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip, Point3D{X: 0.50, Y: 0.73, Z: -0.02})
	curl(&h, RingMCP, RingPIP, RingDIP, RingTip, Point3D{X: 0.46, Y: 0.74, Z: -0.02})
	curl(&h, PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip, Point3D{X: 0.43, Y: 0.76, Z: -0.02})
	return h
}
