package detector

import "gocv.io/x/gocv"

// Detector is the opaque landmark provider. Implementations wrap a
// hand-pose model and report the hands found in a video frame.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands the model reports. Only the
	// first hand is ever classified.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config tuned for single-hand control.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// SelectHand picks the hand to classify from a detection result.
// The second return value is false when no hand was detected.
func SelectHand(hands []HandLandmarks) (*HandLandmarks, bool) {
	if len(hands) == 0 {
		return nil, false
	}
	return &hands[0], true
}
