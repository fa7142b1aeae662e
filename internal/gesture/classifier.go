package gesture

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/detector"
)

// Score bounds for a positive classification.
const (
	MinScore = 0.2
	MaxScore = 1.0
)

// minPalmSize keeps ratios finite when the wrist and knuckles coincide.
const minPalmSize = 1.0

// ClassifierConfig holds the ratio thresholds used by Classify. All ratios
// are relative to the palm size so the rules are independent of image scale.
type ClassifierConfig struct {
	// FistThreshold is the tip spread below which the hand is a fist.
	FistThreshold float64

	// OpenThreshold is the tip spread above which the hand is open.
	OpenThreshold float64

	// PointSepThreshold is the minimum index-to-middle tip separation for Point.
	PointSepThreshold float64

	// IndexExtendedThreshold is the minimum index tip to knuckle distance for Point.
	IndexExtendedThreshold float64
}

// DefaultClassifierConfig returns the standard thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		FistThreshold:          0.85,
		OpenThreshold:          1.4,
		PointSepThreshold:      0.95,
		IndexExtendedThreshold: 0.8,
	}
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	d := DefaultClassifierConfig()
	if c.FistThreshold <= 0 {
		c.FistThreshold = d.FistThreshold
	}
	if c.OpenThreshold <= 0 {
		c.OpenThreshold = d.OpenThreshold
	}
	if c.PointSepThreshold <= 0 {
		c.PointSepThreshold = d.PointSepThreshold
	}
	if c.IndexExtendedThreshold <= 0 {
		c.IndexExtendedThreshold = d.IndexExtendedThreshold
	}
	return c
}

// Classify maps one frame of landmarks to a gesture label and confidence.
// Frames without exactly 21 finite landmarks classify as None with score 0,
// as do normalized frames without a positive reference size.
func Classify(frame detector.Frame, cfg ClassifierConfig) Result {
	if len(frame.Landmarks) != detector.NumLandmarks || !frame.Finite() {
		return NoHand
	}
	if !frame.IsPixelSpace() && (frame.Width <= 0 || frame.Height <= 0) {
		return NoHand
	}
	cfg = cfg.withDefaults()

	pts := frame.Pixels()
	vec := func(i int) r2.Vec { return r2.Vec{X: pts[i].X, Y: pts[i].Y} }
	dist := func(a, b int) float64 { return r2.Norm(r2.Sub(vec(a), vec(b))) }

	palm := (dist(detector.Wrist, detector.IndexMCP) + dist(detector.Wrist, detector.MiddleMCP)) / 2
	palm = math.Max(minPalmSize, palm)

	spreads := make([]float64, len(detector.FingerTips))
	for i, tip := range detector.FingerTips {
		spreads[i] = dist(tip, detector.Wrist)
	}
	tipSpread := stat.Mean(spreads, nil) / palm

	switch {
	case tipSpread < cfg.FistThreshold:
		return Result{Label: Fist, Score: clampScore(1 - tipSpread/cfg.FistThreshold)}
	case tipSpread > cfg.OpenThreshold:
		return Result{Label: OpenHand, Score: clampScore(tipSpread / cfg.OpenThreshold)}
	}

	sep := dist(detector.IndexTip, detector.MiddleTip)
	extended := dist(detector.IndexTip, detector.IndexMCP)
	if sep/palm > cfg.PointSepThreshold && extended/palm > cfg.IndexExtendedThreshold {
		return Result{Label: Point, Score: clampScore(sep / (palm * cfg.PointSepThreshold))}
	}

	return Result{Label: Unknown, Score: MinScore}
}

func clampScore(s float64) float64 {
	return math.Min(MaxScore, math.Max(MinScore, s))
}
