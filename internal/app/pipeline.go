package app

import (
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// runPipeline is the main detection loop that processes frames from the camera.
//
// Pipeline logic:
// 1. Start in idle mode (IdleFPS)
// 2. Detect hands on every tick, classify the first one through the engine.
//    While idle, frames without motion skip the detector.
// 3. A hand in view switches to active mode (ActiveFPS)
// 4. After IdleTimeout without a hand, switch back to idle mode
// 5. Fired actions are queued for the plugin worker
func (a *App) runPipeline(stop <-chan struct{}) {
	fps := IdleFPS
	ticker := a.clock.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			if _, err := a.Step(); err != nil {
				log.Printf("Frame skipped: %v", err)
			}

			if want := a.targetFPS(); want != fps {
				fps = want
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

func (a *App) targetFPS() int {
	if a.IsActive() {
		return ActiveFPS
	}
	return IdleFPS
}

// Step reads, detects and classifies one frame. A camera or detector error
// leaves the gesture state untouched.
func (a *App) Step() (gesture.Outcome, error) {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	frame, err := a.camera.ReadFrame()
	if err != nil {
		return gesture.Outcome{}, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	width, height := frameSize(frame, a.camera)

	if a.motion != nil && !a.IsActive() {
		if moved, _ := a.motion.Open(frame); !moved {
			return a.processFrame(detector.Frame{Width: float64(width), Height: float64(height)}, a.fps.FPS()), nil
		}
	}

	det := a.Detector()
	if det == nil {
		return gesture.Outcome{}, fmt.Errorf("no detector")
	}

	started := time.Now()
	hands, err := det.Detect(frame)
	if err != nil {
		return gesture.Outcome{}, fmt.Errorf("detect hands: %w", err)
	}
	fps := a.fps.Observe(time.Since(started))

	hand, _ := detector.SelectHand(hands)
	return a.processFrame(hand.ToFrame(float64(width), float64(height)), fps), nil
}

// frameSize is the size of the delivered frame. Devices may ignore the
// requested capture size, so the configured size is only a fallback.
func frameSize(frame *gocv.Mat, cam capture.Camera) (int, int) {
	if frame != nil && frame.Cols() > 0 && frame.Rows() > 0 {
		return frame.Cols(), frame.Rows()
	}
	return cam.Size()
}

// processFrame runs one landmark frame through the engine and fans the
// outcome out to the frame log, the event store, the action queue and
// subscribers.
func (a *App) processFrame(frame detector.Frame, fps float64) gesture.Outcome {
	now := a.clock.Now()
	out := a.engine.Process(frame, now)

	a.updateMode(out.HandPresent, now)

	rec := FrameRecord{
		TimestampMs: now.UnixMilli(),
		Width:       frame.Width,
		Height:      frame.Height,
		Label:       out.Result.Label,
		Score:       out.Result.Score,
		Confirmed:   a.engine.Confirmed().Label,
		FPS:         fps,
		Landmarks:   frame.Landmarks,
	}
	if out.Fired != nil {
		rec.Action = out.Fired.Action
	}
	a.frames.Append(rec)

	if out.Confirmed != nil {
		log.Printf("Gesture confirmed: %s (score: %.3f)", out.Confirmed.Label, out.Confirmed.Score)
	}
	a.recordEvents(out)
	if out.Fired != nil {
		a.enqueueAction(*out.Fired)
	}

	a.publish(out)
	return out
}

// updateMode switches between idle and active frame rates on hand presence.
func (a *App) updateMode(handPresent bool, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if handPresent {
		a.lastHandTime = now
		if !a.active {
			a.active = true
			a.camera.SetFPS(ActiveFPS)
			if a.motion != nil {
				a.motion.Reset()
			}
			log.Println("Switched to active mode")
		}
		return
	}

	if a.active && now.Sub(a.lastHandTime) > a.config.IdleTimeout {
		a.active = false
		a.camera.SetFPS(IdleFPS)
		log.Println("Switched to idle mode")
	}
}
