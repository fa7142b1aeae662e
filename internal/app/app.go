// Package app wires the camera, the landmark detector and the gesture engine
// together and hands fired actions to plugins.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/timeutil"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no hand is in view.
	IdleFPS = 5
	// ActiveFPS is the frame rate while a hand is tracked.
	ActiveFPS = 15
	// DefaultIdleTimeout is how long without a hand before dropping back to IdleFPS.
	DefaultIdleTimeout = 2 * time.Second
	// actionQueueSize bounds fired actions waiting for a plugin.
	actionQueueSize = 32
)

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	PluginDir     string
	PluginName    string
	PluginTimeout time.Duration
	Capture       capture.Config
	Classifier    gesture.ClassifierConfig
	Stabilizer    gesture.StabilizerConfig
	IdleTimeout   time.Duration

	// MotionFraction gates detection while idle: frames with less than this
	// share of moved pixels skip the detector. Zero disables the gate.
	MotionFraction float64

	// Clock defaults to the wall clock.
	Clock timeutil.Clock

	// Camera and Detector replace the real devices when set.
	Camera   capture.Camera
	Detector detector.Detector
}

// route is where a label's action is sent.
type route struct {
	plugin string
	config json.RawMessage
}

// App is the main application that runs the gesture pipeline.
type App struct {
	config    Config
	clock     timeutil.Clock
	camera    capture.Camera
	detector  detector.Detector
	motion    *capture.MotionGate
	engine    *gesture.Engine
	pluginMgr *plugin.Manager
	dispatch  *plugin.Dispatcher
	frames    *FrameLog
	fps       FPSMeter
	sessionID string

	baseActions gesture.ActionMap
	routes      map[gesture.Label]route

	enabled      bool
	active       bool
	lastHandTime time.Time
	subscribers  map[int]func(gesture.Outcome)
	nextSubID    int

	mu     sync.RWMutex
	stepMu sync.Mutex

	// reloadMu guards routes and keeps them and the engine's action map
	// from one listing.
	reloadMu sync.Mutex

	stopCh  chan struct{}
	wg      sync.WaitGroup
	actions chan gesture.ActionFired
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Clock == nil {
		config.Clock = timeutil.RealClock{}
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.PluginName == "" {
		config.PluginName = "media"
	}
	if config.Stabilizer.Actions == nil {
		config.Stabilizer.Actions = gesture.DefaultActionMap()
	}

	pluginMgr := plugin.NewManager(config.PluginDir)

	a := &App{
		config:      config,
		clock:       config.Clock,
		camera:      config.Camera,
		detector:    config.Detector,
		engine:      gesture.NewEngine(config.Classifier, config.Stabilizer),
		pluginMgr:   pluginMgr,
		dispatch:    plugin.NewDispatcher(pluginMgr, plugin.NewExecutor(config.PluginTimeout)),
		frames:      NewFrameLog(MaxFrameRecords),
		sessionID:   uuid.NewString(),
		baseActions: config.Stabilizer.Actions.Clone(),
		routes:      make(map[gesture.Label]route),
		enabled:     true,
		subscribers: make(map[int]func(gesture.Outcome)),
		actions:     make(chan gesture.ActionFired, actionQueueSize),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.Capture)
	}
	if config.MotionFraction > 0 {
		a.motion = capture.NewMotionGate(config.MotionFraction)
	}

	if a.detector == nil {
		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	return a
}

// SessionID identifies this run in the event log.
func (a *App) SessionID() string {
	return a.sessionID
}

// SetEnabled enables or disables gesture detection. Disabling clears the
// vote so a stale gesture is not confirmed on re-enable.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if changed && !enabled {
		a.engine.Reset()
	}
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsActive reports whether the pipeline runs at ActiveFPS.
func (a *App) IsActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Engine returns the gesture engine.
func (a *App) Engine() *gesture.Engine {
	return a.engine
}

// FrameLog returns the per-frame classification log.
func (a *App) FrameLog() *FrameLog {
	return a.frames
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Reset clears the vote window and confirmation. Cooldowns are kept.
func (a *App) Reset() {
	a.engine.Reset()
	log.Println("Gesture state reset")
}

// Subscribe registers fn to receive every frame outcome. The returned
// function removes the subscription.
func (a *App) Subscribe(fn func(gesture.Outcome)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subscribers, id)
	}
}

func (a *App) publish(out gesture.Outcome) {
	a.mu.RLock()
	subs := make([]func(gesture.Outcome), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.mu.RUnlock()

	for _, fn := range subs {
		fn(out)
	}
}

// ReloadBindings overlays the stored bindings on the configured action map.
// An enabled binding routes its gesture to the binding's plugin and action;
// a disabled one leaves the gesture unbound.
func (a *App) ReloadBindings() error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	actions := a.baseActions.Clone()
	routes := make(map[gesture.Label]route)

	if a.config.Store != nil {
		bindings, err := a.config.Store.Bindings().List()
		if err != nil {
			return fmt.Errorf("load bindings: %w", err)
		}

		for _, b := range bindings {
			label, err := gesture.ParseLabel(b.Gesture)
			if err != nil || !label.Actionable() {
				log.Printf("Ignoring binding %s: unknown gesture %q", b.ID, b.Gesture)
				continue
			}
			if !b.Enabled {
				delete(actions, label)
				continue
			}
			actions[label] = b.ActionName
			routes[label] = route{plugin: b.PluginName, config: b.Config}
		}
		log.Printf("Loaded %d bindings from database", len(bindings))
	}

	a.engine.SetActionMap(actions)
	a.routes = routes
	return nil
}

// routeFor waits out a running reload, so a route is never older than the
// action that fired it.
func (a *App) routeFor(label gesture.Label) route {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	if r, ok := a.routes[label]; ok {
		return r
	}
	return route{plugin: a.config.PluginName}
}

// executeAction sends a fired action to the plugin bound to its gesture.
func (a *App) executeAction(ctx context.Context, fired gesture.ActionFired) error {
	r := a.routeFor(fired.Label)

	req := &plugin.Request{
		Action:      fired.Action,
		Gesture:     fired.Label.String(),
		Score:       fired.Score,
		TimestampMs: fired.Timestamp.UnixMilli(),
		SessionID:   a.sessionID,
		Config:      r.config,
	}

	if _, err := a.dispatch.Dispatch(ctx, r.plugin, req); err != nil {
		return fmt.Errorf("action %s for %s: %w", fired.Action, fired.Label, err)
	}
	log.Printf("Action fired: %s via %s (gesture: %s, score: %.3f)", fired.Action, r.plugin, fired.Label, fired.Score)
	return nil
}

// recordEvents appends the confirmed and fired events of out to the store.
func (a *App) recordEvents(out gesture.Outcome) {
	if a.config.Store == nil {
		return
	}

	events := a.config.Store.Events()
	if c := out.Confirmed; c != nil {
		err := events.Create(&store.Event{
			ID:         uuid.NewString(),
			SessionID:  a.sessionID,
			Kind:       store.EventConfirmed,
			Gesture:    c.Label.String(),
			Score:      c.Score,
			OccurredAt: c.Timestamp,
		})
		if err != nil {
			log.Printf("Failed to record confirmed event: %v", err)
		}
	}
	if f := out.Fired; f != nil {
		err := events.Create(&store.Event{
			ID:         uuid.NewString(),
			SessionID:  a.sessionID,
			Kind:       store.EventFired,
			Gesture:    f.Label.String(),
			Action:     f.Action,
			Score:      f.Score,
			OccurredAt: f.Timestamp,
		})
		if err != nil {
			log.Printf("Failed to record fired event: %v", err)
		}
	}
}

// ExportLog returns the frame log with session metadata.
func (a *App) ExportLog() Export {
	records := a.frames.Records()
	cfg := a.config.Stabilizer

	return Export{
		Meta: ExportMeta{
			SessionID:   a.sessionID,
			ExportedAt:  a.clock.Now(),
			RecordCount: len(records),
			WindowSize:  cfg.WindowSize,
			MinConfirm:  cfg.MinConfirm.String(),
			Cooldown:    cfg.Cooldown.String(),
		},
		Records: records,
	}
}

// Start opens the camera and begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)
	a.active = false

	a.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.runPipeline(a.stopCh)
	}()
	go func() {
		defer a.wg.Done()
		a.runActions(ctx, a.stopCh)
	}()
	go func(stop chan struct{}) {
		<-stop
		cancel()
	}(a.stopCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stop := a.stopCh
	a.stopCh = nil
	a.mu.Unlock()

	if stop != nil {
		close(stop)
		a.wg.Wait()
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
	if a.motion != nil {
		a.motion.Close()
	}

	log.Println("Detection pipeline stopped")
}

// runActions drains fired actions one at a time so plugins never overlap.
func (a *App) runActions(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case fired := <-a.actions:
			if err := a.executeAction(ctx, fired); err != nil {
				if errors.Is(err, plugin.ErrPluginNotFound) {
					log.Printf("No plugin for action %s: %v", fired.Action, err)
					continue
				}
				log.Printf("Action failed: %v", err)
			}
		}
	}
}

func (a *App) enqueueAction(fired gesture.ActionFired) {
	select {
	case a.actions <- fired:
	default:
		log.Printf("Action queue full, dropping %s", fired.Action)
	}
}
