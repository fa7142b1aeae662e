package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPlugin_Media_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("media")
	if pluginDir == "" {
		t.Skip("media plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("media")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// An undeclared action never reaches the binary.
	d := NewDispatcher(mgr, NewExecutor(5*time.Second))
	if _, err := d.Dispatch(context.Background(), "media", &Request{Action: "rewind"}); !errors.Is(err, ErrActionUnsupported) {
		t.Fatalf("expected ErrActionUnsupported, got %v", err)
	}

	// Calling the binary directly with an unknown action has no side effects.
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, &Request{Action: "rewind", Gesture: "fist"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for unknown action")
	}
}

func TestPlugin_Keys_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("keys")
	if pluginDir == "" {
		t.Skip("keys plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("keys")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// No default key exists for this action, so nothing is typed.
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, &Request{Action: "mute"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for action without a key")
	}
}

// findPluginDir returns the plugin's directory if both its manifest and a
// built executable are present.
func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		manifest, err := readManifest(filepath.Join(dir, ManifestFile))
		if err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, manifest.Executable)); err == nil {
			return dir
		}
	}
	return ""
}
