package plugin

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcher_Dispatch(t *testing.T) {
	mgr := NewManager(t.TempDir())
	mgr.Register(scriptPlugin(t, "media", `echo '{"success":true}'
`, "play", "next", "prev"))
	mgr.Register(scriptPlugin(t, "broken", `echo '{"success":false,"error":"no player"}'
`, "play"))

	d := NewDispatcher(mgr, NewExecutor(5*time.Second))
	ctx := context.Background()

	t.Run("supported action succeeds", func(t *testing.T) {
		resp, err := d.Dispatch(ctx, "media", &Request{Action: "next", Gesture: "point", Score: 1})
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if !resp.Success {
			t.Error("expected success")
		}
	})

	t.Run("unknown plugin", func(t *testing.T) {
		_, err := d.Dispatch(ctx, "missing", &Request{Action: "play"})
		if !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("expected ErrPluginNotFound, got %v", err)
		}
	})

	t.Run("undeclared action", func(t *testing.T) {
		_, err := d.Dispatch(ctx, "media", &Request{Action: "shutdown"})
		if !errors.Is(err, ErrActionUnsupported) {
			t.Errorf("expected ErrActionUnsupported, got %v", err)
		}
	})

	t.Run("plugin reported failure", func(t *testing.T) {
		resp, err := d.Dispatch(ctx, "broken", &Request{Action: "play"})
		if err == nil {
			t.Fatal("expected error for unsuccessful response")
		}
		if resp == nil || resp.Error != "no player" {
			t.Errorf("expected response with plugin error, got %+v", resp)
		}
	})
}

func TestManifest_Supports(t *testing.T) {
	m := Manifest{Actions: []string{"play", "next"}}
	if !m.Supports("play") {
		t.Error("expected play to be supported")
	}
	if m.Supports("prev") {
		t.Error("prev should not be supported")
	}
}
