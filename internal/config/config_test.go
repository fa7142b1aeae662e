package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := &Config{}

	if diff := cmp.Diff(gesture.DefaultClassifierConfig(), cfg.ClassifierConfig()); diff != "" {
		t.Errorf("classifier config mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(gesture.DefaultStabilizerConfig(), cfg.StabilizerConfig()); diff != "" {
		t.Errorf("stabilizer config mismatch (-want +got):\n%s", diff)
	}

	w, h := cfg.GetFrameSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, 0, cfg.GetCameraID())
	assert.Equal(t, DefaultPluginName, cfg.GetPluginName())
	assert.Equal(t, capture.DefaultMotionFraction, cfg.GetMotionFraction())
}

func TestLoad(t *testing.T) {
	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeConfig(t, "mudra.json", `{
			"fist_threshold": 0.7,
			"window_size": 7,
			"required_fraction": 0.6,
			"min_confirm": "250ms",
			"actions": {"fist": "mute", "point": "next"},
			"frame_width": 1280,
			"frame_height": 720,
			"plugin_name": "keys",
			"motion_fraction": 0
		}`)

		cfg, err := Load(path)
		require.NoError(t, err)

		cc := cfg.ClassifierConfig()
		assert.Equal(t, 0.7, cc.FistThreshold)
		assert.Equal(t, 1.4, cc.OpenThreshold)

		sc := cfg.StabilizerConfig()
		assert.Equal(t, 7, sc.WindowSize)
		assert.Equal(t, 0.6, sc.RequiredFraction)
		assert.Equal(t, 250*time.Millisecond, sc.MinConfirm)
		assert.Equal(t, 1200*time.Millisecond, sc.Cooldown)
		assert.Equal(t, gesture.ActionMap{gesture.Fist: "mute", gesture.Point: "next"}, sc.Actions)

		capCfg := cfg.CaptureConfig()
		assert.Equal(t, 1280, capCfg.Width)
		assert.Equal(t, 720, capCfg.Height)
		assert.Equal(t, "keys", cfg.GetPluginName())
		assert.Equal(t, 0.0, cfg.GetMotionFraction(), "zero disables the gate")
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		path := writeConfig(t, "mudra.yaml", `{}`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json")
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		body := `{"plugin_name":"` + strings.Repeat("x", MaxFileSize) + `"}`
		path := writeConfig(t, "big.json", body)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeConfig(t, "bad.json", `{"window_size":`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative threshold", `{"open_threshold": -1}`},
		{"zero window", `{"window_size": 0}`},
		{"fraction above one", `{"required_fraction": 1.5}`},
		{"zero fraction", `{"required_fraction": 0}`},
		{"bad duration", `{"min_confirm": "soon"}`},
		{"negative cooldown", `{"cooldown": "-1s"}`},
		{"unknown label", `{"actions": {"wave": "play"}}`},
		{"non-actionable label", `{"actions": {"unknown": "play"}}`},
		{"zero width", `{"frame_width": 0}`},
		{"motion fraction above one", `{"motion_fraction": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "expected ErrInvalid, got %v", err)
		})
	}

	t.Run("valid config passes", func(t *testing.T) {
		_, err := Parse([]byte(`{"cooldown": "2s", "actions": {"open_hand": ""}}`))
		assert.NoError(t, err)
	})
}
