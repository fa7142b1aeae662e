// Package main provides the media plugin. It maps fired gesture actions onto
// media transport keys: AppleScript on macOS, playerctl on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action      string          `json:"action"`
	Gesture     string          `json:"gesture"`
	Score       float64         `json:"score"`
	TimestampMs int64           `json:"timestampMs"`
	Config      json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration.
type Config struct {
	// Player restricts playerctl to one player (e.g. "spotify").
	Player string `json:"player"`
}

type command struct {
	name string
	args []string
}

// macKeyCodes are the System Events key codes of the media keys.
var macKeyCodes = map[string]int{
	"play":  100,
	"pause": 100,
	"next":  101,
	"prev":  98,
}

var playerctlVerbs = map[string]string{
	"play":  "play-pause",
	"pause": "pause",
	"next":  "next",
	"prev":  "previous",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	cmd, err := commandFor(runtime.GOOS, req.Action, cfg)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	if err := run(cmd); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}

	data, _ := json.Marshal(map[string]string{"action": req.Action, "gesture": req.Gesture})
	writeResponse(Response{Success: true, Data: data})
}

func parseConfig(raw json.RawMessage) (Config, error) {
	var cfg Config
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// commandFor builds the OS command for action.
func commandFor(goos, action string, cfg Config) (command, error) {
	switch goos {
	case "darwin":
		if action == "mute" {
			return command{"osascript", []string{"-e",
				`set volume output muted (not (output muted of (get volume settings)))`}}, nil
		}
		code, ok := macKeyCodes[action]
		if !ok {
			return command{}, fmt.Errorf("unknown action: %s", action)
		}
		script := fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)
		return command{"osascript", []string{"-e", script}}, nil

	case "linux":
		if action == "mute" {
			return command{"pactl", []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}}, nil
		}
		verb, ok := playerctlVerbs[action]
		if !ok {
			return command{}, fmt.Errorf("unknown action: %s", action)
		}
		var args []string
		if cfg.Player != "" {
			args = append(args, "--player="+cfg.Player)
		}
		return command{"playerctl", append(args, verb)}, nil
	}
	return command{}, fmt.Errorf("unsupported platform: %s", goos)
}

func run(c command) error {
	output, err := exec.Command(c.name, c.args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
