// Package main provides the keys plugin. It turns fired gesture actions into
// keystrokes, which is handy for slide decks and video players that have no
// media key support. AppleScript is used on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Keystroke is the binding config: one key plus optional modifiers.
type Keystroke struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// defaultKeys are used when the binding carries no config.
var defaultKeys = map[string]Keystroke{
	"play": {Key: "space"},
	"next": {Key: "right"},
	"prev": {Key: "left"},
}

// macKeyCodes covers named keys that keystroke cannot type.
var macKeyCodes = map[string]int{
	"space": 49,
	"left":  123,
	"right": 124,
	"down":  125,
	"up":    126,
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

var xdotoolModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

var xdotoolKeys = map[string]string{
	"space": "space",
	"left":  "Left",
	"right": "Right",
	"up":    "Up",
	"down":  "Down",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	ks, err := resolveKeystroke(req.Action, req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	name, args, err := commandFor(runtime.GOOS, ks)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if output, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v: %s", req.Action, err, output))
		return
	}

	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// resolveKeystroke reads the binding config, falling back to the default
// key for action.
func resolveKeystroke(action string, config json.RawMessage) (Keystroke, error) {
	var ks Keystroke
	if len(config) > 0 && string(config) != "null" {
		if err := json.Unmarshal(config, &ks); err != nil {
			return ks, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if ks.Key != "" {
		return ks, nil
	}

	def, ok := defaultKeys[action]
	if !ok {
		return ks, fmt.Errorf("no key configured for action: %s", action)
	}
	return def, nil
}

func commandFor(goos string, ks Keystroke) (string, []string, error) {
	switch goos {
	case "darwin":
		return "osascript", []string{"-e", buildKeystrokeScript(ks.Key, ks.Modifiers)}, nil
	case "linux":
		return "xdotool", []string{"key", buildXdotoolChord(ks.Key, ks.Modifiers)}, nil
	}
	return "", nil, fmt.Errorf("unsupported platform: %s", goos)
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	verb := fmt.Sprintf(`keystroke "%s"`, key)
	if code, ok := macKeyCodes[strings.ToLower(key)]; ok {
		verb = fmt.Sprintf("key code %d", code)
	}

	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to %s`, verb)
	}
	return fmt.Sprintf(`tell application "System Events" to %s using {%s}`, verb, strings.Join(appleModifiers, ", "))
}

// buildXdotoolChord renders a chord like "ctrl+shift+Right".
func buildXdotoolChord(key string, modifiers []string) string {
	var parts []string
	for _, mod := range modifiers {
		if m, ok := xdotoolModifiers[strings.ToLower(mod)]; ok {
			parts = append(parts, m)
		}
	}
	if k, ok := xdotoolKeys[strings.ToLower(key)]; ok {
		key = k
	}
	return strings.Join(append(parts, key), "+")
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Error: errMsg})
}
