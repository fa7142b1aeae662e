package main

import (
	"encoding/json"
	"testing"
)

func TestResolveKeystroke(t *testing.T) {
	ks, err := resolveKeystroke("next", nil)
	if err != nil || ks.Key != "right" {
		t.Errorf("default next = %+v, %v", ks, err)
	}

	ks, err = resolveKeystroke("next", json.RawMessage(`{"key":"n","modifiers":["cmd"]}`))
	if err != nil || ks.Key != "n" || len(ks.Modifiers) != 1 {
		t.Errorf("configured next = %+v, %v", ks, err)
	}

	if _, err := resolveKeystroke("mute", nil); err == nil {
		t.Error("expected error for action without default key")
	}
	if _, err := resolveKeystroke("next", json.RawMessage(`"oops"`)); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestBuildKeystrokeScript(t *testing.T) {
	tests := []struct {
		key       string
		modifiers []string
		want      string
	}{
		{"right", nil, `tell application "System Events" to key code 124`},
		{"a", nil, `tell application "System Events" to keystroke "a"`},
		{"c", []string{"cmd", "shift"}, `tell application "System Events" to keystroke "c" using {command down, shift down}`},
		{"c", []string{"bogus"}, `tell application "System Events" to keystroke "c"`},
	}
	for _, tt := range tests {
		if got := buildKeystrokeScript(tt.key, tt.modifiers); got != tt.want {
			t.Errorf("buildKeystrokeScript(%q, %v) = %q, want %q", tt.key, tt.modifiers, got, tt.want)
		}
	}
}

func TestBuildXdotoolChord(t *testing.T) {
	if got := buildXdotoolChord("left", nil); got != "Left" {
		t.Errorf("got %q, want Left", got)
	}
	if got := buildXdotoolChord("Right", []string{"ctrl", "alt"}); got != "ctrl+alt+Right" {
		t.Errorf("got %q, want ctrl+alt+Right", got)
	}
}

func TestCommandFor(t *testing.T) {
	if name, _, err := commandFor("darwin", Keystroke{Key: "space"}); err != nil || name != "osascript" {
		t.Errorf("darwin = %q, %v", name, err)
	}
	if name, args, err := commandFor("linux", Keystroke{Key: "space"}); err != nil || name != "xdotool" || args[1] != "space" {
		t.Errorf("linux = %q %v, %v", name, args, err)
	}
	if _, _, err := commandFor("plan9", Keystroke{Key: "space"}); err == nil {
		t.Error("expected error for unsupported platform")
	}
}
