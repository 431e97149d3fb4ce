// Command keyboard is a facecloud hook that turns interaction events into
// keystrokes, so a pinch or a smile can drive slides or a media player.
// It uses AppleScript on macOS and xdotool elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request is the hook input written by facecloud.
type Request struct {
	Event  string          `json:"event"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
	Score  int             `json:"score"`
}

// Response is the hook output read by facecloud.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// KeystrokeParams names the key and its modifiers.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

var xdoModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	switch req.Action {
	case "keystroke":
		var p KeystrokeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("parse params: %v", err)})
			return
		}
		if err := sendKey(p); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("%s on %s: %v", req.Action, req.Event, err)})
			return
		}
	default:
		writeResponse(Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	writeResponse(Response{Success: true})
}

func sendKey(p KeystrokeParams) error {
	if p.Key == "" {
		return fmt.Errorf("key is required")
	}
	if runtime.GOOS == "darwin" {
		return run("osascript", "-e", appleScript(p.Key, p.Modifiers))
	}
	return run("xdotool", "key", xdoChord(p.Key, p.Modifiers))
}

func appleScript(key string, modifiers []string) string {
	var mods []string
	for _, m := range modifiers {
		if am, ok := appleModifiers[strings.ToLower(m)]; ok {
			mods = append(mods, am)
		}
	}
	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(mods, ", "))
}

func xdoChord(key string, modifiers []string) string {
	var parts []string
	for _, m := range modifiers {
		if xm, ok := xdoModifiers[strings.ToLower(m)]; ok {
			parts = append(parts, xm)
		}
	}
	return strings.Join(append(parts, key), "+")
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
