// Package hook runs external executables in response to interaction events
// (gesture starts and collections). Hooks live in their own directories next
// to a plugin.json manifest and speak JSON over stdin/stdout.
package hook

import "encoding/json"

// Event names a hook trigger. Gesture events share their names with
// gesture.Event; EventCollect fires when a collectible is caught.
type Event string

const (
	EventMouthOpen Event = "mouth_open"
	EventSmile     Event = "smile"
	EventPinch     Event = "pinch"
	EventCollect   Event = "collect"
)

// Binding ties an event to an action of the hook executable.
type Binding struct {
	Event  Event           `json:"event"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Manifest describes a hook and the events it listens to.
type Manifest struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Executable  string    `json:"executable"`
	Bindings    []Binding `json:"bindings"`
}

// Request is written to the hook's stdin.
type Request struct {
	Event  Event           `json:"event"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
	Score  int             `json:"score"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// BindingsFor returns the hook's bindings for event.
func (h *Hook) BindingsFor(event Event) []Binding {
	var out []Binding
	for _, b := range h.Manifest.Bindings {
		if b.Event == event {
			out = append(out, b)
		}
	}
	return out
}
