// Package tray provides the system tray menu: quick toggles for the volume
// and trail effects, resets, and a live score line.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/facecloud/internal/config"
	"github.com/getlantern/systray"
)

// Toggle names a boolean setting the tray can flip.
type Toggle int

const (
	ToggleVolumetric Toggle = iota
	ToggleHandTrail
	ToggleAutoCenter
)

// Tray is the system tray menu. Toggles write straight to the settings
// store; changes made elsewhere are reflected back into the check marks.
type Tray struct {
	store *config.Store

	onOpen      func()
	onResetGame func()
	onQuit      func()
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggles map[Toggle]*systray.MenuItem
	menuScore   *systray.MenuItem
}

// New creates a Tray over store.
func New(store *config.Store) *Tray {
	t := &Tray{store: store}
	store.OnChange(t.sync)
	return t
}

// OnOpen sets the callback for "Open Renderer...".
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnResetGame sets the callback for "Reset Score".
func (t *Tray) OnResetGame(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onResetGame = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

func (t *Tray) onReady() {
	systray.SetTitle("facecloud")
	systray.SetTooltip("facecloud particle mirror")

	s := t.store.Snapshot()
	menuVolumetric := systray.AddMenuItemCheckbox("Volumetric", "Stack particle layers in depth", s.Volumetric)
	menuTrail := systray.AddMenuItemCheckbox("Hand Trail", "Orbit trailing hand layers", s.HandTrail)
	menuCenter := systray.AddMenuItemCheckbox("Auto-Center", "Keep the head in the middle of the view", s.AutoCenter)
	systray.AddSeparator()

	menuScore := systray.AddMenuItem(ScoreTitle(0), "Collected targets")
	menuScore.Disable()
	menuResetGame := systray.AddMenuItem("Reset Score", "Clear targets and score")
	menuResetSettings := systray.AddMenuItem("Reset Settings", "Restore startup settings")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Renderer...", "Open the renderer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit facecloud")

	t.mu.Lock()
	t.menuToggles = map[Toggle]*systray.MenuItem{
		ToggleVolumetric: menuVolumetric,
		ToggleHandTrail:  menuTrail,
		ToggleAutoCenter: menuCenter,
	}
	t.menuScore = menuScore
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-menuVolumetric.ClickedCh:
				t.Flip(ToggleVolumetric)
			case <-menuTrail.ClickedCh:
				t.Flip(ToggleHandTrail)
			case <-menuCenter.ClickedCh:
				t.Flip(ToggleAutoCenter)
			case <-menuResetGame.ClickedCh:
				t.call(&t.onResetGame)
				t.SetScore(0)
			case <-menuResetSettings.ClickedCh:
				t.store.Reset()
			case <-menuOpen.ClickedCh:
				t.call(&t.onOpen)
			case <-menuQuit.ClickedCh:
				t.call(&t.onQuit)
				systray.Quit()
				return
			}
		}
	}()
}

// Flip inverts a boolean setting and returns its new value.
func (t *Tray) Flip(which Toggle) bool {
	next := t.store.Update(func(s *config.Settings) {
		switch which {
		case ToggleVolumetric:
			s.Volumetric = !s.Volumetric
		case ToggleHandTrail:
			s.HandTrail = !s.HandTrail
		case ToggleAutoCenter:
			s.AutoCenter = !s.AutoCenter
		}
	})
	return toggleValue(next, which)
}

func toggleValue(s config.Settings, which Toggle) bool {
	switch which {
	case ToggleVolumetric:
		return s.Volumetric
	case ToggleHandTrail:
		return s.HandTrail
	case ToggleAutoCenter:
		return s.AutoCenter
	}
	return false
}

// sync mirrors settings into the check marks. It runs on every store change.
func (t *Tray) sync(s config.Settings) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for which, item := range t.menuToggles {
		if toggleValue(s, which) {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (t *Tray) call(fn *func()) {
	t.mu.RLock()
	callback := *fn
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetScore updates the score line in the menu.
func (t *Tray) SetScore(score int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuScore != nil {
		t.menuScore.SetTitle(ScoreTitle(score))
	}
}

// ScoreTitle formats the score menu line.
func ScoreTitle(score int) string {
	return fmt.Sprintf("Score: %d", score)
}
