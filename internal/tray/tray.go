// Package tray provides the system tray menu for controlling the drawing.
package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/getlantern/systray"
)

// Controller is the part of the application the tray drives.
type Controller interface {
	SetEnabled(enabled bool)
	Clear() error
	BrushSize() int
	StepBrushSize(delta int) int
}

// Tray represents the system tray application.
type Tray struct {
	ctrl    Controller
	onOpen  func()
	onQuit  func()
	enabled bool
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuBrush  *systray.MenuItem
}

// New creates a new Tray driving ctrl, with tracking enabled.
func New(ctrl Controller) *Tray {
	return &Tray{
		ctrl:    ctrl,
		enabled: true,
	}
}

// OnOpen sets the callback for the "Open in Browser" menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
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
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Easel")
	systray.SetTooltip("Easel - draw with your face")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle face tracking")
	t.menuBrush = systray.AddMenuItem(brushTitle(t.ctrl.BrushSize()), "Current brush size")
	t.menuBrush.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuClear := systray.AddMenuItem("Clear Drawing", "Erase the drawing")
	menuBigger := systray.AddMenuItem("Brush +", "Increase brush size")
	menuSmaller := systray.AddMenuItem("Brush −", "Decrease brush size")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in Browser", "Open the drawing view")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Easel")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuClear.ClickedCh:
				t.handleClear()
			case <-menuBigger.ClickedCh:
				t.handleBrush(1)
			case <-menuSmaller.ClickedCh:
				t.handleBrush(-1)
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips tracking on or off.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	t.mu.Unlock()

	// Call the controller outside the lock to prevent deadlocks
	t.ctrl.SetEnabled(enabled)
}

func (t *Tray) handleClear() {
	if err := t.ctrl.Clear(); err != nil {
		log.Printf("Failed to clear drawing: %v", err)
	}
}

func (t *Tray) handleBrush(delta int) {
	size := t.ctrl.StepBrushSize(delta)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuBrush != nil {
		t.menuBrush.SetTitle(brushTitle(size))
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func brushTitle(size int) string {
	return fmt.Sprintf("Brush: %d", size)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
