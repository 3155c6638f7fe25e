// Package tray provides a system tray menu for the chain try-on app.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle  func(enabled bool) bool
	onPrev    func()
	onNext    func()
	onCapture func()
	onOpen    func()
	onQuit    func()
	enabled   bool
	chain     string
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuChain  *systray.MenuItem
}

// New creates a new Tray instance with the camera shown as running.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback invoked when the camera item is clicked. It
// receives the requested state and returns the state actually reached.
func (t *Tray) OnToggle(fn func(enabled bool) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnPrevious sets the callback for the previous chain item.
func (t *Tray) OnPrevious(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPrev = fn
}

// OnNext sets the callback for the next chain item.
func (t *Tray) OnNext(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNext = fn
}

// OnCapture sets the callback for the capture item.
func (t *Tray) OnCapture(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCapture = fn
}

// OnOpen sets the callback for the open-in-browser item.
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

// Quit exits the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("ChainFit")
	systray.SetTooltip("ChainFit chain try-on")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Start or stop the camera")
	systray.AddSeparator()

	t.menuChain = systray.AddMenuItem(chainTitle(t.chain), "Active chain")
	t.menuChain.Disable()
	t.mu.Unlock()

	menuPrev := systray.AddMenuItem("Previous Chain", "Show the previous chain")
	menuNext := systray.AddMenuItem("Next Chain", "Show the next chain")
	systray.AddSeparator()

	menuCapture := systray.AddMenuItem("Capture", "Save the current frame as PNG")
	menuOpen := systray.AddMenuItem("Open in Browser...", "Open the try-on page")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit ChainFit")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuPrev.ClickedCh:
				t.call(func() func() { return t.onPrev })
			case <-menuNext.ClickedCh:
				t.call(func() func() { return t.onNext })
			case <-menuCapture.ClickedCh:
				t.call(func() func() { return t.onCapture })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Camera On"
	}
	return "○ Camera Off"
}

func chainTitle(name string) string {
	if name == "" {
		return "Chain: none"
	}
	return "Chain: " + name
}

// call runs the callback picked under the read lock.
func (t *Tray) call(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	got := want
	if callback != nil {
		got = callback(want)
	}
	t.SetEnabled(got)
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

// SetEnabled updates the camera state shown in the menu.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetChain updates the active chain display in the menu.
func (t *Tray) SetChain(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chain = name
	if t.menuChain != nil {
		t.menuChain.SetTitle(chainTitle(name))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Chain returns the chain name shown in the menu.
func (t *Tray) Chain() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chain
}
