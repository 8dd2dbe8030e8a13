package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnPreferences       func()
	OnTogglePause       func()
	OnToggleDiagnostics func()
	OnShowBoard         func()
	OnQuit              func()
}

// Manager handles system tray state.
type Manager struct {
	app             desktop.App
	statusItem      *fyne.MenuItem
	pauseItem       *fyne.MenuItem
	diagnosticsItem *fyne.MenuItem
	callbacks       Callbacks
	paused          bool
	statusLabel     string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:         app,
		callbacks:   callbacks,
		statusLabel: "starting...",
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.pauseItem = fyne.NewMenuItem("Pause dwell", func() {
		call(manager.callbacks.OnTogglePause)
	})

	manager.diagnosticsItem = fyne.NewMenuItem("Diagnostics", func() {
		call(manager.callbacks.OnToggleDiagnostics)
	})

	manager.refreshMenu()
	return manager
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.refreshStatus()
}

// SetPaused updates pause state.
func (manager *Manager) SetPaused(paused bool) {
	manager.paused = paused
	if paused {
		manager.pauseItem.Label = "Resume dwell"
	} else {
		manager.pauseItem.Label = "Pause dwell"
	}
	manager.refreshStatus()
}

// SetDiagnostics updates the diagnostics check mark.
func (manager *Manager) SetDiagnostics(enabled bool) {
	manager.diagnosticsItem.Checked = enabled
	manager.refreshMenu()
}

// Paused reports the pause state shown in the menu.
func (manager *Manager) Paused() bool {
	return manager.paused
}

func (manager *Manager) refreshStatus() {
	manager.statusItem.Label = statusText(manager.statusLabel, manager.paused)
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("EyeNav",
		manager.statusItem,
		fyne.NewMenuItem("Show board", func() {
			call(manager.callbacks.OnShowBoard)
		}),
		fyne.NewMenuItem("Preferences", func() {
			call(manager.callbacks.OnPreferences)
		}),
		manager.pauseItem,
		manager.diagnosticsItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() {
			call(manager.callbacks.OnQuit)
		}),
	))
}

func statusText(status string, paused bool) string {
	if paused {
		status = fmt.Sprintf("%s (paused)", status)
	}
	return fmt.Sprintf("Status: %s", status)
}

func call(handler func()) {
	if handler != nil {
		handler()
	}
}
