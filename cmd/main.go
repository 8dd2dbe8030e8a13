package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"eyenav/internal/audio"
	"eyenav/internal/bridge"
	"eyenav/internal/core/activation"
	"eyenav/internal/core/dwell"
	"eyenav/internal/core/pointer"
	"eyenav/internal/diagnostics"
	"eyenav/internal/logging"
	"eyenav/internal/platform"
	"eyenav/internal/storage"
	"eyenav/internal/ui/board"
	"eyenav/internal/ui/overlay"
	"eyenav/internal/ui/preferences"
	"eyenav/internal/ui/tray"
	"eyenav/resources"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"
)

const (
	appName          = "EyeNav"
	gazeFeedInterval = 33 * time.Millisecond
)

func main() {
	store, err := storage.NewStore(appName, platform.NewService())
	if err != nil {
		log.Printf("settings store: %v", err)
		return
	}
	settings, loadErr := store.Load()

	logger, err := logging.New(logging.Options{Level: settings.LogLevel, Format: "console"})
	if err != nil {
		logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
	}
	defer func() {
		_ = logger.Sync()
	}()
	if loadErr != nil {
		logger.Warn("settings not loaded, using defaults", zap.String("path", store.Path()), zap.Error(loadErr))
	}

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		logger.Warn("single instance", zap.Error(err))
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	fyneApp := app.NewWithID("com.eyenav.app")
	activeIcon := resources.MustIcon(resources.IconActive)
	pausedIcon := resources.MustIcon(resources.IconPaused)
	fyneApp.SetIcon(activeIcon)
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		logger.Warn("system tray unsupported on this platform")
		return
	}

	dispatcher := activation.NewDispatcher(logger)
	recorder := diagnostics.NewRecorder()
	tone := audio.DefaultTone()
	tone.Volume = settings.Volume
	player := audio.NewPlayer(tone, logger)
	player.SetEnabled(settings.SoundEnabled)
	dispatcher.AddObserver(player)
	dispatcher.AddObserver(recorder)
	go recorder.WatchFailures(dispatcher.SubscribeFailures(16))

	display := widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Monospace: true})
	keypad := board.New(keypadItems(display), 4)

	var trayManager *tray.Manager
	options := pointer.DefaultOptions()
	options.OnStall = func(since time.Duration) {
		fyne.Do(func() {
			trayManager.SetStatus(fmt.Sprintf("no gaze for %s", since.Round(time.Second)))
		})
	}

	controller, err := pointer.New(settings.DwellConfig(), options, keypad, dispatcher, logger)
	if err != nil {
		logger.Warn("stored dwell settings rejected, using defaults", zap.Error(err))
		settings = preferences.DefaultSettings()
		controller, err = pointer.New(settings.DwellConfig(), options, keypad, dispatcher, logger)
		if err != nil {
			logger.Error("pointer controller", zap.Error(err))
			return
		}
	}

	layer := overlay.New(overlay.DefaultConfig())
	controller.AddFeedback(layer)
	controller.AddFeedback(recorder)

	gazeBridge := newBridgeRunner(bridge.NewServer(controller, bridge.Options{AllowedOrigins: settings.BridgeOrigins}, logger), logger)
	controller.AddFeedback(gazeBridge.server)
	dispatcher.AddObserver(gazeBridge.server)

	pad := board.NewPointerPad(controller)

	window := fyneApp.NewWindow(appName)
	window.SetPadded(false)
	window.SetContent(container.NewStack(
		container.NewBorder(display, nil, nil, nil, keypad.Content()),
		layer.Object(),
		pad,
	))
	window.Resize(fyne.NewSize(720, 480))
	window.SetCloseIntercept(func() {
		window.Hide()
	})
	desktopApp.SetSystemTrayWindow(window)

	toggleDiagnostics := func() {
		enabled := layer.ToggleDiagnostics()
		trayManager.SetDiagnostics(enabled)
	}
	window.Canvas().SetOnTypedKey(func(event *fyne.KeyEvent) {
		if event.Name == fyne.KeyF2 {
			toggleDiagnostics()
		}
	})

	applySettings := func(updated preferences.Settings) bool {
		if err := controller.UpdateConfig(updated.DwellConfig()); err != nil {
			logger.Warn("settings rejected", zap.Error(err))
			return false
		}
		settings = updated
		player.SetEnabled(settings.SoundEnabled)
		player.SetVolume(settings.Volume)
		layer.SetDiagnostics(settings.Diagnostics)
		trayManager.SetDiagnostics(settings.Diagnostics)
		gazeBridge.server.SetAllowedOrigins(settings.BridgeOrigins)
		gazeBridge.apply(settings.BridgeEnabled, settings.BridgeAddress)
		return true
	}

	prefsWindow := preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		if !applySettings(updated) {
			return
		}
		if err := store.Save(settings); err != nil {
			logger.Error("save settings", zap.String("path", store.Path()), zap.Error(err))
		}
	}, func() preferences.Settings {
		reset, err := store.Reset()
		if err != nil {
			logger.Error("reset settings", zap.Error(err))
		}
		applySettings(reset)
		return reset
	})

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := sync.OnceFunc(func() {
		cancel()
		keypad.Close()
		controller.Stop()
		gazeBridge.apply(false, "")
		dispatcher.Close()
	})
	defer shutdown()

	trayManager = tray.New(desktopApp, tray.Callbacks{
		OnPreferences: func() {
			prefsWindow.Show()
		},
		OnTogglePause: func() {
			if controller.Paused() {
				controller.Resume()
				desktopApp.SetSystemTrayIcon(activeIcon)
			} else {
				controller.Pause()
				desktopApp.SetSystemTrayIcon(pausedIcon)
			}
			trayManager.SetPaused(controller.Paused())
		},
		OnToggleDiagnostics: toggleDiagnostics,
		OnShowBoard: func() {
			window.Show()
			window.RequestFocus()
		},
		OnQuit: func() {
			shutdown()
			fyneApp.Quit()
		},
	})
	desktopApp.SetSystemTrayIcon(activeIcon)
	trayManager.SetStatus("tracking")
	applySettings(settings)

	events := controller.Subscribe(32)
	go func() {
		for event := range events {
			if event.Kind == dwell.EventFire {
				id := event.TargetID()
				fyne.Do(func() {
					trayManager.SetStatus("clicked " + id)
				})
			}
		}
	}()

	go keypad.Track(ctx, options.TickInterval)
	go layer.Run(ctx, controller, func() string {
		point, ok := controller.CurrentPoint()
		recorder.SetPoint(point, ok)
		return recorder.Snapshot().StatusLine()
	})

	go func() {
		err := guard.Serve(func() {
			fyne.Do(func() {
				window.Show()
				window.RequestFocus()
			})
		})
		if err != nil {
			logger.Warn("single instance raise listener", zap.Error(err))
		}
	}()

	controller.Start()
	window.Show()
	fyneApp.Run()
}

// keypadItems builds a phone-style keypad that types into display.
func keypadItems(display *widget.Label) []board.Item {
	var typed strings.Builder
	set := func(text string) {
		typed.Reset()
		typed.WriteString(text)
		display.SetText(text)
	}
	appendKey := func(key string) func() error {
		return func() error {
			set(typed.String() + key)
			return nil
		}
	}

	var items []board.Item
	for _, key := range []string{"1", "2", "3", "A", "4", "5", "6", "B", "7", "8", "9", "C", "*", "0", "#", "D"} {
		items = append(items, board.Item{ID: "key-" + key, Label: key, OnActivate: appendKey(key)})
	}
	items = append(items,
		board.Item{ID: "space", Label: "Space", OnActivate: appendKey(" ")},
		board.Item{ID: "delete", Label: "Delete", OnActivate: func() error {
			text := typed.String()
			if text == "" {
				return nil
			}
			set(text[:len(text)-1])
			return nil
		}},
		board.Item{ID: "clear", Label: "Clear", OnActivate: func() error {
			set("")
			return nil
		}},
		board.Item{ID: "copy", Label: "Copy", OnActivate: func() error {
			if typed.Len() == 0 {
				return fmt.Errorf("nothing to copy")
			}
			fyne.CurrentApp().Clipboard().SetContent(typed.String())
			return nil
		}},
	)
	return items
}

type bridgeRunner struct {
	mu      sync.Mutex
	server  *bridge.Server
	logger  *zap.Logger
	cancel  context.CancelFunc
	address string
}

func newBridgeRunner(server *bridge.Server, logger *zap.Logger) *bridgeRunner {
	return &bridgeRunner{server: server, logger: logger}
}

// apply starts, stops or moves the bridge listener.
func (runner *bridgeRunner) apply(enabled bool, address string) {
	runner.mu.Lock()
	defer runner.mu.Unlock()

	if runner.cancel != nil && (!enabled || address != runner.address) {
		runner.cancel()
		runner.cancel = nil
		runner.address = ""
	}
	if !enabled || runner.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	runner.cancel = cancel
	runner.address = address
	go runner.server.RunGazeFeed(ctx, gazeFeedInterval)
	go func() {
		if err := runner.server.ListenAndServe(ctx, address); err != nil {
			runner.logger.Error("bridge stopped", zap.Error(err))
		}
	}()
}
