package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yok-tottii/micwatch/internal/agc"
	"github.com/yok-tottii/micwatch/internal/api"
	"github.com/yok-tottii/micwatch/internal/audio"
	"github.com/yok-tottii/micwatch/internal/cli"
	"github.com/yok-tottii/micwatch/internal/config"
	"github.com/yok-tottii/micwatch/internal/hotkey"
	"github.com/yok-tottii/micwatch/internal/keyaction"
	"github.com/yok-tottii/micwatch/internal/monitor"
	"github.com/yok-tottii/micwatch/internal/notification"
	"github.com/yok-tottii/micwatch/internal/permissions"
	"github.com/yok-tottii/micwatch/internal/recording"
	"github.com/yok-tottii/micwatch/internal/server"
	"github.com/yok-tottii/micwatch/internal/trigger"
	"github.com/yok-tottii/micwatch/internal/volume"
	"github.com/yok-tottii/micwatch/internal/wakeword"
	"github.com/yok-tottii/micwatch/internal/wizard"
)

// Frames buffered per consumer when one capture stream feeds both loops
const fanoutDepth = 32

// RunCmd runs trigger detection and gain control together
type RunCmd struct {
	Backend string `help:"Override the trigger backend (auto, porcupine, approximate)." placeholder:"NAME"`
	NoKeys  bool   `help:"Do not tap configured keys on triggers."`
	DryRun  bool   `help:"Compute gain adjustments without changing the volume."`
}

// Run implements the run command
func (c *RunCmd) Run(ctx context.Context, app *App) error {
	backend, err := app.backend(c.Backend, nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	handlers, keyTaps, err := app.handlers(c.NoKeys)
	if err != nil {
		return err
	}
	app.checkPermissions(keyTaps)

	mic, err := app.openMicrophone(backend.FrameLength(), backend.SampleRate())
	if err != nil {
		return err
	}
	fan := audio.NewFanout(mic, 2, fanoutDepth)
	defer fan.Close()

	gain, err := app.gainLoop(fan.Branch(1), c.DryRun)
	if err != nil {
		return err
	}

	mon := app.newMonitor()
	defer app.startServer(mon)()
	defer app.watchHotkey(mon)()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fan.Run(gctx)
	})
	g.Go(func() error {
		return mon.RunTrigger(gctx, monitor.TriggerLoop{
			Source:     fan.Branch(0),
			Detector:   backend,
			SampleRate: backend.SampleRate(),
			Handlers:   handlers,
		})
	})
	g.Go(func() error {
		return mon.RunGain(gctx, gain)
	})
	return app.notifyFailure(g.Wait())
}

// ListenCmd runs trigger detection only
type ListenCmd struct {
	Backend string `help:"Override the trigger backend (auto, porcupine, approximate)." placeholder:"NAME"`
	NoKeys  bool   `help:"Do not tap configured keys on triggers."`
}

// Run implements the listen command
func (c *ListenCmd) Run(ctx context.Context, app *App) error {
	backend, err := app.backend(c.Backend, nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	handlers, keyTaps, err := app.handlers(c.NoKeys)
	if err != nil {
		return err
	}
	app.checkPermissions(keyTaps)

	mic, err := app.openMicrophone(backend.FrameLength(), backend.SampleRate())
	if err != nil {
		return err
	}
	defer mic.Close()

	mon := app.newMonitor()
	defer app.startServer(mon)()
	defer app.watchHotkey(mon)()

	return app.notifyFailure(mon.RunTrigger(ctx, monitor.TriggerLoop{
		Source:     mic,
		Detector:   backend,
		SampleRate: backend.SampleRate(),
		Handlers:   handlers,
	}))
}

// AGCCmd runs gain control only
type AGCCmd struct {
	DryRun bool `help:"Compute adjustments without changing the volume."`
}

// Run implements the agc command
func (c *AGCCmd) Run(ctx context.Context, app *App) error {
	app.checkPermissions(false)

	settings := app.cfg.AudioSettings()
	mic, err := app.openMicrophone(settings.FrameLength, settings.SampleRate)
	if err != nil {
		return err
	}
	defer mic.Close()

	gain, err := app.gainLoop(mic, c.DryRun)
	if err != nil {
		return err
	}

	mon := app.newMonitor()
	defer app.startServer(mon)()
	defer app.watchHotkey(mon)()

	return mon.RunGain(ctx, gain)
}

// ReplayCmd runs a recording through the trigger detector
type ReplayCmd struct {
	File    string `arg:"" type:"existingfile" help:"WAV file to replay."`
	Backend string `help:"Override the trigger backend (auto, porcupine, approximate)." placeholder:"NAME"`
	JSON    bool   `help:"Print the full result as JSON."`
}

// Run implements the replay command
func (c *ReplayCmd) Run(ctx context.Context, app *App) error {
	// Cooldowns follow the recording's timeline, not the wall clock
	clock := monitor.NewFrameClock(time.Now())

	backend, err := app.backend(c.Backend, clock)
	if err != nil {
		return err
	}
	defer backend.Close()

	src, err := audio.OpenWAV(app.fs, c.File, backend.FrameLength())
	if err != nil {
		return err
	}
	defer src.Close()

	if src.SampleRate() != backend.SampleRate() {
		msg := fmt.Sprintf("%s is %d Hz but the %s backend expects %d Hz; results may be unreliable",
			c.File, src.SampleRate(), backend.Name(), backend.SampleRate())
		app.log.Warn("%s", msg)
		cli.PrintWarning(msg)
	}

	result, err := monitor.Replay(ctx, src, backend, src.SampleRate(), clock)
	if err != nil {
		return err
	}
	app.log.Info("Replayed %s: %d frames, %d triggers", c.File, len(result.Frames), len(result.Events))

	if c.JSON {
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	cli.PrintReplay(app.stdout, c.File, result)
	return nil
}

// RecordCmd captures the microphone to a WAV file
type RecordCmd struct {
	File     string        `arg:"" type:"path" help:"WAV file to write."`
	Duration time.Duration `short:"t" default:"10s" help:"Length of the recording; Ctrl+C stops early."`
}

// Run implements the record command
func (c *RecordCmd) Run(ctx context.Context, app *App) error {
	app.checkPermissions(false)

	settings := app.cfg.AudioSettings()
	rec, err := recording.New(recording.Config{
		SampleRate:  settings.SampleRate,
		MaxDuration: c.Duration,
	}, app.log)
	if err != nil {
		return err
	}

	mic, err := app.openMicrophone(settings.FrameLength, settings.SampleRate)
	if err != nil {
		return err
	}
	defer mic.Close()

	app.log.Info("Recording %v to %s", c.Duration, c.File)
	result, err := rec.RecordFile(ctx, app.fs, c.File, mic)
	if err != nil {
		return err
	}
	cli.PrintRecording(app.stdout, c.File, result.Frames, result.Duration)
	return nil
}

// InitCmd writes a starter config and reports setup progress
type InitCmd struct {
	Force bool `help:"Overwrite an existing config file."`
}

// Run implements the init command
func (c *InitCmd) Run(app *App) error {
	w := wizard.NewSetupWizard(app.fs, app.configPath)

	err := w.WriteDefaults(config.DefaultConfig(), c.Force)
	switch {
	case err == nil:
		app.log.Info("Wrote default config to %s", w.GetConfigPath())
	case errors.Is(err, wizard.ErrConfigExists):
		cli.PrintWarning(fmt.Sprintf("%s exists; pass --force to overwrite", w.GetConfigPath()))
	default:
		return err
	}

	checker := permissions.NewPermissionChecker()
	cli.PrintSetup(app.stdout, w.GetConfigPath(), w.GetProgress(app.cfg, checker))
	if w.ShouldShowWizard(app.cfg, checker) {
		cli.PrintWarning("setup incomplete; edit the config and run init again")
	}
	return nil
}

// VersionCmd prints version information. It is handled before configuration loads.
type VersionCmd struct{}

// backend builds the configured wake word backend. A non-nil clock drives
// the approximate backend's cooldown.
func (a *App) backend(override string, clock trigger.Clock) (wakeword.Backend, error) {
	settings, err := a.cfg.WakewordSettings()
	if err != nil {
		return nil, err
	}
	if override != "" {
		settings.Backend = override
	}
	settings.Trigger.Clock = clock

	backend, err := wakeword.New(settings, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to start wake word backend: %w", err)
	}
	a.log.Info("Wake word backend: %s (keywords: %v)", backend.Name(), backend.Keywords())
	return backend, nil
}

// openMicrophone opens the configured device with the frame shape a consumer needs
func (a *App) openMicrophone(frameLength, sampleRate int) (*audio.PortAudioSource, error) {
	settings := a.cfg.AudioSettings()
	settings.FrameLength = frameLength
	settings.SampleRate = sampleRate

	mic, err := audio.NewPortAudioSource(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}
	a.log.Info("Capturing from device %d at %d Hz, %d samples per frame (%s)",
		settings.DeviceID, settings.SampleRate, settings.FrameLength, settings.Latency)
	return mic, nil
}

// handlers returns the trigger handlers: a console printer and, when any
// keyword slot has a key, the key dispatcher
func (a *App) handlers(noKeys bool) ([]monitor.Handler, bool, error) {
	handlers := []monitor.Handler{
		func(ctx context.Context, event monitor.Event) {
			cli.PrintDetection(a.stdout, event)
		},
	}
	if n := a.notifier(); n != nil {
		handlers = append(handlers, n.Handle)
	}
	if noKeys {
		return handlers, false, nil
	}

	bindings := a.cfg.KeyBindings()
	bound := false
	for _, b := range bindings {
		if b.Key != "" {
			bound = true
			break
		}
	}
	if !bound {
		return handlers, false, nil
	}

	dispatcher, err := keyaction.NewDispatcher(bindings, nil, a.log)
	if err != nil {
		return nil, false, fmt.Errorf("invalid key binding: %w", err)
	}
	for i, b := range dispatcher.Bindings() {
		a.log.Info("Slot %d taps %s", i, b)
	}
	return append(handlers, dispatcher.Handle), true, nil
}

// notifier returns the desktop notifier, or nil when trigger.notify is off
func (a *App) notifier() *notification.NotificationManager {
	if !a.cfg.Trigger.Notify {
		return nil
	}
	if a.notify == nil {
		a.notify = notification.NewNotificationManager(appName, nil, a.log)
	}
	return a.notify
}

// notifyFailure raises a desktop notification when a capture loop fails
func (a *App) notifyFailure(err error) error {
	if err == nil {
		return nil
	}
	if n := a.notifier(); n != nil {
		if nerr := n.DeviceLost(context.Background(), err); nerr != nil {
			a.log.Warn("Notification failed: %v", nerr)
		}
	}
	return err
}

// gainLoop assembles the controller, the volume store and the console printer
func (a *App) gainLoop(src audio.Source, dryRun bool) (monitor.GainLoop, error) {
	ctrl, err := agc.New(a.cfg.AGCSettings())
	if err != nil {
		return monitor.GainLoop{}, err
	}

	store, err := volume.New(a.cfg.AGC.Mixer, a.cfg.AGC.Control)
	if err != nil {
		return monitor.GainLoop{}, err
	}
	if dryRun {
		a.log.Info("Dry run: volume changes are computed but not applied")
		store = volume.NewDryRun(store)
	}

	return monitor.GainLoop{
		Source:     src,
		Controller: ctrl,
		Store:      store,
		Interval:   a.cfg.Interval(),
		OnDecision: func(rms float64, decision agc.Decision) {
			if decision.Changed() {
				cli.PrintDecision(a.stdout, rms, decision)
			}
		},
	}, nil
}

func (a *App) newMonitor() *monitor.Monitor {
	return monitor.New(monitor.Options{
		Logger:  a.log,
		Metrics: a.metrics,
	})
}

// checkPermissions warns about missing privacy grants; capture may still work
func (a *App) checkPermissions(keyTaps bool) {
	checker := permissions.NewPermissionChecker()
	if err := checker.Require(keyTaps); err != nil {
		a.log.Warn("%v", err)
		cli.PrintWarning(checker.GetMissingPermissionsMessage())
	}
	if a.fs != nil && wizard.NewSetupWizard(a.fs, a.configPath).IsFirstRun() {
		a.log.Info("No config file at %s; running on defaults (see `micwatch init`)", a.configPath)
	}
}

// startServer serves the status API when enabled and returns its stop function
func (a *App) startServer(mon *monitor.Monitor) func() {
	if !a.cfg.Server.Enabled {
		return func() {}
	}

	settings := server.DefaultConfig()
	settings.Port = a.cfg.Server.Port

	srv := server.New(settings, a.log)
	api.New(a.cfg, mon, a.log).RegisterRoutes(srv.GetMux())

	if err := srv.Start(); err != nil {
		a.log.Warn("Status server disabled: %v", err)
		return func() {}
	}
	a.log.Info("Status API at %s/api/status", srv.URL())

	return func() {
		if err := srv.Stop(); err != nil {
			a.log.Warn("Failed to stop status server: %v", err)
		}
	}
}

// watchHotkey maps the pause hotkey onto the monitor and returns its stop function
func (a *App) watchHotkey(mon *monitor.Monitor) func() {
	if !a.cfg.Hotkey.Enabled {
		return func() {}
	}

	for _, c := range a.cfg.Hotkey.Conflicts() {
		a.log.Warn("Pause hotkey may conflict with %s (%s)", c.Name, c.Description)
	}

	settings := a.cfg.HotkeySettings()
	mgr := hotkey.New()
	if err := mgr.Register(settings); err != nil {
		a.log.Warn("Pause hotkey disabled: %v", err)
		return func() {}
	}
	a.log.Info("Pause hotkey: %s", hotkey.FormatHotkey(settings.Modifiers, settings.Key))

	events := mgr.Events()
	go func() {
		for event := range events {
			switch event.Type {
			case hotkey.Paused:
				mon.Pause()
			case hotkey.Resumed:
				mon.Resume()
			}
		}
	}()

	return func() {
		if err := mgr.Close(); err != nil {
			a.log.Warn("Failed to release pause hotkey: %v", err)
		}
	}
}
