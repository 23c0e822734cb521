package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"golang.design/x/hotkey/mainthread"

	"github.com/yok-tottii/micwatch/internal/cli"
	"github.com/yok-tottii/micwatch/internal/config"
	"github.com/yok-tottii/micwatch/internal/logger"
	"github.com/yok-tottii/micwatch/internal/metrics"
	"github.com/yok-tottii/micwatch/internal/notification"
)

const appName = "micwatch"

var version = "0.1.0"

// CLI defines the command-line interface
type CLI struct {
	Config    string `short:"c" type:"path" help:"Path to a YAML or JSON config file." placeholder:"PATH"`
	Env       string `type:"path" help:"Path to a .env file holding the access key." placeholder:"PATH"`
	LogLevel  string `help:"Override the configured log level (debug, info, warn, error)." placeholder:"LEVEL"`
	LogDir    string `type:"path" help:"Directory for rotated log files." placeholder:"DIR"`
	NoLogFile bool   `help:"Log to the console only."`
	Device    *int   `short:"d" help:"Input device index; -1 selects the system default." placeholder:"INDEX"`

	Run     RunCmd     `cmd:"" default:"1" help:"Detect triggers and control gain on one capture stream."`
	Listen  ListenCmd  `cmd:"" help:"Detect triggers from the microphone."`
	AGC     AGCCmd     `cmd:"" name:"agc" help:"Keep microphone loudness inside the target band."`
	Replay  ReplayCmd  `cmd:"" help:"Run a WAV recording through the trigger detector."`
	Record  RecordCmd  `cmd:"" help:"Capture the microphone to a WAV file for replay."`
	Init    InitCmd    `cmd:"" help:"Write a starter config file and check setup progress."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// App carries the state shared by every command
type App struct {
	cfg        *config.Config
	configPath string
	fs         afero.Fs
	log        *logger.Logger
	metrics    *metrics.Metrics
	stdout     io.Writer
	notify     *notification.NotificationManager

	shutdownMetrics func(context.Context) error
}

func main() {
	code := 0
	// The macOS hotkey backend needs the main thread's event loop
	mainthread.Init(func() { code = run() })
	os.Exit(code)
}

func run() int {
	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name(appName),
		kong.Description("Microphone trigger detection and gain control"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if kctx.Command() == "version" {
		cli.PrintVersion(os.Stdout, version)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cliArgs)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	defer app.Close()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(app); err != nil {
		app.log.Error("%s failed: %v", kctx.Command(), err)
		cli.PrintError(err.Error())
		return 1
	}
	return 0
}

// newApp loads configuration and sets up logging and metrics
func newApp(ctx context.Context, cliArgs *CLI) (*App, error) {
	envPath := cliArgs.Env
	configPath := cliArgs.Config
	if configPath == "" {
		configPath = config.GetConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if envPath == "" {
		envPath = cfg.DotenvPath
	}
	if err := config.LoadEnv(envPath); err != nil {
		return nil, err
	}

	if cliArgs.LogLevel != "" {
		cfg.LogLevel = cliArgs.LogLevel
	}
	if cliArgs.Device != nil {
		cfg.Audio.DeviceID = *cliArgs.Device
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s:\n%w", configPath, err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logConfig := logger.DefaultConfig()
	logConfig.Level = level
	logConfig.Console = os.Stderr
	if cliArgs.LogDir != "" {
		logConfig.LogDir = cliArgs.LogDir
	}
	if cliArgs.NoLogFile {
		logConfig.LogDir = ""
	}

	log, err := logger.New(logConfig)
	if err != nil {
		return nil, err
	}
	log.Info("micwatch v%s starting (config: %s)", version, configPath)

	shutdown, err := metrics.InitProvider(ctx, metrics.ProviderConfig{ServiceVersion: version})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	m, err := metrics.New(otel.GetMeterProvider())
	if err != nil {
		_ = shutdown(ctx)
		log.Close()
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}

	return &App{
		cfg:             cfg,
		configPath:      configPath,
		fs:              afero.NewOsFs(),
		log:             log,
		metrics:         m,
		stdout:          os.Stdout,
		shutdownMetrics: shutdown,
	}, nil
}

// Close flushes metrics and closes the log
func (a *App) Close() {
	if a.shutdownMetrics != nil {
		if err := a.shutdownMetrics(context.Background()); err != nil {
			a.log.Warn("Failed to shut down metrics: %v", err)
		}
	}
	a.log.Info("micwatch stopped")
	a.log.Close()
}
