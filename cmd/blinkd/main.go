// Command blinkd drives status LEDs on GPIO: a randomized blinker, a
// window job that blinks at the top of every quarter hour, and a button
// that speeds up the one and opens a pulse window on the other.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/sweeney/blinkd/internal/config"
	"github.com/sweeney/blinkd/internal/gpio"
	"github.com/sweeney/blinkd/internal/logging"
	"github.com/sweeney/blinkd/internal/mode"
	"github.com/sweeney/blinkd/internal/mqtt"
	"github.com/sweeney/blinkd/internal/status"
	"github.com/sweeney/blinkd/internal/web"
)

const (
	notifyReady    = daemon.SdNotifyReady
	notifyStopping = daemon.SdNotifyStopping
	notifyWatchdog = daemon.SdNotifyWatchdog
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults when empty)")
	logLevel := flag.String("log-level", "", "Override log.level (debug, info, warn, error)")
	printMode := flag.Bool("print-mode", false, "Print the day/night mode the next start will use and exit")
	dryRun := flag.Bool("dry-run", false, "Use the in-memory GPIO backend and log every write")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "blinkd: %v\n", err)
		os.Exit(2)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *dryRun {
		cfg.GPIO.Backend = gpio.BackendFake
	}

	logger := logging.Init(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Journal: cfg.Log.Journal,
	})

	if *printMode {
		if err := printCurrentMode(context.Background(), cfg.Mode, time.Now()); err != nil {
			logger.Error("fatal", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *dryRun); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, dryRun bool) error {
	startTime := time.Now()

	fac, err := gpio.Open(gpio.Options{
		Backend:  cfg.GPIO.Backend,
		Chip:     cfg.GPIO.Chip,
		Consumer: cfg.GPIO.Consumer,
		EdgePoll: cfg.GPIO.EdgePoll,
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := fac.Close(); err != nil {
			slog.Error("gpio cleanup failed", "err", err)
		}
	}()
	if fake, ok := fac.(*gpio.FakeFacility); ok {
		fake.Verbose = dryRun
	}

	night := false
	if cfg.Job.Enabled && cfg.Job.Variant == config.VariantPersisted {
		night, err = resolveMode(context.Background(), cfg.Mode, startTime)
		if err != nil {
			return err
		}
	}

	a, err := newApp(fac, cfg, night, nil, startTime)
	if err != nil {
		return err
	}
	if cfg.Mode.Source == mode.SourceSun {
		a.useSun(mode.SunMode{Latitude: cfg.Mode.Latitude, Longitude: cfg.Mode.Longitude}, startTime)
	}

	var publisher mqtt.Publisher = mqtt.Nop{}
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Prefix:   cfg.MQTT.Prefix,
			Logger:   logging.For("mqtt"),
		})
		publisher = p
		a.mqttStatus = p
	}
	defer publisher.Close()
	a.publisher = publisher

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:           cfg.Poll.Milliseconds(),
		HeartbeatMs:      cfg.Heartbeat.Milliseconds(),
		Backend:          cfg.GPIO.Backend,
		Variant:          cfg.Job.Variant,
		EveryMinutes:     cfg.Job.Window().EveryMinutes,
		ThresholdSeconds: cfg.Job.Threshold(),
		ModeSource:       cfg.Mode.Source,
		Broker:           cfg.MQTT.Broker,
		HTTPAddr:         cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	a.tracker = tracker

	if err := publisher.PublishSystem(a.statusEvent(startTime, mqtt.EventStartup, "", true)); err != nil {
		slog.Warn("failed to publish startup event", "err", err)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	a.notify = sdNotify
	if wd, err := daemon.SdWatchdogEnabled(false); err == nil && wd > 0 {
		a.watchdog = wd
	}

	slog.Info("started",
		"backend", cfg.GPIO.Backend,
		"poll", cfg.Poll,
		"variant", cfg.Job.Variant,
		"mode", status.ModeString(night),
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.Heartbeat)
	a.notify(notifyReady)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(a, time.Now, ticker.C, sigCh)
}

// runLoop polls on every tick until a signal arrives or a poll fails.
// Both paths publish SHUTDOWN before returning so deferred cleanup runs.
func runLoop(a *app, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			reason := signalName(s)
			slog.Info("shutting down", "signal", reason)
			a.shutdown(now(), reason)
			return nil

		case <-tick:
			t := now()
			if err := a.poll(t); err != nil {
				a.shutdown(t, "ERROR")
				return err
			}
			a.maintain(t)
		}
	}
}

func (a *app) shutdown(t time.Time, reason string) {
	a.notify(notifyStopping)
	if err := a.publisher.PublishSystem(a.statusEvent(t, mqtt.EventShutdown, reason, true)); err != nil {
		slog.Warn("failed to publish shutdown event", "err", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// resolveMode returns the night flag for this run. The toggle source
// flips the stored flag and uses the value from before the flip.
func resolveMode(ctx context.Context, cfg config.ModeConfig, now time.Time) (bool, error) {
	if cfg.Source == mode.SourceSun {
		return mode.SunMode{Latitude: cfg.Latitude, Longitude: cfg.Longitude}.IsNight(now), nil
	}
	store, err := mode.Open(cfg.Path, cfg.AutoCreate)
	if err != nil {
		return false, err
	}
	defer store.Close()
	night, err := store.ToggleAndGetPrevious(ctx)
	if err != nil {
		return false, err
	}
	return night, nil
}

// printCurrentMode reports the mode without toggling it.
func printCurrentMode(ctx context.Context, cfg config.ModeConfig, now time.Time) error {
	night := false
	if cfg.Source == mode.SourceSun {
		night = mode.SunMode{Latitude: cfg.Latitude, Longitude: cfg.Longitude}.IsNight(now)
	} else {
		store, err := mode.Open(cfg.Path, cfg.AutoCreate)
		if err != nil {
			return err
		}
		defer store.Close()
		if night, err = store.Current(ctx); err != nil {
			return err
		}
	}
	fmt.Printf("mode: %s (source %s)\n", status.ModeString(night), cfg.Source)
	return nil
}

func sdNotify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		slog.Debug("sd_notify failed", "state", state, "err", err)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
