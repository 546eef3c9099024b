package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sense-firmware/pkg/api"
	"sense-firmware/pkg/camera"
	"sense-firmware/pkg/config"
	"sense-firmware/pkg/globals"
	"sense-firmware/pkg/logger"
	"sense-firmware/pkg/metrics"
	"sense-firmware/pkg/panel"
	"sense-firmware/pkg/reconfig"
	"sense-firmware/pkg/storage"
	"sense-firmware/pkg/system"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const resyncRetries = 4

func main() {
	pflag.StringVar(&globals.SettingsPath, "settings", globals.SettingsPath, "path of the settings file")
	pflag.StringVar(&globals.ListenAddr, "listen", globals.ListenAddr, "address of the settings endpoint")
	pflag.StringVar(&globals.VideoDevice, "video-device", globals.VideoDevice, "v4l2 camera device")
	pflag.StringVar(&globals.SensorModel, "sensor", globals.SensorModel, "camera sensor model (detected when empty)")
	pflag.StringVar(&globals.LEDPin, "led-pin", globals.LEDPin, "GPIO line of the status LED")
	pflag.StringVar(&globals.ResetPin, "reset-pin", globals.ResetPin, "GPIO line of the factory reset button")
	pflag.Uint64Var(&globals.LargeMemoryThreshold, "large-memory-threshold", globals.LargeMemoryThreshold, "RAM in bytes from which the large-memory capture defaults apply")
	logLevel := pflag.String("log-level", "info", "log level (debug, info, warn, error)")
	pflag.Parse()

	// Initialize logger first to capture all logs
	log, err := logger.Init(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	log.WithField("version", globals.FirmwareVersion).Info("Starting")

	// Panel hardware is optional, both types are nil-safe
	led, err := panel.OpenLED(globals.LEDPin)
	if err != nil {
		log.WithError(err).Warn("Status LED unavailable")
	}
	button, err := panel.OpenButton(globals.ResetPin)
	if err != nil {
		log.WithError(err).Warn("Reset button unavailable")
	}

	m := metrics.New()

	version, err := config.ParseVersion(globals.FirmwareVersion)
	if err != nil {
		log.WithError(err).Fatal("Invalid firmware version")
	}
	largeMemory, err := system.LargeMemory(globals.LargeMemoryThreshold)
	if err != nil {
		log.WithError(err).Warn("Failed to detect memory size, using small-memory defaults")
	}
	defaults := config.Default(config.ExpectedTag(version), largeMemory)
	config.Init(defaults)
	codec := config.NewCodec(defaults)

	store := storage.New(storage.Options{
		Path:  globals.SettingsPath,
		Codec: codec,
		Indicator: storage.IndicatorFunc(func(f storage.Fault) {
			m.ObserveFault(int(f))
			if err := led.Blink(storage.FaultKind, int(f)); err != nil {
				log.WithError(err).Warn("Failed to blink fault")
			}
		}),
		Log: log,
	})

	if button.HeldFor(globals.ResetHold) {
		out := store.FactoryReset()
		m.ObserveLoad(out.State.String())
		restart(log, out)
	}

	out := store.Load()
	m.ObserveLoad(out.State.String())
	if out.Restart {
		restart(log, out)
	}
	config.Get().Replace(out.Record)

	cam := camera.NewV4L2(camera.Options{
		Device: globals.VideoDevice,
		Sensor: globals.SensorModel,
		Log:    log,
	})

	applier := reconfig.New(config.Get(), cam, store, log, m)
	// The video device can lag behind boot
	err = backoff.RetryNotify(applier.Resync,
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), resyncRetries),
		func(err error, next time.Duration) {
			log.WithError(err).WithField("retry_in", next.String()).Debug("Camera sync failed")
		})
	if err != nil {
		log.WithError(err).Warn("Camera not fully synchronized with settings")
	}

	srv := api.New(api.Options{
		Live:    config.Get(),
		Codec:   codec,
		Applier: applier,
		Camera:  cam,
		Metrics: m,
		Log:     log,
	})
	applier.OnApply(srv.Publish)

	if err := srv.Start(globals.ListenAddr); err != nil {
		log.WithError(err).Fatal("Failed to start settings server")
	}

	// Wait for interrupt signal, keep everything alive until then
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Failed to stop settings server")
	}
}

// restart reboots the device after the settings state machine asked for it.
// It does not return.
func restart(log *logrus.Logger, out storage.Outcome) {
	entry := log.WithField("state", out.State.String())
	if out.Err != nil {
		entry = entry.WithError(out.Err)
	}
	entry.Warn("Settings reset, rebooting")

	if err := system.Reboot(); err != nil {
		entry.WithError(err).Fatal("Failed to reboot")
	}
	os.Exit(0)
}
