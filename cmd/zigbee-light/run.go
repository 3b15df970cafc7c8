package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/zigbee-light/internal/app"
	"github.com/sweeney/zigbee-light/internal/config"
	"github.com/sweeney/zigbee-light/internal/gpio"
	"github.com/sweeney/zigbee-light/internal/mqtt"
	"github.com/sweeney/zigbee-light/internal/status"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the light until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, logger)
		},
	}
}

// hardware is the opened button and LED.
type hardware struct {
	button gpio.Button
	led    gpio.LED
}

func (h hardware) Close() {
	h.button.Close()
	h.led.Close()
}

func openHardware(c config.GPIOConfig) (hardware, error) {
	if c.Simulated {
		return hardware{button: gpio.NewFakeButton(), led: gpio.NewFakeLED()}, nil
	}
	button, err := gpio.NewRealButton(c.Chip, c.ButtonPin, c.Debounce.Duration())
	if err != nil {
		return hardware{}, fmt.Errorf("init button: %w", err)
	}
	led, err := gpio.NewRealLED(c.Chip, c.LEDPin)
	if err != nil {
		button.Close()
		return hardware{}, fmt.Errorf("init led: %w", err)
	}
	return hardware{button: button, led: led}, nil
}

func run(parent context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	role, err := cfg.Zigbee.ParseRole()
	if err != nil {
		return err
	}

	hw, err := openHardware(cfg.GPIO)
	if err != nil {
		return err
	}
	defer hw.Close()

	store, err := zigbee.OpenCredentialStore(cfg.Zigbee.StorePath)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer store.Close()

	stack := zigbee.NewSimStack(zigbee.SimConfig{
		JoinDelay: cfg.Zigbee.JoinDelay.Duration(),
		Networks:  cfg.Zigbee.SimNetworks(),
		Device:    cfg.Zigbee.DeviceInfo(),
	}, store, logger)
	defer stack.Close()

	deps := app.Deps{Button: hw.button, LED: hw.led, Stack: stack}
	if cfg.MQTT.Enabled {
		handler := mqtt.NewCommandHandler(stack, logger)
		publisher, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Username:   cfg.MQTT.Username,
			Password:   cfg.MQTT.Password,
			Topics:     mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix},
			BufferSize: cfg.MQTT.BufferSize,
			OnSet:      handler.Handle,
		}, logger)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		deps.Publisher = publisher
		deps.MQTT = publisher
	}

	a := app.New(app.Options{
		Role:        role,
		MaxChildren: uint8(cfg.Zigbee.MaxChildren),
		Heartbeat:   cfg.Heartbeat.Duration(),
		HTTPListen:  cfg.HTTP.Listen,
		Status:      statusConfig(cfg),
		HostInfo:    readHostInfo,
	}, deps, logger)

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			logger.Info().Str("signal", s.String()).Msg("received signal, shutting down")
			cancel(errors.New(signalName(s)))
		case <-ctx.Done():
		}
	}()

	return a.Run(ctx)
}

func statusConfig(cfg *config.Config) status.Config {
	sc := status.Config{
		Role:        cfg.Zigbee.Role,
		ButtonPin:   cfg.GPIO.ButtonPin,
		LEDPin:      cfg.GPIO.LEDPin,
		Simulated:   cfg.GPIO.Simulated,
		DebounceMs:  cfg.GPIO.Debounce.Duration().Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Duration().Milliseconds(),
		HTTPListen:  cfg.HTTP.Listen,
		Device:      cfg.Zigbee.DeviceInfo(),
	}
	if cfg.MQTT.Enabled {
		sc.Broker = cfg.MQTT.Broker
	}
	return sc
}
