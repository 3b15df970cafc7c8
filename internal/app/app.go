// Package app wires the light together: the stack loop drives the
// commissioning machine, attribute writes land in the light store, the button
// feeds the gesture controller, and state is reported over MQTT and HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/zigbee-light/internal/commission"
	"github.com/sweeney/zigbee-light/internal/dispatch"
	"github.com/sweeney/zigbee-light/internal/gesture"
	"github.com/sweeney/zigbee-light/internal/light"
	"github.com/sweeney/zigbee-light/internal/mqtt"
	"github.com/sweeney/zigbee-light/internal/status"
	"github.com/sweeney/zigbee-light/internal/web"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

// refreshInterval is how often the status tracker is brought up to date.
const refreshInterval = time.Second

// Options configures an App.
type Options struct {
	Role        zigbee.Role
	MaxChildren uint8
	Heartbeat   time.Duration // 0 disables
	HTTPListen  string        // empty disables
	Status      status.Config
	HostInfo    func() *status.HostInfo // nil when unknown
}

// Deps are the collaborators an App drives.
type Deps struct {
	Button    gesture.Button
	LED       light.Pin
	Stack     zigbee.Stack
	Publisher mqtt.Publisher        // nil disables MQTT reporting
	MQTT      mqtt.ConnectionStatus // nil when MQTT is disabled
}

// App is one running light.
type App struct {
	opts   Options
	deps   Deps
	logger zerolog.Logger

	store      *light.Store
	machine    *commission.Machine
	dispatcher *dispatch.Dispatcher
	gesture    *gesture.Controller
	tracker    *status.Tracker
	reporter   *mqtt.Reporter
	web        *web.Server

	events chan string
}

// New builds an App. Nothing runs until Run.
func New(opts Options, deps Deps, logger zerolog.Logger) *App {
	a := &App{
		opts:   opts,
		deps:   deps,
		logger: logger.With().Str("component", "app").Logger(),
		events: make(chan string, 16),
	}

	a.store = light.NewStore(light.State{}, light.NewLEDActuator(deps.LED), logger)
	a.machine = commission.New(deps.Stack, commission.Config{Role: opts.Role, MaxChildren: opts.MaxChildren}, logger)
	a.dispatcher = dispatch.New(a.store, logger)
	a.gesture = gesture.NewController(deps.Button, gesture.NewCountdown(), a.store, a.machine, logger)
	if opts.Status.Device == (zigbee.DeviceInfo{}) {
		opts.Status.Device = zigbee.DefaultDeviceInfo()
	}
	a.tracker = status.NewTracker(time.Now(), opts.Status)
	if deps.Publisher != nil {
		a.reporter = mqtt.NewReporter(deps.Publisher, logger)
	}
	if opts.HTTPListen != "" {
		a.web = web.New(opts.HTTPListen, a.tracker, logger)
	}
	return a
}

// Tracker exposes the status tracker.
func (a *App) Tracker() *status.Tracker { return a.tracker }

// Machine exposes the commissioning machine.
func (a *App) Machine() *commission.Machine { return a.machine }

// Light exposes the light store.
func (a *App) Light() *light.Store { return a.store }

// Run boots the stack and runs every task until ctx is done or one of them
// fails. The cancel cause of ctx, if any, is reported as the shutdown reason.
func (a *App) Run(ctx context.Context) error {
	a.store.OnChange(a.tracker.SetLight)
	if a.reporter != nil {
		a.store.OnChange(a.reporter.Notify)
	}
	a.machine.OnEvent(a.onCommissionEvent)
	a.deps.Stack.OnAttributeWrite(a.dispatcher.OnAttributeWrite)

	a.tracker.SetLight(a.store.Init())
	if a.reporter != nil {
		a.reporter.Notify(a.store.Snapshot())
	}

	if err := a.machine.Boot(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	a.publishSystem("STARTUP", "", true)
	a.logger.Info().
		Str("role", string(a.opts.Role)).
		Dur("heartbeat", a.opts.Heartbeat).
		Str("http", a.opts.HTTPListen).
		Bool("mqtt", a.deps.Publisher != nil).
		Msg("started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.deps.Stack.Run(gctx, a.machine.HandleSignal) })
	g.Go(func() error { return a.gesture.Run(gctx) })
	g.Go(func() error { return a.monitor(gctx) })
	if a.reporter != nil {
		g.Go(func() error { return a.reporter.Run(gctx) })
		g.Go(func() error { return a.publishEvents(gctx) })
	}
	if a.web != nil {
		g.Go(func() error { return a.web.Run(gctx) })
	}
	err := g.Wait()

	reason := shutdownReason(ctx)
	a.logger.Info().Str("reason", reason).Msg("shutting down")
	a.publishSystem("SHUTDOWN", reason, true)
	return err
}

func shutdownReason(ctx context.Context) string {
	cause := context.Cause(ctx)
	if cause == nil {
		return "ERROR"
	}
	if errors.Is(cause, context.Canceled) {
		return "CANCELLED"
	}
	return cause.Error()
}

func (a *App) onCommissionEvent(ev commission.Event) {
	a.tracker.RecordEvent(ev)
	if a.deps.Publisher == nil || ev.Type == commission.EventSteeringFailed {
		return
	}
	// Observers run on the stack loop; publishing happens elsewhere.
	select {
	case a.events <- string(ev.Type):
	default:
		a.logger.Warn().Str("event", string(ev.Type)).Msg("system event queue full, dropping")
	}
}

func (a *App) publishEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case name := <-a.events:
			a.publishSystem(name, "", false)
		}
	}
}

func (a *App) monitor(ctx context.Context) error {
	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()

	var heartbeat <-chan time.Time
	if a.opts.Heartbeat > 0 {
		t := time.NewTicker(a.opts.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refresh.C:
			a.refresh()
		case <-heartbeat:
			snap := a.machine.Snapshot()
			a.logger.Info().
				Str("state", snap.State.String()).
				Uint8("channel", snap.Channel).
				Int("steering_failures", snap.Counts.SteeringFailures).
				Msg("heartbeat")
			a.publishSystem("HEARTBEAT", "", false)
		}
	}
}

func (a *App) refresh() {
	a.tracker.SetNetwork(a.machine.Snapshot())
	a.tracker.SetGesture(a.gesture.Snapshot())
	if a.deps.MQTT != nil {
		a.tracker.SetMQTTConnected(a.deps.MQTT.IsConnected())
	}
	if a.opts.HostInfo != nil {
		a.tracker.SetHost(a.opts.HostInfo())
	}
}

// publishSystem sends a system event carrying a full status snapshot.
func (a *App) publishSystem(event, reason string, retained bool) {
	if a.deps.Publisher == nil {
		return
	}
	a.refresh()
	snap := a.tracker.Snapshot()
	err := a.deps.Publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		a.logger.Error().Err(err).Str("event", event).Msg("publish system event")
		return
	}
	a.logger.Debug().Str("event", event).Msg("published system event")
}
