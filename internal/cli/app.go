package cli

import (
	"fmt"
	"os"

	"github.com/VekotinVerstas/sensehel/internal/apartment"
	"github.com/VekotinVerstas/sensehel/internal/eventbus"
	"github.com/VekotinVerstas/sensehel/internal/gateway"
	"github.com/VekotinVerstas/sensehel/internal/store"
)

// app wires the session store, event bus, gateway, and apartment cache for
// one command invocation. It subscribes to session lifecycle events so the
// shell can react to a forced teardown no matter which call triggered it.
type app struct {
	store   *store.Store
	bus     *eventbus.Bus
	gateway *gateway.Gateway
	cache   *apartment.Cache

	stopWatch func()
	done      chan struct{}
}

// newApp builds the application graph from the loaded configuration.
func newApp() (*app, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}

	st := store.New(cfg.StatePath)
	bus := eventbus.New()
	gw := gateway.New(cfg.ServerURL, st, bus)

	a := &app{
		store:   st,
		bus:     bus,
		gateway: gw,
		cache:   apartment.NewCache(gw),
		done:    make(chan struct{}),
	}

	events, unsubscribe := bus.Subscribe(eventbus.TopicSessionExpired, 1)
	a.stopWatch = unsubscribe
	go func() {
		defer close(a.done)
		for event := range events {
			a.cache.Reset()
			if notice, ok := event.Data.(string); ok {
				errorLabel.Fprintln(os.Stderr, notice)
			}
			fmt.Fprintln(os.Stderr, "Log in again with \"sensehel login\".")
		}
	}()

	return a, nil
}

// close drains the event watcher before the command returns, so a teardown
// notice triggered by the final request is always printed.
func (a *app) close() {
	a.stopWatch()
	<-a.done
	a.bus.Shutdown()
}
