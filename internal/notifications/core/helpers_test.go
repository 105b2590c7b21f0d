package core

import (
	"context"
	"sync"

	"alertsystem/internal/config"
	"alertsystem/internal/types"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *mockLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) With(...any) types.Logger { return l }

// stubChannel is the smallest Channel built on Routes.
type stubChannel struct {
	spec   config.ChannelSpec
	routes *Routes
}

func newStubChannel(spec config.ChannelSpec, _ Deps) (Channel, error) {
	routes, err := NewRoutes(spec)
	if err != nil {
		return nil, err
	}
	return &stubChannel{spec: spec, routes: routes}, nil
}

func (c *stubChannel) Name() string                                     { return c.spec.Name }
func (c *stubChannel) Type() string                                     { return c.spec.Type }
func (c *stubChannel) ResolveDestinations(tag string) ([]string, error) { return c.routes.Resolve(tag) }
func (c *stubChannel) SystemAlertsRoutes() []string                     { return c.routes.System() }

func (c *stubChannel) Send(_ context.Context, _ types.Notification, dest string) types.DeliveryOutcome {
	return types.Sent(c.spec.Name, c.spec.Type, dest, "", 0)
}
