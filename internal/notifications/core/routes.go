package core

import (
	"errors"
	"fmt"
	"strings"

	"alertsystem/internal/config"
)

// Routes is the immutable tag→destinations table shared by channel
// implementations. Destinations are trimmed and deduplicated per tag.
type Routes struct {
	channel string
	byTag   map[string][]string
	system  []string
}

// RouteOption adjusts route construction.
type RouteOption func(*routeOptions)

type routeOptions struct {
	defaultSystem []string
	validate      func(string) error
}

// WithDefaultSystemRoutes is used when the channel spec has no system_alerts_routes.
func WithDefaultSystemRoutes(dests ...string) RouteOption {
	return func(o *routeOptions) { o.defaultSystem = dests }
}

// WithDestinationValidator checks every destination at load time.
func WithDestinationValidator(fn func(string) error) RouteOption {
	return func(o *routeOptions) { o.validate = fn }
}

// NewRoutes builds Routes for spec. It fails when the system routes end up
// empty, a tag has no destinations, or a destination fails validation.
func NewRoutes(spec config.ChannelSpec, opts ...RouteOption) (*Routes, error) {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := &Routes{channel: spec.Name, byTag: make(map[string][]string, len(spec.Routes))}
	for tag, dests := range spec.Routes {
		tag = strings.TrimSpace(tag)
		clean, err := cleanDestinations(dests, o.validate)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", tag, err)
		}
		if tag == "" || len(clean) == 0 {
			return nil, fmt.Errorf("route %q has no destinations", tag)
		}
		r.byTag[tag] = clean
	}

	system := []string(spec.SystemAlertsRoutes)
	if len(system) == 0 {
		system = o.defaultSystem
	}
	clean, err := cleanDestinations(system, o.validate)
	if err != nil {
		return nil, fmt.Errorf("system_alerts_routes: %w", err)
	}
	if len(clean) == 0 {
		return nil, errors.New("system_alerts_routes must not be empty")
	}
	r.system = clean
	return r, nil
}

func cleanDestinations(dests []string, validate func(string) error) ([]string, error) {
	out := make([]string, 0, len(dests))
	seen := make(map[string]struct{}, len(dests))
	for _, d := range dests {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		if validate != nil {
			if err := validate(d); err != nil {
				return nil, err
			}
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// Resolve returns a copy of the destinations for tag.
func (r *Routes) Resolve(tag string) ([]string, error) {
	dests, ok := r.byTag[tag]
	if !ok {
		return nil, &UnknownTagError{Channel: r.channel, Tag: tag}
	}
	return append([]string(nil), dests...), nil
}

// Has reports whether tag is configured.
func (r *Routes) Has(tag string) bool {
	_, ok := r.byTag[tag]
	return ok
}

// System returns a copy of the self-monitoring destinations.
func (r *Routes) System() []string {
	return append([]string(nil), r.system...)
}
