package core

import (
	"fmt"
	"sort"
	"sync"

	"alertsystem/internal/config"
)

// Registry maps channel type discriminants to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor. Registering a type twice panics: it is a
// programming error caught on the first cold start.
func (r *Registry) Register(channelType string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ctors[channelType]; dup {
		panic(fmt.Sprintf("channel type %q registered twice", channelType))
	}
	r.ctors[channelType] = ctor
}

// Types lists registered discriminants in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Load builds one channel per spec, in order. The first failure aborts the
// load with a *ChannelLoadError.
func (r *Registry) Load(specs []config.ChannelSpec, deps Deps) ([]Channel, error) {
	deps = deps.withDefaults()

	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]Channel, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			spec.Name = spec.Type
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, &ChannelLoadError{Channel: spec.Name, Type: spec.Type, Err: fmt.Errorf("duplicate channel name")}
		}
		seen[spec.Name] = struct{}{}

		ctor, ok := r.ctors[spec.Type]
		if !ok {
			return nil, &ChannelLoadError{Channel: spec.Name, Type: spec.Type, Err: fmt.Errorf("unknown channel type")}
		}
		ch, err := ctor(spec, deps)
		if err != nil {
			return nil, &ChannelLoadError{Channel: spec.Name, Type: spec.Type, Err: err}
		}
		deps.Logger.Info("notification channel loaded", "channel", ch.Name(), "channel_type", ch.Type())
		channels = append(channels, ch)
	}
	return channels, nil
}
