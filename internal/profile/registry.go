package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps selectable names to profiles. Built-in profiles are held
// directly; external profiles are produced on demand by loaders.
type Registry struct {
	mu       sync.RWMutex
	builtins []Profile
	loaders  []Loader
	logger   zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLoaders appends external loaders, tried in order.
func WithLoaders(loaders ...Loader) RegistryOption {
	return func(r *Registry) {
		r.loaders = append(r.loaders, loaders...)
	}
}

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithoutBuiltins starts the registry with no built-in profiles.
func WithoutBuiltins() RegistryOption {
	return func(r *Registry) {
		r.builtins = nil
	}
}

// NewRegistry creates a registry with the built-in game profiles.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		builtins: Builtins(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a built-in profile, replacing one with the same name.
func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.builtins {
		if existing.Name() == p.Name() {
			r.builtins[i] = p
			return
		}
	}
	r.builtins = append(r.builtins, p)
}

// AddLoader appends an external loader.
func (r *Registry) AddLoader(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders = append(r.loaders, l)
}

// Resolve returns the profile selected by name. Default names select
// Base. External sources take precedence over built-ins. When nothing
// matches, Base is returned together with an error wrapping
// ErrProfileNotFound; the returned profile is always usable.
func (r *Registry) Resolve(name string) (Profile, error) {
	if IsDefaultName(name) {
		return Base{}, nil
	}

	id := NormalizeID(name)
	if id == "" {
		return Base{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	r.mu.RLock()
	loaders := slices.Clone(r.loaders)
	r.mu.RUnlock()

	for _, l := range loaders {
		p, err := r.loadExternal(l, id, name)
		if err == nil {
			r.logger.Debug().Str("profile", p.Name()).Str("id", id).Msg("external profile loaded")
			return p, nil
		}
		if !errors.Is(err, ErrSourceNotFound) {
			r.logger.Warn().Err(err).Str("id", id).Msg("external profile failed to load")
		}
	}

	if p, ok := r.Builtin(name); ok {
		return p, nil
	}

	return Base{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
}

// loadExternal asks one loader for id and wraps the result. Panics in the
// loader or the unit are returned as errors.
func (r *Registry) loadExternal(l Loader, id, requested string) (p Profile, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("%w: loader panicked: %v", ErrInvalidSource, rec)
		}
	}()

	src, err := l.Lookup(id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(requested)
	if s, ok := src.(*Source); ok && s.Name != "" {
		name = s.Name
	}
	return FromSource(name, src)
}

// Builtin returns the built-in profile registered under name, matched
// exactly first and then by normalized id.
func (r *Registry) Builtin(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.builtins {
		if p.Name() == name {
			return p, true
		}
	}
	id := NormalizeID(name)
	for _, p := range r.builtins {
		if NormalizeID(p.Name()) == id {
			return p, true
		}
	}
	return nil, false
}

// Names returns the selectable profile names: Default, the built-ins in
// registration order, then external ids that do not shadow a built-in.
func (r *Registry) Names() []string {
	r.mu.RLock()
	builtins := slices.Clone(r.builtins)
	loaders := slices.Clone(r.loaders)
	r.mu.RUnlock()

	names := make([]string, 0, 1+len(builtins))
	names = append(names, DefaultName)

	seen := map[string]bool{NormalizeID(DefaultName): true}
	for _, p := range builtins {
		names = append(names, p.Name())
		seen[NormalizeID(p.Name())] = true
	}

	for _, l := range loaders {
		for _, id := range r.safeIDs(l) {
			if seen[id] {
				continue
			}
			seen[id] = true
			names = append(names, id)
		}
	}
	return names
}

func (r *Registry) safeIDs(l Loader) (ids []string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().Interface("panic", rec).Msg("profile loader failed to list ids")
			ids = nil
		}
	}()
	return l.IDs()
}
