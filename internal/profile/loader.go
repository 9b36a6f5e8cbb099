package profile

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Loader supplies external profile sources by normalized id.
type Loader interface {
	// Lookup returns the source unit for id, or ErrSourceNotFound.
	Lookup(id string) (any, error)

	// IDs returns the ids this loader can currently supply.
	IDs() []string
}

// Provider constructs an external profile unit.
type Provider func() (any, error)

// ProviderLoader is a Loader backed by registered constructor functions.
type ProviderLoader struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewProviderLoader creates an empty provider loader.
func NewProviderLoader() *ProviderLoader {
	return &ProviderLoader{providers: make(map[string]Provider)}
}

// Register adds a provider under the normalized form of id, replacing any
// previous provider.
func (l *ProviderLoader) Register(id string, p Provider) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.providers[NormalizeID(id)] = p
}

// Lookup implements Loader.
func (l *ProviderLoader) Lookup(id string) (any, error) {
	l.mu.RLock()
	p, ok := l.providers[id]
	l.mu.RUnlock()

	if !ok || p == nil {
		return nil, ErrSourceNotFound
	}
	return p()
}

// IDs implements Loader.
func (l *ProviderLoader) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.providers))
	for id := range l.providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DirLoader is a Loader that reads profile documents from search
// directories. The first directory containing a matching document wins.
type DirLoader struct {
	paths []string

	mu    sync.Mutex
	cache map[string]*Source
}

// DirOption configures a DirLoader.
type DirOption func(*DirLoader)

// WithPaths sets the search directories.
func WithPaths(paths ...string) DirOption {
	return func(l *DirLoader) {
		l.paths = paths
	}
}

// NewDirLoader creates a directory loader.
func NewDirLoader(opts ...DirOption) *DirLoader {
	l := &DirLoader{
		paths: DefaultProfilePaths(),
		cache: make(map[string]*Source),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultProfilePaths returns the default profile search directories.
func DefaultProfilePaths() []string {
	paths := make([]string, 0, 2)

	// User profiles: ~/.config/macrorec/profiles/
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "macrorec", "profiles"))
	}

	// Working directory profiles: ./profiles/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "profiles"))
	}

	return paths
}

// Paths returns the search directories.
func (l *DirLoader) Paths() []string {
	return slices.Clone(l.paths)
}

// Lookup implements Loader.
func (l *DirLoader) Lookup(id string) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if src, ok := l.cache[id]; ok {
		return src, nil
	}

	path, ok := l.find(id)
	if !ok {
		return nil, ErrSourceNotFound
	}

	src, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	l.cache[id] = src
	return src, nil
}

// IDs implements Loader.
func (l *DirLoader) IDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, dir := range l.paths {
		for id := range l.scan(dir) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// Invalidate drops every cached document.
func (l *DirLoader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}

// find returns the first document for id across the search paths.
func (l *DirLoader) find(id string) (string, bool) {
	for _, dir := range l.paths {
		if path, ok := l.scan(dir)[id]; ok {
			return path, true
		}
	}
	return "", false
}

// scan maps normalized ids to document paths in one directory. Within a
// directory, extensions are preferred in documentExtensions order.
func (l *DirLoader) scan(dir string) map[string]string {
	found := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return found
	}

	rank := func(path string) int {
		return slices.Index(documentExtensions, strings.ToLower(filepath.Ext(path)))
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsDocument(entry.Name()) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		id := NormalizeID(stem)
		if id == "" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if prev, ok := found[id]; ok && rank(prev) <= rank(path) {
			continue
		}
		found[id] = path
	}
	return found
}

// Ensure interface compliance.
var (
	_ Loader = (*ProviderLoader)(nil)
	_ Loader = (*DirLoader)(nil)
)
