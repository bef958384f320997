package track

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"trackdrive/internal/simerr"
	"trackdrive/internal/trackid"
)

var (
	ErrLayoutExists   = errors.New("track layout already registered")
	ErrLayoutNotFound = errors.New("track layout not found")
)

var layoutRegistry = struct {
	mu sync.RWMutex
	m  map[string]*Layout
}{
	m: make(map[string]*Layout),
}

func init() {
	initializeBuiltInLayouts()
}

// Register adds a layout under its normalized name.
func Register(layout *Layout) error {
	if layout == nil {
		return simerr.Configf("track layout is required")
	}
	key := trackid.Normalize(layout.Name())
	if key == "" {
		return simerr.Configf("track layout name is required")
	}

	layoutRegistry.mu.Lock()
	defer layoutRegistry.mu.Unlock()

	if _, exists := layoutRegistry.m[key]; exists {
		return fmt.Errorf("%w: %w: %s", simerr.ErrConfiguration, ErrLayoutExists, key)
	}
	layoutRegistry.m[key] = layout
	return nil
}

func MustRegister(layout *Layout) {
	if err := Register(layout); err != nil {
		panic(err)
	}
}

// Get resolves a layout by name or alias.
func Get(name string) (*Layout, error) {
	key := trackid.Normalize(name)
	layoutRegistry.mu.RLock()
	layout, ok := layoutRegistry.m[key]
	layoutRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", simerr.ErrConfiguration, ErrLayoutNotFound, name)
	}
	return layout, nil
}

func List() []string {
	layoutRegistry.mu.RLock()
	defer layoutRegistry.mu.RUnlock()

	names := make([]string, 0, len(layoutRegistry.m))
	for name := range layoutRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetLayoutRegistryForTests() {
	layoutRegistry.mu.Lock()
	layoutRegistry.m = make(map[string]*Layout)
	layoutRegistry.mu.Unlock()
	initializeBuiltInLayouts()
}
