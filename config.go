package vfc

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration of a container and its backing store.
type Config struct {
	// Type is the store driver name: "file", "device", "rclone", etc.
	Type string `json:"type" yaml:"type"`

	// Path locates the backing store for path-addressed drivers.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Mode is how the store is opened. Drivers without modes ignore it.
	Mode OpenMode `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Identifier is the magic string written into, and checked against,
	// the container header.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Options holds driver-specific configuration.
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// LoadConfig reads a YAML container configuration from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vfc: reading config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("vfc: parsing config %s: %w", path, err)
	}
	if cfg.Type == "" {
		cfg.Type = "file"
	}
	return cfg, nil
}

// Factory is a function that creates a [Store] from a [Config].
type Factory func(cfg *Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a store driver available by the provided name.
// This is typically called from the driver package's init() function.
// It panics if called twice with the same name.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("vfc: store driver %q already registered", name))
	}
	factories[name] = factory
}

// Drivers returns a sorted list of all registered driver names.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenStore creates a new [Store] using the registered driver specified in cfg.Type.
func OpenStore(cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vfc: config must not be nil")
	}

	mu.RLock()
	factory, ok := factories[cfg.Type]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("vfc: unknown store driver %q (forgotten import?)", cfg.Type)
	}

	return factory(cfg)
}

// MustOpenStore is like [OpenStore] but panics on error.
func MustOpenStore(cfg *Config) Store {
	s, err := OpenStore(cfg)
	if err != nil {
		panic(err)
	}
	return s
}
