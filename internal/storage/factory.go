// factory.go maps backend names (local, s3, azure, gcs) to constructors.
package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/annotation-study/registration/internal/config"
)

// FactoryFunc builds a backend from the application configuration
type FactoryFunc func(*config.Config) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]FactoryFunc)
)

// Register registers a storage backend factory
func Register(name string, factory FactoryFunc) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Backends lists the registered backend names in sorted order
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStorage creates the backend named by storage.default_backend
func NewStorage(cfg *config.Config) (Storage, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Storage.DefaultBackend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %q (registered: %s)",
			cfg.Storage.DefaultBackend, strings.Join(Backends(), ", "))
	}

	return factory(cfg)
}
