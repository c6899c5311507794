package plugins

import (
	"sort"
	"sync"

	"github.com/gofiber/fiber/v2"
)

// Plugin is a unit of the manager's HTTP API
type Plugin interface {
	// Name returns the plugin identifier
	Name() string

	// RegisterRoutes adds the plugin's HTTP routes to the app
	RegisterRoutes(app *fiber.App)

	// Shutdown releases the plugin's hardware and stops its streams
	Shutdown() error
}

// PluginFactory creates a plugin from its section of the manager config
type PluginFactory func(config interface{}) (Plugin, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]PluginFactory)
)

// Register adds a plugin factory to the registry
func Register(name string, factory PluginFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a plugin factory by name
func Get(name string) (PluginFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, exists := registry[name]
	return factory, exists
}

// Names lists the registered plugins in order
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TokenValidator checks a session token for streams that cannot send headers
type TokenValidator func(token string) bool
