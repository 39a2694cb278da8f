package diffsource

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Strob0t/patchpal/internal/git"
)

// Deps carries shared resources handed to every source factory.
type Deps struct {
	Pool *git.Pool

	// GitHubToken authenticates API calls; empty means anonymous.
	GitHubToken string
	// GitHubAPIURL points at a GitHub Enterprise API; empty means github.com.
	GitHubAPIURL string
}

// Factory creates a Source for a mode of its kind.
type Factory func(mode Mode, deps Deps) (Source, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a diff source factory available by kind.
// It is typically called from an init() function in the adapter package.
func Register(kind string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("diffsource: duplicate registration for %q", kind))
	}
	factories[kind] = factory
}

// New creates the Source serving mode using the registered factory.
func New(mode Mode, deps Deps) (Source, error) {
	mu.RLock()
	factory, ok := factories[mode.Kind()]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("diffsource: unknown source %q", mode.Kind())
	}
	return factory(mode, deps)
}

// Available returns the sorted kinds of all registered sources.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
