package executor

import (
	"os"
	"os/exec"
	"sync"
)

// lookupCache memoizes binary lookups; it is invalidated when the
// PATH environment variable changes.
type lookupCache struct {
	mu      sync.Mutex
	paths   map[string]string
	pathEnv string
}

var cache = &lookupCache{paths: map[string]string{}}

// Which finds a binary in PATH and returns its full path, or an empty
// string when the binary is not installed.
func Which(binary string) string {
	if binary == "" {
		return ""
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if env := os.Getenv("PATH"); env != cache.pathEnv {
		cache.paths = map[string]string{}
		cache.pathEnv = env
	}

	if path, ok := cache.paths[binary]; ok {
		return path
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		path = ""
	}
	cache.paths[binary] = path
	return path
}
