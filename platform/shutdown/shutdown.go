// Package shutdown runs registered cleanup hooks when the process is signalled
// and exposes a flag other goroutines can poll to see that shutdown has begun.
package shutdown

import (
	"sync"
)

var (
	isShutdown bool
	mu         sync.RWMutex
)

// CheckShutdown reports whether shutdown has begun
func CheckShutdown() bool {
	mu.RLock()
	defer mu.RUnlock()
	return isShutdown
}

func setShutdown() {
	mu.Lock()
	isShutdown = true
	mu.Unlock()
}
