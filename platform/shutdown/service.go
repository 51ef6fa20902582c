package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rohanthewiz/logger"
)

const gracePeriod = 15 * time.Second

// HookFunc releases a resource. It is given the grace period it must finish within.
type HookFunc func(grace time.Duration) error

type hook struct {
	name string
	fn   HookFunc
}

type shutdownHooks struct {
	hooks []hook
	lock  sync.Mutex
}

var registry shutdownHooks

// RegisterHook adds a named hook to run on shutdown.
func RegisterHook(name string, fn HookFunc) {
	registry.lock.Lock()
	defer registry.lock.Unlock()
	registry.hooks = append(registry.hooks, hook{name: name, fn: fn})
	logger.Debug("Registered shutdown hook", "name", name, "count", len(registry.hooks))
}

// InitShutdownService waits for SIGINT/SIGTERM, runs every hook, then closes done.
func InitShutdownService(done chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(done)

		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig.String())
		setShutdown()

		runHooks(gracePeriod)
		logger.Info("Shutdown service done")
	}()
}

// runHooks runs the hooks one after another in registration order, so a hook
// may rely on those registered before it having finished. The whole sequence
// gets at most grace. It reports whether every hook ran in time.
func runHooks(grace time.Duration) bool {
	registry.lock.Lock()
	hooks := append([]hook(nil), registry.hooks...)
	registry.lock.Unlock()

	logger.Info("Running shutdown hooks", "count", len(hooks), "grace", grace.String())

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for _, h := range hooks {
			if err := h.fn(grace); err != nil {
				logger.LogErr(err, "shutdown hook failed", "name", h.name)
				continue
			}
			logger.Debug("Shutdown hook completed", "name", h.name)
		}
	}()

	select {
	case <-finished:
		logger.F("All %d shutdown hooks completed", len(hooks))
		return true
	case <-time.After(grace):
		logger.Warn("Shutdown hooks timed out", "grace", grace.String())
		return false
	}
}
