package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// requestTracker counts requests still inside a handler so shutdown can wait for them
type requestTracker struct {
	mu       sync.Mutex
	active   int
	draining bool
	idle     chan struct{}
}

var inflight = &requestTracker{}

func (t *requestTracker) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.draining {
		return false
	}
	t.active++
	return true
}

func (t *requestTracker) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active--
	if t.active == 0 && t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}

// drain refuses new requests and waits up to timeout for active ones.
func (t *requestTracker) drain(timeout time.Duration) bool {
	t.mu.Lock()
	t.draining = true
	if t.active == 0 {
		t.mu.Unlock()
		return true
	}
	if t.idle == nil {
		t.idle = make(chan struct{})
	}
	idle := t.idle
	active := t.active
	t.mu.Unlock()

	logger.Info("Waiting for in-flight requests", "count", active)
	select {
	case <-idle:
		return true
	case <-time.After(timeout):
		return false
	}
}

// TrackRequests is middleware that counts handlers in progress and turns
// requests away once shutdown has begun draining.
func TrackRequests(c rweb.Context) error {
	if !inflight.begin() {
		return c.WriteError(serr.New("server is shutting down"), http.StatusServiceUnavailable)
	}
	defer inflight.end()
	return c.Next()
}

// Shutdown waits for in-flight requests, then ends every SSE stream.
// It is registered as a shutdown hook ahead of closing the database.
func Shutdown(grace time.Duration) error {
	drained := inflight.drain(grace)
	sseHub.CloseAll()
	if !drained {
		return serr.New("requests still in flight after grace period", "grace", grace.String())
	}
	logger.Info("HTTP requests drained")
	return nil
}
