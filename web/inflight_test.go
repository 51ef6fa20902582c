package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTracker_DrainWaitsForActive(t *testing.T) {
	tracker := &requestTracker{}
	require.True(t, tracker.begin())

	done := make(chan bool, 1)
	go func() { done <- tracker.drain(time.Second) }()

	require.Eventually(t, func() bool {
		tracker.mu.Lock()
		defer tracker.mu.Unlock()
		return tracker.idle != nil
	}, time.Second, time.Millisecond)
	assert.False(t, tracker.begin(), "requests are refused while draining")

	tracker.end()
	select {
	case drained := <-done:
		assert.True(t, drained)
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not return")
	}
}

func TestRequestTracker_DrainIdle(t *testing.T) {
	tracker := &requestTracker{}
	assert.True(t, tracker.drain(time.Millisecond))
	assert.False(t, tracker.begin(), "requests are refused after draining")
}

func TestRequestTracker_DrainTimesOut(t *testing.T) {
	tracker := &requestTracker{}
	require.True(t, tracker.begin())
	assert.False(t, tracker.drain(10*time.Millisecond))
}

func TestSSEHub_CloseAll(t *testing.T) {
	hub := NewSSEHub()
	a := make(chan any, 1)
	b := make(chan any, 1)
	hub.Register(a)
	hub.Register(b)

	hub.CloseAll()
	assert.Equal(t, 0, hub.ClientCount())

	_, open := <-a
	assert.False(t, open)
	_, open = <-b
	assert.False(t, open)

	hub.Unregister(a) // no double close
}
