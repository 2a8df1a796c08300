package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(8)

	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeUnauthorized)

	select {
	case ev := <-ch:
		assert.Equal(t, TypeUnauthorized, ev.Type)
		assert.Equal(t, int64(1), ev.ID)
	case <-time.After(time.Second):
		t.Fatal("expected event, got none")
	}
}

func TestSnapshotSince(t *testing.T) {
	h := NewHub(4)

	for i := 0; i < 3; i++ {
		h.Publish(TypeUnauthorized)
	}

	all := h.SnapshotSince(0)
	require.Len(t, all, 3)

	tail := h.SnapshotSince(2)
	require.Len(t, tail, 1)
	assert.Equal(t, int64(3), tail[0].ID)
}

func TestRingOverwritesOldest(t *testing.T) {
	h := NewHub(2)

	for i := 0; i < 5; i++ {
		h.Publish(TypeUnauthorized)
	}

	snap := h.SnapshotSince(0)
	require.Len(t, snap, 2)
	assert.Equal(t, int64(4), snap[0].ID)
	assert.Equal(t, int64(5), snap[1].ID)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(4)

	// Subscriber that never drains its channel.
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(TypeUnauthorized)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
