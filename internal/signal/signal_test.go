package signal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan struct{}) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestNotifyReachesAllSubscribers(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()

	first, cancelFirst := b.Subscribe()
	second, cancelSecond := b.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	b.Notify()

	assert.True(t, recv(t, first))
	assert.True(t, recv(t, second))
}

func TestNotifyWithoutSubscribersDoesNotBlock(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()

	done := make(chan struct{})
	go func() {
		b.Notify()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no subscribers")
	}
}

func TestNotifyCoalescesWhenSubscriberIsSlow(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Notify()
	b.Notify()
	b.Notify()

	require.True(t, recv(t, ch), "one buffered notification survives")
	assert.False(t, recv(t, ch), "repeat notifications coalesce")
}

func TestCancelStopsDelivery(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()

	ch, cancel := b.Subscribe()
	cancel()
	cancel() // idempotent

	b.Notify()
	assert.False(t, recv(t, ch))
}

func TestConcurrentSubscribeAndNotify(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, cancel := b.Subscribe()
			defer cancel()
			recv(t, ch)
		}()
		go func() {
			defer wg.Done()
			b.Notify()
		}()
	}
	wg.Wait()
}
