package bus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metadatapkg "github.com/smartcowork/choreo/internal/bus/metadata"
)

func TestDedupCache_BeginDoneAndEviction(t *testing.T) {
	cache := newDedupCache(3)

	assert.False(t, cache.Begin("a"))
	cache.Done("a")
	assert.True(t, cache.Begin("a"))

	assert.False(t, cache.Begin("b"))
	cache.Done("b")
	assert.False(t, cache.Begin("c"))
	cache.Done("c")

	// "a" is the oldest entry and gets evicted by the fourth insert.
	assert.False(t, cache.Begin("d"))
	cache.Done("d")
	assert.False(t, cache.Begin("a"))
}

func TestDedupCache_InFlightIsNotDuplicate(t *testing.T) {
	cache := newDedupCache(8)

	// A redelivery racing the first attempt must be processed: the first
	// attempt can still fail after the second was delivered.
	assert.False(t, cache.Begin("a"))
	assert.False(t, cache.Begin("a"))

	cache.Done("a")
	assert.True(t, cache.Begin("a"))

	// The concurrent attempt completing second changes nothing.
	cache.Done("a")
	assert.True(t, cache.Begin("a"))
}

func TestDedupCache_ForgetAllowsRetry(t *testing.T) {
	cache := newDedupCache(8)

	assert.False(t, cache.Begin("a"))
	cache.Forget("a")
	assert.False(t, cache.Begin("a"))
}

func TestDedupCache_ForgetKeepsCompleted(t *testing.T) {
	cache := newDedupCache(8)

	assert.False(t, cache.Begin("a"))
	cache.Done("a")
	cache.Forget("a")
	assert.True(t, cache.Begin("a"))
}

func TestDedupCache_FailedAttemptDoesNotShrinkWindow(t *testing.T) {
	cache := newDedupCache(3)

	// A failed attempt followed by a successful retry must occupy exactly
	// one ring slot, so the full window of completed IDs stays intact.
	require.False(t, cache.Begin("a"))
	cache.Forget("a")
	require.False(t, cache.Begin("a"))
	cache.Done("a")

	for _, id := range []string{"b", "c"} {
		require.False(t, cache.Begin(id))
		cache.Done(id)
	}

	assert.True(t, cache.Begin("a"), "a completed within the window and must still deduplicate")
	assert.True(t, cache.Begin("b"))
	assert.True(t, cache.Begin("c"))
}

func TestDedupCache_DefaultSize(t *testing.T) {
	cache := newDedupCache(0)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("id-%d", i)
		assert.False(t, cache.Begin(id))
		cache.Done(id)
	}
	assert.True(t, cache.Begin("id-0"))
}

func TestDedupMiddleware_SkipsDuplicateEnvelopes(t *testing.T) {
	b, _ := newTestBus(t)

	calls := 0
	handler := b.dedupMiddleware()(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		return nil, nil
	})

	msg := message.NewMessage("uuid-1", []byte(`{}`))
	msg.Metadata.Set(metadatapkg.KeyEnvelopeID, "env-1")

	_, err := handler(msg)
	require.NoError(t, err)

	redelivery := message.NewMessage("uuid-2", []byte(`{}`))
	redelivery.Metadata.Set(metadatapkg.KeyEnvelopeID, "env-1")

	_, err = handler(redelivery)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestDedupMiddleware_FailureAllowsRetry(t *testing.T) {
	b, _ := newTestBus(t)

	boom := errors.New("boom")
	fail := true
	calls := 0
	handler := b.dedupMiddleware()(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		if fail {
			return nil, boom
		}
		return nil, nil
	})

	msg := message.NewMessage("uuid-1", []byte(`{}`))
	msg.Metadata.Set(metadatapkg.KeyEnvelopeID, "env-1")

	_, err := handler(msg)
	assert.ErrorIs(t, err, boom)

	fail = false
	_, err = handler(msg)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDedupMiddleware_RedeliveryDuringFirstAttemptIsProcessed(t *testing.T) {
	b, _ := newTestBus(t)

	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	handler := b.dedupMiddleware()(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		if calls == 1 {
			close(started)
			<-release
			return nil, errors.New("first attempt fails after the redelivery arrived")
		}
		return nil, nil
	})

	first := message.NewMessage("uuid-1", []byte(`{}`))
	first.Metadata.Set(metadatapkg.KeyEnvelopeID, "env-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = handler(first)
	}()
	<-started

	// The redelivery arrives before the first attempt resolved. Skipping it
	// here would ack an envelope that was never successfully processed.
	redelivery := message.NewMessage("uuid-2", []byte(`{}`))
	redelivery.Metadata.Set(metadatapkg.KeyEnvelopeID, "env-1")
	_, err := handler(redelivery)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	close(release)
	<-done
}

func TestDedupMiddleware_MissingEnvelopeIDPassesThrough(t *testing.T) {
	b, _ := newTestBus(t)

	calls := 0
	handler := b.dedupMiddleware()(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		return nil, nil
	})

	msg := message.NewMessage("uuid-1", []byte(`{}`))
	_, err := handler(msg)
	require.NoError(t, err)
	_, err = handler(msg)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}
