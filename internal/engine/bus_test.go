package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusPopNonBlockingTimeout(t *testing.T) {
	b := NewBus()
	msg, err := b.Pop(context.Background(), 0, MsgEOS)
	require.NoError(t, err)
	require.Nil(t, msg)
}

func TestBusPopFiltersByMask(t *testing.T) {
	b := NewBus()
	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, err := b.Pop(context.Background(), time.Second, MsgEOS)
		require.NoError(t, err)
		require.NotNil(t, msg)
		require.Equal(t, MsgEOS, msg.Type)
	}()

	// Give the subscriber time to register before publishing, and
	// publish a non-matching message first to exercise the filter.
	time.Sleep(10 * time.Millisecond)
	b.Publish(Message{Type: MsgWarning})
	b.Publish(Message{Type: MsgEOS})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return a matching message in time")
	}
}

func TestBusPopTimeoutExpires(t *testing.T) {
	b := NewBus()
	start := time.Now()
	msg, err := b.Pop(context.Background(), 20*time.Millisecond, MsgEOS)
	require.NoError(t, err)
	require.Nil(t, msg)
	require.WithinDuration(t, start.Add(20*time.Millisecond), time.Now(), 200*time.Millisecond)
}

func TestBusPopCancelledByContext(t *testing.T) {
	b := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := b.Pop(ctx, -1, MsgEOS)
	require.ErrorIs(t, err, ErrCancelled)
}

func TestBusSubscriberCount(t *testing.T) {
	b := NewBus()
	require.Equal(t, 0, b.SubscriberCount())
	ch := b.Subscribe(1)
	require.Equal(t, 1, b.SubscriberCount())
	b.Unsubscribe(ch)
	require.Equal(t, 0, b.SubscriberCount())
}

func TestBusPublishOnNilIsNoop(t *testing.T) {
	var b *Bus
	require.NotPanics(t, func() { b.Publish(Message{Type: MsgEOS}) })
}
