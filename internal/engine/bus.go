package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MsgType is one bit of a bus message-type mask (§3.1). The special
// value MsgUnknown, used alone as a bus node's configured mask, is the
// flushing sentinel: a READ on message with types == MsgUnknown means
// "flush the bus for timeout and return nothing" rather than "accept
// no message type" (see internal/busmsg).
type MsgType uint32

const (
	MsgUnknown MsgType = 1 << iota
	MsgEOS
	MsgError
	MsgWarning
	MsgInfo
	MsgStateChanged
	MsgStreamStatus
	MsgQOS
	MsgElement
	MsgPropertyNotify
)

// MsgTypeMask is the OR of the MsgType values a bus read accepts.
type MsgTypeMask = MsgType

// typeNames maps the wire names used by UPDATE on bus/types (§6 design
// note b) to their bit.
var typeNames = map[string]MsgType{
	"unknown":         MsgUnknown,
	"eos":             MsgEOS,
	"error":           MsgError,
	"warning":         MsgWarning,
	"info":            MsgInfo,
	"state-changed":   MsgStateChanged,
	"stream-status":   MsgStreamStatus,
	"qos":             MsgQOS,
	"element":         MsgElement,
	"property-notify": MsgPropertyNotify,
}

// ParseMsgType looks up one message-type name.
func ParseMsgType(name string) (MsgType, bool) {
	t, ok := typeNames[name]
	return t, ok
}

func (t MsgType) String() string {
	for name, bit := range typeNames {
		if bit == t {
			return name
		}
	}
	return "unknown"
}

// Message is a transient record materialized by a successful bus pop.
// Variant-specific fields are populated according to Type; unused
// fields are left zero.
type Message struct {
	Type      MsgType
	Source    string
	Timestamp time.Time
	Seqnum    uint64

	// SIMPLE (error/warning/info)
	Text  string
	Debug string

	// STATE_CHANGED
	OldState State
	NewState State
	Pending  State

	// ELEMENT / PROPERTY_NOTIFY: opaque key/value payload
	Fields map[string]string

	// QOS
	QOSBuffer bool
	QOSValues []int64
}

// ErrCancelled is returned by Bus.Pop when the bus shuts down or the
// caller's context is cancelled while waiting.
var ErrCancelled = errors.New("engine: bus read cancelled")

// Bus is a non-blocking fan-out broadcaster adapted from the daemon's
// general-purpose operational event bus: nil-safe publish, buffered
// per-subscriber channels, drop-on-full instead of blocking the
// publisher. Pop layers a timed, type-filtered blocking read on top,
// giving multiple simultaneous readers (order unspecified across
// readers) and pipeline-teardown cancellation via Shutdown.
type Bus struct {
	mu         sync.RWMutex
	subs       map[chan Message]struct{}
	recvToSend map[<-chan Message]chan Message
	closed     chan struct{}
	closeOnce  sync.Once
	seq        atomic.Uint64
}

// NewBus creates a ready-to-use bus.
func NewBus() *Bus {
	return &Bus{
		subs:       make(map[chan Message]struct{}),
		recvToSend: make(map[<-chan Message]chan Message),
		closed:     make(chan struct{}),
	}
}

// Publish sends a message to all subscribers, assigning a seqnum if
// the caller left it zero. Non-blocking: a full subscriber channel
// drops the message rather than stalling the publisher. Safe to call
// on a nil receiver.
func (b *Bus) Publish(m Message) {
	if b == nil {
		return
	}
	if m.Seqnum == 0 {
		m.Seqnum = b.seq.Add(1)
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

// Subscribe returns a channel receiving every subsequent published
// message. The caller must call Unsubscribe when done.
func (b *Bus) Subscribe(bufSize int) <-chan Message {
	ch := make(chan Message, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to
// call with an already-unsubscribed channel.
func (b *Bus) Unsubscribe(ch <-chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount reports the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown causes every in-flight and future Pop to return
// ErrCancelled, and closes the channel of every current subscriber.
// Idempotent.
func (b *Bus) Shutdown() {
	b.closeOnce.Do(func() {
		close(b.closed)
		b.mu.Lock()
		defer b.mu.Unlock()
		for ch := range b.subs {
			delete(b.subs, ch)
			delete(b.recvToSend, ch)
			close(ch)
		}
	})
}

// Pop performs one timed, type-filtered blocking pop: timeout < 0
// waits forever, timeout == 0 checks non-blockingly, timeout > 0
// waits at most that long. A matching message is returned as soon as
// it arrives; a non-matching message is discarded and the wait
// continues. Returns (nil, nil) on timeout (not an error — §4.8), and
// (nil, ErrCancelled) if the bus shuts down or ctx is cancelled first.
func (b *Bus) Pop(ctx context.Context, timeout time.Duration, mask MsgTypeMask) (*Message, error) {
	ch := b.Subscribe(32)
	defer b.Unsubscribe(ch)

	if timeout == 0 {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil, ErrCancelled
			}
			if msg.Type&mask != 0 {
				return &msg, nil
			}
			return nil, nil
		case <-b.closed:
			return nil, ErrCancelled
		case <-ctx.Done():
			return nil, ErrCancelled
		default:
			return nil, nil
		}
	}

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil, ErrCancelled
			}
			if msg.Type&mask != 0 {
				return &msg, nil
			}
			// Non-matching: keep waiting on the same deadline.
		case <-timerC:
			return nil, nil
		case <-b.closed:
			return nil, ErrCancelled
		case <-ctx.Done():
			return nil, ErrCancelled
		}
	}
}
