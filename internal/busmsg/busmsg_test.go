package busmsg

import (
	"context"
	"testing"
	"time"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) (*BusNode, engine.Pipeline) {
	t.Helper()
	eng := engine.NewSimulated()
	p, err := eng.Parse("p0", "fakesrc ! fakesink")
	require.NoError(t, err)
	return New(p), p
}

func TestTypesRoundTrip(t *testing.T) {
	b, _ := newTestBus(t)
	typesNode, code := b.readChild("types")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, returncode.OK, typesNode.Update("eos+error"))

	f := format.NewJSON()
	typesNode.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, "eos+error")
}

func TestTypesBadToken(t *testing.T) {
	b, _ := newTestBus(t)
	typesNode, _ := b.readChild("types")
	require.Equal(t, returncode.BadValue, typesNode.Update("nonsense"))
}

func TestMessagePollTimeoutReturnsEmptyOK(t *testing.T) {
	b, _ := newTestBus(t)
	timeoutNode, _ := b.readChild("timeout")
	require.Equal(t, returncode.OK, timeoutNode.Update("1000000")) // 1ms
	typesNode, _ := b.readChild("types")
	require.Equal(t, returncode.OK, typesNode.Update("eos"))

	msgNode, code := b.readChild("message")
	require.Equal(t, returncode.OK, code)
	poller := msgNode.(interface {
		Poll(ctx context.Context, f format.Formatter) returncode.Code
	})

	f := format.NewJSON()
	start := time.Now()
	gotCode := poller.Poll(context.Background(), f)
	require.Equal(t, returncode.OK, gotCode)
	require.Less(t, time.Since(start), 200*time.Millisecond)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Equal(t, "null", out)
}

func TestMessagePollReceivesMatchingMessage(t *testing.T) {
	b, p := newTestBus(t)
	timeoutNode, _ := b.readChild("timeout")
	timeoutNode.Update("-1")
	typesNode, _ := b.readChild("types")
	typesNode.Update("eos")

	msgNode, _ := b.readChild("message")
	poller := msgNode.(interface {
		Poll(ctx context.Context, f format.Formatter) returncode.Code
	})

	done := make(chan string)
	go func() {
		f := format.NewJSON()
		poller.Poll(context.Background(), f)
		out, _ := f.Generate()
		done <- out
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.SendEvent(context.Background(), engine.Event{Name: "eos"}))

	select {
	case out := <-done:
		require.Contains(t, out, `"type": "eos"`)
	case <-time.After(time.Second):
		t.Fatal("poll did not return")
	}
}

func TestMessagePollFlushingSentinel(t *testing.T) {
	b, _ := newTestBus(t)
	timeoutNode, _ := b.readChild("timeout")
	timeoutNode.Update("5000000") // 5ms
	typesNode, _ := b.readChild("types")
	typesNode.Update("unknown")

	msgNode, _ := b.readChild("message")
	poller := msgNode.(interface {
		Poll(ctx context.Context, f format.Formatter) returncode.Code
	})
	f := format.NewJSON()
	start := time.Now()
	code := poller.Poll(context.Background(), f)
	require.Equal(t, returncode.OK, code)
	require.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond)
}
