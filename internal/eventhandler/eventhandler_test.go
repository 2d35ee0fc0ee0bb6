package eventhandler

import (
	"context"
	"testing"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	last engine.Event
	err  error
}

func (f *fakeSender) SendEvent(ctx context.Context, ev engine.Event) error {
	f.last = ev
	return f.err
}

func TestCreateEOS(t *testing.T) {
	s := &fakeSender{}
	h := New(s)
	_, code := h.Create("eos", "")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, "eos", s.last.Name)
}

func TestCreateUnknownEventName(t *testing.T) {
	h := New(&fakeSender{})
	_, code := h.Create("bogus", "")
	require.Equal(t, returncode.EventError, code)
}

func TestCreateFlushStopDefault(t *testing.T) {
	s := &fakeSender{}
	h := New(s)
	_, code := h.Create("flush-stop", "")
	require.Equal(t, returncode.OK, code)
	require.True(t, s.last.FlushStopReset)

	_, code = h.Create("flush-stop", "false")
	require.Equal(t, returncode.OK, code)
	require.False(t, s.last.FlushStopReset)

	_, code = h.Create("flush-stop", "nonsense")
	require.Equal(t, returncode.BadValue, code)
}

func TestCreateSeekDefaultsAndOverrides(t *testing.T) {
	s := &fakeSender{}
	h := New(s)

	_, code := h.Create("seek", "")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, 1.0, s.last.Seek.Rate)
	require.Equal(t, "time", s.last.Seek.Format)
	require.Equal(t, int64(-1), s.last.Seek.Stop)

	_, code = h.Create("seek", "2.0 bytes none set 1000 none -1")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, 2.0, s.last.Seek.Rate)
	require.Equal(t, "bytes", s.last.Seek.Format)
	require.Equal(t, int64(1000), s.last.Seek.Start)
}

func TestCreateSeekBadField(t *testing.T) {
	h := New(&fakeSender{})
	_, code := h.Create("seek", "notanumber")
	require.Equal(t, returncode.BadValue, code)
}

func TestCreateEngineRejectsEvent(t *testing.T) {
	s := &fakeSender{err: context.DeadlineExceeded}
	h := New(s)
	_, code := h.Create("eos", "")
	require.Equal(t, returncode.EventError, code)
}
