package socket

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/session"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T) (addr string, ctx context.Context, cancel context.CancelFunc) {
	t.Helper()
	root := session.Get(engine.NewSimulated())
	srv := New(testLogger(), root, 4)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr = ln.Addr().String()
	ln.Close()

	ctx, cancel = context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	t.Cleanup(func() { cancel() })
	return addr, ctx, cancel
}

func sendLine(t *testing.T, conn net.Conn, line string) string {
	t.Helper()
	_, err := conn.Write(append([]byte(line), 0))
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn).ReadString(0)
	require.NoError(t, err)
	return reply[:len(reply)-1]
}

func TestLineProtocolRoundTrip(t *testing.T) {
	addr, _, _ := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	out := sendLine(t, conn, `create /pipelines sk0 "fakesrc ! fakesink"`)
	require.Contains(t, out, `"code": 0`)
}

func TestLineProtocolUnknownVerb(t *testing.T) {
	addr, _, _ := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	out := sendLine(t, conn, "bogus /pipelines")
	require.Contains(t, out, `"code": 10`)
}
