package unixsock

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/session"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMultipleListenersBindAndAccept(t *testing.T) {
	root := session.Get(engine.NewSimulated())
	base := filepath.Join(t.TempDir(), "gstd")
	srv := New(testLogger(), root, 2)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, base, 2) }()

	var conn0, conn1 net.Conn
	require.Eventually(t, func() bool {
		var err error
		conn0, err = net.Dial("unix", base+"_0")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn0.Close()

	var err error
	conn1, err = net.Dial("unix", base+"_1")
	require.NoError(t, err)
	defer conn1.Close()

	_, err = conn0.Write(append([]byte(`create /pipelines u0 "fakesrc ! fakesink"`), 0))
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn0).ReadString(0)
	require.NoError(t, err)
	require.Contains(t, reply, `"code": 0`)
}
