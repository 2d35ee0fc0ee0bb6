// Package unixsock implements the Unix-domain-socket transport (§6.4):
// the same NUL-terminated line protocol as internal/transport/socket,
// but bound to 0..N local sockets named "<base>_<n>" so multiple
// client processes on the same host can each hold their own
// connection without contending on a single listener's accept queue.
package unixsock

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/ridgerun/gstd/internal/command"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/paths"
	"github.com/ridgerun/gstd/internal/workerpool"
)

// Server manages a fixed number of Unix-domain-socket listeners
// sharing one root node and one worker pool per listener.
type Server struct {
	logger    *slog.Logger
	root      node.Node
	poolSize  int
	listeners []*listener
}

type listener struct {
	path string
	ln   net.Listener
	pool *workerpool.Pool

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New builds a Server that will bind n sockets at "<basePath>_<n>"
// when ListenAndServe runs.
func New(logger *slog.Logger, root node.Node, poolSize int) *Server {
	return &Server{logger: logger, root: root, poolSize: poolSize}
}

// ListenAndServe binds n Unix-domain sockets at basePath's "_<i>"
// siblings and accepts connections on each until ctx is canceled.
// Stale socket files left by a prior crashed process are removed
// before binding. It blocks until every listener has stopped.
func (s *Server) ListenAndServe(ctx context.Context, basePath string, n int) error {
	for i := 0; i < n; i++ {
		p := paths.UnixSocketPath(basePath, i)
		_ = os.Remove(p) // stale socket from a prior crashed process

		ln, err := net.Listen("unix", p)
		if err != nil {
			s.Close()
			return err
		}
		l := &listener{
			path:  p,
			ln:    ln,
			pool:  workerpool.New(s.logger, "unix", s.poolSize),
			conns: make(map[net.Conn]struct{}),
		}
		l.pool.Start()
		s.listeners = append(s.listeners, l)
		s.logger.Info("unix transport listening", "path", p)
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	var wg sync.WaitGroup
	for _, l := range s.listeners {
		wg.Add(1)
		go func(l *listener) {
			defer wg.Done()
			s.acceptLoop(ctx, l)
		}(l)
	}
	wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, l *listener) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.logger.Debug("unix accept stopped", "path", l.path, "error", err)
			return
		}
		l.mu.Lock()
		l.conns[conn] = struct{}{}
		l.mu.Unlock()

		l.wg.Add(1)
		go s.serve(ctx, l, conn)
	}
}

func (s *Server) serve(ctx context.Context, l *listener, conn net.Conn) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString(0)
		if err != nil {
			return
		}
		line = line[:len(line)-1]

		ok := l.pool.Submit(ctx, func(ctx context.Context) {
			out := command.Execute(ctx, s.root, line)
			if _, err := conn.Write(append([]byte(out), 0)); err != nil {
				s.logger.Debug("unix write failed", "error", err)
			}
		})
		if !ok {
			return
		}
	}
}

// Close stops every listener, closes its tracked connections, waits
// for in-flight handlers to return, and removes the socket files.
func (s *Server) Close() {
	for _, l := range s.listeners {
		_ = l.ln.Close()
		l.mu.Lock()
		for c := range l.conns {
			_ = c.Close()
		}
		l.mu.Unlock()
		l.wg.Wait()
		l.pool.Stop()
		_ = os.Remove(l.path)
	}
}
