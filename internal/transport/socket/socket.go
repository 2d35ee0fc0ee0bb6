// Package socket implements the line-protocol TCP transport (§6.2):
// each request is a whole command line terminated by NUL, the reply a
// pretty-printed JSON envelope also terminated by NUL. One accept loop
// per listener hands each connection's requests to a workerpool.Pool
// so the configured per-transport concurrency bound governs how many
// commands actually run at once.
package socket

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/ridgerun/gstd/internal/command"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/workerpool"
)

// Server is one line-protocol listener bound to a single address.
type Server struct {
	logger   *slog.Logger
	root     node.Node
	pool     *workerpool.Pool
	listener net.Listener

	mu   sync.Mutex
	conns map[net.Conn]struct{}
	wg   sync.WaitGroup
}

// New builds a Server. root is normally the process session, resolved
// once at startup; poolSize follows config.WorkersConfig.PerTransport
// (-1 unbounded).
func New(logger *slog.Logger, root node.Node, poolSize int) *Server {
	return &Server{
		logger: logger,
		root:   root,
		pool:   workerpool.New(logger, "socket", poolSize),
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds address and accepts connections until ctx is
// canceled or Close is called. It blocks until the accept loop exits.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = ln
	s.pool.Start()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.logger.Info("socket transport listening", "address", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.logger.Debug("socket accept stopped", "error", err)
			return err
		}
		s.track(conn)
		s.wg.Add(1)
		go s.serve(ctx, conn)
	}
}

// Close stops accepting new connections, closes all tracked ones, and
// waits for their handling goroutines to return.
func (s *Server) Close() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.pool.Stop()
}

func (s *Server) track(c net.Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// serve reads NUL-terminated command lines off conn, submitting each
// to the pool, until the connection closes or ctx ends.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString(0)
		if err != nil {
			return
		}
		line = line[:len(line)-1] // strip the NUL

		ok := s.pool.Submit(ctx, func(ctx context.Context) {
			out := command.Execute(ctx, s.root, line)
			if _, err := conn.Write(append([]byte(out), 0)); err != nil {
				s.logger.Debug("socket write failed", "error", err)
			}
		})
		if !ok {
			return
		}
	}
}
