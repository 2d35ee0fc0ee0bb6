// Package httpapi implements the HTTP/JSON transport (§6.3): path
// segments map to resource URIs, HTTP verbs map to the four CRUD
// primitives, and return codes map to HTTP status per the table below.
// It additionally exposes a bonus WebSocket bus-stream endpoint
// (§B.3), mirroring the teacher's client-side websocket loop
// server-side.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ridgerun/gstd/internal/command"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/pipeline"
	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/ridgerun/gstd/internal/session"
	"github.com/ridgerun/gstd/internal/workerpool"
)

// Server is the HTTP transport: one *http.Server plus the worker pool
// every request is dispatched through.
type Server struct {
	logger   *slog.Logger
	root     node.Node
	pool     *workerpool.Pool
	upgrader websocket.Upgrader
	http     *http.Server
}

// New builds a Server. root is normally the process session.
func New(logger *slog.Logger, root node.Node, poolSize int) *Server {
	s := &Server{
		logger: logger,
		root:   root,
		pool:   workerpool.New(logger, "http", poolSize),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.http = &http.Server{Handler: mux}
	return s
}

// ListenAndServe binds address and serves until ctx is canceled. It
// blocks until the server has fully shut down.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.pool.Start()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
		s.pool.Stop()
	}()

	s.logger.Info("http transport listening", "address", ln.Addr().String())
	err = s.http.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "PUT,GET,POST,DELETE")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/bus/stream") {
		s.serveBusStream(w, r)
		return
	}

	line, ok := translate(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	done := make(chan string, 1)
	submitted := s.pool.Submit(r.Context(), func(ctx context.Context) {
		done <- command.Execute(ctx, s.root, line)
	})
	if !submitted {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	select {
	case body := <-done:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusFor(body))
		_, _ = w.Write([]byte(body))
	case <-r.Context().Done():
	}
}

// translate maps an HTTP request to one §4.11 command line per §6.3.
func translate(r *http.Request) (string, bool) {
	path := r.URL.Path
	q := r.URL.Query()
	switch r.Method {
	case http.MethodGet:
		return "read " + path, true
	case http.MethodPost:
		name := q.Get("name")
		if name == "" {
			return "", false
		}
		return "create " + path + " " + name + " " + q.Get("description"), true
	case http.MethodPut:
		value := q.Get("name")
		if value == "" {
			return "", false
		}
		return "update " + path + " " + value, true
	case http.MethodDelete:
		name := q.Get("name")
		if name == "" {
			return "", false
		}
		return "delete " + path + " " + name, true
	default:
		return "", false
	}
}

type envelopeCode struct {
	Code int `json:"code"`
}

// statusFor maps the returncode embedded in an already-rendered
// envelope to an HTTP status, per §6.3's table.
func statusFor(body string) int {
	var env envelopeCode
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return http.StatusInternalServerError
	}
	switch returncode.Code(env.Code) {
	case returncode.OK:
		return http.StatusOK
	case returncode.BadCommand, returncode.NoResource:
		return http.StatusNotFound
	case returncode.ExistingResource:
		return http.StatusConflict
	case returncode.BadValue:
		return http.StatusNoContent
	default:
		return http.StatusBadRequest
	}
}

// serveBusStream upgrades the connection and pushes every bus message
// matching the pipeline's current bus/types mask as a JSON text frame,
// until the client disconnects or the pipeline is torn down.
func (s *Server) serveBusStream(w http.ResponseWriter, r *http.Request) {
	name, ok := pipelineNameFromStreamPath(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	target, code := session.Resolve(s.root, "/pipelines/"+name)
	if code != returncode.OK {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	pl, ok := target.(*pipeline.Pipeline)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	bus := pl.Bus().EngineBus()
	ch := bus.Subscribe(32)
	defer bus.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if pl.Bus().Types()&msg.Type == 0 {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func pipelineNameFromStreamPath(path string) (string, bool) {
	const prefix = "/pipelines/"
	const suffix = "/bus/stream"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
