// Package session implements the Session node (C11): the process-wide
// root of the resource tree and the URI resolver that walks it.
package session

import (
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/ridgerun/gstd/internal/collection"
	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/pipeline"
	"github.com/ridgerun/gstd/internal/returncode"
)

// Session is the root Node: a singleton per process, holding the
// top-level pipelines collection, the debug controls node, and an
// instance identity stamped at construction.
type Session struct {
	node.Base

	instanceID string
	pipelines  *collection.Collection
	debug      *Debug
	refcounter *pipeline.RefCounter
}

var (
	mu       sync.Mutex
	instance *Session
)

// Get returns the process-wide Session, constructing it on first
// access under a mutex (§4.10: "created on first resolver access").
func Get(eng engine.Engine) *Session {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = newSession(eng)
	}
	return instance
}

// reset is test-only: it forgets the singleton so the next Get call
// builds a fresh Session against a fresh engine.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}

func newSession(eng engine.Engine) *Session {
	s := &Session{
		instanceID: uuid.NewString(),
		pipelines:  pipeline.NewCollection(eng),
		debug:      NewDebug(),
		refcounter: pipeline.NewRefCounter(),
	}
	s.Base = node.New("/", node.ReadOnly, nil, node.ReaderFunc(s.readChild), nil, nil)
	return s
}

func (s *Session) readChild(name string) (node.Node, returncode.Code) {
	switch name {
	case "pipelines":
		return s.pipelines, returncode.OK
	case "debug":
		return s.debug, returncode.OK
	case "pid":
		return newPidLeaf(), returncode.OK
	default:
		return nil, returncode.NoResource
	}
}

// InstanceID returns the UUID stamped when this process's Session was
// first constructed.
func (s *Session) InstanceID() string { return s.instanceID }

// CreateRef, PlayRef, PauseRef, and DeleteRef implement the
// `_ref` command aliases (§B.5): multiple clients coalesce ownership
// of a pipeline by name through s.refcounter, which drives the real
// pipelines collection and state leaf only on the 0<->1 boundary
// transitions.
func (s *Session) CreateRef(name, description string) returncode.Code {
	return s.refcounter.CreateRef(name, func() returncode.Code {
		_, code := s.pipelines.Create(name, description)
		return code
	})
}

func (s *Session) PlayRef(name string) returncode.Code {
	return s.refcounter.PlayRef(name, func() returncode.Code {
		return s.setPipelineState(name, "playing")
	})
}

func (s *Session) PauseRef(name string) returncode.Code {
	return s.refcounter.PauseRef(name, func() returncode.Code {
		return s.setPipelineState(name, "paused")
	})
}

func (s *Session) DeleteRef(name string) returncode.Code {
	return s.refcounter.DeleteRef(name, func() returncode.Code {
		return s.pipelines.Delete(name)
	})
}

func (s *Session) setPipelineState(name, value string) returncode.Code {
	child, code := s.pipelines.Read(name)
	if code != returncode.OK {
		return code
	}
	stateNode, code := child.Read("state")
	if code != returncode.OK {
		return code
	}
	return stateNode.Update(value)
}

func (s *Session) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("/")
	f.SetMemberName("instance")
	f.SetStringValue(s.instanceID)
	f.SetMemberName("children")
	f.BeginArray()
	f.SetStringValue("pipelines")
	f.SetStringValue("debug")
	f.EndArray()
	f.EndObject()
}

type pidLeaf struct {
	node.Base
	pid int
}

func newPidLeaf() *pidLeaf {
	return &pidLeaf{Base: node.New("pid", node.ReadOnly, nil, nil, nil, nil), pid: os.Getpid()}
}

func (l *pidLeaf) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("pid")
	f.SetMemberName("type")
	f.SetStringValue("int")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadOnly.String())
	f.SetMemberName("value")
	f.SetValue(l.pid)
	f.EndObject()
}

// Resolve walks a slash-separated URI from the session root, calling
// Read at each step and skipping empty segments (consecutive or
// trailing slashes). Any failed step reports BAD_COMMAND; the result
// does not identify which segment failed.
func Resolve(root node.Node, uri string) (node.Node, returncode.Code) {
	cur := root
	for _, seg := range splitPath(uri) {
		next, code := cur.Read(seg)
		if code != returncode.OK {
			return nil, returncode.BadCommand
		}
		cur = next
	}
	return cur, returncode.OK
}

func splitPath(uri string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(uri); i++ {
		if i == len(uri) || uri[i] == '/' {
			if i > start {
				segs = append(segs, uri[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
