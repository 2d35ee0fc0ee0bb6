// Package element implements the Element node (C8): one named
// participant inside a Pipeline, wrapping an engine.Element with a
// properties Collection, a signals sub-tree (§B.4), and an event
// handler.
package element

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ridgerun/gstd/internal/collection"
	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/eventhandler"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/property"
	"github.com/ridgerun/gstd/internal/returncode"
)

// Element is a Node wrapping one engine.Element.
type Element struct {
	node.Base
	target     engine.Element
	properties *collection.Collection
	signals    *collection.Collection
	event      *eventhandler.Handler
}

// New builds an Element, synchronously populating its properties
// collection from target and wiring a signals sub-tree and event
// handler against pipeline.
func New(target engine.Element, pipeline engine.Pipeline) *Element {
	e := &Element{target: target}

	e.properties = collection.New("properties", node.ReadOnly, "properties", nil, nil)
	for _, name := range target.PropertyNames() {
		pt, ok := target.Property(name)
		if !ok {
			continue
		}
		e.properties.Seed(name, property.New(name, node.ReadWrite, pt))
	}

	e.signals = collection.New("signals", node.AccessMask(node.FlagCreate|node.FlagRead|node.FlagDelete), "signals",
		func(name, description string) (node.Node, returncode.Code) {
			return newSignalNode(name, pipeline), returncode.OK
		}, nil)

	// Element-level events forward to the owning pipeline: this
	// implementation has no element-targeted event primitive distinct
	// from the pipeline's, so "event" on an Element is a thin alias of
	// the Pipeline's own event sub-tree (see DESIGN.md).
	e.event = eventhandler.New(pipeline)

	e.Base = node.New(target.Name(), node.ReadOnly, nil, node.ReaderFunc(e.readChild), nil, nil)
	return e
}

func (e *Element) readChild(name string) (node.Node, returncode.Code) {
	switch name {
	case "properties":
		return e.properties, returncode.OK
	case "signals":
		return e.signals, returncode.OK
	case "event":
		return e.event, returncode.OK
	default:
		return nil, returncode.NoResource
	}
}

func (e *Element) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue(e.Name())
	f.SetMemberName("properties")
	f.BeginArray()
	for _, n := range e.properties.Names() {
		f.SetStringValue(n)
	}
	f.EndArray()
	f.EndObject()
}

// signalNode is one connected signal under an Element's signals
// collection (§B.4). CREATE on the collection connects it (just
// constructing the node is "connected"); DELETE on the collection
// disconnects it; READ performs one timed wait for the next matching
// emission, reusing the same Poller pattern as busmsg's message leaf.
type signalNode struct {
	node.Base
	mu       sync.Mutex
	name     string
	timeout  int64
	pipeline engine.Pipeline
}

func newSignalNode(name string, pipeline engine.Pipeline) *signalNode {
	s := &signalNode{name: name, timeout: -1, pipeline: pipeline}
	s.Base = node.New(name, node.AccessMask(node.FlagRead|node.FlagDelete), nil, node.ReaderFunc(s.readChild), nil, nil)
	return s
}

func (s *signalNode) readChild(name string) (node.Node, returncode.Code) {
	if name != "timeout" {
		return nil, returncode.NoResource
	}
	return &signalTimeoutLeaf{Base: node.New("timeout", node.ReadWrite, nil, nil, nil, nil), s: s}, returncode.OK
}

// Poll waits for the next property-change matching this signal's name
// (a "notify::<property>" signal filters to that property; any other
// signal name accepts the next property-change bus message at all).
func (s *signalNode) Poll(ctx context.Context, f format.Formatter) returncode.Code {
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()

	wantProp, filtered := strings.CutPrefix(s.name, "notify::")

	deadline := time.Now().Add(time.Duration(timeout))
	var msg *engine.Message
	for msg == nil {
		wait := time.Duration(timeout)
		if timeout > 0 {
			if wait = time.Until(deadline); wait <= 0 {
				f.SetNullValue()
				return returncode.OK
			}
		}
		m, err := s.pipeline.Bus().Pop(ctx, wait, engine.MsgPropertyNotify)
		if err != nil {
			f.SetNullValue()
			return returncode.NoConnection
		}
		if m == nil {
			f.SetNullValue()
			return returncode.OK
		}
		if !filtered || m.Fields["property"] == wantProp {
			msg = m
		}
	}
	f.BeginObject()
	f.SetMemberName("type")
	f.SetStringValue("property-notify")
	f.SetMemberName("source")
	f.SetStringValue(msg.Source)
	f.SetMemberName("timestamp")
	f.SetStringValue(msg.Timestamp.Format(time.RFC3339Nano))
	f.SetMemberName("seqnum")
	f.SetValue(msg.Seqnum)
	f.SetMemberName("property")
	f.SetStringValue(msg.Fields["property"])
	f.EndObject()
	return returncode.OK
}

type signalTimeoutLeaf struct {
	node.Base
	s *signalNode
}

func (l *signalTimeoutLeaf) Update(value string) returncode.Code {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return returncode.BadValue
	}
	l.s.mu.Lock()
	l.s.timeout = n
	l.s.mu.Unlock()
	return returncode.OK
}

func (l *signalTimeoutLeaf) Describe(f format.Formatter) {
	l.s.mu.Lock()
	v := l.s.timeout
	l.s.mu.Unlock()
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("timeout")
	f.SetMemberName("type")
	f.SetStringValue("int")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadWrite.String())
	f.SetMemberName("value")
	f.SetValue(v)
	f.EndObject()
}
