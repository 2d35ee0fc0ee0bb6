// Package pipeline implements the Pipeline node (C7): one parsed
// media graph, its elements collection, its bus node, its event
// handler, and the state/verbose/graph leaves that drive the engine.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/ridgerun/gstd/internal/busmsg"
	"github.com/ridgerun/gstd/internal/collection"
	"github.com/ridgerun/gstd/internal/element"
	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/eventhandler"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
)

// stateTransitionTimeout bounds every UPDATE on state (§9 open
// question (a)): the source used an unbounded wait on some paths and
// a bounded one on others; this implementation picks one bounded
// timeout for all transitions and surfaces expiry as STATE_ERROR.
const stateTransitionTimeout = 5 * time.Second

// Pipeline is a Node wrapping one engine.Pipeline.
type Pipeline struct {
	node.Base
	mu       sync.Mutex // serializes state transitions; event injection and element property updates do not take it
	target   engine.Pipeline
	elements *collection.Collection
	bus      *busmsg.BusNode
	event    *eventhandler.Handler
}

// New builds a Pipeline around target, synchronously populating its
// elements collection.
func New(target engine.Pipeline) *Pipeline {
	p := &Pipeline{target: target}

	p.elements = collection.New("elements", node.ReadOnly, "elements", nil, nil)
	for _, name := range target.ElementNames() {
		et, ok := target.Element(name)
		if !ok {
			continue
		}
		p.elements.Seed(name, element.New(et, target))
	}

	p.bus = busmsg.New(target)
	p.event = eventhandler.New(target)
	p.Base = node.New(target.Name(), node.ReadOnly, nil, node.ReaderFunc(p.readChild), nil, nil)
	return p
}

func (p *Pipeline) readChild(name string) (node.Node, returncode.Code) {
	switch name {
	case "name":
		return newStringLeaf("name", func() string { return p.target.Name() }), returncode.OK
	case "description":
		return newStringLeaf("description", func() string { return p.target.Description() }), returncode.OK
	case "state":
		return &stateLeaf{Base: node.New("state", node.ReadWrite, nil, nil, nil, nil), p: p}, returncode.OK
	case "verbose":
		return &verboseLeaf{Base: node.New("verbose", node.ReadWrite, nil, nil, nil, nil), p: p}, returncode.OK
	case "graph":
		return newStringLeaf("graph", func() string { return p.target.Graph() }), returncode.OK
	case "elements":
		return p.elements, returncode.OK
	case "bus":
		return p.bus, returncode.OK
	case "event":
		return p.event, returncode.OK
	default:
		return nil, returncode.NoResource
	}
}

// Describe renders the self-description used by "read <uri>" when the
// URI resolves to the pipeline itself.
func (p *Pipeline) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue(p.target.Name())
	f.SetMemberName("description")
	f.SetStringValue(p.target.Description())
	f.SetMemberName("state")
	f.SetStringValue(p.target.State().String())
	f.SetMemberName("elements")
	f.BeginArray()
	for _, n := range p.elements.Names() {
		f.SetStringValue(n)
	}
	f.EndArray()
	f.EndObject()
}

// Bus returns the pipeline's bus node, for transports that want to
// read its current type mask or reach the underlying engine bus
// directly (the HTTP transport's websocket stream, §B.3).
func (p *Pipeline) Bus() *busmsg.BusNode { return p.bus }

// Close drives the pipeline to NULL and releases engine resources. It
// is the pipelines collection's onDelete hook when a Pipeline is torn
// down via DELETE on /pipelines.
func (p *Pipeline) Close(ctx context.Context) error {
	return p.target.Close(ctx)
}

// stringLeaf is a read-only string property computed live on Describe
// (used for "name", "description", "graph").
type stringLeaf struct {
	node.Base
	name string
	get  func() string
}

func newStringLeaf(name string, get func() string) *stringLeaf {
	return &stringLeaf{Base: node.New(name, node.ReadOnly, nil, nil, nil, nil), name: name, get: get}
}

func (l *stringLeaf) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue(l.name)
	f.SetMemberName("type")
	f.SetStringValue("string")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadOnly.String())
	f.SetMemberName("value")
	f.SetStringValue(l.get())
	f.EndObject()
}

type stateLeaf struct {
	node.Base
	p *Pipeline
}

// Update drives the pipeline toward the requested state, serialized
// by the pipeline's own lock and bounded by stateTransitionTimeout. On
// failure the stored state is whatever the engine reports (invariant
// 5: atomicity / rollback to engine-reported state).
func (l *stateLeaf) Update(value string) returncode.Code {
	target, ok := engine.ParseState(value)
	if !ok {
		return returncode.BadValue
	}
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), stateTransitionTimeout)
	defer cancel()
	if _, err := l.p.target.SetState(ctx, target); err != nil {
		return returncode.StateError
	}
	return returncode.OK
}

func (l *stateLeaf) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("state")
	f.SetMemberName("type")
	f.SetStringValue("enum")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadWrite.String())
	f.SetMemberName("value")
	f.SetStringValue(l.p.target.State().String())
	f.EndObject()
}

type verboseLeaf struct {
	node.Base
	p *Pipeline
}

func (l *verboseLeaf) Update(value string) returncode.Code {
	switch value {
	case "true", "yes", "1", "TRUE", "True":
		l.p.target.SetVerbose(true)
	case "false", "no", "0", "FALSE", "False":
		l.p.target.SetVerbose(false)
	default:
		return returncode.BadValue
	}
	return returncode.OK
}

func (l *verboseLeaf) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("verbose")
	f.SetMemberName("type")
	f.SetStringValue("bool")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadWrite.String())
	f.SetMemberName("value")
	f.SetValue(l.p.target.Verbose())
	f.EndObject()
}

// NewCollection builds the top-level "pipelines" collection, wiring
// CREATE to eng.Parse and DELETE to Pipeline.Close.
func NewCollection(eng engine.Engine) *collection.Collection {
	create := func(name, description string) (node.Node, returncode.Code) {
		p, err := eng.Parse(name, description)
		if err != nil {
			return nil, returncode.BadDescription
		}
		return New(p), returncode.OK
	}
	onDelete := func(n node.Node) {
		pl, ok := n.(*Pipeline)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), stateTransitionTimeout)
		defer cancel()
		_ = pl.Close(ctx)
	}
	return collection.New("pipelines", node.AccessMask(node.FlagCreate|node.FlagRead|node.FlagDelete), "pipelines", create, onDelete)
}
