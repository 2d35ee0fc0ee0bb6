// Package busmsg implements the bus-message node (C9): a typed view
// over a Pipeline's message bus with a configurable timeout and
// type-mask, and a synthesized "message" child performing one timed
// filtered pop per READ.
package busmsg

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
)

// BusNode is the "bus" child of a Pipeline.
type BusNode struct {
	node.Base

	mu       sync.Mutex
	pipeline engine.Pipeline
	timeout  int64 // nanoseconds; -1 = forever, 0 = immediate
	types    engine.MsgTypeMask
}

// New binds a BusNode to pipeline, defaulting timeout to -1 (wait
// forever) and types to 0 (accept nothing until configured).
func New(pipeline engine.Pipeline) *BusNode {
	b := &BusNode{pipeline: pipeline, timeout: -1}
	b.Base = node.New("bus", node.ReadOnly, nil, node.ReaderFunc(b.readChild), nil, nil)
	return b
}

func (b *BusNode) readChild(name string) (node.Node, returncode.Code) {
	switch name {
	case "timeout":
		return &timeoutLeaf{Base: node.New("timeout", node.ReadWrite, nil, nil, nil, nil), b: b}, returncode.OK
	case "types":
		return &typesLeaf{Base: node.New("types", node.ReadWrite, nil, nil, nil, nil), b: b}, returncode.OK
	case "message":
		return &messageLeaf{Base: node.New("message", node.ReadOnly, nil, nil, nil, nil), b: b}, returncode.OK
	default:
		return nil, returncode.NoResource
	}
}

// Types returns the bus node's currently configured type mask, for
// the websocket stream handler (§B.3) which filters pushed messages
// the same way a timed READ on message would.
func (b *BusNode) Types() engine.MsgTypeMask {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.types
}

// EngineBus returns the underlying engine bus this node reads from.
func (b *BusNode) EngineBus() *engine.Bus {
	return b.pipeline.Bus()
}

func (b *BusNode) Describe(f format.Formatter) {
	b.mu.Lock()
	timeout, types := b.timeout, b.types
	b.mu.Unlock()
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("bus")
	f.SetMemberName("timeout")
	f.SetValue(timeout)
	f.SetMemberName("types")
	f.SetStringValue(renderTypes(types))
	f.EndObject()
}

type timeoutLeaf struct {
	node.Base
	b *BusNode
}

func (l *timeoutLeaf) Update(value string) returncode.Code {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return returncode.BadValue
	}
	l.b.mu.Lock()
	l.b.timeout = n
	l.b.mu.Unlock()
	return returncode.OK
}

func (l *timeoutLeaf) Describe(f format.Formatter) {
	l.b.mu.Lock()
	v := l.b.timeout
	l.b.mu.Unlock()
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

type typesLeaf struct {
	node.Base
	b *BusNode
}

func (l *typesLeaf) Update(value string) returncode.Code {
	var mask engine.MsgTypeMask
	for _, tok := range strings.Split(value, "+") {
		t, ok := engine.ParseMsgType(strings.TrimSpace(tok))
		if !ok {
			return returncode.BadValue
		}
		mask |= t
	}
	l.b.mu.Lock()
	l.b.types = mask
	l.b.mu.Unlock()
	return returncode.OK
}

func (l *typesLeaf) Describe(f format.Formatter) {
	l.b.mu.Lock()
	mask := l.b.types
	l.b.mu.Unlock()
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("types")
	f.SetMemberName("type")
	f.SetStringValue("flags")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadWrite.String())
	f.SetMemberName("value")
	f.SetStringValue(renderTypes(mask))
	f.EndObject()
}

var allTypeNames = []string{
	"unknown", "eos", "error", "warning", "info", "state-changed",
	"stream-status", "qos", "element", "property-notify",
}

func renderTypes(mask engine.MsgTypeMask) string {
	var set []string
	for _, name := range allTypeNames {
		bit, _ := engine.ParseMsgType(name)
		if mask&bit != 0 {
			set = append(set, name)
		}
	}
	sort.Strings(set)
	return strings.Join(set, "+")
}

// messageLeaf is the synthesized virtual child performing one timed
// filtered pop per READ (§4.8). It implements node.Poller rather than
// Describe: the action is a blocking effect, not a pure render.
type messageLeaf struct {
	node.Base
	b *BusNode
}

// ErrCancelled surfaces as NoConnection: the return-code enum (§4.1)
// has no dedicated cancellation code, and NoConnection's "infrastructure
// error, logged, client sees a clean code" shape matches a bus read
// aborted by pipeline teardown closer than any client-error code does.
func (l *messageLeaf) Poll(ctx context.Context, f format.Formatter) returncode.Code {
	l.b.mu.Lock()
	timeout, types := l.b.timeout, l.b.types
	l.b.mu.Unlock()

	if types == engine.MsgUnknown {
		sleepCancelable(ctx, time.Duration(timeout))
		f.SetNullValue()
		return returncode.OK
	}

	msg, err := l.b.pipeline.Bus().Pop(ctx, time.Duration(timeout), types)
	if err != nil {
		f.SetNullValue()
		if errors.Is(err, engine.ErrCancelled) {
			return returncode.NoConnection
		}
		return returncode.NoConnection
	}
	if msg == nil {
		f.SetNullValue()
		return returncode.OK
	}
	renderMessage(f, *msg)
	return returncode.OK
}

func sleepCancelable(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func renderMessage(f format.Formatter, m engine.Message) {
	f.BeginObject()
	f.SetMemberName("type")
	f.SetStringValue(m.Type.String())
	f.SetMemberName("source")
	f.SetStringValue(m.Source)
	f.SetMemberName("timestamp")
	f.SetStringValue(m.Timestamp.Format(time.RFC3339Nano))
	f.SetMemberName("seqnum")
	f.SetValue(m.Seqnum)

	switch m.Type {
	case engine.MsgError, engine.MsgWarning, engine.MsgInfo:
		f.SetMemberName("message")
		f.SetStringValue(m.Text)
		f.SetMemberName("debug")
		f.SetStringValue(m.Debug)
	case engine.MsgStateChanged:
		f.SetMemberName("oldstate")
		f.SetStringValue(m.OldState.String())
		f.SetMemberName("newstate")
		f.SetStringValue(m.NewState.String())
		f.SetMemberName("pending")
		f.SetStringValue(m.Pending.String())
	case engine.MsgQOS:
		f.SetMemberName("buffer")
		f.SetValue(m.QOSBuffer)
		f.SetMemberName("values")
		f.BeginArray()
		for _, v := range m.QOSValues {
			f.SetValue(v)
		}
		f.EndArray()
	case engine.MsgElement, engine.MsgPropertyNotify:
		f.SetMemberName("fields")
		f.BeginObject()
		for k, v := range m.Fields {
			f.SetMemberName(k)
			f.SetStringValue(v)
		}
		f.EndObject()
	}
	f.EndObject()
}
