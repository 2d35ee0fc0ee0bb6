// Package format provides the abstract response-formatting adapter
// nodes build their self-descriptions and values through, plus the
// canonical JSON implementation the daemon actually wires in.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Formatter is an abstract structured-output builder. A node renders
// its self-description or a property value by driving one Formatter
// instance through a sequence of these calls, then calls Generate once
// to obtain the wire representation. Implementations must be reentrant
// per instance (a fresh instance per request) but need not be
// thread-safe across instances.
type Formatter interface {
	BeginObject()
	EndObject()
	BeginArray()
	EndArray()
	SetMemberName(name string)
	SetStringValue(s string)
	SetNullValue()
	SetValue(v any)
	Generate() (string, error)
}

// JSON is the canonical Formatter: pretty-printed JSON with 4-space
// indent. It builds the document as a tree of json.RawMessage-
// compatible Go values and marshals once in Generate.
type JSON struct {
	stack []any // stack of *object or *array frames under construction
	root  any
	// pendingName holds a member name set via SetMemberName, consumed
	// by the next value-setting call.
	pendingName string
}

type object struct {
	keys   []string
	values map[string]any
}

func newObject() *object {
	return &object{values: make(map[string]any)}
}

func (o *object) set(name string, v any) {
	if _, exists := o.values[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.values[name] = v
}

// MarshalJSON preserves insertion order, unlike a plain map.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type array struct {
	items []any
}

func (a *array) append(v any) {
	a.items = append(a.items, v)
}

// MarshalJSON renders the collected items as a JSON array.
func (a *array) MarshalJSON() ([]byte, error) {
	if a.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.items)
}

// NewJSON returns a ready-to-use JSON formatter.
func NewJSON() *JSON {
	return &JSON{}
}

func (f *JSON) top() any {
	if len(f.stack) == 0 {
		return nil
	}
	return f.stack[len(f.stack)-1]
}

func (f *JSON) push(frame any) {
	f.stack = append(f.stack, frame)
}

func (f *JSON) pop() any {
	n := len(f.stack)
	frame := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return frame
}

func (f *JSON) BeginObject() {
	f.push(newObject())
}

func (f *JSON) EndObject() {
	o := f.pop()
	f.attach(o)
}

func (f *JSON) BeginArray() {
	f.push(&array{})
}

func (f *JSON) EndArray() {
	a := f.pop()
	f.attach(a)
}

func (f *JSON) SetMemberName(name string) {
	f.pendingName = name
}

func (f *JSON) SetStringValue(s string) {
	f.attach(s)
}

func (f *JSON) SetNullValue() {
	f.attach(nil)
}

func (f *JSON) SetValue(v any) {
	f.attach(v)
}

// attach places v into the current frame: as a named member if inside
// an object with a pending name, as the next element if inside an
// array, or as the document root if the stack is empty.
func (f *JSON) attach(v any) {
	switch top := f.top().(type) {
	case *object:
		name := f.pendingName
		f.pendingName = ""
		top.set(name, v)
	case *array:
		top.append(v)
	default:
		f.root = v
	}
}

// Generate marshals the accumulated document as pretty-printed JSON
// with 4-space indent.
func (f *JSON) Generate() (string, error) {
	if len(f.stack) != 0 {
		return "", fmt.Errorf("format: %d unclosed object/array frames", len(f.stack))
	}
	b, err := json.MarshalIndent(f.root, "", "    ")
	if err != nil {
		return "", fmt.Errorf("format: marshal: %w", err)
	}
	return string(b), nil
}

// Value returns the accumulated document as a plain Go value
// (json.Marshaler-compatible), for callers that embed it into a
// larger document rather than generating it standalone (the command
// dispatcher's response envelope).
func (f *JSON) Value() (any, error) {
	if len(f.stack) != 0 {
		return nil, fmt.Errorf("format: %d unclosed object/array frames", len(f.stack))
	}
	return f.root, nil
}
