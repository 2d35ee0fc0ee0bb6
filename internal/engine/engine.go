// Package engine defines the boundary the control plane programs
// against: a pipeline engine that parses textual descriptions into
// named elements with typed properties, transitions through playback
// states, accepts events, and emits bus messages. The real media
// framework is out of scope; this package ships one implementation,
// an in-memory simulated engine (simulated.go), good enough to drive
// every control-plane operation end to end without depending on an
// actual media stack.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrBadDescription is returned by Parse when a pipeline description
// cannot be parsed: an unknown element type or a malformed chain.
var ErrBadDescription = errors.New("engine: bad pipeline description")

// State is one of the four playback states a Pipeline cycles through.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState parses the wire representation of a state ("null",
// "ready", "paused", "playing"), case-insensitively.
func ParseState(s string) (State, bool) {
	switch strings.ToLower(s) {
	case "null":
		return StateNull, true
	case "ready":
		return StateReady, true
	case "paused":
		return StatePaused, true
	case "playing":
		return StatePlaying, true
	default:
		return StateNull, false
	}
}

// PropType tags the base type of one Element property.
type PropType int

const (
	PropBool PropType = iota
	PropInt
	PropUint
	PropFloat
	PropString
	PropEnum
	// PropFlags is a bitmask whose set bits each carry their own nick,
	// parsed from "+"-separated tokens (§4.6).
	PropFlags
	// PropStructured covers caps, tag-lists, and structures: the
	// framework's own serializer renders and parses them, so this
	// package carries them as an opaque string (§4.6).
	PropStructured
)

func (t PropType) String() string {
	switch t {
	case PropBool:
		return "bool"
	case PropInt:
		return "int"
	case PropUint:
		return "uint"
	case PropFloat:
		return "float"
	case PropString:
		return "string"
	case PropEnum:
		return "enum"
	case PropFlags:
		return "flags"
	case PropStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// PropValue is a tagged union holding one typed property value.
type PropValue struct {
	Type PropType
	B    bool
	I    int64
	U    uint64
	F    float64
	S    string
}

func BoolValue(v bool) PropValue       { return PropValue{Type: PropBool, B: v} }
func IntValue(v int64) PropValue       { return PropValue{Type: PropInt, I: v} }
func UintValue(v uint64) PropValue     { return PropValue{Type: PropUint, U: v} }
func FloatValue(v float64) PropValue   { return PropValue{Type: PropFloat, F: v} }
func StringValue(v string) PropValue   { return PropValue{Type: PropString, S: v} }
func EnumValue(v int64) PropValue      { return PropValue{Type: PropEnum, I: v} }
func FlagsValue(v uint64) PropValue    { return PropValue{Type: PropFlags, U: v} }
func StructuredValue(v string) PropValue { return PropValue{Type: PropStructured, S: v} }

// Event is a fully parsed pipeline event, built by internal/eventhandler
// from the textual payload and dispatched through Pipeline.SendEvent.
type Event struct {
	Name string // "eos", "seek", "flush-start", "flush-stop"
	Seek SeekParams
	// FlushStopReset is flush-stop's boolean argument (default true).
	FlushStopReset bool
}

// SeekParams holds seek's up-to-7 positional fields (§4.7).
type SeekParams struct {
	Rate      float64
	Format    string
	Flags     string
	StartType string
	Start     int64
	StopType  string
	Stop      int64
}

// Engine parses pipeline descriptions into live Pipeline handles.
type Engine interface {
	// Parse builds a pipeline named name from description, returning
	// ErrBadDescription if the grammar rejects it.
	Parse(name, description string) (Pipeline, error)
}

// Pipeline is one parsed, named media graph.
type Pipeline interface {
	Name() string
	Description() string
	SetState(ctx context.Context, target State) (State, error)
	State() State
	Element(name string) (Element, bool)
	ElementNames() []string
	Bus() *Bus
	SendEvent(ctx context.Context, ev Event) error
	Graph() string
	SetVerbose(bool)
	Verbose() bool
	Close(ctx context.Context) error
}

// Element is one named participant inside a Pipeline.
type Element interface {
	Name() string
	PropertyNames() []string
	Property(name string) (Property, bool)
}

// Property is one typed property on an Element.
type Property interface {
	Name() string
	Type() PropType
	Get() (PropValue, error)
	Set(PropValue) error
}

// EnumNicks is implemented by enum and flags properties that declare a
// nick/name table — real GStreamer enum and flags GTypes always carry
// one (e.g. videotestsrc's "pattern", rtspsrc's "protocols"). Consumers
// type-assert for it rather than widening Property, the same optional-
// capability pattern internal/command uses for node.Poller.
type EnumNicks interface {
	// Nicks returns the property's nick -> raw-value table. ok is false
	// for an enum/flags property that, unusually, declares none, in
	// which case callers fall back to the bare integer/bitmask form.
	Nicks() (nicks map[string]int64, ok bool)
}

// Bounded is implemented by int/uint properties that declare a
// [Min, Max] range, the "declared bounds" §4.6 requires UPDATE to
// range-check signed/unsigned integers against.
type Bounded interface {
	Bounds() (min, max int64, ok bool)
}
