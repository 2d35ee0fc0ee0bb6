package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// elementSpec describes one entry in the simulated engine's built-in
// element catalogue: fakesrc, fakesink, videotestsrc, identity, queue,
// rtspsrc, capsfilter.
type elementSpec struct {
	propOrder []string
	props     map[string]PropType
	defaults  map[string]PropValue
	// nicks holds, per enum/flags property name, its nick -> raw-value
	// table (engine.EnumNicks). Properties absent from this map report
	// no nick table.
	nicks map[string]map[string]int64
	// bounds holds, per int/uint property name, its declared [min, max]
	// (engine.Bounded). Properties absent from this map report no bound.
	bounds map[string]propBounds
}

// propBounds is one property's declared [min, max] range.
type propBounds struct {
	min, max int64
}

// videotestsrcPatternNicks mirrors real GStreamer's GstVideoTestSrcPattern
// enum (videotestsrc's "pattern" property).
var videotestsrcPatternNicks = map[string]int64{
	"smpte": 0, "snow": 1, "black": 2, "white": 3,
	"red": 4, "green": 5, "blue": 6,
	"checkers-1": 7, "checkers-2": 8, "checkers-4": 9, "checkers-8": 10,
	"circular": 11, "blink": 12, "smpte75": 13, "zone-plate": 14,
	"gamut": 15, "chroma-zone-plate": 16, "solid-color": 17,
	"ball": 18, "smpte100": 19, "bar": 20, "pinwheel": 21,
	"spokes": 22, "gradient": 23, "colors": 24,
}

// rtspsrcProtocolsNicks mirrors real GStreamer's GstRTSPLowerTrans flags
// (rtspsrc's "protocols" property).
var rtspsrcProtocolsNicks = map[string]int64{
	"udp-unicast": 1 << 0, "udp-multicast": 1 << 1, "tcp": 1 << 2,
	"http": 1 << 4, "tls": 1 << 5,
}

var catalogue = map[string]elementSpec{
	"fakesrc":  {},
	"fakesink": {},
	"videotestsrc": {
		propOrder: []string{"pattern"},
		props:     map[string]PropType{"pattern": PropEnum},
		defaults:  map[string]PropValue{"pattern": EnumValue(0)},
		nicks:     map[string]map[string]int64{"pattern": videotestsrcPatternNicks},
	},
	"identity": {
		propOrder: []string{"sync", "silent", "error-after"},
		props: map[string]PropType{
			"sync": PropBool, "silent": PropBool, "error-after": PropInt,
		},
		defaults: map[string]PropValue{
			"sync": BoolValue(true), "silent": BoolValue(false), "error-after": IntValue(-1),
		},
		// Real GStreamer's identity:error-after is gint, range
		// [-1, G_MAXINT32], default -1 (disabled).
		bounds: map[string]propBounds{"error-after": {min: -1, max: 2147483647}},
	},
	"queue": {
		propOrder: []string{"max-size-buffers"},
		props:     map[string]PropType{"max-size-buffers": PropUint},
		defaults:  map[string]PropValue{"max-size-buffers": UintValue(200)},
		// Real GStreamer's queue:max-size-buffers is guint, range
		// [0, G_MAXUINT].
		bounds: map[string]propBounds{"max-size-buffers": {min: 0, max: 4294967295}},
	},
	"rtspsrc": {
		propOrder: []string{"protocols"},
		props:     map[string]PropType{"protocols": PropFlags},
		defaults: map[string]PropValue{
			"protocols": FlagsValue(uint64(
				rtspsrcProtocolsNicks["udp-unicast"] | rtspsrcProtocolsNicks["udp-multicast"] | rtspsrcProtocolsNicks["tcp"],
			)),
		},
		nicks: map[string]map[string]int64{"protocols": rtspsrcProtocolsNicks},
	},
	"capsfilter": {
		propOrder: []string{"caps"},
		props:     map[string]PropType{"caps": PropStructured},
		defaults:  map[string]PropValue{"caps": StructuredValue("ANY")},
	},
}

// Simulated is the in-memory pipeline engine: it parses a small
// "!"-separated subset of the real gst-launch grammar against the
// built-in element catalogue and tracks per-element properties in
// plain typed maps. No media actually flows; state transitions and
// property updates are synchronous bookkeeping that emit synthetic
// bus messages, which is enough to exercise the control plane.
type Simulated struct{}

// NewSimulated returns a ready-to-use simulated engine.
func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) Parse(name, description string) (Pipeline, error) {
	elems, order, err := parseDescription(description)
	if err != nil {
		return nil, err
	}
	p := &SimulatedPipeline{
		name:        name,
		description: description,
		state:       StateReady,
		elements:    elems,
		order:       order,
		bus:         NewBus(),
	}
	p.bindElements()
	return p, nil
}

func parseDescription(desc string) (map[string]*simElement, []string, error) {
	parts := strings.Split(desc, "!")
	if len(parts) == 0 {
		return nil, nil, ErrBadDescription
	}
	elems := make(map[string]*simElement, len(parts))
	var order []string
	counts := make(map[string]int)
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			return nil, nil, ErrBadDescription
		}
		typeName := fields[0]
		spec, ok := catalogue[typeName]
		if !ok {
			return nil, nil, ErrBadDescription
		}
		name := fmt.Sprintf("%s%d", typeName, counts[typeName])
		counts[typeName]++
		props := make(map[string]PropValue, len(spec.props))
		for k, v := range spec.defaults {
			props[k] = v
		}
		for _, kv := range fields[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, nil, ErrBadDescription
			}
			if k == "name" {
				name = v
				continue
			}
			pt, ok := spec.props[k]
			if !ok {
				return nil, nil, ErrBadDescription
			}
			pv, err := parseLiteral(spec, k, pt, v)
			if err != nil {
				return nil, nil, ErrBadDescription
			}
			props[k] = pv
		}
		if _, exists := elems[name]; exists {
			return nil, nil, ErrBadDescription
		}
		elems[name] = &simElement{
			name:      name,
			typeName:  typeName,
			propOrder: spec.propOrder,
			props:     props,
		}
		order = append(order, name)
	}
	return elems, order, nil
}

// parseLiteral parses one "key=value" field from a pipeline description
// string, consulting spec's nick table for enum and flags properties
// named key.
func parseLiteral(spec elementSpec, key string, t PropType, s string) (PropValue, error) {
	switch t {
	case PropBool:
		switch strings.ToLower(s) {
		case "true", "yes", "1":
			return BoolValue(true), nil
		case "false", "no", "0":
			return BoolValue(false), nil
		}
		return PropValue{}, fmt.Errorf("engine: bad bool literal %q", s)
	case PropUint:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return PropValue{}, err
		}
		return UintValue(u), nil
	case PropInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return PropValue{}, err
		}
		return IntValue(n), nil
	case PropEnum:
		if nicks, ok := spec.nicks[key]; ok {
			if v, found := nicks[s]; found {
				return EnumValue(v), nil
			}
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return PropValue{}, err
		}
		return EnumValue(n), nil
	case PropFlags:
		nicks, ok := spec.nicks[key]
		if !ok {
			return PropValue{}, fmt.Errorf("engine: property %q declares no flag nicks", key)
		}
		var mask uint64
		for _, tok := range strings.Split(s, "+") {
			v, found := nicks[tok]
			if !found {
				return PropValue{}, fmt.Errorf("engine: unknown flag %q for %q", tok, key)
			}
			mask |= uint64(v)
		}
		return FlagsValue(mask), nil
	case PropFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return PropValue{}, err
		}
		return FloatValue(f), nil
	case PropStructured:
		return StructuredValue(s), nil
	default:
		return StringValue(s), nil
	}
}

// simElement implements Element.
type simElement struct {
	mu        *sync.Mutex // shared with the owning pipeline
	name      string
	typeName  string
	propOrder []string
	props     map[string]PropValue
	pipeline  *SimulatedPipeline
}

func (e *simElement) Name() string { return e.name }

func (e *simElement) PropertyNames() []string {
	return append([]string(nil), e.propOrder...)
}

func (e *simElement) Property(name string) (Property, bool) {
	if _, ok := e.props[name]; !ok {
		return nil, false
	}
	return &simProperty{elem: e, name: name}, true
}

// simProperty implements Property as a non-owning reference into its
// Element's property map: it never copies or caches the value, it
// looks it up on every access (§9 "Back-references Element → Property").
type simProperty struct {
	elem *simElement
	name string
}

func (p *simProperty) Name() string { return p.name }

func (p *simProperty) Type() PropType {
	p.elem.mu.Lock()
	defer p.elem.mu.Unlock()
	return p.elem.props[p.name].Type
}

func (p *simProperty) Get() (PropValue, error) {
	p.elem.mu.Lock()
	defer p.elem.mu.Unlock()
	v, ok := p.elem.props[p.name]
	if !ok {
		return PropValue{}, fmt.Errorf("engine: property %q no longer exists", p.name)
	}
	return v, nil
}

// Nicks implements EnumNicks by looking up the catalogue entry for the
// owning element's type — the nick table is immutable spec data, so no
// locking is needed.
func (p *simProperty) Nicks() (map[string]int64, bool) {
	nicks, ok := catalogue[p.elem.typeName].nicks[p.name]
	return nicks, ok
}

// Bounds implements Bounded the same way, from the same immutable
// catalogue entry.
func (p *simProperty) Bounds() (min, max int64, ok bool) {
	b, ok := catalogue[p.elem.typeName].bounds[p.name]
	return b.min, b.max, ok
}

func (p *simProperty) Set(v PropValue) error {
	p.elem.mu.Lock()
	defer p.elem.mu.Unlock()
	cur, ok := p.elem.props[p.name]
	if !ok {
		return fmt.Errorf("engine: property %q no longer exists", p.name)
	}
	if cur.Type != v.Type {
		return fmt.Errorf("engine: property %q type mismatch", p.name)
	}
	p.elem.props[p.name] = v
	pipeline := p.elem.pipeline
	elemName := p.elem.name
	propName := p.name
	if pipeline != nil {
		pipeline.bus.Publish(Message{
			Type:   MsgPropertyNotify,
			Source: elemName,
			Fields: map[string]string{"property": propName},
		})
	}
	return nil
}

// SimulatedPipeline is the concrete Pipeline returned by Simulated.Parse.
// Besides the Pipeline interface it exposes FailNextTransition, a test
// hook that forces the next SetState call to stop short of its target
// and report StateError, exercising the rollback-to-engine-reported-
// state invariant without a real media framework to fail.
type SimulatedPipeline struct {
	mu          sync.Mutex
	name        string
	description string
	state       State
	elements    map[string]*simElement
	order       []string
	bus         *Bus
	verbose     bool
	closed      bool
	failNext    bool
}

func (p *SimulatedPipeline) Name() string        { return p.name }
func (p *SimulatedPipeline) Description() string { return p.description }

func (p *SimulatedPipeline) bindElements() {
	lock := &p.mu
	for _, e := range p.elements {
		e.mu = lock
		e.pipeline = p
	}
}

// FailNextTransition arms the one-shot failure-injection hook.
func (p *SimulatedPipeline) FailNextTransition() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

func (p *SimulatedPipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState walks the state machine one step at a time toward target,
// publishing a STATE_CHANGED message per step, so that READY->PLAYING
// traverses PAUSED exactly like the real engine does. If the one-shot
// failure hook is armed, the walk stops after the first step and
// reports StateError with the engine's actual (partial) state.
func (p *SimulatedPipeline) SetState(ctx context.Context, target State) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.state, fmt.Errorf("engine: pipeline %q is closed", p.name)
	}

	step := 1
	if target < p.state {
		step = -1
	}
	for p.state != target {
		select {
		case <-ctx.Done():
			return p.state, ctx.Err()
		default:
		}
		old := p.state
		p.state = State(int(p.state) + step)
		p.bus.Publish(Message{
			Type:     MsgStateChanged,
			Source:   p.name,
			OldState: old,
			NewState: p.state,
			Pending:  target,
		})
		if p.failNext {
			p.failNext = false
			return p.state, fmt.Errorf("engine: injected transition failure at %s", p.state)
		}
	}
	return p.state, nil
}

func (p *SimulatedPipeline) Element(name string) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.elements[name]
	if !ok {
		return nil, false
	}
	return e, true
}

func (p *SimulatedPipeline) ElementNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

func (p *SimulatedPipeline) Bus() *Bus { return p.bus }

func (p *SimulatedPipeline) SendEvent(ctx context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("engine: pipeline %q is closed", p.name)
	}
	switch ev.Name {
	case "eos":
		p.bus.Publish(Message{Type: MsgEOS, Source: p.name})
	case "seek", "flush-start", "flush-stop":
		// No dedicated bus-message variant in §3.1; the event itself
		// is the observable effect.
	default:
		return fmt.Errorf("engine: unrecognized event %q", ev.Name)
	}
	return nil
}

func (p *SimulatedPipeline) Graph() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	parts := make([]string, len(p.order))
	for i, name := range p.order {
		parts[i] = fmt.Sprintf("%s(%s)", name, p.elements[name].typeName)
	}
	return strings.Join(parts, " -> ")
}

func (p *SimulatedPipeline) SetVerbose(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verbose = v
}

func (p *SimulatedPipeline) Verbose() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verbose
}

func (p *SimulatedPipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if _, err := p.SetState(ctx, StateNull); err != nil {
		return err
	}

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.bus.Shutdown()
	return nil
}
