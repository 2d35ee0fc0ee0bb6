package session

import (
	"strings"
	"sync"

	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
)

// debugFlags is the daemon's small, fixed, compiled-in set of debug
// capabilities (§B.6), unrelated to the per-category threshold grammar.
var debugFlags = []string{"COLOR", "THRESHOLD", "RESET"}

const defaultThreshold = "*:1"

// Debug is the "debug" root child (§6.1): enable/color/threshold/reset
// controls plus the read-only flags listing, ported from
// gstd_debug.c's reset semantics.
type Debug struct {
	node.Base

	mu        sync.Mutex
	enable    bool
	color     bool
	threshold string
}

// NewDebug returns a Debug node with enable/color false and threshold
// at its default "*:1".
func NewDebug() *Debug {
	d := &Debug{threshold: defaultThreshold}
	d.Base = node.New("debug", node.ReadOnly, nil, node.ReaderFunc(d.readChild), nil, nil)
	return d
}

func (d *Debug) readChild(name string) (node.Node, returncode.Code) {
	switch name {
	case "enable":
		return &debugBoolLeaf{Base: node.New("enable", node.ReadWrite, nil, nil, nil, nil), d: d, field: fieldEnable}, returncode.OK
	case "color":
		return &debugBoolLeaf{Base: node.New("color", node.ReadWrite, nil, nil, nil, nil), d: d, field: fieldColor}, returncode.OK
	case "threshold":
		return &thresholdLeaf{Base: node.New("threshold", node.ReadWrite, nil, nil, nil, nil), d: d}, returncode.OK
	case "reset":
		return &resetLeaf{Base: node.New("reset", node.ReadWrite, nil, nil, nil, nil), d: d}, returncode.OK
	case "flags":
		return &flagsLeaf{Base: node.New("flags", node.ReadOnly, nil, nil, nil, nil)}, returncode.OK
	default:
		return nil, returncode.NoResource
	}
}

func (d *Debug) Describe(f format.Formatter) {
	d.mu.Lock()
	enable, color, threshold := d.enable, d.color, d.threshold
	d.mu.Unlock()
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("debug")
	f.SetMemberName("enable")
	f.SetValue(enable)
	f.SetMemberName("color")
	f.SetValue(color)
	f.SetMemberName("threshold")
	f.SetStringValue(threshold)
	f.EndObject()
}

type debugField int

const (
	fieldEnable debugField = iota
	fieldColor
)

type debugBoolLeaf struct {
	node.Base
	d     *Debug
	field debugField
}

func (l *debugBoolLeaf) Update(value string) returncode.Code {
	b, ok := parseBoolToken(value)
	if !ok {
		return returncode.BadValue
	}
	l.d.mu.Lock()
	switch l.field {
	case fieldEnable:
		l.d.enable = b
	case fieldColor:
		l.d.color = b
	}
	l.d.mu.Unlock()
	return returncode.OK
}

func (l *debugBoolLeaf) Describe(f format.Formatter) {
	l.d.mu.Lock()
	var v bool
	switch l.field {
	case fieldEnable:
		v = l.d.enable
	case fieldColor:
		v = l.d.color
	}
	l.d.mu.Unlock()
	name := "enable"
	if l.field == fieldColor {
		name = "color"
	}
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue(name)
	f.SetMemberName("type")
	f.SetStringValue("bool")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadWrite.String())
	f.SetMemberName("value")
	f.SetValue(v)
	f.EndObject()
}

// thresholdLeaf validates the GStreamer CATEGORY:LEVEL,... grammar
// without interpreting it (the real debug subsystem is out of scope).
type thresholdLeaf struct {
	node.Base
	d *Debug
}

func (l *thresholdLeaf) Update(value string) returncode.Code {
	if !validThreshold(value) {
		return returncode.BadValue
	}
	l.d.mu.Lock()
	l.d.threshold = value
	l.d.mu.Unlock()
	return returncode.OK
}

func (l *thresholdLeaf) Describe(f format.Formatter) {
	l.d.mu.Lock()
	v := l.d.threshold
	l.d.mu.Unlock()
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("threshold")
	f.SetMemberName("type")
	f.SetStringValue("string")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadWrite.String())
	f.SetMemberName("value")
	f.SetStringValue(v)
	f.EndObject()
}

// validThreshold accepts one or more comma-separated CATEGORY:LEVEL
// pairs where CATEGORY is non-empty (it may be "*") and LEVEL is a
// single digit 0-9; a bare "*" without a level is rejected.
func validThreshold(value string) bool {
	if value == "" {
		return false
	}
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return false
		}
		if len(parts[1]) != 1 || parts[1][0] < '0' || parts[1][0] > '9' {
			return false
		}
	}
	return true
}

// resetLeaf is write-only in effect: setting it true resets threshold
// to its default and enable/color to false, then it always reads back
// false (gstd_debug.c's reset semantics, §B.6).
type resetLeaf struct {
	node.Base
	d *Debug
}

func (l *resetLeaf) Update(value string) returncode.Code {
	b, ok := parseBoolToken(value)
	if !ok {
		return returncode.BadValue
	}
	if b {
		l.d.mu.Lock()
		l.d.enable = false
		l.d.color = false
		l.d.threshold = defaultThreshold
		l.d.mu.Unlock()
	}
	return returncode.OK
}

func (l *resetLeaf) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("reset")
	f.SetMemberName("type")
	f.SetStringValue("bool")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadWrite.String())
	f.SetMemberName("value")
	f.SetValue(false)
	f.EndObject()
}

type flagsLeaf struct {
	node.Base
}

func (l *flagsLeaf) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("flags")
	f.SetMemberName("type")
	f.SetStringValue("flags")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadOnly.String())
	f.SetMemberName("value")
	f.SetStringValue(strings.Join(debugFlags, "+"))
	f.EndObject()
}

func parseBoolToken(s string) (bool, bool) {
	switch s {
	case "true", "yes", "1", "TRUE", "True":
		return true, true
	case "false", "no", "0", "FALSE", "False":
		return false, true
	default:
		return false, false
	}
}
