// Package property implements the Property node (C6): a leaf that
// binds, at construction time, to one named property on an
// engine.Element and renders/parses its value per a per-type table.
// A Property never owns its backing value; every access looks it up
// live on the bound engine.Property.
package property

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
)

// Property is a Node wrapping one typed engine property.
type Property struct {
	node.Base
	target engine.Property
}

// New binds name (as it appears in the tree) to target with the given
// access mask. flags typically includes FlagRead always and FlagUpdate
// for mutable properties but not for read-only ones. The element
// properties collection builds every Property with node.ReadWrite.
func New(name string, flags node.AccessMask, target engine.Property) *Property {
	return &Property{
		Base:   node.New(name, flags, nil, nil, nil, nil),
		target: target,
	}
}

// Update parses value according to the bound property's declared type
// and applies it. Shadows Base.Update because the parse table is
// intrinsic to Property rather than expressible as a reusable Updater
// strategy shared with other node kinds.
func (p *Property) Update(value string) returncode.Code {
	if !p.Flags().Has(node.FlagUpdate) {
		return returncode.NoUpdate
	}
	pv, code := parseValue(p.target, value)
	if code != returncode.OK {
		return code
	}
	if err := p.target.Set(pv); err != nil {
		return returncode.BadValue
	}
	return returncode.OK
}

// Describe renders {name, type, access, value}, querying the live
// value from the bound engine property on every call.
func (p *Property) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue(p.Name())
	f.SetMemberName("type")
	f.SetStringValue(p.target.Type().String())
	f.SetMemberName("access")
	f.SetStringValue(p.Flags().String())
	f.SetMemberName("value")
	v, err := p.target.Get()
	if err != nil {
		f.SetNullValue()
	} else {
		renderValue(f, p.target, v)
	}
	f.EndObject()
}

// parseValue parses value according to target's declared type. Enum
// first tries target's nick/name table (engine.EnumNicks), falling back
// to the bare integer form when there is no table or no such nick;
// flags accepts only "+"-joined nicks from that table; int and
// uint are range-checked against target's declared bounds
// (engine.Bounded) when it implements one. Both are optional
// capabilities, not part of engine.Property itself, so a target that
// implements neither still gets the bare parse rules (§4.6).
func parseValue(target engine.Property, s string) (engine.PropValue, returncode.Code) {
	switch target.Type() {
	case engine.PropBool:
		switch strings.ToLower(s) {
		case "true", "yes", "1":
			return engine.BoolValue(true), returncode.OK
		case "false", "no", "0":
			return engine.BoolValue(false), returncode.OK
		}
		return engine.PropValue{}, returncode.BadValue
	case engine.PropInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return engine.PropValue{}, returncode.BadValue
		}
		if b, ok := target.(engine.Bounded); ok {
			if min, max, has := b.Bounds(); has && (n < min || n > max) {
				return engine.PropValue{}, returncode.BadValue
			}
		}
		return engine.IntValue(n), returncode.OK
	case engine.PropUint:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return engine.PropValue{}, returncode.BadValue
		}
		if b, ok := target.(engine.Bounded); ok {
			if min, max, has := b.Bounds(); has && (n < uint64(min) || n > uint64(max)) {
				return engine.PropValue{}, returncode.BadValue
			}
		}
		return engine.UintValue(n), returncode.OK
	case engine.PropFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return engine.PropValue{}, returncode.BadValue
		}
		return engine.FloatValue(f), returncode.OK
	case engine.PropString:
		return engine.StringValue(s), returncode.OK
	case engine.PropEnum:
		if n, ok := lookupNick(target, s); ok {
			return engine.EnumValue(n), returncode.OK
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return engine.PropValue{}, returncode.BadValue
		}
		return engine.EnumValue(n), returncode.OK
	case engine.PropFlags:
		mask, ok := parseFlags(target, s)
		if !ok {
			return engine.PropValue{}, returncode.BadValue
		}
		return engine.FlagsValue(mask), returncode.OK
	case engine.PropStructured:
		if strings.TrimSpace(s) == "" {
			return engine.PropValue{}, returncode.BadValue
		}
		return engine.StructuredValue(s), returncode.OK
	default:
		return engine.PropValue{}, returncode.NoUpdate
	}
}

// lookupNick resolves s against target's nick table, if it has one.
func lookupNick(target engine.Property, s string) (int64, bool) {
	nk, ok := target.(engine.EnumNicks)
	if !ok {
		return 0, false
	}
	nicks, has := nk.Nicks()
	if !has {
		return 0, false
	}
	v, found := nicks[s]
	return v, found
}

// parseFlags splits s on "+" and ORs each token's nick value together.
// Unlike enum, flags has no bare-integer fallback (§4.6): a target with
// no nick table, or any unrecognized token, is BAD_VALUE.
func parseFlags(target engine.Property, s string) (uint64, bool) {
	nk, ok := target.(engine.EnumNicks)
	if !ok {
		return 0, false
	}
	nicks, has := nk.Nicks()
	if !has {
		return 0, false
	}
	var mask uint64
	for _, tok := range strings.Split(s, "+") {
		v, found := nicks[tok]
		if !found {
			return 0, false
		}
		mask |= uint64(v)
	}
	return mask, true
}

func renderValue(f format.Formatter, target engine.Property, v engine.PropValue) {
	switch v.Type {
	case engine.PropBool:
		f.SetValue(v.B)
	case engine.PropInt:
		f.SetValue(v.I)
	case engine.PropUint:
		f.SetValue(v.U)
	case engine.PropFloat:
		f.SetValue(v.F)
	case engine.PropString:
		f.SetStringValue(v.S)
	case engine.PropEnum:
		f.SetStringValue(enumNick(target, v.I))
	case engine.PropFlags:
		f.SetStringValue(flagsNicks(target, v.U))
	case engine.PropStructured:
		f.SetStringValue(v.S)
	default:
		f.SetNullValue()
	}
}

// enumNick renders v as its registered nick, falling back to the
// stringified integer when target has no nick table or none matches
// (§4.2: enums fall through to a string contents rendering).
func enumNick(target engine.Property, v int64) string {
	nk, ok := target.(engine.EnumNicks)
	if !ok {
		return strconv.FormatInt(v, 10)
	}
	nicks, has := nk.Nicks()
	if !has {
		return strconv.FormatInt(v, 10)
	}
	for name, val := range nicks {
		if val == v {
			return name
		}
	}
	return strconv.FormatInt(v, 10)
}

// flagsNicks renders mask as its set nicks joined with "+", in a fixed
// (value-sorted) order, or as the bare integer when target has no nick
// table or no nick matches. internal/busmsg's renderTypes joins bus
// message type names with "+" too, but sorts them alphabetically.
func flagsNicks(target engine.Property, mask uint64) string {
	nk, ok := target.(engine.EnumNicks)
	if !ok {
		return strconv.FormatUint(mask, 10)
	}
	nicks, has := nk.Nicks()
	if !has {
		return strconv.FormatUint(mask, 10)
	}
	names := make([]string, 0, len(nicks))
	for name := range nicks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return nicks[names[i]] < nicks[names[j]] })

	var set []string
	for _, name := range names {
		if mask&uint64(nicks[name]) != 0 {
			set = append(set, name)
		}
	}
	if len(set) == 0 {
		return strconv.FormatUint(mask, 10)
	}
	return strings.Join(set, "+")
}
