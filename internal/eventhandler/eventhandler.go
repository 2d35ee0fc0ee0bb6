// Package eventhandler implements the event handler (C10): a CREATE-
// only node attached to every event-capable resource (a Pipeline, or
// an Element through the same machinery per §9 design note (c)) that
// parses a textual event name and argument string into an engine.Event
// and dispatches it.
package eventhandler

import (
	"context"
	"strconv"
	"strings"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
)

// Sender is the minimal capability an event handler needs from its
// owner; engine.Pipeline satisfies it directly.
type Sender interface {
	SendEvent(ctx context.Context, ev engine.Event) error
}

// Handler is the "event" child of a Pipeline or Element.
type Handler struct {
	node.Base
	sender Sender
}

// New attaches a Handler to sender.
func New(sender Sender) *Handler {
	h := &Handler{sender: sender}
	h.Base = node.New("event", node.AccessMask(node.FlagCreate), nil, nil, nil, nil)
	return h
}

// Create dispatches the event named name, with description holding
// its space-separated argument string. Unknown event names fail
// EVENT_ERROR; malformed arguments to a known event fail BAD_VALUE
// (§4.7).
func (h *Handler) Create(name, description string) (node.Node, returncode.Code) {
	if !h.Flags().Has(node.FlagCreate) {
		return nil, returncode.NoCreate
	}
	ev, code := parseEvent(name, description)
	if code != returncode.OK {
		return nil, code
	}
	if err := h.sender.SendEvent(context.Background(), ev); err != nil {
		return nil, returncode.EventError
	}
	return nil, returncode.OK
}

// Seek field defaults applied when a positional field is omitted.
const (
	defaultSeekFormat    = "time"
	defaultSeekFlags     = "none"
	defaultSeekStartType = "set"
	defaultSeekStopType  = "none"
	defaultSeekStop      = int64(-1)
)

func parseEvent(name, args string) (engine.Event, returncode.Code) {
	switch name {
	case "eos":
		return engine.Event{Name: "eos"}, returncode.OK
	case "flush-start":
		return engine.Event{Name: "flush-start"}, returncode.OK
	case "flush-stop":
		reset := true
		if fields := strings.Fields(args); len(fields) > 0 {
			b, ok := parseBool(fields[0])
			if !ok {
				return engine.Event{}, returncode.BadValue
			}
			reset = b
		}
		return engine.Event{Name: "flush-stop", FlushStopReset: reset}, returncode.OK
	case "seek":
		sp, ok := parseSeek(args)
		if !ok {
			return engine.Event{}, returncode.BadValue
		}
		return engine.Event{Name: "seek", Seek: sp}, returncode.OK
	default:
		return engine.Event{}, returncode.EventError
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	default:
		return false, false
	}
}

// parseSeek parses up to 7 space-separated fields: rate, format,
// flags, start-type, start, stop-type, stop. Trailing fields left off
// fall back to the documented defaults above.
func parseSeek(args string) (engine.SeekParams, bool) {
	sp := engine.SeekParams{
		Rate:      1.0,
		Format:    defaultSeekFormat,
		Flags:     defaultSeekFlags,
		StartType: defaultSeekStartType,
		Start:     0,
		StopType:  defaultSeekStopType,
		Stop:      defaultSeekStop,
	}
	fields := strings.Fields(args)
	if len(fields) > 7 {
		return engine.SeekParams{}, false
	}
	if len(fields) > 0 {
		rate, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return engine.SeekParams{}, false
		}
		sp.Rate = rate
	}
	if len(fields) > 1 {
		sp.Format = fields[1]
	}
	if len(fields) > 2 {
		sp.Flags = fields[2]
	}
	if len(fields) > 3 {
		sp.StartType = fields[3]
	}
	if len(fields) > 4 {
		start, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return engine.SeekParams{}, false
		}
		sp.Start = start
	}
	if len(fields) > 5 {
		sp.StopType = fields[5]
	}
	if len(fields) > 6 {
		stop, err := strconv.ParseInt(fields[6], 10, 64)
		if err != nil {
			return engine.SeekParams{}, false
		}
		sp.Stop = stop
	}
	return sp, true
}
