package command

import (
	"strings"

	"github.com/ridgerun/gstd/internal/returncode"
)

// expand turns (verb, argsLine) into a target URI and the action to
// apply there. It recognizes the four primitives directly (§4.11's
// verb table) and every convenience alias in the table below; an
// unrecognized verb is BAD_COMMAND.
func expand(verb, argsLine string) (string, action, returncode.Code) {
	switch verb {
	case "create":
		fields, ok := splitN(argsLine, 3)
		if !ok {
			return "", action{}, returncode.MissingArgument
		}
		uri, name, description := fields[0], fields[1], unquote(fields[2])
		if uri == "" {
			return "", action{}, returncode.MissingArgument
		}
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return uri, action{verb: "create", name: name, description: description}, returncode.OK

	case "read":
		uri := strings.TrimSpace(argsLine)
		if uri == "" {
			return "", action{}, returncode.MissingArgument
		}
		return uri, action{verb: "read"}, returncode.OK

	case "update":
		fields, ok := splitN(argsLine, 2)
		if !ok || fields[0] == "" {
			return "", action{}, returncode.MissingArgument
		}
		if fields[1] == "" {
			return "", action{}, returncode.MissingArgument
		}
		return fields[0], action{verb: "update", value: fields[1]}, returncode.OK

	case "delete":
		fields, ok := splitN(argsLine, 2)
		if !ok || fields[0] == "" {
			return "", action{}, returncode.MissingArgument
		}
		if fields[1] == "" {
			return "", action{}, returncode.MissingName
		}
		return fields[0], action{verb: "delete", name: fields[1]}, returncode.OK
	}

	def, ok := aliasTable[verb]
	if !ok {
		return "", action{}, returncode.BadCommand
	}
	fields, ok := splitN(argsLine, def.argCount)
	if !ok {
		return "", action{}, returncode.MissingArgument
	}
	return def.build(fields)
}

type aliasDef struct {
	argCount int
	build    func(args []string) (string, action, returncode.Code)
}

func pipelineRead(child string) func([]string) (string, action, returncode.Code) {
	return func(args []string) (string, action, returncode.Code) {
		name := args[0]
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return "/pipelines/" + name + "/" + child, action{verb: "read"}, returncode.OK
	}
}

func pipelineState(value string) aliasDef {
	return aliasDef{argCount: 1, build: func(args []string) (string, action, returncode.Code) {
		name := args[0]
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return "/pipelines/" + name + "/state", action{verb: "update", value: value}, returncode.OK
	}}
}

// aliasTable macro-expands every convenience verb shown in §6 to one
// of the four primitives, per design note and §4.11's closing
// paragraph ("a set of convenience aliases that macro-expand to the
// four primitives").
var aliasTable = map[string]aliasDef{
	"pipeline_create": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		name, description := args[0], unquote(args[1])
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return "/pipelines", action{verb: "create", name: name, description: description}, returncode.OK
	}},
	"pipeline_delete": {argCount: 1, build: func(args []string) (string, action, returncode.Code) {
		name := args[0]
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return "/pipelines", action{verb: "delete", name: name}, returncode.OK
	}},
	"pipeline_list": {argCount: 1, build: func(args []string) (string, action, returncode.Code) {
		return "/pipelines", action{verb: "read"}, returncode.OK
	}},
	"pipeline_play":       pipelineState("playing"),
	"pipeline_pause":      pipelineState("paused"),
	"pipeline_stop":       pipelineState("null"),
	"pipeline_get_state":  {argCount: 1, build: pipelineRead("state")},
	"pipeline_get_graph":  {argCount: 1, build: pipelineRead("graph")},
	"pipeline_get_name":   {argCount: 1, build: pipelineRead("name")},
	"pipeline_element_list": {argCount: 1, build: pipelineRead("elements")},
	"pipeline_verbose": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		name, value := args[0], args[1]
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return "/pipelines/" + name + "/verbose", action{verb: "update", value: value}, returncode.OK
	}},

	"pipeline_create_ref": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		name, description := args[0], unquote(args[1])
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return "", action{verb: "ref", ref: "create", name: name, description: description}, returncode.OK
	}},
	"pipeline_play_ref": {argCount: 1, build: refAction("play")},
	"pipeline_pause_ref": {argCount: 1, build: refAction("pause")},
	"pipeline_delete_ref": {argCount: 1, build: refAction("delete")},

	"element_set": {argCount: 4, build: func(args []string) (string, action, returncode.Code) {
		pipe, el, prop, value := args[0], args[1], args[2], args[3]
		if pipe == "" || el == "" || prop == "" {
			return "", action{}, returncode.MissingArgument
		}
		uri := "/pipelines/" + pipe + "/elements/" + el + "/properties/" + prop
		return uri, action{verb: "update", value: value}, returncode.OK
	}},
	"element_get": {argCount: 3, build: func(args []string) (string, action, returncode.Code) {
		pipe, el, prop := args[0], args[1], args[2]
		if pipe == "" || el == "" || prop == "" {
			return "", action{}, returncode.MissingArgument
		}
		uri := "/pipelines/" + pipe + "/elements/" + el + "/properties/" + prop
		return uri, action{verb: "read"}, returncode.OK
	}},
	"element_list": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		pipe, el := args[0], args[1]
		if pipe == "" || el == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/elements/" + el + "/properties", action{verb: "read"}, returncode.OK
	}},

	"event_eos":         {argCount: 1, build: eventAction("eos")},
	"event_flush_start": {argCount: 1, build: eventAction("flush-start")},
	"event_flush_stop": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		pipe, reset := args[0], args[1]
		if pipe == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/event", action{verb: "create", name: "flush-stop", description: reset}, returncode.OK
	}},
	"event_seek": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		pipe, params := args[0], args[1]
		if pipe == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/event", action{verb: "create", name: "seek", description: params}, returncode.OK
	}},

	"bus_read": {argCount: 1, build: pipelineRead("bus/message")},
	"bus_timeout": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		pipe, value := args[0], args[1]
		if pipe == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/bus/timeout", action{verb: "update", value: value}, returncode.OK
	}},
	"bus_filter": {argCount: 2, build: func(args []string) (string, action, returncode.Code) {
		pipe, types := args[0], args[1]
		if pipe == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/bus/types", action{verb: "update", value: types}, returncode.OK
	}},

	"signal_connect": {argCount: 3, build: func(args []string) (string, action, returncode.Code) {
		pipe, el, sig := args[0], args[1], args[2]
		if pipe == "" || el == "" || sig == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/elements/" + el + "/signals", action{verb: "create", name: sig}, returncode.OK
	}},
	"signal_disconnect": {argCount: 3, build: func(args []string) (string, action, returncode.Code) {
		pipe, el, sig := args[0], args[1], args[2]
		if pipe == "" || el == "" || sig == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/elements/" + el + "/signals", action{verb: "delete", name: sig}, returncode.OK
	}},
	"signal_timeout": {argCount: 4, build: func(args []string) (string, action, returncode.Code) {
		pipe, el, sig, value := args[0], args[1], args[2], args[3]
		if pipe == "" || el == "" || sig == "" {
			return "", action{}, returncode.MissingArgument
		}
		uri := "/pipelines/" + pipe + "/elements/" + el + "/signals/" + sig + "/timeout"
		return uri, action{verb: "update", value: value}, returncode.OK
	}},
	"signal_wait": {argCount: 3, build: func(args []string) (string, action, returncode.Code) {
		pipe, el, sig := args[0], args[1], args[2]
		if pipe == "" || el == "" || sig == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/elements/" + el + "/signals/" + sig, action{verb: "read"}, returncode.OK
	}},

	"debug_enable":    debugUpdate("enable"),
	"debug_color":     debugUpdate("color"),
	"debug_threshold": debugUpdate("threshold"),
	"debug_reset":     debugUpdate("reset"),
	"debug_get_flags": {argCount: 1, build: func(args []string) (string, action, returncode.Code) {
		return "/debug/flags", action{verb: "read"}, returncode.OK
	}},
}

func refAction(ref string) func([]string) (string, action, returncode.Code) {
	return func(args []string) (string, action, returncode.Code) {
		name := args[0]
		if name == "" {
			return "", action{}, returncode.MissingName
		}
		return "", action{verb: "ref", ref: ref, name: name}, returncode.OK
	}
}

func eventAction(name string) func([]string) (string, action, returncode.Code) {
	return func(args []string) (string, action, returncode.Code) {
		pipe := args[0]
		if pipe == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/pipelines/" + pipe + "/event", action{verb: "create", name: name}, returncode.OK
	}
}

func debugUpdate(field string) aliasDef {
	return aliasDef{argCount: 1, build: func(args []string) (string, action, returncode.Code) {
		value := args[0]
		if value == "" {
			return "", action{}, returncode.MissingArgument
		}
		return "/debug/" + field, action{verb: "update", value: value}, returncode.OK
	}}
}
