// Package command implements the command parser (C12): it tokenizes a
// textual verb+URI+argument line, expands convenience aliases,
// resolves the target against the session tree, dispatches the verb,
// and wraps the outcome in the three-member response envelope of
// §6.2.
package command

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/ridgerun/gstd/internal/session"
)

// logger receives one line per executed command, severity picked by
// returncode.Classify (§7's error taxonomy). Discarded until
// SetLogger is called (cmd/gstd does so at startup); tests never need
// to care.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetLogger installs the logger command.Execute reports outcomes to.
// cmd/gstd calls this once at startup with the engine trace log.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// envelope is the §6.2 wire reply: code, canonical description, and
// the node's rendered response (null for writes, timeouts, and
// errors).
type envelope struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Response    any    `json:"response"`
}

// Execute parses and runs one command line against root (normally the
// process Session), returning the pretty-printed JSON envelope ready
// for a transport to write, NUL-terminated, to its client. It never
// returns an error: every outcome, including a malformed line, is a
// complete envelope.
func Execute(ctx context.Context, root node.Node, line string) string {
	code, target, a := route(root, line)

	respF := format.NewJSON()
	if code == returncode.OK {
		code = safeApply(ctx, root, target, a, respF)
	}

	var response any
	if code == returncode.OK {
		response, _ = respF.Value()
	}

	logOutcome(line, code)

	env := envelope{Code: int(code), Description: code.String(), Response: response}
	b, err := json.MarshalIndent(env, "", "    ")
	if err != nil {
		// Marshaling a formatter-built tree of JSON-safe scalars,
		// strings, and the package's own object/array types cannot
		// fail in practice; fall back to a minimal envelope rather
		// than panic at the transport boundary.
		return `{"code":15,"description":"an IPC transport error occurred","response":null}`
	}
	return string(b)
}

// logOutcome reports a finished command at the severity its class
// calls for (§7): client mistakes stay at debug, engine/protocol
// failures log as warnings, infrastructure failures as errors.
func logOutcome(line string, code returncode.Code) {
	switch returncode.Classify(code) {
	case returncode.ClassSuccess, returncode.ClassClient:
		logger.Debug("command", "line", line, "code", int(code))
	case returncode.ClassEngine:
		logger.Warn("command", "line", line, "code", int(code), "description", code.String())
	default:
		logger.Error("command", "line", line, "code", int(code), "description", code.String())
	}
}

// action carries everything apply needs to perform one primitive verb
// once its target has been resolved — or, for the refcounted
// aliases, instead of a tree target.
type action struct {
	verb        string // "create", "read", "update", "delete", "ref"
	name        string // create/delete/ref
	description string // create/ref-create
	value       string // update
	ref         string // "create", "play", "pause", "delete" — which _ref op
}

// route tokenizes line, expands it (primitive or alias) into a target
// URI plus an action, and resolves the URI against root. The "ref"
// verb carries no URI (refCounter methods address pipelines by name
// directly) so resolution is skipped for it.
func route(root node.Node, line string) (returncode.Code, node.Node, action) {
	verb, argsLine, ok := splitVerb(line)
	if !ok {
		return returncode.BadCommand, nil, action{}
	}

	uri, a, code := expand(verb, argsLine)
	if code != returncode.OK {
		return code, nil, action{}
	}
	if a.verb == "ref" {
		return returncode.OK, nil, a
	}

	target, code := session.Resolve(root, uri)
	if code != returncode.OK {
		return code, nil, action{}
	}
	return returncode.OK, target, a
}

// refCounter is implemented by session.Session; kept as a narrow
// local interface so command stays independently testable against
// plain node.Node fakes that don't support the _ref aliases.
type refCounter interface {
	CreateRef(name, description string) returncode.Code
	PlayRef(name string) returncode.Code
	PauseRef(name string) returncode.Code
	DeleteRef(name string) returncode.Code
}

// safeApply runs apply behind the one recover() point every transport
// shares, converting a programmer error (nil mandatory argument, an
// unconstructed strategy) into the closest returncode.Code (§7's
// "Programmer errors" classification) instead of taking the process
// down or leaking a stack trace to the client.
func safeApply(ctx context.Context, root node.Node, target node.Node, a action, f format.Formatter) (code returncode.Code) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from panic in command execution", "line", a.verb+" "+a.name, "panic", r)
			if target == nil {
				code = returncode.MissingInitialization
			} else {
				code = returncode.NullArgument
			}
		}
	}()
	return apply(ctx, root, target, a, f)
}

// apply carries out a routed action. Terminal reads prefer
// node.Poller (the bus message and signal-wait children) over
// Describe, since their READ performs a blocking effect rather than a
// pure render.
func apply(ctx context.Context, root node.Node, target node.Node, a action, f format.Formatter) returncode.Code {
	switch a.verb {
	case "create":
		_, code := target.Create(a.name, a.description)
		return code
	case "read":
		if poller, ok := target.(node.Poller); ok {
			return poller.Poll(ctx, f)
		}
		target.Describe(f)
		return returncode.OK
	case "update":
		return target.Update(a.value)
	case "delete":
		return target.Delete(a.name)
	case "ref":
		rc, ok := root.(refCounter)
		if !ok {
			return returncode.BadCommand
		}
		switch a.ref {
		case "create":
			return rc.CreateRef(a.name, a.description)
		case "play":
			return rc.PlayRef(a.name)
		case "pause":
			return rc.PauseRef(a.name)
		case "delete":
			return rc.DeleteRef(a.name)
		default:
			return returncode.BadCommand
		}
	default:
		return returncode.BadCommand
	}
}

// splitVerb splits line into its first whitespace-delimited token
// (the verb) and the raw remainder.
func splitVerb(line string) (verb, argsLine string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", "", false
	}
	verb, argsLine, _ = cutToken(trimmed)
	return verb, argsLine, true
}

// cutToken splits s at its first run of whitespace, trimming any
// leading whitespace from the remainder. If s has no whitespace, rest
// is empty.
func cutToken(s string) (head, rest string, hasRest bool) {
	idx := strings.IndexAny(s, " \t")
	if idx == -1 {
		return s, "", false
	}
	return s[:idx], strings.TrimLeft(s[idx+1:], " \t"), true
}

// splitN extracts exactly n fields from s: the first n-1 are single
// whitespace-delimited tokens, the last is everything left over
// (trimmed, may itself contain whitespace — a quoted description, a
// multi-field seek argument list). Returns ok=false if s runs out of
// tokens before n-1 are collected.
func splitN(s string, n int) ([]string, bool) {
	out := make([]string, 0, n)
	rest := strings.TrimSpace(s)
	for i := 0; i < n-1; i++ {
		if rest == "" {
			return nil, false
		}
		tok, r, _ := cutToken(rest)
		out = append(out, tok)
		rest = r
	}
	out = append(out, rest)
	return out, true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
