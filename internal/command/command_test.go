package command

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/session"
	"github.com/stretchr/testify/require"
)

type envelopeView struct {
	Code        int             `json:"code"`
	Description string          `json:"description"`
	Response    json.RawMessage `json:"response"`
}

func decode(t *testing.T, out string) envelopeView {
	t.Helper()
	var v envelopeView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	return v
}

func responseValue(t *testing.T, env envelopeView) any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal(env.Response, &obj))
	return obj["value"]
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	return session.Get(engine.NewSimulated())
}

func TestCreatePlayReadDeleteScenario(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	out := Execute(ctx, s, `create /pipelines p0 "videotestsrc ! fakesink"`)
	env := decode(t, out)
	require.Equal(t, 0, env.Code)
	require.Equal(t, "null", string(env.Response))

	env = decode(t, Execute(ctx, s, "update /pipelines/p0/state playing"))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "read /pipelines/p0/state"))
	require.Equal(t, 0, env.Code)
	require.Equal(t, "playing", responseValue(t, env))

	env = decode(t, Execute(ctx, s, "update /pipelines/p0/state null"))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "delete /pipelines p0"))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "read /pipelines/p0"))
	require.Equal(t, 10, env.Code) // BAD_COMMAND
}

func TestDuplicateCreate(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	decode(t, Execute(ctx, s, `create /pipelines dup "fakesrc ! fakesink"`))
	env := decode(t, Execute(ctx, s, `create /pipelines dup "fakesrc ! fakesink"`))
	require.Equal(t, 8, env.Code) // EXISTING_RESOURCE
}

func TestBadDescription(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	env := decode(t, Execute(ctx, s, `create /pipelines bad "fakesrc !"`))
	require.Equal(t, 2, env.Code) // BAD_DESCRIPTION

	env = decode(t, Execute(ctx, s, "read /pipelines/bad"))
	require.Equal(t, 10, env.Code)
}

func TestPropertyRoundTripEnum(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	decode(t, Execute(ctx, s, `create /pipelines p1 "videotestsrc name=vts ! fakesink"`))
	env := decode(t, Execute(ctx, s, "update /pipelines/p1/elements/vts/properties/pattern 1"))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "read /pipelines/p1/elements/vts/properties/pattern"))
	require.Equal(t, 0, env.Code)
	require.Equal(t, "snow", responseValue(t, env))
}

// TestPropertyRoundTripEnumByNick exercises UPDATE with a nick/name
// string instead of the spec's literal integer example.
func TestPropertyRoundTripEnumByNick(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	decode(t, Execute(ctx, s, `create /pipelines p1n "videotestsrc name=vts ! fakesink"`))
	env := decode(t, Execute(ctx, s, "update /pipelines/p1n/elements/vts/properties/pattern smpte"))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "read /pipelines/p1n/elements/vts/properties/pattern"))
	require.Equal(t, 0, env.Code)
	require.Equal(t, "smpte", responseValue(t, env))
}

func TestBadPropertyValue(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	decode(t, Execute(ctx, s, `create /pipelines p2 "videotestsrc name=vts ! fakesink"`))
	env := decode(t, Execute(ctx, s, "update /pipelines/p2/elements/vts/properties/pattern nope"))
	require.Equal(t, 13, env.Code) // BAD_VALUE
}

func TestBusWaitTimeoutIsNotAnError(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	decode(t, Execute(ctx, s, `create /pipelines p3 "fakesrc ! fakesink"`))
	decode(t, Execute(ctx, s, "update /pipelines/p3/bus/timeout 1000000"))
	decode(t, Execute(ctx, s, "update /pipelines/p3/bus/types eos"))

	env := decode(t, Execute(ctx, s, "bus_read p3"))
	require.Equal(t, 0, env.Code)
	require.Equal(t, "null", string(env.Response))
}

func TestNoCreateOnLeaf(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	decode(t, Execute(ctx, s, `create /pipelines p4 "videotestsrc name=vts ! fakesink"`))

	uris := []string{
		"/pipelines/p4",
		"/pipelines/p4/elements",
		"/pipelines/p4/elements/vts/properties/pattern",
		"/pipelines/p4/bus/timeout",
		"/pipelines/count",
		"/debug/enable",
	}
	for _, uri := range uris {
		env := decode(t, Execute(ctx, s, "create "+uri+" x"))
		require.Equal(t, 7, env.Code, uri) // NO_CREATE
	}
}

func TestUnknownVerbIsBadCommand(t *testing.T) {
	s := newTestSession(t)
	env := decode(t, Execute(context.Background(), s, "frobnicate /pipelines"))
	require.Equal(t, 10, env.Code)
}

func TestMissingArgument(t *testing.T) {
	s := newTestSession(t)
	env := decode(t, Execute(context.Background(), s, "update /pipelines/p0/state"))
	require.Equal(t, 17, env.Code) // MISSING_ARGUMENT
}

func TestRefcountAliases(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	env := decode(t, Execute(ctx, s, `pipeline_create_ref shared "fakesrc ! fakesink"`))
	require.Equal(t, 0, env.Code)
	env = decode(t, Execute(ctx, s, `pipeline_create_ref shared "fakesrc ! fakesink"`))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "pipeline_play_ref shared"))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "read /pipelines/shared/state"))
	require.Equal(t, "playing", responseValue(t, env))

	decode(t, Execute(ctx, s, "pipeline_delete_ref shared"))
	env = decode(t, Execute(ctx, s, "read /pipelines/shared"))
	require.Equal(t, 0, env.Code) // still referenced once

	decode(t, Execute(ctx, s, "pipeline_delete_ref shared"))
	env = decode(t, Execute(ctx, s, "read /pipelines/shared"))
	require.Equal(t, 10, env.Code) // now gone
}

func TestElementSetAndGetAliases(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	decode(t, Execute(ctx, s, `create /pipelines p5 "videotestsrc name=vts ! fakesink"`))

	env := decode(t, Execute(ctx, s, "element_set p5 vts pattern 2"))
	require.Equal(t, 0, env.Code)

	env = decode(t, Execute(ctx, s, "element_get p5 vts pattern"))
	require.Equal(t, 0, env.Code)
	require.Equal(t, "black", responseValue(t, env))
}

func TestSetLoggerReceivesOutcomesBySeverity(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil))) })

	s := newTestSession(t)
	ctx := context.Background()

	Execute(ctx, s, "read /nope")
	require.Contains(t, buf.String(), `level=DEBUG`)

	buf.Reset()
	Execute(ctx, s, `create /pipelines bad "not a valid description"`)
	require.Contains(t, buf.String(), `level=WARN`)
}
