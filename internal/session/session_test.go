package session

import (
	"testing"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/stretchr/testify/require"
)

func TestGetIsSingleton(t *testing.T) {
	reset()
	defer reset()
	a := Get(engine.NewSimulated())
	b := Get(engine.NewSimulated())
	require.Same(t, a, b)
}

func TestRootChildren(t *testing.T) {
	reset()
	defer reset()
	s := Get(engine.NewSimulated())

	_, code := s.Read("pipelines")
	require.Equal(t, returncode.OK, code)
	_, code = s.Read("debug")
	require.Equal(t, returncode.OK, code)

	pidNode, code := s.Read("pid")
	require.Equal(t, returncode.OK, code)
	f := format.NewJSON()
	pidNode.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"name": "pid"`)

	_, code = s.Read("nope")
	require.Equal(t, returncode.NoResource, code)
}

func TestResolveWalksNestedPath(t *testing.T) {
	reset()
	defer reset()
	s := Get(engine.NewSimulated())

	coll, code := s.Read("pipelines")
	require.Equal(t, returncode.OK, code)
	created, code := coll.Create("p0", "fakesrc ! fakesink")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, "p0", created.Name())

	n, code := Resolve(s, "/pipelines/p0/state")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, "state", n.Name())
}

func TestResolveSkipsEmptySegments(t *testing.T) {
	reset()
	defer reset()
	s := Get(engine.NewSimulated())

	n, code := Resolve(s, "//pipelines//count/")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, "count", n.Name())
}

func TestResolveFailsOnBadSegment(t *testing.T) {
	reset()
	defer reset()
	s := Get(engine.NewSimulated())

	_, code := Resolve(s, "/pipelines/nope")
	require.Equal(t, returncode.BadCommand, code)
}

func TestInstanceIDStable(t *testing.T) {
	reset()
	defer reset()
	s := Get(engine.NewSimulated())
	require.NotEmpty(t, s.InstanceID())
	require.Equal(t, s.InstanceID(), Get(engine.NewSimulated()).InstanceID())
}
