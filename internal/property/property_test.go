package property

import (
	"testing"

	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/stretchr/testify/require"
)

func newBoundProperty(t *testing.T, flags node.AccessMask) (*Property, engine.Pipeline) {
	t.Helper()
	eng := engine.NewSimulated()
	p, err := eng.Parse("p0", "identity name=id ! fakesink")
	require.NoError(t, err)
	el, ok := p.Element("id")
	require.True(t, ok)
	ep, ok := el.Property("silent")
	require.True(t, ok)
	return New("silent", flags, ep), p
}

func TestUpdateBoolVariants(t *testing.T) {
	prop, _ := newBoundProperty(t, node.ReadWrite)
	for _, v := range []string{"true", "TRUE", "yes", "1"} {
		require.Equal(t, returncode.OK, prop.Update(v), "value %q", v)
	}
	for _, v := range []string{"false", "no", "0"} {
		require.Equal(t, returncode.OK, prop.Update(v), "value %q", v)
	}
}

func TestUpdateBadBoolValue(t *testing.T) {
	prop, _ := newBoundProperty(t, node.ReadWrite)
	require.Equal(t, returncode.BadValue, prop.Update("nope"))
}

func TestUpdateRefusedWithoutUpdateFlag(t *testing.T) {
	prop, _ := newBoundProperty(t, node.ReadOnly)
	require.Equal(t, returncode.NoUpdate, prop.Update("true"))
}

func TestRoundTrip(t *testing.T) {
	prop, _ := newBoundProperty(t, node.ReadWrite)
	require.Equal(t, returncode.OK, prop.Update("true"))

	f := format.NewJSON()
	prop.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"value": true`)
}

func TestUpdatePipelineEnumProperty(t *testing.T) {
	eng := engine.NewSimulated()
	pl, err := eng.Parse("p0", "videotestsrc name=vts ! fakesink")
	require.NoError(t, err)
	el, _ := pl.Element("vts")
	ep, _ := el.Property("pattern")
	prop := New("pattern", node.ReadWrite, ep)

	require.Equal(t, returncode.OK, prop.Update("1"))
	require.Equal(t, returncode.BadValue, prop.Update("nope"))

	f := format.NewJSON()
	prop.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"value": "snow"`)
}

// TestUpdatePipelineEnumByNick exercises the nick/name branch of
// enum UPDATE (§4.6), not just the bare-integer scenario.
func TestUpdatePipelineEnumByNick(t *testing.T) {
	eng := engine.NewSimulated()
	pl, err := eng.Parse("p0", "videotestsrc name=vts ! fakesink")
	require.NoError(t, err)
	el, _ := pl.Element("vts")
	ep, _ := el.Property("pattern")
	prop := New("pattern", node.ReadWrite, ep)

	require.Equal(t, returncode.OK, prop.Update("ball"))

	f := format.NewJSON()
	prop.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"value": "ball"`)
}

// TestUpdateFlagsProperty exercises the "+"-separated flags parse rule
// and its rendered "+"-joined nick form.
func TestUpdateFlagsProperty(t *testing.T) {
	eng := engine.NewSimulated()
	pl, err := eng.Parse("p0", "rtspsrc name=src ! fakesink")
	require.NoError(t, err)
	el, _ := pl.Element("src")
	ep, _ := el.Property("protocols")
	prop := New("protocols", node.ReadWrite, ep)

	require.Equal(t, returncode.OK, prop.Update("tcp+tls"))

	f := format.NewJSON()
	prop.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"value": "tcp+tls"`)

	require.Equal(t, returncode.BadValue, prop.Update("tcp+nope"))
}

// TestUpdateStructuredProperty exercises the caps/tags/structure parse
// rule: taken as the framework deserializer's own string form.
func TestUpdateStructuredProperty(t *testing.T) {
	eng := engine.NewSimulated()
	pl, err := eng.Parse("p0", "capsfilter name=cf ! fakesink")
	require.NoError(t, err)
	el, _ := pl.Element("cf")
	ep, _ := el.Property("caps")
	prop := New("caps", node.ReadWrite, ep)

	require.Equal(t, returncode.OK, prop.Update("video/x-raw,format=NV12"))
	require.Equal(t, returncode.BadValue, prop.Update(""))

	f := format.NewJSON()
	prop.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"value": "video/x-raw,format=NV12"`)
}

// TestUpdateIntPropertyDeclaredBounds exercises the declared-bounds
// range check on signed integers (§4.6 line 117).
func TestUpdateIntPropertyDeclaredBounds(t *testing.T) {
	eng := engine.NewSimulated()
	pl, err := eng.Parse("p0", "identity name=id ! fakesink")
	require.NoError(t, err)
	el, _ := pl.Element("id")
	ep, _ := el.Property("error-after")
	prop := New("error-after", node.ReadWrite, ep)

	require.Equal(t, returncode.OK, prop.Update("-1"))
	require.Equal(t, returncode.OK, prop.Update("10"))
	require.Equal(t, returncode.BadValue, prop.Update("-2"))
}

// TestUpdateUintPropertyDeclaredBounds does the same for unsigned.
func TestUpdateUintPropertyDeclaredBounds(t *testing.T) {
	eng := engine.NewSimulated()
	pl, err := eng.Parse("p0", "queue name=q ! fakesink")
	require.NoError(t, err)
	el, _ := pl.Element("q")
	ep, _ := el.Property("max-size-buffers")
	prop := New("max-size-buffers", node.ReadWrite, ep)

	require.Equal(t, returncode.OK, prop.Update("500"))
	require.Equal(t, returncode.BadValue, prop.Update("4294967296"))
}
