package collection

import (
	"testing"

	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/stretchr/testify/require"
)

type stubNode struct {
	node.Base
	name string
}

func (s *stubNode) Name() string { return s.name }

func newStub(name, _ string) (node.Node, returncode.Code) {
	return &stubNode{name: name}, returncode.OK
}

func TestCreateAndRead(t *testing.T) {
	c := New("pipelines", node.AccessMask(node.FlagCreate|node.FlagRead|node.FlagDelete), "pipelines", newStub, nil)

	child, code := c.Create("p0", "desc")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, "p0", child.Name())

	got, code := c.Read("p0")
	require.Equal(t, returncode.OK, code)
	require.Equal(t, "p0", got.Name())
}

func TestCreateDuplicateRejected(t *testing.T) {
	c := New("pipelines", node.AccessMask(node.FlagCreate|node.FlagRead), "pipelines", newStub, nil)
	_, code := c.Create("p0", "d")
	require.Equal(t, returncode.OK, code)
	_, code = c.Create("p0", "d")
	require.Equal(t, returncode.ExistingResource, code)
	require.Equal(t, 1, c.Count())
}

func TestCreateFailureLeavesNoTrace(t *testing.T) {
	failing := func(name, desc string) (node.Node, returncode.Code) {
		return nil, returncode.BadDescription
	}
	c := New("pipelines", node.AccessMask(node.FlagCreate|node.FlagRead), "pipelines", failing, nil)
	_, code := c.Create("p0", "bad")
	require.Equal(t, returncode.BadDescription, code)
	require.Equal(t, 0, c.Count())
	_, code = c.Read("p0")
	require.Equal(t, returncode.NoResource, code)
}

func TestDeleteInvokesTeardownAfterUnlock(t *testing.T) {
	var torn node.Node
	c := New("pipelines", node.AccessMask(node.FlagCreate|node.FlagRead|node.FlagDelete), "pipelines", newStub, func(n node.Node) {
		torn = n
	})
	c.Create("p0", "d")
	code := c.Delete("p0")
	require.Equal(t, returncode.OK, code)
	require.NotNil(t, torn)
	require.Equal(t, "p0", torn.Name())
	require.Equal(t, 0, c.Count())
}

func TestDeleteUnknownName(t *testing.T) {
	c := New("pipelines", node.AccessMask(node.FlagDelete), "pipelines", nil, nil)
	require.Equal(t, returncode.NoResource, c.Delete("missing"))
}

func TestCountLeaf(t *testing.T) {
	c := New("pipelines", node.AccessMask(node.FlagCreate|node.FlagRead), "pipelines", newStub, nil)
	c.Create("p0", "d")
	c.Create("p1", "d")

	countNode, code := c.Read("count")
	require.Equal(t, returncode.OK, code)

	f := format.NewJSON()
	countNode.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"value": 2`)
}

func TestDescribeListing(t *testing.T) {
	c := New("pipelines", node.AccessMask(node.FlagCreate|node.FlagRead), "pipelines", newStub, nil)
	c.Create("p0", "d")
	c.Create("p1", "d")

	f := format.NewJSON()
	c.Describe(f)
	out, err := f.Generate()
	require.NoError(t, err)
	require.Contains(t, out, `"p0"`)
	require.Contains(t, out, `"p1"`)
	require.Contains(t, out, `"count": 2`)
}

func TestNoCreateWhenFlagMissing(t *testing.T) {
	c := New("properties", node.ReadOnly, "properties", newStub, nil)
	_, code := c.Create("x", "")
	require.Equal(t, returncode.NoCreate, code)
}
