// Package collection implements the Collection node (C5): an
// ordered, named set of homogeneous children (all Pipelines, all
// Elements, all Properties, ...). Name uniqueness is enforced before
// construction so a failed construction never leaves a half-built
// entry behind.
package collection

import (
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/node"
	"github.com/ridgerun/gstd/internal/returncode"
	"sync"
)

// CreateFunc constructs the concrete child for a CREATE call. It is
// the collection's own Creator strategy: for /pipelines this parses
// the pipeline description; for a read-only collection (e.g.
// elements, properties) it is nil and CREATE always refuses.
type CreateFunc func(name, description string) (node.Node, returncode.Code)

// Collection is a Node whose children are homogeneous. It maintains
// insertion order and guards its child map with a single
// reader/writer lock per §5: CREATE/DELETE take the exclusive side,
// READ and the count/listing take the shared side, so many concurrent
// readers can traverse while mutations serialize.
type Collection struct {
	node.Base

	mu       sync.RWMutex
	order    []string
	children map[string]node.Node

	childKind string // plural label used in the structured listing, e.g. "pipelines"
	creator   CreateFunc
	// onDelete runs after a child is removed from the map, outside the
	// lock, so it can safely perform teardown (e.g. driving a pipeline
	// to NULL) without re-entering Collection methods under the guard.
	onDelete func(node.Node)
}

// New constructs a Collection. flags should include FlagRead always;
// FlagCreate only if creator is non-nil; FlagDelete if children may be
// individually removed.
func New(name string, flags node.AccessMask, childKind string, creator CreateFunc, onDelete func(node.Node)) *Collection {
	c := &Collection{
		children:  make(map[string]node.Node),
		childKind: childKind,
		creator:   creator,
		onDelete:  onDelete,
	}
	c.Base = node.New(name, flags, nil, nil, nil, nil)
	return c
}

// Create checks name uniqueness and, only if the name is free, invokes
// the collection's Creator. A construction failure leaves no trace in
// the map.
func (c *Collection) Create(name, description string) (node.Node, returncode.Code) {
	if !c.Flags().Has(node.FlagCreate) {
		return nil, returncode.NoCreate
	}
	if name == "" {
		return nil, returncode.MissingName
	}
	if c.creator == nil {
		return nil, returncode.NoCreate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.children[name]; exists {
		return nil, returncode.ExistingResource
	}
	child, code := c.creator(name, description)
	if code != returncode.OK {
		return nil, code
	}
	c.children[name] = child
	c.order = append(c.order, name)
	return child, returncode.OK
}

// Read resolves name to a child, or to the synthesized "count" leaf.
// Shadows Base.Read: the count leaf and the ordered lookup are
// intrinsic to Collection, not expressible as a shared Reader
// strategy with other node kinds.
func (c *Collection) Read(name string) (node.Node, returncode.Code) {
	if !c.Flags().Has(node.FlagRead) {
		return nil, returncode.NoRead
	}
	if name == "count" {
		return &countLeaf{c: c}, returncode.OK
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	child, ok := c.children[name]
	if !ok {
		return nil, returncode.NoResource
	}
	return child, returncode.OK
}

// Delete removes name, invoking the collection's teardown hook (if
// any) after releasing the lock.
func (c *Collection) Delete(name string) returncode.Code {
	if !c.Flags().Has(node.FlagDelete) {
		return returncode.NoDelete
	}
	c.mu.Lock()
	child, ok := c.children[name]
	if !ok {
		c.mu.Unlock()
		return returncode.NoResource
	}
	delete(c.children, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if c.onDelete != nil {
		c.onDelete(child)
	}
	return returncode.OK
}

// Seed installs a pre-built child without going through Create. Used
// when a parent's children are constructed synchronously as the
// parent itself is built (an Element's Properties, a Pipeline's
// Elements) rather than created on demand by a client.
func (c *Collection) Seed(name string, child node.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.children[name]; !exists {
		c.order = append(c.order, name)
	}
	c.children[name] = child
}

// Names returns the children in insertion order.
func (c *Collection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Count returns the number of live children.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Describe renders the structured listing returned by "READ" with no
// trailing name: count plus the ordered child-name array.
func (c *Collection) Describe(f format.Formatter) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue(c.Name())
	f.SetMemberName("count")
	f.SetValue(len(c.order))
	f.SetMemberName(c.childKind)
	f.BeginArray()
	for _, n := range c.order {
		f.SetStringValue(n)
	}
	f.EndArray()
	f.EndObject()
}

// countLeaf is the virtual read-only "count" child synthesized by
// Read, always reflecting the collection's current size.
type countLeaf struct {
	node.Base
	c *Collection
}

func (l *countLeaf) Name() string          { return "count" }
func (l *countLeaf) Flags() node.AccessMask { return node.ReadOnly }

func (l *countLeaf) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("count")
	f.SetMemberName("type")
	f.SetStringValue("int")
	f.SetMemberName("access")
	f.SetStringValue(node.ReadOnly.String())
	f.SetMemberName("value")
	f.SetValue(l.c.Count())
	f.EndObject()
}
