// Package node implements the uniform resource-tree node: identity,
// an access-flag mask, four pluggable verb strategies (Creator,
// Reader, Updater, Deleter), and a default self-description renderer.
// Every addressable resource in the daemon — pipelines, elements,
// properties, the bus, debug controls — is a Node.
package node

import (
	"context"

	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/returncode"
)

// AccessFlag is one bit of the CRUD access mask a Node advertises.
type AccessFlag int

const (
	FlagCreate AccessFlag = 1 << iota
	FlagRead
	FlagUpdate
	FlagDelete
)

// AccessMask is the OR of the verbs a Node permits.
type AccessMask int

// Has reports whether the mask permits f.
func (m AccessMask) Has(f AccessFlag) bool {
	return m&AccessMask(f) != 0
}

// String renders the mask as a four-character CRUD string, e.g.
// "CRUD", "--RU", "R---".
func (m AccessMask) String() string {
	letters := [4]byte{'-', '-', '-', '-'}
	if m.Has(FlagCreate) {
		letters[0] = 'C'
	}
	if m.Has(FlagRead) {
		letters[1] = 'R'
	}
	if m.Has(FlagUpdate) {
		letters[2] = 'U'
	}
	if m.Has(FlagDelete) {
		letters[3] = 'D'
	}
	return string(letters[:])
}

// ReadOnly is the access mask for leaves exposed for inspection only.
const ReadOnly = AccessMask(FlagRead)

// ReadWrite is the access mask for leaves that also accept UPDATE.
const ReadWrite = AccessMask(FlagRead | FlagUpdate)

// Node is the uniform interface every resource-tree entity satisfies.
// Concrete types embed Base for the refusing-default behavior and
// shadow whichever verb methods they need to specialize; a shadowed
// method takes precedence over the embedded strategy dispatch for any
// caller that holds the concrete type or an interface it satisfies.
type Node interface {
	Name() string
	Flags() AccessMask
	Create(name, description string) (Node, returncode.Code)
	Read(name string) (Node, returncode.Code)
	Update(value string) returncode.Code
	Delete(name string) returncode.Code
	Describe(f format.Formatter)
}

// Creator instantiates a new child node under a parent.
type Creator interface {
	Create(name, description string) (Node, returncode.Code)
}

// Reader produces a (possibly transient) child handle for name.
type Reader interface {
	Read(name string) (Node, returncode.Code)
}

// Updater parses value according to the target's declared type and
// applies it.
type Updater interface {
	Update(value string) returncode.Code
}

// Deleter removes a named child and releases it.
type Deleter interface {
	Delete(name string) returncode.Code
}

// CreatorFunc adapts a function to a Creator.
type CreatorFunc func(name, description string) (Node, returncode.Code)

func (f CreatorFunc) Create(name, description string) (Node, returncode.Code) { return f(name, description) }

// ReaderFunc adapts a function to a Reader.
type ReaderFunc func(name string) (Node, returncode.Code)

func (f ReaderFunc) Read(name string) (Node, returncode.Code) { return f(name) }

// UpdaterFunc adapts a function to an Updater.
type UpdaterFunc func(value string) returncode.Code

func (f UpdaterFunc) Update(value string) returncode.Code { return f(value) }

// DeleterFunc adapts a function to a Deleter.
type DeleterFunc func(name string) returncode.Code

func (f DeleterFunc) Delete(name string) returncode.Code { return f(name) }

// Poller is implemented by nodes whose terminal READ performs a
// blocking or state-mutating action rather than a pure render — the
// bus's synthesized "message" child (one timed filtered pop) and a
// signal's synthesized wait (C9, §B.4). The command dispatcher calls
// Poll instead of Describe when the resolved node implements this
// interface, passing the context it uses for cancellation on
// transport close or pipeline teardown.
type Poller interface {
	Poll(ctx context.Context, f format.Formatter) returncode.Code
}
