package node

import (
	"github.com/ridgerun/gstd/internal/format"
	"github.com/ridgerun/gstd/internal/returncode"
)

// Base implements Node with "no-op refusing" defaults: a verb not
// backed by an installed strategy, or not present in the flag mask,
// returns the matching NO_* code instead of panicking or doing
// nothing silently. Concrete node types embed Base and pass their
// strategies (or nil) to New; a type that needs to specialize a verb
// beyond what a strategy expresses defines its own method of that
// name, which shadows the one promoted from Base.
type Base struct {
	name    string
	flags   AccessMask
	creator Creator
	reader  Reader
	updater Updater
	deleter Deleter
}

// New constructs a Base. Any of creator/reader/updater/deleter may be
// nil, in which case that verb always refuses regardless of flags.
func New(name string, flags AccessMask, creator Creator, reader Reader, updater Updater, deleter Deleter) Base {
	return Base{
		name:    name,
		flags:   flags,
		creator: creator,
		reader:  reader,
		updater: updater,
		deleter: deleter,
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Flags() AccessMask { return b.flags }

// Rename updates the node's name. Used by collections that need to
// normalize or validate a name after construction; most nodes never
// call this.
func (b *Base) Rename(name string) { b.name = name }

func (b *Base) Create(name, description string) (Node, returncode.Code) {
	if !b.flags.Has(FlagCreate) {
		return nil, returncode.NoCreate
	}
	if b.creator == nil {
		return nil, returncode.NoCreate
	}
	return b.creator.Create(name, description)
}

func (b *Base) Read(name string) (Node, returncode.Code) {
	if !b.flags.Has(FlagRead) {
		return nil, returncode.NoRead
	}
	if b.reader == nil {
		return nil, returncode.NoRead
	}
	return b.reader.Read(name)
}

func (b *Base) Update(value string) returncode.Code {
	if !b.flags.Has(FlagUpdate) {
		return returncode.NoUpdate
	}
	if b.updater == nil {
		return returncode.NoUpdate
	}
	return b.updater.Update(value)
}

func (b *Base) Delete(name string) returncode.Code {
	if !b.flags.Has(FlagDelete) {
		return returncode.NoDelete
	}
	if b.deleter == nil {
		return returncode.NoDelete
	}
	return b.deleter.Delete(name)
}

// Describe renders the default self-description: name, flags, and
// (for leaves with no richer override) nothing else. Collections,
// Properties, and Pipelines override this with their own structured
// listing.
func (b *Base) Describe(f format.Formatter) {
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue(b.name)
	f.SetMemberName("access")
	f.SetStringValue(b.flags.String())
	f.EndObject()
}
