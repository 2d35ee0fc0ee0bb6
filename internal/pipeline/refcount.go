package pipeline

import (
	"sync"

	"github.com/ridgerun/gstd/internal/returncode"
)

// refcount tracks, for one pipeline name, how many clients have asked
// for it to exist (create) and how many have asked for it to play
// (play), per the "Refcounted pipelines" design note and the
// original's gstd_refcount.c.
type refcount struct {
	create int
	play   int
}

// RefCounter implements the `_ref` command variants (pipeline_create_ref,
// pipeline_play_ref, pipeline_pause_ref, pipeline_delete_ref): it lets
// multiple clients coalesce ownership of a pipeline by name. Its mutex
// is the OUTER lock of the pair: each method holds it for the whole
// call, including while its caller-supplied closure runs, and that
// closure is what calls into the pipelines Collection's (or a
// Pipeline's) own separate lock underneath it. Nothing ever acquires
// RefCounter's lock from inside Collection/Pipeline code, so this
// ordering is safe, but it is inverted from "RefCounter's lock is
// acquired only after the Collection call returns" — do not assume the
// reverse when adding a new _ref caller.
type RefCounter struct {
	mu     sync.Mutex
	counts map[string]*refcount
}

// NewRefCounter returns a ready-to-use, empty counter.
func NewRefCounter() *RefCounter {
	return &RefCounter{counts: make(map[string]*refcount)}
}

// CreateRef increments name's create_count, invoking create on the
// 0->1 transition. Concurrent calls are idempotent at the boundary: a
// failed first create leaves no trace.
func (r *RefCounter) CreateRef(name string, create func() returncode.Code) returncode.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.counts[name]
	if !ok {
		rc = &refcount{}
		r.counts[name] = rc
	}
	if rc.create == 0 {
		if code := create(); code != returncode.OK {
			if rc.play == 0 {
				delete(r.counts, name)
			}
			return code
		}
	}
	rc.create++
	return returncode.OK
}

// PlayRef increments name's play_count, invoking play on the 0->1
// transition. Fails NO_PIPELINE if name has no outstanding create ref.
func (r *RefCounter) PlayRef(name string, play func() returncode.Code) returncode.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.counts[name]
	if !ok {
		return returncode.NoPipeline
	}
	if rc.play == 0 {
		if code := play(); code != returncode.OK {
			return code
		}
	}
	rc.play++
	return returncode.OK
}

// PauseRef decrements name's play_count, invoking pause on the
// N->N-1=0 transition.
func (r *RefCounter) PauseRef(name string, pause func() returncode.Code) returncode.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.counts[name]
	if !ok || rc.play == 0 {
		return returncode.NoPipeline
	}
	rc.play--
	if rc.play == 0 {
		return pause()
	}
	return returncode.OK
}

// DeleteRef decrements name's create_count, invoking del on the
// N->N-1=0 transition and forgetting the entry afterward.
func (r *RefCounter) DeleteRef(name string, del func() returncode.Code) returncode.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.counts[name]
	if !ok || rc.create == 0 {
		return returncode.NoPipeline
	}
	rc.create--
	if rc.create == 0 {
		code := del()
		delete(r.counts, name)
		return code
	}
	return returncode.OK
}

// Counts reports the current (create, play) pair for name, for tests
// and introspection.
func (r *RefCounter) Counts(name string) (create, play int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.counts[name]
	if !ok {
		return 0, 0
	}
	return rc.create, rc.play
}
