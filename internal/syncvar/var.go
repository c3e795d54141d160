// Package syncvar provides fields that only the authoritative side may
// mutate. Observers hold mirrored copies updated through the replication
// channel and applied idempotently.
package syncvar

import "errors"

// ErrNotAuthorized is returned when a non-authoritative caller attempts to
// mutate a synchronized value. This is a programming error, not a recoverable
// condition; callers on the authority path never see it.
var ErrNotAuthorized = errors.New("syncvar: mutation by non-authoritative caller")

// Authority is the capability token held by the side permitted to mutate
// canonical state. There is exactly one per simulation.
type Authority struct{ _ byte }

func NewAuthority() *Authority { return &Authority{} }

// Var is a single synchronized field.
type Var[T comparable] struct {
	owner    *Authority
	value    T
	handlers []func(old, new T)
	seq      uint32
}

// NewVar creates a field owned by auth with an initial value. The initial
// value does not fire change handlers.
func NewVar[T comparable](auth *Authority, initial T) *Var[T] {
	return &Var[T]{owner: auth, value: initial}
}

func (v *Var[T]) Get() T { return v.value }

// Seq returns the number of committed changes. Used as the last-write-wins
// ordering key on the replication channel.
func (v *Var[T]) Seq() uint32 { return v.seq }

// Set commits a new value. Setting an equal value is a silent no-op so no
// redundant notifications are produced. Handlers fire after the value is
// committed. A caller without the owning authority gets ErrNotAuthorized.
func (v *Var[T]) Set(auth *Authority, nv T) error {
	if auth == nil || auth != v.owner {
		return ErrNotAuthorized
	}
	if nv == v.value {
		return nil
	}
	old := v.value
	v.value = nv
	v.seq++
	for _, fn := range v.handlers {
		fn(old, nv)
	}
	return nil
}

// OnChange registers a handler receiving (old, new) after each commit.
// Any side, including the authority, may observe.
func (v *Var[T]) OnChange(fn func(old, new T)) {
	v.handlers = append(v.handlers, fn)
}
