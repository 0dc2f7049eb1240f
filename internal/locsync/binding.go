// Package locsync keeps a piece of state and one parameter of a location in sync,
// in both directions, without either side echoing its own writes back.
package locsync

import (
	"net/url"
	"slices"
	"sync"
)

type syncState int

const (
	idle syncState = iota
	// the cell was just written from the location; its next change is our own echo
	awaitingStateEcho
	// the location was just pushed from the cell; its next change is our own echo
	awaitingLocationEcho
)

func (s syncState) String() string {
	switch s {
	case awaitingStateEcho:
		return "awaitingStateEcho"
	case awaitingLocationEcho:
		return "awaitingLocationEcho"
	default:
		return "idle"
	}
}

// Binding ties the location parameter name to a Cell.
//
// The mutex only guards the sync state. It is released before the binding
// calls Cell.Set or Location.Push, because both notify their observers
// synchronously and the echo comes straight back into this binding on the
// same goroutine. Events for one binding must therefore be delivered one at a
// time: any goroutine may write the cell or navigate the location, but not
// concurrently with another write to either of them.
type Binding[T any] struct {
	loc  Location
	name string
	def  T
	cell *Cell[T]

	mu        sync.Mutex
	state     syncState
	lastParam []string

	unsubscribeLoc  func()
	unsubscribeCell func()
}

// Bind creates a cell initialized from the location parameter name, falling back
// to def, and keeps the two in sync until Close.
func Bind[T any](loc Location, name string, def T) *Binding[T] {
	vals := loc.Query()[name]
	b := &Binding[T]{
		loc:       loc,
		name:      name,
		def:       def,
		cell:      NewCell(Decode(vals, def)),
		lastParam: slices.Clone(vals),
	}
	b.unsubscribeLoc = loc.Subscribe(b.onLocation)
	b.unsubscribeCell = b.cell.Subscribe(b.onCell)
	return b
}

// Cell is the bound state.
func (b *Binding[T]) Cell() *Cell[T] {
	return b.cell
}

// Name is the bound location parameter.
func (b *Binding[T]) Name() string {
	return b.name
}

// Close stops syncing. The cell keeps its last value.
func (b *Binding[T]) Close() {
	b.unsubscribeLoc()
	b.unsubscribeCell()
}

func (b *Binding[T]) onLocation(q url.Values) {
	vals := q[b.name]

	b.mu.Lock()
	if slices.Equal(vals, b.lastParam) {
		// some other parameter changed
		b.mu.Unlock()
		return
	}
	b.lastParam = slices.Clone(vals)
	if b.state == awaitingLocationEcho {
		b.state = idle
		b.mu.Unlock()
		return
	}
	b.state = awaitingStateEcho
	v := Decode(vals, b.def)
	b.mu.Unlock()

	b.cell.Set(v)
}

func (b *Binding[T]) onCell(v T) {
	b.mu.Lock()
	if b.state == awaitingStateEcho {
		b.state = idle
		b.mu.Unlock()
		return
	}
	enc, err := Encode(v)
	if err != nil {
		// values that cannot be encoded stay local
		b.mu.Unlock()
		return
	}
	q := b.loc.Query()
	if cur := q[b.name]; len(cur) == 1 && cur[0] == enc {
		b.mu.Unlock()
		return
	}
	b.state = awaitingLocationEcho
	b.mu.Unlock()

	q.Set(b.name, enc)
	b.loc.Push(q)
}
