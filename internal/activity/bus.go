// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package activity carries user interaction signals from the UI layer to
// whoever tracks idleness.
//
// The UI publishes one signal per input event. Subscribers register per
// signal kind and receive an unsubscribe function; calling it more than once
// is safe.
package activity

import (
	"sync"
	"time"
)

// =============================================================================
// SIGNAL KINDS
// =============================================================================

// Kind identifies a class of user interaction.
type Kind int

const (
	// PointerDown is a mouse button press.
	PointerDown Kind = iota
	// PointerMove is mouse motion.
	PointerMove
	// KeyDown is a key press.
	KeyDown
	// Scroll is a wheel or scroll gesture.
	Scroll
	// TouchStart is the start of a touch gesture.
	TouchStart
)

// AllKinds lists every kind that counts as user activity.
var AllKinds = []Kind{PointerDown, PointerMove, KeyDown, Scroll, TouchStart}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case PointerDown:
		return "pointerdown"
	case PointerMove:
		return "pointermove"
	case KeyDown:
		return "keydown"
	case Scroll:
		return "scroll"
	case TouchStart:
		return "touchstart"
	default:
		return "unknown"
	}
}

// Signal is one observed interaction.
type Signal struct {
	Kind Kind
	At   time.Time
}

// Source is anything that can deliver signals to subscribers.
type Source interface {
	Subscribe(kind Kind, fn func(Signal)) (unsubscribe func())
}

// =============================================================================
// BUS
// =============================================================================

// Bus is an in-process Source. The zero value is not usable; call NewBus.
type Bus struct {
	mu        sync.Mutex
	listeners map[Kind]map[uint64]func(Signal)
	nextID    uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Kind]map[uint64]func(Signal))}
}

// Subscribe registers fn for kind.
func (b *Bus) Subscribe(kind Kind, fn func(Signal)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.listeners[kind] == nil {
		b.listeners[kind] = make(map[uint64]func(Signal))
	}
	b.listeners[kind][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners[kind], id)
			if len(b.listeners[kind]) == 0 {
				delete(b.listeners, kind)
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers sig to every listener of its kind. Listeners run on the
// caller's goroutine, outside the bus lock, so they may subscribe or
// unsubscribe freely.
func (b *Bus) Publish(sig Signal) {
	if sig.At.IsZero() {
		sig.At = time.Now()
	}

	b.mu.Lock()
	fns := make([]func(Signal), 0, len(b.listeners[sig.Kind]))
	for _, fn := range b.listeners[sig.Kind] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(sig)
	}
}

// Emit is shorthand for Publish with the current time.
func (b *Bus) Emit(kind Kind) {
	b.Publish(Signal{Kind: kind, At: time.Now()})
}

// Listeners returns the total number of registered listeners.
func (b *Bus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.listeners {
		n += len(m)
	}
	return n
}

// ListenersFor returns the number of listeners registered for kind.
func (b *Bus) ListenersFor(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[kind])
}
