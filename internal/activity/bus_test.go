// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package activity

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesOnlyMatchingKind(t *testing.T) {
	b := NewBus()
	var keys, moves int32
	b.Subscribe(KeyDown, func(Signal) { atomic.AddInt32(&keys, 1) })
	b.Subscribe(PointerMove, func(Signal) { atomic.AddInt32(&moves, 1) })

	b.Emit(KeyDown)
	b.Emit(KeyDown)
	b.Emit(Scroll)

	require.Equal(t, int32(2), atomic.LoadInt32(&keys))
	require.Equal(t, int32(0), atomic.LoadInt32(&moves))
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewBus()
	var calls int32
	unsubA := b.Subscribe(KeyDown, func(Signal) { atomic.AddInt32(&calls, 1) })
	unsubB := b.Subscribe(KeyDown, func(Signal) {})
	require.Equal(t, 2, b.Listeners())

	unsubA()
	unsubA()
	require.Equal(t, 1, b.Listeners())
	require.Equal(t, 1, b.ListenersFor(KeyDown))

	b.Emit(KeyDown)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))

	unsubB()
	require.Equal(t, 0, b.Listeners())
}

func TestBus_ListenerMayUnsubscribeItself(t *testing.T) {
	b := NewBus()
	var unsub func()
	var calls int32
	unsub = b.Subscribe(Scroll, func(Signal) {
		atomic.AddInt32(&calls, 1)
		unsub()
	})

	b.Emit(Scroll)
	b.Emit(Scroll)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Equal(t, 0, b.Listeners())
}

func TestBus_PublishFillsTimestamp(t *testing.T) {
	b := NewBus()
	var got Signal
	b.Subscribe(TouchStart, func(s Signal) { got = s })
	b.Publish(Signal{Kind: TouchStart})
	require.False(t, got.At.IsZero())
}

func TestBus_Concurrent(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := AllKinds[i%len(AllKinds)]
			unsub := b.Subscribe(kind, func(Signal) {})
			b.Emit(kind)
			unsub()
		}(i)
	}
	wg.Wait()
	require.Equal(t, 0, b.Listeners())
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "pointerdown", PointerDown.String())
	require.Equal(t, "touchstart", TouchStart.String())
	require.Equal(t, "unknown", Kind(99).String())
}
