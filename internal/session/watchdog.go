// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jeranaias/ifscenter-tui/internal/activity"
)

// DefaultIdleTimeout is the inactivity limit.
const DefaultIdleTimeout = 30 * time.Minute

// Watchdog logs a session out after a period with no user activity.
type Watchdog struct {
	source  activity.Source
	clock   clockwork.Clock
	timeout time.Duration

	mu      sync.Mutex
	running bool
	epoch   uint64
	timer   clockwork.Timer
	unsubs  []func()
	onIdle  func()
	last    time.Time
}

// NewWatchdog creates a stopped watchdog.
func NewWatchdog(source activity.Source, clock clockwork.Clock, timeout time.Duration) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &Watchdog{source: source, clock: clock, timeout: timeout}
}

// Start subscribes to every activity kind and arms the idle timer. onIdle
// runs at most once per Start, on the timer's goroutine. Starting a running
// watchdog restarts it.
func (w *Watchdog) Start(onIdle func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
	w.running = true
	w.onIdle = onIdle
	w.last = w.clock.Now()
	for _, kind := range activity.AllKinds {
		w.unsubs = append(w.unsubs, w.source.Subscribe(kind, w.touch))
	}
	w.armLocked()
}

// Stop cancels the timer and unsubscribes every listener. Safe to call
// repeatedly.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

// Running reports whether the watchdog is armed.
func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// LastActivity returns the time of the last signal (or of Start).
func (w *Watchdog) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Deadline returns when the idle timer will fire, or zero when stopped.
func (w *Watchdog) Deadline() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return time.Time{}
	}
	return w.last.Add(w.timeout)
}

func (w *Watchdog) touch(activity.Signal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.last = w.clock.Now()
	w.armLocked()
}

func (w *Watchdog) armLocked() {
	w.epoch++
	epoch := w.epoch
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.timeout, func() { w.fire(epoch) })
}

func (w *Watchdog) fire(epoch uint64) {
	w.mu.Lock()
	if !w.running || epoch != w.epoch {
		w.mu.Unlock()
		return
	}
	fn := w.onIdle
	w.stopLocked()
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (w *Watchdog) stopLocked() {
	w.running = false
	w.epoch++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	for _, unsub := range w.unsubs {
		unsub()
	}
	w.unsubs = nil
	w.onIdle = nil
}
