// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler defaults.
const (
	DefaultWarningWindow = 60 * time.Second
	DefaultTickInterval  = time.Second
)

// Handlers receive scheduler events. Each carries the generation passed to
// Arm. Handlers run on timer goroutines with no scheduler lock held.
type Handlers struct {
	Warning func(gen uint64)
	Expire  func(gen uint64)
	Tick    func(gen uint64, remaining time.Duration)
}

// Scheduler owns the warning timer, the hard-expiry timer and the display
// tick for one token at a time.
type Scheduler struct {
	clock    clockwork.Clock
	window   time.Duration
	interval time.Duration
	h        Handlers

	mu       sync.Mutex
	active   bool
	epoch    uint64
	gen      uint64
	expiryAt time.Time
	warn     clockwork.Timer
	expire   clockwork.Timer
	tick     clockwork.Timer
}

// NewScheduler creates an idle scheduler.
func NewScheduler(clock clockwork.Clock, window, interval time.Duration, h Handlers) *Scheduler {
	if window < 0 {
		window = DefaultWarningWindow
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{clock: clock, window: window, interval: interval, h: h}
}

// Arm cancels any previous schedule and schedules events for expiryAt.
//
// With until = max(0, expiryAt-now), the warning fires at
// max(0, until-window) and the expiry at until. A zero-delay warning is
// not scheduled; warnDue reports it so the caller can apply it in line. A
// zero-delay expiry schedules nothing and reports expired.
func (s *Scheduler) Arm(gen uint64, expiryAt time.Time) (warnDue, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	until := expiryAt.Sub(s.clock.Now())
	if until <= 0 {
		return false, true
	}

	s.active = true
	s.gen = gen
	s.expiryAt = expiryAt
	epoch := s.epoch

	warnIn := until - s.window
	if warnIn > 0 {
		s.warn = s.clock.AfterFunc(warnIn, func() { s.fireWarning(epoch) })
	} else {
		warnDue = true
	}
	s.expire = s.clock.AfterFunc(until, func() { s.fireExpire(epoch) })
	s.tick = s.clock.AfterFunc(s.interval, func() { s.fireTick(epoch) })
	return warnDue, false
}

// Cancel stops all timers. Safe to call repeatedly.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Active reports whether a schedule is armed.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Remaining returns max(0, expiryAt-now) for the armed schedule.
func (s *Scheduler) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0
	}
	return clampRemaining(s.expiryAt.Sub(s.clock.Now()))
}

func (s *Scheduler) cancelLocked() {
	s.active = false
	s.epoch++
	for _, t := range []clockwork.Timer{s.warn, s.expire, s.tick} {
		if t != nil {
			t.Stop()
		}
	}
	s.warn, s.expire, s.tick = nil, nil, nil
}

func (s *Scheduler) fireWarning(epoch uint64) {
	s.mu.Lock()
	if !s.active || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.warn = nil
	gen := s.gen
	s.mu.Unlock()

	if s.h.Warning != nil {
		s.h.Warning(gen)
	}
}

func (s *Scheduler) fireExpire(epoch uint64) {
	s.mu.Lock()
	if !s.active || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.expire = nil
	s.cancelLocked()
	s.mu.Unlock()

	if s.h.Expire != nil {
		s.h.Expire(gen)
	}
}

func (s *Scheduler) fireTick(epoch uint64) {
	s.mu.Lock()
	if !s.active || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	remaining := clampRemaining(s.expiryAt.Sub(s.clock.Now()))
	if remaining > 0 {
		s.tick = s.clock.AfterFunc(s.interval, func() { s.fireTick(epoch) })
	} else {
		s.tick = nil
	}
	gen := s.gen
	s.mu.Unlock()

	if s.h.Tick != nil {
		s.h.Tick(gen, remaining)
	}
}

func clampRemaining(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
