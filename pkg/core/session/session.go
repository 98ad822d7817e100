// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

// Package session implements SecureSession (spec.md §4.6): the
// in-memory holder of decrypted key material, serialized through a
// single mutex-guarded coordinator and auto-locked by idle and
// background timers. Grounded on the teacher's
// pkg/agent/session.SecureSession — a pre-allocated key buffer, the
// zero-on-Reset pattern, and IsExpired-style lifetime checks — repurposed
// from a single HKDF-derived transport secret to the spec's
// master/secret/public/recovery key quartet plus the idle/background
// state machine, which has no teacher analogue.
package session

import (
	"sync"
	"time"

	"github.com/onera-app/onera-core/internal/metrics"
	"github.com/onera-app/onera-core/pkg/core/crypto"
	"github.com/onera-app/onera-core/pkg/core/transport"
)

// State is the SecureSession state machine's two states.
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// LockReason labels why a lock transition happened, for metrics and
// caller-visible auditing.
type LockReason string

const (
	LockReasonExplicit          LockReason = "explicit"
	LockReasonIdleTimeout       LockReason = "idle_timeout"
	LockReasonBackgroundTimeout LockReason = "background_timeout"
	LockReasonShutdown          LockReason = "shutdown"
)

// DefaultIdleTimeout and DefaultBackgroundTimeout are spec.md §5's
// default auto-lock timings.
const (
	DefaultIdleTimeout       = 30 * time.Minute
	DefaultBackgroundTimeout = 5 * time.Minute
)

// Keys holds the full unlocked key quartet spec.md §3's SessionState
// names. RecoveryKey is only populated when the session was unlocked via
// the mnemonic or a setup flow that retained it.
type Keys struct {
	MasterKey   []byte
	SecretKey   []byte
	PublicKey   []byte
	RecoveryKey []byte
}

// OnLock, when set, is invoked synchronously every time the session
// transitions to Locked, after buffers are zeroized. ChatKeyCache.Clear
// and CredentialVault's in-flight borrows are wired through this hook.
type OnLockFunc func(reason LockReason)

// Session is the always-present singleton coordinator described in
// spec.md §4.6. The zero value is not usable; construct with New.
type Session struct {
	mu    sync.Mutex
	clock transport.Clock

	state           State
	masterKey       []byte
	secretKey       []byte
	publicKey       []byte
	recoveryKey     []byte
	unlockedAt      time.Time
	lastActivityAt  time.Time

	idleTimeout       time.Duration
	backgroundTimeout time.Duration

	idleTimer       transport.Timer
	backgroundTimer transport.Timer
	stopTimerLoop   chan struct{}

	onLock []OnLockFunc
}

// Config controls a Session's auto-lock timing.
type Config struct {
	IdleTimeout       time.Duration
	BackgroundTimeout time.Duration
}

// DefaultConfig returns spec.md §5's default timings.
func DefaultConfig() Config {
	return Config{IdleTimeout: DefaultIdleTimeout, BackgroundTimeout: DefaultBackgroundTimeout}
}

// New constructs a Locked Session using clock for all timing decisions
// (pass transport.RealClock{} in production, a fake clock in tests so
// spec.md §8 scenarios S4/S5 can drive a virtual clock deterministically).
func New(clock transport.Clock, cfg Config) *Session {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = DefaultBackgroundTimeout
	}
	return &Session{
		clock:             clock,
		state:             Locked,
		idleTimeout:       cfg.IdleTimeout,
		backgroundTimeout: cfg.BackgroundTimeout,
	}
}

// OnLock registers a callback invoked on every Locked transition. Used
// to wire ChatKeyCache.Clear (spec.md §4.7) and similar dependents.
func (s *Session) OnLock(fn OnLockFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLock = append(s.onLock, fn)
}

// Unlock transitions Locked -> Unlocked, taking ownership of keys. Keys'
// slices are retained directly (not copied) as this package is the sole
// intended owner of long-lived sensitive buffers (spec.md §5).
func (s *Session) Unlock(keys Keys) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.zeroizeLocked()
	s.masterKey = keys.MasterKey
	s.secretKey = keys.SecretKey
	s.publicKey = keys.PublicKey
	s.recoveryKey = keys.RecoveryKey
	s.state = Unlocked
	now := s.clock.Now()
	s.unlockedAt = now
	s.lastActivityAt = now

	s.startTimersLocked()
	metrics.SessionUnlocked.Set(1)
}

// IsUnlocked reports the current state without touching activity timers.
func (s *Session) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Unlocked
}

// MasterKey returns a borrowed view of the master key, or (nil, false)
// when locked. The view MUST NOT be retained past the next Lock call;
// callers needing to outlive a concurrent Lock should copy immediately.
func (s *Session) MasterKey() ([]byte, bool) { return s.accessor(func() []byte { return s.masterKey }) }

// SecretKey returns a borrowed view of the X25519 secret key.
func (s *Session) SecretKey() ([]byte, bool) { return s.accessor(func() []byte { return s.secretKey }) }

// PublicKey returns a borrowed view of the X25519 public key.
func (s *Session) PublicKey() ([]byte, bool) { return s.accessor(func() []byte { return s.publicKey }) }

// RecoveryKey returns a borrowed view of the recovery key, when held.
func (s *Session) RecoveryKey() ([]byte, bool) { return s.accessor(func() []byte { return s.recoveryKey }) }

func (s *Session) accessor(get func() []byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Unlocked {
		return nil, false
	}
	v := get()
	if v == nil {
		return nil, false
	}
	s.lastActivityAt = s.clock.Now()
	s.resetIdleTimerLocked()
	return v, true
}

// RecordActivity refreshes last_activity_at without accessing a key,
// resetting the idle timer (spec.md §4.6).
func (s *Session) RecordActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Unlocked {
		return
	}
	s.lastActivityAt = s.clock.Now()
	s.resetIdleTimerLocked()
}

// LastActivityAt returns the last recorded activity time, zero if locked.
func (s *Session) LastActivityAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivityAt
}

// EnteredBackground starts the 5-minute background timer (spec.md
// §4.6). Call when the hosting runtime reports the app moved to the
// background.
func (s *Session) EnteredBackground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Unlocked {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.backgroundTimer = s.clock.NewTimer(s.backgroundTimeout)
	go s.watchTimer(s.backgroundTimer, LockReasonBackgroundTimeout)
}

// EnteredForeground cancels the background timer. If idle-timeout worth
// of time has already elapsed since last_activity_at, locks immediately;
// otherwise restarts the idle timer with the full idle timeout (spec.md
// §4.6).
func (s *Session) EnteredForeground() {
	s.mu.Lock()
	if s.state != Unlocked {
		s.mu.Unlock()
		return
	}
	if s.backgroundTimer != nil {
		s.backgroundTimer.Stop()
		s.backgroundTimer = nil
	}
	elapsed := s.clock.Now().Sub(s.lastActivityAt)
	lockNow := elapsed >= s.idleTimeout
	if !lockNow {
		s.resetIdleTimerLocked()
	}
	s.mu.Unlock()

	if lockNow {
		s.Lock(LockReasonIdleTimeout)
	}
}

// Lock transitions Unlocked -> Locked, zeroizing every held buffer
// before dropping references. Idempotent: locking an already-Locked
// session is a no-op, and the OnLock hooks are not invoked.
func (s *Session) Lock(reason LockReason) {
	s.mu.Lock()
	if s.state != Unlocked {
		s.mu.Unlock()
		return
	}
	s.zeroizeLocked()
	s.state = Locked
	s.stopTimersLocked()
	hooks := append([]OnLockFunc(nil), s.onLock...)
	s.mu.Unlock()

	metrics.SessionLocks.WithLabelValues(string(reason)).Inc()
	metrics.SessionUnlocked.Set(0)
	for _, fn := range hooks {
		fn(reason)
	}
}

// Shutdown locks the session for process teardown. Equivalent to
// Lock(LockReasonShutdown) but named for call-site clarity.
func (s *Session) Shutdown() { s.Lock(LockReasonShutdown) }

func (s *Session) zeroizeLocked() {
	crypto.Zeroize(s.masterKey)
	crypto.Zeroize(s.secretKey)
	crypto.Zeroize(s.publicKey)
	crypto.Zeroize(s.recoveryKey)
	s.masterKey, s.secretKey, s.publicKey, s.recoveryKey = nil, nil, nil, nil
}

func (s *Session) startTimersLocked() {
	s.stopTimersLocked()
	s.idleTimer = s.clock.NewTimer(s.idleTimeout)
	s.stopTimerLoop = make(chan struct{})
	go s.watchTimer(s.idleTimer, LockReasonIdleTimeout)
}

func (s *Session) resetIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idleTimeout)
	}
}

func (s *Session) stopTimersLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.backgroundTimer != nil {
		s.backgroundTimer.Stop()
		s.backgroundTimer = nil
	}
	if s.stopTimerLoop != nil {
		close(s.stopTimerLoop)
		s.stopTimerLoop = nil
	}
}

// watchTimer blocks on timer's channel and locks with reason when it
// fires. A stale timer (superseded by a reset or an intervening Lock)
// is detected by re-checking that the very same timer is still current.
func (s *Session) watchTimer(timer transport.Timer, reason LockReason) {
	if timer == nil {
		return
	}
	<-timer.C()

	s.mu.Lock()
	current := s.idleTimer
	if reason == LockReasonBackgroundTimeout {
		current = s.backgroundTimer
	}
	stale := current != timer
	s.mu.Unlock()
	if stale {
		return
	}
	s.Lock(reason)
}
