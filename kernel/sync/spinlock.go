// Package sync provides synchronization primitive implementations used as
// the reference in-process hal.Sync implementation that cmd/acpiexec and the interpreter's own tests
// run against. Real kernels are expected to supply their own hal.Sync built
// atop whatever scheduler they have; this package plays the same role the
// teacher's kernel/sync package plays for gopher-os proper, adapted to also
// satisfy the hal primitives the AML interpreter needs (recursive-friendly
// mutexes, counting-semaphore events) rather than just bare spinlocks.
package sync

import (
	"sync"
	"sync/atomic"
	"time"

	"acpicore/kernel/hal"
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available. Adapted from gopher-os's kernel/sync
// Spinlock: the host-specific "disable interrupts, spin, restore flags"
// dance becomes a plain atomic CAS loop here since this module does not run
// freestanding.
type Spinlock struct {
	state uint32
}

// Lock acquires the spinlock, returning a token (always 0 in this
// implementation) to hand back to Unlock. Satisfies hal.Spinlock.
func (l *Spinlock) Lock() uintptr {
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		// Real gopher-os calls an arch-specific yield here; this
		// in-process stand-in just spins, since spinlocks are meant
		// to be held only briefly.
	}
	return 0
}

// Unlock releases a held lock. Calling it while the lock is free has no
// effect.
func (l *Spinlock) Unlock(uintptr) {
	atomic.StoreUint32(&l.state, 0)
}

// TryToAcquire attempts to acquire the lock without blocking.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// mutex is the reference hal.Mutex: a non-recursive lock with a timed
// acquire, backed by a channel-based semaphore of capacity 1.
type mutex struct {
	ch chan struct{}
}

func newMutex() *mutex {
	m := &mutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

func (m *mutex) Acquire(timeoutMs uint16) error {
	if timeoutMs == hal.TimeoutInfinite {
		<-m.ch
		return nil
	}
	select {
	case <-m.ch:
		return nil
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return hal.WaitTimeout{}
	}
}

func (m *mutex) Release() {
	select {
	case m.ch <- struct{}{}:
	default:
	}
}

// event is the reference hal.Event: a counting semaphore signalled by
// Signal (safe to call from any goroutine, standing in for interrupt
// context) and drained by Wait/Reset.
type event struct {
	mu      sync.Mutex
	count   int
	waiters chan struct{}
}

func newEvent() *event {
	return &event{waiters: make(chan struct{}, 1<<16)}
}

func (e *event) Wait(timeoutMs uint16) error {
	if timeoutMs == hal.TimeoutInfinite {
		<-e.waiters
		return nil
	}
	select {
	case <-e.waiters:
		return nil
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return hal.WaitTimeout{}
	}
}

func (e *event) Signal() {
	select {
	case e.waiters <- struct{}{}:
	default:
	}
}

func (e *event) Reset() {
	for {
		select {
		case <-e.waiters:
		default:
			return
		}
	}
}

// Host is a minimal in-process hal.Sync implementation: real mutexes and
// events backed by Go's own scheduler, used by cmd/acpiexec and by tests
// that need a working Acquire/Release or Wait/Signal pair rather than a
// mock.
type Host struct{}

// NewMutex implements hal.Sync.
func (Host) NewMutex() (hal.Mutex, error) { return newMutex(), nil }

// FreeMutex implements hal.Sync.
func (Host) FreeMutex(hal.Mutex) {}

// NewEvent implements hal.Sync.
func (Host) NewEvent() (hal.Event, error) { return newEvent(), nil }

// FreeEvent implements hal.Sync.
func (Host) FreeEvent(hal.Event) {}

// NewSpinlock implements hal.Sync.
func (Host) NewSpinlock() (hal.Spinlock, error) { return &Spinlock{}, nil }

// FreeSpinlock implements hal.Sync.
func (Host) FreeSpinlock(hal.Spinlock) {}
