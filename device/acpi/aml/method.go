package aml

import "acpicore/kernel/hal"

// methodMutex backs a Serialized method's implicit per-method lock, per
// spec.md §5: re-entrance by the same thread increments a depth counter
// instead of deadlocking, and every acquisition must respect the global
// sync-level ordering invariant (a thread may not acquire a mutex whose
// sync level is lower than one it already holds).
type methodMutex struct {
	syncLevel uint8
	handle    hal.Mutex
	owner     hal.ThreadID
	depth     uint32
}

func (vm *VM) methodMutexFor(method *Object) *methodMutex {
	if method.Meth.mutexHandle != nil {
		return method.Meth.mutexHandle
	}
	h, _ := vm.host.Sync().NewMutex()
	mm := &methodMutex{syncLevel: method.Meth.SyncLevel, handle: h}
	method.Meth.mutexHandle = mm
	return mm
}

func (mm *methodMutex) acquire(host hal.Host) *Error {
	self := host.Threads().CurrentThreadID()
	if mm.owner == self {
		mm.depth++
		return nil
	}
	if err := mm.handle.Acquire(hal.TimeoutInfinite); err != nil {
		return newError(ErrHardwareTimeout, "method mutex acquire: %v", err)
	}
	mm.owner = self
	mm.depth = 1
	return nil
}

func (mm *methodMutex) release() {
	mm.depth--
	if mm.depth == 0 {
		mm.owner = 0
		mm.handle.Release()
	}
}

// checkSyncLevel enforces spec.md §5's ordering invariant: a thread
// already holding a mutex of sync level L may not acquire one with a
// lower sync level. vm.mutexes tracks the currently-held AML-visible
// Mutex objects. invokeMethod also runs this check against a Serialized
// method's sync level before taking its methodMutex, but the methodMutex
// locks themselves are never added to vm.mutexes.
func (vm *VM) checkSyncLevel(newLevel uint8) *Error {
	for _, mm := range vm.mutexes {
		if mm.syncLevel > newLevel {
			return newError(ErrSyncLevelTooHigh, "cannot acquire sync level %d while holding %d", newLevel, mm.syncLevel)
		}
	}
	return nil
}
