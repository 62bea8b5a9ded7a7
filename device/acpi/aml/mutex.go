package aml

import "acpicore/kernel/hal"

// acquireMutex implements the AML Acquire operator against a KindMutex
// object: recursive acquisition by the thread that already owns it just
// bumps a depth counter (mirroring methodMutex's re-entrance rule), a
// fresh acquisition enforces the sync-level ordering invariant before
// blocking on the host-provided hal.Mutex.
func (vm *VM) acquireMutex(obj *Object, timeoutMs uint16) (bool, *Error) {
	m := obj.Mtx
	self := vm.host.Threads().CurrentThreadID()

	if m.owner == self {
		m.depth++
		return true, nil
	}

	if err := vm.checkSyncLevel(m.SyncLevel); err != nil {
		return false, err
	}

	if m.handle == nil {
		h, err := vm.host.Sync().NewMutex()
		if err != nil {
			return false, newError(ErrOutOfMemory, "allocate mutex: %v", err)
		}
		m.handle = h
	}

	if err := m.handle.Acquire(timeoutMs); err != nil {
		if _, isTimeout := err.(hal.WaitTimeout); isTimeout {
			return false, nil
		}
		return false, newError(ErrHardwareTimeout, "mutex acquire: %v", err)
	}

	m.owner = self
	m.depth = 1
	vm.mutexes = append(vm.mutexes, &methodMutex{syncLevel: m.SyncLevel, handle: m.handle, owner: self, depth: 1})
	return true, nil
}

// releaseMutex implements the Release operator.
func (vm *VM) releaseMutex(obj *Object) *Error {
	m := obj.Mtx
	self := vm.host.Threads().CurrentThreadID()
	if m.owner != self {
		return newError(ErrIncompatibleObjectType, "Release of a mutex not owned by the calling thread")
	}
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		m.handle.Release()
		for i, held := range vm.mutexes {
			if held.syncLevel == m.SyncLevel && held.owner == self {
				vm.mutexes = append(vm.mutexes[:i], vm.mutexes[i+1:]...)
				break
			}
		}
	}
	return nil
}

// signalEvent/waitEvent/resetEvent implement the Event opcode family.
func (vm *VM) signalEvent(obj *Object) *Error {
	if obj.Evt.handle == nil {
		h, err := vm.host.Sync().NewEvent()
		if err != nil {
			return newError(ErrOutOfMemory, "allocate event: %v", err)
		}
		obj.Evt.handle = h
	}
	obj.Evt.handle.Signal()
	return nil
}

func (vm *VM) waitEvent(obj *Object, timeoutMs uint16) (bool, *Error) {
	if obj.Evt.handle == nil {
		h, err := vm.host.Sync().NewEvent()
		if err != nil {
			return false, newError(ErrOutOfMemory, "allocate event: %v", err)
		}
		obj.Evt.handle = h
	}
	if err := obj.Evt.handle.Wait(timeoutMs); err != nil {
		if _, isTimeout := err.(hal.WaitTimeout); isTimeout {
			return false, nil
		}
		return false, newError(ErrHardwareTimeout, "event wait: %v", err)
	}
	return true, nil
}

func (vm *VM) resetEvent(obj *Object) *Error {
	if obj.Evt.handle != nil {
		obj.Evt.handle.Reset()
	}
	return nil
}

// acquireGlobalLock and releaseGlobalLock implement the Global Lock
// algorithm against the \_GL_ predefined mutex object: a firmware/OS-shared
// exclusion primitive that in real firmware is backed by a
// compare-and-swap on the FACS's GlobalLock word, but which this host
// boundary always expresses as the same hal.Mutex every other KindMutex
// object uses. A host that does map a FACS and wants the hardware
// handshake layers it on top of GlobalLock/GlobalUnlock below rather than
// this module reimplementing the FACS bit-twiddling itself.
func (vm *VM) acquireGlobalLock(gl *Object) (bool, *Error) {
	return vm.acquireMutex(gl, hal.TimeoutInfinite)
}

func (vm *VM) releaseGlobalLock(gl *Object) *Error {
	return vm.releaseMutex(gl)
}

// GlobalLock acquires the ACPI Global Lock (the \_GL_ predefined mutex
// object bound during Init), blocking until it's available. This is the
// collaborator-facing entry point for spec.md §5's FACS Global Lock
// ordering guarantee: a GPE dispatcher or other host code that needs to
// hold the same lock AML's Acquire(\_GL_, ...) would take calls this
// instead of reaching into opcode-level machinery.
func (vm *VM) GlobalLock() *Error {
	_, err := vm.acquireGlobalLock(vm.globalLockObj)
	return err
}

// GlobalUnlock releases a lock taken by GlobalLock.
func (vm *VM) GlobalUnlock() *Error {
	return vm.releaseGlobalLock(vm.globalLockObj)
}
