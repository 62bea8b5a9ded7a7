package aml

import (
	"context"

	"acpicore/kernel/hal"
)

// NotifyHandler is registered by the host per spec.md §C to receive
// Notify events raised against a Device/ThermalZone/Processor node.
type NotifyHandler func(node *Node, value uint64)

// dispatchNotify schedules the registered NotifyHandler (if any) onto the
// host work queue, matching the original uACPI implementation's
// asynchronous notification delivery. When the host supplies no work
// queue (Work() returns nil), the handler runs inline instead.
func (vm *VM) dispatchNotify(node *Node, value uint64) *Error {
	if vm.notifyHandler == nil {
		return nil
	}
	wq := vm.host.Work()
	if wq == nil {
		vm.notifyHandler(node, value)
		return nil
	}
	err := wq.Schedule(workClassForValue(value), func(ctx context.Context) {
		vm.notifyHandler(node, value)
	}, context.Background())
	if err != nil {
		return newError(ErrOutOfMemory, "schedule notify: %v", err)
	}
	return nil
}

func workClassForValue(value uint64) hal.WorkClass {
	// Values 0x80+ are device-specific notifications; 0x00-0x7f are
	// defined by the ACPI spec as OSPM-generic events. Either way they
	// go through the same notification queue, never the GPE queue
	// (which is reserved for the interpreter's own GPE dispatch).
	return hal.WorkClassNotification
}

// RegisterNotifyHandler installs the host's Notify callback. Exposed as a
// method rather than a Config field since a host may want to rebind it
// after Init (e.g. once its device driver model has finished probing).
func (vm *VM) RegisterNotifyHandler(h NotifyHandler) {
	vm.notifyHandler = h
}
