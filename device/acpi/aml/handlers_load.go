package aml

import "acpicore/device/acpi/table"

// handlers_load.go covers Load and LoadTable. Dynamic table discovery
// beyond signature lookup (OEM ID, OEM table ID, RSDP/XSDT walking) is out
// of scope per spec.md §1's non-goal on table discovery/validation; both
// handlers here work only against tables the host's Resolver already knows
// about, which covers the interoperability-relevant case of a DSDT
// triggering one of its own already-installed SSDTs.

func init() {
	register(OpLoad, "Load", []ParseStep{step(MicroSuperName), step(MicroTarget)}, loadHandler)
	register(OpLoadTable, "LoadTable", []ParseStep{
		step(MicroOperand), step(MicroOperand), step(MicroOperand),
		step(MicroOperand), step(MicroOperand), step(MicroOperand),
	}, loadTableHandler)
	register(OpUnload, "Unload", []ParseStep{step(MicroOperand)}, unloadHandler)
}

// recordLoad captures the namespace nodes a table's AML just installed
// directly under root (everything VM.LoadTable appended to
// Root.Children while it ran) and hands back the DDBHandle integer that
// names them, so a later Unload knows what to tear down. Nested
// subtrees under those nodes come down with them.
func (vm *VM) recordLoad(rootChildrenBefore int) uint64 {
	vm.nextDDBHandle++
	handle := vm.nextDDBHandle
	nodes := append([]*Node(nil), vm.ns.Root.Children[rootChildrenBefore:]...)
	vm.loaded = append(vm.loaded, &loadedTable{handle: handle, nodes: nodes})
	return handle
}

// loadHandler reads a raw table image out of a Buffer/Field source,
// decodes its header, and evaluates its AML at root scope, per the ACPI
// spec's DefLoad. The optional DDBHandle target receives the table's
// load handle on success (consumed later by Unload), Zero on failure.
func loadHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	srcTgt := ctx.Items[0].Target
	handleTgt := ctx.Items[1].Target

	obj, err := vm.loadFromTarget(frame, srcTgt)
	var handle uint64
	if err == nil {
		raw, cerr := vm.toBuffer(obj)
		if cerr == nil {
			if header, herr := table.DecodeHeader(raw.Buf); herr == nil {
				before := len(vm.ns.Root.Children)
				sig := string(header.Signature[:])
				if lerr := vm.LoadTable(sig, table.AML(header, raw.Buf)); lerr == nil {
					handle = vm.recordLoad(before)
				}
			}
		}
	}

	if handleTgt != nil && handleTgt.kind != targetNull {
		if serr := vm.storeToTarget(frame, vm.arena.NewInteger(handle), handleTgt); serr != nil {
			return serr
		}
	}
	return nil
}

// loadTableHandler implements DefLoadTable: looks the named table up by
// signature when the host's Resolver is a *table.StaticResolver (with any
// other Resolver it always returns Zero) (OEM ID/OEM table ID/root path/
// parameter path/parameter data are consumed, per grammar, but not
// consulted — see the scope note above) and returns a nonzero DDBHandle on
// success, Zero on failure.
func loadTableHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	sigObj, err := vm.toStringObj(ctx.Items[0].Obj)
	if err != nil {
		return err
	}

	var handle uint64
	if sr, ok := vm.resolver.(*table.StaticResolver); ok {
		if header := sr.LookupTable(sigObj.Str); header != nil {
			before := len(vm.ns.Root.Children)
			if lerr := vm.LoadTable(sigObj.Str, sr.RawAML(sigObj.Str)); lerr == nil {
				handle = vm.recordLoad(before)
			}
		}
	}

	ctx.Items = ctx.Items[:0]
	ctx.pushItem(Item{Obj: vm.arena.NewInteger(handle)})
	return nil
}

// unloadHandler implements DefUnload: the DDBHandle names a prior Load/
// LoadTable call, and every namespace node that call installed is marked
// dangling rather than removed outright, since an existing Reference may
// still point into the subtree (namespace.go's dangling-node rule). An
// unrecognized or already-unloaded handle is a no-op, matching Load's own
// tolerance of failure.
func unloadHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	handle, err := vm.toInteger(ctx.Items[0].Obj)
	if err != nil {
		return err
	}

	for i, lt := range vm.loaded {
		if lt.handle != handle {
			continue
		}
		for _, n := range lt.nodes {
			vm.ns.uninstallSubtree(n)
		}
		vm.loaded = append(vm.loaded[:i], vm.loaded[i+1:]...)
		break
	}
	return nil
}
