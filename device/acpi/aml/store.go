package aml

import "acpicore/kernel/hal"

// storeToTarget implements spec.md §4.3's Store algorithm: writing src into
// the location tgt names, with sink- and reference-kind-specific rules.
// Grounded on the teacher's vmStore (vm_load_store.go), generalized from
// its string/uint64-only vmCopyObject into full type coverage.
func (vm *VM) storeToTarget(frame *CallFrame, src *Object, tgt *targetRef) *Error {
	if src == nil || tgt == nil {
		return errNilStoreOperand
	}

	switch tgt.kind {
	case targetNull:
		// Writes to the null target are evaluated for side effects only
		// and discarded.
		return nil

	case targetDebug:
		vm.host.Logger().Logf(vm.logLevelFor(src), "Debug: %s", vm.describe(src))
		return nil

	case targetLocal:
		return vm.storeIntoSlot(frame, &frame.Locals[tgt.slot], src, false)

	case targetArg:
		return vm.storeIntoSlot(frame, &frame.Args[tgt.slot], src, true)

	case targetNamed:
		return vm.storeIntoNode(frame, tgt.node, src, false)
	}
	return newError(ErrBadBytecode, "unknown store target kind")
}

// storeIntoSlot implements the Local/Arg store rule. Ordinarily the slot's
// previous object is unreffed and replaced outright (Locals and Args are
// themselves always overwritten by value, never implicitly converted).
// But the standard ACPI pass-by-reference idiom binds an Arg to a RefOf at
// invokeMethod time (Arg0 := RefOf(x)), and a slot already holding such a
// reference must instead unwind and write back to the referent (§4.3):
// overwrite for an Arg slot (no implicit cast -- mirrors the plain
// overwrite-by-value rule above), implicit cast for a Local slot (mirrors
// storeIntoNode's existing "the existing object's type wins" rule).
func (vm *VM) storeIntoSlot(frame *CallFrame, slot **Object, src *Object, overwrite bool) *Error {
	if *slot != nil && (*slot).Kind == KindReference {
		return vm.storeThroughReference(frame, (*slot).Ref, src, overwrite)
	}
	clone := vm.arena.Clone(src)
	if *slot != nil {
		_ = vm.arena.Unref(*slot)
	}
	*slot = clone
	return nil
}

// storeIntoNode implements storing to a resolved namespace node: if the
// node currently holds an object, its existing Kind governs an implicit
// cast of src (spec.md §4.3's "the existing object's type wins" rule),
// unless overwrite is set, in which case the node's object is replaced
// outright -- the rule a RefOf bound to an Arg slot gets when written
// through. Otherwise src is installed directly (e.g. the first Store to a
// freshly created Name).
func (vm *VM) storeIntoNode(frame *CallFrame, node *Node, src *Object, overwrite bool) *Error {
	if node.Object == nil {
		node.Object = vm.arena.Clone(src)
		return nil
	}

	switch node.Object.Kind {
	case KindFieldUnit, KindBufferField:
		return vm.writeField(node.Object, src)
	case KindReference:
		return vm.storeThroughReference(frame, node.Object.Ref, src, overwrite)
	default:
		if overwrite {
			clone := vm.arena.Clone(src)
			old := node.Object
			node.Object = clone
			_ = vm.arena.Unref(old)
			return nil
		}
		converted, err := vm.convertTo(src, node.Object.Kind)
		if err != nil {
			return err
		}
		old := node.Object
		node.Object = converted
		_ = vm.arena.Unref(old)
		return nil
	}
}

// storeThroughReference resolves one level through a Reference target and
// stores into whatever it names, implementing the "Store through a
// RefOf-produced reference writes back to the referent" rule (§4.4).
// overwrite distinguishes the Arg-slot write-through rule (replace the
// referent outright) from the Local-slot and named-object rule (implicit
// cast against the referent's existing type).
func (vm *VM) storeThroughReference(frame *CallFrame, ref *Reference, src *Object, overwrite bool) *Error {
	switch ref.Kind {
	case RefOfNamed:
		return vm.storeIntoNode(frame, ref.Node, src, overwrite)
	case RefOfIndex:
		return vm.storeIntoIndexed(ref, src)
	case RefOfLocal:
		return vm.storeIntoSlot(frame, &frame.Locals[ref.Slot], src, overwrite)
	case RefOfArg:
		return vm.storeIntoSlot(frame, &frame.Args[ref.Slot], src, overwrite)
	}
	return newError(ErrBadBytecode, "unknown reference kind in store")
}

func (vm *VM) storeIntoIndexed(ref *Reference, src *Object) *Error {
	if ref.Indexed == nil {
		return errNilStoreOperand
	}
	switch ref.Indexed.Kind {
	case KindPackage:
		if ref.IndexPos >= uint64(len(ref.Indexed.Pkg.Elements)) {
			return newError(ErrOutOfBounds, "package index %d out of range", ref.IndexPos)
		}
		old := ref.Indexed.Pkg.Elements[ref.IndexPos]
		ref.Indexed.Pkg.Elements[ref.IndexPos] = vm.arena.Clone(src)
		_ = vm.arena.Unref(old)
		return nil
	case KindBuffer:
		if ref.IndexPos >= uint64(len(ref.Indexed.Buf)) {
			return newError(ErrOutOfBounds, "buffer index %d out of range", ref.IndexPos)
		}
		v, err := vm.toInteger(src)
		if err != nil {
			return err
		}
		ref.Indexed.Buf[ref.IndexPos] = byte(v)
		return nil
	}
	return newError(ErrIncompatibleObjectType, "Index target must be a Package or Buffer")
}

// copyObject implements the CopyObject operator: always a deep copy into
// a brand-new object, regardless of any existing object at the
// destination (unlike Store, CopyObject never implicitly converts), per
// spec.md §4.3.
func (vm *VM) copyObject(src *Object, tgt *targetRef, frame *CallFrame) *Error {
	clone := vm.arena.Clone(src)
	switch tgt.kind {
	case targetNull:
		_ = vm.arena.Unref(clone)
		return nil
	case targetLocal:
		if frame.Locals[tgt.slot] != nil {
			_ = vm.arena.Unref(frame.Locals[tgt.slot])
		}
		frame.Locals[tgt.slot] = clone
		return nil
	case targetArg:
		if frame.Args[tgt.slot] != nil {
			_ = vm.arena.Unref(frame.Args[tgt.slot])
		}
		frame.Args[tgt.slot] = clone
		return nil
	case targetNamed:
		old := tgt.node.Object
		tgt.node.Object = clone
		if old != nil {
			_ = vm.arena.Unref(old)
		}
		return nil
	}
	return nil
}

// loadFromTarget reads the current value named by tgt, used by
// Increment/Decrement and by operand reads that resolve through a
// SuperName rather than a plain TermArg.
func (vm *VM) loadFromTarget(frame *CallFrame, tgt *targetRef) (*Object, *Error) {
	switch tgt.kind {
	case targetLocal:
		if frame.Locals[tgt.slot] == nil {
			return vm.arena.NewInteger(0), nil
		}
		return frame.Locals[tgt.slot], nil
	case targetArg:
		if frame.Args[tgt.slot] == nil {
			return vm.arena.NewInteger(0), nil
		}
		return frame.Args[tgt.slot], nil
	case targetNamed:
		if tgt.node.Object == nil {
			return nil, newError(ErrUndefinedReference, "named target has no bound object")
		}
		if tgt.node.Object.Kind == KindFieldUnit || tgt.node.Object.Kind == KindBufferField {
			return vm.readField(tgt.node.Object)
		}
		return tgt.node.Object, nil
	}
	return nil, newError(ErrIncompatibleObjectType, "cannot read from this target kind")
}

func (vm *VM) logLevelFor(obj *Object) hal.LogLevel { return hal.LogInfo }

func (vm *VM) describe(obj *Object) string {
	switch obj.Kind {
	case KindInteger:
		return formatUint(obj.Integer)
	case KindString:
		return obj.Str
	default:
		return obj.Kind.String()
	}
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
