package aml

import "acpicore/kernel/hal"

// handlers_extra.go covers the opcodes that don't fit the ALU/misc/decl
// groupings above: Mid, Match, FromBCD/ToBCD, Timer, Revision, Fatal, and
// External. Grounded on the ACPI machine language grammar summarized in
// SPEC_FULL.md's domain-stack section; none of these have a teacher
// precedent since gopher-os's entity-tree walk never reached them.

func init() {
	register(OpMid, "Mid", []ParseStep{step(MicroOperand), step(MicroOperand), step(MicroOperand), step(MicroTarget)}, midHandler)

	register(OpMatch, "Match", []ParseStep{
		step(MicroOperand),
		step(MicroLoadImmByte),
		step(MicroOperand),
		step(MicroLoadImmByte),
		step(MicroOperand),
		step(MicroOperand),
	}, matchHandler)

	register(OpFromBCD, "FromBCD", []ParseStep{step(MicroOperand), step(MicroTarget)}, bcdHandler(bcdToBinary))
	register(OpToBCD, "ToBCD", []ParseStep{step(MicroOperand), step(MicroTarget)}, bcdHandler(binaryToBCD))

	register(OpTimer, "Timer", nil, timerHandler)
	register(OpRevision, "Revision", nil, revisionHandler)

	register(OpFatal, "Fatal", []ParseStep{step(MicroLoadImmByte), step(MicroLoadImmDword), step(MicroOperand)}, fatalHandler)

	register(OpExternal, "External", []ParseStep{step(MicroCreateNameString), step(MicroLoadImmByte), step(MicroLoadImmByte)}, externalHandler)
}

// midHandler implements DefMid: a substring of a String, or a sub-range of
// a Buffer, starting at Index for Length elements (clamped to the source's
// bounds rather than erroring, per the ACPI spec's Mid behavior).
func midHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	src := ctx.Items[0].Obj
	index, err := vm.toInteger(ctx.Items[1].Obj)
	if err != nil {
		return err
	}
	length, err := vm.toInteger(ctx.Items[2].Obj)
	if err != nil {
		return err
	}
	tgt := ctx.Items[3].Target

	var result *Object
	switch src.Kind {
	case KindBuffer:
		result = vm.arena.NewBuffer(midBytes([]byte(src.Buf), index, length))
	default:
		s, serr := vm.toStringObj(src)
		if serr != nil {
			return serr
		}
		result = vm.arena.NewString(string(midBytes([]byte(s.Str), index, length)))
	}

	if tgt != nil && tgt.kind != targetNull {
		if err := vm.storeToTarget(frame, result, tgt); err != nil {
			return err
		}
	}
	ctx.Items = ctx.Items[:0]
	ctx.pushItem(Item{Obj: result})
	return nil
}

func midBytes(data []byte, index, length uint64) []byte {
	if index >= uint64(len(data)) {
		return nil
	}
	end := index + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return append([]byte(nil), data[index:end]...)
}

// matchOpcode mirrors the ACPI spec's MTR/MEQ/MLE/MLT/MGE/MGT constants.
const (
	matchTrue = iota
	matchEQ
	matchLE
	matchLT
	matchGE
	matchGT
)

func matchHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	pkg := ctx.Items[0].Obj
	op1 := ctx.Items[1].Imm
	operand1 := ctx.Items[2].Obj
	op2 := ctx.Items[3].Imm
	operand2 := ctx.Items[4].Obj
	start, err := vm.toInteger(ctx.Items[5].Obj)
	if err != nil {
		return err
	}

	if pkg.Kind != KindPackage {
		return newError(ErrIncompatibleObjectType, "Match requires a Package")
	}

	result := ^uint64(0)
	for i := start; i < uint64(len(pkg.Pkg.Elements)); i++ {
		el := pkg.Pkg.Elements[i]
		ok1, merr := matchOne(vm, el, byte(op1), operand1)
		if merr != nil {
			return merr
		}
		ok2, merr := matchOne(vm, el, byte(op2), operand2)
		if merr != nil {
			return merr
		}
		if ok1 && ok2 {
			result = i
			break
		}
	}

	ctx.Items = ctx.Items[:0]
	ctx.pushItem(Item{Obj: vm.arena.NewInteger(result)})
	return nil
}

func matchOne(vm *VM, el *Object, op byte, operand *Object) (bool, *Error) {
	if op == matchTrue {
		return true, nil
	}
	cmp, err := vm.compareObjects(el, operand)
	if err != nil {
		return false, err
	}
	switch op {
	case matchEQ:
		return cmp == 0, nil
	case matchLE:
		return cmp <= 0, nil
	case matchLT:
		return cmp < 0, nil
	case matchGE:
		return cmp >= 0, nil
	case matchGT:
		return cmp > 0, nil
	}
	return false, newError(ErrBadBytecode, "unknown Match opcode 0x%x", op)
}

func bcdHandler(fn func(uint64) (uint64, *Error)) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		v, err := vm.toInteger(ctx.Items[0].Obj)
		if err != nil {
			return err
		}
		converted, cerr := fn(v)
		if cerr != nil {
			return cerr
		}
		converted = vm.truncateInt(converted)
		result := vm.arena.NewInteger(converted)

		tgt := ctx.Items[1].Target
		if tgt != nil && tgt.kind != targetNull {
			if serr := vm.storeToTarget(frame, result, tgt); serr != nil {
				return serr
			}
		}
		ctx.Items = ctx.Items[:0]
		ctx.pushItem(Item{Obj: result})
		return nil
	}
}

// timerHandler returns a monotonically increasing 100ns-resolution count,
// per the ACPI spec's Timer operator; backed by the host clock rather than
// any fixed hardware timer.
func timerHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	ctx.pushItem(Item{Obj: vm.arena.NewInteger(vm.host.Clock().Ticks100ns())})
	return nil
}

// interpreterRevision is the value the Revision opcode and the bound
// \_REV object both report.
const interpreterRevision = 2

func revisionHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	ctx.pushItem(Item{Obj: vm.arena.NewInteger(interpreterRevision)})
	return nil
}

func fatalHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	fatalType := byte(ctx.Items[0].Imm)
	fatalCode := uint32(ctx.Items[1].Imm)
	arg, err := vm.toInteger(ctx.Items[2].Obj)
	if err != nil {
		return err
	}
	vm.host.Firmware().Handle(hal.FirmwareRequestFatal, fatalType, fatalCode, arg)
	return newError(ErrBadBytecode, "Fatal opcode raised (type=0x%x code=0x%x arg=0x%x)", fatalType, fatalCode, arg)
}

// externalHandler is a forward declaration: it records that a name will be
// defined by another table. Its MicroCreateNameString step already
// installed the (objectless) node as a side effect of decoding the
// operand, so later resolution of the name doesn't fail outright; there
// is nothing left for the handler itself to do. ArgumentCount/ObjectType
// are consumed but not enforced, since nothing downstream needs them
// until the real definition lands.
func externalHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	return nil
}
