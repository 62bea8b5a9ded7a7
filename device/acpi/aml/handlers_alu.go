package aml

// handlers_alu.go registers the arithmetic and bitwise opcodes. Grounded
// on the teacher's vm_op_alu.go: each opcode reads two integer operands
// (or one, for unary ops), computes a result, and conditionally stores it
// to an optional Target operand -- the same two-steps-then-optional-store
// shape as vmOpAdd/vmOpSubtract/vmOpMultiply/vmOpDivide/vmOpMod there.

func binaryALU(name string, op Op, fn func(a, b uint64) uint64) {
	register(op, name, []ParseStep{
		step(MicroOperand),
		step(MicroOperand),
		step(MicroTarget),
	}, aluHandler(fn))
}

func aluHandler(fn func(a, b uint64) uint64) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		a, err := vm.toInteger(ctx.Items[0].Obj)
		if err != nil {
			return err
		}
		b, err := vm.toInteger(ctx.Items[1].Obj)
		if err != nil {
			return err
		}
		result := vm.truncateInt(fn(a, b))
		resObj := vm.arena.NewInteger(result)
		if tgt := ctx.Items[2].Target; tgt != nil && tgt.kind != targetNull {
			if err := vm.storeToTarget(frame, resObj, tgt); err != nil {
				return err
			}
		}
		ctx.Items = ctx.Items[:0]
		ctx.pushItem(Item{Obj: resObj})
		return nil
	}
}

func init() {
	binaryALU("Add", OpAdd, func(a, b uint64) uint64 { return a + b })
	binaryALU("Subtract", OpSubtract, func(a, b uint64) uint64 { return a - b })
	binaryALU("Multiply", OpMultiply, func(a, b uint64) uint64 { return a * b })
	binaryALU("ShiftLeft", OpShiftLeft, func(a, b uint64) uint64 { return a << (b & 63) })
	binaryALU("ShiftRight", OpShiftRight, func(a, b uint64) uint64 { return a >> (b & 63) })
	binaryALU("And", OpAnd, func(a, b uint64) uint64 { return a & b })
	binaryALU("Nand", OpNand, func(a, b uint64) uint64 { return ^(a & b) })
	binaryALU("Or", OpOr, func(a, b uint64) uint64 { return a | b })
	binaryALU("Nor", OpNor, func(a, b uint64) uint64 { return ^(a | b) })
	binaryALU("Xor", OpXor, func(a, b uint64) uint64 { return a ^ b })
	binaryALU("Mod", OpMod, func(a, b uint64) uint64 {
		if b == 0 {
			return 0
		}
		return a % b
	})

	register(OpDivide, "Divide", []ParseStep{
		step(MicroOperand),
		step(MicroOperand),
		step(MicroTarget), // remainder
		step(MicroTarget), // quotient
	}, divideHandler)

	register(OpNot, "Not", []ParseStep{step(MicroOperand), step(MicroTarget)}, unaryALU(func(a uint64) uint64 { return ^a }))
	register(OpIncrement, "Increment", []ParseStep{step(MicroSuperName)}, incDecHandler(1))
	register(OpDecrement, "Decrement", []ParseStep{step(MicroSuperName)}, incDecHandler(^uint64(0)))

	register(OpFindSetLeft, "FindSetLeftBit", []ParseStep{step(MicroOperand), step(MicroTarget)}, unaryALU(findSetLeftBit))
	register(OpFindSetRight, "FindSetRightBit", []ParseStep{step(MicroOperand), step(MicroTarget)}, unaryALU(findSetRightBit))
}

func findSetLeftBit(a uint64) uint64 {
	for i := 63; i >= 0; i-- {
		if a&(1<<uint(i)) != 0 {
			return uint64(i + 1)
		}
	}
	return 0
}

func findSetRightBit(a uint64) uint64 {
	for i := 0; i < 64; i++ {
		if a&(1<<uint(i)) != 0 {
			return uint64(i + 1)
		}
	}
	return 0
}

func unaryALU(fn func(a uint64) uint64) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		a, err := vm.toInteger(ctx.Items[0].Obj)
		if err != nil {
			return err
		}
		result := vm.truncateInt(fn(a))
		resObj := vm.arena.NewInteger(result)
		if tgt := ctx.Items[1].Target; tgt != nil && tgt.kind != targetNull {
			if err := vm.storeToTarget(frame, resObj, tgt); err != nil {
				return err
			}
		}
		ctx.Items = ctx.Items[:0]
		ctx.pushItem(Item{Obj: resObj})
		return nil
	}
}

func divideHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	a, err := vm.toInteger(ctx.Items[0].Obj)
	if err != nil {
		return err
	}
	b, err := vm.toInteger(ctx.Items[1].Obj)
	if err != nil {
		return err
	}
	if b == 0 {
		return errDivideByZero
	}
	remainder := vm.arena.NewInteger(vm.truncateInt(a % b))
	quotient := vm.arena.NewInteger(vm.truncateInt(a / b))

	if tgt := ctx.Items[2].Target; tgt != nil && tgt.kind != targetNull {
		if err := vm.storeToTarget(frame, remainder, tgt); err != nil {
			return err
		}
	}
	if tgt := ctx.Items[3].Target; tgt != nil && tgt.kind != targetNull {
		if err := vm.storeToTarget(frame, quotient, tgt); err != nil {
			return err
		}
	}
	ctx.Items = ctx.Items[:0]
	ctx.pushItem(Item{Obj: quotient})
	return nil
}

// incDecHandler implements Increment/Decrement: read the SuperName's
// current value, add delta, and store the result back into the same
// location, per the teacher's vmOpIncrement/vmOpDecrement.
func incDecHandler(delta uint64) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		tgt := ctx.Items[0].Target
		cur, err := vm.loadFromTarget(frame, tgt)
		if err != nil {
			return err
		}
		v, err := vm.toInteger(cur)
		if err != nil {
			return err
		}
		result := vm.arena.NewInteger(vm.truncateInt(v + delta))
		if err := vm.storeToTarget(frame, result, tgt); err != nil {
			return err
		}
		ctx.pushItem(Item{Obj: result})
		return nil
	}
}
