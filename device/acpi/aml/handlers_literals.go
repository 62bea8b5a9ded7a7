package aml

// handlers_literals.go registers the opcodes that produce a bare data
// object with no further operands: constants, immediate-encoded literals,
// and Local/Arg reads. Grounded on the teacher's opcode_table.go entries
// for the same opcodes (opZero/opOne/opOnesOp/opBytePrefix/...).

func init() {
	register(OpZero, "Zero", nil, constHandler(0))
	register(OpOne, "One", nil, constHandler(1))
	register(OpOnes, "Ones", nil, constHandler(^uint64(0)))

	register(OpBytePrefix, "BytePrefix", []ParseStep{step(MicroLoadImmByte)}, immHandler)
	register(OpWordPrefix, "WordPrefix", []ParseStep{step(MicroLoadImmWord)}, immHandler)
	register(OpDwordPrefix, "DwordPrefix", []ParseStep{step(MicroLoadImmDword)}, immHandler)
	register(OpQwordPrefix, "QwordPrefix", []ParseStep{step(MicroLoadImmQword)}, immHandler)
	register(OpStringPre, "StringPrefix", []ParseStep{step(MicroLoadImmString)}, immHandler)

	for i := 0; i < 8; i++ {
		register(Op(int(OpLocal0)+i), localName(i), nil, localHandler(uint8(i)))
	}
	for i := 0; i < 7; i++ {
		register(Op(int(OpArg0)+i), argName(i), nil, argHandler(uint8(i)))
	}
}

// immHandler just lets the already-pushed Item (from MicroLoadImm*) flow
// through as ctx's result; the literal opcodes have no further behavior.
func immHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error { return nil }

func constHandler(v uint64) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		ctx.pushItem(Item{Obj: vm.arena.NewInteger(v)})
		return nil
	}
}

func localName(i int) string {
	return [...]string{"Local0", "Local1", "Local2", "Local3", "Local4", "Local5", "Local6", "Local7"}[i]
}
func argName(i int) string {
	return [...]string{"Arg0", "Arg1", "Arg2", "Arg3", "Arg4", "Arg5", "Arg6"}[i]
}

func localHandler(slot uint8) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		obj := frame.Locals[slot]
		if obj == nil {
			obj = vm.arena.NewInteger(0)
		}
		ctx.pushItem(Item{Obj: obj})
		return nil
	}
}

func argHandler(slot uint8) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		obj := frame.Args[slot]
		if obj == nil {
			obj = vm.arena.NewInteger(0)
		}
		ctx.pushItem(Item{Obj: obj})
		return nil
	}
}
