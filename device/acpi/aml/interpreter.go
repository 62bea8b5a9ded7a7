package aml

// Interpreter drives the main fetch/decode/execute loop described in
// spec.md §4.7. Each opcode is decoded by stepping its parse program one
// micro-op at a time; when a micro-op needs a nested TermArg, the parent's
// OpContext is pushed onto the frame's op stack and decoding recurses into
// the nested opcode, exactly modeling "preemption" as an explicit
// continuation rather than a goroutine per expression -- the recursion
// uses Go's own call stack as that continuation stack, which keeps the
// design in spec.md §4.7/§9's "plain loop, not thread-level coroutines"
// without hand-rolling a second stack machine on top of it.
type Interpreter struct {
	vm *VM
}

func newInterpreter(vm *VM) *Interpreter { return &Interpreter{vm: vm} }

// run executes frame's code from its current cursor until it falls off
// the end, hits a Return, or an error propagates.
func (ip *Interpreter) run(frame *CallFrame) *Error {
	for (frame.Cursor < len(frame.Code) || len(frame.blocks) > 0) && !frame.returned {
		if err := ip.step(frame); err != nil {
			return err
		}
	}
	return nil
}

// step decodes and executes exactly one top-level TermObj from frame's
// current cursor. If that TermObj opens an If/While/Scope block, the
// block is pushed and step returns without consuming the block's body;
// the outer run loop naturally recurses into it on the next iteration
// since the cursor now sits inside the block's byte range.
func (ip *Interpreter) step(frame *CallFrame) *Error {
	if blk := frame.topBlock(); blk != nil && frame.Cursor >= blk.end {
		return ip.closeBlock(frame)
	}

	op, opLen, err := ip.peekOp(frame)
	if err != nil {
		return err
	}

	switch op {
	case OpIf, OpWhile, OpScope, OpElse, OpDevice, OpThermalZone, OpPowerRes, OpProcessor:
		return ip.openBlock(frame, op, opLen)
	case OpReturn:
		return ip.execReturn(frame, opLen)
	case OpBreak:
		return ip.execBreak(frame)
	case OpContinue:
		return ip.execContinue(frame)
	}

	_, execErr := ip.evalOpcode(frame, op, opLen)
	return execErr
}

// peekOp reads the opcode (and, for extended opcodes, its 0x5b prefix) at
// frame's cursor without consuming the operand bytes that follow it.
func (ip *Interpreter) peekOp(frame *CallFrame) (Op, int, *Error) {
	if frame.Cursor >= len(frame.Code) {
		return 0, 0, errOutOfBounds
	}
	b := frame.Code[frame.Cursor]
	if b == 0x5b {
		if frame.Cursor+1 >= len(frame.Code) {
			return 0, 0, errOutOfBounds
		}
		return extOpBase + Op(frame.Code[frame.Cursor+1]), 2, nil
	}
	return Op(b), 1, nil
}

// evalOpcode fully decodes and executes one opcode (running its entire
// parse program, recursing into nested TermArgs as needed) and returns the
// resulting object, if any (non-statement opcodes like Add produce one;
// statement opcodes like Notify don't).
func (ip *Interpreter) evalOpcode(frame *CallFrame, op Op, opLen int) (*Object, *Error) {
	info := opcodeTable[op]
	if info == nil {
		return nil, newError(ErrBadBytecode, "unimplemented opcode 0x%x", op)
	}

	ctx := &OpContext{Op: op, Info: info, Program: info.Program, startPos: frame.Cursor}
	frame.Cursor += opLen
	frame.ops = append(frame.ops, ctx)
	defer func() { frame.ops = frame.ops[:len(frame.ops)-1] }()

	for ctx.Step < len(ctx.Program) {
		st := ctx.Program[ctx.Step]
		ctx.Step++
		if err := ip.runMicroOp(frame, ctx, st); err != nil {
			return nil, err.withFrame(ip.frameTableName(frame), ip.frameMethodName(frame), uint32(ctx.startPos), info.Name)
		}
	}

	if info.Handler != nil {
		if err := info.Handler(ip.vm, frame, ctx); err != nil {
			return nil, err.withFrame(ip.frameTableName(frame), ip.frameMethodName(frame), uint32(ctx.startPos), info.Name)
		}
	}

	return ctx.lastObj(), nil
}

func (ip *Interpreter) frameTableName(frame *CallFrame) string {
	return ip.vm.currentTable
}

func (ip *Interpreter) frameMethodName(frame *CallFrame) string {
	if frame.Method == nil {
		return "<table-load>"
	}
	if frame.Scope != nil {
		return frame.Scope.Path() + "." + frame.Method.Meth.Name
	}
	return frame.Method.Meth.Name
}

// runMicroOp executes one step of an opcode's parse program against frame
// and ctx, per spec.md §4.1's micro-op vocabulary.
func (ip *Interpreter) runMicroOp(frame *CallFrame, ctx *OpContext, st ParseStep) *Error {
	switch st.Op {
	case MicroTermArg, MicroOperand:
		nestedOp, nestedLen, err := ip.peekOp(frame)
		if err != nil {
			return err
		}
		obj, err := ip.evalOpcode(frame, nestedOp, nestedLen)
		if err != nil {
			return err
		}
		ctx.pushItem(Item{Obj: obj})
		return nil

	case MicroSuperName, MicroTarget:
		tgt, err := ip.readTarget(frame)
		if err != nil {
			return err
		}
		ctx.pushItem(Item{Target: tgt})
		return nil

	case MicroSimpleName, MicroCreateNameString, MicroExistingNameString:
		ns, n, err := DecodeNameString(frame.Code[frame.Cursor:])
		if err != nil {
			return err.(*Error)
		}
		frame.Cursor += n
		var node *Node
		var rerr error
		if st.Op == MicroCreateNameString {
			node, rerr = ip.vm.ns.Install(frame.Scope, ns.Segments, true)
		} else {
			node, rerr = ip.vm.ns.Resolve(frame.Scope, ns.Segments, ns.Absolute, ns.ParentHops)
		}
		if rerr != nil {
			if st.Op == MicroSimpleName {
				// A plain SimpleName reference (e.g. CondRefOf's operand)
				// is allowed to name something that doesn't exist yet.
				ctx.pushItem(Item{Name: ns})
				return nil
			}
			return rerr.(*Error)
		}
		ctx.pushItem(Item{Name: ns, Node: node})
		return nil

	case MicroPkgLen, MicroTrackedPkgLen:
		length, n, err := DecodePkgLength(frame.Code[frame.Cursor:])
		if err != nil {
			return err.(*Error)
		}
		frame.Cursor += n
		ctx.pkgEnd = ctx.startPos + opcodeByteLen(ctx.Op) + int(length)
		return nil

	case MicroLoadImmByte:
		if frame.Cursor >= len(frame.Code) {
			return errOutOfBounds
		}
		v := uint64(frame.Code[frame.Cursor])
		frame.Cursor++
		ctx.pushItem(Item{Obj: ip.vm.arena.NewInteger(v), Imm: v})
		return nil

	case MicroLoadImmWord:
		v, err := ip.readLE(frame, 2)
		if err != nil {
			return err
		}
		ctx.pushItem(Item{Obj: ip.vm.arena.NewInteger(v), Imm: v})
		return nil

	case MicroLoadImmDword:
		v, err := ip.readLE(frame, 4)
		if err != nil {
			return err
		}
		ctx.pushItem(Item{Obj: ip.vm.arena.NewInteger(v), Imm: v})
		return nil

	case MicroLoadImmQword:
		v, err := ip.readLE(frame, 8)
		if err != nil {
			return err
		}
		ctx.pushItem(Item{Obj: ip.vm.arena.NewInteger(v), Imm: v})
		return nil

	case MicroLoadImmString:
		start := frame.Cursor
		for frame.Cursor < len(frame.Code) && frame.Code[frame.Cursor] != 0 {
			frame.Cursor++
		}
		if frame.Cursor >= len(frame.Code) {
			return errOutOfBounds
		}
		s := string(frame.Code[start:frame.Cursor])
		frame.Cursor++
		ctx.pushItem(Item{Obj: ip.vm.arena.NewString(s)})
		return nil

	case MicroObjectAlloc:
		return nil

	case MicroTypecheck:
		obj := ctx.lastObj()
		if obj != nil && obj.Kind != st.WantType {
			return newError(ErrTypeMismatch, "expected %s, got %s", st.WantType, obj.Kind)
		}
		return nil

	case MicroSetObjectType, MicroTruncateNumber, MicroObjectTransferToPrev,
		MicroInstallNamespaceNode, MicroDispatchMethodCall, MicroConvertNameString,
		MicroInvokeHandler, MicroEnd:
		return nil
	}
	return newError(ErrBadBytecode, "unknown micro-op %d", st.Op)
}

// opcodeByteLen returns how many bytes op's own encoding occupies (1 for a
// plain opcode, 2 for an extended one behind the 0x5b prefix) -- needed to
// locate where a PkgLength field starts counting from relative to the
// opcode's start position.
func opcodeByteLen(op Op) int {
	if op >= extOpBase {
		return 2
	}
	return 1
}

func (ip *Interpreter) readLE(frame *CallFrame, n int) (uint64, *Error) {
	if frame.Cursor+n > len(frame.Code) {
		return 0, errOutOfBounds
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(frame.Code[frame.Cursor+i]) << (8 * uint(i))
	}
	frame.Cursor += n
	return v, nil
}

// readTarget decodes a SuperName/Target operand: either a Local/Arg
// opcode, the null-target byte (0x00), or a resolvable NameString.
func (ip *Interpreter) readTarget(frame *CallFrame) (*targetRef, *Error) {
	if frame.Cursor >= len(frame.Code) {
		return nil, errOutOfBounds
	}
	b := frame.Code[frame.Cursor]

	switch {
	case b == 0x00:
		frame.Cursor++
		return &targetRef{kind: targetNull}, nil
	case b == 0x5b && frame.Cursor+1 < len(frame.Code) && frame.Code[frame.Cursor+1] == 0x31:
		frame.Cursor += 2
		return &targetRef{kind: targetDebug}, nil
	case Op(b) >= OpLocal0 && Op(b) <= OpLocal7:
		frame.Cursor++
		return &targetRef{kind: targetLocal, slot: uint8(b - byte(OpLocal0))}, nil
	case Op(b) >= OpArg0 && Op(b) <= OpArg6:
		frame.Cursor++
		return &targetRef{kind: targetArg, slot: uint8(b - byte(OpArg0))}, nil
	default:
		ns, n, err := DecodeNameString(frame.Code[frame.Cursor:])
		if err != nil {
			return nil, err.(*Error)
		}
		frame.Cursor += n
		node, rerr := ip.vm.ns.Resolve(frame.Scope, ns.Segments, ns.Absolute, ns.ParentHops)
		if rerr != nil {
			node, rerr = ip.vm.ns.Install(frame.Scope, ns.Segments, true)
			if rerr != nil {
				return nil, rerr.(*Error)
			}
		}
		return &targetRef{kind: targetNamed, node: node}, nil
	}
}

func (ip *Interpreter) openBlock(frame *CallFrame, op Op, opLen int) *Error {
	start := frame.Cursor
	frame.Cursor += opLen
	length, n, err := DecodePkgLength(frame.Code[frame.Cursor:])
	if err != nil {
		return err.(*Error)
	}
	pkgLenPos := frame.Cursor
	frame.Cursor += n
	end := pkgLenPos + int(length)

	switch op {
	case OpIf:
		predObj, perr := ip.evalTermArg(frame)
		if perr != nil {
			return perr
		}
		truth := predObj != nil && predObj.Integer != 0
		frame.pushBlock(codeBlock{kind: ctrlIf, begin: frame.Cursor, end: end, predicateTrue: truth})
		if !truth {
			frame.Cursor = end
			frame.popBlock()
			return nil
		}
		return nil

	case OpElse:
		// Only reached if the preceding If was false and fell through,
		// or if step() encounters a bare Else (skip its body outright
		// when the paired If already ran, handled in skipTrailingElse).
		frame.pushBlock(codeBlock{kind: ctrlElse, begin: frame.Cursor, end: end})
		return nil

	case OpWhile:
		_ = start
		frame.pushBlock(codeBlock{
			kind:            ctrlWhile,
			begin:           frame.Cursor,
			end:             end,
			predicateStart:  frame.Cursor,
			deadline:        ip.vm.host.Clock().Ticks100ns() + whileTimeout100ns,
		})
		return ip.enterWhilePredicate(frame)

	case OpScope:
		ns, nlen, nerr := DecodeNameString(frame.Code[frame.Cursor:])
		if nerr != nil {
			return nerr.(*Error)
		}
		frame.Cursor += nlen
		node, rerr := ip.vm.ns.Resolve(frame.Scope, ns.Segments, ns.Absolute, ns.ParentHops)
		if rerr != nil {
			return rerr.(*Error)
		}
		frame.pushBlock(codeBlock{kind: ctrlScope, begin: frame.Cursor, end: end, node: frame.Scope})
		frame.Scope = node
		return nil

	case OpDevice, OpThermalZone, OpPowerRes, OpProcessor:
		ns, nlen, nerr := DecodeNameString(frame.Code[frame.Cursor:])
		if nerr != nil {
			return nerr.(*Error)
		}
		frame.Cursor += nlen
		node, ierr := ip.vm.ns.Install(frame.Scope, ns.Segments, true)
		if ierr != nil {
			return ierr.(*Error)
		}
		switch op {
		case OpDevice:
			node.Object = ip.vm.arena.Alloc(&Object{Kind: KindDevice, arenaIdx: invalidIndex})
		case OpThermalZone:
			node.Object = ip.vm.arena.Alloc(&Object{Kind: KindThermalZone, arenaIdx: invalidIndex})
		case OpPowerRes:
			node.Object = ip.vm.arena.Alloc(&Object{Kind: KindPower, arenaIdx: invalidIndex})
			frame.Cursor += 3 // SystemLevel (1) + ResourceOrder (2)
		case OpProcessor:
			node.Object = ip.vm.arena.Alloc(&Object{Kind: KindProcessor, arenaIdx: invalidIndex})
			frame.Cursor += 6 // ProcID(1) + PblkAddr(4) + PblkLen(1)
		}
		frame.pushBlock(codeBlock{kind: ctrlScope, begin: frame.Cursor, end: end, node: frame.Scope})
		frame.Scope = node
		return nil
	}
	return nil
}

const whileTimeout100ns = 30 * 1000 * 1000 * 10 // 30s in 100ns units

// enterWhilePredicate re-evaluates the While predicate at loop entry and
// at the top of every iteration; it is structured as its own step so
// Continue can re-invoke it without duplicating openBlock's bookkeeping.
func (ip *Interpreter) enterWhilePredicate(frame *CallFrame) *Error {
	blk := frame.topBlock()
	frame.Cursor = blk.predicateStart
	predObj, perr := ip.evalTermArg(frame)
	if perr != nil {
		return perr
	}
	truth := predObj != nil && predObj.Integer != 0
	if !truth {
		end := blk.end
		frame.popBlock()
		frame.Cursor = end
		return nil
	}
	blk.begin = frame.Cursor
	*frame.topBlock() = *blk
	return nil
}

func (ip *Interpreter) skipTrailingElse(frame *CallFrame) *Error {
	if frame.Cursor < len(frame.Code) && frame.Code[frame.Cursor] == byte(OpElse) {
		frame.Cursor++
		_, n, err := DecodePkgLength(frame.Code[frame.Cursor:])
		if err != nil {
			return err.(*Error)
		}
		pos := frame.Cursor
		frame.Cursor += n
		length, _, _ := DecodePkgLength(frame.Code[pos:])
		frame.Cursor = pos + n + int(length) - n
	}
	return nil
}

func (ip *Interpreter) closeBlock(frame *CallFrame) *Error {
	blk := frame.popBlock()
	switch blk.kind {
	case ctrlScope:
		frame.Scope = blk.node
		return nil
	case ctrlWhile:
		if ip.vm.host.Clock().Ticks100ns() > blk.deadline {
			return newError(ErrLoopTimeout, "While loop exceeded its time budget")
		}
		frame.pushBlock(blk)
		return ip.enterWhilePredicate(frame)
	case ctrlIf:
		return ip.skipTrailingElse(frame)
	}
	return nil
}

func (ip *Interpreter) execBreak(frame *CallFrame) *Error {
	frame.Cursor++
	blk := frame.innermostWhile()
	if blk == nil {
		return newError(ErrBadBytecode, "Break outside of a While block")
	}
	for frame.topBlock() != blk {
		frame.popBlock()
	}
	end := blk.end
	frame.popBlock()
	frame.Cursor = end
	return nil
}

func (ip *Interpreter) execContinue(frame *CallFrame) *Error {
	frame.Cursor++
	blk := frame.innermostWhile()
	if blk == nil {
		return newError(ErrBadBytecode, "Continue outside of a While block")
	}
	for frame.topBlock() != blk {
		frame.popBlock()
	}
	return ip.enterWhilePredicate(frame)
}

func (ip *Interpreter) execReturn(frame *CallFrame, opLen int) *Error {
	frame.Cursor += opLen
	if frame.Cursor < len(frame.Code) && frame.Code[frame.Cursor] != 0x00 {
		obj, err := ip.evalTermArg(frame)
		if err != nil {
			return err
		}
		frame.pendingReturn = obj
	}
	frame.returned = true
	frame.blocks = frame.blocks[:0]
	return nil
}

// evalTermArg evaluates exactly one nested TermArg at the frame's current
// cursor, used by If/While predicates and Return's operand.
func (ip *Interpreter) evalTermArg(frame *CallFrame) (*Object, *Error) {
	op, n, err := ip.peekOp(frame)
	if err != nil {
		return nil, err
	}
	return ip.evalOpcode(frame, op, n)
}
