package aml

// handlers_decl.go registers the declaration opcodes: Name, Method,
// Mutex, Event, OperationRegion, Field, Buffer, Package, Alias, and the
// CreateXField family. Unlike If/While/Device, these never recurse into
// a nested scope of their own -- Method's body is captured as a raw byte
// range and deferred rather than executed at declaration time, the same
// deferred-body treatment the teacher's checkEntities() pass performs for
// Method IP offsets.

func init() {
	register(OpName, "Name", []ParseStep{step(MicroCreateNameString), step(MicroTermArg)}, nameHandler)
	register(OpAlias, "Alias", []ParseStep{step(MicroExistingNameString), step(MicroCreateNameString)}, aliasHandler)

	register(OpMethod, "Method", []ParseStep{step(MicroTrackedPkgLen), step(MicroCreateNameString), step(MicroLoadImmByte)}, methodHandler)

	register(OpMutex, "Mutex", []ParseStep{step(MicroCreateNameString), step(MicroLoadImmByte)}, mutexDeclHandler)
	register(OpEvent, "Event", []ParseStep{step(MicroCreateNameString)}, eventDeclHandler)

	register(OpOpRegion, "OperationRegion", []ParseStep{
		step(MicroCreateNameString), step(MicroLoadImmByte), step(MicroTermArg), step(MicroTermArg),
	}, opRegionHandler)

	register(OpField, "Field", []ParseStep{step(MicroTrackedPkgLen), step(MicroExistingNameString), step(MicroLoadImmByte)}, fieldDeclHandler)
	register(OpIndexField, "IndexField", []ParseStep{step(MicroTrackedPkgLen), step(MicroExistingNameString), step(MicroExistingNameString), step(MicroLoadImmByte)}, indexFieldDeclHandler)
	register(OpBankField, "BankField", []ParseStep{step(MicroTrackedPkgLen), step(MicroExistingNameString), step(MicroExistingNameString), step(MicroTermArg), step(MicroLoadImmByte)}, bankFieldDeclHandler)

	register(OpBuffer, "Buffer", []ParseStep{step(MicroTrackedPkgLen), step(MicroTermArg)}, bufferHandler)
	register(OpPackage, "Package", []ParseStep{step(MicroTrackedPkgLen), step(MicroLoadImmByte)}, packageHandler)
	register(OpVarPackage, "VarPackage", []ParseStep{step(MicroTrackedPkgLen), step(MicroTermArg)}, varPackageHandler)

	register(OpCreateBField, "CreateBitField", []ParseStep{step(MicroTermArg), step(MicroTermArg), step(MicroCreateNameString)}, createFieldHandler(1))
	register(OpCreateField2, "CreateByteField", []ParseStep{step(MicroTermArg), step(MicroTermArg), step(MicroCreateNameString)}, createFieldHandler(8))
	register(OpCreateWField, "CreateWordField", []ParseStep{step(MicroTermArg), step(MicroTermArg), step(MicroCreateNameString)}, createFieldHandler(16))
	register(OpCreateDWField, "CreateDWordField", []ParseStep{step(MicroTermArg), step(MicroTermArg), step(MicroCreateNameString)}, createFieldHandler(32))
	register(OpCreateQWField, "CreateQWordField", []ParseStep{step(MicroTermArg), step(MicroTermArg), step(MicroCreateNameString)}, createFieldHandler(64))
}

func nameHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	node := ctx.Items[0].Node
	val := ctx.Items[1].Obj
	node.Object = vm.arena.Clone(val)
	return nil
}

func aliasHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	target := ctx.Items[0].Node
	aliasNode := ctx.Items[1].Node
	if target != nil && aliasNode != nil {
		aliasNode.Object = target.Object
	}
	return nil
}

// methodHandler captures the method body as a raw byte slice bounded by
// the already-decoded TrackedPkgLen, per spec.md §3.3: the body is never
// executed here, only installed.
func methodHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	node := ctx.Items[0].Node
	flags := ctx.Items[1].Imm

	bodyStart := frame.Cursor
	bodyEnd := ctx.pkgEnd
	if bodyEnd < bodyStart || bodyEnd > len(frame.Code) {
		return errOutOfBounds
	}
	code := frame.Code[bodyStart:bodyEnd]
	frame.Cursor = bodyEnd

	m := &Method{
		Name:       node.NameOf(),
		ArgCount:   uint8(flags & 0x7),
		Serialized: flags&0x8 != 0,
		SyncLevel:  uint8((flags >> 4) & 0xf),
		Code:       code,
	}
	node.Object = vm.arena.Alloc(&Object{Kind: KindMethod, Meth: m, arenaIdx: invalidIndex})
	return nil
}

func mutexDeclHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	node := ctx.Items[0].Node
	syncLevel := uint8(ctx.Items[1].Imm & 0xf)
	node.Object = vm.arena.Alloc(&Object{Kind: KindMutex, Mtx: &Mutex{SyncLevel: syncLevel}, arenaIdx: invalidIndex})
	return nil
}

func eventDeclHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	node := ctx.Items[0].Node
	node.Object = vm.arena.Alloc(&Object{Kind: KindEvent, Evt: &Event{}, arenaIdx: invalidIndex})
	return nil
}

func opRegionHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	node := ctx.Items[0].Node
	space := RegionSpace(ctx.Items[1].Imm)
	offsetObj := ctx.Items[2].Obj
	lengthObj := ctx.Items[3].Obj

	offset, err := vm.toInteger(offsetObj)
	if err != nil {
		return err
	}
	length, err := vm.toInteger(lengthObj)
	if err != nil {
		return err
	}

	region := &Region{Space: space, Offset: offset, Length: length}
	if h := vm.regionHandlers[space]; h != nil {
		region.Handler = h
	}
	node.Object = vm.arena.Alloc(&Object{Kind: KindRegion, Region: region, arenaIdx: invalidIndex})
	return nil
}

// fieldDeclHandler parses a Field() body: a sequence of (name, width)
// pairs (plus reserved-bits gaps encoded as a nameless entry) accumulating
// a running bit offset, per spec.md §4.8. The FieldList itself isn't
// represented by ordinary micro-ops since its element count isn't known
// up front; it's walked directly here against the tracked package range.
func fieldDeclHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	regionNode := ctx.Items[0].Node
	flags := ctx.Items[1].Imm
	return vm.parseFieldList(frame, ctx, regionNode.Object, nil, nil, 0, flags)
}

func indexFieldDeclHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	idxNode := ctx.Items[0].Node
	dataNode := ctx.Items[1].Node
	flags := ctx.Items[2].Imm
	return vm.parseFieldList(frame, ctx, nil, idxNode.Object, dataNode.Object, 0, flags)
}

func bankFieldDeclHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	regionNode := ctx.Items[0].Node
	bankNode := ctx.Items[1].Node
	bankValueObj := ctx.Items[2].Obj
	flags := ctx.Items[3].Imm
	bankValue, err := vm.toInteger(bankValueObj)
	if err != nil {
		return err
	}
	_ = bankNode
	return vm.parseFieldList(frame, ctx, regionNode.Object, nil, nil, bankValue, flags)
}

// parseFieldList walks the raw FieldElement list directly off frame.Code
// up to ctx.pkgEnd, installing a KindFieldUnit object per named element.
func (vm *VM) parseFieldList(frame *CallFrame, ctx *OpContext, region, indexReg, dataReg *Object, bankValue uint64, flags uint64) *Error {
	access := FieldAccessType(flags & 0xf)
	update := FieldUpdateRule((flags >> 5) & 0x3)

	bitOffset := uint64(0)
	for frame.Cursor < ctx.pkgEnd {
		b := frame.Code[frame.Cursor]
		if b == 0x00 {
			// Reserved field: next byte(s) are a pkglength-style bit count.
			frame.Cursor++
			length, n, err := DecodePkgLength(frame.Code[frame.Cursor:])
			if err != nil {
				return err.(*Error)
			}
			frame.Cursor += n
			bitOffset += uint64(length)
			continue
		}
		if frame.Cursor+4 > ctx.pkgEnd {
			return errOutOfBounds
		}
		var name [4]byte
		copy(name[:], frame.Code[frame.Cursor:frame.Cursor+4])
		frame.Cursor += 4

		length, n, err := DecodePkgLength(frame.Code[frame.Cursor:])
		if err != nil {
			return err.(*Error)
		}
		frame.Cursor += n

		node, ierr := vm.ns.Install(frame.Scope, [][4]byte{name}, true)
		if ierr != nil {
			return ierr.(*Error)
		}
		node.Object = vm.arena.Alloc(&Object{
			Kind: KindFieldUnit,
			Field: &FieldUnit{
				Region: region, IndexReg: indexReg, DataReg: dataReg, BankValue: bankValue,
				BitOffset: bitOffset, BitLength: uint64(length), AccessType: access, UpdateRule: update,
			},
			arenaIdx: invalidIndex,
		})
		bitOffset += uint64(length)
	}
	return nil
}

func bufferHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	sizeObj := ctx.Items[0].Obj
	size, err := vm.toInteger(sizeObj)
	if err != nil {
		return err
	}
	bodyEnd := ctx.pkgEnd
	raw := frame.Code[frame.Cursor:bodyEnd]
	buf := make([]byte, size)
	copy(buf, raw)
	frame.Cursor = bodyEnd
	ctx.Items = ctx.Items[:0]
	ctx.pushItem(Item{Obj: vm.arena.NewBuffer(buf)})
	return nil
}

func packageHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	count := ctx.Items[0].Imm
	return vm.readPackageElements(frame, ctx, int(count))
}

func varPackageHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	countObj := ctx.Items[0].Obj
	count, err := vm.toInteger(countObj)
	if err != nil {
		return err
	}
	return vm.readPackageElements(frame, ctx, int(count))
}

func (vm *VM) readPackageElements(frame *CallFrame, ctx *OpContext, count int) *Error {
	pkgObj := vm.arena.NewPackage(count)
	for i := 0; i < count && frame.Cursor < ctx.pkgEnd; i++ {
		op, n, err := vm.ip.peekOp(frame)
		if err != nil {
			return err
		}
		elem, eerr := vm.ip.evalOpcode(frame, op, n)
		if eerr != nil {
			return eerr
		}
		old := pkgObj.Pkg.Elements[i]
		pkgObj.Pkg.Elements[i] = vm.arena.Clone(elem)
		_ = vm.arena.Unref(old)
	}
	frame.Cursor = ctx.pkgEnd
	ctx.Items = ctx.Items[:0]
	ctx.pushItem(Item{Obj: pkgObj})
	return nil
}

// createFieldHandler implements the CreateBitField/CreateByteField/...
// family: installs a BufferField node that aliases a bit range of an
// existing Buffer object, with a fixed width implied by the opcode
// (CreateField, the generic variant with an explicit bit-length operand,
// is handled by the OpCreateField registration instead).
func createFieldHandler(width uint64) HandlerFunc {
	return func(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
		bufObj := ctx.Items[0].Obj
		offsetObj := ctx.Items[1].Obj
		node := ctx.Items[2].Node

		offset, err := vm.toInteger(offsetObj)
		if err != nil {
			return err
		}
		bitOffset := offset
		if width != 1 {
			bitOffset = offset * 8
		}
		node.Object = vm.arena.Alloc(&Object{
			Kind: KindBufferField,
			Field: &FieldUnit{
				Buffer: bufObj, BitOffset: bitOffset, BitLength: width, AccessType: AccessByte,
			},
			arenaIdx: invalidIndex,
		})
		return nil
	}
}

func init() {
	register(OpCreateField, "CreateField", []ParseStep{
		step(MicroTermArg), step(MicroTermArg), step(MicroTermArg), step(MicroCreateNameString),
	}, createFieldGenericHandler)
}

func createFieldGenericHandler(vm *VM, frame *CallFrame, ctx *OpContext) *Error {
	bufObj := ctx.Items[0].Obj
	bitOffsetObj := ctx.Items[1].Obj
	numBitsObj := ctx.Items[2].Obj
	node := ctx.Items[3].Node

	bitOffset, err := vm.toInteger(bitOffsetObj)
	if err != nil {
		return err
	}
	numBits, err := vm.toInteger(numBitsObj)
	if err != nil {
		return err
	}
	node.Object = vm.arena.Alloc(&Object{
		Kind: KindBufferField,
		Field: &FieldUnit{
			Buffer: bufObj, BitOffset: bitOffset, BitLength: numBits, AccessType: AccessAny,
		},
		arenaIdx: invalidIndex,
	})
	return nil
}
