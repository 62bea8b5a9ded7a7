package aml

import "acpicore/kernel/hal"

// invalidIndex marks an arena slot reference as absent, mirroring the
// teacher's obj_tree.go InvalidIndex sentinel.
const invalidIndex = ^uint32(0)

// Kind tags the variant an Object currently holds, per spec.md §3.1's
// tagged-variant object model.
type Kind uint8

// Object variant tags.
const (
	KindUninitialized Kind = iota
	KindInteger
	KindString
	KindBuffer
	KindPackage
	KindFieldUnit
	KindDevice
	KindEvent
	KindMethod
	KindMutex
	KindRegion
	KindPower
	KindProcessor
	KindThermalZone
	KindBufferField
	KindReference
	KindDebug
)

var kindNames = [...]string{
	"Uninitialized", "Integer", "String", "Buffer", "Package", "FieldUnit",
	"Device", "Event", "Method", "Mutex", "Region", "Power", "Processor",
	"ThermalZone", "BufferField", "Reference", "Debug",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// RefKind distinguishes the four reference flavors spec.md §3.1/§4.4 define.
type RefKind uint8

// Reference variants.
const (
	RefOfLocal RefKind = iota
	RefOfArg
	RefOfNamed
	RefOfIndex
)

// Reference is the payload of a KindReference Object.
type Reference struct {
	Kind RefKind

	// Local/Arg hold the slot number when Kind is RefOfLocal/RefOfArg.
	Slot uint8
	// Node holds the target namespace node when Kind is RefOfNamed.
	Node *Node
	// Indexed/IndexPos hold the container and element position when Kind
	// is RefOfIndex (the result of the Index operator).
	Indexed  *Object
	IndexPos uint64
}

// Package is the payload of a KindPackage Object: a fixed-length vector of
// element objects, each independently reference counted.
type Package struct {
	Elements []*Object
}

// Method is the payload of a KindMethod Object.
type Method struct {
	Name        string
	ArgCount    uint8
	Serialized  bool
	SyncLevel   uint8
	Code        []byte
	mutexHandle *methodMutex

	// Native, when set, is invoked directly instead of interpreting Code;
	// used for predefined control methods the host must implement itself
	// rather than ones supplied as bytecode, e.g. _OSI.
	Native func(vm *VM, args []*Object) (*Object, *Error)
}

// FieldUnit is the payload of a KindFieldUnit / KindBufferField Object,
// describing a bit-packed view over a backing Region/Buffer/Index field.
type FieldUnit struct {
	Region     *Object // backing OperationRegion, nil for buffer fields
	BankReg    *Object // bank-select register; BankField declarations leave it nil and field I/O never writes BankValue
	BankValue  uint64
	IndexReg   *Object // backing Index FieldUnit, nil unless index field
	DataReg    *Object // backing Data FieldUnit, paired with IndexReg

	Buffer *Object // backing Buffer object, set for BufferField only

	BitOffset  uint64
	BitLength  uint64
	AccessType FieldAccessType
	UpdateRule FieldUpdateRule
	Lock       bool
}

// FieldAccessType is the access-width hint attached to a field declaration.
type FieldAccessType uint8

// Supported field access types (field I/O treats AccessAny as byte access).
const (
	AccessAny FieldAccessType = iota
	AccessByte
	AccessWord
	AccessDword
	AccessQword
	AccessBuffer
)

// FieldUpdateRule controls how partial-width writes preserve the bits a
// FieldUnit's width doesn't itself cover, per spec.md §4.8.
type FieldUpdateRule uint8

// Supported update rules.
const (
	UpdatePreserve FieldUpdateRule = iota
	UpdateWriteAsOnes
	UpdateWriteAsZeros
)

// RegionSpace enumerates the address spaces an OperationRegion may target,
// per spec.md §6's address-space table.
type RegionSpace uint8

// Supported address spaces.
const (
	RegionSysMemory RegionSpace = iota
	RegionSysIO
	RegionPCIConfig
	RegionEmbeddedControl
	RegionSMBus
	RegionSystemCMOS
	RegionPCIBarTarget
	RegionIPMI
	RegionGeneralPurposeIO
	RegionGenericSerialBus
	RegionPCC
	RegionFFH
)

// Region is the payload of a KindRegion Object.
type Region struct {
	Space  RegionSpace
	Offset uint64
	Length uint64

	// Handler services reads/writes that land in this region. Built-in
	// spaces (SysMemory, SysIO) are served by the interpreter itself;
	// every other space requires a host-registered handler (§6).
	Handler RegionHandler
}

// RegionHandler is implemented by whatever services reads and writes
// against a non-default address space (PCI config, embedded controller,
// ...). The built-in System Memory / System I/O spaces are handled
// internally and never reach a RegionHandler.
type RegionHandler interface {
	Read(region *Region, offset uint64, width hal.AccessWidth) (uint64, error)
	Write(region *Region, offset uint64, width hal.AccessWidth, value uint64) error
}

// Object is the universal boxed value the interpreter operates on: every
// Integer, String, Buffer, Package, Device, Method, ... is an *Object with
// Kind discriminating the active payload field. Mirrors spec.md §3.1 and is
// grounded on the teacher's obj_tree.go Object, but keeps the payload as Go
// fields behind Kind rather than a second parallel index tree, since this
// module does not need a freestanding-safe flat arena for its node payloads
// -- only for lifetime/refcount bookkeeping, which Arena still provides.
type Object struct {
	Kind Kind

	Integer uint64
	Str     string
	Buf     []byte
	Pkg     *Package
	Ref     *Reference
	Field   *FieldUnit
	Region  *Region
	Meth    *Method
	Mtx     *Mutex
	Evt     *Event

	refCount int32
	arenaIdx uint32
}

// Mutex is the payload of a KindMutex Object.
type Mutex struct {
	SyncLevel uint8
	handle    hal.Mutex
	owner     hal.ThreadID // current recursive owner, 0 if free
	depth     uint32
}

// Event is the payload of a KindEvent Object.
type Event struct {
	handle hal.Event
}

// Arena owns the lifetime of every live Object, handing out stable indices
// for refcount bookkeeping. A Reference still holds plain Go pointers to
// its target Node or Object. Grounded on the teacher's
// obj_tree.go ObjectTree/index design (spec.md §9's arena strategy).
type Arena struct {
	slots     []*Object
	freeList  []uint32
	leakCount int
	policy    LeakPolicy
}

// LeakPolicy selects what happens when Unref would drop a refcount below
// zero -- a condition spec.md §9 notes some real-world AML triggers via a
// documented buggy Store pattern, and which the interpreter must survive
// rather than crash on by default.
type LeakPolicy uint8

// Supported leak policies.
const (
	// PolicyLeak retains the object (refcount is clamped to zero rather
	// than decremented further) and counts it as leaked. This is the
	// default, matching observed firmware behavior.
	PolicyLeak LeakPolicy = iota
	// PolicyPanic raises ErrOutOfBounds instead, for callers that would
	// rather fail loudly during development/fuzzing.
	PolicyPanic
)

// NewArena returns an empty Arena using the given leak policy.
func NewArena(policy LeakPolicy) *Arena {
	return &Arena{policy: policy}
}

// Alloc inserts obj into the arena, assigns it a stable index, and sets its
// initial refcount to 1.
func (a *Arena) Alloc(obj *Object) *Object {
	obj.refCount = 1
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		obj.arenaIdx = idx
		a.slots[idx] = obj
		return obj
	}
	obj.arenaIdx = uint32(len(a.slots))
	a.slots = append(a.slots, obj)
	return obj
}

// At returns the object at the given arena index, or nil if the slot is
// free or out of range.
func (a *Arena) At(idx uint32) *Object {
	if idx == invalidIndex || int(idx) >= len(a.slots) {
		return nil
	}
	return a.slots[idx]
}

// Ref increments obj's reference count and returns obj, so callers can
// write `x := arena.Ref(y)`.
func (a *Arena) Ref(obj *Object) *Object {
	if obj == nil {
		return nil
	}
	obj.refCount++
	return obj
}

// Unref decrements obj's reference count, freeing the arena slot and
// recursively unreffing any child objects (Package elements, a Reference's
// target is NOT unreffed since references don't own their target) once it
// reaches zero. Returns an error only under PolicyPanic.
func (a *Arena) Unref(obj *Object) error {
	if obj == nil {
		return nil
	}
	obj.refCount--
	if obj.refCount > 0 {
		return nil
	}
	if obj.refCount < 0 {
		obj.refCount = 0
		a.leakCount++
		if a.policy == PolicyPanic {
			return newError(ErrOutOfBounds, "refcount underflow on %s object", obj.Kind)
		}
		return nil
	}

	if obj.Kind == KindPackage && obj.Pkg != nil {
		for _, elem := range obj.Pkg.Elements {
			_ = a.Unref(elem)
		}
	}

	if obj.arenaIdx != invalidIndex && int(obj.arenaIdx) < len(a.slots) {
		a.slots[obj.arenaIdx] = nil
		a.freeList = append(a.freeList, obj.arenaIdx)
	}
	return nil
}

// LeakCount reports how many Unref calls were absorbed by PolicyLeak
// instead of underflowing the refcount. Exposed mainly for tests that
// exercise the documented buggy-refcount scenario.
func (a *Arena) LeakCount() int {
	return a.leakCount
}

// NewInteger allocates an Integer object.
func (a *Arena) NewInteger(v uint64) *Object {
	return a.Alloc(&Object{Kind: KindInteger, Integer: v, arenaIdx: invalidIndex})
}

// NewString allocates a String object.
func (a *Arena) NewString(s string) *Object {
	return a.Alloc(&Object{Kind: KindString, Str: s, arenaIdx: invalidIndex})
}

// NewBuffer allocates a Buffer object.
func (a *Arena) NewBuffer(b []byte) *Object {
	return a.Alloc(&Object{Kind: KindBuffer, Buf: b, arenaIdx: invalidIndex})
}

// NewPackage allocates a Package object with n Uninitialized elements.
func (a *Arena) NewPackage(n int) *Object {
	elems := make([]*Object, n)
	for i := range elems {
		elems[i] = a.Alloc(&Object{Kind: KindUninitialized, arenaIdx: invalidIndex})
	}
	return a.Alloc(&Object{Kind: KindPackage, Pkg: &Package{Elements: elems}, arenaIdx: invalidIndex})
}

// NewReference allocates a Reference object.
func (a *Arena) NewReference(ref *Reference) *Object {
	return a.Alloc(&Object{Kind: KindReference, Ref: ref, arenaIdx: invalidIndex})
}

// Clone performs the deep copy CopyObject and Store-to-a-different-type
// both rely on. Integer, String, Buffer and Package payloads are
// duplicated (Package elements recursively); a Reference is copied by
// value, so the new reference still points at the same target. Every
// other kind is a shallow copy that shares its payload pointer (Field,
// Method, Mutex, Event, Region) with the source.
func (a *Arena) Clone(src *Object) *Object {
	if src == nil {
		return nil
	}
	dst := &Object{Kind: src.Kind, arenaIdx: invalidIndex}
	switch src.Kind {
	case KindInteger:
		dst.Integer = src.Integer
	case KindString:
		dst.Str = src.Str
	case KindBuffer:
		dst.Buf = append([]byte(nil), src.Buf...)
	case KindPackage:
		elems := make([]*Object, len(src.Pkg.Elements))
		for i, e := range src.Pkg.Elements {
			elems[i] = a.Clone(e)
		}
		dst.Pkg = &Package{Elements: elems}
	case KindReference:
		r := *src.Ref
		dst.Ref = &r
	default:
		*dst = *src
		dst.refCount = 0
		dst.arenaIdx = invalidIndex
	}
	return a.Alloc(dst)
}
