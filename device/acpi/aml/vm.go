package aml

import (
	"acpicore/device/acpi/table"
	"acpicore/kernel/hal"
)

// Config selects the policy choices spec.md §9 leaves open rather than
// fully pinning down.
type Config struct {
	// RefcountPolicy controls what happens when a Store sequence drives
	// an object's refcount below zero (observed in real firmware). The
	// default, PolicyLeak, matches documented real-world behavior.
	RefcountPolicy LeakPolicy

	// MaxCallDepth bounds recursive method invocation (§5). Zero selects
	// the default of 256, matching common host implementations.
	MaxCallDepth int

	// SizeOfIntInBits is not read by the VM: Init derives the integer
	// width from the DSDT's revision field instead (64-bit for rev >= 2,
	// 32-bit otherwise).
	SizeOfIntInBits int
}

func (c Config) maxCallDepth() int {
	if c.MaxCallDepth <= 0 {
		return 256
	}
	return c.MaxCallDepth
}

// VM is the embeddable AML interpreter: a namespace, an object arena, a
// table resolver, and the host primitive set every opcode handler may
// call through. Grounded on the teacher's VM type in vm.go, generalized
// from gopher-os's fixed entity-tree-walking evaluator to the micro-op
// parse-program architecture spec.md §4 describes.
type VM struct {
	host     hal.Host
	resolver table.Resolver
	arena    *Arena
	ns       *Namespace
	ip       *Interpreter
	cfg      Config

	currentTable string
	intWidth64   bool

	callDepth int
	mutexes   []*methodMutex

	notifyHandler  NotifyHandler
	regionHandlers map[RegionSpace]RegionHandler

	globalLockObj *Object

	loaded        []*loadedTable
	nextDDBHandle uint64
}

// loadedTable remembers which root-level namespace nodes a Load/LoadTable
// call created, so a later Unload(ddbHandle) knows what to tear back down.
type loadedTable struct {
	handle uint64
	nodes  []*Node
}

// RegisterRegionHandler binds a host-supplied handler for one of the
// non-default address spaces (PCI config, embedded controller, ...); the
// built-in System Memory / System I/O spaces never consult this map.
func (vm *VM) RegisterRegionHandler(space RegionSpace, h RegionHandler) {
	if vm.regionHandlers == nil {
		vm.regionHandlers = make(map[RegionSpace]RegionHandler)
	}
	vm.regionHandlers[space] = h
}

// NewVM constructs a VM bound to host and resolver. Init must be called
// before any method can be evaluated.
func NewVM(host hal.Host, resolver table.Resolver, cfg Config) *VM {
	vm := &VM{
		host:     host,
		resolver: resolver,
		arena:    NewArena(cfg.RefcountPolicy),
		ns:       NewNamespace(),
		cfg:      cfg,
	}
	vm.ip = newInterpreter(vm)
	return vm
}

// Init loads the DSDT (SSDTs are not loaded here; see LoadTable) and binds the predefined namespace objects (_OS_, _REV, _OSI, ...) that
// gopher-os's defaultACPIScopes leaves Uninitialized. spec.md §9 singles
// out _OSI specifically as needing a real implementation.
func (vm *VM) Init() *Error {
	dsdt := vm.resolver.LookupTable("DSDT")
	if dsdt == nil {
		return newError(ErrUndefinedReference, "no DSDT installed")
	}
	vm.intWidth64 = dsdt.Revision >= 2

	vm.bindPredefinedObjects()

	if sr, ok := vm.resolver.(*table.StaticResolver); ok {
		if err := vm.loadTable(sr, "DSDT"); err != nil {
			return err
		}
	}
	return nil
}

// LoadTable parses and evaluates the AML bytecode of an already-installed
// table (DSDT or an SSDT), at top level, in the root scope. Exposed so
// cmd/acpiexec and callers with their own Resolver can load SSDTs whose
// discovery isn't StaticResolver-driven.
func (vm *VM) LoadTable(name string, aml []byte) *Error {
	prevTable := vm.currentTable
	vm.currentTable = name
	defer func() { vm.currentTable = prevTable }()

	frame := newCallFrame(nil, aml, vm.ns.Root)
	return vm.ip.run(frame)
}

func (vm *VM) loadTable(sr *table.StaticResolver, name string) *Error {
	raw := sr.RawAML(name)
	if raw == nil {
		return nil
	}
	return vm.LoadTable(name, raw)
}

func (vm *VM) bindPredefinedObjects() {
	root := vm.ns.Root
	set := func(name string, obj *Object) {
		var key [4]byte
		copy(key[:], name)
		if n := root.child(key); n != nil {
			n.Object = obj
		}
	}
	set("_OS_", vm.arena.NewString("Microsoft Windows NT"))
	set("_REV", vm.arena.NewInteger(2))

	osiMethod := &Object{Kind: KindMethod, Meth: &Method{Name: "_OSI", ArgCount: 1, Native: osiNative}, arenaIdx: invalidIndex}
	vm.arena.Alloc(osiMethod)
	set("_OSI", osiMethod)

	glObj := &Object{Kind: KindMutex, Mtx: &Mutex{SyncLevel: 0}, arenaIdx: invalidIndex}
	vm.arena.Alloc(glObj)
	set("_GL_", glObj)
	vm.globalLockObj = glObj
}

// Eval resolves name (an absolute or root-relative name string) to a
// namespace node and, if it names a Method, invokes it with args;
// otherwise returns the node's bound object directly. This is the
// package's single public entry point for evaluating AML, mirroring the
// teacher's VM.Visit/Lookup pair collapsed into one call.
func (vm *VM) Eval(name string, args ...*Object) (*Object, *Error) {
	ns, _, err := DecodeNameString([]byte(name))
	if err != nil {
		return nil, err.(*Error)
	}
	node, rerr := vm.ns.Resolve(vm.ns.Root, ns.Segments, true, 0)
	if rerr != nil {
		return nil, rerr.(*Error)
	}
	if node.Object == nil {
		return nil, newError(ErrUndefinedReference, "namespace node %s has no bound object", name)
	}
	if node.Object.Kind != KindMethod {
		return node.Object, nil
	}
	return vm.invokeMethod(node, node.Object, args)
}

func (vm *VM) invokeMethod(node *Node, method *Object, args []*Object) (*Object, *Error) {
	if vm.callDepth >= vm.cfg.maxCallDepth() {
		return nil, errCallStackDepthExceeded
	}
	if len(args) != int(method.Meth.ArgCount) {
		return nil, errArgCountMismatch
	}

	if method.Meth.Native != nil {
		return method.Meth.Native(vm, args)
	}

	if method.Meth.Serialized {
		if err := vm.checkSyncLevel(method.Meth.SyncLevel); err != nil {
			return nil, err
		}
		mm := vm.methodMutexFor(method)
		if err := mm.acquire(vm.host); err != nil {
			return nil, err
		}
		defer mm.release()
	}

	frame := newCallFrame(method, method.Meth.Code, node.Parent)
	for i, a := range args {
		frame.Args[i] = a
	}

	vm.callDepth++
	defer func() { vm.callDepth-- }()

	if err := vm.ip.run(frame); err != nil {
		return nil, err
	}
	return frame.pendingReturn, nil
}
