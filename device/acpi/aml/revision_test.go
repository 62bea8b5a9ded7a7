package aml

import "testing"

// revision_test.go covers the fixes driven by a subsequent maintainer
// review: sentinel error immutability, the namespace upward-search segment
// gate, the Store RefOf-unwind rules, the Global Lock pair, sleep-method
// evaluation, and dynamic table Unload.

func TestErrorSentinelTraceNotShared(t *testing.T) {
	base := len(errDivideByZero.trace)

	e1 := errDivideByZero.withFrame("T1", "M1", 10, "Add")
	e2 := errDivideByZero.withFrame("T2", "M2", 20, "Subtract")

	if len(errDivideByZero.trace) != base {
		t.Fatalf("withFrame mutated the shared sentinel: trace grew to %d entries", len(errDivideByZero.trace))
	}
	if len(e1.trace) != base+1 || len(e2.trace) != base+1 {
		t.Fatalf("expected each withFrame call to add exactly one frame; got %d and %d", len(e1.trace), len(e2.trace))
	}
	if e1.trace[len(e1.trace)-1].method != "M1" || e2.trace[len(e2.trace)-1].method != "M2" {
		t.Fatalf("traces cross-contaminated: e1=%+v e2=%+v", e1.trace, e2.trace)
	}

	e3 := e1.withFrame("T1", "M1b", 11, "Add")
	if len(e1.trace) != base+1 {
		t.Fatalf("withFrame mutated its receiver: e1.trace grew to %d entries after deriving e3", len(e1.trace))
	}
	if len(e3.trace) != base+2 {
		t.Fatalf("expected e3 to carry both frames; got %d", len(e3.trace))
	}
}

// buildNamespaceFixture wires up:
//
//	\X (container)
//	  \X.Y = Integer(9)
//	\Z (container, sibling of X)
//	\W = Integer(42) (sibling of X and Z)
func buildNamespaceFixture(t *testing.T) (ns *Namespace, z *Node) {
	ns = NewNamespace()
	x, err := ns.Install(ns.Root, [][4]byte{{'X', '_', '_', '_'}}, true)
	if err != nil {
		t.Fatalf("install X: %v", err)
	}
	y, err := ns.Install(x, [][4]byte{{'Y', '_', '_', '_'}}, true)
	if err != nil {
		t.Fatalf("install Y: %v", err)
	}
	y.Object = &Object{Kind: KindInteger, Integer: 9, arenaIdx: invalidIndex}

	z, err = ns.Install(ns.Root, [][4]byte{{'Z', '_', '_', '_'}}, true)
	if err != nil {
		t.Fatalf("install Z: %v", err)
	}

	w, err := ns.Install(ns.Root, [][4]byte{{'W', '_', '_', '_'}}, true)
	if err != nil {
		t.Fatalf("install W: %v", err)
	}
	w.Object = &Object{Kind: KindInteger, Integer: 42, arenaIdx: invalidIndex}

	return ns, z
}

func TestResolveSingleSegmentRelativeSearchesUpward(t *testing.T) {
	ns, z := buildNamespaceFixture(t)

	n, err := ns.Resolve(z, [][4]byte{{'W', '_', '_', '_'}}, false, 0)
	if err != nil {
		t.Fatalf("expected \\W to resolve upward from \\Z; got error: %v", err)
	}
	if n.Object == nil || n.Object.Integer != 42 {
		t.Fatalf("resolved wrong node for W")
	}
}

func TestResolveMultiSegmentRelativeNeverWalksUpward(t *testing.T) {
	ns, z := buildNamespaceFixture(t)

	_, err := ns.Resolve(z, [][4]byte{{'X', '_', '_', '_'}, {'Y', '_', '_', '_'}}, false, 0)
	if err == nil {
		t.Fatalf("expected multi-segment relative name X.Y to fail resolving from \\Z (no upward walk), but it succeeded")
	}
}

// newArgRefVM builds a VM with two top-level Name objects (VALA, VALB),
// each initialized to a String so an implicit-cast write-through and a
// plain overwrite write-through are distinguishable by the resulting Kind.
func newArgRefVM(t *testing.T) (vm *VM, host *testHost, vala, valb *Node) {
	vm, host = newTestVM(t, 2, nil)
	vala, err := vm.ns.Install(vm.ns.Root, [][4]byte{{'V', 'A', 'L', 'A'}}, true)
	if err != nil {
		t.Fatalf("install VALA: %v", err)
	}
	vala.Object = vm.arena.NewString("old")

	valb, err = vm.ns.Install(vm.ns.Root, [][4]byte{{'V', 'A', 'L', 'B'}}, true)
	if err != nil {
		t.Fatalf("install VALB: %v", err)
	}
	valb.Object = vm.arena.NewString("old")
	return vm, host, vala, valb
}

// TestStoreThroughArgRefOfOverwrites checks that storing into an Arg slot
// that holds a RefOf reference writes back to the referent by plain
// overwrite (no implicit cast against the referent's previous Kind).
func TestStoreThroughArgRefOfOverwrites(t *testing.T) {
	vm, _, vala, _ := newArgRefVM(t)

	frame := newCallFrame(nil, nil, vm.ns.Root)
	frame.Args[0] = vm.arena.NewReference(&Reference{Kind: RefOfNamed, Node: vala})

	tgt := &targetRef{kind: targetArg, slot: 0}
	if err := vm.storeToTarget(frame, vm.arena.NewInteger(10), tgt); err != nil {
		t.Fatalf("store through Arg0's reference: %s", err.StackTrace())
	}

	if vala.Object.Kind != KindInteger || vala.Object.Integer != 10 {
		t.Fatalf("expected VALA overwritten to Integer(10); got Kind=%v", vala.Object.Kind)
	}
}

// TestStoreThroughLocalRefOfCasts checks that storing into a Local slot
// that holds a RefOf reference writes back through an implicit cast
// against the referent's existing Kind, rather than replacing it outright.
func TestStoreThroughLocalRefOfCasts(t *testing.T) {
	vm, _, _, valb := newArgRefVM(t)

	frame := newCallFrame(nil, nil, vm.ns.Root)
	frame.Locals[0] = vm.arena.NewReference(&Reference{Kind: RefOfNamed, Node: valb})

	tgt := &targetRef{kind: targetLocal, slot: 0}
	if err := vm.storeToTarget(frame, vm.arena.NewInteger(10), tgt); err != nil {
		t.Fatalf("store through Local0's reference: %s", err.StackTrace())
	}

	if valb.Object.Kind != KindString {
		t.Fatalf("expected VALB to keep its String kind via implicit cast; got Kind=%v", valb.Object.Kind)
	}
	if valb.Object.Str != "0xA" {
		t.Errorf("expected implicit cast of Integer(10) to \"0xA\"; got %q", valb.Object.Str)
	}
}

// TestStoreThroughRefOfLocalAndArg checks the reference-to-slot case: a
// Reference whose Kind is RefOfLocal/RefOfArg (produced by RefOf(LocalX)/
// RefOf(ArgX)) writes back into the named slot of the frame that owns it,
// instead of erroring out.
func TestStoreThroughRefOfLocalAndArg(t *testing.T) {
	vm, _ := newTestVM(t, 2, nil)
	frame := newCallFrame(nil, nil, vm.ns.Root)

	frame.Locals[1] = vm.arena.NewInteger(1)
	refToLocal1 := vm.arena.NewReference(&Reference{Kind: RefOfLocal, Slot: 1})
	frame.Args[0] = refToLocal1

	tgt := &targetRef{kind: targetArg, slot: 0}
	if err := vm.storeToTarget(frame, vm.arena.NewInteger(77), tgt); err != nil {
		t.Fatalf("store through Arg0 -> RefOfLocal(1): %s", err.StackTrace())
	}
	if frame.Locals[1].Kind != KindInteger || frame.Locals[1].Integer != 77 {
		t.Fatalf("expected Local1 overwritten to 77; got %+v", frame.Locals[1])
	}
}

func TestGlobalLockUnlockRoundTrip(t *testing.T) {
	vm, _ := newTestVM(t, 2, nil)

	if err := vm.GlobalLock(); err != nil {
		t.Fatalf("GlobalLock: %s", err.StackTrace())
	}
	if err := vm.GlobalUnlock(); err != nil {
		t.Fatalf("GlobalUnlock: %s", err.StackTrace())
	}
}

func TestEvaluateSleepMethodNoOpWhenUndefined(t *testing.T) {
	vm, _ := newTestVM(t, 2, nil)

	if err := vm.EvaluateSleepMethod("_PTS", vm.arena.NewInteger(1)); err != nil {
		t.Fatalf("expected EvaluateSleepMethod to no-op on an undefined method; got %s", err.StackTrace())
	}
}

func TestEvaluateSleepMethodInvokesBoundMethod(t *testing.T) {
	vm, _ := newTestVM(t, 2, nil)

	var gotArg uint64
	native := func(vm *VM, args []*Object) (*Object, *Error) {
		gotArg = args[0].Integer
		return nil, nil
	}
	node, err := vm.ns.Install(vm.ns.Root, [][4]byte{{'_', 'P', 'T', 'S'}}, true)
	if err != nil {
		t.Fatalf("install _PTS: %v", err)
	}
	methObj := &Object{Kind: KindMethod, Meth: &Method{Name: "_PTS", ArgCount: 1, Native: native}, arenaIdx: invalidIndex}
	vm.arena.Alloc(methObj)
	node.Object = methObj

	if serr := vm.EvaluateSleepMethod("_PTS", vm.arena.NewInteger(3)); serr != nil {
		t.Fatalf("EvaluateSleepMethod: %s", serr.StackTrace())
	}
	if gotArg != 3 {
		t.Errorf("expected _PTS invoked with arg 3; got %d", gotArg)
	}
}

func TestUnloadMarksLoadedNodesDangling(t *testing.T) {
	vm, _ := newTestVM(t, 2, nil)

	before := len(vm.ns.Root.Children)
	n, err := vm.ns.Install(vm.ns.Root, [][4]byte{{'D', 'Y', 'N', '0'}}, true)
	if err != nil {
		t.Fatalf("install DYN0: %v", err)
	}
	n.Object = vm.arena.NewInteger(1)
	child, err := vm.ns.Install(n, [][4]byte{{'C', 'H', 'L', 'D'}}, true)
	if err != nil {
		t.Fatalf("install DYN0.CHLD: %v", err)
	}
	child.Object = vm.arena.NewInteger(2)

	handle := vm.recordLoad(before)

	frame := newCallFrame(nil, nil, vm.ns.Root)
	ctx := &OpContext{Items: []Item{{Obj: vm.arena.NewInteger(handle)}}}
	if err := unloadHandler(vm, frame, ctx); err != nil {
		t.Fatalf("unloadHandler: %s", err.StackTrace())
	}

	if n.Object != nil || !n.dangling {
		t.Errorf("expected DYN0 to be dangling after Unload")
	}
	if child.Object != nil || !child.dangling {
		t.Errorf("expected DYN0.CHLD to be dangling after Unload (subtree not torn down)")
	}
	if len(vm.loaded) != 0 {
		t.Errorf("expected the loadedTable entry to be removed after Unload; %d remain", len(vm.loaded))
	}
}

func TestRegisterNotifyHandlerDispatchesSynchronously(t *testing.T) {
	vm, _ := newTestVM(t, 2, nil)

	var gotValue uint64
	var gotNode *Node
	vm.RegisterNotifyHandler(func(node *Node, value uint64) {
		gotNode = node
		gotValue = value
	})

	target := vm.ns.Root
	if err := vm.dispatchNotify(target, 0x80); err != nil {
		t.Fatalf("dispatchNotify: %s", err.StackTrace())
	}
	if gotNode != target || gotValue != 0x80 {
		t.Errorf("expected handler invoked with (root, 0x80); got (%v, %#x)", gotNode, gotValue)
	}
}
