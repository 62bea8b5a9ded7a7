package aml

import "testing"

// TestCopyObjectNeverAliases checks CopyObject always deep-copies into a
// fresh object, even when a destination slot already holds a live object of
// the same kind (unlike Store, which would implicitly convert in place for
// a named target).
func TestCopyObjectNeverAliases(t *testing.T) {
	vm := &VM{arena: NewArena(PolicyLeak)}
	frame := &CallFrame{}

	src := vm.arena.NewBuffer([]byte{1, 2, 3})
	frame.Locals[0] = vm.arena.NewBuffer([]byte{7, 7, 7})
	if err := vm.copyObject(src, &targetRef{kind: targetLocal, slot: 0}, frame); err != nil {
		t.Fatalf("copyObject: %s", err.StackTrace())
	}
	dst := frame.Locals[0]
	if dst == src {
		t.Fatalf("expected CopyObject to allocate a new object, got the same pointer")
	}
	src.Buf[0] = 99
	if dst.Buf[0] == 99 {
		t.Errorf("mutating source buffer leaked into CopyObject destination")
	}
}

// TestMethodMutexReentranceDoesNotBlock checks that the same thread
// re-acquiring a Serialized method's implicit mutex increments a depth
// counter rather than deadlocking against itself, per the re-entrant-call
// invariant.
func TestMethodMutexReentranceDoesNotBlock(t *testing.T) {
	host := newTestHost()
	vm := NewVM(host, nil, Config{})

	method := &Object{Kind: KindMethod, Meth: &Method{Name: "REEN", Serialized: true}, arenaIdx: invalidIndex}
	vm.arena.Alloc(method)

	mm := vm.methodMutexFor(method)
	if err := mm.acquire(vm.host); err != nil {
		t.Fatalf("first acquire: %s", err.StackTrace())
	}
	if err := mm.acquire(vm.host); err != nil {
		t.Fatalf("re-entrant acquire deadlocked or errored: %s", err.StackTrace())
	}
	if mm.depth != 2 {
		t.Errorf("expected depth 2 after re-entrant acquire; got %d", mm.depth)
	}
	mm.release()
	if mm.owner == 0 {
		t.Errorf("mutex released fully after only one of two matching releases")
	}
	mm.release()
	if mm.owner != 0 {
		t.Errorf("expected mutex fully released after matching release count")
	}
}

// TestNamespaceInstallResolveLeftInverse checks that resolving a name
// immediately after installing it (absolute, relative, and parent-relative)
// returns the same node, i.e. Resolve is a left inverse of Install.
func TestNamespaceInstallResolveLeftInverse(t *testing.T) {
	seg := func(s string) [4]byte {
		var b [4]byte
		copy(b[:], s)
		return b
	}

	ns := NewNamespace()
	devNode, err := ns.Install(ns.Root, [][4]byte{seg("_SB_"), seg("DEV0")}, true)
	if err != nil {
		t.Fatalf("install \\_SB_.DEV0: %v", err)
	}

	resolved, err := ns.Resolve(ns.Root, [][4]byte{seg("_SB_"), seg("DEV0")}, true, 0)
	if err != nil {
		t.Fatalf("resolve absolute \\_SB_.DEV0: %v", err)
	}
	if resolved != devNode {
		t.Errorf("absolute resolve returned a different node than Install")
	}

	sbNode, err := ns.Resolve(ns.Root, [][4]byte{seg("_SB_")}, true, 0)
	if err != nil {
		t.Fatalf("resolve \\_SB_: %v", err)
	}
	relResolved, err := ns.Resolve(sbNode, [][4]byte{seg("DEV0")}, false, 0)
	if err != nil {
		t.Fatalf("resolve relative DEV0 from \\_SB_: %v", err)
	}
	if relResolved != devNode {
		t.Errorf("relative resolve returned a different node than Install")
	}

	childNode, err := ns.Install(devNode, [][4]byte{seg("CHLD")}, true)
	if err != nil {
		t.Fatalf("install \\_SB_.DEV0.CHLD: %v", err)
	}
	upResolved, err := ns.Resolve(childNode, nil, false, 1)
	if err != nil {
		t.Fatalf("resolve ^ from child: %v", err)
	}
	if upResolved != devNode {
		t.Errorf("parent-relative resolve returned a different node than Install")
	}
}
