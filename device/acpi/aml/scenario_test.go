package aml

import "testing"

// TestEvalIntegerArithmetic hand-encodes:
//
//	Method(MAIN, 0) { Return(Add(2, 3)) }
//
// and checks evaluating \MAIN returns the Integer 5. Byte layout:
//
//	0x14          MethodOp
//	0x0d          PkgLength = 13 (1 self byte + 4 name + 1 flags + 7 body)
//	'M','A','I','N'
//	0x00          MethodFlags: ArgCount=0, not Serialized, SyncLevel=0
//	0xa4          ReturnOp
//	0x72          AddOp
//	0x0a, 0x02    BytePrefix, 2
//	0x0a, 0x03    BytePrefix, 3
//	0x00          Add's Target: NullName (no store)
func TestEvalIntegerArithmetic(t *testing.T) {
	aml := []byte{
		0x14, 0x0d, 'M', 'A', 'I', 'N', 0x00,
		0xa4, 0x72, 0x0a, 0x02, 0x0a, 0x03, 0x00,
	}
	vm, _ := newTestVM(t, 2, aml)

	result, err := vm.Eval(`\MAIN`)
	if err != nil {
		t.Fatalf("eval \\MAIN: %s", err.StackTrace())
	}
	if result.Kind != KindInteger {
		t.Fatalf("expected KindInteger; got %v", result.Kind)
	}
	if result.Integer != 5 {
		t.Errorf("expected Integer 5; got %d", result.Integer)
	}
}

// TestEvalStringIdentity hand-encodes:
//
//	Method(MAIN, 0) { Return("hi") }
//
//	0x14, pkglen, "MAIN", flags(0x00),
//	0xa4 (Return), 0x0d (StringPrefix), 'h','i', 0x00 (NUL terminator), 0x00 (trailing byte, never reached after Return)
func TestEvalStringIdentity(t *testing.T) {
	body := []byte{0xa4, 0x0d, 'h', 'i', 0x00, 0x00}
	nameAndFlags := []byte{'M', 'A', 'I', 'N', 0x00}
	pkglen := byte(1 + len(nameAndFlags) + len(body))
	aml := append([]byte{0x14, pkglen}, nameAndFlags...)
	aml = append(aml, body...)

	vm, _ := newTestVM(t, 2, aml)

	result, err := vm.Eval(`\MAIN`)
	if err != nil {
		t.Fatalf("eval \\MAIN: %s", err.StackTrace())
	}
	if result.Kind != KindString {
		t.Fatalf("expected KindString; got %v", result.Kind)
	}
	if result.Str != "hi" {
		t.Errorf("expected Str %q; got %q", "hi", result.Str)
	}
}

// TestEvalScopeCreateThenResolve hand-encodes a top-level Name declaration
// wrapped in a Scope(\):
//
//	Scope(\) { Name(XYZ, 0x42) }
//
//	0x10          ScopeOp
//	pkglen
//	0x5c          RootChar '\'
//	0x08          NameOp
//	'X','Y','Z'... NameString (the scope is root, so "XYZZ" 4-char seg... )
//
// Name requires a 4-char segment; use "XYZZ" to keep the encoding simple.
func TestEvalScopeCreateThenResolve(t *testing.T) {
	inner := []byte{0x08, 'X', 'Y', 'Z', 'Z', 0x0a, 0x42}
	scopeName := []byte{0x5c, 0x00} // root char + null-name (zero segments)
	scopeBody := append(append([]byte{}, scopeName...), inner...)
	pkglen := byte(1 + len(scopeBody))
	aml := append([]byte{0x10, pkglen}, scopeBody...)

	vm, _ := newTestVM(t, 2, aml)

	result, err := vm.Eval(`\XYZZ`)
	if err != nil {
		t.Fatalf("eval \\XYZZ: %s", err.StackTrace())
	}
	if result.Kind != KindInteger {
		t.Fatalf("expected KindInteger; got %v", result.Kind)
	}
	if result.Integer != 0x42 {
		t.Errorf("expected Integer 0x42; got 0x%x", result.Integer)
	}
}

// TestEvalWhileLoopTimesOut hand-encodes:
//
//	Method(MAIN, 0) { Name(CNTR, 0) While(One) { Increment(CNTR) } }
//
// and drives it with a stepClock advancing fast enough to trip the
// interpreter's While-loop wall-clock budget well before a real 30 seconds
// would pass, asserting ErrLoopTimeout surfaces instead of an infinite loop.
func TestEvalWhileLoopTimesOut(t *testing.T) {
	nameDecl := []byte{0x08, 'C', 'N', 'T', 'R', 0x0a, 0x00} // Name(CNTR, 0)
	whileBody := []byte{0x75, 'C', 'N', 'T', 'R'}            // Increment(CNTR)
	whilePkglen := byte(1 + 1 + len(whileBody))              // self + predicate(One) + body
	whileStmt := append([]byte{0xa2, whilePkglen, 0x01}, whileBody...)

	body := append(append([]byte{}, nameDecl...), whileStmt...)

	methodName := []byte{'M', 'A', 'I', 'N', 0x00}
	methodPkglen := byte(1 + len(methodName) + len(body))
	aml := append([]byte{0x14, methodPkglen}, methodName...)
	aml = append(aml, body...)

	vm, host := newTestVM(t, 2, aml)
	host.clock.step = 1 << 40 // trips the 30s budget after a handful of iterations

	_, err := vm.Eval(`\MAIN`)
	if err == nil {
		t.Fatalf("expected ErrLoopTimeout; got success")
	}
	if err.Kind != ErrLoopTimeout {
		t.Errorf("expected ErrLoopTimeout; got %v: %s", err.Kind, err.Message)
	}
}

// TestEvalStoreToLocalIsDeepCopy hand-encodes:
//
//	Method(MAIN, 0) {
//	    Store(Buffer(4){1,2,3,4}, Local0)
//	    Store(Local0, Local1)
//	    Store(Buffer(2){9,9}, Local1)
//	    Return(Local0)
//	}
//
// and checks the later overwrite of Local1 never touches Local0's buffer,
// i.e. Store into a Local clones rather than aliases its source.
func TestEvalStoreToLocalIsDeepCopy(t *testing.T) {
	buf4 := []byte{0x11, 0x07, 0x0a, 0x04, 0x01, 0x02, 0x03, 0x04} // Buffer(4){1,2,3,4}
	buf2 := []byte{0x11, 0x05, 0x0a, 0x02, 0x09, 0x09}             // Buffer(2){9,9}

	store1 := append(append([]byte{0x70}, buf4...), 0x60) // Store(buf4, Local0)
	store2 := []byte{0x70, 0x60, 0x61}                     // Store(Local0, Local1)
	store3 := append(append([]byte{0x70}, buf2...), 0x61)  // Store(buf2, Local1)
	ret := []byte{0xa4, 0x60}                              // Return(Local0)

	body := append(append(append(append([]byte{}, store1...), store2...), store3...), ret...)

	methodName := []byte{'M', 'A', 'I', 'N', 0x00}
	methodPkglen := byte(1 + len(methodName) + len(body))
	aml := append([]byte{0x14, methodPkglen}, methodName...)
	aml = append(aml, body...)

	vm, _ := newTestVM(t, 2, aml)

	result, err := vm.Eval(`\MAIN`)
	if err != nil {
		t.Fatalf("eval \\MAIN: %s", err.StackTrace())
	}
	if result.Kind != KindBuffer {
		t.Fatalf("expected KindBuffer; got %v", result.Kind)
	}
	want := []byte{1, 2, 3, 4}
	if len(result.Buf) != len(want) {
		t.Fatalf("expected buffer length %d; got %d", len(want), len(result.Buf))
	}
	for i := range want {
		if result.Buf[i] != want[i] {
			t.Errorf("byte %d: expected %d; got %d", i, want[i], result.Buf[i])
		}
	}
}
