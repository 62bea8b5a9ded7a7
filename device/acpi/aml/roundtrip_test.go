package aml

import "testing"

// TestNameStringRoundTrip checks DecodeNameString(EncodeNameString(x)) == x
// for the absolute/relative, 0/1/2/N-segment shapes the grammar allows.
func TestNameStringRoundTrip(t *testing.T) {
	seg := func(s string) [4]byte {
		var b [4]byte
		copy(b[:], s)
		return b
	}

	specs := []struct {
		in NameString
	}{
		{NameString{Absolute: true}},
		{NameString{ParentHops: 2}},
		{NameString{Absolute: true, Segments: [][4]byte{seg("MAIN")}}},
		{NameString{ParentHops: 1, Segments: [][4]byte{seg("_SB_")}}},
		{NameString{Absolute: true, Segments: [][4]byte{seg("_SB_"), seg("PCI0")}}},
		{NameString{Absolute: true, Segments: [][4]byte{seg("_SB_"), seg("PCI0"), seg("LPC0")}}},
	}

	for i, spec := range specs {
		encoded := EncodeNameString(spec.in)
		decoded, n, err := DecodeNameString(encoded)
		if err != nil {
			t.Errorf("[spec %d] decode failed: %v", i, err)
			continue
		}
		if n != len(encoded) {
			t.Errorf("[spec %d] consumed %d bytes; want %d", i, n, len(encoded))
		}
		if decoded.Absolute != spec.in.Absolute || decoded.ParentHops != spec.in.ParentHops {
			t.Errorf("[spec %d] expected %+v; got %+v", i, spec.in, decoded)
			continue
		}
		if len(decoded.Segments) != len(spec.in.Segments) {
			t.Errorf("[spec %d] expected %d segments; got %d", i, len(spec.in.Segments), len(decoded.Segments))
			continue
		}
		for j := range decoded.Segments {
			if decoded.Segments[j] != spec.in.Segments[j] {
				t.Errorf("[spec %d] segment %d: expected %v; got %v", i, j, spec.in.Segments[j], decoded.Segments[j])
			}
		}
	}
}

// TestPkgLengthRoundTrip checks DecodePkgLength(EncodePkgLength(n)) == n
// across the 1/2/3/4-byte encoding widths.
func TestPkgLengthRoundTrip(t *testing.T) {
	specs := []uint32{0, 1, 0x3f, 0x40, 0xfff, 0x1000, 0xfffff, 0x100000, 0xfffffff}

	for i, n := range specs {
		encoded := EncodePkgLength(n)
		decoded, consumed, err := DecodePkgLength(encoded)
		if err != nil {
			t.Errorf("[spec %d] decode(%d) failed: %v", i, n, err)
			continue
		}
		if consumed != len(encoded) {
			t.Errorf("[spec %d] consumed %d bytes; want %d", i, consumed, len(encoded))
		}
		if decoded != n {
			t.Errorf("[spec %d] expected %d; got %d", i, n, decoded)
		}
	}
}

// TestArenaRefcountSymmetry checks that a balanced Ref/Unref pair leaves the
// arena slot alive and that Unref only frees it once the count reaches zero.
func TestArenaRefcountSymmetry(t *testing.T) {
	a := NewArena(PolicyLeak)
	obj := a.Alloc(&Object{Kind: KindInteger, Integer: 7, arenaIdx: invalidIndex})

	a.Ref(obj)
	if obj.refCount != 2 {
		t.Fatalf("expected refCount 2 after Ref; got %d", obj.refCount)
	}
	if err := a.Unref(obj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.At(obj.arenaIdx) == nil {
		t.Fatalf("object freed prematurely after balancing Unref")
	}
	if err := a.Unref(obj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.At(obj.arenaIdx) != nil {
		t.Errorf("expected slot freed once refCount reached zero")
	}
}

// TestArenaOverUnrefPolicies checks PolicyLeak silently absorbs an
// over-Unref while PolicyPanic surfaces ErrOutOfBounds instead, per the
// documented buggy-refcount accommodation.
func TestArenaOverUnrefPolicies(t *testing.T) {
	leaky := NewArena(PolicyLeak)
	obj := leaky.Alloc(&Object{Kind: KindInteger, Integer: 1, arenaIdx: invalidIndex})
	leaky.Unref(obj)
	if err := leaky.Unref(obj); err != nil {
		t.Errorf("PolicyLeak: expected nil error on over-Unref; got %v", err)
	}
	if leaky.LeakCount() != 1 {
		t.Errorf("PolicyLeak: expected LeakCount 1; got %d", leaky.LeakCount())
	}

	strict := NewArena(PolicyPanic)
	obj2 := strict.Alloc(&Object{Kind: KindInteger, Integer: 1, arenaIdx: invalidIndex})
	strict.Unref(obj2)
	if err := strict.Unref(obj2); err == nil {
		t.Errorf("PolicyPanic: expected error on over-Unref; got nil")
	}
}
