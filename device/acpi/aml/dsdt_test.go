package aml

import "acpicore/device/acpi/table"

// buildDSDT assembles a minimal, checksum-valid DSDT image wrapping aml,
// for tests that need a full VM rather than a bare CallFrame. Mirrors the
// 36-byte common header table.DecodeHeader expects.
func buildDSDT(revision byte, aml []byte) []byte {
	raw := make([]byte, 36+len(aml))
	copy(raw[0:4], "DSDT")
	length := uint32(len(raw))
	raw[4] = byte(length)
	raw[5] = byte(length >> 8)
	raw[6] = byte(length >> 16)
	raw[7] = byte(length >> 24)
	raw[8] = revision
	copy(raw[10:16], "TEST01")
	copy(raw[16:24], "TESTTBL0")
	copy(raw[36:], aml)

	raw[9] = 0
	var sum byte
	for _, b := range raw {
		sum += b
	}
	raw[9] = 0 - sum
	return raw
}

// newTestVM installs a single DSDT built from aml and returns a ready VM
// plus the host backing it, for assertions on Firmware()/Clock() calls.
func newTestVM(t interface{ Fatalf(string, ...interface{}) }, revision byte, aml []byte) (*VM, *testHost) {
	raw := buildDSDT(revision, aml)
	resolver := table.NewStaticResolver()
	if _, err := resolver.Install(raw); err != nil {
		t.Fatalf("install DSDT: %v", err)
	}
	host := newTestHost()
	vm := NewVM(host, resolver, Config{})
	if err := vm.Init(); err != nil {
		t.Fatalf("vm.Init: %s", err.StackTrace())
	}
	return vm, host
}
