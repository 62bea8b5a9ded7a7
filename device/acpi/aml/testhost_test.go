package aml

import (
	"acpicore/kernel/hal"
	acpisync "acpicore/kernel/sync"
)

// testhost_test.go provides the fake hal.Host every other _test.go file in
// this package builds a VM against. Grounded on cmd/acpiexec's host.go
// shape (Memory/PortIO/PCIConfig stubs that fail loud, since no test here
// exercises an OperationRegion against real hardware) but with a
// step-controlled Clock, since the While-timeout scenario needs to trip a
// 30-second budget without a test actually sleeping 30 seconds.

type stepClock struct {
	now  uint64
	step uint64
}

func (c *stepClock) Ticks100ns() uint64 {
	c.now += c.step
	return c.now
}
func (c *stepClock) Stall(uint32)  {}
func (c *stepClock) Sleep(uint32)  {}

type fixedThread struct{}

func (fixedThread) CurrentThreadID() hal.ThreadID { return 1 }

type discardLogger struct{}

func (discardLogger) Logf(hal.LogLevel, string, ...interface{}) {}

type recordingFirmware struct {
	calls []hal.FirmwareRequestKind
}

func (f *recordingFirmware) Handle(kind hal.FirmwareRequestKind, fatalType uint8, fatalCode uint32, fatalArg uint64) {
	f.calls = append(f.calls, kind)
}

type noMemory struct{}

func (noMemory) MapPhysical(uintptr, uint32) (uintptr, error) { return 0, errNoHardware }
func (noMemory) Unmap(uintptr, uint32) error                  { return nil }
func (noMemory) ReadByte(uintptr) (uint8, error)              { return 0, errNoHardware }
func (noMemory) ReadWord(uintptr) (uint16, error)             { return 0, errNoHardware }
func (noMemory) ReadDword(uintptr) (uint32, error)            { return 0, errNoHardware }
func (noMemory) ReadQword(uintptr) (uint64, error)            { return 0, errNoHardware }
func (noMemory) WriteByte(uintptr, uint8) error               { return errNoHardware }
func (noMemory) WriteWord(uintptr, uint16) error              { return errNoHardware }
func (noMemory) WriteDword(uintptr, uint32) error             { return errNoHardware }
func (noMemory) WriteQword(uintptr, uint64) error             { return errNoHardware }
func (noMemory) Alloc(length uint32) ([]byte, error)          { return make([]byte, length), nil }
func (noMemory) Calloc(length uint32) ([]byte, error)         { return make([]byte, length), nil }

type noPortIO struct{}

func (noPortIO) MapPort(uint16, uint16) error     { return nil }
func (noPortIO) UnmapPort(uint16, uint16) error   { return nil }
func (noPortIO) ReadByte(uint16) (uint8, error)   { return 0, errNoHardware }
func (noPortIO) ReadWord(uint16) (uint16, error)  { return 0, errNoHardware }
func (noPortIO) ReadDword(uint16) (uint32, error) { return 0, errNoHardware }
func (noPortIO) WriteByte(uint16, uint8) error    { return errNoHardware }
func (noPortIO) WriteWord(uint16, uint16) error   { return errNoHardware }
func (noPortIO) WriteDword(uint16, uint32) error  { return errNoHardware }

type noPCI struct{}

func (noPCI) ReadByte(a, b, c, d uint8, off uint16) (uint8, error)       { return 0, errNoHardware }
func (noPCI) ReadWord(a, b, c, d uint8, off uint16) (uint16, error)      { return 0, errNoHardware }
func (noPCI) ReadDword(a, b, c, d uint8, off uint16) (uint32, error)     { return 0, errNoHardware }
func (noPCI) WriteByte(a, b, c, d uint8, off uint16, v uint8) error      { return errNoHardware }
func (noPCI) WriteWord(a, b, c, d uint8, off uint16, v uint16) error     { return errNoHardware }
func (noPCI) WriteDword(a, b, c, d uint8, off uint16, v uint32) error    { return errNoHardware }

var errNoHardware = &Error{Kind: ErrMappingFailed, Message: "no hardware backing in test fixture"}

type testHost struct {
	clock    *stepClock
	firmware *recordingFirmware
}

func newTestHost() *testHost {
	return &testHost{
		clock:    &stepClock{step: 1},
		firmware: &recordingFirmware{},
	}
}

func (h *testHost) Memory() hal.Memory       { return noMemory{} }
func (h *testHost) PortIO() hal.PortIO       { return noPortIO{} }
func (h *testHost) PCIConfig() hal.PCIConfig { return noPCI{} }
func (h *testHost) Clock() hal.Clock         { return h.clock }
func (h *testHost) Sync() hal.Sync           { return acpisync.Host{} }
func (h *testHost) Threads() hal.Threads     { return fixedThread{} }
func (h *testHost) Work() hal.WorkQueue      { return nil }
func (h *testHost) Logger() hal.Logger       { return discardLogger{} }
func (h *testHost) Firmware() hal.Firmware   { return h.firmware }
