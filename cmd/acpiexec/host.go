package main

import (
	"fmt"
	"os"
	"time"

	"acpicore/kernel/hal"
)

// unsupportedMemory/unsupportedPortIO/unsupportedPCI reject every access:
// acpiexec loads a captured table image and evaluates pure-software
// methods against it, it never expects a DSDT under test to reach for
// real physical memory, port I/O, or PCI config space.
type unsupportedMemory struct{}

func (unsupportedMemory) MapPhysical(phys uintptr, length uint32) (uintptr, error) {
	return 0, fmt.Errorf("acpiexec: no physical memory backing (addr 0x%x)", phys)
}
func (unsupportedMemory) Unmap(uintptr, uint32) error { return nil }
func (unsupportedMemory) ReadByte(uintptr) (uint8, error) {
	return 0, fmt.Errorf("acpiexec: memory reads are unsupported")
}
func (unsupportedMemory) ReadWord(uintptr) (uint16, error) {
	return 0, fmt.Errorf("acpiexec: memory reads are unsupported")
}
func (unsupportedMemory) ReadDword(uintptr) (uint32, error) {
	return 0, fmt.Errorf("acpiexec: memory reads are unsupported")
}
func (unsupportedMemory) ReadQword(uintptr) (uint64, error) {
	return 0, fmt.Errorf("acpiexec: memory reads are unsupported")
}
func (unsupportedMemory) WriteByte(uintptr, uint8) error   { return fmt.Errorf("acpiexec: memory writes are unsupported") }
func (unsupportedMemory) WriteWord(uintptr, uint16) error  { return fmt.Errorf("acpiexec: memory writes are unsupported") }
func (unsupportedMemory) WriteDword(uintptr, uint32) error { return fmt.Errorf("acpiexec: memory writes are unsupported") }
func (unsupportedMemory) WriteQword(uintptr, uint64) error { return fmt.Errorf("acpiexec: memory writes are unsupported") }
func (unsupportedMemory) Alloc(length uint32) ([]byte, error) {
	return make([]byte, length), nil
}
func (unsupportedMemory) Calloc(length uint32) ([]byte, error) {
	return make([]byte, length), nil
}

type unsupportedPortIO struct{}

func (unsupportedPortIO) MapPort(uint16, uint16) error   { return nil }
func (unsupportedPortIO) UnmapPort(uint16, uint16) error { return nil }
func (unsupportedPortIO) ReadByte(port uint16) (uint8, error) {
	return 0, fmt.Errorf("acpiexec: port I/O is unsupported (port 0x%x)", port)
}
func (unsupportedPortIO) ReadWord(port uint16) (uint16, error) {
	return 0, fmt.Errorf("acpiexec: port I/O is unsupported (port 0x%x)", port)
}
func (unsupportedPortIO) ReadDword(port uint16) (uint32, error) {
	return 0, fmt.Errorf("acpiexec: port I/O is unsupported (port 0x%x)", port)
}
func (unsupportedPortIO) WriteByte(uint16, uint8) error   { return fmt.Errorf("acpiexec: port I/O is unsupported") }
func (unsupportedPortIO) WriteWord(uint16, uint16) error  { return fmt.Errorf("acpiexec: port I/O is unsupported") }
func (unsupportedPortIO) WriteDword(uint16, uint32) error { return fmt.Errorf("acpiexec: port I/O is unsupported") }

type unsupportedPCI struct{}

func (unsupportedPCI) ReadByte(seg, bus, dev, fn uint8, offset uint16) (uint8, error) {
	return 0, fmt.Errorf("acpiexec: PCI config access is unsupported")
}
func (unsupportedPCI) ReadWord(seg, bus, dev, fn uint8, offset uint16) (uint16, error) {
	return 0, fmt.Errorf("acpiexec: PCI config access is unsupported")
}
func (unsupportedPCI) ReadDword(seg, bus, dev, fn uint8, offset uint16) (uint32, error) {
	return 0, fmt.Errorf("acpiexec: PCI config access is unsupported")
}
func (unsupportedPCI) WriteByte(seg, bus, dev, fn uint8, offset uint16, v uint8) error {
	return fmt.Errorf("acpiexec: PCI config access is unsupported")
}
func (unsupportedPCI) WriteWord(seg, bus, dev, fn uint8, offset uint16, v uint16) error {
	return fmt.Errorf("acpiexec: PCI config access is unsupported")
}
func (unsupportedPCI) WriteDword(seg, bus, dev, fn uint8, offset uint16, v uint32) error {
	return fmt.Errorf("acpiexec: PCI config access is unsupported")
}

type wallClock struct{}

func (wallClock) Ticks100ns() uint64        { return uint64(time.Now().UnixNano() / 100) }
func (wallClock) Stall(microseconds uint32) { time.Sleep(time.Duration(microseconds) * time.Microsecond) }
func (wallClock) Sleep(milliseconds uint32) { time.Sleep(time.Duration(milliseconds) * time.Millisecond) }

type mainThread struct{}

func (mainThread) CurrentThreadID() hal.ThreadID { return 1 }

type stderrLogger struct{}

func (stderrLogger) Logf(level hal.LogLevel, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "["+logLevelName(level)+"] "+format+"\n", args...)
}

func logLevelName(level hal.LogLevel) string {
	switch level {
	case hal.LogDebug:
		return "DEBUG"
	case hal.LogTrace:
		return "TRACE"
	case hal.LogInfo:
		return "INFO"
	case hal.LogWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

type noopFirmware struct{}

func (noopFirmware) Handle(kind hal.FirmwareRequestKind, fatalType uint8, fatalCode uint32, fatalArg uint64) {
}
