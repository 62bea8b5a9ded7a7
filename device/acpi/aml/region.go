package aml

import "acpicore/kernel/hal"

// The built-in address spaces (System Memory, System I/O) are serviced
// directly against hal.Memory/hal.PortIO rather than through a
// host-registered RegionHandler, per spec.md §6: every other handler has
// to be found memory first, but these two are universal enough that the
// interpreter core owns them outright.

func (vm *VM) readSysMemory(phys uint64, width hal.AccessWidth) (uint64, *Error) {
	mem := vm.host.Memory()
	virt, err := mem.MapPhysical(uintptr(phys), uint32(width))
	if err != nil {
		return 0, newError(ErrMappingFailed, "map physical 0x%x: %v", phys, err)
	}
	defer mem.Unmap(virt, uint32(width))

	switch width {
	case hal.Width8:
		v, err := mem.ReadByte(virt)
		return uint64(v), wrapHalErr(err)
	case hal.Width16:
		v, err := mem.ReadWord(virt)
		return uint64(v), wrapHalErr(err)
	case hal.Width32:
		v, err := mem.ReadDword(virt)
		return uint64(v), wrapHalErr(err)
	default:
		v, err := mem.ReadQword(virt)
		return v, wrapHalErr(err)
	}
}

func (vm *VM) writeSysMemory(phys uint64, width hal.AccessWidth, value uint64) *Error {
	mem := vm.host.Memory()
	virt, err := mem.MapPhysical(uintptr(phys), uint32(width))
	if err != nil {
		return newError(ErrMappingFailed, "map physical 0x%x: %v", phys, err)
	}
	defer mem.Unmap(virt, uint32(width))

	switch width {
	case hal.Width8:
		return wrapHalErr(mem.WriteByte(virt, byte(value)))
	case hal.Width16:
		return wrapHalErr(mem.WriteWord(virt, uint16(value)))
	case hal.Width32:
		return wrapHalErr(mem.WriteDword(virt, uint32(value)))
	default:
		return wrapHalErr(mem.WriteQword(virt, value))
	}
}

func (vm *VM) readSysIO(port uint64, width hal.AccessWidth) (uint64, *Error) {
	io := vm.host.PortIO()
	switch width {
	case hal.Width8:
		v, err := io.ReadByte(uint16(port))
		return uint64(v), wrapHalErr(err)
	case hal.Width16:
		v, err := io.ReadWord(uint16(port))
		return uint64(v), wrapHalErr(err)
	default:
		v, err := io.ReadDword(uint16(port))
		return uint64(v), wrapHalErr(err)
	}
}

func (vm *VM) writeSysIO(port uint64, width hal.AccessWidth, value uint64) *Error {
	io := vm.host.PortIO()
	switch width {
	case hal.Width8:
		return wrapHalErr(io.WriteByte(uint16(port), byte(value)))
	case hal.Width16:
		return wrapHalErr(io.WriteWord(uint16(port), uint16(value)))
	default:
		return wrapHalErr(io.WriteDword(uint16(port), uint32(value)))
	}
}

func wrapHalErr(err error) *Error {
	if err == nil {
		return nil
	}
	return newError(ErrMappingFailed, "%v", err)
}
