package aml

// osi.go implements the predefined \_OSI control method: a one-argument
// interface-query the platform calls to ask "does the running OS support
// interface X", per spec.md §9's note that this must be a real
// implementation rather than left Uninitialized or firmware will take
// compatibility workaround paths meant for unsupported operating systems.

// recognizedInterfaces lists the "Windows 20NN" strings every mainstream
// OS claims support for (AML commonly gates Windows-only workarounds
// behind version strings it doesn't actually need), plus the generic
// Module Device/3.0 Thermal Model/Processor Aggregator feature strings
// ACPI 3.0+ defines independent of any OS name.
var recognizedInterfaces = map[string]bool{
	"Windows 2000":               true,
	"Windows 2001":               true,
	"Windows 2001 SP1":           true,
	"Windows 2001.1":             true,
	"Windows 2001.1 SP1":         true,
	"Windows 2006":               true,
	"Windows 2006 SP1":           true,
	"Windows 2006.1":             true,
	"Windows 2009":               true,
	"Windows 2012":               true,
	"Windows 2013":               true,
	"Windows 2015":               true,
	"Windows 2016":               true,
	"Windows 2017":               true,
	"Windows 2017.2":             true,
	"Windows 2018":               true,
	"Windows 2018.2":             true,
	"Windows 2019":               true,
	"Windows 2020":               true,
	"Extended Address Space Descriptor": true,
	"Module Device":              true,
	"Processor Device":           true,
	"3.0 Thermal Model":          true,
	"3.0 _SCP Extensions":        true,
	"Processor Aggregator Device": true,
}

func osiNative(vm *VM, args []*Object) (*Object, *Error) {
	query, err := vm.toStringObj(args[0])
	if err != nil {
		return nil, err
	}
	if recognizedInterfaces[query.Str] {
		return vm.arena.NewInteger(^uint64(0)), nil
	}
	return vm.arena.NewInteger(0), nil
}
