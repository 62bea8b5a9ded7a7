package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"acpicore/device/acpi/aml"
	"acpicore/device/acpi/table"
	"acpicore/kernel/hal"
	acpisync "acpicore/kernel/sync"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "acpiexec",
		Short: "Load an ACPI table image and evaluate an AML method against it",
	}

	var dsdtPath string
	var methodName string

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Load a DSDT image and evaluate a named method",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(dsdtPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", dsdtPath, err)
			}

			resolver := table.NewStaticResolver()
			if _, err := resolver.Install(raw); err != nil {
				return fmt.Errorf("install table: %w", err)
			}

			vm := aml.NewVM(newHost(), resolver, aml.Config{})
			if err := vm.Init(); err != nil {
				return fmt.Errorf("init: %s", err.StackTrace())
			}

			result, evalErr := vm.Eval(methodName)
			if evalErr != nil {
				return fmt.Errorf("eval %s: %s", methodName, evalErr.StackTrace())
			}

			fmt.Printf("%s -> %v\n", methodName, result)
			return nil
		},
	}
	evalCmd.Flags().StringVar(&dsdtPath, "dsdt", "", "path to a raw DSDT table image")
	evalCmd.Flags().StringVar(&methodName, "method", "\\_OSI", "absolute name of the method/object to evaluate")
	evalCmd.MarkFlagRequired("dsdt")

	rootCmd.AddCommand(evalCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newHost builds a minimal in-process hal.Host backed by Go's own runtime
// rather than any real firmware: acpiexec exists to exercise the
// interpreter against captured table images, not to run on bare metal.
func newHost() hal.Host {
	return &execHost{
		sync:    acpisync.Host{},
		logger:  stderrLogger{},
		clock:   wallClock{},
		threads: mainThread{},
	}
}

type execHost struct {
	sync    acpisync.Host
	logger  stderrLogger
	clock   wallClock
	threads mainThread
}

func (h *execHost) Memory() hal.Memory       { return unsupportedMemory{} }
func (h *execHost) PortIO() hal.PortIO       { return unsupportedPortIO{} }
func (h *execHost) PCIConfig() hal.PCIConfig { return unsupportedPCI{} }
func (h *execHost) Clock() hal.Clock         { return h.clock }
func (h *execHost) Sync() hal.Sync           { return h.sync }
func (h *execHost) Threads() hal.Threads     { return h.threads }
func (h *execHost) Work() hal.WorkQueue      { return nil }
func (h *execHost) Logger() hal.Logger       { return h.logger }
func (h *execHost) Firmware() hal.Firmware   { return noopFirmware{} }
