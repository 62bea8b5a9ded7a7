package aml

// EvaluateSleepMethod evaluates one of the predefined sleep-transition
// control methods (_PTS, _WAK, _BFS, _GTS) against the root namespace,
// mirroring original_source/source/sleep.c's eval_sleep_helper: these
// methods are optional, so a namespace that never defines one is not an
// error, just a no-op. The sleep-state sequencer itself (picking a sleep
// state, programming PM1 control, waiting for wake) is host-side and out
// of scope for this module; this is only the interpreter-facing entry
// point that sequencer calls into at each step.
func (vm *VM) EvaluateSleepMethod(name string, args ...*Object) *Error {
	_, err := vm.Eval(`\`+name, args...)
	if err == nil {
		return nil
	}
	if err.Kind == ErrUndefinedReference {
		return nil
	}
	return err
}
