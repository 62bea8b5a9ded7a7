package aml

import "fmt"

// ErrorKind classifies interpreter errors per spec.md §7's error taxonomy.
type ErrorKind uint8

// The error kinds listed in spec.md §7.
const (
	ErrOutOfMemory ErrorKind = iota
	ErrOutOfBounds
	ErrBadBytecode
	ErrIncompatibleObjectType
	ErrUndefinedReference
	ErrObjectAlreadyExists
	ErrSyncLevelTooHigh
	ErrLoopTimeout
	ErrCallStackDepthLimit
	ErrHardwareTimeout
	ErrTypeMismatch
	ErrMappingFailed
)

var errKindNames = [...]string{
	"out-of-memory",
	"out-of-bounds",
	"bad-bytecode",
	"incompatible-object-type",
	"undefined-reference",
	"object-already-exists",
	"sync-level-too-high",
	"loop-timeout",
	"call-stack-depth-limit",
	"hardware-timeout",
	"type-mismatch",
	"mapping-failed",
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	if int(k) < len(errKindNames) {
		return errKindNames[k]
	}
	return "unknown"
}

// frame captures one call-frame's worth of trace information, recorded as
// an error unwinds through method invocations (mirrors the teacher's own
// aml.Error.trace entries).
type frame struct {
	table  string
	method string
	pc     uint32
	opName string
}

// Error is the error type returned by every opcode handler and parse
// micro-op. A non-OK status short-circuits the main loop, releases the
// current frame, and propagates through each stacked frame until the
// top-level evaluator returns it (spec.md §7's propagation policy).
type Error struct {
	Kind    ErrorKind
	Message string

	trace []frame
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// StackTrace formats the recorded call trace, most-recent frame first.
func (e *Error) StackTrace() string {
	if len(e.trace) == 0 {
		return "no stack trace available"
	}

	out := "stack trace:\n"
	for i := len(e.trace) - 1; i >= 0; i-- {
		f := e.trace[i]
		out += fmt.Sprintf("  [%s!%s+0x%x] %s\n", f.table, f.method, f.pc, f.opName)
	}
	return out
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// withFrame returns a copy of e with one more trace frame appended. It never
// mutates e itself: e may be one of the memoized sentinels below, shared
// across call sites and, under spec.md §5's concurrent method execution,
// across goroutines -- appending in place would grow a single shared trace
// forever and cross-contaminate unrelated errors.
func (e *Error) withFrame(table, method string, pc uint32, opName string) *Error {
	cp := *e
	cp.trace = append(append([]frame(nil), e.trace...), frame{table: table, method: method, pc: pc, opName: opName})
	return &cp
}

// Sentinel errors reused across the interpreter, following the teacher's
// convention of memoizing common error values as package-level vars rather
// than allocating a fresh one at every call site. Since withFrame never
// mutates its receiver, recurrences of the same sentinel at different call
// sites never share trace state.
var (
	errOutOfBounds            = newError(ErrOutOfBounds, "code offset past end of method")
	errDivideByZero           = newError(ErrBadBytecode, "division by zero")
	errNilStoreOperand        = newError(ErrIncompatibleObjectType, "store: source or destination operand is nil")
	errInvalidComparisonType  = newError(ErrIncompatibleObjectType, "comparison operands must be Integer, String, or Buffer")
	errCallStackDepthExceeded = newError(ErrCallStackDepthLimit, "maximum call stack depth exceeded")
	errArgCountMismatch       = newError(ErrBadBytecode, "method invoked with the wrong number of arguments")
	errInvalidNameString      = newError(ErrBadBytecode, "invalid name string")
	errRootAboveParent        = newError(ErrBadBytecode, "name string walks above the root scope")
)
