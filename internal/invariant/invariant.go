// Package invariant provides contract assertions for programming errors.
//
// Violations panic. They are reserved for mistakes in static declarations
// (a variant without a body, an empty label) that must never reach a user;
// anything a caller can trigger at runtime returns an error instead.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition panics when an input contract does not hold.
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Invariant panics when internal state is inconsistent.
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil) or a nil func.
func NotNil(value any, name string) {
	if value == nil {
		fail("PRECONDITION", "%s must not be nil", name)
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		if v.IsNil() {
			fail("PRECONDITION", "%s must not be nil", name)
		}
	}
}

func fail(kind, format string, args ...any) {
	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]any{kind}, args...)...)

	pc := make([]uintptr, 1)
	if runtime.Callers(3, pc) > 0 {
		frame, _ := runtime.CallersFrames(pc).Next()
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}
