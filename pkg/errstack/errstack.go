// Package errstack normalizes heterogeneous error values into one structured
// shape, {"error": <message>, "stack": <cause>}, whose text form is its JSON
// encoding.
//
// Every error surfaced by the status helper goes through this package so
// consumers have a single shape to match on regardless of the underlying
// driver or telemetry error type.
package errstack

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// Undefined is the message used when no usable message can be extracted.
const Undefined = "Undefined"

// Error is a structured error value.
//
// Error() returns the JSON encoding of {error, stack?}; the stack member is
// omitted when no stack or cause was supplied or derivable.
type Error struct {
	msg      string
	stack    any
	hasStack bool

	// kind is a taxonomy sentinel (ErrSync, ...) used by errors.Is.
	kind error
	// causes are the error values the wrapper was built from.
	causes []error
}

type encoded struct {
	Error string `json:"error"`
	Stack any    `json:"stack,omitempty"`
}

// Wrap builds an *Error from any input. It never panics.
//
// Accepted inputs: string, *Error, error, map[string]any / map[string]string
// carrying a "message" or "error" key, nil, and anything fmt can print.
// An optional stack value overrides any stack derived from the input. An
// error stack is stored as {"error": <message>}; an *Error stack is stored
// whole so wrappers nest.
func Wrap(input any, stack ...any) *Error {
	e := &Error{}

	var derived any
	var hasDerived bool

	switch v := input.(type) {
	case nil:
		e.msg = Undefined
	case string:
		e.msg = v
	case *Error:
		if v == nil {
			e.msg = Undefined
			break
		}
		e.msg = v.msg
		derived, hasDerived = v.stack, v.hasStack
		e.causes = append(e.causes, v)
	case error:
		if isNilPointer(v) {
			e.msg = fmt.Sprintf("%T", v)
			break
		}
		e.msg = safeErrorString(v)
		if inner := safeUnwrap(v); inner != nil {
			derived, hasDerived = inner, true
		}
		e.causes = append(e.causes, v)
	case map[string]any:
		e.msg, derived, hasDerived = fromMap(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		e.msg, derived, hasDerived = fromMap(m)
	default:
		e.msg = fmt.Sprint(v)
	}

	if e.msg == "" {
		e.msg = Undefined
	}

	if len(stack) > 0 && stack[0] != nil {
		derived, hasDerived = stack[0], true
		if err, ok := stack[0].(error); ok && !isNilPointer(err) {
			e.causes = append(e.causes, err)
		}
	}
	if hasDerived && derived != nil {
		e.stack = normalizeStack(derived)
		e.hasStack = e.stack != nil
	}

	return e
}

func fromMap(m map[string]any) (string, any, bool) {
	var msg string
	if v, ok := m["message"]; ok {
		msg = stringify(v)
	} else if v, ok := m["error"]; ok {
		msg = stringify(v)
	} else {
		msg = fmt.Sprint(m)
	}
	s, ok := m["stack"]
	return msg, s, ok
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return Undefined
	case string:
		return t
	case error:
		return safeErrorString(t)
	default:
		return fmt.Sprint(t)
	}
}

func normalizeStack(v any) any {
	switch t := v.(type) {
	case *Error:
		if t == nil {
			return nil
		}
		return t
	case error:
		return map[string]string{"error": safeErrorString(t)}
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}

// isNilPointer reports a typed nil behind a non-nil error interface. Such
// values are kept out of causes so errors.Is and errors.As never call into them.
func isNilPointer(err error) bool {
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func safeUnwrap(err error) (inner error) {
	defer func() {
		if r := recover(); r != nil {
			inner = nil
		}
	}()
	return errors.Unwrap(err)
}

// safeErrorString guards against typed-nil errors whose Error method panics.
func safeErrorString(err error) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%T", err)
		}
	}()
	return err.Error()
}

// Message returns the extracted message (the "error" member).
func (e *Error) Message() string {
	return e.msg
}

// Stack returns the stored stack and whether one is present.
func (e *Error) Stack() (any, bool) {
	return e.stack, e.hasStack
}

func (e *Error) MarshalJSON() ([]byte, error) {
	out := encoded{Error: e.msg}
	if e.hasStack {
		out.Stack = e.stack
	}
	return json.Marshal(out)
}

// String returns the JSON encoding of the structured value.
func (e *Error) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return `{"error":` + strconv.Quote(e.msg) + `}`
	}
	return string(b)
}

func (e *Error) Error() string {
	return e.String()
}

// Unwrap exposes the taxonomy kind and the wrapped causes to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, len(e.causes)+1)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	return append(out, e.causes...)
}
