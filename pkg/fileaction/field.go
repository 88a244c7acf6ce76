package fileaction

import (
	"github.com/arthur-debert/rigup/pkg/types"
)

// Field is a declarative spec value: either a literal string or a deferred
// computation evaluated against the executing context at apply/validate
// time. The zero Field is unset.
type Field struct {
	value string
	set   bool
	fn    func(types.Call) (string, error)
}

// Lit builds a literal field
func Lit(value string) Field {
	return Field{value: value, set: true}
}

// Deferred builds a field computed lazily against the active context
func Deferred(fn func(types.Call) (string, error)) Field {
	return Field{set: true, fn: fn}
}

// IsSet reports whether the field was supplied at all
func (f Field) IsSet() bool { return f.set }

// Literal returns the literal value; ok=false when the field is unset or
// deferred
func (f Field) Literal() (string, bool) {
	if !f.set || f.fn != nil {
		return "", false
	}
	return f.value, true
}

// Resolve evaluates the field against the context. An unset field resolves
// to the empty string.
func (f Field) Resolve(call types.Call) (string, error) {
	if !f.set {
		return "", nil
	}
	if f.fn != nil {
		return f.fn(call)
	}
	return f.value, nil
}
