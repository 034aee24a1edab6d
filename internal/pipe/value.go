// Package pipe defines the values that flow between pipeline stages.
//
// A Value is either a single item (Scalar) or an ordered, lazily produced
// sequence of items (Sequence). Both carry the element Tag, which is the only
// thing the dispatcher looks at when choosing an implementation.
package pipe

import (
	"fmt"
	"iter"
)

// Tag names the element type of a pipe value (e.g., "coordinates", "entity").
type Tag string

// Type is the declared shape of a pipe input: T or "sequence of T".
type Type struct {
	Elem Tag
	Seq  bool
}

// ScalarOf returns the scalar type for t.
func ScalarOf(t Tag) Type { return Type{Elem: t} }

// SeqOf returns the sequence type for t.
func SeqOf(t Tag) Type { return Type{Elem: t, Seq: true} }

func (t Type) String() string {
	if t.Seq {
		return "seq<" + string(t.Elem) + ">"
	}
	return string(t.Elem)
}

// Outcome is the result of producing one sequence element.
// Note qualifies a successful element (partial success); it is empty otherwise.
type Outcome struct {
	Value any
	Err   error
	Note  string
}

// OK reports whether the element was produced without error.
func (o Outcome) OK() bool { return o.Err == nil }

// Value is a tagged value flowing between pipeline stages.
type Value struct {
	typ    Type
	scalar any
	note   string
	seq    iter.Seq[Outcome]
}

// Scalar wraps a single item.
func Scalar(t Tag, v any) Value {
	return Value{typ: ScalarOf(t), scalar: v}
}

// Sequence wraps a lazily produced sequence of t.
func Sequence(t Tag, seq iter.Seq[Outcome]) Value {
	if seq == nil {
		seq = func(func(Outcome) bool) {}
	}
	return Value{typ: SeqOf(t), seq: seq}
}

// SequenceOf builds a sequence from already materialized items.
func SequenceOf[T any](t Tag, items ...T) Value {
	return Sequence(t, func(yield func(Outcome) bool) {
		for _, item := range items {
			if !yield(Outcome{Value: item}) {
				return
			}
		}
	})
}

// Outcomes builds a sequence from already collected outcomes, failures included.
func Outcomes(t Tag, outs []Outcome) Value {
	return Sequence(t, func(yield func(Outcome) bool) {
		for _, o := range outs {
			if !yield(o) {
				return
			}
		}
	})
}

// WithNote returns a copy of a scalar value carrying a success qualifier.
func (v Value) WithNote(note string) Value {
	v.note = note
	return v
}

// Type returns the value's declared type.
func (v Value) Type() Type { return v.typ }

// Tag returns the element tag.
func (v Value) Tag() Tag { return v.typ.Elem }

// IsSequence reports whether the value is a sequence.
func (v Value) IsSequence() bool { return v.typ.Seq }

// IsZero reports whether the value was never set.
func (v Value) IsZero() bool { return v.typ.Elem == "" }

// Item returns the scalar payload. It is nil for sequences.
func (v Value) Item() any { return v.scalar }

// Note returns the success qualifier of a scalar value.
func (v Value) Note() string { return v.note }

// Elements returns the lazy element stream of a sequence.
//
// The stream is not memoized: every traversal re-runs the stage that produced
// it. Use Collect when the result is needed more than once.
func (v Value) Elements() iter.Seq[Outcome] {
	if !v.typ.Seq {
		return func(yield func(Outcome) bool) {
			yield(Outcome{Value: v.scalar, Note: v.note})
		}
	}
	return v.seq
}

// Collect traverses the value once and returns every outcome in order.
// A scalar yields a single outcome.
func (v Value) Collect() []Outcome {
	var outs []Outcome
	for o := range v.Elements() {
		outs = append(outs, o)
	}
	return outs
}

// Materialize traverses a sequence once and returns an equivalent sequence that
// replays the collected outcomes instead of re-running the producer.
func (v Value) Materialize() Value {
	if !v.typ.Seq {
		return v
	}
	return Outcomes(v.typ.Elem, v.Collect())
}

func (v Value) String() string {
	if v.typ.Seq {
		return fmt.Sprintf("Sequence(%s)", v.typ.Elem)
	}
	return fmt.Sprintf("Scalar(%s, %v)", v.typ.Elem, v.scalar)
}

// As extracts a typed scalar payload.
func As[T any](v Value) (T, bool) {
	item, ok := v.scalar.(T)
	return item, ok
}
