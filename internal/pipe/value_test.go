package pipe

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScalarValue(t *testing.T) {
	v := Scalar("entity", 7)

	if v.IsSequence() {
		t.Fatal("scalar reported as sequence")
	}
	if v.Type() != ScalarOf("entity") {
		t.Errorf("Type() = %v, want entity", v.Type())
	}
	n, ok := As[int](v)
	if !ok || n != 7 {
		t.Errorf("As[int] = %d, %v; want 7, true", n, ok)
	}

	outs := v.WithNote("dropped").Collect()
	want := []Outcome{{Value: 7, Note: "dropped"}}
	if diff := cmp.Diff(want, outs); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceOfPreservesOrder(t *testing.T) {
	v := SequenceOf("string", "a", "b", "c")

	if !v.IsSequence() || v.Type() != SeqOf("string") {
		t.Fatalf("unexpected type %v", v.Type())
	}

	var got []any
	for o := range v.Elements() {
		got = append(got, o.Value)
	}
	if diff := cmp.Diff([]any{"a", "b", "c"}, got); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceIsLazyAndNotMemoized(t *testing.T) {
	runs := 0
	v := Sequence("n", func(yield func(Outcome) bool) {
		for i := 0; i < 3; i++ {
			runs++
			if !yield(Outcome{Value: i}) {
				return
			}
		}
	})

	if runs != 0 {
		t.Fatalf("producer ran %d times before consumption", runs)
	}

	for range v.Elements() {
		break
	}
	if runs != 1 {
		t.Errorf("after one element runs = %d, want 1", runs)
	}

	v.Collect()
	v.Collect()
	if runs != 7 {
		t.Errorf("each traversal should re-run the producer: runs = %d, want 7", runs)
	}
}

func TestMaterializeReplaysOutcomes(t *testing.T) {
	runs := 0
	boom := errors.New("boom")
	v := Sequence("n", func(yield func(Outcome) bool) {
		runs++
		if !yield(Outcome{Value: 1}) {
			return
		}
		yield(Outcome{Err: boom})
	})

	m := v.Materialize()
	first := m.Collect()
	second := m.Collect()

	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected two outcomes per traversal, got %d and %d", len(first), len(second))
	}
	if !errors.Is(second[1].Err, boom) {
		t.Errorf("failure not preserved: %v", second[1].Err)
	}
}

func TestTypeString(t *testing.T) {
	if got := ScalarOf("entity").String(); got != "entity" {
		t.Errorf("String() = %q", got)
	}
	if got := SeqOf("entity").String(); got != "seq<entity>" {
		t.Errorf("String() = %q", got)
	}
}
