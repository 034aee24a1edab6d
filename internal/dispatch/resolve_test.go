package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/shed/internal/pipe"
)

func TestResolve(t *testing.T) {
	scalar := echo(pipe.ScalarOf("entity"))
	scalar.Doc = "scalar"
	explicit := Lift(scalar)
	explicit.Doc = "explicit"

	tests := []struct {
		name          string
		in            pipe.Value
		variants      []Variant
		wantDoc       string
		wantInput     pipe.Type
		wantSynthesis bool
	}{
		{
			name:      "scalar exact match",
			in:        pipe.Scalar("entity", 1),
			variants:  []Variant{explicit, scalar},
			wantDoc:   "scalar",
			wantInput: pipe.ScalarOf("entity"),
		},
		{
			name:      "explicit sequence wins over lifting",
			in:        pipe.SequenceOf("entity", 1, 2),
			variants:  []Variant{scalar, explicit},
			wantDoc:   "explicit",
			wantInput: pipe.SeqOf("entity"),
		},
		{
			name:          "sequence lifted from scalar",
			in:            pipe.SequenceOf("entity", 1, 2),
			variants:      []Variant{scalar},
			wantDoc:       "scalar",
			wantInput:     pipe.SeqOf("entity"),
			wantSynthesis: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := Resolve("on", tt.in, tt.variants)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDoc, call.Variant.Doc)
			assert.Equal(t, tt.wantInput, call.Variant.Input)
			assert.Equal(t, tt.wantSynthesis, call.Synthesized)
			assert.Equal(t, "on", call.Label)
		})
	}
}

func TestResolveNoMatch(t *testing.T) {
	tests := []struct {
		name     string
		in       pipe.Value
		variants []Variant
	}{
		{
			name:     "no variants",
			in:       pipe.Scalar("entity", 1),
			variants: nil,
		},
		{
			name:     "wrong element type",
			in:       pipe.Scalar("coordinates", 1),
			variants: []Variant{echo(pipe.ScalarOf("entity"))},
		},
		{
			name:     "scalar is never wrapped into a sequence",
			in:       pipe.Scalar("entity", 1),
			variants: []Variant{echo(pipe.SeqOf("entity"))},
		},
		{
			// A sequence of entity lists carries its own element tag.
			name:     "lifting is one level deep",
			in:       pipe.SequenceOf(pipe.Tag("[]entity"), []int{1}, []int{2}),
			variants: []Variant{echo(pipe.ScalarOf("entity"))},
		},
		{
			name:     "zero value",
			in:       pipe.Value{},
			variants: []Variant{echo(pipe.ScalarOf("entity"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve("on", tt.in, tt.variants)
			var nm *NoMatchingImplementationError
			require.ErrorAs(t, err, &nm)
			assert.Equal(t, tt.in.Type(), nm.Input)
			assert.Len(t, nm.Accepts, len(tt.variants))
		})
	}
}

func TestResolveAmbiguous(t *testing.T) {
	// A variant set that bypassed the registry's duplicate check.
	dupScalar := []Variant{echo(pipe.ScalarOf("entity")), echo(pipe.ScalarOf("entity"))}

	_, err := Resolve("on", pipe.Scalar("entity", 1), dupScalar)
	var amb *AmbiguousOverloadError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, 2, amb.Candidates)

	_, err = Resolve("on", pipe.SequenceOf("entity", 1), dupScalar)
	require.ErrorAs(t, err, &amb)

	dupSeq := []Variant{echo(pipe.SeqOf("entity")), echo(pipe.SeqOf("entity"))}
	_, err = Resolve("on", pipe.SequenceOf("entity", 1), dupSeq)
	require.ErrorAs(t, err, &amb)
}
