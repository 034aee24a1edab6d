package suggest

import "testing"

func TestClosest(t *testing.T) {
	labels := []string{"at", "on", "in", "attached"}

	tests := []struct {
		target string
		want   string
	}{
		{target: "atach", want: "attached"},
		{target: "ATTACHED", want: "attached"},
		{target: "onn", want: "on"},
		{target: "atatched", want: "attached"},
		{target: "zzz", want: ""},
		{target: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := Closest(tt.target, labels); got != tt.want {
				t.Errorf("Closest(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestClosestNoCandidates(t *testing.T) {
	if got := Closest("crate", nil); got != "" {
		t.Errorf("Closest with no candidates = %q", got)
	}
}
