package dispatch

import "testing"

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in           string
		group, label string
		wantErr      bool
	}{
		{in: "spawn:at", group: "spawn", label: "at"},
		{in: "spawn attached", group: "spawn", label: "attached"},
		{in: "  spawn:in ", group: "spawn", label: "in"},
		{in: "spawn", wantErr: true},
		{in: ":at", wantErr: true},
		{in: "spawn:", wantErr: true},
		{in: "spawn:at:now", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			group, label, err := SplitCommand(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitCommand(%q) = %q, %q; want error", tt.in, group, label)
				}
				return
			}
			if err != nil || group != tt.group || label != tt.label {
				t.Errorf("SplitCommand(%q) = %q, %q, %v", tt.in, group, label, err)
			}
		})
	}
}
