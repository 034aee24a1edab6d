package ui

import (
	"strings"
	"testing"
)

func TestTableMaxWidthClipsLastColumn(t *testing.T) {
	tbl := NewTable(2)
	tbl.AddRow("0", "dropped: e5/storage is full")
	tbl.SetMaxWidth(10)

	if got, want := tbl.String(), "0  dropped\n"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	tbl.SetMaxWidth(2)
	if got, want := tbl.String(), "0  dropped: e5/storage is full\n"; got != want {
		t.Errorf("too narrow should not clip, got %q", got)
	}
}

func TestEmptyTable(t *testing.T) {
	if got := NewTable(2).String(); got != "" {
		t.Errorf("empty table = %q", got)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "Plain text.", want: "Plain text."},
		{in: "Has **no** physics\nbody.\n\nSecond paragraph.", want: "Has no physics body."},
		{in: "- list first\n\nThen `code` here.", want: "Then code here."},
		{in: "# Heading\n\nBody", want: "Heading"},
	}
	for _, tt := range tests {
		if got := Summary(tt.in); got != tt.want {
			t.Errorf("Summary(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderMarkdownKeepsText(t *testing.T) {
	out, err := RenderMarkdown("Has **no** physics body.", 40)
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(out, "physics") || !strings.HasSuffix(out, "\n") {
		t.Errorf("rendered = %q", out)
	}
}
