package store

import (
	"testing"
	"unicode/utf8"
)

func TestLedgerText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{name: "empty is null", in: "", want: nil},
		{name: "json kept", in: `{"ok":true}`, want: ptr(`{"ok":true}`)},
		{name: "utf8 kept", in: "café", want: ptr("café")},
		{name: "nul stripped", in: "a\x00b", want: ptr("ab")},
		{name: "png header", in: "\x89PNG\r\n\x1a\n\x00\x00", want: ptr("\uFFFDPNG\r\n\x1a\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledgerText(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %q", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %q, got nil", *tt.want)
			}
			if *got != *tt.want {
				t.Errorf("ledgerText(%q) = %q, want %q", tt.in, *got, *tt.want)
			}
			if !utf8.ValidString(*got) {
				t.Errorf("result %q is not valid UTF-8", *got)
			}
		})
	}
}

func ptr(s string) *string { return &s }
