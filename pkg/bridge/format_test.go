// Copyright 2025-2026 Aiku AI

package bridge

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFormatMeshToIRC(t *testing.T) {
	if got := FormatMeshToIRC("Alice", "hello"); got != "[mesh-Alice]: hello" {
		t.Errorf("FormatMeshToIRC: got %q, want %q", got, "[mesh-Alice]: hello")
	}
}

func TestFormatIRCToMesh(t *testing.T) {
	if got := FormatIRCToMesh("bob", "hi"); got != "[IRC-bob] hi" {
		t.Errorf("FormatIRCToMesh: got %q, want %q", got, "[IRC-bob] hi")
	}
}

func TestTruncateBytes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello", 3, "hel"},
		{"zero", "hello", 0, ""},
		{"negative", "hello", -1, ""},
		{"empty", "", 5, ""},
		{"multibyte boundary", "aéz", 2, "a"},
		{"multibyte fits", "aéz", 3, "aé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateBytes(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("TruncateBytes(%q, %d): got %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateBytesNeverSplitsRunes(t *testing.T) {
	s := strings.Repeat("héllo wörld ", 50)
	for max := 0; max < 40; max++ {
		got := TruncateBytes(s, max)
		if len(got) > max {
			t.Fatalf("max %d: result is %d bytes", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("max %d: result %q is not valid UTF-8", max, got)
		}
	}
}
