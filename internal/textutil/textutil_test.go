package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Plain Title", "Plain Title"},
		{`AC/DC: Live? <2024> "Remaster" | Part*1`, "ACDC Live 2024 Remaster  Part1"},
		{`  back\slash  `, "backslash"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.expected {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeFileNameDropsControlCharacters(t *testing.T) {
	if got := SanitizeFileName("Line\tOne\x00"); got != "LineOne" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{" - Intro", "Intro"},
		{"Chapter Two - ", "Chapter Two"},
		{": : ", ""},
		{"\ufeffOpening", "Opening"},
		{"\u2014 Finale \u2013", "Finale"},
		{"Cafe\u0301", "Caf\u00e9"},
		{"Q&A: Part 1", "Q&A: Part 1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CleanTitle(tt.input); got != tt.expected {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("éééé", 2); got != "éé..." {
		t.Fatalf("Truncate multibyte = %q", got)
	}
}

func TestClip(t *testing.T) {
	long := ""
	for range 30 {
		long += "abéd"
	}
	got := Clip(long, 100)
	if n := len([]rune(got)); n != 100 {
		t.Fatalf("Clip length = %d runes", n)
	}
	if got := Clip("  short  ", 100); got != "short" {
		t.Fatalf("Clip = %q", got)
	}
}
