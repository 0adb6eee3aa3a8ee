package format

import "testing"

func TestParseMarkdownBold(t *testing.T) {
	result := ParseMarkdown("**Напоминание**\n\nпозвонить маме")

	if result.Text != "Напоминание\n\nпозвонить маме" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(result.Entities))
	}
	e := result.Entities[0]
	if e.Type != "bold" || e.Offset != 0 || e.Length != UTF16Len("Напоминание") {
		t.Fatalf("unexpected entity: %+v", e)
	}
}

func TestParseMarkdownCodeAfterEmoji(t *testing.T) {
	result := ParseMarkdown("⏰ `15:04` пора")

	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(result.Entities))
	}
	e := result.Entities[0]
	if e.Type != "code" {
		t.Fatalf("expected code entity, got %s", e.Type)
	}
	// The clock symbol is in the BMP and counts as one UTF-16 unit
	if e.Offset != 2 {
		t.Fatalf("expected offset 2, got %d", e.Offset)
	}
	if e.Length != 5 {
		t.Fatalf("expected length 5, got %d", e.Length)
	}
}

func TestParseMarkdownMixedSpans(t *testing.T) {
	result := ParseMarkdown("`код` и **жирный**")

	if result.Text != "код и жирный" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(result.Entities))
	}
	// Offsets are measured against the cleaned text, not the raw markup.
	code := result.Entities[0]
	if code.Type != "code" || code.Offset != 0 || code.Length != 3 {
		t.Fatalf("unexpected code entity: %+v", code)
	}
	bold := result.Entities[1]
	if bold.Type != "bold" || bold.Offset != 6 || bold.Length != 6 {
		t.Fatalf("unexpected bold entity: %+v", bold)
	}
}

func TestParseMarkdownPlainTextUntouched(t *testing.T) {
	result := ParseMarkdown("обычный текст без разметки")
	if result.Text != "обычный текст без разметки" {
		t.Fatalf("plain text must pass through unchanged, got %q", result.Text)
	}
	if len(result.Entities) != 0 {
		t.Fatalf("expected no entities, got %d", len(result.Entities))
	}
}

func TestUTF16Len(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"abc", 3},
		{"мама", 4},
		{"⏰", 1},  // BMP symbol
		{"💤", 2}, // surrogate pair
	}
	for _, tc := range cases {
		if got := UTF16Len(tc.in); got != tc.want {
			t.Errorf("UTF16Len(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
