package knowledge

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitText(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if got := splitText("", 500); got != nil {
			t.Errorf("splitText(empty) = %v, want nil", got)
		}
		if got := splitText("   \n\n  ", 500); got != nil {
			t.Errorf("splitText(whitespace) = %v, want nil", got)
		}
	})

	t.Run("short text is one chunk", func(t *testing.T) {
		got := splitText("Q: How do refunds work?\nA: Within 7 days.", 500)
		if len(got) != 1 {
			t.Fatalf("len(chunks) = %d, want 1", len(got))
		}
	})

	t.Run("paragraphs pack up to the limit", func(t *testing.T) {
		para := strings.Repeat("a", 200)
		text := para + "\n\n" + para + "\n\n" + para
		got := splitText(text, 500)
		if len(got) != 2 {
			t.Fatalf("len(chunks) = %d, want 2", len(got))
		}
		// First chunk carries two paragraphs, second the remainder.
		if !strings.Contains(got[0], "\n\n") {
			t.Errorf("first chunk should keep the paragraph separator")
		}
	})

	t.Run("chunks never exceed the limit", func(t *testing.T) {
		text := strings.Repeat("paragraph body text. ", 200)
		for _, chunk := range splitText(text, 500) {
			if len(chunk) > 500 {
				t.Errorf("chunk length %d exceeds 500", len(chunk))
			}
		}
	})

	t.Run("no overlap between chunks", func(t *testing.T) {
		var paras []string
		for i := range 10 {
			paras = append(paras, strings.Repeat(string(rune('a'+i)), 180))
		}
		chunks := splitText(strings.Join(paras, "\n\n"), 400)

		total := 0
		for _, c := range chunks {
			for _, p := range strings.Split(c, "\n\n") {
				total += len(p)
			}
		}
		// Overlapping chunks would repeat content and inflate the total.
		if want := 10 * 180; total != want {
			t.Errorf("total chunk content = %d bytes, want %d (no overlap)", total, want)
		}
	})

	t.Run("oversized paragraph splits on rune boundaries", func(t *testing.T) {
		text := strings.Repeat("한국어", 300) // 9 bytes per repetition
		for _, chunk := range splitText(text, 500) {
			if !utf8.ValidString(chunk) {
				t.Errorf("chunk contains a broken rune: %q", chunk[:20])
			}
			if len(chunk) > 500 {
				t.Errorf("chunk length %d exceeds 500", len(chunk))
			}
		}
	})
}
