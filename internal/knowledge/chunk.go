package knowledge

import "strings"

// splitText splits a document into chunks of roughly chunkSize characters
// with no overlap. Paragraph boundaries (blank lines) are preferred split
// points; a single paragraph longer than chunkSize is split on rune
// boundaries so no chunk ever cuts a multi-byte character.
func splitText(text string, chunkSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Oversized paragraph: flush what we have and hard-split it.
		if len(para) > chunkSize {
			flush()
			for _, piece := range splitRunes(para, chunkSize) {
				chunks = append(chunks, piece)
			}
			continue
		}

		// +2 accounts for the paragraph separator we re-insert.
		if current.Len() > 0 && current.Len()+len(para)+2 > chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

// splitRunes hard-splits s into pieces of at most chunkSize bytes without
// breaking UTF-8 sequences.
func splitRunes(s string, chunkSize int) []string {
	var pieces []string
	var current strings.Builder

	for _, r := range s {
		if current.Len()+len(string(r)) > chunkSize {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteRune(r)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}
