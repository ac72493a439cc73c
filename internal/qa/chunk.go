package qa

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the target chunk length in bytes.
const DefaultChunkSize = 1500

// Chunk splits text into pieces of at most size bytes, packing whole
// paragraphs together. Paragraphs longer than size are cut on line or word
// boundaries where possible.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, para := range splitParagraphs(text) {
		for _, piece := range splitLong(para, size) {
			if cur.Len() > 0 && cur.Len()+2+len(piece) > size {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteString("\n\n")
			}
			cur.WriteString(piece)
		}
	}
	flush()
	return chunks
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitLong(para string, size int) []string {
	var out []string
	for len(para) > size {
		cut := strings.LastIndexAny(para[:size], "\n ")
		if cut <= 0 {
			cut = size
			for cut > 0 && !utf8.RuneStart(para[cut]) {
				cut--
			}
		}
		out = append(out, strings.TrimSpace(para[:cut]))
		para = strings.TrimSpace(para[cut:])
	}
	if para != "" {
		out = append(out, para)
	}
	return out
}
