package chunker

import (
	"regexp"
	"strings"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// Chunk splits content into ordered chunk texts. Paragraphs (blank-line
// separated) accumulate into a buffer up to chunkSize; closing a chunk seeds
// the next one with the tail words of the closed chunk so context survives the
// boundary. A paragraph that alone exceeds chunkSize is split on sentence
// terminators instead, with the same seeding rule.
//
// The overlap budget is given in characters but converted to words as
// overlap/10. That conversion is a long-standing ingestion heuristic; chunk
// identity in the index depends on it, so it stays as is.
func Chunk(content string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	overlapWords := overlap / 10

	paragraphs := paragraphSplit.Split(content, -1)
	var chunks []string
	var buf strings.Builder

	flush := func() {
		closed := strings.TrimSpace(buf.String())
		buf.Reset()
		if closed == "" {
			return
		}
		chunks = append(chunks, closed)
		if seed := tailWords(closed, overlapWords); seed != "" {
			buf.WriteString(seed)
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > chunkSize {
			flush()
			// drop the pending overlap seed: the oversized paragraph is
			// split independently of the accumulator
			buf.Reset()
			chunks = append(chunks, splitBySentence(para, chunkSize, overlapWords)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(para)+2 > chunkSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
	}
	if tail := strings.TrimSpace(buf.String()); tail != "" && tail != tailWords(lastChunk(chunks), overlapWords) {
		chunks = append(chunks, tail)
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func splitBySentence(text string, chunkSize, overlapWords int) []string {
	sentences := SplitSentences(text)
	var chunks []string
	var buf strings.Builder
	for _, sentence := range sentences {
		if buf.Len() > 0 && buf.Len()+len(sentence)+1 > chunkSize {
			closed := strings.TrimSpace(buf.String())
			buf.Reset()
			if closed != "" {
				chunks = append(chunks, closed)
				if seed := tailWords(closed, overlapWords); seed != "" {
					buf.WriteString(seed)
				}
			}
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(sentence)
	}
	if tail := strings.TrimSpace(buf.String()); tail != "" && tail != tailWords(lastChunk(chunks), overlapWords) {
		chunks = append(chunks, tail)
	}
	return chunks
}

// SplitSentences splits text on sentence terminators, keeping the terminator
// attached to its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(string(runes[start : i+1]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return sentences
}

func tailWords(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func lastChunk(chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}
	return chunks[len(chunks)-1]
}
