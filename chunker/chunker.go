// Package chunker splits raw text into size-bounded chunks for embedding.
//
// Chunks are produced by greedily packing sentence units split on . ! ?
// boundaries. A sentence that alone exceeds the target size falls back to
// whitespace-word packing; a single word larger than the target is
// hard-truncated with a marker. The policy is deterministic: identical
// input and size always yield identical chunk boundaries, which keeps
// re-ingestion idempotent.
package chunker

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// DefaultSize is the default target chunk length in bytes.
const DefaultSize = 800

// TruncationMarker is appended when a single word is hard-truncated.
const TruncationMarker = "..."

// Splitter packs sentences into chunks no longer than Size, except when a
// single atomic unit is itself larger.
type Splitter struct {
	Size int
}

// New creates a Splitter with the given target size.
func New(size int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	return &Splitter{Size: size}
}

// Chunks returns a lazy, restartable sequence of chunks in input order.
// Empty or whitespace-only input yields nothing.
func (s *Splitter) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		cur := ""
		flush := func() bool {
			if cur == "" {
				return true
			}
			out := cur
			cur = ""
			return yield(out)
		}

		for _, sent := range sentences(text) {
			if len(sent) > s.Size {
				// Sentence alone exceeds the target: fall back to
				// word packing within a fresh chunk.
				if !flush() {
					return
				}
				for _, word := range strings.Fields(sent) {
					if len(word) > s.Size {
						if !flush() {
							return
						}
						if !yield(truncate(word, s.Size)) {
							return
						}
						continue
					}
					if !s.pack(&cur, word, yield) {
						return
					}
				}
				if !flush() {
					return
				}
				continue
			}
			if !s.pack(&cur, sent, yield) {
				return
			}
		}
		flush()
	}
}

// Split collects Chunks into a slice.
func (s *Splitter) Split(text string) []string {
	var out []string
	for chunk := range s.Chunks(text) {
		out = append(out, chunk)
	}
	return out
}

// pack appends unit to the current chunk, yielding the chunk first when
// the unit would not fit. Reports false when the consumer stopped.
func (s *Splitter) pack(cur *string, unit string, yield func(string) bool) bool {
	switch {
	case *cur == "":
		*cur = unit
	case len(*cur)+1+len(unit) <= s.Size:
		*cur += " " + unit
	default:
		out := *cur
		*cur = unit
		if !yield(out) {
			return false
		}
	}
	return true
}

// sentences splits text on sentence terminators, keeping each terminator
// run with its sentence. Text without a trailing terminator contributes a
// final sentence.
func sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminator(text[i]) {
			continue
		}
		j := i
		for j+1 < len(text) && isTerminator(text[j+1]) {
			j++
		}
		if sent := strings.TrimSpace(text[start : j+1]); sent != "" {
			out = append(out, sent)
		}
		start = j + 1
		i = j
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// truncate cuts s to max bytes at a rune boundary and appends the marker.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - len(TruncationMarker)
	if cut < 1 {
		cut = 1
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMarker
}
