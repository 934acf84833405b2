package chunker

import (
	"strings"
	"unicode"
)

// Options control how document text is cut into retrieval chunks.
// Separators are ordered most semantically significant first; the splitter
// only falls down the list when a higher separator cannot produce pieces
// that fit ChunkSize.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
	Separators   []string
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:    500,
		ChunkOverlap: 50,
		MinChunkSize: 100,
		Separators:   []string{"\n\n", "\n", ". ", ", ", " "},
	}
}

// Piece is one chunk of the source text. Content is always the exact
// substring text[Start:End]; the first OverlapLen characters are shared with
// the previous piece, so concatenating Content[OverlapLen:] over all pieces
// reconstructs the source exactly.
type Piece struct {
	Content    string
	Start      int
	End        int
	OverlapLen int
}

// ChunkText splits text into bounded, overlapping pieces. Empty or
// whitespace-only input yields zero pieces.
func ChunkText(text string, opts Options) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if opts.ChunkSize <= 0 {
		opts = DefaultOptions()
	}

	// the overlap prefix counts toward a chunk's size, so cores are budgeted
	// below ChunkSize to keep final content within bound
	coreLimit := opts.ChunkSize
	if opts.ChunkOverlap > 0 && opts.ChunkOverlap < coreLimit {
		coreLimit -= opts.ChunkOverlap
	}

	cores := splitRecursive(text, 0, coreLimit, opts.Separators)
	cores = packCores(cores, coreLimit)
	cores = mergeSmall(cores, opts, coreLimit)

	pieces := make([]Piece, 0, len(cores))
	for i, c := range cores {
		overlap := 0
		start := c.start
		if i > 0 && opts.ChunkOverlap > 0 {
			start = overlapStart(text, cores[i-1], c.start, opts.ChunkOverlap)
			overlap = c.start - start
		}
		pieces = append(pieces, Piece{
			Content:    text[start:c.end],
			Start:      start,
			End:        c.end,
			OverlapLen: overlap,
		})
	}
	return pieces
}

// span is a half-open [start,end) range into the source text.
type span struct {
	start, end int
}

// splitRecursive cuts text[offset:offset+len(piece)] into spans no longer
// than limit, trying each separator in priority order. Separators stay
// attached to the piece they terminate so spans tile the input exactly.
func splitRecursive(text string, offset int, limit int, separators []string) []span {
	if len(text) <= limit {
		return []span{{offset, offset + len(text)}}
	}

	for i, sep := range separators {
		if sep == "" || !strings.Contains(text, sep) {
			continue
		}
		var out []span
		rest := text
		pos := 0
		for {
			idx := strings.Index(rest, sep)
			var part string
			if idx < 0 {
				part = rest
			} else {
				part = rest[:idx+len(sep)]
			}
			if len(part) <= limit {
				out = append(out, span{offset + pos, offset + pos + len(part)})
			} else {
				out = append(out, splitRecursive(part, offset+pos, limit, separators[i+1:])...)
			}
			if idx < 0 {
				break
			}
			pos += idx + len(sep)
			rest = rest[idx+len(sep):]
			if rest == "" {
				break
			}
		}
		return out
	}

	return hardCut(text, offset, limit)
}

// hardCut is the last resort when no separator exists in the piece: cut near
// the limit, preferring the nearest sentence end, then the nearest
// whitespace, inside the trailing window.
func hardCut(text string, offset int, limit int) []span {
	var out []span
	pos := 0
	for len(text)-pos > limit {
		window := text[pos : pos+limit]
		cut := sentenceEndWithin(window)
		if cut <= 0 {
			cut = lastWhitespace(window)
		}
		if cut <= 0 {
			cut = limit
		}
		out = append(out, span{offset + pos, offset + pos + cut})
		pos += cut
	}
	if pos < len(text) {
		out = append(out, span{offset + pos, offset + len(text)})
	}
	return out
}

func sentenceEndWithin(window string) int {
	// only accept a sentence end in the back half of the window so the cut
	// does not produce a tiny fragment
	for i := len(window) - 1; i > len(window)/2; i-- {
		c := window[i-1]
		if c == '.' || c == '!' || c == '?' {
			return i
		}
	}
	return 0
}

func lastWhitespace(window string) int {
	for i := len(window); i > len(window)/2; i-- {
		if unicode.IsSpace(rune(window[i-1])) {
			return i
		}
	}
	return 0
}

// packCores greedily re-joins adjacent spans while they still fit the limit,
// turning fine-grained separator pieces into full-size chunk cores.
func packCores(spans []span, limit int) []span {
	var out []span
	for _, s := range spans {
		if n := len(out); n > 0 && s.end-out[n-1].start <= limit {
			out[n-1].end = s.end
			continue
		}
		out = append(out, s)
	}
	return out
}

// mergeSmall folds chunks shorter than MinChunkSize into a neighbor when the
// merged chunk still respects ChunkSize. The final chunk of a document is
// allowed to stay small.
func mergeSmall(spans []span, opts Options, coreLimit int) []span {
	if opts.MinChunkSize <= 0 || len(spans) < 2 {
		return spans
	}
	var out []span
	for _, s := range spans {
		n := len(out)
		if n > 0 && s.end-s.start < opts.MinChunkSize && s.end-out[n-1].start <= coreLimit {
			out[n-1].end = s.end
			continue
		}
		out = append(out, s)
	}
	// a small head chunk can only merge forward
	if len(out) >= 2 && out[0].end-out[0].start < opts.MinChunkSize &&
		out[1].end-out[0].start <= coreLimit {
		out[1].start = out[0].start
		out = out[1:]
	}
	return out
}

// overlapStart walks back up to overlap characters into the previous core,
// then forward to the next word boundary so the overlap never begins
// mid-word.
func overlapStart(text string, prev span, coreStart int, overlap int) int {
	start := coreStart - overlap
	if start < prev.start {
		start = prev.start
	}
	if start == prev.start {
		return start
	}
	// already on a boundary
	if unicode.IsSpace(rune(text[start-1])) || unicode.IsSpace(rune(text[start])) {
		return start
	}
	for start < coreStart && !unicode.IsSpace(rune(text[start])) {
		start++
	}
	for start < coreStart && unicode.IsSpace(rune(text[start])) {
		start++
	}
	return start
}
