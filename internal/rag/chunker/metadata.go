package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
)

var (
	multiNewline  = regexp.MustCompile(`\n{3,}`)
	multiSpace    = regexp.MustCompile(` {2,}`)
	numberedTitle = regexp.MustCompile(`^(\d+(?:\.\d+)*)[.)]?\s+\S`)
)

// Normalize collapses excessive whitespace before chunking: 3+ newlines
// become a paragraph break, runs of spaces a single space, and every line is
// trimmed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

type pageSpan struct {
	start, end int
	label      string
}

// ChunkDocument normalizes a parsed document, splits it, and attaches page
// and heading metadata to every chunk by offset containment.
func ChunkDocument(doc docModel.ParsedDocument, opts Options) []docModel.DocumentChunk {
	var builder strings.Builder
	var pages []pageSpan
	for _, p := range doc.Pages {
		text := Normalize(p.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		start := builder.Len()
		builder.WriteString(text)
		pages = append(pages, pageSpan{start: start, end: builder.Len(), label: pageLabel(p)})
	}
	full := builder.String()
	if len(pages) == 1 && doc.PageCount > 1 {
		// single blob of text with a known page count: estimate boundaries
		pages = estimatePages(full, doc.PageCount)
	}

	headings := detectHeadings(full)

	pieces := ChunkText(full, opts)
	chunks := make([]docModel.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		anchor := piece.Start + piece.OverlapLen
		chunks = append(chunks, docModel.DocumentChunk{
			Id:          docModel.ChunkId(doc.DocumentId, i),
			DocumentId:  doc.DocumentId,
			DocName:     doc.Filename,
			Content:     piece.Content,
			Ordinal:     i,
			PageOrSheet: pageAt(pages, anchor),
			Headings:    headingPath(headings, anchor),
			StartOffset: piece.Start,
			EndOffset:   piece.End,
		})
	}
	return chunks
}

func pageLabel(p docModel.Page) string {
	if p.SheetName != "" {
		return "Sheet: " + p.SheetName
	}
	return fmt.Sprintf("Page %d", p.PageNumber)
}

func pageAt(pages []pageSpan, offset int) string {
	for _, p := range pages {
		if offset >= p.start && offset < p.end {
			return p.label
		}
	}
	if n := len(pages); n > 0 && offset >= pages[n-1].end {
		return pages[n-1].label
	}
	return ""
}

// estimatePages splits text into count proportional page spans, each boundary
// nudged to the nearest paragraph break.
func estimatePages(text string, count int) []pageSpan {
	if count <= 1 || len(text) == 0 {
		return []pageSpan{{0, len(text), "Page 1"}}
	}
	bounds := make([]int, 0, count+1)
	bounds = append(bounds, 0)
	for i := 1; i < count; i++ {
		target := len(text) * i / count
		bounds = append(bounds, nearestParagraphBreak(text, target))
	}
	bounds = append(bounds, len(text))

	var pages []pageSpan
	for i := 0; i < count; i++ {
		if bounds[i+1] <= bounds[i] {
			continue
		}
		pages = append(pages, pageSpan{bounds[i], bounds[i+1], fmt.Sprintf("Page %d", i+1)})
	}
	return pages
}

func nearestParagraphBreak(text string, target int) int {
	before := strings.LastIndex(text[:target], "\n\n")
	after := strings.Index(text[target:], "\n\n")
	switch {
	case before < 0 && after < 0:
		return target
	case before < 0:
		return target + after + 2
	case after < 0:
		return before + 2
	case target-before <= after:
		return before + 2
	default:
		return target + after + 2
	}
}

type heading struct {
	offset int
	level  int
	title  string
}

// detectHeadings picks out numbered section titles ("3.2 Earthing Design")
// and short all-caps lines. Level comes from the numbering depth; all-caps
// lines count as level 1.
func detectHeadings(text string) []heading {
	var out []heading
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := numberedTitle.FindStringSubmatch(trimmed); m != nil {
			out = append(out, heading{
				offset: offset,
				level:  strings.Count(m[1], ".") + 1,
				title:  trimmed,
			})
		} else if isAllCapsTitle(trimmed) {
			out = append(out, heading{offset: offset, level: 1, title: trimmed})
		}
		offset += len(line) + 1
	}
	return out
}

func isAllCapsTitle(line string) bool {
	if len(line) < 4 || len(line) > 80 {
		return false
	}
	letters := 0
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	return letters >= 4
}

// headingPath returns the ancestor titles in force at the given offset, outer
// sections first.
func headingPath(headings []heading, offset int) []string {
	var stack []heading
	for _, h := range headings {
		if h.offset > offset {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)
	}
	if len(stack) == 0 {
		return nil
	}
	path := make([]string, len(stack))
	for i, h := range stack {
		path[i] = h.title
	}
	return path
}
