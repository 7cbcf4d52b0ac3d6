// Package chunker implements the recursive hierarchical text splitter: a
// document is split into parent spans, then each parent is split again into
// child spans, both passes using the same priority-ordered separator
// cascade and greedy-accumulate algorithm, escalating to a finer separator
// only when the current one fails to keep a fragment within budget.
package chunker

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/archivist-dev/archivist/model"
)

// Span is a contiguous piece of the source document. StartPosition and
// EndPosition are half-open character (rune) offsets into the original
// text and always locate Content exactly. Overlap text is carried
// separately in OverlapPrefix rather than folded into Content, so positions
// never need substring-search recovery.
type Span struct {
	Content       string
	OverlapPrefix string
	StartPosition int
	EndPosition   int
}

// FullContent is the overlap-augmented text; downstream consumers that want
// the bias from neighbouring context (summarizer, embedder) use this.
func (s Span) FullContent() string {
	return s.OverlapPrefix + s.Content
}

// ParentSpan is one parent-pass span together with the child spans produced
// by re-running the split against it.
type ParentSpan struct {
	Span
	Children []Span
}

// separatorLevel is one rung of the priority cascade: split tries to
// partition text by this level's rule, escalating to the next level when it
// fails to (i.e. returns the text unpartitioned).
type separatorLevel struct {
	name  string
	split func(string) []string
}

var levels = []separatorLevel{
	{"paragraph", func(t string) []string { return splitKeepSuffix(t, "\n\n") }},
	{"newline", func(t string) []string { return splitKeepSuffix(t, "\n") }},
	{"cjk_sentence", func(t string) []string { return splitByRuneSet(t, "。！？") }},
	{"latin_sentence", func(t string) []string { return splitByRuneSet(t, ".!?") }},
	{"semicolon", func(t string) []string { return splitByRuneSet(t, ";；") }},
	{"comma", func(t string) []string { return splitByRuneSet(t, ",，") }},
	{"space", func(t string) []string { return splitKeepSuffix(t, " ") }},
	{"char", func(t string) []string { return splitEveryRune(t) }},
}

// splitKeepSuffix splits on a literal separator, reattaching it to the end
// of every fragment but the last so concatenation reproduces the input
// exactly. Returns a single-element slice (the whole text) if sep never
// occurs, signalling "did not partition" to the caller.
func splitKeepSuffix(text, sep string) []string {
	if !strings.Contains(text, sep) {
		return []string{text}
	}
	parts := strings.Split(text, sep)
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += sep
	}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// splitByRuneSet splits immediately after any rune in set, reattaching the
// terminator to the preceding fragment. Returns a single-element slice if
// none of the runes in set occur.
func splitByRuneSet(text, set string) []string {
	if text == "" {
		return []string{text}
	}
	var out []string
	var frag strings.Builder
	found := false
	for _, r := range text {
		frag.WriteRune(r)
		if strings.ContainsRune(set, r) {
			out = append(out, frag.String())
			frag.Reset()
			found = true
		}
	}
	if frag.Len() > 0 {
		out = append(out, frag.String())
	}
	if !found {
		return []string{text}
	}
	return out
}

// splitEveryRune is the character-level fallback: every rune is its own
// fragment, which always partitions any text of length >= 2 runes.
func splitEveryRune(text string) []string {
	if text == "" {
		return []string{text}
	}
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	if len(out) <= 1 {
		return []string{text}
	}
	return out
}

// recursiveSplit produces an ordered list of Spans whose concatenation
// equals text exactly, each no longer than maxLen runes where the separator
// cascade makes that achievable, tagged with absolute offsets via base.
func recursiveSplit(text string, maxLen int, levelIdx int, base int, logger *slog.Logger) []Span {
	if utf8.RuneCountInString(text) <= maxLen {
		return []Span{{Content: text, StartPosition: base, EndPosition: base + utf8.RuneCountInString(text)}}
	}

	if levelIdx >= len(levels) {
		// No separator can partition this text further and it still
		// exceeds maxLen (e.g. maxLen <= 0). Emit it whole rather than loop.
		if logger != nil {
			logger.Warn("chunker: no separator could keep fragment within budget, emitting as one span",
				"length", utf8.RuneCountInString(text), "max_len", maxLen)
		}
		return []Span{{Content: text, StartPosition: base, EndPosition: base + utf8.RuneCountInString(text)}}
	}

	fragments := levels[levelIdx].split(text)
	if len(fragments) <= 1 {
		return recursiveSplit(text, maxLen, levelIdx+1, base, logger)
	}

	var spans []Span
	var acc strings.Builder
	accLen := 0
	accStart := base
	cursor := base

	flush := func() {
		if acc.Len() == 0 {
			return
		}
		content := acc.String()
		spans = append(spans, Span{Content: content, StartPosition: accStart, EndPosition: accStart + utf8.RuneCountInString(content)})
		acc.Reset()
		accLen = 0
	}

	for _, frag := range fragments {
		fragLen := utf8.RuneCountInString(frag)
		if fragLen > maxLen {
			flush()
			spans = append(spans, recursiveSplit(frag, maxLen, levelIdx+1, cursor, logger)...)
			cursor += fragLen
			continue
		}
		if accLen > 0 && accLen+fragLen > maxLen {
			flush()
			accStart = cursor
		}
		if accLen == 0 {
			accStart = cursor
		}
		acc.WriteString(frag)
		accLen += fragLen
		cursor += fragLen
	}
	flush()

	return spans
}

// injectOverlap prepends, to each non-first span, the last overlapLen
// characters of its predecessor's Content, trimmed at the first separator
// boundary found in that window when one exists. The injected text is
// carried in OverlapPrefix, never folded into Content.
func injectOverlap(spans []Span, overlapLen int) {
	if overlapLen <= 0 {
		return
	}
	for i := 1; i < len(spans); i++ {
		prev := []rune(spans[i-1].Content)
		if len(prev) == 0 {
			continue
		}
		start := len(prev) - overlapLen
		if start < 0 {
			start = 0
		}
		window := string(prev[start:])
		spans[i].OverlapPrefix = trimToSeparatorBoundary(window)
	}
}

// trimToSeparatorBoundary finds the earliest position in window where any
// semantic boundary (paragraph break, newline, sentence terminator,
// semicolon or comma) ends and returns the text after it, so the injected overlap doesn't start mid-sentence when a cleaner cut
// point exists. Returns window unchanged if no boundary is found.
func trimToSeparatorBoundary(window string) string {
	boundaries := []string{"\n\n", "\n", "。", "！", "？", ".", "!", "?", ";", "；", ",", "，"}
	best := -1
	for _, b := range boundaries {
		if idx := strings.Index(window, b); idx >= 0 {
			cut := idx + len(b)
			if best == -1 || cut < best {
				best = cut
			}
		}
	}
	if best == -1 || best >= len(window) {
		return window
	}
	return window[best:]
}

// ChunkDocument runs the full parent + child pass against text under
// strategy. An empty document yields an empty sequence; a document no
// longer than the child size yields exactly one parent with one identical
// child, per the spec's round-trip contract.
func ChunkDocument(text string, strategy model.ChunkStrategy, logger *slog.Logger) ([]ParentSpan, error) {
	if !strategy.Valid() {
		return nil, model.NewValidationError(invalidStrategyError(strategy))
	}
	if text == "" {
		return nil, nil
	}

	parentOverlap := strategy.ParentChunkSize * strategy.OverlapPercent / 100
	childOverlap := strategy.ChildChunkSize * strategy.OverlapPercent / 100

	rawParents := recursiveSplit(text, strategy.ParentChunkSize, 0, 0, logger)
	injectOverlap(rawParents, parentOverlap)

	parents := make([]ParentSpan, 0, len(rawParents))
	for _, p := range rawParents {
		rawChildren := recursiveSplit(p.Content, strategy.ChildChunkSize, 0, p.StartPosition, logger)
		injectOverlap(rawChildren, childOverlap)
		parents = append(parents, ParentSpan{Span: p, Children: rawChildren})
	}

	return parents, nil
}

type invalidStrategyErr struct {
	strategy model.ChunkStrategy
}

func (e invalidStrategyErr) Error() string {
	return "invalid chunk strategy: child_chunk_size must be <= parent_chunk_size and overlap_percent must be in [0, 100)"
}

func invalidStrategyError(s model.ChunkStrategy) error {
	return invalidStrategyErr{strategy: s}
}
