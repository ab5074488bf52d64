package textsplitters

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// BoundaryConfig controls the sentence, paragraph, and hybrid splitters:
// each groups natural-language units up to a target Size before starting a
// new chunk, carrying Overlap units of context into the next one.
type BoundaryConfig struct {
	Unit      Unit
	Size      int // target chunk size in Unit; <=0 defaults to 500
	Overlap   int // best-effort overlap between adjacent chunks, same Unit
	Tokenizer Tokenizer
}

var sentenceBoundaryRe = regexp.MustCompile(`(?s)([^\.!?]+[\.!?]+|[^\.!?]+$)`)
var blankLineRe = regexp.MustCompile(`\n\s*\n+`)

func sentencesOf(text string) []string {
	matches := sentenceBoundaryRe.FindAllString(strings.TrimSpace(text), -1)
	out := matches[:0]
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func paragraphsOf(text string) []string {
	raw := blankLineRe.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func measure(text string, unit Unit, tok Tokenizer) int {
	if unit == UnitTokens {
		if tok == nil {
			tok = WhitespaceTokenizer{}
		}
		return len(tok.Tokenize(text))
	}
	return utf8.RuneCountInString(text)
}

// clipOverlapTail returns the trailing want units of chunk, used as the
// seed for the next chunk so adjacent chunks share context.
func clipOverlapTail(chunk string, want int, unit Unit, tok Tokenizer) string {
	if want <= 0 || chunk == "" {
		return ""
	}
	if unit == UnitTokens {
		if tok == nil {
			tok = WhitespaceTokenizer{}
		}
		toks := tok.Tokenize(chunk)
		if want >= len(toks) {
			return chunk
		}
		return tok.Detokenize(toks[len(toks)-want:])
	}

	n := utf8.RuneCountInString(chunk)
	if want >= n {
		return chunk
	}
	runeStarts := make([]int, 0, n+1)
	runeStarts = append(runeStarts, 0)
	for i := 0; i < len(chunk); {
		_, w := utf8.DecodeRuneInString(chunk[i:])
		i += w
		runeStarts = append(runeStarts, i)
	}
	return chunk[runeStarts[n-want]:]
}

func groupByTarget(units []string, cfg BoundaryConfig) []string {
	size := cfg.Size
	if size <= 0 {
		size = 500
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	var tok Tokenizer
	if cfg.Unit == UnitTokens {
		tok = cfg.Tokenizer
		if tok == nil {
			tok = WhitespaceTokenizer{}
		}
	}

	if len(units) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	flush := func() string {
		s := cur.String()
		if s != "" {
			chunks = append(chunks, s)
		}
		return s
	}

	for i, u := range units {
		if u == "" {
			continue
		}
		candidate := u
		if cur.Len() > 0 {
			candidate = cur.String() + "\n" + u
		}
		if measure(candidate, cfg.Unit, tok) <= size || cur.Len() == 0 {
			if cur.Len() > 0 {
				cur.WriteString("\n")
			}
			cur.WriteString(u)
		} else {
			closed := flush()
			cur.Reset()
			if tail := clipOverlapTail(closed, cfg.Overlap, cfg.Unit, tok); tail != "" {
				cur.WriteString(tail)
				cur.WriteString("\n")
			}
			cur.WriteString(u)
		}
		if i == len(units)-1 {
			flush()
		}
	}
	return chunks
}

type boundarySplitter struct {
	mode string // "sent"|"para"|"hybrid"
	cfg  BoundaryConfig
}

func newSentenceSplitter(cfg BoundaryConfig) (Splitter, error) {
	return &boundarySplitter{mode: "sent", cfg: cfg}, nil
}
func newParagraphSplitter(cfg BoundaryConfig) (Splitter, error) {
	return &boundarySplitter{mode: "para", cfg: cfg}, nil
}
func newHybridSplitter(cfg BoundaryConfig) (Splitter, error) {
	return &boundarySplitter{mode: "hybrid", cfg: cfg}, nil
}

func (s *boundarySplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var units []string
	switch s.mode {
	case "para":
		units = paragraphsOf(text)
	case "hybrid":
		// Group by paragraph, but break any paragraph twice the target size
		// down to sentences first so one oversized paragraph doesn't become
		// one oversized chunk.
		for _, p := range paragraphsOf(text) {
			if s.cfg.Size > 0 && measure(p, s.cfg.Unit, s.cfg.Tokenizer) > s.cfg.Size*2 {
				units = append(units, sentencesOf(p)...)
			} else {
				units = append(units, p)
			}
		}
	default:
		units = sentencesOf(text)
	}
	return groupByTarget(units, s.cfg)
}
