package textsplitters

import (
	"unicode/utf8"
)

// FixedConfig configures the fixed-length splitter, the default strategy
// for any file the indexer can't otherwise classify.
type FixedConfig struct {
	Unit Unit
	// Size is the chunk length in Unit. Must be > 0.
	Size int
	// Overlap is how much adjacent chunks share, in the same Unit. Values
	// >= Size are clamped to Size-1 so the splitter always makes progress.
	Overlap int
	// Tokenizer is used when Unit is UnitTokens; nil defaults to
	// WhitespaceTokenizer.
	Tokenizer Tokenizer
}

type fixedSplitter struct {
	unit      Unit
	size      int
	overlap   int
	tokenizer Tokenizer // optional when unit==tokens
}

func newFixedSplitter(cfg FixedConfig) (Splitter, error) {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}
	ov := cfg.Overlap
	if ov < 0 {
		ov = 0
	}
	if ov >= size {
		ov = size - 1
		if ov < 0 {
			ov = 0
		}
	}
	tok := cfg.Tokenizer
	if cfg.Unit == UnitTokens && tok == nil {
		tok = WhitespaceTokenizer{}
	}
	return &fixedSplitter{unit: cfg.Unit, size: size, overlap: ov, tokenizer: tok}, nil
}

func (s *fixedSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	switch s.unit {
	case UnitTokens:
		return s.splitTokens(text)
	default: // UnitChars or unspecified
		return s.splitRunes(text)
	}
}

// splitRunes windows over rune positions rather than bytes, so multi-byte
// UTF-8 sequences are never cut in half.
func (s *fixedSplitter) splitRunes(text string) []string {
	runeStarts := make([]int, 0, utf8.RuneCountInString(text)+1)
	runeStarts = append(runeStarts, 0)
	for i := 0; i < len(text); {
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
		runeStarts = append(runeStarts, i)
	}

	step := s.size - s.overlap
	if step <= 0 {
		step = 1
	}

	var chunks []string
	last := len(runeStarts) - 1
	for start := 0; start < last; start += step {
		end := start + s.size
		if end >= last {
			end = last
		}
		if end <= start {
			break
		}
		if chunk := text[runeStarts[start]:runeStarts[end]]; chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == last {
			break
		}
	}
	return chunks
}

func (s *fixedSplitter) splitTokens(text string) []string {
	tok := s.tokenizer
	if tok == nil {
		tok = WhitespaceTokenizer{}
	}
	tokens := tok.Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	step := s.size - s.overlap
	if step <= 0 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + s.size
		if end > len(tokens) {
			end = len(tokens)
		}
		if end <= start {
			break
		}
		if chunk := tok.Detokenize(tokens[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
