package textsplitters

import (
	"regexp"
	"strings"
)

// CodeConfig configures code-aware splitting: chunks break at function/type
// boundaries first, falling back to boundary grouping only when a block
// exceeds the target size.
type CodeConfig struct {
	// Language hints which block-start patterns to use. Empty (or an
	// unknown language) tries the Go func, Python def and JavaScript
	// function patterns; Go type and Python class starts are not among them.
	Language string
	Within   BoundaryConfig
}

// Block-start patterns are intentionally simple line-anchored regexes, not
// a real parser: good enough to keep a function or class together without
// depending on a language-specific AST library per source extension.
var (
	goFuncStart    = regexp.MustCompile(`(?m)^func\s+\(?.*?\)?\s*[A-Za-z_][A-Za-z0-9_]*\s*\(.*\)`)
	goTypeStart    = regexp.MustCompile(`(?m)^type\s+[A-Za-z_][A-Za-z0-9_]*\s+struct\s*{`)
	pythonDefStart = regexp.MustCompile(`(?m)^def\s+[A-Za-z_][A-Za-z0-9_]*\s*\(.*\)\s*:`)
	pythonClsStart = regexp.MustCompile(`(?m)^class\s+[A-Za-z_][A-Za-z0-9_]*\s*(\(.*\))?\s*:`)
	jsFuncStart    = regexp.MustCompile(`(?m)^(function\s+[A-Za-z_][A-Za-z0-9_]*\s*\(|[A-Za-z_][A-Za-z0-9_]*\s*=\s*\(.*\)\s*=>)`)
)

func blockStartPatterns(language string) []*regexp.Regexp {
	switch strings.ToLower(language) {
	case "go":
		return []*regexp.Regexp{goTypeStart, goFuncStart}
	case "python", "py":
		return []*regexp.Regexp{pythonClsStart, pythonDefStart}
	case "javascript", "js", "ts", "typescript":
		return []*regexp.Regexp{jsFuncStart}
	default:
		return []*regexp.Regexp{goFuncStart, pythonDefStart, jsFuncStart}
	}
}

type codeSplitter struct{ cfg CodeConfig }

func newCodeSplitter(cfg CodeConfig) (Splitter, error) { return &codeSplitter{cfg: cfg}, nil }

func (s *codeSplitter) Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	patterns := blockStartPatterns(s.cfg.Language)
	isBlockStart := func(line string) bool {
		for _, re := range patterns {
			if re.MatchString(line) {
				return true
			}
		}
		return false
	}

	lines := strings.Split(text, "\n")
	var blocks []string
	var cur []string
	for i, line := range lines {
		if isBlockStart(line) && len(cur) > 0 {
			if block := strings.TrimSpace(strings.Join(cur, "\n")); block != "" {
				blocks = append(blocks, block)
			}
			cur = cur[:0]
		}
		cur = append(cur, line)
		if i == len(lines)-1 {
			if block := strings.TrimSpace(strings.Join(cur, "\n")); block != "" {
				blocks = append(blocks, block)
			}
		}
	}

	if s.cfg.Within.Size <= 0 {
		return blocks
	}

	// Any block still larger than the target gets broken down further by
	// the hybrid boundary splitter rather than shipped as one oversized
	// chunk.
	bcfg := s.cfg.Within
	oversized := &boundarySplitter{mode: "hybrid", cfg: bcfg}
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if measure(block, bcfg.Unit, bcfg.Tokenizer) > bcfg.Size {
			out = append(out, oversized.Split(block)...)
		} else {
			out = append(out, block)
		}
	}
	return out
}
