package textsplitters

import "strings"

// Tokenizer counts and regroups the units fixedSplitter windows over when a
// FixedConfig's Unit is UnitTokens. Detokenize only needs to round-trip well
// enough to measure chunk length again, not reproduce original whitespace.
type Tokenizer interface {
	Tokenize(text string) []string
	Detokenize(tokens []string) string
}

// WhitespaceTokenizer treats runs of whitespace as token boundaries. It's
// the default for UnitTokens when a splitter config leaves Tokenizer nil.
type WhitespaceTokenizer struct{}

func (WhitespaceTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

func (WhitespaceTokenizer) Detokenize(tokens []string) string {
	return strings.Join(tokens, " ")
}
