package textsplitters

import "fmt"

// Kind selects one of the chunking strategies IndexFolder dispatches to by
// file type (see localindex.splitterForPath): fixed-length for anything
// unrecognized, markdown-aware for *.md, code-aware for source files, and
// recursive (heading -> paragraph -> sentence -> fixed fallback) for
// everything else with natural prose structure.
type Kind string

const (
	KindFixed      Kind = "fixed"
	KindSentences  Kind = "sentences"
	KindParagraphs Kind = "paragraphs"
	KindHybrid     Kind = "hybrid"
	KindMarkdown   Kind = "markdown"
	KindCode       Kind = "code"
	KindRecursive  Kind = "recursive"
)

// Unit indicates what a splitter measures when computing chunk sizes.
type Unit string

const (
	UnitChars  Unit = "chars"
	UnitTokens Unit = "tokens"
)

// Config selects a Kind and carries the sub-config that kind reads. Only
// the field matching Kind needs to be populated; the rest are ignored.
type Config struct {
	Kind      Kind
	Fixed     FixedConfig
	Boundary  BoundaryConfig
	Markdown  MarkdownConfig
	Code      CodeConfig
	Recursive RecursiveConfig
}

// NewFromConfig builds the concrete Splitter for c.Kind.
func NewFromConfig(c Config) (Splitter, error) {
	switch c.Kind {
	case KindFixed:
		return newFixedSplitter(c.Fixed)
	case KindSentences:
		return newSentenceSplitter(c.Boundary)
	case KindParagraphs:
		return newParagraphSplitter(c.Boundary)
	case KindHybrid:
		return newHybridSplitter(c.Boundary)
	case KindMarkdown:
		return newMarkdownSplitter(c.Markdown)
	case KindCode:
		return newCodeSplitter(c.Code)
	case KindRecursive:
		return newRecursiveSplitter(c.Recursive)
	default:
		return nil, fmt.Errorf("textsplitters: unknown kind %q", c.Kind)
	}
}
