package textsplitters

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedCharsBasic(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindFixed, Fixed: FixedConfig{Unit: UnitChars, Size: 5}})
	require.NoError(t, err)
	require.Equal(t, []string{"abcde", "fghij", "klmno", "pqrst", "uvwxy", "z"}, s.Split("abcdefghijklmnopqrstuvwxyz"))
}

func TestFixedCharsOverlap(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindFixed, Fixed: FixedConfig{Unit: UnitChars, Size: 4, Overlap: 2}})
	require.NoError(t, err)
	require.Equal(t, []string{"abcd", "cdef", "efg"}, s.Split("abcdefg"))
}

func TestFixedTokensWhitespace(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindFixed, Fixed: FixedConfig{Unit: UnitTokens, Size: 3}})
	require.NoError(t, err)
	require.Equal(t, []string{"one two three", "four five"}, s.Split("one  two\nthree\tfour five"))
}

func TestFixedTokensOverlap(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindFixed, Fixed: FixedConfig{Unit: UnitTokens, Size: 2, Overlap: 1}})
	require.NoError(t, err)
	require.Equal(t, []string{"a b", "b c", "c d"}, s.Split("a b c d"))
}

func TestFixedEmpty(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindFixed, Fixed: FixedConfig{Unit: UnitChars, Size: 10}})
	require.NoError(t, err)
	require.Empty(t, s.Split(""))
}

func TestMarkdownSplitsByHeading(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindMarkdown, Markdown: MarkdownConfig{
		Within: BoundaryConfig{Unit: UnitChars, Size: 500},
	}})
	require.NoError(t, err)

	text := "# Title\nIntro paragraph.\n\n## Section One\nBody one.\n\n## Section Two\nBody two."
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	require.Contains(t, chunks, "# Title")
	require.Contains(t, chunks, "## Section One")
	require.Contains(t, chunks, "## Section Two")
}

func TestMarkdownNoHeadingsFallsBackToBoundary(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindMarkdown, Markdown: MarkdownConfig{
		Within: BoundaryConfig{Unit: UnitChars, Size: 500},
	}})
	require.NoError(t, err)
	chunks := s.Split("Just a plain paragraph with no headings at all.")
	require.Equal(t, []string{"Just a plain paragraph with no headings at all."}, chunks)
}

func TestCodeSplitsOnGoFuncBoundaries(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindCode, Code: CodeConfig{Language: "go"}})
	require.NoError(t, err)

	src := "func A() int {\n\treturn 1\n}\n\nfunc B() int {\n\treturn 2\n}\n"
	chunks := s.Split(src)
	require.Len(t, chunks, 2)
	require.Contains(t, chunks[0], "func A()")
	require.Contains(t, chunks[1], "func B()")
}

func TestRecursiveNeverExceedsFallbackSize(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindRecursive, Recursive: RecursiveConfig{
		Paragraphs: BoundaryConfig{Unit: UnitChars, Size: 1000},
		Sentences:  BoundaryConfig{Unit: UnitChars, Size: 1000},
		Fallback:   FixedConfig{Unit: UnitChars, Size: 20},
	}})
	require.NoError(t, err)

	long := "This is one very long sentence with no punctuation to break on at all so it must fall through to the fixed splitter eventually"
	chunks := s.Split(long)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c)), 20)
	}
}

func TestHybridBreaksOversizedParagraphIntoSentences(t *testing.T) {
	t.Parallel()
	s, err := NewFromConfig(Config{Kind: KindHybrid, Boundary: BoundaryConfig{Unit: UnitChars, Size: 10}})
	require.NoError(t, err)

	chunks := s.Split("First sentence here. Second sentence follows. Third one too.")
	require.Greater(t, len(chunks), 1)
}
