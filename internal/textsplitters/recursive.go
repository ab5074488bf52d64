package textsplitters

// RecursiveConfig layers heading, paragraph, and sentence grouping top to
// bottom, with a fixed-length fallback as the final guarantee against any
// oversized leftover.
type RecursiveConfig struct {
	Markdown   MarkdownConfig
	Paragraphs BoundaryConfig
	Sentences  BoundaryConfig
	Fallback   FixedConfig
}

type recursiveSplitter struct{ cfg RecursiveConfig }

func newRecursiveSplitter(cfg RecursiveConfig) (Splitter, error) {
	return &recursiveSplitter{cfg: cfg}, nil
}

func (r *recursiveSplitter) Split(text string) []string {
	sections := splitOrSelf(text, func(s string) []string {
		md, _ := newMarkdownSplitter(r.cfg.Markdown)
		return md.Split(s)
	})

	var out []string
	for _, section := range sections {
		if section == "" {
			continue
		}
		paragraphs := splitOrSelf(section, func(s string) []string {
			p, _ := newParagraphSplitter(r.cfg.Paragraphs)
			return p.Split(s)
		})
		for _, paragraph := range paragraphs {
			sentences := splitOrSelf(paragraph, func(s string) []string {
				sent, _ := newSentenceSplitter(r.cfg.Sentences)
				return sent.Split(s)
			})
			for _, sentence := range sentences {
				out = append(out, r.capToFallback(sentence)...)
			}
		}
	}
	return out
}

// capToFallback applies the fixed-length splitter only when a Fallback size
// is configured, guaranteeing no piece leaves this splitter larger than
// that hard cap regardless of how the heading/paragraph/sentence stages
// grouped it.
func (r *recursiveSplitter) capToFallback(piece string) []string {
	if r.cfg.Fallback.Size <= 0 {
		return []string{piece}
	}
	fx, _ := newFixedSplitter(r.cfg.Fallback)
	return fx.Split(piece)
}

// splitOrSelf runs split and falls back to the original text as a single
// unit when the stage produced nothing, so one empty intermediate stage
// never drops the input entirely.
func splitOrSelf(text string, split func(string) []string) []string {
	pieces := split(text)
	if len(pieces) == 0 {
		return []string{text}
	}
	return pieces
}
