package textsplitters

import (
	"regexp"
	"strings"
)

// MarkdownConfig configures heading-aware splitting for indexed *.md files.
type MarkdownConfig struct {
	// Headers is not read by the splitter: every heading level from # to
	// ###### starts a new section whatever this holds.
	Headers []string
	// Within groups each section's body up to a target size once it's been
	// separated from its heading.
	Within BoundaryConfig
}

var headingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*$`)

type markdownSplitter struct{ cfg MarkdownConfig }

func newMarkdownSplitter(cfg MarkdownConfig) (Splitter, error) {
	return &markdownSplitter{cfg: cfg}, nil
}

type markdownSection struct {
	heading string
	body    string
}

func (m *markdownSplitter) sections(text string) []markdownSection {
	idxs := headingRe.FindAllStringSubmatchIndex(text, -1)
	sections := make([]markdownSection, 0, len(idxs))
	for i, idx := range idxs {
		end := len(text)
		if i+1 < len(idxs) {
			end = idxs[i+1][0]
		}
		sections = append(sections, markdownSection{
			heading: text[idx[0]:idx[1]],
			body:    strings.TrimSpace(text[idx[1]:end]),
		})
	}
	return sections
}

func (m *markdownSplitter) Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sections := m.sections(text)
	if len(sections) == 0 {
		// No headings found at all; fall back to paragraph/sentence grouping
		// over the whole document.
		return (&boundarySplitter{mode: "hybrid", cfg: m.cfg.Within}).Split(text)
	}

	var chunks []string
	for _, sec := range sections {
		if heading := strings.TrimSpace(sec.heading); heading != "" {
			chunks = append(chunks, heading)
		}
		chunks = append(chunks, (&boundarySplitter{mode: "hybrid", cfg: m.cfg.Within}).Split(sec.body)...)
	}
	return chunks
}
