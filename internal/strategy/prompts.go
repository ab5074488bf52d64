package strategy

import (
	"fmt"
	"strings"
)

func buildDecompositionPrompt(query string, n int) string {
	return fmt.Sprintf(
		"Break the following research question into at most %d independent, "+
			"answerable sub-questions. Respond with one sub-question per line, "+
			"no numbering or commentary.\n\nQuestion: %s\n", n, query)
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. )"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
