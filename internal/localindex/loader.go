package localindex

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader turns one file's bytes into plain text for chunking. Returning an
// error causes the indexer to skip the file with a warning rather than
// abort the whole folder.
type Loader func(path string) (string, error)

// loaderFor picks a format-appropriate loader by file extension. Formats
// with no dedicated parser available (PDF, legacy Word .doc/.docx) fall back
// to a best-effort printable-text extraction rather than a real structural
// parse; see DESIGN.md for the justification.
func loaderFor(ext string) Loader {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".markdown", ".rst":
		return loadText
	case ".csv":
		return loadCSV
	case ".tsv":
		return loadCSV
	case ".pdf":
		return loadBestEffortBinary
	case ".doc", ".docx":
		return loadBestEffortBinary
	case ".xlsx", ".xls":
		return loadBestEffortBinary
	default:
		return loadText
	}
}

func loadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func loadCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var sb strings.Builder
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		sb.WriteString(strings.Join(rec, " | "))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// loadBestEffortBinary strips a binary document down to its printable runs,
// which recovers usable text from many PDF/DOCX streams without a real
// structural parser for those formats.
func loadBestEffortBinary(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	var sb strings.Builder
	runStart := -1
	flush := func(end int) {
		if runStart < 0 {
			return
		}
		if end-runStart >= 4 {
			sb.Write(b[runStart:end])
			sb.WriteByte(' ')
		}
		runStart = -1
	}
	for i, c := range b {
		if c >= 32 && c < 127 || c == '\n' || c == '\t' {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(b))
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no recoverable text in %s", path)
	}
	return text, nil
}

// isHidden reports whether a path component starts with a dot; hidden files
// and directories are skipped during indexing.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func filenameOf(path string) string {
	return filepath.Base(path)
}
