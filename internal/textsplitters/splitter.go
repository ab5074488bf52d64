package textsplitters

// Splitter turns one loaded document into the pieces IndexFolder embeds and
// upserts. Every Kind constructed by NewFromConfig implements this, so
// splitterForPath in internal/localindex can swap strategies by file
// extension without the caller knowing which one it got.
type Splitter interface {
	Split(text string) []string
}
