// Package textsplitters implements the chunk step of the local embedding
// index's (internal/localindex) IndexFolder lifecycle: turning one loaded
// document into overlapping pieces sized for embedding.
//
// localindex.splitterForPath picks a Kind by file extension rather than
// always chunking fixed-length:
//
//   - KindMarkdown for *.md, splitting on headings first and grouping each
//     section's body by paragraph/sentence.
//   - KindCode for recognized source extensions, splitting on
//     function/type boundaries before falling back to boundary grouping for
//     oversized blocks.
//   - KindRecursive for everything else with prose structure: heading,
//     then paragraph, then sentence, with a fixed-length splitter as the
//     final guarantee against an oversized leftover.
//   - KindFixed as the baseline strategy any of the above fall back to and
//     the one used when a collection's config doesn't warrant the others.
package textsplitters
