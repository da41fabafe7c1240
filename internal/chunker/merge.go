package chunker

import "strings"

// Separator joins cleaned chunks in the merged artifact.
const Separator = "\n\n--- CHUNK SEPARATOR ---\n\n"

// Merge joins chunk contents with Separator.
func Merge(contents []string) string {
	return strings.Join(contents, Separator)
}

// SplitMerged is the inverse of Merge. An empty string is one empty chunk.
func SplitMerged(merged string) []string {
	return strings.Split(merged, Separator)
}
