package chunker

import (
	"reflect"
	"testing"
)

func TestMerge_RoundTrip(t *testing.T) {
	cases := [][]string{
		{"only one"},
		{"first chunk", "second\n\nchunk", "third"},
		{"", "empty neighbours", ""},
		{""},
		{"", ""},
	}
	for _, chunks := range cases {
		merged := Merge(chunks)
		if got := SplitMerged(merged); !reflect.DeepEqual(got, chunks) {
			t.Errorf("round trip of %q: got %q", chunks, got)
		}
	}
}

func TestMerge_UsesLiteralSeparator(t *testing.T) {
	got := Merge([]string{"a", "b"})
	want := "a\n\n--- CHUNK SEPARATOR ---\n\nb"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplitMerged_SingleEmptyChunk(t *testing.T) {
	// An all-Arabic small document cleans to one empty chunk.
	merged := Merge([]string{""})
	if merged != "" {
		t.Fatalf("expected empty merge, got %q", merged)
	}
	if got := SplitMerged(merged); !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("expected one empty chunk, got %q", got)
	}
}
