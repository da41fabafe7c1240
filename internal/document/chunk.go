package document

// Chunk is a word-aligned slice of a document's text. Index is 1-based and
// ordering within a document is significant.
type Chunk struct {
	Index      int      `json:"chunk_number"`
	WordCount  int      `json:"word_count"`
	Content    string   `json:"content"`
	StartWords []string `json:"start_words"`
	EndWords   []string `json:"end_words"`
}

