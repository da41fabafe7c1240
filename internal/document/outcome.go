package document

// Status is the terminal state of one document's pipeline run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Artifacts references the files produced for a successful document.
type Artifacts struct {
	Merged  string `json:"merged"`
	Archive string `json:"archive"`
}

// Metrics summarises a successful run.
type Metrics struct {
	WordCount  int     `json:"word_count"`
	ChunkCount int     `json:"chunk_count"`
	SizeMB     float64 `json:"size_mb"`
	Route      string  `json:"route"`
	Strategy   string  `json:"strategy"`
}

// Outcome is the per-document result of a batch. Outcomes are independent:
// one document's error never affects another's success.
type Outcome struct {
	Document  string     `json:"document"`
	Status    Status     `json:"status"`
	Artifacts *Artifacts `json:"artifacts,omitempty"`
	Metrics   *Metrics   `json:"metrics,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorKind string     `json:"error_kind,omitempty"`
}

// Failed reports whether the outcome is an error.
func (o Outcome) Failed() bool {
	return o.Status == StatusError
}
