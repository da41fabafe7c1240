package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/docscrub/internal/document"
)

// JobStatus represents the state of an asynchronous batch.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one asynchronously processed batch.
type Job struct {
	mu sync.Mutex

	ID        string
	Status    JobStatus
	Phase     string
	Documents []string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Internal: not serialized.
	docs     []document.Document
	outcomes []document.Outcome
}

// NewJob builds a queued job for docs.
func NewJob(id string, docs []document.Document) *Job {
	now := time.Now()
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return &Job{
		ID:        id,
		Status:    StatusQueued,
		Phase:     "queued",
		Documents: names,
		CreatedAt: now,
		UpdatedAt: now,
		docs:      docs,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Complete records the outcomes and derives the final status: completed
// when every document succeeded, failed when none did, partial otherwise.
// The uploaded bytes are released.
func (j *Job) Complete(outcomes []document.Outcome) {
	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	status := StatusPartial
	switch {
	case failed == 0:
		status = StatusCompleted
	case failed == len(outcomes):
		status = StatusFailed
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes = outcomes
	j.docs = nil
	j.Status = status
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// takeDocuments returns the uploaded documents.
func (j *Job) takeDocuments() []document.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.docs
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string             `json:"job_id"`
	Status    JobStatus          `json:"status"`
	Phase     string             `json:"phase"`
	Documents []string           `json:"documents"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []document.Outcome `json:"results,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Documents: append([]string(nil), j.Documents...),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.outcomes != nil {
		snap.Results = append([]document.Outcome(nil), j.outcomes...)
		for _, o := range j.outcomes {
			if o.Failed() {
				snap.Failed++
			} else {
				snap.Succeeded++
			}
		}
	}
	return snap
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
