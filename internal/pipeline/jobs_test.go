package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/docscrub/internal/archive"
	"github.com/dgallion1/docscrub/internal/document"
	"github.com/dgallion1/docscrub/internal/parser"
	"github.com/dgallion1/docscrub/internal/policy"
)

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("test-1", nil)
	if job.Status != StatusQueued {
		t.Fatalf("expected status %q, got %q", StatusQueued, job.Status)
	}

	before := job.UpdatedAt
	time.Sleep(time.Millisecond)
	job.SetStatus(StatusProcessing, "processing")

	if job.Status != StatusProcessing {
		t.Errorf("expected status %q, got %q", StatusProcessing, job.Status)
	}
	if !job.UpdatedAt.After(before) {
		t.Error("expected UpdatedAt to advance after SetStatus")
	}
}

func TestJob_Complete(t *testing.T) {
	ok := document.Outcome{Document: "a", Status: document.StatusSuccess}
	bad := document.Outcome{Document: "b", Status: document.StatusError, Error: "x"}

	tests := []struct {
		name     string
		outcomes []document.Outcome
		want     JobStatus
	}{
		{"all succeeded", []document.Outcome{ok, ok}, StatusCompleted},
		{"mixed", []document.Outcome{ok, bad}, StatusPartial},
		{"all failed", []document.Outcome{bad}, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("j", []document.Document{document.New("a.txt", []byte("x"))})
			job.Complete(tt.outcomes)
			snap := job.Snapshot()
			if snap.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, snap.Status)
			}
			if len(snap.Results) != len(tt.outcomes) {
				t.Errorf("expected %d results, got %d", len(tt.outcomes), len(snap.Results))
			}
			if snap.Succeeded+snap.Failed != len(tt.outcomes) {
				t.Errorf("counts do not add up: %+v", snap)
			}
			if job.takeDocuments() != nil {
				t.Error("expected document bytes to be released")
			}
		})
	}
}

func TestJob_SnapshotBeforeCompletion(t *testing.T) {
	job := NewJob("j", []document.Document{document.New("a.txt", nil), document.New("b.pdf", nil)})
	snap := job.Snapshot()
	if len(snap.Documents) != 2 || snap.Documents[1] != "b.pdf" {
		t.Errorf("unexpected documents %v", snap.Documents)
	}
	if snap.Results != nil {
		t.Errorf("expected no results yet, got %v", snap.Results)
	}
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(time.Minute)
	fresh := NewJob("fresh", nil)
	stale := NewJob("stale", nil)
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	store.Put(fresh)
	store.Put(stale)

	store.Cleanup()

	if store.Get("fresh") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
	if store.Get("stale") != nil {
		t.Error("expected stale job to be evicted")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func newTestQueue(t *testing.T, cfg QueueConfig) *Queue {
	t.Helper()
	store, err := archive.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	orch := NewOrchestrator(Config{Policy: policy.DefaultConfig()}, parser.NewExtractor(false), nil, archive.NewWriter(store, nil))
	return NewQueue(cfg, orch, nil)
}

func TestQueue_ProcessesJobs(t *testing.T) {
	q := newTestQueue(t, QueueConfig{Workers: 2, MaxQueueSize: 4, JobTTL: time.Hour})
	q.Start(context.Background())
	defer q.Stop()

	job, err := q.Submit([]document.Document{
		document.New("a.txt", []byte("hello")),
		document.New("b.xlsx", []byte("x")),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap := q.GetJob(job.ID).Snapshot()
		if snap.Status == StatusPartial {
			if snap.Succeeded != 1 || snap.Failed != 1 {
				t.Errorf("unexpected counts %+v", snap)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %q", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueue_SubmitWhenFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	q := newTestQueue(t, QueueConfig{Workers: 1, MaxQueueSize: 1, JobTTL: time.Hour})

	if _, err := q.Submit([]document.Document{document.New("a.txt", []byte("x"))}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job, err := q.Submit([]document.Document{document.New("b.txt", []byte("y"))})
	if err == nil {
		t.Fatal("expected queue full error")
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", job.Snapshot().Status)
	}
	if q.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", q.QueueDepth())
	}
	q.Stop()
}

func TestQueue_SubmitAfterStop(t *testing.T) {
	q := newTestQueue(t, QueueConfig{Workers: 1, MaxQueueSize: 2, JobTTL: time.Hour})
	q.Start(context.Background())
	q.Stop()
	q.Stop()

	job, err := q.Submit([]document.Document{document.New("a.txt", []byte("hi"))})
	if !errors.Is(err, ErrQueueStopped) {
		t.Fatalf("expected ErrQueueStopped, got %v", err)
	}
	if job != nil {
		t.Errorf("expected no job, got %+v", job)
	}
}
