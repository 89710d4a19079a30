package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"docforge/internal/agent"
	"docforge/internal/gaps"
	"docforge/internal/schema"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Result is the final response body of a generation run. A run that
// exhausts its retry budget still carries the best available document
// and the full issue list.
type Result struct {
	Document     string          `json:"document"`
	GapQuestions []gaps.Question `json:"gap_questions,omitempty"`
	Status       agent.Status    `json:"status"`
	Issues       []string        `json:"issues,omitempty"`
	Suggestions  []string        `json:"suggestions,omitempty"`
	Scores       map[string]int  `json:"scores,omitempty"`
	RetryCount   int             `json:"retry_count"`
}

// Job tracks the state of a single document generation.
type Job struct {
	mu sync.Mutex

	ID           string    `json:"job_id"`
	Department   string    `json:"department"`
	DocumentType string    `json:"document_type"`
	Status       JobStatus `json:"status"`

	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Run inputs, not serialized.
	items  []schema.QAItem
	schema *schema.Schema
}

// NewJob creates a queued job carrying the run inputs.
func NewJob(department, documentType string, items []schema.QAItem, s *schema.Schema) *Job {
	now := time.Now()
	return &Job{
		ID:           jobID(department, documentType, now),
		Department:   department,
		DocumentType: documentType,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
		items:        items,
		schema:       s,
	}
}

func jobID(department, documentType string, now time.Time) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s-%s-%d", department, documentType, now.UnixNano()))
	return fmt.Sprintf("%x", h[:10])
}

// Inputs returns the run inputs.
func (j *Job) Inputs() ([]schema.QAItem, *schema.Schema) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.items, j.schema
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// SetResult records the run result and marks the job completed.
func (j *Job) SetResult(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = res
	j.Status = StatusCompleted
	j.UpdatedAt = time.Now()
}

// SetError records an internal failure.
func (j *Job) SetError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = msg
	j.Status = StatusFailed
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	Department   string    `json:"department"`
	DocumentType string    `json:"document_type"`
	Status       JobStatus `json:"status"`
	Result       *Result   `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:           j.ID,
		Department:   j.Department,
		DocumentType: j.DocumentType,
		Status:       j.Status,
		Result:       j.Result,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
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

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.Snapshot().UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
