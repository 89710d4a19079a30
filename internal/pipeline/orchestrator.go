// Package pipeline runs generation jobs on a worker pool so the
// multi-call model loop, which can take tens of seconds, never blocks
// the request-serving path.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docforge/internal/agent"
)

// Orchestrator manages the generation job queue and workers.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	agent *agent.Agent
	log   *slog.Logger

	workerCount  int
	maxQueueSize int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline; Start launches it.
func NewOrchestrator(ag *agent.Agent, log *slog.Logger, workerCount, maxQueueSize int, jobTTL time.Duration) *Orchestrator {
	if workerCount <= 0 {
		workerCount = 2
	}
	if maxQueueSize <= 0 {
		maxQueueSize = 50
	}
	return &Orchestrator{
		jobs:         NewJobStore(jobTTL),
		queue:        make(chan *Job, maxQueueSize),
		agent:        ag,
		log:          log,
		workerCount:  workerCount,
		maxQueueSize: maxQueueSize,
	}
}

// Start launches worker goroutines and the job store cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.workerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetError("queue full")
		return fmt.Errorf("job queue is full (%d)", o.maxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// process runs one generation job through the agent state machine.
func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.log.With("job_id", job.ID, "document_type", job.DocumentType)
	job.SetStatus(StatusRunning)

	items, s := job.Inputs()
	st := agent.NewState(job.Department, job.DocumentType, items, s)

	start := time.Now()
	if err := o.agent.Run(ctx, st); err != nil {
		log.Error("generation run aborted", "error", err)
		job.SetError(err.Error())
		return
	}

	log.Info("generation run finished",
		"status", st.Status,
		"retry_count", st.RetryCount,
		"issues", len(st.QualityIssues),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	job.SetResult(&Result{
		Document:     st.GeneratedDocument,
		GapQuestions: st.GapQuestions,
		Status:       st.Status,
		Issues:       st.QualityIssues,
		Suggestions:  st.QualitySuggestions,
		Scores:       st.QualityScores,
		RetryCount:   st.RetryCount,
	})
}
