// Package agent drives the five-stage generation control loop:
// gap analysis, prompt build, generation, quality gate, and bounded
// repair. The stage sequence is an explicit transition table so the
// flow is testable independently of stage logic.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docforge/internal/gaps"
	"docforge/internal/llm"
	"docforge/internal/quality"
	"docforge/internal/schema"
)

// Config carries the primary-profile call parameters.
type Config struct {
	Temperature     float64
	MaxTokens       int
	GenerateTimeout time.Duration
}

// Agent owns one generation run at a time. Safe for concurrent use:
// all run state lives in the State passed through Run.
type Agent struct {
	primary  llm.Client
	detector *gaps.Detector
	cache    *gaps.Cache
	gate     *quality.Gate
	log      *slog.Logger
	cfg      Config
}

// New constructs the agent. cache may be nil, in which case every run
// consults the detector directly.
func New(primary llm.Client, detector *gaps.Detector, cache *gaps.Cache, gate *quality.Gate, log *slog.Logger, cfg Config) *Agent {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 120 * time.Second
	}
	return &Agent{
		primary:  primary,
		detector: detector,
		cache:    cache,
		gate:     gate,
		log:      log,
		cfg:      cfg,
	}
}

// Run executes the state machine to completion, mutating st in place.
// Ordinary model and validation failures surface only as a Failed
// status with partial output; the returned error indicates a broken
// transition table, nothing else.
func (a *Agent) Run(ctx context.Context, st *State) error {
	node := NodeAnalyzeGaps
	for node != NodeEnd {
		var cond Condition
		switch node {
		case NodeAnalyzeGaps:
			cond = a.runAnalyzeGaps(ctx, st)
		case NodeBuildPrompt:
			cond = a.runBuildPrompt(st)
		case NodeGenerate:
			cond = a.runGenerate(ctx, st)
		case NodeQualityGate:
			cond = a.runQualityGate(ctx, st)
		case NodeFix:
			cond = a.runFix(ctx, st)
		default:
			return fmt.Errorf("unknown node %q", node)
		}

		to, err := next(node, cond)
		if err != nil {
			return err
		}
		a.log.Debug("agent transition", "from", node, "condition", cond, "to", to, "retry_count", st.RetryCount)
		node = to
	}
	return nil
}

// AnalyzeGapsOnly runs just the cache-first gap analysis, for the
// request boundary that collects follow-up questions without
// generating a document.
func (a *Agent) AnalyzeGapsOnly(ctx context.Context, st *State) (questions []gaps.Question, fromCache bool, err error) {
	if a.cache != nil {
		cached, err := a.cache.Check(ctx, st.DocumentType)
		if err != nil {
			return nil, false, err
		}
		if len(cached) > 0 {
			return cached, true, nil
		}
	}
	detected, _ := a.detector.Detect(ctx, st.Schema, st.Items, st.Department, st.DocumentType)
	return detected, false, nil
}

// GenerateSection runs the same state machine against a schema
// restricted to a single section, with previously generated sections
// supplied as do-not-repeat context.
func (a *Agent) GenerateSection(ctx context.Context, department, documentType string, section schema.Section, items []schema.QAItem, priorSectionsText string) (string, error) {
	sub := &schema.Schema{
		DocumentType: documentType,
		Sections:     []schema.Section{section},
	}
	st := NewState(department, documentType, items, sub)
	st.PriorSectionsText = priorSectionsText

	if err := a.Run(ctx, st); err != nil {
		return "", err
	}
	if st.GeneratedDocument == "" {
		return "", fmt.Errorf("section generation produced no output: %s", strings.Join(st.QualityIssues, "; "))
	}
	return st.GeneratedDocument, nil
}

// runAnalyzeGaps consults the cache first, then the detector. Failures
// are absorbed: the run proceeds with zero gap questions.
func (a *Agent) runAnalyzeGaps(ctx context.Context, st *State) Condition {
	if a.cache != nil {
		cached, err := a.cache.Check(ctx, st.DocumentType)
		if err != nil {
			a.log.Warn("gap cache check failed, falling through to detector", "error", err)
		} else if len(cached) > 0 {
			st.GapQuestions = cached
			st.SupplementaryNotes = gaps.SupplementaryNotes(cached)
			return CondDone
		}
	}
	st.GapQuestions, st.SupplementaryNotes = a.detector.Detect(ctx, st.Schema, st.Items, st.Department, st.DocumentType)
	return CondDone
}

// runBuildPrompt selects the table-only or compound template based on
// the schema predicate.
func (a *Agent) runBuildPrompt(st *State) Condition {
	if st.Schema.IsTableOnly() {
		st.SystemPrompt = buildTableOnlyPrompt(st)
	} else {
		st.SystemPrompt = buildGenerationPrompt(st)
	}
	return CondDone
}

// maxCallAttempts bounds transient retries of a single model call.
const maxCallAttempts = 3

// completeWithRetry calls the primary model, retrying transient
// failures (429/5xx) with jittered backoff. Non-retryable errors and
// context cancellation surface immediately.
func (a *Agent) completeWithRetry(ctx context.Context, req llm.Request) (string, error) {
	var out string
	var lastErr error
	for attempt := range maxCallAttempts {
		out, lastErr = a.primary.Complete(ctx, req)
		if lastErr == nil || !llm.IsRetryable(lastErr) {
			return out, lastErr
		}
		a.log.Warn("retryable model error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(llm.Backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return out, lastErr
}

func (a *Agent) runGenerate(ctx context.Context, st *State) Condition {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerateTimeout)
	defer cancel()

	out, err := a.completeWithRetry(callCtx, llm.Request{
		System:      st.SystemPrompt,
		User:        "Generate the complete document now.",
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		a.log.Warn("generation call failed", "error", err, "retry_count", st.RetryCount)
		st.QualityIssues = []string{generationFailureIssue(callCtx, err)}
		st.QualitySuggestions = nil
		st.QualityScores = nil
		if st.RetryCount >= MaxRetries {
			st.Status = StatusFailed
			return CondFailExhausted
		}
		return CondFailRetry
	}

	st.GeneratedDocument = llm.StripCodeFence(out)
	return CondDone
}

// runQualityGate evaluates the current document. All prior gate output
// is replaced wholesale.
func (a *Agent) runQualityGate(ctx context.Context, st *State) Condition {
	res := a.gate.Evaluate(ctx, st.GeneratedDocument, st.Schema, st.Department, st.DocumentType)
	st.QualityScores = res.Scores
	st.QualityIssues = res.Issues
	st.QualitySuggestions = res.Suggestions

	if res.Passed {
		if res.CorrectedText != "" {
			st.GeneratedDocument = res.CorrectedText
		}
		st.Status = StatusPassed
		return CondPass
	}
	if st.RetryCount >= MaxRetries {
		// Budget exhausted: terminal failure, but the best available
		// document and full issue list are still returned.
		st.Status = StatusFailed
		return CondFailExhausted
	}
	return CondFailRetry
}

// runFix asks the primary model to repair the document against the
// itemized issues, overwrites the document, and consumes one retry
// slot. A failed fix call still consumes the slot; the gate then
// re-evaluates whatever document is current.
func (a *Agent) runFix(ctx context.Context, st *State) Condition {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerateTimeout)
	defer cancel()

	out, err := a.completeWithRetry(callCtx, llm.Request{
		System:      buildFixPrompt(st),
		User:        "Produce the corrected document now.",
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		a.log.Warn("fix call failed", "error", err, "retry_count", st.RetryCount)
	} else {
		st.GeneratedDocument = llm.StripCodeFence(out)
	}
	st.RetryCount++
	return CondDone
}

func generationFailureIssue(ctx context.Context, err error) string {
	if ctx.Err() == context.DeadlineExceeded {
		return "Generation call timed out before producing a document"
	}
	return "Generation call failed: " + err.Error()
}
