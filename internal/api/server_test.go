package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docforge/internal/agent"
	"docforge/internal/config"
	"docforge/internal/gaps"
	"docforge/internal/llm"
	"docforge/internal/pipeline"
	"docforge/internal/quality"
	"docforge/internal/schema"
	"docforge/internal/store"
)

const testAPIKey = "test-key"

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Model() string { return "fake" }
func (f *fakeLLM) Close()        {}

// fakeStore is an in-memory store.Store for handler tests.
type fakeStore struct {
	schemas   map[string]*schema.Schema // by document type
	questions []store.QuestionRecord
}

func (f *fakeStore) GetSchema(ctx context.Context, department, documentName string) (*schema.Schema, error) {
	for _, sc := range f.schemas {
		if sc.Department == department && sc.DocumentName == documentName {
			return sc, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindSchemaByType(ctx context.Context, documentType string) (*schema.Schema, error) {
	return f.schemas[documentType], nil
}

func (f *fakeStore) PutSchema(ctx context.Context, sc *schema.Schema) error {
	f.schemas[sc.DocumentType] = sc
	return nil
}

func (f *fakeStore) ListDepartments(ctx context.Context) ([]store.Department, error) {
	return []store.Department{{Code: "MK", Name: "Marketing", Slug: "marketing"}}, nil
}

func (f *fakeStore) ListDocumentTypes(ctx context.Context, department string) ([]store.DocumentType, error) {
	return []store.DocumentType{{DocumentType: "price list", DocumentName: "Rate Card"}}, nil
}

func (f *fakeStore) ListQuestions(ctx context.Context, documentType string) ([]store.QuestionRecord, error) {
	return f.questions, nil
}

func (f *fakeStore) ListGapQuestions(ctx context.Context, documentType string) ([]store.QuestionRecord, error) {
	var out []store.QuestionRecord
	for _, r := range f.questions {
		if r.IsGap && r.DocumentType == documentType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertQuestions(ctx context.Context, records []store.QuestionRecord) (int, int, error) {
	f.questions = append(f.questions, records...)
	return len(records), 0, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestServer(t *testing.T, primary llm.Client, detector llm.Client, st *fakeStore) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	cache := gaps.NewCache(st)
	gate := quality.NewGate(primary, log, 0)
	ag := agent.New(primary, gaps.NewDetector(detector, log, 0), cache, gate, log, agent.Config{})

	orch := pipeline.NewOrchestrator(ag, log, 1, 4, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(cancel)

	cfg := config.Config{DocforgeAPIKey: testAPIKey}
	return NewServer(orch, ag, cache, st, primary, nil, log, cfg), orch
}

func tableOnlyStore() *fakeStore {
	return &fakeStore{schemas: map[string]*schema.Schema{
		"price list": {
			Department:   "Marketing",
			DocumentName: "Rate Card",
			DocumentType: "price list",
			Sections: []schema.Section{
				{Kind: schema.KindTable, Columns: []string{"Item", "Price"}},
			},
		},
	}}
}

func doRequest(srv *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())
	rec := doRequest(srv, http.MethodGet, "/health", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAuth_MissingAndInvalidKey(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())

	rec := doRequest(srv, http.MethodGet, "/api/departments", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/departments", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d", rr.Code)
	}
}

func TestListDepartments(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())
	rec := doRequest(srv, http.MethodGet, "/api/departments", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Departments []store.Department `json:"departments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Departments) != 1 || body.Departments[0].Code != "MK" {
		t.Errorf("departments = %+v", body.Departments)
	}
}

func TestListDocumentTypes_RequiresDepartment(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())
	rec := doRequest(srv, http.MethodGet, "/api/document-types", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGapQuestions_UnknownSchema404(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())
	rec := doRequest(srv, http.MethodPost, "/api/gap-questions",
		`{"department":"Marketing","document_type":"no such type"}`, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGapQuestions_DetectorOnCacheMiss(t *testing.T) {
	detector := &fakeLLM{response: `[{"question":"What tiers exist?","section_covered":"Rate Card"}]`}
	srv, _ := newTestServer(t, &fakeLLM{}, detector, tableOnlyStore())

	rec := doRequest(srv, http.MethodPost, "/api/gap-questions",
		`{"department":"Marketing","document_type":"price list"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Questions []gaps.Question `json:"questions"`
		Source    string          `json:"source"`
		Count     int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Source != "analysis" {
		t.Errorf("source = %q", body.Source)
	}
	if body.Count != 1 || len(body.Questions) != 1 || body.Questions[0].Question != "What tiers exist?" {
		t.Errorf("questions = %+v count = %d", body.Questions, body.Count)
	}
}

func TestSaveQuestions(t *testing.T) {
	st := tableOnlyStore()
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, st)

	rec := doRequest(srv, http.MethodPost, "/api/save-questions",
		`{"department":{"code":"MK","name":"Marketing"},"document_type":"price list","document_name":"Rate Card","items":[{"question":"Tiers?","answer":"Free and Pro"}]}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body gaps.SaveResult
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Inserted != 1 {
		t.Errorf("saved = %d", body.Inserted)
	}
	if len(st.questions) != 1 || !st.questions[0].IsGap {
		t.Errorf("stored records = %+v", st.questions)
	}
}

func TestGenerate_EndToEnd(t *testing.T) {
	primary := &fakeLLM{response: "| Item | Price |\n|------|-------|\n| SSO | $99 |"}
	srv, orch := newTestServer(t, primary, &fakeLLM{response: "[]"}, tableOnlyStore())

	rec := doRequest(srv, http.MethodPost, "/api/generate",
		`{"department":"Marketing","document_type":"price list"}`, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.JobID == "" {
		t.Fatal("missing job id")
	}

	deadline := time.Now().Add(2 * time.Second)
	var snap pipeline.JobSnapshot
	for time.Now().Before(deadline) {
		job := orch.GetJob(accepted.JobID)
		if job == nil {
			t.Fatal("job vanished")
		}
		snap = job.Snapshot()
		if snap.Status == pipeline.StatusCompleted || snap.Status == pipeline.StatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("job did not complete: %+v", snap)
	}
	if snap.Result == nil || snap.Result.Status != agent.StatusPassed {
		t.Fatalf("result = %+v", snap.Result)
	}
	if !strings.HasPrefix(snap.Result.Document, "# Rate Card") {
		t.Errorf("document = %q", snap.Result.Document)
	}

	poll := doRequest(srv, http.MethodGet, "/api/generate/"+accepted.JobID, "", true)
	if poll.Code != http.StatusOK {
		t.Fatalf("poll status = %d", poll.Code)
	}
	if !strings.Contains(poll.Body.String(), `"completed"`) {
		t.Errorf("poll body = %s", poll.Body.String())
	}
}

func TestGenerateStatus_UnknownJob404(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())
	rec := doRequest(srv, http.MethodGet, "/api/generate/nope", "", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGenerate_DocumentNameLookupPreferred(t *testing.T) {
	primary := &fakeLLM{response: "| Item | Price |\n|------|-------|\n| SSO | $99 |"}
	srv, _ := newTestServer(t, primary, &fakeLLM{response: "[]"}, tableOnlyStore())

	// document_type has no schema registered; the (department,
	// document_name) key must resolve it.
	rec := doRequest(srv, http.MethodPost, "/api/generate",
		`{"department":"Marketing","document_type":"pricing","document_name":"Rate Card"}`, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerate_InlineSchemaWins(t *testing.T) {
	primary := &fakeLLM{response: "| Item | Price |\n|------|-------|\n| SSO | $99 |"}
	st := &fakeStore{schemas: map[string]*schema.Schema{}}
	srv, orch := newTestServer(t, primary, &fakeLLM{response: "[]"}, st)

	body := `{"department":"Marketing","document_type":"price list","schema":{"department":"Marketing","document_name":"Rate Card","document_type":"price list","sections":[{"type":"table","columns":["Item","Price"]}]}}`
	rec := doRequest(srv, http.MethodPost, "/api/generate", body, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := orch.GetJob(accepted.JobID).Snapshot()
		if snap.Status == pipeline.StatusCompleted {
			return
		}
		if snap.Status == pipeline.StatusFailed {
			t.Fatalf("job failed: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not complete")
}

func TestGenerate_UnknownSchema404(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())
	rec := doRequest(srv, http.MethodPost, "/api/generate",
		`{"department":"Marketing","document_type":"mystery"}`, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestPages_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, &fakeLLM{}, &fakeLLM{response: "[]"}, tableOnlyStore())
	rec := doRequest(srv, http.MethodGet, "/api/pages?parent=abc", "", true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLLMStats(t *testing.T) {
	primary, err := llm.New(llm.Options{Provider: "anthropic", APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	srv, _ := newTestServer(t, primary, &fakeLLM{response: "[]"}, tableOnlyStore())

	rec := doRequest(srv, http.MethodGet, "/api/stats/llm", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"model":"m"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
