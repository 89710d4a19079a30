package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforge/internal/schema"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetSchema(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sc := &schema.Schema{
		Department:   "Marketing",
		DocumentName: "Launch Plan",
		DocumentType: "launch plan",
		Sections: []schema.Section{
			{Title: "1. Overview", Kind: schema.KindText, Order: 1},
		},
	}
	require.NoError(t, s.PutSchema(ctx, sc))

	got, err := s.GetSchema(ctx, "Marketing", "Launch Plan")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "launch plan", got.DocumentType)
	assert.Len(t, got.Sections, 1)
	assert.Equal(t, "1. Overview", got.Sections[0].Title)
}

func TestGetSchema_MissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSchema(context.Background(), "Nobody", "Nothing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPutSchema_UpsertsInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sc := &schema.Schema{Department: "Marketing", DocumentName: "Launch Plan", DocumentType: "launch plan"}
	require.NoError(t, s.PutSchema(ctx, sc))

	sc.DocumentType = "go-to-market plan"
	require.NoError(t, s.PutSchema(ctx, sc))

	got, err := s.GetSchema(ctx, "Marketing", "Launch Plan")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "go-to-market plan", got.DocumentType)
}

func TestFindSchemaByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSchema(ctx, &schema.Schema{
		Department: "Marketing", DocumentName: "Launch Plan", DocumentType: "launch plan",
	}))

	got, err := s.FindSchemaByType(ctx, "launch plan")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Launch Plan", got.DocumentName)

	missing, err := s.FindSchemaByType(ctx, "unknown type")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func seedQuestion(documentType, question string, isGap bool, rank int) QuestionRecord {
	return QuestionRecord{
		Department:   Department{Code: "MK", Name: "Marketing", Slug: "marketing"},
		DocumentType: documentType,
		Question:     question,
		IsGap:        isGap,
		OrderingRank: rank,
	}
}

func TestUpsertQuestions_InsertThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := seedQuestion("launch plan", "What is the budget?", true, 0)
	rec.Answer = json.RawMessage(`"$50k"`)

	inserted, updated, err := s.UpsertQuestions(ctx, []QuestionRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)

	rec.Answer = json.RawMessage(`"$75k"`)
	inserted, updated, err = s.UpsertQuestions(ctx, []QuestionRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)

	got, err := s.ListGapQuestions(ctx, "launch plan")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, json.RawMessage(`"$75k"`), got[0].Answer)
}

func TestUpsertQuestions_GapRankAboveExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seeded := seedQuestion("launch plan", "Seeded question?", false, 7)
	_, _, err := s.UpsertQuestions(ctx, []QuestionRecord{seeded})
	require.NoError(t, err)

	gapA := seedQuestion("launch plan", "Gap A?", true, 0)
	gapB := seedQuestion("launch plan", "Gap B?", true, 0)
	_, _, err = s.UpsertQuestions(ctx, []QuestionRecord{gapA, gapB})
	require.NoError(t, err)

	got, err := s.ListGapQuestions(ctx, "launch plan")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Gap A?", got[0].Question)
	assert.Equal(t, 8, got[0].OrderingRank)
	assert.Equal(t, "Gap B?", got[1].Question)
	assert.Equal(t, 9, got[1].OrderingRank)
}

func TestUpsertQuestions_UpdateKeepsRank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	gap := seedQuestion("launch plan", "Gap?", true, 0)
	_, _, err := s.UpsertQuestions(ctx, []QuestionRecord{gap})
	require.NoError(t, err)

	before, err := s.ListGapQuestions(ctx, "launch plan")
	require.NoError(t, err)
	require.Len(t, before, 1)

	gap.Category = "Finance"
	_, _, err = s.UpsertQuestions(ctx, []QuestionRecord{gap})
	require.NoError(t, err)

	after, err := s.ListGapQuestions(ctx, "launch plan")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].OrderingRank, after[0].OrderingRank)
	assert.Equal(t, "Finance", after[0].Category)
}

func TestListQuestions_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []QuestionRecord{
		{DocumentType: "launch plan", Question: "Second?", CategoryOrder: 1, QuestionOrder: 2},
		{DocumentType: "launch plan", Question: "First?", CategoryOrder: 1, QuestionOrder: 1},
		{DocumentType: "launch plan", Question: "Third?", CategoryOrder: 2, QuestionOrder: 1},
	}
	_, _, err := s.UpsertQuestions(ctx, recs)
	require.NoError(t, err)

	got, err := s.ListQuestions(ctx, "launch plan")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "First?", got[0].Question)
	assert.Equal(t, "Second?", got[1].Question)
	assert.Equal(t, "Third?", got[2].Question)
}

func TestListDepartmentsAndDocumentTypes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []QuestionRecord{
		{
			Department:   Department{Code: "MK", Name: "Marketing", Slug: "marketing"},
			DocumentType: "launch plan", DocumentName: "Launch Plan", Question: "A?",
		},
		{
			Department:   Department{Code: "HR", Name: "People", Slug: "people"},
			DocumentType: "onboarding guide", DocumentName: "Onboarding Guide", Question: "B?",
		},
	}
	_, _, err := s.UpsertQuestions(ctx, recs)
	require.NoError(t, err)

	departments, err := s.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, "HR", departments[0].Code)
	assert.Equal(t, "MK", departments[1].Code)

	types, err := s.ListDocumentTypes(ctx, "Marketing")
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "launch plan", types[0].DocumentType)
	assert.Equal(t, "Launch Plan", types[0].DocumentName)
}
