package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"docforge/internal/schema"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists schemas and question records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schemas (
			department    TEXT NOT NULL,
			document_name TEXT NOT NULL,
			document_type TEXT NOT NULL DEFAULT '',
			payload       TEXT NOT NULL,
			PRIMARY KEY (department, document_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schemas_document_type ON schemas(document_type)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			department_code TEXT NOT NULL DEFAULT '',
			department_name TEXT NOT NULL DEFAULT '',
			department_slug TEXT NOT NULL DEFAULT '',
			document_type   TEXT NOT NULL,
			document_name   TEXT NOT NULL DEFAULT '',
			question        TEXT NOT NULL,
			is_gap          INTEGER NOT NULL DEFAULT 0,
			category        TEXT NOT NULL DEFAULT '',
			answer_kind     TEXT NOT NULL DEFAULT 'text',
			section_covered TEXT NOT NULL DEFAULT '',
			answer          TEXT,
			category_order  INTEGER NOT NULL DEFAULT 0,
			question_order  INTEGER NOT NULL DEFAULT 0,
			ordering_rank   INTEGER NOT NULL DEFAULT 0,
			answered_at     TIMESTAMP,
			UNIQUE (document_type, question, is_gap)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_document_type ON questions(document_type)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_department ON questions(department_name)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetSchema(ctx context.Context, department, documentName string) (*schema.Schema, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM schemas WHERE department = ? AND document_name = ?`,
		department, documentName)
	return scanSchema(row)
}

func (s *SQLiteStore) FindSchemaByType(ctx context.Context, documentType string) (*schema.Schema, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM schemas WHERE document_type = ? ORDER BY department LIMIT 1`,
		documentType)
	return scanSchema(row)
}

func scanSchema(row *sql.Row) (*schema.Schema, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan schema: %w", err)
	}
	var sc schema.Schema
	if err := json.Unmarshal([]byte(payload), &sc); err != nil {
		return nil, fmt.Errorf("decode schema payload: %w", err)
	}
	return &sc, nil
}

func (s *SQLiteStore) PutSchema(ctx context.Context, sc *schema.Schema) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode schema payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schemas (department, document_name, document_type, payload)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(department, document_name) DO UPDATE SET
			document_type = excluded.document_type,
			payload       = excluded.payload`,
		sc.Department, sc.DocumentName, sc.DocumentType, string(payload))
	if err != nil {
		return fmt.Errorf("put schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT department_code, department_name, department_slug
		 FROM questions WHERE department_name != ''
		 ORDER BY department_code, department_name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.Code, &d.Name, &d.Slug); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListDocumentTypes(ctx context.Context, department string) ([]DocumentType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT document_type, document_name
		 FROM questions WHERE department_name = ?
		 ORDER BY document_type`,
		department)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()

	var out []DocumentType
	for rows.Next() {
		var dt DocumentType
		if err := rows.Scan(&dt.DocumentType, &dt.DocumentName); err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

const questionColumns = `department_code, department_name, department_slug,
	document_type, document_name, question, is_gap, category, answer_kind,
	section_covered, answer, category_order, question_order, ordering_rank, answered_at`

func (s *SQLiteStore) ListQuestions(ctx context.Context, documentType string) ([]QuestionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE document_type = ?
		 ORDER BY category_order, question_order, ordering_rank`,
		documentType)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (s *SQLiteStore) ListGapQuestions(ctx context.Context, documentType string) ([]QuestionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE document_type = ? AND is_gap = 1
		 ORDER BY ordering_rank`,
		documentType)
	if err != nil {
		return nil, fmt.Errorf("list gap questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]QuestionRecord, error) {
	var out []QuestionRecord
	for rows.Next() {
		var (
			rec        QuestionRecord
			isGap      int
			answer     sql.NullString
			answerKind string
			answeredAt sql.NullTime
		)
		if err := rows.Scan(
			&rec.Department.Code, &rec.Department.Name, &rec.Department.Slug,
			&rec.DocumentType, &rec.DocumentName, &rec.Question, &isGap,
			&rec.Category, &answerKind, &rec.SectionCovered, &answer,
			&rec.CategoryOrder, &rec.QuestionOrder, &rec.OrderingRank, &answeredAt,
		); err != nil {
			return nil, err
		}
		rec.IsGap = isGap != 0
		rec.AnswerKind = schema.AnswerKind(answerKind)
		if answer.Valid {
			rec.Answer = json.RawMessage(answer.String)
		}
		if answeredAt.Valid {
			rec.AnsweredAt = answeredAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertQuestions writes records in one transaction. A record matching
// an existing (document_type, question, is_gap) row updates it in
// place, keeping the original rank; new gap records are ranked after
// everything already stored for the document type so gap questions
// always sort behind seeded ones.
func (s *SQLiteStore) UpsertQuestions(ctx context.Context, records []QuestionRecord) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	maxRanks := make(map[string]int)
	var inserted, updated int

	for _, rec := range records {
		var existingRank int
		err := tx.QueryRowContext(ctx,
			`SELECT ordering_rank FROM questions
			 WHERE document_type = ? AND question = ? AND is_gap = ?`,
			rec.DocumentType, rec.Question, boolToInt(rec.IsGap)).Scan(&existingRank)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE questions SET
					department_code = ?, department_name = ?, department_slug = ?,
					document_name = ?, category = ?, answer_kind = ?,
					section_covered = ?, answer = ?, category_order = ?,
					question_order = ?, answered_at = ?
				 WHERE document_type = ? AND question = ? AND is_gap = ?`,
				rec.Department.Code, rec.Department.Name, rec.Department.Slug,
				rec.DocumentName, rec.Category, string(rec.AnswerKind),
				rec.SectionCovered, nullableJSON(rec.Answer), rec.CategoryOrder,
				rec.QuestionOrder, nullableTime(rec.AnsweredAt),
				rec.DocumentType, rec.Question, boolToInt(rec.IsGap),
			); err != nil {
				return 0, 0, fmt.Errorf("update question: %w", err)
			}
			updated++

		case err == sql.ErrNoRows:
			rank := rec.OrderingRank
			if rec.IsGap {
				highest, ok := maxRanks[rec.DocumentType]
				if !ok {
					if err := tx.QueryRowContext(ctx,
						`SELECT COALESCE(MAX(ordering_rank), 0) FROM questions WHERE document_type = ?`,
						rec.DocumentType).Scan(&highest); err != nil {
						return 0, 0, fmt.Errorf("max rank: %w", err)
					}
				}
				highest++
				maxRanks[rec.DocumentType] = highest
				rank = highest
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO questions (
					department_code, department_name, department_slug,
					document_type, document_name, question, is_gap, category,
					answer_kind, section_covered, answer, category_order,
					question_order, ordering_rank, answered_at
				 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.Department.Code, rec.Department.Name, rec.Department.Slug,
				rec.DocumentType, rec.DocumentName, rec.Question, boolToInt(rec.IsGap),
				rec.Category, string(rec.AnswerKind), rec.SectionCovered,
				nullableJSON(rec.Answer), rec.CategoryOrder, rec.QuestionOrder,
				rank, nullableTime(rec.AnsweredAt),
			); err != nil {
				return 0, 0, fmt.Errorf("insert question: %w", err)
			}
			inserted++

		default:
			return 0, 0, fmt.Errorf("lookup question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit upsert: %w", err)
	}
	return inserted, updated, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
