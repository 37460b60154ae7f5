package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcq-study/backend/internal/content"
)

const dbTimeout = 5 * time.Second

// EnsureSchema creates the ledger tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS answer_records (
			user_id     TEXT        NOT NULL,
			question_id TEXT        NOT NULL,
			chapter_id  TEXT        NOT NULL,
			option_id   TEXT        NOT NULL,
			is_correct  BOOLEAN     NOT NULL,
			answered_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, question_id)
		);
		CREATE INDEX IF NOT EXISTS answer_records_user_chapter_idx
			ON answer_records (user_id, chapter_id);
		CREATE TABLE IF NOT EXISTS saved_questions (
			user_id     TEXT        NOT NULL,
			question_id TEXT        NOT NULL,
			question    JSONB       NOT NULL,
			saved_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, question_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresStore is a PostgreSQL-backed answer ledger.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed Store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, userID string, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if rec.QuestionID == "" {
		return fmt.Errorf("question_id is required")
	}
	answeredAt := rec.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO answer_records (user_id, question_id, chapter_id, option_id, is_correct, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, question_id) DO UPDATE
		 SET chapter_id = EXCLUDED.chapter_id,
		     option_id = EXCLUDED.option_id,
		     is_correct = EXCLUDED.is_correct,
		     answered_at = EXCLUDED.answered_at`,
		userID,
		rec.QuestionID,
		rec.ChapterID,
		rec.OptionID,
		rec.Correct,
		answeredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertBatch(ctx context.Context, userID string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, rec := range recs {
		answeredAt := rec.AnsweredAt
		if answeredAt.IsZero() {
			answeredAt = time.Now()
		}
		batch.Queue(
			`INSERT INTO answer_records (user_id, question_id, chapter_id, option_id, is_correct, answered_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (user_id, question_id) DO UPDATE
			 SET chapter_id = EXCLUDED.chapter_id,
			     option_id = EXCLUDED.option_id,
			     is_correct = EXCLUDED.is_correct,
			     answered_at = EXCLUDED.answered_at`,
			userID,
			rec.QuestionID,
			rec.ChapterID,
			rec.OptionID,
			rec.Correct,
			answeredAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ByUser(ctx context.Context, userID string) ([]Record, error) {
	return s.query(ctx,
		`SELECT question_id, chapter_id, option_id, is_correct, answered_at
		 FROM answer_records
		 WHERE user_id = $1
		 ORDER BY answered_at ASC, question_id ASC`,
		userID,
	)
}

func (s *PostgresStore) ByChapter(ctx context.Context, userID, chapterID string) ([]Record, error) {
	return s.query(ctx,
		`SELECT question_id, chapter_id, option_id, is_correct, answered_at
		 FROM answer_records
		 WHERE user_id = $1 AND chapter_id = $2
		 ORDER BY answered_at ASC, question_id ASC`,
		userID, chapterID,
	)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.QuestionID,
			&rec.ChapterID,
			&rec.OptionID,
			&rec.Correct,
			&rec.AnsweredAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// PostgresSavedStore is a PostgreSQL-backed SavedStore holding full question
// snapshots as JSONB.
type PostgresSavedStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSavedStore creates a PostgreSQL-backed SavedStore.
func NewPostgresSavedStore(pool *pgxpool.Pool) (*PostgresSavedStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresSavedStore{pool: pool}, nil
}

func (s *PostgresSavedStore) Add(ctx context.Context, userID string, q content.Question) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if q.ID == "" {
		return fmt.Errorf("question id is required")
	}

	snapshot, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO saved_questions (user_id, question_id, question, saved_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, question_id) DO UPDATE
		 SET question = EXCLUDED.question`,
		userID,
		q.ID,
		snapshot,
	)
	if err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

func (s *PostgresSavedStore) Remove(ctx context.Context, userID, questionID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`DELETE FROM saved_questions WHERE user_id = $1 AND question_id = $2`,
		userID, questionID,
	)
	if err != nil {
		return fmt.Errorf("remove saved question: %w", err)
	}
	return nil
}

func (s *PostgresSavedStore) List(ctx context.Context, userID string) ([]content.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT question
		 FROM saved_questions
		 WHERE user_id = $1
		 ORDER BY saved_at ASC, question_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query saved questions: %w", err)
	}
	defer rows.Close()

	var out []content.Question
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("scan saved question: %w", err)
		}
		var q content.Question
		if err := json.Unmarshal(snapshot, &q); err != nil {
			return nil, fmt.Errorf("unmarshal saved question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved questions: %w", err)
	}
	return out, nil
}
