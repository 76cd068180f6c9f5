package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizmaster-service/internal/domain"
)

// Ledger is the Postgres ranking ledger. Rows cascade away with their quiz.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Record resolves the quiz and inserts in one statement, so a concurrent delete
// yields ErrQuizNotFound rather than an orphan row.
func (l *Ledger) Record(ctx context.Context, code string, entry domain.Submission) (domain.Submission, error) {
	err := l.pool.QueryRow(ctx, `
		INSERT INTO submissions (quiz_id, player_name, score, total_questions, submitted_at)
		SELECT id, $2, $3, $4, $5 FROM quizzes WHERE share_code = $1
		RETURNING id, quiz_id`,
		code, entry.PlayerName, entry.Score, entry.TotalQuestions, entry.SubmittedAt,
	).Scan(&entry.ID, &entry.QuizID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return entry, nil
}

func (l *Ledger) ListFor(ctx context.Context, code string) ([]domain.Submission, error) {
	var quizID int64
	err := l.pool.QueryRow(ctx, `SELECT id FROM quizzes WHERE share_code = $1`, code).Scan(&quizID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, player_name, score, total_questions, submitted_at
		FROM submissions
		WHERE quiz_id = $1
		ORDER BY score DESC, submitted_at ASC, id ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.Submission, 0)
	for rows.Next() {
		entry := domain.Submission{QuizID: quizID}
		if err := rows.Scan(&entry.ID, &entry.PlayerName, &entry.Score, &entry.TotalQuestions, &entry.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		entry.SubmittedAt = entry.SubmittedAt.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
