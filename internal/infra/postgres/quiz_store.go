package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizmaster-service/internal/domain"
)

const uniqueViolation = "23505"

// QuizStore keeps quizzes, questions and options in Postgres. Share code uniqueness
// is enforced by the quizzes.share_code unique constraint.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

// CreateQuiz inserts the whole tree in one transaction.
func (s *QuizStore) CreateQuiz(ctx context.Context, draft domain.NewQuiz, code string) (domain.Quiz, error) {
	quiz := domain.Quiz{
		ShareCode: code,
		Title:     draft.Title,
		Questions: make([]domain.Question, 0, len(draft.Questions)),
	}

	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO quizzes (share_code, title) VALUES ($1, $2) RETURNING id, created_at`,
			code, draft.Title,
		).Scan(&quiz.ID, &quiz.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrShareCodeTaken
			}
			return fmt.Errorf("insert quiz: %w", err)
		}

		for qPos, q := range draft.Questions {
			question := domain.Question{
				QuestionText: q.QuestionText,
				Options:      make([]domain.Option, 0, len(q.Options)),
			}
			err := tx.QueryRow(ctx,
				`INSERT INTO questions (quiz_id, position, question_text) VALUES ($1, $2, $3) RETURNING id`,
				quiz.ID, qPos, q.QuestionText,
			).Scan(&question.ID)
			if err != nil {
				return fmt.Errorf("insert question %d: %w", qPos, err)
			}

			for oPos, opt := range q.Options {
				option := domain.Option{OptionText: opt.OptionText, IsCorrect: opt.IsCorrect}
				err := tx.QueryRow(ctx,
					`INSERT INTO options (question_id, position, option_text, is_correct) VALUES ($1, $2, $3, $4) RETURNING id`,
					question.ID, oPos, opt.OptionText, opt.IsCorrect,
				).Scan(&option.ID)
				if err != nil {
					return fmt.Errorf("insert option %d.%d: %w", qPos, oPos, err)
				}
				question.Options = append(question.Options, option)
			}
			quiz.Questions = append(quiz.Questions, question)
		}
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.CreatedAt = quiz.CreatedAt.UTC()
	return quiz, nil
}

func (s *QuizStore) ListSummaries(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.title, q.share_code, COUNT(qs.id)
		FROM quizzes q
		LEFT JOIN questions qs ON qs.quiz_id = q.id
		GROUP BY q.id
		ORDER BY q.created_at DESC, q.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.QuizSummary, 0)
	for rows.Next() {
		var sum domain.QuizSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.ShareCode, &sum.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// GetPublic never selects is_correct, so the player view cannot carry it.
func (s *QuizStore) GetPublic(ctx context.Context, code string) (domain.PublicQuiz, error) {
	quiz := domain.PublicQuiz{ShareCode: code}
	var quizID int64
	err := s.pool.QueryRow(ctx,
		`SELECT id, title FROM quizzes WHERE share_code = $1`, code,
	).Scan(&quizID, &quiz.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PublicQuiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.PublicQuiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT qs.id, qs.question_text, o.id, o.option_text
		FROM questions qs
		JOIN options o ON o.question_id = qs.id
		WHERE qs.quiz_id = $1
		ORDER BY qs.position, o.position`, quizID)
	if err != nil {
		return domain.PublicQuiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	quiz.Questions = make([]domain.PublicQuestion, 0)
	for rows.Next() {
		var (
			questionID   int64
			questionText string
			option       domain.PublicOption
		)
		if err := rows.Scan(&questionID, &questionText, &option.ID, &option.OptionText); err != nil {
			return domain.PublicQuiz{}, fmt.Errorf("scan question: %w", err)
		}
		n := len(quiz.Questions)
		if n == 0 || quiz.Questions[n-1].ID != questionID {
			quiz.Questions = append(quiz.Questions, domain.PublicQuestion{
				ID:           questionID,
				QuestionText: questionText,
				Options:      make([]domain.PublicOption, 0, 4),
			})
			n++
		}
		quiz.Questions[n-1].Options = append(quiz.Questions[n-1].Options, option)
	}
	if err := rows.Err(); err != nil {
		return domain.PublicQuiz{}, err
	}
	return quiz, nil
}

func (s *QuizStore) GetAnswerKey(ctx context.Context, code string) (domain.AnswerKey, error) {
	key := domain.AnswerKey{Correct: make(map[int64]int64)}
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM quizzes WHERE share_code = $1`, code,
	).Scan(&key.QuizID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AnswerKey{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT qs.id, COALESCE(o.id, 0)
		FROM questions qs
		LEFT JOIN options o ON o.question_id = qs.id AND o.is_correct
		WHERE qs.quiz_id = $1`, key.QuizID)
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var questionID, optionID int64
		if err := rows.Scan(&questionID, &optionID); err != nil {
			return domain.AnswerKey{}, fmt.Errorf("scan answer key: %w", err)
		}
		key.Correct[questionID] = optionID
	}
	return key, rows.Err()
}

// DeleteQuiz relies on ON DELETE CASCADE for questions, options and submissions.
func (s *QuizStore) DeleteQuiz(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE share_code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
