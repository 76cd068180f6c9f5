package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"quizmaster-service/internal/domain"
)

// Store is an in-memory implementation of app.QuizStore and app.RankingLedger.
// The share code map is the uniqueness constraint: inserts are check-and-set under
// one write lock, so concurrent creates can never share a code.
type Store struct {
	clock func() time.Time
	seq   atomic.Int64

	mu     sync.RWMutex
	byCode map[string]*quizRecord
}

type quizRecord struct {
	quiz domain.Quiz

	// mu serializes appends to one quiz's ledger only.
	mu          sync.Mutex
	submissions []domain.Submission
}

func NewStore() *Store {
	return &Store{
		clock:  time.Now,
		byCode: make(map[string]*quizRecord),
	}
}

func (s *Store) CreateQuiz(ctx context.Context, draft domain.NewQuiz, code string) (domain.Quiz, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:        s.seq.Add(1),
		ShareCode: code,
		Title:     draft.Title,
		Questions: make([]domain.Question, 0, len(draft.Questions)),
		CreatedAt: s.clock().UTC(),
	}
	for _, q := range draft.Questions {
		question := domain.Question{
			ID:           s.seq.Add(1),
			QuestionText: q.QuestionText,
			Options:      make([]domain.Option, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, domain.Option{
				ID:         s.seq.Add(1),
				OptionText: opt.OptionText,
				IsCorrect:  opt.IsCorrect,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byCode[code]; taken {
		return domain.Quiz{}, domain.ErrShareCodeTaken
	}
	s.byCode[code] = &quizRecord{quiz: quiz}
	return cloneQuiz(quiz), nil
}

func (s *Store) ListSummaries(_ context.Context) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	records := make([]*quizRecord, 0, len(s.byCode))
	for _, rec := range s.byCode {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].quiz, records[j].quiz
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	summaries := make([]domain.QuizSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, rec.quiz.Summary())
	}
	return summaries, nil
}

func (s *Store) GetPublic(_ context.Context, code string) (domain.PublicQuiz, error) {
	rec, ok := s.lookup(code)
	if !ok {
		return domain.PublicQuiz{}, domain.ErrQuizNotFound
	}
	return rec.quiz.Public(), nil
}

func (s *Store) GetAnswerKey(_ context.Context, code string) (domain.AnswerKey, error) {
	rec, ok := s.lookup(code)
	if !ok {
		return domain.AnswerKey{}, domain.ErrQuizNotFound
	}
	return rec.quiz.AnswerKey(), nil
}

// DeleteQuiz drops the quiz record, which owns its questions, options and ledger.
func (s *Store) DeleteQuiz(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCode[code]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.byCode, code)
	return nil
}

// Record appends a ledger entry. The store read lock is held for the whole append so
// a concurrent delete cannot orphan the entry.
func (s *Store) Record(ctx context.Context, code string, entry domain.Submission) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byCode[code]
	if !ok {
		return domain.Submission{}, domain.ErrQuizNotFound
	}

	entry.ID = s.seq.Add(1)
	entry.QuizID = rec.quiz.ID
	rec.mu.Lock()
	rec.submissions = append(rec.submissions, entry)
	rec.mu.Unlock()
	return entry, nil
}

func (s *Store) ListFor(_ context.Context, code string) ([]domain.Submission, error) {
	rec, ok := s.lookup(code)
	if !ok {
		return nil, domain.ErrQuizNotFound
	}

	rec.mu.Lock()
	entries := make([]domain.Submission, len(rec.submissions))
	copy(entries, rec.submissions)
	rec.mu.Unlock()

	domain.SortRanking(entries)
	return entries, nil
}

func (s *Store) lookup(code string) (*quizRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byCode[code]
	return rec, ok
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question
		out.Questions[i].Options = append([]domain.Option(nil), question.Options...)
	}
	return out
}
