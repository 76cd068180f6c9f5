package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/sharecode"
)

const (
	defaultDraftQuestions = 5
	maxDraftQuestions     = 20
	defaultDraftTimeout   = 30 * time.Second
)

// QuizStore owns quizzes, questions and options (in-memory, Postgres, cached, etc).
type QuizStore interface {
	// CreateQuiz persists the whole tree under code or nothing at all. It returns
	// domain.ErrShareCodeTaken when code is already in use.
	CreateQuiz(ctx context.Context, draft domain.NewQuiz, code string) (domain.Quiz, error)
	ListSummaries(ctx context.Context) ([]domain.QuizSummary, error)
	GetPublic(ctx context.Context, code string) (domain.PublicQuiz, error)
	GetAnswerKey(ctx context.Context, code string) (domain.AnswerKey, error)
	// DeleteQuiz removes the quiz and everything it owns, ranking entries included.
	DeleteQuiz(ctx context.Context, code string) error
}

// RankingLedger is the append-only log of scored submissions.
type RankingLedger interface {
	Record(ctx context.Context, code string, entry domain.Submission) (domain.Submission, error)
	ListFor(ctx context.Context, code string) ([]domain.Submission, error)
}

// RankingNotifier fans out "ranking changed" signals per share code.
type RankingNotifier interface {
	Publish(ctx context.Context, code string) error
	// Subscribe returns a coalescing signal channel. The caller must invoke the
	// returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, code string) (<-chan struct{}, func(), error)
}

// DraftGenerator produces a quiz draft for a topic. Implementations report failures
// and do not retry.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, topic string, count int) (domain.NewQuiz, error)
}

// QuizService contains the quiz lifecycle and scoring use cases.
type QuizService struct {
	quizzes      QuizStore
	ledger       RankingLedger
	codes        *sharecode.Generator
	notifier     RankingNotifier
	drafts       DraftGenerator
	draftTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

type Option func(*QuizService)

func WithCodeGenerator(g *sharecode.Generator) Option {
	return func(s *QuizService) { s.codes = g }
}

func WithNotifier(n RankingNotifier) Option {
	return func(s *QuizService) { s.notifier = n }
}

func WithDraftGenerator(g DraftGenerator, timeout time.Duration) Option {
	return func(s *QuizService) {
		s.drafts = g
		if timeout > 0 {
			s.draftTimeout = timeout
		}
	}
}

// WithClock is used by tests for deterministic submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *QuizService) { s.logger = l }
}

func NewQuizService(quizzes QuizStore, ledger RankingLedger, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:      quizzes,
		ledger:       ledger,
		codes:        sharecode.New(),
		notifier:     nopNotifier{},
		draftTimeout: defaultDraftTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz validates the draft and stores it under a freshly allocated share code.
func (s *QuizService) CreateQuiz(ctx context.Context, draft domain.NewQuiz) (domain.Quiz, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	var created domain.Quiz
	code, err := s.codes.Allocate(ctx, func(ctx context.Context, code string) error {
		quiz, err := s.quizzes.CreateQuiz(ctx, draft, code)
		if err != nil {
			if errors.Is(err, domain.ErrShareCodeTaken) {
				s.logger.Debug("share code collision", "code", code)
			}
			return err
		}
		created = quiz
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}

	s.logger.Info("quiz created", "quiz_id", created.ID, "code", code, "questions", len(created.Questions))
	return created, nil
}

// ListQuizzes returns the author listing.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return s.quizzes.ListSummaries(ctx)
}

// GetQuiz returns the redacted player view.
func (s *QuizService) GetQuiz(ctx context.Context, rawCode string) (domain.PublicQuiz, error) {
	code, ok := sharecode.Normalize(rawCode)
	if !ok {
		return domain.PublicQuiz{}, domain.ErrQuizNotFound
	}
	return s.quizzes.GetPublic(ctx, code)
}

// Submit scores answers against the stored answer key and records the result in the
// ranking ledger before reporting it.
func (s *QuizService) Submit(ctx context.Context, rawCode, playerName string, answers []domain.Answer) (domain.ScoreResult, error) {
	if answers == nil {
		return domain.ScoreResult{}, fmt.Errorf("%w: answers is required", domain.ErrMalformedSubmission)
	}
	code, ok := sharecode.Normalize(rawCode)
	if !ok {
		return domain.ScoreResult{}, domain.ErrQuizNotFound
	}

	key, err := s.quizzes.GetAnswerKey(ctx, code)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	result := domain.Score(key, answers)
	entry := domain.Submission{
		QuizID:         key.QuizID,
		PlayerName:     domain.NormalizePlayerName(playerName),
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		SubmittedAt:    s.now().UTC().Truncate(time.Microsecond),
	}
	if _, err := s.ledger.Record(ctx, code, entry); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("record submission: %w", err)
	}

	if err := s.notifier.Publish(ctx, code); err != nil {
		s.logger.Warn("ranking notify failed", "code", code, "error", err)
	}
	if result.Unmatched > 0 {
		s.logger.Debug("submission referenced unknown questions", "code", code, "unmatched", result.Unmatched)
	}
	s.logger.Info("submission scored", "code", code, "score", result.Score, "total", result.TotalQuestions)
	return result, nil
}

// Ranking returns the leaderboard for a quiz.
func (s *QuizService) Ranking(ctx context.Context, rawCode string) ([]domain.Submission, error) {
	code, ok := sharecode.Normalize(rawCode)
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return s.ledger.ListFor(ctx, code)
}

// DeleteQuiz removes a quiz with its questions, options and ranking entries.
func (s *QuizService) DeleteQuiz(ctx context.Context, rawCode string) error {
	code, ok := sharecode.Normalize(rawCode)
	if !ok {
		return domain.ErrQuizNotFound
	}
	if err := s.quizzes.DeleteQuiz(ctx, code); err != nil {
		return err
	}
	// Wake watchers so they observe the deletion and close.
	if err := s.notifier.Publish(ctx, code); err != nil {
		s.logger.Warn("ranking notify failed", "code", code, "error", err)
	}
	s.logger.Info("quiz deleted", "code", code)
	return nil
}

// GenerateDraft asks the configured provider for a quiz draft. The draft is not
// stored; authors review it and submit it through CreateQuiz.
func (s *QuizService) GenerateDraft(ctx context.Context, topic string, count int) (domain.NewQuiz, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.NewQuiz{}, fmt.Errorf("%w: topic is required", domain.ErrInvalidDraftRequest)
	}
	if s.drafts == nil {
		return domain.NewQuiz{}, fmt.Errorf("%w: draft generation is not configured", domain.ErrProviderFailure)
	}
	if count <= 0 {
		count = defaultDraftQuestions
	}
	if count > maxDraftQuestions {
		count = maxDraftQuestions
	}

	ctx, cancel := context.WithTimeout(ctx, s.draftTimeout)
	defer cancel()

	draft, err := s.drafts.GenerateDraft(ctx, topic, count)
	if err != nil {
		s.logger.Warn("draft generation failed", "topic", topic, "error", err)
		if errors.Is(err, domain.ErrProviderFailure) {
			return domain.NewQuiz{}, err
		}
		return domain.NewQuiz{}, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}

	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return domain.NewQuiz{}, fmt.Errorf("%w: provider returned an unusable quiz: %v", domain.ErrProviderFailure, err)
	}
	return draft, nil
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string) error { return nil }

func (nopNotifier) Subscribe(context.Context, string) (<-chan struct{}, func(), error) {
	return make(chan struct{}), func() {}, nil
}
