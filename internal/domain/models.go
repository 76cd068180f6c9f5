package domain

import "time"

// AnonymousPlayer is stored when a submission arrives without a player name.
const AnonymousPlayer = "Anonymous"

// NewQuiz is an authoring payload: a quiz tree that has not been persisted yet.
type NewQuiz struct {
	Title     string        `json:"title" validate:"required"`
	Questions []NewQuestion `json:"questions" validate:"required,min=1,max=100,dive"`
}

// NewQuestion is a question inside an authoring payload.
type NewQuestion struct {
	QuestionText string      `json:"question_text" validate:"required"`
	Options      []NewOption `json:"options" validate:"required,min=2,max=10,dive"`
}

// NewOption is an option inside an authoring payload.
type NewOption struct {
	OptionText string `json:"option_text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
}

// Quiz is the author view of a stored quiz, answer key included.
type Quiz struct {
	ID        int64
	ShareCode string
	Title     string
	Questions []Question
	CreatedAt time.Time
}

// Question is a stored question with its ordered options.
type Question struct {
	ID           int64
	QuestionText string
	Options      []Option
}

// Option is a stored option. IsCorrect never leaves the service.
type Option struct {
	ID         int64
	OptionText string
	IsCorrect  bool
}

// QuizSummary is one row of the author listing.
type QuizSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ShareCode     string `json:"share_code"`
	QuestionCount int    `json:"question_count"`
}

// PublicQuiz is the redacted view served to players. It has no correctness field
// at any level, so it cannot leak the answer key when encoded.
type PublicQuiz struct {
	ShareCode string           `json:"share_code"`
	Title     string           `json:"title"`
	Questions []PublicQuestion `json:"questions"`
}

// PublicQuestion is a question in the player view.
type PublicQuestion struct {
	ID           int64          `json:"id"`
	QuestionText string         `json:"question_text"`
	Options      []PublicOption `json:"options"`
}

// PublicOption is an option in the player view.
type PublicOption struct {
	ID         int64  `json:"id"`
	OptionText string `json:"option_text"`
}

// AnswerKey maps every question of a quiz to its correct option.
type AnswerKey struct {
	QuizID  int64
	Correct map[int64]int64
}

// Answer is one submitted (question, option) pair.
type Answer struct {
	QuestionID int64 `json:"question_id"`
	OptionID   int64 `json:"option_id"`
}

// ScoreResult is the outcome of scoring one submission.
type ScoreResult struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"total_questions"`
	// Unmatched counts answers whose question id is not part of the quiz.
	Unmatched int `json:"-"`
}

// Submission is an immutable ranking ledger entry.
type Submission struct {
	ID             int64     `json:"-"`
	QuizID         int64     `json:"-"`
	PlayerName     string    `json:"player_name"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Summary returns the listing row for q.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		ShareCode:     q.ShareCode,
		QuestionCount: len(q.Questions),
	}
}

// Public strips the answer key from q.
func (q Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		options := make([]PublicOption, 0, len(question.Options))
		for _, opt := range question.Options {
			options = append(options, PublicOption{ID: opt.ID, OptionText: opt.OptionText})
		}
		questions = append(questions, PublicQuestion{
			ID:           question.ID,
			QuestionText: question.QuestionText,
			Options:      options,
		})
	}
	return PublicQuiz{ShareCode: q.ShareCode, Title: q.Title, Questions: questions}
}

// AnswerKey extracts the correct option of every question. A question without a
// correct option maps to 0, which no option id can match.
func (q Quiz) AnswerKey() AnswerKey {
	key := AnswerKey{QuizID: q.ID, Correct: make(map[int64]int64, len(q.Questions))}
	for _, question := range q.Questions {
		key.Correct[question.ID] = 0
		for _, opt := range question.Options {
			if opt.IsCorrect {
				key.Correct[question.ID] = opt.ID
				break
			}
		}
	}
	return key
}
