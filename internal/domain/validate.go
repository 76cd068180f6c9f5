package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize returns a copy of q with surrounding whitespace trimmed from every text.
func (q NewQuiz) Normalize() NewQuiz {
	out := NewQuiz{Title: strings.TrimSpace(q.Title)}
	if q.Questions == nil {
		return out
	}
	out.Questions = make([]NewQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		nq := NewQuestion{QuestionText: strings.TrimSpace(question.QuestionText)}
		if question.Options != nil {
			nq.Options = make([]NewOption, 0, len(question.Options))
			for _, opt := range question.Options {
				nq.Options = append(nq.Options, NewOption{
					OptionText: strings.TrimSpace(opt.OptionText),
					IsCorrect:  opt.IsCorrect,
				})
			}
		}
		out.Questions = append(out.Questions, nq)
	}
	return out
}

// Validate checks the structural invariants of an authoring payload. Every failure
// wraps ErrInvalidQuiz. Call Normalize first so blank texts are rejected.
func (q NewQuiz) Validate() error {
	if err := validate.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidQuiz, describeFieldError(fieldErrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}

	for i, question := range q.Questions {
		correct := 0
		for _, opt := range question.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: question %d must have exactly one correct option, got %d", ErrInvalidQuiz, i+1, correct)
		}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q check", field, fe.Tag())
	}
}
