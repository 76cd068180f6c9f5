package domain

// Score recomputes a submission against the stored answer key. When the same
// question is answered more than once, the last answer wins. Answers for questions
// outside the key earn nothing and are counted as Unmatched.
func Score(key AnswerKey, answers []Answer) ScoreResult {
	result := ScoreResult{TotalQuestions: len(key.Correct)}

	effective := make(map[int64]int64, len(answers))
	for _, answer := range answers {
		if _, ok := key.Correct[answer.QuestionID]; !ok {
			result.Unmatched++
			continue
		}
		effective[answer.QuestionID] = answer.OptionID
	}

	for questionID, correctOptionID := range key.Correct {
		chosen, ok := effective[questionID]
		if ok && correctOptionID != 0 && chosen == correctOptionID {
			result.Score++
		}
	}
	return result
}
