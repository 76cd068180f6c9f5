package app

import (
	"context"
	"errors"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/sharecode"
)

// WatchRanking streams leaderboard snapshots for a quiz: the current ranking first,
// then a fresh one after every ranking-changed signal. The channel is closed when ctx
// is done or the quiz is deleted.
func (s *QuizService) WatchRanking(ctx context.Context, rawCode string) (<-chan []domain.Submission, error) {
	code, ok := sharecode.Normalize(rawCode)
	if !ok {
		return nil, domain.ErrQuizNotFound
	}

	// Subscribe before the first read so no submission falls between the two.
	signals, cancel, err := s.notifier.Subscribe(ctx, code)
	if err != nil {
		return nil, err
	}

	initial, err := s.ledger.ListFor(ctx, code)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []domain.Submission, 1)
	out <- initial

	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				entries, err := s.ledger.ListFor(ctx, code)
				if errors.Is(err, domain.ErrQuizNotFound) {
					return
				}
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Warn("ranking refresh failed", "code", code, "error", err)
					continue
				}
				// Keep only the newest snapshot for slow readers.
				select {
				case out <- entries:
				default:
					select {
					case <-out:
					default:
					}
					out <- entries
				}
			}
		}
	}()

	return out, nil
}
