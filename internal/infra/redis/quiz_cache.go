package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

const fillTimeout = 5 * time.Second

// CachedQuizStore wraps an app.QuizStore and caches the redacted player view in Redis:
//
//	SET quiz:{CODE}:public <json>
//
// Answer keys are never cached; scoring always reads them from the wrapped store.
// A fill re-checks that the quiz still exists after writing, so a fill racing a delete
// does not leave the deleted view behind. Redis failures degrade to the wrapped store.
type CachedQuizStore struct {
	app.QuizStore

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCachedQuizStore(store app.QuizStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedQuizStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedQuizStore{
		QuizStore: store,
		client:    client,
		ttl:       ttl,
		logger:    logger,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedQuizStore) GetPublic(ctx context.Context, code string) (domain.PublicQuiz, error) {
	if quiz, ok := c.readCache(ctx, code); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(code, func() (interface{}, error) {
		// The fill is shared by every waiter, so one caller going away must not fail the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		// Re-check cache in case another caller filled it.
		if quiz, ok := c.readCache(ctx, code); ok {
			return quiz, nil
		}

		quiz, err := c.QuizStore.GetPublic(ctx, code)
		if err != nil {
			return domain.PublicQuiz{}, err
		}

		payload, err := json.Marshal(quiz)
		if err == nil {
			err = c.client.Set(ctx, publicKey(code), payload, c.ttlWithJitter()).Err()
		}
		if err != nil {
			c.logger.Warn("quiz cache fill failed", "code", code, "error", err)
			return quiz, nil
		}

		// A delete may have landed between the read and the SET; drop what we wrote.
		if _, err := c.QuizStore.GetAnswerKey(ctx, code); errors.Is(err, domain.ErrQuizNotFound) {
			c.evict(ctx, code)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	return result.(domain.PublicQuiz), nil
}

// DeleteQuiz deletes from the wrapped store first, then evicts the cached view.
func (c *CachedQuizStore) DeleteQuiz(ctx context.Context, code string) error {
	if err := c.QuizStore.DeleteQuiz(ctx, code); err != nil {
		return err
	}
	c.evict(ctx, code)
	return nil
}

func (c *CachedQuizStore) evict(ctx context.Context, code string) {
	if err := c.client.Del(ctx, publicKey(code)).Err(); err != nil {
		c.logger.Warn("quiz cache evict failed", "code", code, "error", err)
	}
}

func (c *CachedQuizStore) readCache(ctx context.Context, code string) (domain.PublicQuiz, bool) {
	raw, err := c.client.Get(ctx, publicKey(code)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("quiz cache read failed", "code", code, "error", err)
		}
		return domain.PublicQuiz{}, false
	}
	var quiz domain.PublicQuiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		c.logger.Warn("quiz cache entry corrupt", "code", code, "error", err)
		return domain.PublicQuiz{}, false
	}
	return quiz, true
}

func (c *CachedQuizStore) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func publicKey(code string) string {
	return "quiz:" + code + ":public"
}
