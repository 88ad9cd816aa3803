package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// QuestionCache wraps a QuestionSource and keeps every question it has seen in
// a Redis set per difficulty. When the upstream fails (rate limited, offline)
// and the pool holds enough questions, a random sample is served instead.
// Pool layout: SADD quiz:questions:{difficulty} {question json}
type QuestionCache struct {
	client *redis.Client
	next   app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, next app.QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error) {
	questions, err := c.next.FetchQuestions(ctx, amount, difficulty)
	if err == nil {
		c.remember(ctx, difficulty, questions)
		return questions, nil
	}

	result, cacheErr, _ := c.sf.Do(string(difficulty), func() (interface{}, error) {
		return c.sample(ctx, amount, difficulty)
	})
	if cacheErr != nil {
		if !errors.Is(cacheErr, domain.ErrNoQuestions) {
			log.Printf("question cache: %v", cacheErr)
		}
		return nil, err
	}
	log.Printf("question source failed, serving cached questions: %v", err)
	return result.([]domain.Question), nil
}

func (c *QuestionCache) remember(ctx context.Context, difficulty domain.Difficulty, questions []domain.Question) {
	key := c.poolKey(difficulty)
	pipe := c.client.Pipeline()
	for _, q := range questions {
		// Presentation order belongs to a session, not to the pool.
		q.PresentedAnswers = nil
		raw, err := json.Marshal(q)
		if err != nil {
			continue
		}
		pipe.SAdd(ctx, key, raw)
	}
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("cache questions: %v", err)
	}
}

func (c *QuestionCache) sample(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error) {
	key := c.poolKey(difficulty)
	size, err := c.client.SCard(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if size < int64(amount) || size == 0 {
		return nil, domain.ErrNoQuestions
	}

	members, err := c.client.SRandMemberN(ctx, key, int64(amount)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(members))
	for _, raw := range members {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return out, nil
}

func (c *QuestionCache) poolKey(difficulty domain.Difficulty) string {
	return "quiz:questions:" + string(difficulty)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
