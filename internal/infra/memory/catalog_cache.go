package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quizrank-service/internal/domain"
)

// QuestionLoader fetches catalog questions from a backing store.
type QuestionLoader interface {
	ListQuestions(ctx context.Context, subject string) ([]domain.Question, error)
}

// CatalogCache caches questions per subject with TTL to avoid repeated DB hits.
type CatalogCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedSubject
}

type cachedSubject struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCatalogCache(loader QuestionLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedSubject),
	}
}

// ListQuestions returns the cached questions of subject, loading them on miss.
// Callers must treat the returned slice as read-only.
func (c *CatalogCache) ListQuestions(ctx context.Context, subject string) ([]domain.Question, error) {
	if questions, ok := c.lookup(subject); ok {
		return questions, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(subject, func() (interface{}, error) {
		if questions, ok := c.lookup(subject); ok {
			return questions, nil
		}

		questions, err := c.loader.ListQuestions(shared, subject)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 {
			c.mu.Lock()
			c.cache[subject] = cachedSubject{
				questions: questions,
				expiresAt: c.clock().Add(ttl),
			}
			c.mu.Unlock()
		}
		return questions, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Question), nil
	}
}

// Invalidate drops a subject so the next read reloads it.
func (c *CatalogCache) Invalidate(subject string) {
	c.mu.Lock()
	delete(c.cache, subject)
	c.mu.Unlock()
}

func (c *CatalogCache) lookup(subject string) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[subject]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.questions, true
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
