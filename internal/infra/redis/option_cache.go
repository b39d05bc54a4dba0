package redis

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizrank-service/internal/app"
)

// OptionCache decorates a RecordStore and caches option correctness in Redis.
// Flags are stored as: HSET quiz:question:{questionID}:options {optionID} 1|0
// Unknown options are never cached, so a miss always reaches the store.
type OptionCache struct {
	app.RecordStore

	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
}

var _ app.RecordStore = (*OptionCache)(nil)

func NewOptionCache(store app.RecordStore, client *redis.Client, ttl time.Duration) *OptionCache {
	return &OptionCache{
		RecordStore: store,
		client:      client,
		ttl:         ttl,
	}
}

func (c *OptionCache) GetOptionCorrectness(ctx context.Context, optionID, questionID string) (bool, error) {
	key := c.key(questionID)

	flag, err := c.client.HGet(ctx, key, optionID).Result()
	if err == nil {
		return flag == "1", nil
	}
	// redis.Nil is a plain miss; anything else means the cache is unavailable
	// and the store answers alone

	// detached so one aborted submit cannot fail the others sharing the load
	shared := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(questionID+"/"+optionID, func() (interface{}, error) {
		correct, err := c.RecordStore.GetOptionCorrectness(shared, optionID, questionID)
		if err != nil {
			return false, err
		}

		flag := "0"
		if correct {
			flag = "1"
		}
		pipe := c.client.Pipeline()
		pipe.HSet(shared, key, optionID, flag)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(shared, key, ttl)
		}
		_, _ = pipe.Exec(shared)
		return correct, nil
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// Forget drops the cached flags of a question, e.g. after its options change.
func (c *OptionCache) Forget(ctx context.Context, questionID string) error {
	err := c.client.Del(ctx, c.key(questionID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (c *OptionCache) key(questionID string) string {
	return "quiz:question:" + questionID + ":options"
}

func (c *OptionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
