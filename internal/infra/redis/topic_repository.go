package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-room-service/internal/domain"
)

// TopicLoader fetches question banks from a backing store (e.g., Postgres).
type TopicLoader interface {
	LoadBank(ctx context.Context, topic string) (domain.TopicBank, error)
}

// TopicRepository caches question banks in Redis (one JSON value per topic)
// and falls back to the loader on cache miss. Concurrent misses for the same
// topic collapse into a single load.
type TopicRepository struct {
	client *redis.Client
	loader TopicLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewTopicRepository(client *redis.Client, loader TopicLoader, ttl time.Duration) *TopicRepository {
	return &TopicRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TopicRepository) GetBank(ctx context.Context, topic string) (domain.TopicBank, error) {
	key := r.bankKey(topic)

	if bank, ok := r.fromCache(ctx, key); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(topic, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.fromCache(ctx, key); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, topic)
		if err != nil {
			return domain.TopicBank{}, err
		}

		if data, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.TopicBank{}, err
	}
	return result.(domain.TopicBank), nil
}

func (r *TopicRepository) fromCache(ctx context.Context, key string) (domain.TopicBank, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.TopicBank{}, false
	}
	var bank domain.TopicBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.TopicBank{}, false
	}
	return bank, true
}

func (r *TopicRepository) bankKey(topic string) string {
	return fmt.Sprintf("topic:%s:bank", topic)
}

func (r *TopicRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
