package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-room-service/internal/domain"
)

// TopicLoader fetches question banks from a backing store (e.g., Postgres).
type TopicLoader interface {
	LoadBank(ctx context.Context, topic string) (domain.TopicBank, error)
}

// TopicRepository caches question banks with TTL to avoid repeated DB hits.
type TopicRepository struct {
	loader TopicLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.TopicBank
	expiresAt time.Time
}

func NewTopicRepository(loader TopicLoader, ttl time.Duration) *TopicRepository {
	return &TopicRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *TopicRepository) GetBank(ctx context.Context, topic string) (domain.TopicBank, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[topic]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(topic, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[topic]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bank, nil
		}
		r.mu.RUnlock()

		bank, err := r.loader.LoadBank(ctx, topic)
		if err != nil {
			return domain.TopicBank{}, err
		}

		r.mu.Lock()
		r.cache[topic] = cachedBank{
			bank:      bank,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.TopicBank{}, err
	}
	return result.(domain.TopicBank), nil
}

func (r *TopicRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticTopicLoader is a simple loader backed by an in-memory map (useful for
// tests/demos).
type StaticTopicLoader struct {
	banks map[string]domain.TopicBank
}

func NewStaticTopicLoader(banks map[string]domain.TopicBank) *StaticTopicLoader {
	return &StaticTopicLoader{banks: banks}
}

func (l *StaticTopicLoader) LoadBank(_ context.Context, topic string) (domain.TopicBank, error) {
	if bank, ok := l.banks[topic]; ok {
		return bank, nil
	}
	return domain.TopicBank{}, domain.ErrTopicNotFound
}
