package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"chapter-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyLoader fetches answer keys from the backing store.
type AnswerKeyLoader interface {
	AnswerKeys(ctx context.Context, chapterID int64) ([]domain.AnswerKey, error)
}

// AnswerKeyRepository caches answer keys with TTL to avoid repeated DB hits.
// Chapters are immutable, so a cached key never goes stale before expiry.
type AnswerKeyRepository struct {
	loader AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[int64]cachedKeys
}

type cachedKeys struct {
	keys      []domain.AnswerKey
	expiresAt time.Time
}

func NewAnswerKeyRepository(loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyRepository {
	return NewAnswerKeyRepositoryWithClock(loader, ttl, time.Now)
}

// NewAnswerKeyRepositoryWithClock is test-only for deterministic expiry.
func NewAnswerKeyRepositoryWithClock(loader AnswerKeyLoader, ttl time.Duration, clock func() time.Time) *AnswerKeyRepository {
	return &AnswerKeyRepository{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedKeys),
	}
}

func (r *AnswerKeyRepository) AnswerKeys(ctx context.Context, chapterID int64) ([]domain.AnswerKey, error) {
	if keys, ok := r.lookup(chapterID); ok {
		return keys, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(chapterID, 10), func() (interface{}, error) {
		if keys, ok := r.lookup(chapterID); ok {
			return keys, nil
		}

		keys, err := r.loader.AnswerKeys(ctx, chapterID)
		if err != nil {
			return nil, err
		}
		// Unknown chapters are not cached; they may be created later.
		if len(keys) == 0 {
			return keys, nil
		}

		r.mu.Lock()
		r.cache[chapterID] = cachedKeys{
			keys:      keys,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.AnswerKey), nil
}

func (r *AnswerKeyRepository) lookup(chapterID int64) ([]domain.AnswerKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[chapterID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return entry.keys, true
}

func (r *AnswerKeyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
