package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/infra/memory"
	"chapter-quiz-service/internal/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyRepository caches answer keys in Redis (hash per chapter) and falls
// back to a loader on cache miss.
// Keys are stored as: HSET chapter:{chapterID}:answers count {n} {questionID} {choiceKey} ...
type AnswerKeyRepository struct {
	client *redis.Client
	loader memory.AnswerKeyLoader
	ttl    time.Duration
	log    *logger.Logger
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewAnswerKeyRepository(client *redis.Client, loader memory.AnswerKeyLoader, ttl time.Duration, log *logger.Logger) *AnswerKeyRepository {
	return &AnswerKeyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log.With("component", "redis.AnswerKeyRepository"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AnswerKeyRepository) AnswerKeys(ctx context.Context, chapterID int64) ([]domain.AnswerKey, error) {
	key := answersKey(chapterID)

	cached, err := r.client.HGetAll(ctx, key).Result()
	if err == nil {
		if keys, ok := keysFromCache(cached); ok {
			return keys, nil
		}
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, key).Result()
		if err == nil {
			if keys, ok := keysFromCache(cached); ok {
				return keys, nil
			}
		}
		if err != nil {
			r.log.Warn("answer key cache read failed", "chapter_id", chapterID, "error", err)
		}

		keys, err := r.loader.AnswerKeys(ctx, chapterID)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return keys, nil
		}

		if err := r.store(ctx, key, keys); err != nil {
			r.log.Warn("answer key cache write failed", "chapter_id", chapterID, "error", err)
		}
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.AnswerKey), nil
}

// store replaces the hash in one MULTI/EXEC: any leftover fields are dropped,
// every question and the count field land in a single HSET, and the TTL is
// set in the same transaction.
func (r *AnswerKeyRepository) store(ctx context.Context, key string, keys []domain.AnswerKey) error {
	values := make([]interface{}, 0, 2*len(keys)+2)
	values = append(values, countField, strconv.Itoa(len(keys)))
	for _, k := range keys {
		values = append(values, strconv.FormatInt(k.QuestionID, 10), string(k.Correct))
	}
	ttl := r.ttlWithJitter()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

func answersKey(chapterID int64) string {
	return "chapter:" + strconv.FormatInt(chapterID, 10) + ":answers"
}

// countField records how many questions the hash holds. A hash without it, or
// whose question fields disagree with it, is treated as a miss.
const countField = "count"

func keysFromCache(cached map[string]string) ([]domain.AnswerKey, bool) {
	want, err := strconv.Atoi(cached[countField])
	if err != nil || want <= 0 {
		return nil, false
	}
	keys := make([]domain.AnswerKey, 0, want)
	for field, choice := range cached {
		if field == countField {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, false
		}
		keys = append(keys, domain.AnswerKey{QuestionID: id, Correct: domain.ChoiceKey(choice)})
	}
	if len(keys) != want {
		return nil, false
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].QuestionID < keys[j].QuestionID })
	return keys, true
}

func (r *AnswerKeyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
