package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/pkg/utils"
)

const (
	failedURLPrefix = "failed:"
	failedIndexKey  = "failed:index"
)

// FailedURLRepoImpl keeps the failure ledger in Redis: one hash per URL,
// keyed by the URL hash and expiring after ttl, plus a sorted set indexing
// the URLs by last attempt time.
type FailedURLRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFailedURLRepo creates a new instance of FailedURLRepoImpl. A zero ttl
// keeps entries until they are deleted.
func NewFailedURLRepo(client *redis.Client, ttl time.Duration) *FailedURLRepoImpl {
	return &FailedURLRepoImpl{client: client, ttl: ttl}
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *FailedURLRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", failedURLPrefix, utils.HashURL(url))
}

// SaveOrUpdate overwrites the failure details and bumps failure_count atomically.
func (r *FailedURLRepoImpl) SaveOrUpdate(ctx context.Context, f *entity.FailedURL) error {
	key := r.generateKey(f.URL)
	at := f.LastAttemptAt.UTC()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"url", f.URL,
			"kind", string(f.Kind),
			"reason", f.Reason,
			"http_status_code", f.HTTPStatusCode,
			"attempts", f.Attempts,
			"last_attempt_at", at.Format(time.RFC3339Nano),
		)
		pipe.HIncrBy(ctx, key, "failure_count", 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		pipe.ZAdd(ctx, failedIndexKey, redis.Z{Score: float64(at.UnixNano()), Member: f.URL})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save failed url %s: %v", repository.ErrStorage, f.URL, err)
	}
	return nil
}

// List walks the index newest first. Index entries whose hash has expired
// are pruned on the way.
func (r *FailedURLRepoImpl) List(ctx context.Context, limit int) ([]*entity.FailedURL, error) {
	if limit <= 0 {
		return nil, nil
	}
	urls, err := r.client.ZRevRange(ctx, failedIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list failed urls: %v", repository.ErrStorage, err)
	}

	var out []*entity.FailedURL
	for _, url := range urls {
		if len(out) == limit {
			break
		}
		fields, err := r.client.HGetAll(ctx, r.generateKey(url)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: read failed url %s: %v", repository.ErrStorage, url, err)
		}
		if len(fields) == 0 {
			r.client.ZRem(ctx, failedIndexKey, url)
			continue
		}
		f, err := decodeFailedURL(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: decode failed url %s: %v", repository.ErrStorage, url, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Delete removes a failed URL record, typically after a successful scrape.
func (r *FailedURLRepoImpl) Delete(ctx context.Context, url string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.generateKey(url))
		pipe.ZRem(ctx, failedIndexKey, url)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: delete failed url %s: %v", repository.ErrStorage, url, err)
	}
	return nil
}

func decodeFailedURL(fields map[string]string) (*entity.FailedURL, error) {
	f := &entity.FailedURL{
		URL:    fields["url"],
		Kind:   entity.ErrorKind(fields["kind"]),
		Reason: fields["reason"],
	}
	var err error
	if f.HTTPStatusCode, err = atoi(fields["http_status_code"]); err != nil {
		return nil, err
	}
	if f.Attempts, err = atoi(fields["attempts"]); err != nil {
		return nil, err
	}
	if f.FailureCount, err = atoi(fields["failure_count"]); err != nil {
		return nil, err
	}
	if f.LastAttemptAt, err = time.Parse(time.RFC3339Nano, fields["last_attempt_at"]); err != nil {
		return nil, err
	}
	return f, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

var _ repository.FailedURLRepository = (*FailedURLRepoImpl)(nil)
