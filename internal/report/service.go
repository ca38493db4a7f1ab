// Package report produces the user-count report. It was previously a
// scheduled export job; here it is served on demand, cached in Redis, and
// each freshly computed report is archived to object storage.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mwalcott/account-portal/internal/models"
)

const cacheKey = "report:users"

// UserCounter is the slice of the user store the report needs.
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
	CountUsersCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

// Archive receives a JSON snapshot of every freshly computed report.
type Archive interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Service computes and caches the user-count report. cache and archive may
// be nil; the report is then computed on every request and not archived.
type Service struct {
	users    UserCounter
	cache    *redis.Client
	archive  Archive
	cacheTTL time.Duration
}

func NewService(users UserCounter, cache *redis.Client, archive Archive, cacheTTL time.Duration) *Service {
	return &Service{users: users, cache: cache, archive: archive, cacheTTL: cacheTTL}
}

// Generate returns the current report, serving from cache when fresh.
func (s *Service) Generate(ctx context.Context) (*models.UserReport, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	total, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	recent, err := s.users.CountUsersCreatedSince(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("count recent users: %w", err)
	}

	rep := &models.UserReport{
		Timestamp:          time.Now().UTC(),
		TotalUsers:         total,
		NewUsersLast30Days: recent,
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL).Err(); err != nil {
			log.Printf("report cache set: %v", err)
		}
	}
	if s.archive != nil {
		key := fmt.Sprintf("user-report-%s-%s.json", rep.Timestamp.Format("20060102T150405Z"), uuid.NewString())
		if err := s.archive.Upload(ctx, key, data, "application/json"); err != nil {
			log.Printf("report archive upload: %v", err)
		}
	}

	return rep, nil
}

func (s *Service) fromCache(ctx context.Context) *models.UserReport {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("report cache get: %v", err)
		}
		return nil
	}
	var rep models.UserReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil
	}
	return &rep
}
