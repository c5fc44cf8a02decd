package preference

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/insideout-platform/notify-service/internal/model"
	"github.com/insideout-platform/notify-service/internal/repository"
)

// Service is a read-through cache over notification settings. The reminder
// generator resolves settings for the same admin users on every cycle, so
// reads are cached for a short TTL. A nil result means "no row": all
// categories enabled, default reminder lead.
type Service struct {
	repo  repository.SettingsRepository
	cache *gocache.Cache
}

func NewService(repo repository.SettingsRepository, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error) {
	key := userID.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.NotificationSettings), nil
	}

	settings, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		settings = nil
	} else if err != nil {
		return nil, err
	}

	s.cache.Set(key, settings, gocache.DefaultExpiration)
	return settings, nil
}

// Enabled reports whether the category is enabled for the user.
func (s *Service) Enabled(ctx context.Context, userID uuid.UUID, category model.NotificationCategory) (bool, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return settings.Enabled(category), nil
}
