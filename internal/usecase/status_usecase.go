package usecase

import (
	"context"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

const defaultFailureLimit = 100

// StatusReader answers read-only questions about the store.
type StatusReader interface {
	Health(ctx context.Context) (profiles int, err error)
	Profile(ctx context.Context, url string) (*entity.ProfileRecord, error)
	Failures(ctx context.Context, limit int) ([]*entity.FailedURL, error)
}

type statusUseCase struct {
	store    repository.ProfileRepository
	failures repository.FailedURLRepository
}

// NewStatusReader creates a StatusReader. failures may be nil.
func NewStatusReader(store repository.ProfileRepository, failures repository.FailedURLRepository) StatusReader {
	return &statusUseCase{store: store, failures: failures}
}

func (uc *statusUseCase) Health(ctx context.Context) (int, error) {
	if err := uc.store.Ping(ctx); err != nil {
		return 0, err
	}
	return uc.store.Count(ctx)
}

// Profile returns repository.ErrProfileNotFound for unknown URLs.
func (uc *statusUseCase) Profile(ctx context.Context, url string) (*entity.ProfileRecord, error) {
	return uc.store.FindByURL(ctx, url)
}

func (uc *statusUseCase) Failures(ctx context.Context, limit int) ([]*entity.FailedURL, error) {
	if uc.failures == nil {
		return []*entity.FailedURL{}, nil
	}
	if limit <= 0 {
		limit = defaultFailureLimit
	}
	list, err := uc.failures.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.FailedURL{}
	}
	return list, nil
}
