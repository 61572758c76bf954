package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
)

// unansweredLabel matches the catalog entry reserved for blank answers.
var unansweredLabel = regexp.MustCompile(`(?i)^\s*(unanswered|no[ _-]?attempt)\b`)

// noUnansweredType is cached when the catalog has no unanswered entry.
const noUnansweredType = "none"

// MistakeTypeService serves the mistake-type catalog.
type MistakeTypeService struct {
	repo *repository.MistakeTypeRepository
	rdb  *redis.Client
}

// NewMistakeTypeService creates a new MistakeTypeService.
func NewMistakeTypeService(repo *repository.MistakeTypeRepository, rdb *redis.Client) *MistakeTypeService {
	return &MistakeTypeService{repo: repo, rdb: rdb}
}

// List returns the whole catalog ordered by id.
func (s *MistakeTypeService) List(ctx context.Context) ([]model.MistakeType, error) {
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mistake types: %w", err)
	}
	if types == nil {
		types = []model.MistakeType{}
	}
	return types, nil
}

// Upsert creates or updates a catalog entry by label and drops the cached
// unanswered id.
func (s *MistakeTypeService) Upsert(ctx context.Context, m *model.MistakeType) error {
	if err := s.repo.Upsert(ctx, m); err != nil {
		return fmt.Errorf("upsert mistake type: %w", err)
	}
	_ = s.rdb.Del(ctx, config.CacheKey.UnansweredMistakeKey()).Err()
	return nil
}

// UnansweredID returns the id of the unanswered entry, or nil when the
// catalog has none.
func (s *MistakeTypeService) UnansweredID(ctx context.Context) (*int64, error) {
	key := config.CacheKey.UnansweredMistakeKey()

	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		if cached == noUnansweredType {
			return nil, nil
		}
		if id, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
			return &id, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read unanswered mistake type: %w", err)
	}

	types, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	id := findUnanswered(types)
	value := noUnansweredType
	if id != nil {
		value = strconv.FormatInt(*id, 10)
	}
	_ = s.rdb.Set(ctx, key, value, 0).Err()
	return id, nil
}

func findUnanswered(types []model.MistakeType) *int64 {
	for _, t := range types {
		if unansweredLabel.MatchString(t.Label) {
			id := t.ID
			return &id
		}
	}
	return nil
}
