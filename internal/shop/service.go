package shop

import (
	"context"
	"errors"
	"time"

	"github.com/Chetan2520/india-food-court/internal/geo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service resolves the shop through an optional cache, collapsing concurrent
// misses into one repository read.
type Service struct {
	repo  Repository
	cache Cache
	log   *zap.Logger
	sfg   singleflight.Group
}

func NewService(repo Repository, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, log: log}
}

// Seed inserts the default shop when the store is empty.
func (s *Service) Seed(ctx context.Context, def Shop) error {
	added, err := s.repo.SeedIfEmpty(ctx, def)
	if err != nil {
		return err
	}
	if added {
		s.log.Info("shop location added",
			zap.String("name", def.Name),
			zap.Float64("lat", def.Location.Latitude),
			zap.Float64("lng", def.Location.Longitude))
		s.invalidate()
		return nil
	}
	s.log.Info("shop already exists")
	return nil
}

func (s *Service) Shop(ctx context.Context) (*Shop, error) {
	v, err, _ := s.sfg.Do("shop", func() (interface{}, error) {
		if s.cache != nil {
			cached, err := s.cache.Get(ctx)
			if err == nil {
				return cached, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				s.log.Warn("shop cache get error", zap.Error(err))
			}
		}

		found, err := s.repo.Get(ctx)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			go func() {
				setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := s.cache.Set(setCtx, found); err != nil {
					s.log.Warn("shop cache set error", zap.Error(err))
				}
			}()
		}
		return found, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Shop), nil
}

// Location is the shop coordinate used by the eligibility gate.
func (s *Service) Location(ctx context.Context) (geo.Coordinate, error) {
	found, err := s.Shop(ctx)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return found.Location, nil
}

func (s *Service) invalidate() {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx); err != nil {
		s.log.Warn("shop cache invalidate error", zap.Error(err))
	}
}
