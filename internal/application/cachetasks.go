package application

import (
	"context"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

type deleteCacheKeysParams struct {
	Keys []string `json:"keys"`
}

type deleteIDsFromListsParams struct {
	Keys []string `json:"keys"`
	IDs  []int64  `json:"ids"`
}

func (s *Service) deleteCacheKeys(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in deleteCacheKeysParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, in.Keys...); err != nil {
		return nil, err
	}
	return len(in.Keys), nil
}

func (s *Service) deleteIDsFromLists(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in deleteIDsFromListsParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	for _, key := range in.Keys {
		if err := s.cache.RemoveFromList(ctx, key, in.IDs...); err != nil {
			return nil, err
		}
	}
	return len(in.Keys), nil
}

func (s *Service) clearCache(ctx context.Context, _ *domain.ActionContext) (any, error) {
	if err := s.cache.Clear(ctx); err != nil {
		return nil, err
	}
	s.log.Info("cache cleared")
	return true, nil
}

// Cache failures never fail a read; the repository is the source of truth.

func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	found, err := s.cache.Get(ctx, key, out)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (s *Service) cachedList(ctx context.Context, key string, load func(context.Context) ([]int64, error)) ([]int64, error) {
	ids, found, err := s.cache.GetList(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache list read failed")
	}
	if found {
		return ids, nil
	}
	ids, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetList(ctx, key, ids); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache list write failed")
	}
	return ids, nil
}

// addToCachedList only touches lists that are already cached.
func (s *Service) addToCachedList(ctx context.Context, key string, ids ...int64) {
	if err := s.cache.AddToTopOfList(ctx, key, ids...); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache list update failed")
	}
}

func (s *Service) cachedPersonByID(ctx context.Context, id int64) (domain.Person, error) {
	key := domain.CacheKey(domain.CachePersonByID, id)
	var p domain.Person
	if s.cacheGet(ctx, key, &p) {
		return p, nil
	}
	p, err := s.repo.GetPersonByID(ctx, id)
	if err != nil {
		return domain.Person{}, err
	}
	s.cacheSet(ctx, key, p)
	return p, nil
}

func (s *Service) cachedPersonByAccountID(ctx context.Context, accountID string) (domain.Person, error) {
	key := domain.CachePersonByAccountID + strings.ToLower(strings.TrimSpace(accountID))
	var p domain.Person
	if s.cacheGet(ctx, key, &p) {
		return p, nil
	}
	p, err := s.repo.GetPersonByAccountID(ctx, accountID)
	if err != nil {
		return domain.Person{}, err
	}
	s.cacheSet(ctx, key, p)
	return p, nil
}

func (s *Service) cachedOrganizationByID(ctx context.Context, id int64) (domain.Organization, error) {
	key := domain.CacheKey(domain.CacheOrganizationByID, id)
	var o domain.Organization
	if s.cacheGet(ctx, key, &o) {
		return o, nil
	}
	o, err := s.repo.GetOrganizationByID(ctx, id)
	if err != nil {
		return domain.Organization{}, err
	}
	s.cacheSet(ctx, key, o)
	return o, nil
}

func (s *Service) cachedOrganizationByShortName(ctx context.Context, shortName string) (domain.Organization, error) {
	key := domain.CacheOrganizationByShortName + strings.ToLower(strings.TrimSpace(shortName))
	var o domain.Organization
	if s.cacheGet(ctx, key, &o) {
		return o, nil
	}
	o, err := s.repo.GetOrganizationByShortName(ctx, shortName)
	if err != nil {
		return domain.Organization{}, err
	}
	s.cacheSet(ctx, key, o)
	return o, nil
}

func (s *Service) cachedGroupByShortName(ctx context.Context, shortName string) (domain.Group, error) {
	key := domain.CacheGroupByShortName + strings.ToLower(strings.TrimSpace(shortName))
	var g domain.Group
	if s.cacheGet(ctx, key, &g) {
		return g, nil
	}
	g, err := s.repo.GetGroupByShortName(ctx, shortName)
	if err != nil {
		return domain.Group{}, err
	}
	s.cacheSet(ctx, key, g)
	return g, nil
}

func (s *Service) cachedGroupByID(ctx context.Context, id int64) (domain.Group, error) {
	key := domain.CacheKey(domain.CacheGroupByID, id)
	var g domain.Group
	if s.cacheGet(ctx, key, &g) {
		return g, nil
	}
	g, err := s.repo.GetGroupByID(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	s.cacheSet(ctx, key, g)
	return g, nil
}

func (s *Service) cachedSystemSettings(ctx context.Context) (domain.SystemSettings, error) {
	var settings domain.SystemSettings
	if s.cacheGet(ctx, domain.CacheSystemSettings, &settings) {
		return settings, nil
	}
	settings, err := s.repo.GetSystemSettings(ctx)
	if err != nil {
		return domain.SystemSettings{}, err
	}
	s.cacheSet(ctx, domain.CacheSystemSettings, settings)
	return settings, nil
}

func (s *Service) cachedFollowerIDs(ctx context.Context, personID int64) ([]int64, error) {
	return s.cachedList(ctx, domain.CacheKey(domain.CacheFollowersByPerson, personID), func(ctx context.Context) ([]int64, error) {
		return s.repo.GetFollowerIDs(ctx, personID)
	})
}

func (s *Service) cachedFollowingIDs(ctx context.Context, personID int64) ([]int64, error) {
	return s.cachedList(ctx, domain.CacheKey(domain.CachePeopleFollowedByPerson, personID), func(ctx context.Context) ([]int64, error) {
		return s.repo.GetFollowingIDs(ctx, personID)
	})
}

func (s *Service) cachedGroupFollowerIDs(ctx context.Context, groupID int64) ([]int64, error) {
	return s.cachedList(ctx, domain.CacheKey(domain.CacheFollowersByGroup, groupID), func(ctx context.Context) ([]int64, error) {
		return s.repo.GetGroupFollowerIDs(ctx, groupID)
	})
}

func (s *Service) cachedGroupCoordinatorIDs(ctx context.Context, groupID int64) ([]int64, error) {
	return s.cachedList(ctx, domain.CacheKey(domain.CacheCoordinatorPersonIDsByGroupID, groupID), func(ctx context.Context) ([]int64, error) {
		return s.repo.GetGroupCoordinatorIDs(ctx, groupID)
	})
}
