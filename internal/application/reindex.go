package application

import (
	"context"
	"fmt"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

type ReindexResult struct {
	People        int `json:"people"`
	Organizations int `json:"organizations"`
	Groups        int `json:"groups"`
}

// reindexEntities rebuilds the whole search index. Only one rebuild runs at a time; a second
// caller fails fast with ErrReindexRunning.
func (s *Service) reindexEntities(ctx context.Context, _ *domain.ActionContext) (any, error) {
	if !s.beginReindex() {
		return nil, domain.ErrReindexRunning
	}
	defer s.endReindex()

	s.log.Info("reindex started")
	var result ReindexResult

	personIDs, err := s.repo.ListPersonIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range personIDs {
		if err := s.indexPerson(ctx, id); err != nil {
			return nil, fmt.Errorf("index person %d: %w", id, err)
		}
		result.People++
	}

	orgIDs, err := s.repo.ListOrganizationIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range orgIDs {
		if err := s.indexOrganization(ctx, id); err != nil {
			return nil, fmt.Errorf("index organization %d: %w", id, err)
		}
		result.Organizations++
	}

	groupIDs, err := s.repo.ListGroupIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range groupIDs {
		if err := s.indexGroup(ctx, id); err != nil {
			return nil, fmt.Errorf("index group %d: %w", id, err)
		}
		result.Groups++
	}

	s.log.WithField("people", result.People).WithField("organizations", result.Organizations).WithField("groups", result.Groups).Info("reindex finished")
	return result, nil
}

func (s *Service) beginReindex() bool {
	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()
	if s.reindexRunning {
		return false
	}
	s.reindexRunning = true
	return true
}

func (s *Service) endReindex() {
	s.reindexMu.Lock()
	s.reindexRunning = false
	s.reindexMu.Unlock()
}
