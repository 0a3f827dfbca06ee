package application

import (
	"context"
	"errors"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

type entityIDParams struct {
	ID int64 `json:"id"`
}

type deleteFromSearchIndexParams struct {
	EntityType domain.ScopeType `json:"entityType"`
	IDs        []int64          `json:"ids"`
}

type searchDirectoryParams struct {
	Query      string           `json:"q"`
	EntityType domain.ScopeType `json:"entityType"`
	Limit      int              `json:"limit"`
}

func (s *Service) indexPersonByID(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in entityIDParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	return nil, s.indexPerson(ctx, in.ID)
}

func (s *Service) indexOrganizationByID(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in entityIDParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	return nil, s.indexOrganization(ctx, in.ID)
}

func (s *Service) indexGroupByID(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in entityIDParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	return nil, s.indexGroup(ctx, in.ID)
}

func (s *Service) deleteFromSearchIndex(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in deleteFromSearchIndexParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	if in.EntityType == "" {
		return nil, domain.ErrBadRequest
	}
	return len(in.IDs), s.repo.DeleteSearchDocuments(ctx, in.EntityType, in.IDs)
}

func (s *Service) searchDirectory(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in searchDirectoryParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Query) == "" {
		verr := domain.NewValidationError()
		verr.Add("q", "Search terms are required.")
		return nil, verr
	}
	limit := clamp(in.Limit, 20, 1, 200)
	docs, err := s.repo.SearchDocuments(ctx, in.Query, domain.ScopeType(strings.ToUpper(string(in.EntityType))), limit*searchOverfetch)
	if err != nil {
		return nil, err
	}
	return s.scopeSearchResults(ctx, ac.Principal, in.Query, docs, limit)
}

// searchOverfetch widens the query so hits dropped by scoping rarely shorten a page.
const searchOverfetch = 4

// scopeSearchResults drops activities the principal cannot read and blanks the body of private
// groups the principal cannot view. A restricted group only matches on its name or short name.
func (s *Service) scopeSearchResults(ctx context.Context, p domain.Principal, query string, docs []domain.SearchDocument, limit int) ([]domain.SearchDocument, error) {
	out := make([]domain.SearchDocument, 0, limit)
	for _, d := range docs {
		if len(out) == limit {
			break
		}
		switch d.EntityType {
		case domain.EntityTypeActivity:
			_, dest, err := s.activityWithDestination(ctx, d.EntityID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			readable, err := s.canReadStream(ctx, p, dest)
			if err != nil {
				return nil, err
			}
			if !readable {
				continue
			}
		case domain.ScopeTypeGroup:
			g, err := s.repo.GetGroupByID(ctx, d.EntityID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			visible, err := s.canViewGroup(ctx, p, g)
			if err != nil {
				return nil, err
			}
			if !visible {
				if !matchesAllTerms(query, d.Title, d.Key) {
					continue
				}
				d.Body = ""
				d.Restricted = true
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// A person, organization or group that disappeared between queueing and indexing is dropped from
// the index instead of failing the task.

func (s *Service) indexPerson(ctx context.Context, id int64) error {
	p, err := s.repo.GetPersonByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return s.repo.DeleteSearchDocuments(ctx, domain.ScopeTypePerson, []int64{id})
	}
	if err != nil {
		return err
	}
	skills, err := s.personSkills(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.UpsertSearchDocument(ctx, domain.SearchDocument{
		EntityType: domain.ScopeTypePerson,
		EntityID:   p.ID,
		Key:        p.AccountID,
		Title:      p.DisplayName(),
		Body:       joinNonEmpty(p.Title, p.JobDescription, p.Overview, p.Location, p.Email, strings.Join(skills, " ")),
	})
}

func (s *Service) indexOrganization(ctx context.Context, id int64) error {
	o, err := s.repo.GetOrganizationByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return s.repo.DeleteSearchDocuments(ctx, domain.ScopeTypeOrganization, []int64{id})
	}
	if err != nil {
		return err
	}
	return s.repo.UpsertSearchDocument(ctx, domain.SearchDocument{
		EntityType: domain.ScopeTypeOrganization,
		EntityID:   o.ID,
		Key:        o.ShortName,
		Title:      o.Name,
		Body:       joinNonEmpty(o.Overview, o.Description),
	})
}

func (s *Service) indexGroup(ctx context.Context, id int64) error {
	g, err := s.repo.GetGroupByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return s.repo.DeleteSearchDocuments(ctx, domain.ScopeTypeGroup, []int64{id})
	}
	if err != nil {
		return err
	}
	return s.repo.UpsertSearchDocument(ctx, domain.SearchDocument{
		EntityType: domain.ScopeTypeGroup,
		EntityID:   g.ID,
		Key:        g.ShortName,
		Title:      g.Name,
		Body:       joinNonEmpty(g.Overview, g.Description),
	})
}

func matchesAllTerms(query string, fields ...string) bool {
	text := strings.ToLower(strings.Join(fields, " "))
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
