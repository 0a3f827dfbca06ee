package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

type createOrganizationParams struct {
	ShortName                   string   `json:"shortName"`
	Name                        string   `json:"name"`
	Overview                    string   `json:"overview"`
	Description                 string   `json:"description"`
	URL                         string   `json:"url"`
	ParentOrganizationShortName string   `json:"parentOrganizationShortName"`
	Coordinators                []string `json:"coordinators"`
	AllUsersCanCreateGroups     bool     `json:"allUsersCanCreateGroups"`
}

type updateOrganizationParams struct {
	ID                      int64    `json:"id"`
	Name                    string   `json:"name"`
	Overview                string   `json:"overview"`
	Description             string   `json:"description"`
	URL                     string   `json:"url"`
	BannerID                *string  `json:"bannerId"`
	Coordinators            []string `json:"coordinators"`
	AllUsersCanCreateGroups bool     `json:"allUsersCanCreateGroups"`
}

type shortNameParams struct {
	ShortName string `json:"shortName"`
}

type deleteOrganizationParams struct {
	OrganizationID int64 `json:"organizationId"`
}

func (s *Service) createOrganization(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in createOrganizationParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	in.ShortName = strings.ToLower(strings.TrimSpace(in.ShortName))

	check := newFieldCheck()
	check.shortName("shortName", in.ShortName, "Organization Web Address")
	if check.required("name", in.Name, "Organization Name is required.") {
		check.maxLength("name", in.Name, maxNameLength, fmt.Sprintf("Organization Name supports up to %d characters.", maxNameLength))
	}
	check.maxLength("description", in.Description, maxDescriptionLength, fmt.Sprintf("Description supports up to %d characters.", maxDescriptionLength))

	if _, err := s.repo.GetOrganizationByShortName(ctx, in.ShortName); err == nil {
		check.Add("shortName", "Organization Web Address is already in use.")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var parentID *int64
	if strings.TrimSpace(in.ParentOrganizationShortName) != "" {
		parent, err := s.repo.GetOrganizationByShortName(ctx, in.ParentOrganizationShortName)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			check.Add("parentOrganizationShortName", "The selected parent organization does not exist.")
		case err != nil:
			return nil, err
		default:
			parentID = &parent.ID
		}
	} else if _, err := s.repo.GetRootOrganization(ctx); err == nil {
		check.Add("parentOrganizationShortName", "Please select a parent organization.")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	coordinators, err := s.resolveAccountIDs(ctx, in.Coordinators)
	if err != nil {
		var missing missingAccountsError
		if !errors.As(err, &missing) {
			return nil, err
		}
		check.Add("coordinators", "One or more coordinators do not exist: "+strings.Join(missing, ", "))
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	org, err := s.repo.CreateOrganization(ctx, domain.Organization{
		ShortName:               in.ShortName,
		Name:                    strings.TrimSpace(in.Name),
		Overview:                in.Overview,
		Description:             in.Description,
		URL:                     in.URL,
		ParentOrganizationID:    parentID,
		AllUsersCanCreateGroups: in.AllUsersCanCreateGroups,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetOrganizationCoordinators(ctx, org.ID, coordinators); err != nil {
		return nil, err
	}
	if err := s.repo.RefreshOrganizationStats(ctx, org.ID); err != nil {
		return nil, err
	}

	if err := ac.Enqueue(ActionIndexOrganizationByID, entityIDParams{ID: org.ID}); err != nil {
		return nil, err
	}
	keys, err := s.organizationChainKeys(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	return s.organizationModelView(ctx, org)
}

func (s *Service) updateOrganization(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in updateOrganizationParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrganizationByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	check := newFieldCheck()
	if check.required("name", in.Name, "Organization Name is required.") {
		check.maxLength("name", in.Name, maxNameLength, fmt.Sprintf("Organization Name supports up to %d characters.", maxNameLength))
	}
	check.maxLength("description", in.Description, maxDescriptionLength, fmt.Sprintf("Description supports up to %d characters.", maxDescriptionLength))
	coordinators, err := s.resolveAccountIDs(ctx, in.Coordinators)
	if err != nil {
		var missing missingAccountsError
		if !errors.As(err, &missing) {
			return nil, err
		}
		check.Add("coordinators", "One or more coordinators do not exist: "+strings.Join(missing, ", "))
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	org.Name = strings.TrimSpace(in.Name)
	org.Overview = in.Overview
	org.Description = in.Description
	org.URL = in.URL
	org.BannerID = in.BannerID
	org.AllUsersCanCreateGroups = in.AllUsersCanCreateGroups
	if err := s.repo.UpdateOrganization(ctx, org); err != nil {
		return nil, err
	}
	if in.Coordinators != nil {
		if err := s.repo.SetOrganizationCoordinators(ctx, org.ID, coordinators); err != nil {
			return nil, err
		}
	}

	if err := ac.Enqueue(ActionIndexOrganizationByID, entityIDParams{ID: org.ID}); err != nil {
		return nil, err
	}
	if err := s.enqueueCacheDelete(ac,
		domain.CacheKey(domain.CacheOrganizationByID, org.ID),
		domain.CacheOrganizationByShortName+org.ShortName,
		domain.CacheOrganizationTreeDTO,
	); err != nil {
		return nil, err
	}
	return s.organizationModelView(ctx, org)
}

func (s *Service) getOrganization(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in shortNameParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	org, err := s.cachedOrganizationByShortName(ctx, in.ShortName)
	if err != nil {
		return nil, err
	}
	return s.organizationModelView(ctx, org)
}

func (s *Service) getOrganizationChildren(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in shortNameParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	org, err := s.cachedOrganizationByShortName(ctx, in.ShortName)
	if err != nil {
		return nil, err
	}
	children, err := s.repo.ListChildOrganizations(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.OrganizationModelView, 0, len(children))
	for _, child := range children {
		views = append(views, organizationView(child))
	}
	return views, nil
}

// deleteOrganization moves the organization's employees and child organizations to its parent
// and returns the parent's short name.
func (s *Service) deleteOrganization(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in deleteOrganizationParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrganizationByID(ctx, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org.IsRoot() {
		verr := domain.NewValidationError()
		verr.Add("organizationId", "The root organization cannot be deleted.")
		return nil, verr
	}
	parentID := *org.ParentOrganizationID
	parent, err := s.repo.GetOrganizationByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	ancestorIDs, err := s.repo.GetRecursiveParentOrgIDs(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	children, err := s.repo.ListChildOrganizations(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	movedIDs, err := s.repo.MovePeopleToOrganization(ctx, org.ID, parentID)
	if err != nil {
		return nil, err
	}
	relatedIDs, err := s.repo.GetPersonIDsRelatedToOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteOrganization(ctx, org.ID); err != nil {
		return nil, err
	}
	if err := s.repo.RefreshOrganizationStats(ctx, parentID); err != nil {
		return nil, err
	}

	for _, id := range movedIDs {
		if err := ac.Enqueue(ActionIndexPersonByID, entityIDParams{ID: id}); err != nil {
			return nil, err
		}
	}
	for _, id := range ancestorIDs {
		if err := ac.Enqueue(ActionIndexOrganizationByID, entityIDParams{ID: id}); err != nil {
			return nil, err
		}
	}

	affected := append(append([]int64{}, movedIDs...), relatedIDs...)
	people, err := s.repo.GetPeopleByIDs(ctx, affected)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, 2*len(people)+3*len(ancestorIDs)+2*len(children)+3)
	for _, p := range people {
		keys = append(keys, domain.CacheKey(domain.CachePersonByID, p.ID), domain.CachePersonByAccountID+p.AccountID)
	}
	ancestors, err := s.repo.GetOrganizationsByIDs(ctx, ancestorIDs)
	if err != nil {
		return nil, err
	}
	for _, a := range ancestors {
		keys = append(keys,
			domain.CacheKey(domain.CacheOrganizationByID, a.ID),
			domain.CacheOrganizationByShortName+a.ShortName,
			domain.CacheKey(domain.CacheOrganizationRecursiveChildren, a.ID),
		)
	}
	for _, c := range children {
		keys = append(keys,
			domain.CacheKey(domain.CacheOrganizationByID, c.ID),
			domain.CacheOrganizationByShortName+c.ShortName,
			domain.CacheKey(domain.CacheOrganizationParentsRecursive, c.ID),
		)
	}
	keys = append(keys,
		domain.CacheKey(domain.CacheOrganizationByID, org.ID),
		domain.CacheOrganizationByShortName+org.ShortName,
		domain.CacheOrganizationTreeDTO,
	)
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	if err := ac.Enqueue(ActionDeleteFromSearchIndex, deleteFromSearchIndexParams{EntityType: domain.ScopeTypeOrganization, IDs: []int64{org.ID}}); err != nil {
		return nil, err
	}

	s.log.WithField("organization", org.ShortName).WithField("movedPeople", len(movedIDs)).Info("organization deleted")
	return parent.ShortName, nil
}

// organizationChainKeys lists the cache keys invalidated when an organization's subtree changes.
func (s *Service) organizationChainKeys(ctx context.Context, orgID int64) ([]string, error) {
	ancestorIDs, err := s.repo.GetRecursiveParentOrgIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ancestors, err := s.repo.GetOrganizationsByIDs(ctx, ancestorIDs)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, 3*len(ancestors)+1)
	for _, a := range ancestors {
		keys = append(keys,
			domain.CacheKey(domain.CacheOrganizationByID, a.ID),
			domain.CacheOrganizationByShortName+a.ShortName,
			domain.CacheKey(domain.CacheOrganizationRecursiveChildren, a.ID),
		)
	}
	return append(keys, domain.CacheOrganizationTreeDTO), nil
}

func (s *Service) organizationModelView(ctx context.Context, org domain.Organization) (domain.OrganizationModelView, error) {
	view := organizationView(org)

	if org.BannerID != nil {
		id := org.ID
		view.BannerEntityID = &id
	} else if org.ParentOrganizationID != nil {
		banner, err := s.bannerFromParentOrganization(ctx, *org.ParentOrganizationID)
		if err != nil {
			return domain.OrganizationModelView{}, err
		}
		view.BannerID = banner.ID
		view.BannerEntityID = banner.EntityID
	}

	coordinators, err := s.repo.GetOrganizationCoordinatorIDs(ctx, org.ID)
	if err != nil {
		return domain.OrganizationModelView{}, err
	}
	view.Coordinators = coordinators
	return view, nil
}

func organizationView(org domain.Organization) domain.OrganizationModelView {
	return domain.OrganizationModelView{
		ID:                      org.ID,
		ShortName:               org.ShortName,
		Name:                    org.Name,
		Overview:                org.Overview,
		AvatarID:                org.AvatarID,
		BannerID:                org.BannerID,
		ParentOrganizationID:    org.ParentOrganizationID,
		StreamScopeID:           org.StreamScopeID,
		ChildOrganizationCount:  org.ChildOrganizationCount,
		DescendantGroupCount:    org.DescendantGroupCount,
		DescendantEmployeeCount: org.DescendantEmployeeCount,
		EmployeeFollowerCount:   org.EmployeeFollowerCount,
		Coordinators:            []int64{},
	}
}

type missingAccountsError []string

func (e missingAccountsError) Error() string {
	return "unknown accounts: " + strings.Join(e, ", ")
}

// resolveAccountIDs maps account ids to person ids, keeping input order and dropping duplicates.
func (s *Service) resolveAccountIDs(ctx context.Context, accountIDs []string) ([]int64, error) {
	if len(accountIDs) == 0 {
		return []int64{}, nil
	}
	people, err := s.repo.GetPeopleByAccountIDs(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	byAccount := make(map[string]int64, len(people))
	for _, p := range people {
		byAccount[p.AccountID] = p.ID
	}
	ids := make([]int64, 0, len(accountIDs))
	var missing missingAccountsError
	for _, a := range accountIDs {
		id, ok := byAccount[strings.ToLower(strings.TrimSpace(a))]
		if !ok {
			missing = append(missing, a)
			continue
		}
		if !containsID(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(missing) > 0 {
		return ids, missing
	}
	return ids, nil
}
