package application

import (
	"context"
)

// Banner is the inherited banner of an organization or group. EntityID names the organization
// the banner came from.
type Banner struct {
	ID       *string
	EntityID *int64
}

// bannerFromParentOrganization starts at parentOrgID and walks up the organization tree until an
// organization with a banner is found.
func (s *Service) bannerFromParentOrganization(ctx context.Context, parentOrgID int64) (Banner, error) {
	parent, err := s.cachedOrganizationByID(ctx, parentOrgID)
	if err != nil {
		return Banner{}, err
	}
	entityID := parent.ID
	banner := Banner{ID: parent.BannerID, EntityID: &entityID}
	if banner.ID != nil {
		return banner, nil
	}

	ancestorIDs, err := s.repo.GetRecursiveParentOrgIDs(ctx, parentOrgID)
	if err != nil {
		return Banner{}, err
	}
	ancestors, err := s.repo.GetOrganizationsByIDs(ctx, ancestorIDs)
	if err != nil {
		return Banner{}, err
	}
	byID := make(map[int64]*string, len(ancestors))
	for _, o := range ancestors {
		byID[o.ID] = o.BannerID
	}
	for _, id := range ancestorIDs {
		if b := byID[id]; b != nil {
			id := id
			return Banner{ID: b, EntityID: &id}, nil
		}
	}
	return Banner{}, nil
}
