package sqlite

import (
	"context"
	"errors"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm"
)

func organizationFromModel(m OrganizationModel) domain.Organization {
	return domain.Organization{
		ID:                      m.ID,
		ShortName:               m.ShortName,
		Name:                    m.Name,
		Overview:                m.Overview,
		Description:             m.Description,
		URL:                     m.URL,
		AvatarID:                m.AvatarID,
		BannerID:                m.BannerID,
		ParentOrganizationID:    m.ParentOrganizationID,
		StreamScopeID:           m.StreamScopeID,
		AllUsersCanCreateGroups: m.AllUsersCanCreateGroups,
		ChildOrganizationCount:  m.ChildOrganizationCount,
		DescendantGroupCount:    m.DescendantGroupCount,
		DescendantEmployeeCount: m.DescendantEmployeeCount,
		EmployeeFollowerCount:   m.EmployeeFollowerCount,
		UpdatesCount:            m.UpdatesCount,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

func organizationToModel(o domain.Organization) OrganizationModel {
	return OrganizationModel{
		ID:                      o.ID,
		ShortName:               strings.ToLower(strings.TrimSpace(o.ShortName)),
		Name:                    o.Name,
		Overview:                o.Overview,
		Description:             o.Description,
		URL:                     o.URL,
		AvatarID:                o.AvatarID,
		BannerID:                o.BannerID,
		ParentOrganizationID:    o.ParentOrganizationID,
		StreamScopeID:           o.StreamScopeID,
		AllUsersCanCreateGroups: o.AllUsersCanCreateGroups,
		ChildOrganizationCount:  o.ChildOrganizationCount,
		DescendantGroupCount:    o.DescendantGroupCount,
		DescendantEmployeeCount: o.DescendantEmployeeCount,
		EmployeeFollowerCount:   o.EmployeeFollowerCount,
		UpdatesCount:            o.UpdatesCount,
		CreatedAt:               o.CreatedAt,
	}
}

func (r *Repository) CreateOrganization(ctx context.Context, value domain.Organization) (domain.Organization, error) {
	m := organizationToModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		scope := StreamScopeModel{ScopeType: string(domain.ScopeTypeOrganization), UniqueKey: m.ShortName, DestinationEntityID: m.ID}
		if err := tx.Create(&scope).Error; err != nil {
			return err
		}
		m.StreamScopeID = scope.ID
		return tx.Model(&OrganizationModel{}).Where("id = ?", m.ID).Update("stream_scope_id", scope.ID).Error
	})
	if err != nil {
		return domain.Organization{}, err
	}
	return organizationFromModel(m), nil
}

func (r *Repository) GetOrganizationByID(ctx context.Context, id int64) (domain.Organization, error) {
	var m OrganizationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Organization{}, notFound(err, "organization")
	}
	return organizationFromModel(m), nil
}

func (r *Repository) GetOrganizationByShortName(ctx context.Context, shortName string) (domain.Organization, error) {
	var m OrganizationModel
	if err := r.db.WithContext(ctx).Where("short_name = ?", strings.ToLower(strings.TrimSpace(shortName))).First(&m).Error; err != nil {
		return domain.Organization{}, notFound(err, "organization "+shortName)
	}
	return organizationFromModel(m), nil
}

func (r *Repository) GetOrganizationsByIDs(ctx context.Context, ids []int64) ([]domain.Organization, error) {
	if len(ids) == 0 {
		return []domain.Organization{}, nil
	}
	rows := make([]OrganizationModel, 0, len(ids))
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Organization, 0, len(rows))
	for _, m := range rows {
		result = append(result, organizationFromModel(m))
	}
	return result, nil
}

func (r *Repository) GetRootOrganization(ctx context.Context) (domain.Organization, error) {
	var m OrganizationModel
	if err := r.db.WithContext(ctx).Where("parent_organization_id IS NULL").Order("id ASC").First(&m).Error; err != nil {
		return domain.Organization{}, notFound(err, "root organization")
	}
	return organizationFromModel(m), nil
}

func (r *Repository) ListOrganizationIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&OrganizationModel{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) ListChildOrganizations(ctx context.Context, orgID int64) ([]domain.Organization, error) {
	rows := make([]OrganizationModel, 0)
	if err := r.db.WithContext(ctx).Where("parent_organization_id = ?", orgID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Organization, 0, len(rows))
	for _, m := range rows {
		result = append(result, organizationFromModel(m))
	}
	return result, nil
}

// GetRecursiveParentOrgIDs returns the ancestors of an organization, nearest first.
func (r *Repository) GetRecursiveParentOrgIDs(ctx context.Context, orgID int64) ([]int64, error) {
	type row struct {
		ID    int64
		Depth int
	}
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
WITH RECURSIVE parents(id, depth) AS (
    SELECT parent_organization_id, 1
    FROM organizations
    WHERE id = ?
    UNION
    SELECT o.parent_organization_id, parents.depth + 1
    FROM organizations o
    JOIN parents ON o.id = parents.id
    WHERE parents.depth < 64
)
SELECT id, depth
FROM parents
WHERE id IS NOT NULL
ORDER BY depth ASC
`, orgID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup || row.ID == orgID {
			continue
		}
		seen[row.ID] = struct{}{}
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *Repository) UpdateOrganization(ctx context.Context, value domain.Organization) error {
	m := organizationToModel(value)
	return r.db.WithContext(ctx).Model(&OrganizationModel{}).Where("id = ?", value.ID).Select("*").Omit("id", "created_at", "stream_scope_id").Updates(&m).Error
}

// DeleteOrganization re-parents child organizations and groups before removing the row.
func (r *Repository) DeleteOrganization(ctx context.Context, orgID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m OrganizationModel
		if err := tx.First(&m, orgID).Error; err != nil {
			return notFound(err, "organization")
		}
		if m.ParentOrganizationID == nil {
			return errors.New("root organization cannot be deleted")
		}
		parentID := *m.ParentOrganizationID
		if err := tx.Model(&OrganizationModel{}).Where("parent_organization_id = ?", orgID).Update("parent_organization_id", parentID).Error; err != nil {
			return err
		}
		if err := tx.Model(&GroupModel{}).Where("parent_organization_id = ?", orgID).Update("parent_organization_id", parentID).Error; err != nil {
			return err
		}
		if err := tx.Model(&PersonModel{}).Where("parent_organization_id = ?", orgID).Update("parent_organization_id", parentID).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", orgID).Delete(&OrgCoordinatorModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", orgID).Delete(&PersonRelatedOrgModel{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&StreamScopeModel{}, m.StreamScopeID).Error; err != nil {
			return err
		}
		return tx.Delete(&OrganizationModel{}, orgID).Error
	})
}

func (r *Repository) SetOrganizationCoordinators(ctx context.Context, orgID int64, personIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", orgID).Delete(&OrgCoordinatorModel{}).Error; err != nil {
			return err
		}
		for _, id := range personIDs {
			if err := tx.Create(&OrgCoordinatorModel{OrganizationID: orgID, PersonID: id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetOrganizationCoordinatorIDs(ctx context.Context, orgID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&OrgCoordinatorModel{}).Where("organization_id = ?", orgID).Order("person_id ASC").Pluck("person_id", &ids).Error
	return ids, err
}

// RefreshOrganizationStats recomputes the counters of an organization and every ancestor.
func (r *Repository) RefreshOrganizationStats(ctx context.Context, orgID int64) error {
	parents, err := r.GetRecursiveParentOrgIDs(ctx, orgID)
	if err != nil {
		return err
	}
	chain := append([]int64{orgID}, parents...)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range chain {
			if err := tx.Exec(`
WITH RECURSIVE subtree(id) AS (
    SELECT ?
    UNION
    SELECT o.id
    FROM organizations o
    JOIN subtree ON o.parent_organization_id = subtree.id
)
UPDATE organizations SET
    child_organization_count = (SELECT COUNT(*) FROM organizations c WHERE c.parent_organization_id = ?),
    descendant_group_count = (SELECT COUNT(*) FROM domain_groups g WHERE g.is_pending = 0 AND g.parent_organization_id IN (SELECT id FROM subtree)),
    descendant_employee_count = (SELECT COUNT(*) FROM people p WHERE p.parent_organization_id IN (SELECT id FROM subtree)),
    employee_follower_count = (SELECT COALESCE(SUM(p.followers_count), 0) FROM people p WHERE p.parent_organization_id IN (SELECT id FROM subtree))
WHERE id = ?
`, id, id, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
