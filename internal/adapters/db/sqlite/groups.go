package sqlite

import (
	"context"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func groupFromModel(m GroupModel) domain.Group {
	return domain.Group{
		ID:                   m.ID,
		ShortName:            m.ShortName,
		Name:                 m.Name,
		Overview:             m.Overview,
		Description:          m.Description,
		URL:                  m.URL,
		AvatarID:             m.AvatarID,
		BannerID:             m.BannerID,
		PublicGroup:          m.PublicGroup,
		Commentable:          m.Commentable,
		StreamPostable:       m.StreamPostable,
		IsPending:            m.IsPending,
		CreatedByID:          m.CreatedByID,
		ParentOrganizationID: m.ParentOrganizationID,
		StreamScopeID:        m.StreamScopeID,
		Capabilities:         splitList(m.Capabilities),
		FollowersCount:       m.FollowersCount,
		UpdatesCount:         m.UpdatesCount,
		StickyActivityID:     m.StickyActivityID,
		DateAdded:            m.DateAdded,
		UpdatedAt:            m.UpdatedAt,
	}
}

func groupToModel(g domain.Group) GroupModel {
	return GroupModel{
		ID:                   g.ID,
		ShortName:            strings.ToLower(strings.TrimSpace(g.ShortName)),
		Name:                 g.Name,
		Overview:             g.Overview,
		Description:          g.Description,
		URL:                  g.URL,
		AvatarID:             g.AvatarID,
		BannerID:             g.BannerID,
		PublicGroup:          g.PublicGroup,
		Commentable:          g.Commentable,
		StreamPostable:       g.StreamPostable,
		IsPending:            g.IsPending,
		CreatedByID:          g.CreatedByID,
		ParentOrganizationID: g.ParentOrganizationID,
		StreamScopeID:        g.StreamScopeID,
		Capabilities:         joinList(g.Capabilities),
		FollowersCount:       g.FollowersCount,
		UpdatesCount:         g.UpdatesCount,
		StickyActivityID:     g.StickyActivityID,
		DateAdded:            g.DateAdded,
	}
}

func groupsFromModels(rows []GroupModel) []domain.Group {
	result := make([]domain.Group, 0, len(rows))
	for _, m := range rows {
		result = append(result, groupFromModel(m))
	}
	return result
}

func (r *Repository) CreateGroup(ctx context.Context, value domain.Group) (domain.Group, error) {
	m := groupToModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.DateAdded.IsZero() {
			m.DateAdded = tx.NowFunc()
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		scope := StreamScopeModel{ScopeType: string(domain.ScopeTypeGroup), UniqueKey: m.ShortName, DestinationEntityID: m.ID}
		if err := tx.Create(&scope).Error; err != nil {
			return err
		}
		m.StreamScopeID = scope.ID
		return tx.Model(&GroupModel{}).Where("id = ?", m.ID).Update("stream_scope_id", scope.ID).Error
	})
	if err != nil {
		return domain.Group{}, err
	}
	return groupFromModel(m), nil
}

func (r *Repository) GetGroupByID(ctx context.Context, id int64) (domain.Group, error) {
	var m GroupModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Group{}, notFound(err, "group")
	}
	return groupFromModel(m), nil
}

func (r *Repository) GetGroupByShortName(ctx context.Context, shortName string) (domain.Group, error) {
	var m GroupModel
	if err := r.db.WithContext(ctx).Where("short_name = ?", strings.ToLower(strings.TrimSpace(shortName))).First(&m).Error; err != nil {
		return domain.Group{}, notFound(err, "group "+shortName)
	}
	return groupFromModel(m), nil
}

func (r *Repository) GetGroupsByIDs(ctx context.Context, ids []int64) ([]domain.Group, error) {
	if len(ids) == 0 {
		return []domain.Group{}, nil
	}
	rows := make([]GroupModel, 0, len(ids))
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return groupsFromModels(rows), nil
}

func (r *Repository) ListGroupIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&GroupModel{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) ListPendingGroups(ctx context.Context) ([]domain.Group, error) {
	rows := make([]GroupModel, 0)
	if err := r.db.WithContext(ctx).Where("is_pending = ?", true).Order("date_added ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return groupsFromModels(rows), nil
}

func (r *Repository) UpdateGroup(ctx context.Context, value domain.Group) error {
	m := groupToModel(value)
	return r.db.WithContext(ctx).Model(&GroupModel{}).Where("id = ?", value.ID).Select("*").Omit("id", "date_added", "stream_scope_id").Updates(&m).Error
}

func (r *Repository) DeleteGroup(ctx context.Context, groupID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m GroupModel
		if err := tx.First(&m, groupID).Error; err != nil {
			return notFound(err, "group")
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&GroupCoordinatorModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&GroupFollowerModel{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&StreamScopeModel{}, m.StreamScopeID).Error; err != nil {
			return err
		}
		return tx.Delete(&GroupModel{}, groupID).Error
	})
}

func (r *Repository) SetGroupCoordinators(ctx context.Context, groupID int64, personIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&GroupCoordinatorModel{}).Error; err != nil {
			return err
		}
		for _, id := range personIDs {
			if err := tx.Create(&GroupCoordinatorModel{GroupID: groupID, PersonID: id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetGroupCoordinatorIDs(ctx context.Context, groupID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&GroupCoordinatorModel{}).Where("group_id = ?", groupID).Order("person_id ASC").Pluck("person_id", &ids).Error
	return ids, err
}

func (r *Repository) AddGroupFollower(ctx context.Context, followerID, groupID int64) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&GroupFollowerModel{FollowerID: followerID, GroupID: groupID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true
		return refreshGroupFollowCounts(tx, groupID, followerID)
	})
	return added, err
}

func (r *Repository) RemoveGroupFollower(ctx context.Context, followerID, groupID int64) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND group_id = ?", followerID, groupID).Delete(&GroupFollowerModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return refreshGroupFollowCounts(tx, groupID, followerID)
	})
	return removed, err
}

// RemoveAllGroupFollowers drops every follower of a group and returns who was following.
func (r *Repository) RemoveAllGroupFollowers(ctx context.Context, groupID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&GroupFollowerModel{}).Where("group_id = ?", groupID).Order("follower_id ASC").Pluck("follower_id", &ids).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&GroupFollowerModel{}).Error; err != nil {
			return err
		}
		return refreshGroupFollowCounts(tx, groupID, ids...)
	})
	return ids, err
}

func refreshGroupFollowCounts(tx *gorm.DB, groupID int64, personIDs ...int64) error {
	if err := tx.Exec(`UPDATE domain_groups SET followers_count = (SELECT COUNT(*) FROM group_followers WHERE group_id = ?) WHERE id = ?`, groupID, groupID).Error; err != nil {
		return err
	}
	for _, id := range personIDs {
		if err := tx.Exec(`UPDATE people SET groups_count = (SELECT COUNT(*) FROM group_followers WHERE follower_id = ?) WHERE id = ?`, id, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) IsFollowingGroup(ctx context.Context, personID, groupID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&GroupFollowerModel{}).Where("follower_id = ? AND group_id = ?", personID, groupID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) GetGroupFollowerIDs(ctx context.Context, groupID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&GroupFollowerModel{}).Where("group_id = ?", groupID).Order("created_at DESC").Pluck("follower_id", &ids).Error
	return ids, err
}

func (r *Repository) GetFollowedGroupIDs(ctx context.Context, personID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&GroupFollowerModel{}).Where("follower_id = ?", personID).Order("created_at DESC").Pluck("group_id", &ids).Error
	return ids, err
}
