package sqlite

import (
	"context"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func personFromModel(m PersonModel) domain.Person {
	return domain.Person{
		ID:                   m.ID,
		AccountID:            m.AccountID,
		OpenSocialID:         m.OpenSocialID,
		FirstName:            m.FirstName,
		MiddleName:           m.MiddleName,
		LastName:             m.LastName,
		PreferredName:        m.PreferredName,
		Email:                m.Email,
		Title:                m.Title,
		JobDescription:       m.JobDescription,
		Overview:             m.Overview,
		Quote:                m.Quote,
		Location:             m.Location,
		WorkPhone:            m.WorkPhone,
		CellPhone:            m.CellPhone,
		Fax:                  m.Fax,
		CompanyName:          m.CompanyName,
		AvatarID:             m.AvatarID,
		ParentOrganizationID: m.ParentOrganizationID,
		StreamScopeID:        m.StreamScopeID,
		FollowersCount:       m.FollowersCount,
		FollowingCount:       m.FollowingCount,
		GroupsCount:          m.GroupsCount,
		UpdatesCount:         m.UpdatesCount,
		Commentable:          m.Commentable,
		StreamPostable:       m.StreamPostable,
		AccountLocked:        m.AccountLocked,
		AccountDeactivated:   m.AccountDeactivated,
		PasswordHash:         m.PasswordHash,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func personToModel(p domain.Person) PersonModel {
	return PersonModel{
		ID:                   p.ID,
		AccountID:            strings.ToLower(strings.TrimSpace(p.AccountID)),
		OpenSocialID:         p.OpenSocialID,
		FirstName:            p.FirstName,
		MiddleName:           p.MiddleName,
		LastName:             p.LastName,
		PreferredName:        p.PreferredName,
		Email:                strings.ToLower(strings.TrimSpace(p.Email)),
		Title:                p.Title,
		JobDescription:       p.JobDescription,
		Overview:             p.Overview,
		Quote:                p.Quote,
		Location:             p.Location,
		WorkPhone:            p.WorkPhone,
		CellPhone:            p.CellPhone,
		Fax:                  p.Fax,
		CompanyName:          p.CompanyName,
		AvatarID:             p.AvatarID,
		ParentOrganizationID: p.ParentOrganizationID,
		StreamScopeID:        p.StreamScopeID,
		FollowersCount:       p.FollowersCount,
		FollowingCount:       p.FollowingCount,
		GroupsCount:          p.GroupsCount,
		UpdatesCount:         p.UpdatesCount,
		Commentable:          p.Commentable,
		StreamPostable:       p.StreamPostable,
		AccountLocked:        p.AccountLocked,
		AccountDeactivated:   p.AccountDeactivated,
		PasswordHash:         p.PasswordHash,
		CreatedAt:            p.CreatedAt,
	}
}

func (r *Repository) CreatePerson(ctx context.Context, value domain.Person) (domain.Person, error) {
	m := personToModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		scope := StreamScopeModel{ScopeType: string(domain.ScopeTypePerson), UniqueKey: m.AccountID, DestinationEntityID: m.ID}
		if err := tx.Create(&scope).Error; err != nil {
			return err
		}
		m.StreamScopeID = scope.ID
		return tx.Model(&PersonModel{}).Where("id = ?", m.ID).Update("stream_scope_id", scope.ID).Error
	})
	if err != nil {
		return domain.Person{}, err
	}
	return personFromModel(m), nil
}

func (r *Repository) CountPeople(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PersonModel{}).Count(&count).Error
	return count, err
}

func (r *Repository) GetPersonByID(ctx context.Context, id int64) (domain.Person, error) {
	var m PersonModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Person{}, notFound(err, "person")
	}
	return personFromModel(m), nil
}

func (r *Repository) GetPersonByAccountID(ctx context.Context, accountID string) (domain.Person, error) {
	var m PersonModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", strings.ToLower(strings.TrimSpace(accountID))).First(&m).Error; err != nil {
		return domain.Person{}, notFound(err, "person "+accountID)
	}
	return personFromModel(m), nil
}

func (r *Repository) GetPersonByEmail(ctx context.Context, email string) (domain.Person, error) {
	var m PersonModel
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&m).Error; err != nil {
		return domain.Person{}, notFound(err, "person "+email)
	}
	return personFromModel(m), nil
}

func (r *Repository) GetPeopleByIDs(ctx context.Context, ids []int64) ([]domain.Person, error) {
	if len(ids) == 0 {
		return []domain.Person{}, nil
	}
	rows := make([]PersonModel, 0, len(ids))
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Person, 0, len(rows))
	for _, m := range rows {
		result = append(result, personFromModel(m))
	}
	return result, nil
}

func (r *Repository) GetPeopleByAccountIDs(ctx context.Context, accountIDs []string) ([]domain.Person, error) {
	if len(accountIDs) == 0 {
		return []domain.Person{}, nil
	}
	normalized := make([]string, 0, len(accountIDs))
	for _, a := range accountIDs {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(a)))
	}
	rows := make([]PersonModel, 0, len(accountIDs))
	if err := r.db.WithContext(ctx).Where("account_id IN ?", normalized).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Person, 0, len(rows))
	for _, m := range rows {
		result = append(result, personFromModel(m))
	}
	return result, nil
}

func (r *Repository) ListPersonIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&PersonModel{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) UpdatePerson(ctx context.Context, value domain.Person) error {
	m := personToModel(value)
	return r.db.WithContext(ctx).Model(&PersonModel{}).Where("id = ?", value.ID).Select("*").Omit("id", "created_at", "stream_scope_id").Updates(&m).Error
}

func (r *Repository) SetRelatedOrganizations(ctx context.Context, personID int64, orgIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("person_id = ?", personID).Delete(&PersonRelatedOrgModel{}).Error; err != nil {
			return err
		}
		for _, id := range orgIDs {
			if err := tx.Create(&PersonRelatedOrgModel{PersonID: personID, OrganizationID: id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetRelatedOrganizationIDs(ctx context.Context, personID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&PersonRelatedOrgModel{}).Where("person_id = ?", personID).Order("organization_id ASC").Pluck("organization_id", &ids).Error
	return ids, err
}

func (r *Repository) GetPersonIDsRelatedToOrganization(ctx context.Context, orgID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&PersonRelatedOrgModel{}).Where("organization_id = ?", orgID).Order("person_id ASC").Pluck("person_id", &ids).Error
	return ids, err
}

func (r *Repository) MovePeopleToOrganization(ctx context.Context, fromOrgID, toOrgID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&PersonModel{}).Where("parent_organization_id = ?", fromOrgID).Order("id ASC").Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&PersonModel{}).Where("id IN ?", ids).Update("parent_organization_id", toOrgID).Error
	})
	return ids, err
}

func (r *Repository) AddPersonFollower(ctx context.Context, followerID, targetID int64) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&FollowerModel{FollowerID: followerID, FollowingID: targetID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true
		return refreshFollowCounts(tx, followerID, targetID)
	})
	return added, err
}

func (r *Repository) RemovePersonFollower(ctx context.Context, followerID, targetID int64) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, targetID).Delete(&FollowerModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return refreshFollowCounts(tx, followerID, targetID)
	})
	return removed, err
}

func refreshFollowCounts(tx *gorm.DB, followerID, targetID int64) error {
	if err := tx.Exec(`UPDATE people SET following_count = (SELECT COUNT(*) FROM followers WHERE follower_id = ?) WHERE id = ?`, followerID, followerID).Error; err != nil {
		return err
	}
	return tx.Exec(`UPDATE people SET followers_count = (SELECT COUNT(*) FROM followers WHERE following_id = ?) WHERE id = ?`, targetID, targetID).Error
}

func (r *Repository) IsFollowingPerson(ctx context.Context, followerID, targetID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&FollowerModel{}).Where("follower_id = ? AND following_id = ?", followerID, targetID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) GetFollowerIDs(ctx context.Context, personID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&FollowerModel{}).Where("following_id = ?", personID).Order("created_at DESC").Pluck("follower_id", &ids).Error
	return ids, err
}

func (r *Repository) GetFollowingIDs(ctx context.Context, personID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&FollowerModel{}).Where("follower_id = ?", personID).Order("created_at DESC").Pluck("following_id", &ids).Error
	return ids, err
}
