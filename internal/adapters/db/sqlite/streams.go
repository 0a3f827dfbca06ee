package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func streamScopeFromModel(m StreamScopeModel) domain.StreamScope {
	return domain.StreamScope{ID: m.ID, ScopeType: domain.ScopeType(m.ScopeType), UniqueKey: m.UniqueKey, DestinationEntityID: m.DestinationEntityID}
}

func activityFromModel(m ActivityModel) domain.Activity {
	return domain.Activity{
		ID:                        m.ID,
		ActorPersonID:             m.ActorPersonID,
		RecipientStreamScopeID:    m.RecipientStreamScopeID,
		Verb:                      domain.ActivityVerb(m.Verb),
		BaseObjectType:            m.BaseObjectType,
		Body:                      m.Body,
		TargetURL:                 m.TargetURL,
		OriginalActivityID:        m.OriginalActivityID,
		CommentCount:              m.CommentCount,
		IsDestinationStreamPublic: m.IsDestinationStreamPublic,
		PostedTime:                m.PostedTime,
	}
}

func commentFromModel(m CommentModel) domain.Comment {
	return domain.Comment{ID: m.ID, ActivityID: m.ActivityID, AuthorPersonID: m.AuthorPersonID, Body: m.Body, TimeSent: m.TimeSent}
}

func (r *Repository) GetStreamScopeByID(ctx context.Context, id int64) (domain.StreamScope, error) {
	var m StreamScopeModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.StreamScope{}, notFound(err, "stream scope")
	}
	return streamScopeFromModel(m), nil
}

func (r *Repository) GetStreamScope(ctx context.Context, scopeType domain.ScopeType, uniqueKey string) (domain.StreamScope, error) {
	var m StreamScopeModel
	key := strings.ToLower(strings.TrimSpace(uniqueKey))
	if err := r.db.WithContext(ctx).Where("scope_type = ? AND unique_key = ?", string(scopeType), key).First(&m).Error; err != nil {
		return domain.StreamScope{}, notFound(err, "stream scope "+string(scopeType)+"/"+uniqueKey)
	}
	return streamScopeFromModel(m), nil
}

// CreateActivity stores the activity and bumps the updates counter of the destination entity.
func (r *Repository) CreateActivity(ctx context.Context, value domain.Activity) (domain.Activity, error) {
	m := ActivityModel{
		ActorPersonID:             value.ActorPersonID,
		RecipientStreamScopeID:    value.RecipientStreamScopeID,
		Verb:                      string(value.Verb),
		BaseObjectType:            value.BaseObjectType,
		Body:                      value.Body,
		TargetURL:                 value.TargetURL,
		OriginalActivityID:        value.OriginalActivityID,
		IsDestinationStreamPublic: value.IsDestinationStreamPublic,
		PostedTime:                value.PostedTime,
	}
	if m.Verb == "" {
		m.Verb = string(domain.VerbPost)
	}
	if m.BaseObjectType == "" {
		m.BaseObjectType = "NOTE"
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scope StreamScopeModel
		if err := tx.First(&scope, m.RecipientStreamScopeID).Error; err != nil {
			return notFound(err, "stream scope")
		}
		if m.PostedTime.IsZero() {
			m.PostedTime = tx.NowFunc()
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		table := "people"
		switch domain.ScopeType(scope.ScopeType) {
		case domain.ScopeTypeGroup:
			table = "domain_groups"
		case domain.ScopeTypeOrganization:
			table = "organizations"
		}
		return tx.Table(table).Where("id = ?", scope.DestinationEntityID).Update("updates_count", gorm.Expr("updates_count + 1")).Error
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return activityFromModel(m), nil
}

func (r *Repository) GetActivityByID(ctx context.Context, id int64) (domain.Activity, error) {
	var m ActivityModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Activity{}, notFound(err, "activity")
	}
	return activityFromModel(m), nil
}

func (r *Repository) DeleteActivity(ctx context.Context, id int64) ([]int64, error) {
	commentIDs := make([]int64, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m ActivityModel
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err, "activity")
		}
		if err := tx.Model(&CommentModel{}).Where("activity_id = ?", id).Order("id ASC").Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		return deleteActivityRows(tx, []int64{id})
	})
	return commentIDs, err
}

func deleteActivityRows(tx *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("activity_id IN ?", ids).Delete(&CommentModel{}).Error; err != nil {
		return err
	}
	if err := tx.Where("activity_id IN ?", ids).Delete(&StarModel{}).Error; err != nil {
		return err
	}
	if err := tx.Model(&GroupModel{}).Where("sticky_activity_id IN ?", ids).Update("sticky_activity_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&ActivityModel{}).Error
}

func (r *Repository) ListActivitiesByScope(ctx context.Context, scopeID int64, beforeID int64, limit int) ([]domain.Activity, error) {
	q := r.db.WithContext(ctx).Where("recipient_stream_scope_id = ?", scopeID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	rows := make([]ActivityModel, 0, limit)
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Activity, 0, len(rows))
	for _, m := range rows {
		result = append(result, activityFromModel(m))
	}
	return result, nil
}

// DeleteActivitiesByScope removes every activity posted to a stream together with its comments and stars.
func (r *Repository) DeleteActivitiesByScope(ctx context.Context, scopeID int64) (domain.ActivityDeletion, error) {
	out := domain.ActivityDeletion{
		ActivityIDs:     make([]int64, 0),
		CommentIDs:      make([]int64, 0),
		StarredByPerson: make(map[int64][]int64),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ActivityModel{}).Where("recipient_stream_scope_id = ?", scopeID).Order("id DESC").Pluck("id", &out.ActivityIDs).Error; err != nil {
			return err
		}
		if len(out.ActivityIDs) == 0 {
			return nil
		}
		if err := tx.Model(&CommentModel{}).Where("activity_id IN ?", out.ActivityIDs).Order("id ASC").Pluck("id", &out.CommentIDs).Error; err != nil {
			return err
		}
		stars := make([]StarModel, 0)
		if err := tx.Where("activity_id IN ?", out.ActivityIDs).Order("person_id ASC, activity_id DESC").Find(&stars).Error; err != nil {
			return err
		}
		for _, s := range stars {
			out.StarredByPerson[s.PersonID] = append(out.StarredByPerson[s.PersonID], s.ActivityID)
		}
		return deleteActivityRows(tx, out.ActivityIDs)
	})
	return out, err
}

func (r *Repository) DeleteActivitiesOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ActivityModel{}).Where("posted_time < ?", cutoff.UTC()).Order("id ASC").Pluck("id", &ids).Error; err != nil {
			return err
		}
		return deleteActivityRows(tx, ids)
	})
	return ids, err
}

func (r *Repository) CreateComment(ctx context.Context, value domain.Comment) (domain.Comment, error) {
	m := CommentModel{ActivityID: value.ActivityID, AuthorPersonID: value.AuthorPersonID, Body: value.Body, TimeSent: value.TimeSent}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.TimeSent.IsZero() {
			m.TimeSent = tx.NowFunc()
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return tx.Model(&ActivityModel{}).Where("id = ?", m.ActivityID).Update("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return domain.Comment{}, err
	}
	return commentFromModel(m), nil
}

func (r *Repository) ListComments(ctx context.Context, activityID int64) ([]domain.Comment, error) {
	rows := make([]CommentModel, 0)
	if err := r.db.WithContext(ctx).Where("activity_id = ?", activityID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Comment, 0, len(rows))
	for _, m := range rows {
		result = append(result, commentFromModel(m))
	}
	return result, nil
}

func (r *Repository) SetStar(ctx context.Context, personID, activityID int64, starred bool) error {
	db := r.db.WithContext(ctx)
	if !starred {
		return db.Where("person_id = ? AND activity_id = ?", personID, activityID).Delete(&StarModel{}).Error
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&StarModel{PersonID: personID, ActivityID: activityID}).Error
}

func (r *Repository) GetStarredActivityIDs(ctx context.Context, personID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&StarModel{}).Where("person_id = ?", personID).Order("activity_id DESC").Pluck("activity_id", &ids).Error
	return ids, err
}
