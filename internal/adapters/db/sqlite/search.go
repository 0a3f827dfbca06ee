package sqlite

import (
	"context"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm/clause"
)

func (r *Repository) UpsertSearchDocument(ctx context.Context, value domain.SearchDocument) error {
	m := SearchDocumentModel{
		EntityType: string(value.EntityType),
		EntityID:   value.EntityID,
		Key:        value.Key,
		Title:      value.Title,
		Body:       value.Body,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"key", "title", "body", "updated_at"}),
	}).Create(&m).Error
}

func (r *Repository) DeleteSearchDocuments(ctx context.Context, entityType domain.ScopeType, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("entity_type = ? AND entity_id IN ?", string(entityType), ids).Delete(&SearchDocumentModel{}).Error
}

// SearchDocuments matches every whitespace-separated term against title, key and body.
func (r *Repository) SearchDocuments(ctx context.Context, query string, entityType domain.ScopeType, limit int) ([]domain.SearchDocument, error) {
	q := r.db.WithContext(ctx).Model(&SearchDocumentModel{})
	if entityType != "" {
		q = q.Where("entity_type = ?", string(entityType))
	}
	for _, term := range strings.Fields(strings.ToLower(query)) {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(key) LIKE ? ESCAPE '\\' OR LOWER(body) LIKE ? ESCAPE '\\')", like, like, like)
	}
	rows := make([]SearchDocumentModel, 0)
	if err := q.Order("title ASC, entity_id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.SearchDocument, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.SearchDocument{
			EntityType: domain.ScopeType(m.EntityType),
			EntityID:   m.EntityID,
			Key:        m.Key,
			Title:      m.Title,
			Body:       m.Body,
		})
	}
	return result, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
