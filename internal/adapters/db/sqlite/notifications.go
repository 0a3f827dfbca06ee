package sqlite

import (
	"context"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

func (r *Repository) CreateNotifications(ctx context.Context, values []domain.Notification) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]NotificationModel, 0, len(values))
	for _, n := range values {
		rows = append(rows, NotificationModel{
			RecipientID:      n.RecipientID,
			NotificationType: string(n.NotificationType),
			Message:          n.Message,
			URL:              n.URL,
			HighPriority:     n.HighPriority,
			IsRead:           n.IsRead,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *Repository) ListNotifications(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	q := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	rows := make([]NotificationModel, 0)
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Notification, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Notification{
			ID:               m.ID,
			RecipientID:      m.RecipientID,
			NotificationType: domain.NotificationType(m.NotificationType),
			Message:          m.Message,
			URL:              m.URL,
			HighPriority:     m.HighPriority,
			IsRead:           m.IsRead,
			CreatedAt:        m.CreatedAt,
		})
	}
	return result, nil
}

// MarkNotificationsRead flags the recipient's notifications; an empty id list marks all of them.
func (r *Repository) MarkNotificationsRead(ctx context.Context, recipientID int64, ids []int64) (int64, error) {
	q := r.db.WithContext(ctx).Model(&NotificationModel{}).Where("recipient_id = ? AND is_read = ?", recipientID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("is_read", true)
	return res.RowsAffected, res.Error
}
