package sqlite

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm"
)

func usageSummaryFromModel(m DailyUsageSummaryModel) domain.DailyUsageSummary {
	return domain.DailyUsageSummary{
		ID:                      m.ID,
		UniqueVisitorCount:      m.UniqueVisitorCount,
		PageViewCount:           m.PageViewCount,
		StreamViewerCount:       m.StreamViewerCount,
		StreamViewCount:         m.StreamViewCount,
		StreamContributorCount:  m.StreamContributorCount,
		MessageCount:            m.MessageCount,
		AvgActivityResponseTime: m.AvgActivityResponseTime,
		UsageDate:               m.UsageDate,
		UsageDateTimeStampInMs:  m.UsageDateTimeStampInMs,
		IsWeekday:               m.IsWeekday,
		StreamViewStreamScopeID: m.StreamViewStreamScopeID,
		TotalActivityCount:      m.TotalActivityCount,
		TotalCommentCount:       m.TotalCommentCount,
		TotalStreamViewCount:    m.TotalStreamViewCount,
		TotalContributorCount:   m.TotalContributorCount,
	}
}

func (r *Repository) InsertUsageMetric(ctx context.Context, value domain.UsageMetric) error {
	m := UsageMetricModel{
		ActorPersonID:           value.ActorPersonID,
		IsPageView:              value.IsPageView,
		IsStreamView:            value.IsStreamView,
		StreamViewStreamScopeID: value.StreamViewStreamScopeID,
		Created:                 value.Created.UTC(),
	}
	db := r.db.WithContext(ctx)
	if value.Created.IsZero() {
		m.Created = db.NowFunc()
	}
	return db.Create(&m).Error
}

func (r *Repository) DeleteUsageMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created < ?", cutoff.UTC()).Delete(&UsageMetricModel{})
	return res.RowsAffected, res.Error
}

// scopeFilter narrows a query to one stream scope, or leaves it global when scopeID is nil.
func scopeFilter(q *gorm.DB, column string, scopeID *int64) *gorm.DB {
	if scopeID == nil {
		return q
	}
	return q.Where(column+" = ?", *scopeID)
}

// ComputeUsageStats counts the activity in [from, to).
func (r *Repository) ComputeUsageStats(ctx context.Context, from, to time.Time, scopeID *int64) (domain.UsageStats, error) {
	from, to = from.UTC(), to.UTC()
	db := r.db.WithContext(ctx)
	var stats domain.UsageStats

	metrics := func() *gorm.DB {
		q := db.Model(&UsageMetricModel{}).Where("created >= ? AND created < ?", from, to)
		return scopeFilter(q, "stream_view_stream_scope_id", scopeID)
	}
	if err := metrics().Distinct("actor_person_id").Count(&stats.UniqueVisitorCount).Error; err != nil {
		return stats, err
	}
	if err := metrics().Where("is_page_view = ?", true).Count(&stats.PageViewCount).Error; err != nil {
		return stats, err
	}
	if err := metrics().Where("is_stream_view = ?", true).Count(&stats.StreamViewCount).Error; err != nil {
		return stats, err
	}
	if err := metrics().Where("is_stream_view = ?", true).Distinct("actor_person_id").Count(&stats.StreamViewerCount).Error; err != nil {
		return stats, err
	}

	var activityCount, commentCount int64
	activities := scopeFilter(db.Model(&ActivityModel{}).Where("posted_time >= ? AND posted_time < ?", from, to), "recipient_stream_scope_id", scopeID)
	if err := activities.Count(&activityCount).Error; err != nil {
		return stats, err
	}
	comments := scopeFilter(
		db.Model(&CommentModel{}).Joins("JOIN activities a ON a.id = comments.activity_id").Where("comments.time_sent >= ? AND comments.time_sent < ?", from, to),
		"a.recipient_stream_scope_id", scopeID)
	if err := comments.Count(&commentCount).Error; err != nil {
		return stats, err
	}
	stats.MessageCount = activityCount + commentCount

	contributorSQL := `
SELECT COUNT(*) FROM (
    SELECT actor_person_id AS person_id FROM activities
    WHERE posted_time >= @from AND posted_time < @to AND (@scope IS NULL OR recipient_stream_scope_id = @scope)
    UNION
    SELECT c.author_person_id FROM comments c JOIN activities a ON a.id = c.activity_id
    WHERE c.time_sent >= @from AND c.time_sent < @to AND (@scope IS NULL OR a.recipient_stream_scope_id = @scope)
)`
	args := map[string]any{"from": from, "to": to, "scope": scopeID}
	if err := db.Raw(contributorSQL, args).Scan(&stats.StreamContributorCount).Error; err != nil {
		return stats, err
	}

	var avg sql.NullFloat64
	responseSQL := `
SELECT AVG((julianday(first_comment) - julianday(posted_time)) * 1440.0) FROM (
    SELECT a.posted_time AS posted_time, MIN(c.time_sent) AS first_comment
    FROM activities a JOIN comments c ON c.activity_id = a.id
    WHERE a.posted_time >= @from AND a.posted_time < @to
      AND c.time_sent >= @from AND c.time_sent < @to
      AND (@scope IS NULL OR a.recipient_stream_scope_id = @scope)
    GROUP BY a.id
)`
	if err := db.Raw(responseSQL, args).Scan(&avg).Error; err != nil {
		return stats, err
	}
	if avg.Valid {
		stats.AvgActivityResponseTime = int64(math.Round(avg.Float64))
	}
	return stats, nil
}

// ComputeStreamTotals counts everything a stream has accumulated before until.
func (r *Repository) ComputeStreamTotals(ctx context.Context, scopeID int64, until time.Time) (domain.StreamTotals, error) {
	until = until.UTC()
	db := r.db.WithContext(ctx)
	var totals domain.StreamTotals
	if err := db.Model(&ActivityModel{}).Where("recipient_stream_scope_id = ? AND posted_time < ?", scopeID, until).Count(&totals.ActivityCount).Error; err != nil {
		return totals, err
	}
	if err := db.Model(&CommentModel{}).Joins("JOIN activities a ON a.id = comments.activity_id").
		Where("a.recipient_stream_scope_id = ? AND comments.time_sent < ?", scopeID, until).Count(&totals.CommentCount).Error; err != nil {
		return totals, err
	}
	if err := db.Model(&UsageMetricModel{}).Where("is_stream_view = ? AND stream_view_stream_scope_id = ? AND created < ?", true, scopeID, until).Count(&totals.StreamViewCount).Error; err != nil {
		return totals, err
	}
	err := db.Raw(`
SELECT COUNT(*) FROM (
    SELECT actor_person_id FROM activities WHERE recipient_stream_scope_id = @scope AND posted_time < @until
    UNION
    SELECT c.author_person_id FROM comments c JOIN activities a ON a.id = c.activity_id
    WHERE a.recipient_stream_scope_id = @scope AND c.time_sent < @until
)`, map[string]any{"scope": scopeID, "until": until}).Scan(&totals.ContributorCount).Error
	return totals, err
}

func (r *Repository) ListActiveStreamScopeIDs(ctx context.Context, from, to time.Time) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT stream_view_stream_scope_id FROM usage_metrics
WHERE is_stream_view = 1 AND stream_view_stream_scope_id IS NOT NULL AND created >= @from AND created < @to
UNION
SELECT recipient_stream_scope_id FROM activities WHERE posted_time >= @from AND posted_time < @to
UNION
SELECT a.recipient_stream_scope_id FROM comments c JOIN activities a ON a.id = c.activity_id
WHERE c.time_sent >= @from AND c.time_sent < @to
ORDER BY 1
`, map[string]any{"from": from.UTC(), "to": to.UTC()}).Scan(&ids).Error
	return ids, err
}

func (r *Repository) GetDailyUsageSummary(ctx context.Context, usageDate time.Time, scopeID *int64) (domain.DailyUsageSummary, error) {
	q := r.db.WithContext(ctx).Where("usage_date_time_stamp_in_ms = ?", usageDate.UTC().UnixMilli())
	if scopeID == nil {
		q = q.Where("stream_view_stream_scope_id IS NULL")
	} else {
		q = q.Where("stream_view_stream_scope_id = ?", *scopeID)
	}
	var m DailyUsageSummaryModel
	if err := q.First(&m).Error; err != nil {
		return domain.DailyUsageSummary{}, notFound(err, "daily usage summary")
	}
	return usageSummaryFromModel(m), nil
}

func (r *Repository) InsertDailyUsageSummary(ctx context.Context, value domain.DailyUsageSummary) error {
	m := DailyUsageSummaryModel{
		UniqueVisitorCount:      value.UniqueVisitorCount,
		PageViewCount:           value.PageViewCount,
		StreamViewerCount:       value.StreamViewerCount,
		StreamViewCount:         value.StreamViewCount,
		StreamContributorCount:  value.StreamContributorCount,
		MessageCount:            value.MessageCount,
		AvgActivityResponseTime: value.AvgActivityResponseTime,
		UsageDate:               value.UsageDate.UTC(),
		UsageDateTimeStampInMs:  value.UsageDate.UTC().UnixMilli(),
		IsWeekday:               value.IsWeekday,
		StreamViewStreamScopeID: value.StreamViewStreamScopeID,
		TotalActivityCount:      value.TotalActivityCount,
		TotalCommentCount:       value.TotalCommentCount,
		TotalStreamViewCount:    value.TotalStreamViewCount,
		TotalContributorCount:   value.TotalContributorCount,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *Repository) ListWeekdaySummaries(ctx context.Context, scopeID *int64) ([]domain.DailyUsageSummary, error) {
	q := r.db.WithContext(ctx).Where("is_weekday = ?", true)
	if scopeID == nil {
		q = q.Where("stream_view_stream_scope_id IS NULL")
	} else {
		q = q.Where("stream_view_stream_scope_id = ?", *scopeID)
	}
	rows := make([]DailyUsageSummaryModel, 0)
	if err := q.Order("usage_date_time_stamp_in_ms ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.DailyUsageSummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, usageSummaryFromModel(m))
	}
	return result, nil
}
