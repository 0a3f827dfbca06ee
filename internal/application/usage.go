package application

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
)

type registerUsageMetricParams struct {
	IsPageView    bool   `json:"isPageView"`
	IsStreamView  bool   `json:"isStreamView"`
	MetricDetails string `json:"metricDetails"`
}

type usageMetricDetails struct {
	Query struct {
		Recipient []struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"recipient"`
	} `json:"query"`
}

// registerUsageMetric records nothing on weekends; otherwise it queues one persistUsageMetric request.
func (s *Service) registerUsageMetric(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in registerUsageMetricParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}

	now := s.now()
	if !IsWeekday(now) {
		return false, nil
	}

	metric := domain.UsageMetric{
		ActorPersonID:           ac.Principal.PersonID,
		IsPageView:              in.IsPageView,
		IsStreamView:            in.IsStreamView,
		StreamViewStreamScopeID: s.streamScopeFromMetricDetails(ctx, in.MetricDetails),
		Created:                 now,
	}
	if err := ac.Enqueue(ActionPersistUsageMetric, metric); err != nil {
		return nil, err
	}
	return true, nil
}

// streamScopeFromMetricDetails resolves the single recipient of a stream request, or nil.
func (s *Service) streamScopeFromMetricDetails(ctx context.Context, raw string) *int64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var details usageMetricDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		s.log.WithError(err).Debug("unparseable metric details")
		return nil
	}
	if len(details.Query.Recipient) != 1 {
		return nil
	}
	recipient := details.Query.Recipient[0]
	switch domain.ScopeType(strings.ToUpper(recipient.Type)) {
	case domain.ScopeTypePerson:
		p, err := s.cachedPersonByAccountID(ctx, recipient.Name)
		if err != nil {
			s.log.WithError(err).WithField("accountId", recipient.Name).Debug("metric recipient not found")
			return nil
		}
		return &p.StreamScopeID
	case domain.ScopeTypeGroup:
		g, err := s.cachedGroupByShortName(ctx, recipient.Name)
		if err != nil {
			s.log.WithError(err).WithField("shortName", recipient.Name).Debug("metric recipient not found")
			return nil
		}
		return &g.StreamScopeID
	default:
		return nil
	}
}

func (s *Service) persistUsageMetric(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var metric domain.UsageMetric
	if err := ac.Decode(&metric); err != nil {
		return nil, err
	}
	if metric.ActorPersonID == 0 {
		return nil, domain.ErrBadRequest
	}
	if metric.Created.IsZero() {
		metric.Created = s.now()
	}
	return nil, s.repo.InsertUsageMetric(ctx, metric)
}

// generateDailyUsageSummary rolls yesterday's metrics into summary rows. It returns false when the
// global row for yesterday already exists.
func (s *Service) generateDailyUsageSummary(ctx context.Context, _ *domain.ActionContext) (any, error) {
	now := s.now()
	yesterday := DaysAgo(now, 1)
	today := yesterday.AddDate(0, 0, 1)
	log := s.log.WithField("usageDate", yesterday.Format("2006-01-02"))

	_, err := s.repo.GetDailyUsageSummary(ctx, yesterday, nil)
	if err == nil {
		log.Info("daily usage summary already exists")
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	stats, err := s.repo.ComputeUsageStats(ctx, yesterday, today, nil)
	if err != nil {
		return nil, err
	}
	global := summaryFromStats(stats, yesterday)
	if err := s.repo.InsertDailyUsageSummary(ctx, global); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"uniqueVisitors": stats.UniqueVisitorCount,
		"pageViews":      stats.PageViewCount,
		"messages":       stats.MessageCount,
	}).Info("daily usage summary inserted")

	scopeIDs, err := s.repo.ListActiveStreamScopeIDs(ctx, yesterday, today)
	if err != nil {
		return nil, err
	}
	for _, scopeID := range scopeIDs {
		scopeID := scopeID
		scoped, err := s.repo.ComputeUsageStats(ctx, yesterday, today, &scopeID)
		if err != nil {
			return nil, err
		}
		totals, err := s.repo.ComputeStreamTotals(ctx, scopeID, today)
		if err != nil {
			return nil, err
		}
		row := summaryFromStats(scoped, yesterday)
		row.StreamViewStreamScopeID = &scopeID
		row.TotalActivityCount = totals.ActivityCount
		row.TotalCommentCount = totals.CommentCount
		row.TotalStreamViewCount = totals.StreamViewCount
		row.TotalContributorCount = totals.ContributorCount
		if err := s.repo.InsertDailyUsageSummary(ctx, row); err != nil {
			return nil, err
		}
	}

	deleted, err := s.repo.DeleteUsageMetricsBefore(ctx, DaysAgo(now, s.opts.UsageRetentionDays))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"streams": len(scopeIDs), "metricsDeleted": deleted}).Info("stream usage summaries inserted")
	return true, nil
}

func summaryFromStats(stats domain.UsageStats, day time.Time) domain.DailyUsageSummary {
	d := StartOfDay(day)
	return domain.DailyUsageSummary{
		UniqueVisitorCount:      stats.UniqueVisitorCount,
		PageViewCount:           stats.PageViewCount,
		StreamViewerCount:       stats.StreamViewerCount,
		StreamViewCount:         stats.StreamViewCount,
		StreamContributorCount:  stats.StreamContributorCount,
		MessageCount:            stats.MessageCount,
		AvgActivityResponseTime: stats.AvgActivityResponseTime,
		UsageDate:               d,
		UsageDateTimeStampInMs:  d.UnixMilli(),
		IsWeekday:               IsWeekday(d),
	}
}

type usageMetricSummaryParams struct {
	NumberOfDays                 int    `json:"numberOfDays"`
	StreamRecipientStreamScopeID *int64 `json:"streamRecipientStreamScopeId"`
}

func (s *Service) getUsageMetricSummary(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in usageMetricSummaryParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	if in.NumberOfDays <= 0 {
		verr := domain.NewValidationError()
		verr.Add("numberOfDays", "Number of days must be positive.")
		return nil, verr
	}
	results, err := s.repo.ListWeekdaySummaries(ctx, in.StreamRecipientStreamScopeID)
	if err != nil {
		return nil, err
	}
	return BuildUsageMetricSummary(results, in.NumberOfDays, s.now()), nil
}

// BuildUsageMetricSummary averages the weekday summaries that fall inside the last numberOfDays
// days and pads the daily series with nil for weekdays without data.
func BuildUsageMetricSummary(results []domain.DailyUsageSummary, numberOfDays int, now time.Time) domain.UsageMetricSummary {
	out := domain.UsageMetricSummary{DailyStatistics: []*domain.DailyUsageSummary{}}
	if len(results) == 0 {
		return out
	}

	oldestAllowed := DaysAgo(now, numberOfDays)
	latestReport := DaysAgo(now, 1)

	var (
		msgCount, pageViewCount, contributorCount, streamViewCount int64
		streamViewerCount, uniqueVisitorCount, responseTime        int64
		startingComments, finalComments                            int64
		haveOldest, haveNewest                                     bool
	)
	daily := make([]*domain.DailyUsageSummary, 0, len(results))
	oldest := latestReport
	newest := oldestAllowed

	for i := range results {
		dus := results[i]
		day := StartOfDay(dus.UsageDate)
		if day.Before(oldestAllowed) || day.After(latestReport) {
			continue
		}
		dus.UsageDate = day
		daily = append(daily, &dus)

		if !haveNewest || day.After(newest) {
			haveNewest = true
			newest = day
			out.TotalStreamViewCount = dus.TotalStreamViewCount
			out.TotalActivityCount = dus.TotalActivityCount
			out.TotalCommentCount = dus.TotalCommentCount
			out.TotalContributorCount = dus.TotalContributorCount
			finalComments = dus.TotalCommentCount
		}
		if !haveOldest || day.Before(oldest) {
			haveOldest = true
			oldest = day
			startingComments = dus.TotalCommentCount
		}

		out.RecordCount++
		msgCount += dus.MessageCount
		pageViewCount += dus.PageViewCount
		contributorCount += dus.StreamContributorCount
		streamViewCount += dus.StreamViewCount
		streamViewerCount += dus.StreamViewerCount
		uniqueVisitorCount += dus.UniqueVisitorCount
		responseTime += dus.AvgActivityResponseTime
	}

	var weekdays int64
	if haveOldest {
		weekdays = WeekdaysInDateRange(oldest, StartOfDay(now))
	}
	out.WeekdayRecordCount = weekdays

	if weekdays > 0 {
		out.AverageDailyMessageCount = roundDiv(msgCount, weekdays)
		out.AverageDailyPageViewCount = roundDiv(pageViewCount, weekdays)
		out.AverageDailyStreamContributorCount = roundDiv(contributorCount, weekdays)
		out.AverageDailyStreamViewCount = roundDiv(streamViewCount, weekdays)
		out.AverageDailyStreamViewerCount = roundDiv(streamViewerCount, weekdays)
		out.AverageDailyUniqueVisitorCount = roundDiv(uniqueVisitorCount, weekdays)
		out.AverageDailyActivityResponseTime = roundDiv(responseTime, weekdays)
		if weekdays > 1 {
			out.AverageDailyCommentCount = roundDiv(finalComments-startingComments, weekdays-1)
		}
	}

	if len(daily) == 0 {
		return out
	}
	next := 0
	for day := oldest; !day.After(latestReport) && int64(len(out.DailyStatistics)) < weekdays; day = day.AddDate(0, 0, 1) {
		if !IsWeekday(day) {
			continue
		}
		if next < len(daily) && daily[next].UsageDate.Equal(day) {
			out.DailyStatistics = append(out.DailyStatistics, daily[next])
			next++
			continue
		}
		out.DailyStatistics = append(out.DailyStatistics, nil)
	}
	return out
}

// roundDiv rounds halves toward positive infinity, so -2.5 becomes -2.
func roundDiv(sum, n int64) int64 {
	return int64(math.Floor(float64(sum)/float64(n) + 0.5))
}
