package application

import (
	"fmt"
	"testing"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDateHelpers(t *testing.T) {
	wed := time.Date(2026, 10, 21, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, day("2026-10-22"), StartOfDay(wed))
	assert.Equal(t, day("2026-10-19"), DaysAgo(day("2026-10-21").Add(5*time.Hour), 2))
	assert.False(t, IsWeekday(day("2026-10-17")))
	assert.True(t, IsWeekday(day("2026-10-19")))
	assert.Equal(t, int64(5), WeekdaysInDateRange(day("2026-10-15"), day("2026-10-22")))
	assert.Equal(t, int64(0), WeekdaysInDateRange(day("2026-10-17"), day("2026-10-19")))
}

func TestRoundDivRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(3), roundDiv(5, 2))
	assert.Equal(t, int64(-2), roundDiv(-5, 2))
	assert.Equal(t, int64(-3), roundDiv(-7, 2))
	assert.Equal(t, int64(2), roundDiv(7, 3))
}

func TestBuildUsageMetricSummary(t *testing.T) {
	now := day("2026-10-21").Add(12 * time.Hour)
	results := []domain.DailyUsageSummary{
		{UsageDate: day("2026-10-09"), MessageCount: 100},
		{UsageDate: day("2026-10-15"), MessageCount: 10, PageViewCount: 3, TotalCommentCount: 4},
		{UsageDate: day("2026-10-19"), MessageCount: 20, PageViewCount: 5, TotalCommentCount: 10, TotalActivityCount: 42},
	}

	summary := BuildUsageMetricSummary(results, 7, now)
	assert.Equal(t, 2, summary.RecordCount)
	assert.Equal(t, int64(4), summary.WeekdayRecordCount)
	assert.Equal(t, int64(8), summary.AverageDailyMessageCount)
	assert.Equal(t, int64(2), summary.AverageDailyPageViewCount)
	assert.Equal(t, int64(2), summary.AverageDailyCommentCount)
	assert.Equal(t, int64(42), summary.TotalActivityCount)
	assert.Equal(t, int64(10), summary.TotalCommentCount)

	require.Len(t, summary.DailyStatistics, 4)
	assert.Equal(t, day("2026-10-15"), summary.DailyStatistics[0].UsageDate)
	assert.Nil(t, summary.DailyStatistics[1])
	assert.Equal(t, day("2026-10-19"), summary.DailyStatistics[2].UsageDate)
	assert.Nil(t, summary.DailyStatistics[3])

	empty := BuildUsageMetricSummary(nil, 7, now)
	assert.Zero(t, empty.RecordCount)
	assert.NotNil(t, empty.DailyStatistics)
}

func TestRegisterUsageMetricSkipsWeekends(t *testing.T) {
	h := newHarness(t)
	h.svc.now = func() time.Time { return day("2026-10-17").Add(10 * time.Hour) }
	h.queue.take()

	assert.Equal(t, false, h.mustRun(h.admin, ActionRegisterUsageMetric, map[string]any{"isPageView": true}))
	assert.Empty(t, h.queue.take())
}

func TestDailyUsageSummaryFlow(t *testing.T) {
	h := newHarness(t)
	adminPerson, err := h.repo.GetPersonByID(h.ctx, h.admin.PersonID)
	require.NoError(t, err)

	h.svc.now = func() time.Time { return day("2026-10-20").Add(10 * time.Hour) }
	details := `{"query":{"recipient":[{"type":"PERSON","name":"admin"}]}}`
	assert.Equal(t, true, h.mustRun(h.admin, ActionRegisterUsageMetric, map[string]any{
		"isPageView":    true,
		"isStreamView":  true,
		"metricDetails": details,
	}))
	queued := requestsFor(h.queue.take(), ActionPersistUsageMetric)
	require.Len(t, queued, 1)
	metric := decodeParams[domain.UsageMetric](t, queued[0])
	require.NotNil(t, metric.StreamViewStreamScopeID)
	assert.Equal(t, adminPerson.StreamScopeID, *metric.StreamViewStreamScopeID)
	require.NoError(t, h.exec.ExecuteRequest(h.ctx, queued[0]))

	h.post(h.admin, domain.ScopeTypePerson, "admin", "counted")
	h.drain()

	h.svc.now = func() time.Time { return day("2026-10-21").Add(10 * time.Hour) }
	assert.Equal(t, true, h.mustRun(domain.SystemPrincipal(), ActionGenerateDailyUsageSummary, nil))
	assert.Equal(t, false, h.mustRun(domain.SystemPrincipal(), ActionGenerateDailyUsageSummary, nil))

	global, err := h.repo.GetDailyUsageSummary(h.ctx, day("2026-10-20"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), global.UniqueVisitorCount)
	assert.Equal(t, int64(1), global.PageViewCount)
	assert.Equal(t, int64(1), global.MessageCount)
	assert.True(t, global.IsWeekday)

	summary := h.mustRun(h.admin, ActionGetUsageMetricSummary, map[string]any{
		"numberOfDays":                 5,
		"streamRecipientStreamScopeId": adminPerson.StreamScopeID,
	}).(domain.UsageMetricSummary)
	assert.Equal(t, 1, summary.RecordCount, fmt.Sprintf("%+v", summary))
	assert.Equal(t, int64(1), summary.TotalActivityCount)
	assert.Equal(t, int64(1), summary.TotalStreamViewCount)

	_, err = h.run(h.admin, ActionGetUsageMetricSummary, map[string]any{"numberOfDays": 0})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
