package application

import (
	"testing"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonthYear(t *testing.T) {
	got, ok := parseMonthYear("3/2019")
	require.True(t, ok)
	assert.Equal(t, time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "13/2019", "03-2019", "03/19", "march/2019"} {
		_, ok := parseMonthYear(bad)
		assert.False(t, ok, bad)
	}
}

func TestJobs(t *testing.T) {
	h := newHarness(t)
	ada := h.person("ada")
	bo := h.person("bo")

	_, err := h.run(ada, ActionAddJob, map[string]any{"companyName": "Acme", "dateFrom": "05/2020", "dateTo": "01/2019"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Industry is required.", verr.Errors["industry"])
	assert.Equal(t, "End date must not be before the start date.", verr.Errors["dateTo"])

	job := h.mustRun(ada, ActionAddJob, map[string]any{
		"companyName": "Acme",
		"industry":    "Rockets",
		"title":       "Engineer",
		"description": "Builds things",
		"dateFrom":    "05/2020",
	}).(domain.Job)
	assert.Equal(t, ada.PersonID, job.PersonID)
	assert.Nil(t, job.DateTo)

	_, err = h.run(bo, ActionAddJob, map[string]any{"accountId": "ada", "companyName": "Acme"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.run(bo, ActionDeleteJob, map[string]any{"id": job.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated := h.mustRun(ada, ActionUpdateJob, map[string]any{
		"id":          job.ID,
		"companyName": "Acme",
		"industry":    "Rockets",
		"title":       "Lead",
		"description": "Builds things",
		"dateFrom":    "05/2020",
		"dateTo":      "06/2022",
	}).(domain.Job)
	assert.Equal(t, "Lead", updated.Title)
	require.NotNil(t, updated.DateTo)

	jobs := h.mustRun(bo, ActionGetJobs, map[string]any{"accountId": "ada"}).([]domain.Job)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Lead", jobs[0].Title)

	assert.Equal(t, true, h.mustRun(ada, ActionDeleteJob, map[string]any{"id": job.ID}))
	jobs = h.mustRun(ada, ActionGetJobs, nil).([]domain.Job)
	assert.Empty(t, jobs)
}

func TestEnrollmentsAndRecommendations(t *testing.T) {
	h := newHarness(t)
	cy := h.person("cy")
	di := h.person("di")

	_, err := h.run(cy, ActionAddEnrollment, map[string]any{"schoolName": "State", "degree": "BS", "gradDate": "98"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "gradDate")

	e := h.mustRun(cy, ActionAddEnrollment, map[string]any{
		"schoolName":   "State",
		"degree":       "BS",
		"gradDate":     "1998",
		"areasOfStudy": []string{"Math"},
	}).(domain.Enrollment)
	require.NotNil(t, e.GradDate)
	assert.Equal(t, 1998, e.GradDate.Year())
	enrollments := h.mustRun(di, ActionGetEnrollments, map[string]any{"accountId": "cy"}).([]domain.Enrollment)
	require.Len(t, enrollments, 1)
	assert.Equal(t, []string{"Math"}, enrollments[0].AreasOfStudy)

	_, err = h.run(cy, ActionAddRecommendation, map[string]any{"accountId": "cy", "text": "I am great"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "accountId")

	rec := h.mustRun(di, ActionAddRecommendation, map[string]any{"accountId": "cy", "text": " Great teammate "}).(domain.Recommendation)
	assert.Equal(t, "Great teammate", rec.Text)
	assert.Equal(t, di.OpenSocialID, rec.AuthorOpenSocialID)

	stranger := h.person("ed")
	_, err = h.run(stranger, ActionDeleteRecommendation, map[string]any{"id": rec.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, true, h.mustRun(cy, ActionDeleteRecommendation, map[string]any{"id": rec.ID}))
}

func TestUpdateBackground(t *testing.T) {
	h := newHarness(t)
	fay := h.person("fay")
	h.queue.take()

	_, err := h.run(fay, ActionUpdateBackground, map[string]any{"items": map[string][]string{"HOBBY": {"chess"}}})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	bg := h.mustRun(fay, ActionUpdateBackground, map[string]any{"items": map[string][]string{
		"INTEREST": {"chess", "go"},
		"HONOR":    {"award"},
	}}).(domain.Background)
	assert.Equal(t, []string{"chess", "go"}, bg.Items[domain.BackgroundInterest])
	assert.Equal(t, []string{"award"}, bg.Items[domain.BackgroundHonor])
	assert.Empty(t, bg.Items[domain.BackgroundSkill])
	assert.Len(t, requestsFor(h.queue.take(), ActionIndexPersonByID), 1)

	read := h.mustRun(h.admin, ActionGetBackground, map[string]any{"accountId": "fay"}).(domain.Background)
	assert.Equal(t, bg.Items, read.Items)
}
