package application

import (
	"errors"
	"strings"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePersonValidation(t *testing.T) {
	h := newHarness(t)
	h.person("vic")

	_, err := h.run(h.admin, ActionCreatePerson, map[string]any{
		"accountId":             "VIC",
		"lastName":              "Tester",
		"email":                 "vic@example.com",
		"organizationShortName": "nowhere",
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Account id is already in use.", verr.Errors["accountId"])
	assert.Equal(t, "First name is required.", verr.Errors["firstName"])
	assert.Equal(t, "Email address is already in use.", verr.Errors["email"])
	assert.Contains(t, verr.Errors, "organizationShortName")

	vic, err := h.svc.PrincipalForAccount(h.ctx, "vic")
	require.NoError(t, err)
	_, err = h.run(vic, ActionCreatePerson, map[string]any{"accountId": "other"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestCreatePersonUpdatesOrganization(t *testing.T) {
	h := newHarness(t)
	h.queue.take()
	view := h.mustRun(h.admin, ActionCreatePerson, map[string]any{
		"accountId":             " Wendy ",
		"firstName":             "Wendy",
		"lastName":              "Walker",
		"preferredName":         "Wen",
		"email":                 "wendy@example.com",
		"organizationShortName": "root",
	}).(domain.PersonModelView)
	assert.Equal(t, "wendy", view.AccountID)
	assert.Equal(t, "root", view.ParentOrganizationShort)
	assert.NotZero(t, view.StreamScopeID)
	assert.True(t, view.Commentable)

	requests := h.queue.take()
	assert.Len(t, requestsFor(requests, ActionIndexPersonByID), 1)
	require.NotEmpty(t, requestsFor(requests, ActionDeleteCacheKeys))

	root, err := h.repo.GetRootOrganization(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, root.DescendantEmployeeCount)
}

func TestFollowPerson(t *testing.T) {
	h := newHarness(t)
	xena := h.person("xena")
	h.person("yuri")
	h.queue.take()

	count := h.mustRun(xena, ActionSetFollowingPersonStatus, map[string]any{"targetAccountId": "yuri", "status": "following"})
	assert.Equal(t, 1, count)
	requests := h.queue.take()
	assert.Len(t, requestsFor(requests, ActionRefreshFollowedByActivities), 1)
	notes := requestsFor(requests, ActionCreateNotifications)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationFollower, decodeParams[notificationRequest](t, notes[0]).Type)

	again := h.mustRun(xena, ActionSetFollowingPersonStatus, map[string]any{"targetAccountId": "yuri", "status": "FOLLOWING"})
	assert.Equal(t, 1, again)
	assert.Empty(t, h.queue.take())

	followers := h.mustRun(xena, ActionGetFollowers, map[string]any{"accountId": "yuri"}).([]domain.PersonModelView)
	require.Len(t, followers, 1)
	assert.Equal(t, "xena", followers[0].AccountID)
	following := h.mustRun(xena, ActionGetFollowing, nil).([]domain.PersonModelView)
	require.Len(t, following, 1)
	assert.Equal(t, "yuri", following[0].AccountID)

	_, err := h.run(xena, ActionSetFollowingPersonStatus, map[string]any{"targetAccountId": "xena", "status": "FOLLOWING"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	_, err = h.run(xena, ActionSetFollowingPersonStatus, map[string]any{"followerAccountId": "yuri", "targetAccountId": "admin", "status": "FOLLOWING"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	_, err = h.run(xena, ActionSetFollowingPersonStatus, map[string]any{"targetAccountId": "yuri", "status": "MAYBE"})
	assert.ErrorAs(t, err, &verr)

	count = h.mustRun(xena, ActionSetFollowingPersonStatus, map[string]any{"targetAccountId": "yuri", "status": "NOTFOLLOWING"})
	assert.Equal(t, 0, count)
	h.drain()
	followers = h.mustRun(xena, ActionGetFollowers, map[string]any{"accountId": "yuri"}).([]domain.PersonModelView)
	assert.Empty(t, followers)
}

func TestUpdatePersonMovesOrganization(t *testing.T) {
	h := newHarness(t)
	zoe := h.person("zoe")
	other := h.person("other")
	h.mustRun(h.admin, ActionCreateOrganization, map[string]any{
		"shortName":                   "sales",
		"name":                        "Sales",
		"parentOrganizationShortName": "root",
	})
	h.drain()

	update := map[string]any{
		"title":              "Rep",
		"preferredName":      "Zo",
		"email":              "zoe@example.com",
		"parentOrganization": "sales",
		"skills":             "golang, sqlite",
	}
	_, err := h.run(other, ActionUpdatePerson, map[string]any{"accountId": "zoe", "title": "x", "preferredName": "x", "parentOrganization": "root"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	view := h.mustRun(zoe, ActionUpdatePerson, update).(domain.PersonModelView)
	assert.Equal(t, "Rep", view.Title)
	assert.Equal(t, "sales", view.ParentOrganizationShort)
	assert.ElementsMatch(t, []string{"golang", "sqlite"}, view.Skills)
	h.drain()

	sales := h.mustRun(zoe, ActionGetOrganization, map[string]any{"shortName": "sales"}).(domain.OrganizationModelView)
	assert.Equal(t, 1, sales.DescendantEmployeeCount)

	update["email"] = "other@example.com"
	_, err = h.run(zoe, ActionUpdatePerson, update)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Email address is already in use.", verr.Errors["email"])
}

func TestUpdatePersonPreferredNameLength(t *testing.T) {
	h := newHarness(t)
	yuri := h.person("yuri")
	update := map[string]any{
		"title":              "Analyst",
		"preferredName":      strings.Repeat("y", 255),
		"email":              "yuri@example.com",
		"parentOrganization": "root",
	}
	view := h.mustRun(yuri, ActionUpdatePerson, update).(domain.PersonModelView)
	assert.Equal(t, strings.Repeat("y", 255)+" Tester", view.DisplayName)

	update["preferredName"] = strings.Repeat("y", 256)
	_, err := h.run(yuri, ActionUpdatePerson, update)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Display Name is required.", verr.Errors["preferredName"])
}
