package application

import (
	"errors"
	"testing"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostActivityToOwnStream(t *testing.T) {
	h := newHarness(t)
	frank := h.person("frank")
	h.queue.take()

	a := h.post(frank, domain.ScopeTypePerson, "frank", "hello world")
	assert.Equal(t, "frank", a.ActorAccountID)
	assert.Equal(t, domain.VerbPost, a.Verb)
	assert.Equal(t, "NOTE", a.BaseObjectType)
	assert.Equal(t, domain.ScopeTypePerson, a.DestinationType)
	assert.True(t, a.IsDestinationStreamPublic)
	assert.Empty(t, requestsFor(h.queue.take(), ActionCreateNotifications))

	docs, err := h.repo.SearchDocuments(h.ctx, "hello", domain.EntityTypeActivity, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, a.ID, docs[0].EntityID)

	person, err := h.repo.GetPersonByID(h.ctx, frank.PersonID)
	require.NoError(t, err)
	assert.Equal(t, 1, person.UpdatesCount)
}

func TestPostActivityValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(h.admin, ActionPostActivity, map[string]any{"destinationType": "PERSON", "destinationUniqueId": "admin", "body": "  "})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Message is required.", verr.Errors["body"])

	_, err = h.run(h.admin, ActionPostActivity, map[string]any{"destinationType": "PERSON", "destinationUniqueId": "admin", "verb": "SHARE"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "originalActivityId")

	_, err = h.run(h.admin, ActionPostActivity, map[string]any{"destinationType": "PERSON", "destinationUniqueId": "nobody", "body": "hi"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPostToAnotherPersonNotifiesOwner(t *testing.T) {
	h := newHarness(t)
	gina := h.person("gina")
	hank := h.person("hank")

	h.post(gina, domain.ScopeTypePerson, "hank", "hi hank")
	h.drain()

	notes := h.mustRun(hank, ActionGetNotifications, map[string]any{"unreadOnly": true}).([]domain.Notification)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationPostPersonStream, notes[0].NotificationType)
	assert.Contains(t, notes[0].Message, "gina")

	marked := h.mustRun(hank, ActionMarkNotificationsRead, map[string]any{"ids": []int64{notes[0].ID}})
	assert.Equal(t, int64(1), marked)
	notes = h.mustRun(hank, ActionGetNotifications, map[string]any{"unreadOnly": true}).([]domain.Notification)
	assert.Empty(t, notes)
}

func TestPostToLockedStreamIsForbidden(t *testing.T) {
	h := newHarness(t)
	ivan := h.person("ivan")
	judy := h.person("judy")

	p, err := h.repo.GetPersonByID(h.ctx, judy.PersonID)
	require.NoError(t, err)
	p.StreamPostable = false
	require.NoError(t, h.repo.UpdatePerson(h.ctx, p))
	require.NoError(t, h.cache.Clear(h.ctx))

	_, err = h.run(ivan, ActionPostActivity, map[string]any{"destinationType": "PERSON", "destinationUniqueId": "judy", "body": "hey"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	h.post(judy, domain.ScopeTypePerson, "judy", "still mine")
}

func TestGetStreamPagesNewestFirst(t *testing.T) {
	h := newHarness(t)
	kim := h.person("kim")
	first := h.post(kim, domain.ScopeTypePerson, "kim", "one")
	second := h.post(kim, domain.ScopeTypePerson, "kim", "two")
	third := h.post(kim, domain.ScopeTypePerson, "kim", "three")

	page := h.mustRun(kim, ActionGetStream, map[string]any{"scopeType": "PERSON", "uniqueKey": "kim", "maxResults": 2}).([]domain.ActivityModelView)
	require.Len(t, page, 2)
	assert.Equal(t, third.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)

	page = h.mustRun(kim, ActionGetStream, map[string]any{"scopeType": "PERSON", "uniqueKey": "kim", "beforeId": second.ID}).([]domain.ActivityModelView)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestCommentStarAndDelete(t *testing.T) {
	h := newHarness(t)
	leo := h.person("leo")
	mia := h.person("mia")
	a := h.post(leo, domain.ScopeTypePerson, "leo", "comment on me")
	h.queue.take()

	comment := h.mustRun(mia, ActionPostComment, map[string]any{"activityId": a.ID, "body": "nice"}).(domain.Comment)
	assert.Equal(t, mia.PersonID, comment.AuthorPersonID)
	notes := requestsFor(h.queue.take(), ActionCreateNotifications)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationCommentToActivity, decodeParams[notificationRequest](t, notes[0]).Type)

	assert.Equal(t, true, h.mustRun(mia, ActionStarActivity, map[string]any{"activityId": a.ID, "starred": true}))
	h.drain()

	stream := h.mustRun(mia, ActionGetStream, map[string]any{"scopeType": "PERSON", "uniqueKey": "leo"}).([]domain.ActivityModelView)
	require.Len(t, stream, 1)
	assert.True(t, stream[0].Starred)
	require.Len(t, stream[0].Comments, 1)
	assert.Equal(t, "nice", stream[0].Comments[0].Body)

	_, err := h.run(mia, ActionDeleteActivity, map[string]any{"activityId": a.ID})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	assert.Equal(t, true, h.mustRun(leo, ActionDeleteActivity, map[string]any{"activityId": a.ID}))
	requests := h.queue.take()
	assert.Len(t, requestsFor(requests, ActionDeleteFromSearchIndex), 1)
	assert.Len(t, requestsFor(requests, ActionDeleteIDsFromLists), 1)
	for _, req := range requests {
		require.NoError(t, h.exec.ExecuteRequest(h.ctx, req))
	}

	stream = h.mustRun(mia, ActionGetStream, map[string]any{"scopeType": "PERSON", "uniqueKey": "leo"}).([]domain.ActivityModelView)
	assert.Empty(t, stream)
}

func TestPrivateGroupStreamNeedsMembership(t *testing.T) {
	h := newHarness(t)
	nina := h.person("nina")
	h.mustRun(h.admin, ActionCreateGroup, map[string]any{
		"shortName":                   "council",
		"name":                        "Council",
		"parentOrganizationShortName": "root",
		"coordinators":                []string{"admin"},
	})
	a := h.post(h.admin, domain.ScopeTypeGroup, "council", "minutes")
	assert.False(t, a.IsDestinationStreamPublic)

	_, err := h.run(nina, ActionGetStream, map[string]any{"scopeType": "GROUP", "uniqueKey": "council"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	_, err = h.run(nina, ActionPostActivity, map[string]any{"destinationType": "GROUP", "destinationUniqueId": "council", "body": "let me in"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	stream := h.mustRun(h.admin, ActionGetStream, map[string]any{"scopeType": "GROUP", "uniqueKey": "council"}).([]domain.ActivityModelView)
	assert.Len(t, stream, 1)
}

func TestPurgeExpiredActivities(t *testing.T) {
	h := newHarness(t)
	now := time.Now().UTC()
	h.svc.now = func() time.Time { return now.AddDate(0, 0, -40) }
	old := h.post(h.admin, domain.ScopeTypePerson, "admin", "old news")
	h.svc.now = func() time.Time { return now }
	fresh := h.post(h.admin, domain.ScopeTypePerson, "admin", "fresh")
	h.queue.take()

	assert.Equal(t, 0, h.mustRun(domain.SystemPrincipal(), ActionPurgeExpiredActivities, nil))

	h.mustRun(h.admin, ActionUpdateSystemSettings, map[string]any{
		"tosPromptInterval": 1,
		"contentExpiration": 30,
		"admins":            []string{"admin"},
	})
	assert.Equal(t, 1, h.mustRun(domain.SystemPrincipal(), ActionPurgeExpiredActivities, nil))

	_, err := h.repo.GetActivityByID(h.ctx, old.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = h.repo.GetActivityByID(h.ctx, fresh.ID)
	assert.NoError(t, err)
}
