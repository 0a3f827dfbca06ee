package application

import (
	"strings"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSystemSettingsValidatesAdmins(t *testing.T) {
	h := newHarness(t)
	locked := h.person("locked")
	p, err := h.repo.GetPersonByID(h.ctx, locked.PersonID)
	require.NoError(t, err)
	p.AccountLocked = true
	require.NoError(t, h.repo.UpdatePerson(h.ctx, p))

	h.person("frozen")
	frozen, err := h.repo.GetPersonByAccountID(h.ctx, "frozen")
	require.NoError(t, err)
	frozen.AccountLocked = true
	require.NoError(t, h.repo.UpdatePerson(h.ctx, frozen))

	cases := []struct {
		name   string
		admins []string
		want   string
	}{
		{name: "empty", admins: []string{" "}, want: "At least one System Administrator required."},
		{
			name:   "missing",
			admins: []string{"ghost", "admin", "ghost2"},
			want:   "At least one of the requested administrators is not found in the system: ghost, ghost2",
		},
		{
			name:   "locked before missing",
			admins: []string{"ghost", "locked", "ghost2", "frozen"},
			want:   "At least one of the requested administrators is currently locked out of the system: locked, frozen",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.run(h.admin, ActionUpdateSystemSettings, map[string]any{"tosPromptInterval": 1, "admins": tc.admins})
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.want, verr.Errors["admins"])
		})
	}
}

func TestUpdateSystemSettingsFieldLimits(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(h.admin, ActionUpdateSystemSettings, map[string]any{
		"tosPromptInterval":           0,
		"contentExpiration":           400,
		"supportEmailAddress":         "not-an-email",
		"supportStreamGroupShortName": "missing",
		"admins":                      []string{"admin"},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"tosPromptInterval":           "Prompt Interval for Terms of Service must be greater than 0",
		"contentExpiration":           "Activity Expiration must be a number between 1 and 365",
		"supportEmailAddress":         "Support Email Address is invalid",
		"supportStreamGroupShortName": "Invalid support group",
	}, verr.Errors)

	_, err = h.run(h.admin, ActionUpdateSystemSettings, map[string]any{
		"tosPromptInterval":   1,
		"contentWarningText":  strings.Repeat("w", maxSettingsInput+1),
		"siteLabel":           strings.Repeat("l", maxSiteLabelLength+1),
		"supportPhoneNumber":  strings.Repeat("5", 51),
		"supportEmailAddress": strings.Repeat("e", 45) + "@example.com",
		"admins":              []string{"admin"},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"contentWarningText":  "Content Warning supports up to 10000 characters",
		"siteLabel":           "Site label supports up to 2000 characters",
		"supportPhoneNumber":  "Support Phone Number must be between 1 and 50 characters",
		"supportEmailAddress": "Support Email Address supports up to 50 characters",
	}, verr.Errors)
}

func TestUpdateSystemSettingsSyncsAdmins(t *testing.T) {
	h := newHarness(t)
	olga := h.person("olga")
	h.group(h.admin, "helpdesk", true)

	_, err := h.run(olga, ActionUpdateSystemSettings, map[string]any{"tosPromptInterval": 1, "admins": []string{"olga"}})
	require.ErrorIs(t, err, domain.ErrForbidden)
	h.queue.take()

	result := h.mustRun(h.admin, ActionUpdateSystemSettings, map[string]any{
		"siteLabel":                   "INTERNAL",
		"tosPromptInterval":           7,
		"supportStreamGroupShortName": "helpdesk",
		"supportEmailAddress":         "help@example.com",
		"admins":                      []string{"admin", "OLGA"},
	})
	settings := result.(domain.SystemSettings)
	assert.Equal(t, "INTERNAL", settings.SiteLabel)
	assert.Equal(t, "Group helpdesk", settings.SupportStreamGroupDisplayName)
	assert.ElementsMatch(t, []int64{h.admin.PersonID, olga.PersonID}, settings.AdminIDs)

	deletes := requestsFor(h.queue.take(), ActionDeleteCacheKeys)
	require.Len(t, deletes, 1)
	assert.Equal(t, []string{domain.CacheSystemSettings}, decodeParams[deleteCacheKeysParams](t, deletes[0]).Keys)

	promoted, err := h.svc.PrincipalForAccount(h.ctx, "olga")
	require.NoError(t, err)
	assert.True(t, promoted.Can(PermSettingsWrite))
}
