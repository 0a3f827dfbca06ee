package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

const (
	maxSupportPhoneLength = 50
	maxSupportEmailLength = 50
	maxContentExpiration  = 365
)

var (
	msgContentWarningLength = fmt.Sprintf("Content Warning supports up to %d characters", maxSettingsInput)
	msgTermsLength          = fmt.Sprintf("Terms of Service supports up to %d characters", maxSettingsInput)
	msgPluginWarningLength  = fmt.Sprintf("Plugin Configuration Warning supports up to %d characters", maxSettingsInput)
	msgSiteLabelLength      = fmt.Sprintf("Site label supports up to %d characters", maxSiteLabelLength)
	msgTOSPromptInterval    = "Prompt Interval for Terms of Service must be greater than 0"
	msgContentExpiration    = fmt.Sprintf("Activity Expiration must be a number between 1 and %d", maxContentExpiration)
	msgSupportGroupInvalid  = "Invalid support group"
	msgSupportPhoneLength   = fmt.Sprintf("Support Phone Number must be between 1 and %d characters", maxSupportPhoneLength)
	msgSupportEmailLength   = fmt.Sprintf("Support Email Address supports up to %d characters", maxSupportEmailLength)
	msgSupportEmailInvalid  = "Support Email Address is invalid"

	msgAdminsEmpty    = "At least one System Administrator required."
	msgAdminLockedOut = "At least one of the requested administrators is currently locked out of the system: "
	msgAdminNotFound  = "At least one of the requested administrators is not found in the system: "
)

type updateSystemSettingsParams struct {
	SiteLabel                   string   `json:"siteLabel"`
	TermsOfService              string   `json:"termsOfService"`
	TOSPromptInterval           int      `json:"tosPromptInterval"`
	ContentWarningText          string   `json:"contentWarningText"`
	ContentExpiration           *int     `json:"contentExpiration"`
	PluginWarning               string   `json:"pluginWarning"`
	SendWelcomeEmails           bool     `json:"sendWelcomeEmails"`
	SupportStreamGroupShortName string   `json:"supportStreamGroupShortName"`
	SupportPhoneNumber          string   `json:"supportPhoneNumber"`
	SupportEmailAddress         string   `json:"supportEmailAddress"`
	Admins                      []string `json:"admins"`
}

func (s *Service) getSystemSettings(ctx context.Context, _ *domain.ActionContext) (any, error) {
	return s.cachedSystemSettings(ctx)
}

func (s *Service) updateSystemSettings(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in updateSystemSettingsParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}

	check := newFieldCheck()
	check.maxLength("contentWarningText", in.ContentWarningText, maxSettingsInput, msgContentWarningLength)
	check.maxLength("termsOfService", in.TermsOfService, maxSettingsInput, msgTermsLength)
	check.maxLength("pluginWarning", in.PluginWarning, maxSettingsInput, msgPluginWarningLength)
	check.maxLength("siteLabel", in.SiteLabel, maxSiteLabelLength, msgSiteLabelLength)
	if in.TOSPromptInterval < 1 {
		check.Add("tosPromptInterval", msgTOSPromptInterval)
	}
	expiration := 0
	if in.ContentExpiration != nil {
		expiration = *in.ContentExpiration
		if expiration < 1 || expiration > maxContentExpiration {
			check.Add("contentExpiration", msgContentExpiration)
		}
	}
	check.maxLength("supportPhoneNumber", in.SupportPhoneNumber, maxSupportPhoneLength, msgSupportPhoneLength)
	if in.SupportEmailAddress != "" {
		if check.maxLength("supportEmailAddress", in.SupportEmailAddress, maxSupportEmailLength, msgSupportEmailLength) &&
			!validEmail(in.SupportEmailAddress) {
			check.Add("supportEmailAddress", msgSupportEmailInvalid)
		}
	}

	var supportGroup domain.Group
	if in.SupportStreamGroupShortName != "" {
		g, err := s.repo.GetGroupByShortName(ctx, in.SupportStreamGroupShortName)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			check.Add("supportStreamGroupShortName", msgSupportGroupInvalid)
		case err != nil:
			return nil, err
		default:
			supportGroup = g
		}
	}

	adminIDs, err := s.validateAdmins(ctx, check, in.Admins)
	if err != nil {
		return nil, err
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	settings := domain.SystemSettings{
		SiteLabel:                     in.SiteLabel,
		TermsOfService:                in.TermsOfService,
		TOSPromptInterval:             in.TOSPromptInterval,
		ContentWarningText:            in.ContentWarningText,
		ContentExpiration:             expiration,
		PluginWarning:                 in.PluginWarning,
		SendWelcomeEmails:             in.SendWelcomeEmails,
		SupportStreamGroupShortName:   supportGroup.ShortName,
		SupportStreamGroupDisplayName: supportGroup.Name,
		SupportPhoneNumber:            in.SupportPhoneNumber,
		SupportEmailAddress:           in.SupportEmailAddress,
	}
	if err := s.repo.UpdateSystemSettings(ctx, settings); err != nil {
		return nil, err
	}
	if err := s.syncAdmins(ctx, adminIDs); err != nil {
		return nil, err
	}
	if err := s.enqueueCacheDelete(ac, domain.CacheSystemSettings); err != nil {
		return nil, err
	}
	s.log.WithField("admins", len(adminIDs)).Info("system settings updated")
	return s.repo.GetSystemSettings(ctx)
}

// validateAdmins resolves admin account ids. Locked accounts are reported first, and missing
// accounts only when none are locked.
func (s *Service) validateAdmins(ctx context.Context, check fieldCheck, accountIDs []string) ([]int64, error) {
	wanted := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" && !slices.Contains(wanted, id) {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		check.Add("admins", msgAdminsEmpty)
		return nil, nil
	}
	people, err := s.repo.GetPeopleByAccountIDs(ctx, wanted)
	if err != nil {
		return nil, err
	}
	byAccount := make(map[string]domain.Person, len(people))
	for _, p := range people {
		byAccount[strings.ToLower(p.AccountID)] = p
	}

	var locked, missing []string
	ids := make([]int64, 0, len(wanted))
	for _, accountID := range wanted {
		p, ok := byAccount[accountID]
		switch {
		case !ok:
			missing = append(missing, accountID)
		case p.AccountLocked:
			locked = append(locked, p.AccountID)
		default:
			ids = append(ids, p.ID)
		}
	}
	switch {
	case len(locked) > 0:
		check.Add("admins", msgAdminLockedOut+strings.Join(locked, ", "))
	case len(missing) > 0:
		check.Add("admins", msgAdminNotFound+strings.Join(missing, ", "))
	}
	return ids, nil
}

func (s *Service) syncAdmins(ctx context.Context, personIDs []int64) error {
	roleID, err := s.repo.CreateRoleIfMissing(ctx, adminRoleKey, "Administrator")
	if err != nil {
		return err
	}
	permID, err := s.repo.CreatePermissionIfMissing(ctx, PermAll)
	if err != nil {
		return err
	}
	if err := s.repo.GrantPermissionToRole(ctx, roleID, permID); err != nil {
		return err
	}
	return s.repo.SetRoleMembers(ctx, roleID, personIDs)
}
