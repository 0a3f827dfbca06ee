package sqlite

import (
	"context"
	"errors"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm"
)

const settingsRowID = 1

func defaultSettingsModel() SystemSettingsModel {
	return SystemSettingsModel{
		ID:                settingsRowID,
		SiteLabel:         "",
		TOSPromptInterval: 1,
	}
}

// GetSystemSettings returns the singleton row, falling back to defaults when it was never written.
func (r *Repository) GetSystemSettings(ctx context.Context) (domain.SystemSettings, error) {
	db := r.db.WithContext(ctx)
	var m SystemSettingsModel
	if err := db.First(&m, settingsRowID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SystemSettings{}, err
		}
		m = defaultSettingsModel()
	}
	admins, err := r.GetPersonIDsWithRole(ctx, "admin")
	if err != nil {
		return domain.SystemSettings{}, err
	}
	return domain.SystemSettings{
		SiteLabel:                     m.SiteLabel,
		TermsOfService:                m.TermsOfService,
		TOSPromptInterval:             m.TOSPromptInterval,
		ContentWarningText:            m.ContentWarningText,
		ContentExpiration:             m.ContentExpiration,
		PluginWarning:                 m.PluginWarning,
		SendWelcomeEmails:             m.SendWelcomeEmails,
		SupportStreamGroupShortName:   m.SupportStreamGroupShortName,
		SupportStreamGroupDisplayName: m.SupportStreamGroupDisplayName,
		SupportPhoneNumber:            m.SupportPhoneNumber,
		SupportEmailAddress:           m.SupportEmailAddress,
		AdminIDs:                      admins,
	}, nil
}

// UpdateSystemSettings writes the singleton row. Admin membership is managed through roles.
func (r *Repository) UpdateSystemSettings(ctx context.Context, value domain.SystemSettings) error {
	m := SystemSettingsModel{
		ID:                            settingsRowID,
		SiteLabel:                     value.SiteLabel,
		TermsOfService:                value.TermsOfService,
		TOSPromptInterval:             value.TOSPromptInterval,
		ContentWarningText:            value.ContentWarningText,
		ContentExpiration:             value.ContentExpiration,
		PluginWarning:                 value.PluginWarning,
		SendWelcomeEmails:             value.SendWelcomeEmails,
		SupportStreamGroupShortName:   value.SupportStreamGroupShortName,
		SupportStreamGroupDisplayName: value.SupportStreamGroupDisplayName,
		SupportPhoneNumber:            value.SupportPhoneNumber,
		SupportEmailAddress:           value.SupportEmailAddress,
	}
	return r.db.WithContext(ctx).Save(&m).Error
}
