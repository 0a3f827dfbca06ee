package application

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

const (
	maxShortNameLength     = 20
	maxNameLength          = 50
	maxDescriptionLength   = 250
	maxOverviewLength      = 10000
	maxTitleLength         = 150
	maxPreferredNameLength = 255
	maxJobDescription      = 4000
	maxPhoneLength         = 50
	maxEmailLength         = 255
	maxBackgroundItem      = 50
	maxRecommendation      = 500
	maxSettingsInput       = 10000
	maxSiteLabelLength     = 2000
	maxActivityBody        = 10000
)

var (
	shortNamePattern = regexp.MustCompile(`^[a-z0-9]+$`)
	yearPattern      = regexp.MustCompile(`^[0-9]{4}$`)
)

// fieldCheck accumulates field errors in the order they are checked.
type fieldCheck struct {
	*domain.ValidationError
}

func newFieldCheck() fieldCheck {
	return fieldCheck{domain.NewValidationError()}
}

// required reports whether value is non-blank, adding message when it is not.
func (c fieldCheck) required(field, value, message string) bool {
	if strings.TrimSpace(value) == "" {
		c.Add(field, message)
		return false
	}
	return true
}

func (c fieldCheck) maxLength(field, value string, max int, message string) bool {
	if utf8.RuneCountInString(value) > max {
		c.Add(field, message)
		return false
	}
	return true
}

func (c fieldCheck) shortName(field, value, label string) {
	if !c.required(field, value, label+" is required.") {
		return
	}
	if !c.maxLength(field, value, maxShortNameLength, fmt.Sprintf("%s supports up to %d characters.", label, maxShortNameLength)) {
		return
	}
	if !shortNamePattern.MatchString(value) {
		c.Add(field, label+" can only contain lowercase letters and numbers.")
	}
}

func (c fieldCheck) email(field, value string) {
	if !c.required(field, value, "Email is required.") {
		return
	}
	if !c.maxLength(field, value, maxEmailLength, fmt.Sprintf("Email addresses should be less than %d characters.", maxEmailLength)) {
		return
	}
	if !validEmail(value) {
		c.Add(field, "Please enter a properly formatted email address.")
	}
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		return false
	}
	at := strings.LastIndex(addr.Address, "@")
	return at > 0 && at < len(addr.Address)-1
}

// splitBackgroundItems splits a comma separated keyword list, dropping blanks.
func splitBackgroundItems(csv string) []string {
	out := make([]string, 0)
	for _, item := range strings.Split(csv, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validBackgroundItems(items []string) bool {
	for _, item := range items {
		if utf8.RuneCountInString(item) > maxBackgroundItem {
			return false
		}
	}
	return true
}
