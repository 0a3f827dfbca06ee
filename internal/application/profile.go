package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

const monthYearLayout = "01/2006"

type jobParams struct {
	ID          int64  `json:"id"`
	AccountID   string `json:"accountId"`
	CompanyName string `json:"companyName"`
	Industry    string `json:"industry"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DateFrom    string `json:"dateFrom"`
	DateTo      string `json:"dateTo"`
}

type enrollmentParams struct {
	AccountID         string   `json:"accountId"`
	SchoolName        string   `json:"schoolName"`
	Degree            string   `json:"degree"`
	AreasOfStudy      []string `json:"areasOfStudy"`
	GradDate          string   `json:"gradDate"`
	Activities        []string `json:"activities"`
	AdditionalDetails string   `json:"additionalDetails"`
}

type recommendationParams struct {
	AccountID string `json:"accountId"`
	Text      string `json:"text"`
}

type backgroundParams struct {
	AccountID string                                 `json:"accountId"`
	Items     map[domain.BackgroundItemType][]string `json:"items"`
}

type idParams struct {
	ID int64 `json:"id"`
}

// profileOwner resolves the person whose profile is addressed, defaulting to the principal. Only
// the owner or an admin may modify it.
func (s *Service) profileOwner(ctx context.Context, ac *domain.ActionContext, accountID string, modify bool) (domain.Person, error) {
	if err := requirePerson(ac); err != nil {
		return domain.Person{}, err
	}
	p, err := s.cachedPersonByAccountID(ctx, defaultString(accountID, ac.Principal.AccountID))
	if err != nil {
		return domain.Person{}, err
	}
	if modify && p.ID != ac.Principal.PersonID && !isAdmin(ac.Principal) {
		return domain.Person{}, domain.ErrForbidden
	}
	return p, nil
}

func (s *Service) canModifyProfile(ac *domain.ActionContext, personID int64) error {
	if personID != ac.Principal.PersonID && !isAdmin(ac.Principal) {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) getJobs(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in accountParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.profileOwner(ctx, ac, in.AccountID, false)
	if err != nil {
		return nil, err
	}
	return s.repo.ListJobs(ctx, p.ID)
}

func (s *Service) addJob(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in jobParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.profileOwner(ctx, ac, in.AccountID, true)
	if err != nil {
		return nil, err
	}
	job, err := validateJob(in)
	if err != nil {
		return nil, err
	}
	job.PersonID = p.ID
	return s.repo.SaveJob(ctx, job)
}

func (s *Service) updateJob(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in jobParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetJob(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := s.canModifyProfile(ac, existing.PersonID); err != nil {
		return nil, err
	}
	job, err := validateJob(in)
	if err != nil {
		return nil, err
	}
	job.ID = existing.ID
	job.PersonID = existing.PersonID
	return s.repo.SaveJob(ctx, job)
}

func (s *Service) deleteJob(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in idParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetJob(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := s.canModifyProfile(ac, existing.PersonID); err != nil {
		return nil, err
	}
	return true, s.repo.DeleteJob(ctx, existing.ID)
}

func validateJob(in jobParams) (domain.Job, error) {
	check := newFieldCheck()
	check.required("companyName", in.CompanyName, "Company name is required.")
	check.required("industry", in.Industry, "Industry is required.")
	check.required("title", in.Title, "Title is required.")
	check.required("description", in.Description, "Description is required.")

	var from time.Time
	if check.required("dateFrom", in.DateFrom, "Start month and year are required.") {
		var ok bool
		if from, ok = parseMonthYear(in.DateFrom); !ok {
			check.Add("dateFrom", "Dates must be formatted as MM/yyyy.")
		}
	}
	var to *time.Time
	if strings.TrimSpace(in.DateTo) != "" {
		t, ok := parseMonthYear(in.DateTo)
		switch {
		case !ok:
			check.Add("dateTo", "Dates must be formatted as MM/yyyy.")
		case !from.IsZero() && t.Before(from):
			check.Add("dateTo", "End date must not be before the start date.")
		default:
			to = &t
		}
	}
	if err := check.OrNil(); err != nil {
		return domain.Job{}, err
	}
	return domain.Job{
		CompanyName: strings.TrimSpace(in.CompanyName),
		Industry:    strings.TrimSpace(in.Industry),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		DateFrom:    from,
		DateTo:      to,
	}, nil
}

func parseMonthYear(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, "/")
	if len(parts) != 2 || !yearPattern.MatchString(parts[1]) {
		return time.Time{}, false
	}
	month := parts[0]
	if len(month) == 1 {
		month = "0" + month
	}
	t, err := time.Parse(monthYearLayout, month+"/"+parts[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Service) getEnrollments(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in accountParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.profileOwner(ctx, ac, in.AccountID, false)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEnrollments(ctx, p.ID)
}

func (s *Service) addEnrollment(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in enrollmentParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.profileOwner(ctx, ac, in.AccountID, true)
	if err != nil {
		return nil, err
	}

	check := newFieldCheck()
	check.required("schoolName", in.SchoolName, "School name is required.")
	check.required("degree", in.Degree, "Degree is required.")
	var grad *time.Time
	if strings.TrimSpace(in.GradDate) != "" {
		if !yearPattern.MatchString(strings.TrimSpace(in.GradDate)) {
			check.Add("gradDate", "Graduation year must be four digits.")
		} else {
			t, _ := time.Parse("2006", strings.TrimSpace(in.GradDate))
			grad = &t
		}
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.SaveEnrollment(ctx, domain.Enrollment{
		PersonID:          p.ID,
		SchoolName:        strings.TrimSpace(in.SchoolName),
		Degree:            strings.TrimSpace(in.Degree),
		AreasOfStudy:      in.AreasOfStudy,
		GradDate:          grad,
		Activities:        in.Activities,
		AdditionalDetails: in.AdditionalDetails,
	})
}

func (s *Service) deleteEnrollment(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in idParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetEnrollment(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := s.canModifyProfile(ac, existing.PersonID); err != nil {
		return nil, err
	}
	return true, s.repo.DeleteEnrollment(ctx, existing.ID)
}

func (s *Service) getRecommendations(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in accountParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.profileOwner(ctx, ac, in.AccountID, false)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRecommendations(ctx, p.ID)
}

// addRecommendation is written by the principal about someone else.
func (s *Service) addRecommendation(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in recommendationParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	subject, err := s.profileOwner(ctx, ac, in.AccountID, false)
	if err != nil {
		return nil, err
	}

	check := newFieldCheck()
	if check.required("text", in.Text, "Recommendation text is required.") {
		check.maxLength("text", in.Text, maxRecommendation, fmt.Sprintf("Recommendations support up to %d characters.", maxRecommendation))
	}
	if subject.ID == ac.Principal.PersonID {
		check.Add("accountId", "You cannot recommend yourself.")
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.CreateRecommendation(ctx, domain.Recommendation{
		SubjectID:           subject.ID,
		SubjectOpenSocialID: subject.OpenSocialID,
		AuthorOpenSocialID:  ac.Principal.OpenSocialID,
		Text:                strings.TrimSpace(in.Text),
	})
}

func (s *Service) deleteRecommendation(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in idParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetRecommendation(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if rec.SubjectID != ac.Principal.PersonID && rec.AuthorOpenSocialID != ac.Principal.OpenSocialID && !isAdmin(ac.Principal) {
		return nil, domain.ErrForbidden
	}
	return true, s.repo.DeleteRecommendation(ctx, rec.ID)
}

func (s *Service) getBackground(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in accountParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.profileOwner(ctx, ac, in.AccountID, false)
	if err != nil {
		return nil, err
	}
	return s.background(ctx, p.ID)
}

// updateBackground replaces the item lists for the types present in the request.
func (s *Service) updateBackground(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in backgroundParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.profileOwner(ctx, ac, in.AccountID, true)
	if err != nil {
		return nil, err
	}

	check := newFieldCheck()
	for itemType, names := range in.Items {
		if !validBackgroundType(itemType) {
			check.Add(string(itemType), "Unknown background item type.")
			continue
		}
		if !validBackgroundItems(names) {
			check.Add(string(itemType), fmt.Sprintf("Keywords must be no more than %d characters each.", maxBackgroundItem))
		}
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	for _, itemType := range domain.BackgroundItemTypes {
		names, ok := in.Items[itemType]
		if !ok {
			continue
		}
		if err := s.repo.SetBackgroundItems(ctx, p.ID, itemType, names); err != nil {
			return nil, err
		}
	}
	if err := ac.Enqueue(ActionIndexPersonByID, entityIDParams{ID: p.ID}); err != nil {
		return nil, err
	}
	return s.background(ctx, p.ID)
}

func (s *Service) background(ctx context.Context, personID int64) (domain.Background, error) {
	items, err := s.repo.ListBackgroundItems(ctx, personID)
	if err != nil {
		return domain.Background{}, err
	}
	bg := domain.Background{PersonID: personID, Items: make(map[domain.BackgroundItemType][]string, len(domain.BackgroundItemTypes))}
	for _, t := range domain.BackgroundItemTypes {
		bg.Items[t] = []string{}
	}
	for _, item := range items {
		bg.Items[item.Type] = append(bg.Items[item.Type], item.Name)
	}
	return bg, nil
}

func validBackgroundType(t domain.BackgroundItemType) bool {
	for _, known := range domain.BackgroundItemTypes {
		if t == known {
			return true
		}
	}
	return false
}
