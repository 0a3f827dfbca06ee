package sqlite

import (
	"context"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"gorm.io/gorm"
)

func jobFromModel(m JobModel) domain.Job {
	return domain.Job{
		ID:          m.ID,
		PersonID:    m.PersonID,
		CompanyName: m.CompanyName,
		Industry:    m.Industry,
		Title:       m.Title,
		DateFrom:    m.DateFrom,
		DateTo:      m.DateTo,
		Description: m.Description,
	}
}

func enrollmentFromModel(m EnrollmentModel) domain.Enrollment {
	return domain.Enrollment{
		ID:                m.ID,
		PersonID:          m.PersonID,
		SchoolName:        m.SchoolName,
		Degree:            m.Degree,
		AreasOfStudy:      splitList(m.AreasOfStudy),
		GradDate:          m.GradDate,
		Activities:        splitList(m.Activities),
		AdditionalDetails: m.AdditionalDetails,
	}
}

func recommendationFromModel(m RecommendationModel) domain.Recommendation {
	return domain.Recommendation{
		ID:                  m.ID,
		SubjectID:           m.SubjectID,
		SubjectOpenSocialID: m.SubjectOpenSocialID,
		AuthorOpenSocialID:  m.AuthorOpenSocialID,
		Text:                m.Text,
		Date:                m.Date,
	}
}

func (r *Repository) ListJobs(ctx context.Context, personID int64) ([]domain.Job, error) {
	rows := make([]JobModel, 0)
	if err := r.db.WithContext(ctx).Where("person_id = ?", personID).Order("date_from DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Job, 0, len(rows))
	for _, m := range rows {
		result = append(result, jobFromModel(m))
	}
	return result, nil
}

func (r *Repository) GetJob(ctx context.Context, id int64) (domain.Job, error) {
	var m JobModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Job{}, notFound(err, "job")
	}
	return jobFromModel(m), nil
}

// SaveJob inserts when the id is zero and overwrites the row otherwise.
func (r *Repository) SaveJob(ctx context.Context, value domain.Job) (domain.Job, error) {
	m := JobModel{
		ID:          value.ID,
		PersonID:    value.PersonID,
		CompanyName: value.CompanyName,
		Industry:    value.Industry,
		Title:       value.Title,
		DateFrom:    value.DateFrom,
		DateTo:      value.DateTo,
		Description: value.Description,
	}
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return domain.Job{}, err
	}
	return jobFromModel(m), nil
}

func (r *Repository) DeleteJob(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&JobModel{}, id).Error
}

func (r *Repository) ListEnrollments(ctx context.Context, personID int64) ([]domain.Enrollment, error) {
	rows := make([]EnrollmentModel, 0)
	if err := r.db.WithContext(ctx).Where("person_id = ?", personID).Order("grad_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Enrollment, 0, len(rows))
	for _, m := range rows {
		result = append(result, enrollmentFromModel(m))
	}
	return result, nil
}

func (r *Repository) GetEnrollment(ctx context.Context, id int64) (domain.Enrollment, error) {
	var m EnrollmentModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Enrollment{}, notFound(err, "enrollment")
	}
	return enrollmentFromModel(m), nil
}

func (r *Repository) SaveEnrollment(ctx context.Context, value domain.Enrollment) (domain.Enrollment, error) {
	m := EnrollmentModel{
		ID:                value.ID,
		PersonID:          value.PersonID,
		SchoolName:        value.SchoolName,
		Degree:            value.Degree,
		AreasOfStudy:      joinList(value.AreasOfStudy),
		GradDate:          value.GradDate,
		Activities:        joinList(value.Activities),
		AdditionalDetails: value.AdditionalDetails,
	}
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return domain.Enrollment{}, err
	}
	return enrollmentFromModel(m), nil
}

func (r *Repository) DeleteEnrollment(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&EnrollmentModel{}, id).Error
}

func (r *Repository) ListRecommendations(ctx context.Context, subjectID int64) ([]domain.Recommendation, error) {
	rows := make([]RecommendationModel, 0)
	if err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Order("date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Recommendation, 0, len(rows))
	for _, m := range rows {
		result = append(result, recommendationFromModel(m))
	}
	return result, nil
}

func (r *Repository) GetRecommendation(ctx context.Context, id int64) (domain.Recommendation, error) {
	var m RecommendationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Recommendation{}, notFound(err, "recommendation")
	}
	return recommendationFromModel(m), nil
}

func (r *Repository) CreateRecommendation(ctx context.Context, value domain.Recommendation) (domain.Recommendation, error) {
	m := RecommendationModel{
		SubjectID:           value.SubjectID,
		SubjectOpenSocialID: value.SubjectOpenSocialID,
		AuthorOpenSocialID:  value.AuthorOpenSocialID,
		Text:                value.Text,
		Date:                value.Date,
	}
	db := r.db.WithContext(ctx)
	if m.Date.IsZero() {
		m.Date = db.NowFunc()
	}
	if err := db.Create(&m).Error; err != nil {
		return domain.Recommendation{}, err
	}
	return recommendationFromModel(m), nil
}

func (r *Repository) DeleteRecommendation(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&RecommendationModel{}, id).Error
}

func (r *Repository) ListBackgroundItems(ctx context.Context, personID int64) ([]domain.BackgroundItem, error) {
	rows := make([]BackgroundItemModel, 0)
	if err := r.db.WithContext(ctx).Where("person_id = ?", personID).Order("item_type ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.BackgroundItem, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.BackgroundItem{ID: m.ID, PersonID: m.PersonID, Type: domain.BackgroundItemType(m.ItemType), Name: m.Name})
	}
	return result, nil
}

// SetBackgroundItems replaces the items of one type, dropping blanks and case-insensitive duplicates.
func (r *Repository) SetBackgroundItems(ctx context.Context, personID int64, itemType domain.BackgroundItemType, names []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("person_id = ? AND item_type = ?", personID, string(itemType)).Delete(&BackgroundItemModel{}).Error; err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			k := strings.ToLower(name)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if err := tx.Create(&BackgroundItemModel{PersonID: personID, ItemType: string(itemType), Name: name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
