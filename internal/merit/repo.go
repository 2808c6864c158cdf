package merit

import (
	"context"
	"errors"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CandidateRecords is one application together with the sub-records the
// scorer reads.
type CandidateRecords struct {
	Application         models.Application
	Applicant           models.Applicant
	PermanentDistrictID *uuid.UUID
	Educations          []models.ApplicantEducation
	Experiences         []models.ApplicantExperience
}

// OtherApplication is a cross-reference to another post the applicant applied to.
type OtherApplication struct {
	ApplicantID   uuid.UUID               `json:"-"`
	ApplicationID uuid.UUID               `json:"application_id"`
	ApplicationNo string                  `json:"application_no"`
	PostID        uuid.UUID               `json:"post_id"`
	PostCode      string                  `json:"post_code"`
	PostTitle     string                  `json:"post_title"`
	Status        enums.ApplicationStatus `json:"status"`
}

// Repository loads ranking inputs and persists merit list snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPost(ctx context.Context, postID uuid.UUID) (*models.Post, error)
	ListCandidates(ctx context.Context, postID uuid.UUID, statuses []enums.ApplicationStatus) ([]CandidateRecords, error)
	ListOtherApplications(ctx context.Context, applicantIDs []uuid.UUID, excludePostID uuid.UUID) ([]OtherApplication, error)
	ReplaceSnapshot(ctx context.Context, postID uuid.UUID, districtID *uuid.UUID, rows []models.MeritList) error
	UpdateAdvisoryScore(ctx context.Context, applicationID uuid.UUID, score int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a merit repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Scopes(models.ActiveOnly("")).
		Where("id = ?", postID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// ListCandidates returns live applications for the post in one of statuses,
// each hydrated with its live applicant sub-records.
func (r *repository) ListCandidates(ctx context.Context, postID uuid.UUID, statuses []enums.ApplicationStatus) ([]CandidateRecords, error) {
	db := r.db.WithContext(ctx)

	var apps []models.Application
	if err := db.Scopes(models.ActiveOnly("")).
		Where("post_id = ? AND status IN ?", postID, statuses).
		Find(&apps).Error; err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return []CandidateRecords{}, nil
	}

	applicantIDs := make([]uuid.UUID, 0, len(apps))
	for _, app := range apps {
		applicantIDs = append(applicantIDs, app.ApplicantID)
	}

	var applicants []models.Applicant
	if err := db.Where("id IN ?", applicantIDs).Find(&applicants).Error; err != nil {
		return nil, err
	}
	var addresses []models.ApplicantAddress
	if err := db.Scopes(models.ActiveOnly("")).
		Where("applicant_id IN ? AND address_type = ?", applicantIDs, models.AddressTypePermanent).
		Order("created_at DESC").
		Find(&addresses).Error; err != nil {
		return nil, err
	}
	var educations []models.ApplicantEducation
	if err := db.Scopes(models.ActiveOnly("")).
		Where("applicant_id IN ?", applicantIDs).
		Find(&educations).Error; err != nil {
		return nil, err
	}
	var experiences []models.ApplicantExperience
	if err := db.Scopes(models.ActiveOnly("")).
		Where("applicant_id IN ?", applicantIDs).
		Find(&experiences).Error; err != nil {
		return nil, err
	}

	applicantByID := make(map[uuid.UUID]models.Applicant, len(applicants))
	for _, applicant := range applicants {
		applicantByID[applicant.ID] = applicant
	}
	districtByApplicant := map[uuid.UUID]*uuid.UUID{}
	for _, addr := range addresses {
		// newest permanent address wins
		if _, seen := districtByApplicant[addr.ApplicantID]; !seen {
			districtByApplicant[addr.ApplicantID] = addr.DistrictID
		}
	}
	educationsByApplicant := map[uuid.UUID][]models.ApplicantEducation{}
	for _, edu := range educations {
		educationsByApplicant[edu.ApplicantID] = append(educationsByApplicant[edu.ApplicantID], edu)
	}
	experiencesByApplicant := map[uuid.UUID][]models.ApplicantExperience{}
	for _, exp := range experiences {
		experiencesByApplicant[exp.ApplicantID] = append(experiencesByApplicant[exp.ApplicantID], exp)
	}

	out := make([]CandidateRecords, 0, len(apps))
	for _, app := range apps {
		out = append(out, CandidateRecords{
			Application:         app,
			Applicant:           applicantByID[app.ApplicantID],
			PermanentDistrictID: districtByApplicant[app.ApplicantID],
			Educations:          educationsByApplicant[app.ApplicantID],
			Experiences:         experiencesByApplicant[app.ApplicantID],
		})
	}
	return out, nil
}

func (r *repository) ListOtherApplications(ctx context.Context, applicantIDs []uuid.UUID, excludePostID uuid.UUID) ([]OtherApplication, error) {
	if len(applicantIDs) == 0 {
		return []OtherApplication{}, nil
	}
	var rows []OtherApplication
	err := r.db.WithContext(ctx).
		Table("applications AS a").
		Select("a.applicant_id, a.id AS application_id, a.application_no, a.post_id, p.code AS post_code, p.title AS post_title, a.status").
		Joins("JOIN posts AS p ON p.id = a.post_id").
		Where("a.applicant_id IN ? AND a.post_id <> ?", applicantIDs, excludePostID).
		Where("a.is_active = ?", true).
		Order("a.application_no ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceSnapshot swaps the stored merit list of one (post, district) scope
// for rows. A nil district is the post-wide list; other districts keep theirs.
func (r *repository) ReplaceSnapshot(ctx context.Context, postID uuid.UUID, districtID *uuid.UUID, rows []models.MeritList) error {
	db := r.db.WithContext(ctx)
	scope := db.Where("post_id = ?", postID)
	if districtID == nil {
		scope = scope.Where("district_id IS NULL")
	} else {
		scope = scope.Where("district_id = ?", *districtID)
	}
	if err := scope.Delete(&models.MeritList{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(&rows, 200).Error
}

func (r *repository) UpdateAdvisoryScore(ctx context.Context, applicationID uuid.UUID, score int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", applicationID).
		Update("merit_score", score).Error
}
