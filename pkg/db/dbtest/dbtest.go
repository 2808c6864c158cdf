// Package dbtest provides an in-memory SQLite database carrying the
// recruitment schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  district_id TEXT,
  age_reference_date DATETIME,
  local_resident_preferred INTEGER NOT NULL DEFAULT 0,
  local_resident_required INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS applicants (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  email TEXT,
  date_of_birth DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS applicant_addresses (
  id TEXT PRIMARY KEY,
  applicant_id TEXT NOT NULL,
  address_type TEXT NOT NULL,
  district_id TEXT,
  line1 TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS applicant_educations (
  id TEXT PRIMARY KEY,
  applicant_id TEXT NOT NULL,
  qualification_name TEXT NOT NULL,
  display_order INTEGER NOT NULL,
  percentage TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS applicant_experiences (
  id TEXT PRIMARY KEY,
  applicant_id TEXT NOT NULL,
  organization TEXT NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME,
  is_relevant INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS applications (
  id TEXT PRIMARY KEY,
  application_no TEXT NOT NULL UNIQUE,
  applicant_id TEXT NOT NULL,
  post_id TEXT NOT NULL,
  status TEXT NOT NULL,
  is_locked INTEGER NOT NULL DEFAULT 0,
  system_eligibility INTEGER,
  eligibility_checked_at DATETIME,
  merit_score INTEGER,
  submitted_at DATETIME,
  selection_status TEXT,
  declaration_accepted INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  CONSTRAINT uq_applications_applicant_post UNIQUE (applicant_id, post_id)
);`,
	`CREATE TABLE IF NOT EXISTS application_status_history (
  id TEXT PRIMARY KEY,
  application_id TEXT NOT NULL,
  old_status TEXT,
  new_status TEXT NOT NULL,
  changed_by TEXT,
  changed_by_type TEXT NOT NULL,
  remarks TEXT,
  metadata BLOB,
  created_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS eligibility_results (
  id TEXT PRIMARY KEY,
  application_id TEXT NOT NULL,
  is_eligible INTEGER NOT NULL,
  checks BLOB NOT NULL,
  checked_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  CONSTRAINT uq_eligibility_results_application UNIQUE (application_id)
);`,
	`CREATE TABLE IF NOT EXISTS merit_lists (
  id TEXT PRIMARY KEY,
  application_id TEXT NOT NULL,
  post_id TEXT NOT NULL,
  district_id TEXT,
  score INTEGER NOT NULL,
  rank INTEGER NOT NULL,
  generated_by TEXT,
  generated_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS allotment_uploads (
  id TEXT PRIMARY KEY,
  post_id TEXT NOT NULL,
  file_path TEXT NOT NULL,
  original_name TEXT NOT NULL,
  uploaded_by TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS allotment_email_schedules (
  id TEXT PRIMARY KEY,
  post_id TEXT NOT NULL,
  upload_id TEXT NOT NULL,
  scheduled_date DATETIME NOT NULL,
  status TEXT NOT NULL,
  total_recipients INTEGER NOT NULL DEFAULT 0,
  emails_sent INTEGER NOT NULL DEFAULT 0,
  emails_failed INTEGER NOT NULL DEFAULT 0,
  started_at DATETIME,
  completed_at DATETIME,
  created_by TEXT NOT NULL,
  cancelled_by TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_allotment_schedules_one_scheduled
  ON allotment_email_schedules (post_id) WHERE status = 'SCHEDULED';`,
	`CREATE TABLE IF NOT EXISTS allotment_email_tracking (
  id TEXT PRIMARY KEY,
  schedule_id TEXT NOT NULL,
  post_id TEXT NOT NULL,
  applicant_id TEXT NOT NULL,
  application_id TEXT NOT NULL,
  email TEXT NOT NULL,
  status TEXT NOT NULL,
  sent_at DATETIME,
  error_message TEXT,
  retry_count INTEGER NOT NULL DEFAULT 0,
  message_id TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  CONSTRAINT uq_allotment_tracking_post_applicant UNIQUE (post_id, applicant_id)
);`,
}

// Open returns a fresh in-memory database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// a single connection keeps the shared in-memory database alive and
	// serialises writers the way SQLite expects
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// Fixture seeds related records. Every helper returns the created row.
type Fixture struct {
	t   *testing.T
	db  *gorm.DB
	now time.Time
	seq int
}

// NewFixture binds seeding helpers to db.
func NewFixture(t *testing.T, db *gorm.DB) *Fixture {
	return &Fixture{t: t, db: db, now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// Now is the reference time used for fixture timestamps.
func (f *Fixture) Now() time.Time { return f.now }

func (f *Fixture) create(value any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(value).Error)
}

// Post creates a live post located in districtID (may be nil).
func (f *Fixture) Post(districtID *uuid.UUID) *models.Post {
	f.t.Helper()
	f.seq++
	post := &models.Post{
		ID:         uuid.New(),
		Code:       fmt.Sprintf("POST-%03d", f.seq),
		Title:      fmt.Sprintf("Post %d", f.seq),
		DistrictID: districtID,
		Lifecycle:  models.NewLifecycle(),
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	f.create(post)
	return post
}

// Upload creates an allotment letter upload for postID.
func (f *Fixture) Upload(postID uuid.UUID, filePath string) *models.AllotmentUpload {
	f.t.Helper()
	upload := &models.AllotmentUpload{
		ID:           uuid.New(),
		PostID:       postID,
		FilePath:     filePath,
		OriginalName: "allotment.pdf",
		Lifecycle:    models.NewLifecycle(),
		CreatedAt:    f.now,
	}
	f.create(upload)
	return upload
}

// Applicant creates an applicant; an empty email is stored as NULL.
func (f *Fixture) Applicant(email string, dob *time.Time) *models.Applicant {
	f.t.Helper()
	f.seq++
	applicant := &models.Applicant{
		ID:          uuid.New(),
		FullName:    fmt.Sprintf("Applicant %d", f.seq),
		DateOfBirth: dob,
		Lifecycle:   models.NewLifecycle(),
		CreatedAt:   f.now,
		UpdatedAt:   f.now,
	}
	if email != "" {
		applicant.Email = &email
	}
	f.create(applicant)
	return applicant
}

// PermanentAddress records the permanent district of an applicant.
func (f *Fixture) PermanentAddress(applicantID uuid.UUID, districtID uuid.UUID) *models.ApplicantAddress {
	f.t.Helper()
	address := &models.ApplicantAddress{
		ID:          uuid.New(),
		ApplicantID: applicantID,
		AddressType: models.AddressTypePermanent,
		DistrictID:  &districtID,
		Line1:       "1 Main Road",
		Lifecycle:   models.NewLifecycle(),
		CreatedAt:   f.now,
	}
	f.create(address)
	return address
}

// Education records a qualification with the given rank and percentage.
func (f *Fixture) Education(applicantID uuid.UUID, rank int, percentage string) *models.ApplicantEducation {
	f.t.Helper()
	education := &models.ApplicantEducation{
		ID:                uuid.New(),
		ApplicantID:       applicantID,
		QualificationName: fmt.Sprintf("Level %d", rank),
		DisplayOrder:      rank,
		Percentage:        decimal.RequireFromString(percentage),
		Lifecycle:         models.NewLifecycle(),
		CreatedAt:         f.now,
	}
	f.create(education)
	return education
}

// Experience records an employment period.
func (f *Fixture) Experience(applicantID uuid.UUID, start time.Time, end *time.Time, relevant bool) *models.ApplicantExperience {
	f.t.Helper()
	experience := &models.ApplicantExperience{
		ID:           uuid.New(),
		ApplicantID:  applicantID,
		Organization: "Public Works",
		StartDate:    start,
		EndDate:      end,
		IsRelevant:   relevant,
		Lifecycle:    models.NewLifecycle(),
		CreatedAt:    f.now,
	}
	f.create(experience)
	return experience
}

// Application creates an application in the given status.
func (f *Fixture) Application(applicantID, postID uuid.UUID, status enums.ApplicationStatus) *models.Application {
	f.t.Helper()
	f.seq++
	app := &models.Application{
		ID:            uuid.New(),
		ApplicationNo: fmt.Sprintf("APP-%06d", f.seq),
		ApplicantID:   applicantID,
		PostID:        postID,
		Status:        status,
		IsLocked:      status != enums.ApplicationStatusDraft,
		Lifecycle:     models.NewLifecycle(),
		CreatedAt:     f.now,
		UpdatedAt:     f.now,
	}
	if status != enums.ApplicationStatusDraft {
		submitted := f.now
		app.SubmittedAt = &submitted
	}
	f.create(app)
	return app
}
