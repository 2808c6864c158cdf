package merit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/angelmondragon/recruitment-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// qualifyingStatuses are the statuses that take part in a merit ranking.
var qualifyingStatuses = []enums.ApplicationStatus{
	enums.ApplicationStatusEligible,
	enums.ApplicationStatusOnHold,
	enums.ApplicationStatusProvisionalSelected,
	enums.ApplicationStatusSelected,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service ranks eligible applications of a post.
type Service interface {
	Rank(ctx context.Context, input RankInput) (*RankedList, error)
	Snapshot(ctx context.Context, input SnapshotInput) (*SnapshotResult, error)
}

// RankInput selects the post, an optional district filter and the page.
type RankInput struct {
	PostID     uuid.UUID
	DistrictID *uuid.UUID
	Page       int
	Limit      int
}

// RankedCandidate is one row of the ranked view.
type RankedCandidate struct {
	Rank              int                     `json:"rank"`
	ApplicationID     uuid.UUID               `json:"application_id"`
	ApplicationNo     string                  `json:"application_no"`
	ApplicantID       uuid.UUID               `json:"applicant_id"`
	ApplicantName     string                  `json:"applicant_name"`
	Status            enums.ApplicationStatus `json:"status"`
	SubmittedAt       *time.Time              `json:"submitted_at,omitempty"`
	Score             int64                   `json:"score"`
	Breakdown         Breakdown               `json:"breakdown"`
	OtherApplications []OtherApplication      `json:"other_applications"`
}

// RankedList is one page of the full ranking.
type RankedList struct {
	PostID     uuid.UUID         `json:"post_id"`
	DistrictID *uuid.UUID        `json:"district_id,omitempty"`
	AsOf       time.Time         `json:"as_of"`
	Items      []RankedCandidate `json:"items"`
	Pagination pagination.Meta   `json:"pagination"`
}

// SnapshotInput persists the current full ranking of a post.
type SnapshotInput struct {
	PostID     uuid.UUID
	DistrictID *uuid.UUID
	AdminID    uuid.UUID
}

// SnapshotResult summarises a persisted merit list.
type SnapshotResult struct {
	PostID      uuid.UUID `json:"post_id"`
	Rows        int       `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

type service struct {
	repo   Repository
	tx     txRunner
	policy ScoringPolicy
	now    func() time.Time
}

// NewService wires the ranker. policy.AsOf is ignored; each ranking is
// evaluated at the post's age reference date or, failing that, now.
func NewService(repo Repository, tx txRunner, policy ScoringPolicy, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("merit repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if now == nil {
		now = time.Now
	}
	if err := policy.WithAsOf(now()).Validate(); err != nil {
		return nil, fmt.Errorf("scoring policy: %w", err)
	}
	return &service{repo: repo, tx: tx, policy: policy, now: now}, nil
}

func (s *service) Rank(ctx context.Context, input RankInput) (*RankedList, error) {
	if input.PostID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	post, ranked, asOf, err := s.rankAll(ctx, s.repo, input.PostID, input.DistrictID)
	if err != nil {
		return nil, err
	}

	params := pagination.Params{Page: input.Page, Limit: input.Limit}
	page := pagination.Window(ranked, params)

	applicantIDs := make([]uuid.UUID, 0, len(page))
	for _, item := range page {
		applicantIDs = append(applicantIDs, item.ApplicantID)
	}
	others, err := s.repo.ListOtherApplications(ctx, applicantIDs, post.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load other applications")
	}
	byApplicant := map[uuid.UUID][]OtherApplication{}
	for _, other := range others {
		byApplicant[other.ApplicantID] = append(byApplicant[other.ApplicantID], other)
	}
	items := make([]RankedCandidate, len(page))
	for i, item := range page {
		item.OtherApplications = byApplicant[item.ApplicantID]
		if item.OtherApplications == nil {
			item.OtherApplications = []OtherApplication{}
		}
		items[i] = item
	}

	return &RankedList{
		PostID:     post.ID,
		DistrictID: input.DistrictID,
		AsOf:       asOf,
		Items:      items,
		Pagination: pagination.NewMeta(params, len(ranked)),
	}, nil
}

// Snapshot stores the full ranking in merit_lists and refreshes the advisory
// merit_score column in one transaction.
func (s *service) Snapshot(ctx context.Context, input SnapshotInput) (*SnapshotResult, error) {
	if input.PostID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	generatedAt := s.now().UTC()
	var rows []models.MeritList
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		_, ranked, _, err := s.rankAll(ctx, repo, input.PostID, input.DistrictID)
		if err != nil {
			return err
		}

		admin := input.AdminID
		rows = make([]models.MeritList, 0, len(ranked))
		for _, item := range ranked {
			rows = append(rows, models.MeritList{
				ID:            uuid.New(),
				ApplicationID: item.ApplicationID,
				PostID:        input.PostID,
				DistrictID:    input.DistrictID,
				Score:         item.Score,
				Rank:          item.Rank,
				GeneratedBy:   &admin,
				GeneratedAt:   generatedAt,
			})
			if err := repo.UpdateAdvisoryScore(ctx, item.ApplicationID, item.Score); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update advisory merit score")
			}
		}
		if err := repo.ReplaceSnapshot(ctx, input.PostID, input.DistrictID, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store merit list")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &SnapshotResult{PostID: input.PostID, Rows: len(rows), GeneratedAt: generatedAt}, nil
}

// rankAll scores and orders every qualifying application of the post before
// any pagination is applied.
func (s *service) rankAll(ctx context.Context, repo Repository, postID uuid.UUID, districtID *uuid.UUID) (*models.Post, []RankedCandidate, time.Time, error) {
	post, err := repo.FindPost(ctx, postID)
	if err != nil {
		return nil, nil, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	if post == nil {
		return nil, nil, time.Time{}, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}

	records, err := repo.ListCandidates(ctx, postID, qualifyingStatuses)
	if err != nil {
		return nil, nil, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidates")
	}

	asOf := s.now().UTC()
	if post.AgeReferenceDate != nil {
		asOf = post.AgeReferenceDate.UTC()
	}
	policy := s.policy.WithAsOf(asOf)

	ranked := make([]RankedCandidate, 0, len(records))
	for _, rec := range records {
		if districtID != nil && (rec.PermanentDistrictID == nil || *rec.PermanentDistrictID != *districtID) {
			continue
		}
		score := Compute(ToCandidate(rec), post.DistrictID, policy)
		ranked = append(ranked, RankedCandidate{
			ApplicationID: rec.Application.ID,
			ApplicationNo: rec.Application.ApplicationNo,
			ApplicantID:   rec.Application.ApplicantID,
			ApplicantName: rec.Applicant.FullName,
			Status:        rec.Application.Status,
			SubmittedAt:   rec.Application.SubmittedAt,
			Score:         score.Value,
			Breakdown:     score.Breakdown,
		})
	}
	SortRanked(ranked)
	return post, ranked, asOf, nil
}

// SortRanked orders by score descending, then earliest submission, then
// application number, and assigns ranks 1..N. The order is total, so no
// two candidates share a rank.
func SortRanked(items []RankedCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.SubmittedAt != nil && b.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt):
			return a.SubmittedAt.Before(*b.SubmittedAt)
		case a.SubmittedAt != nil && b.SubmittedAt == nil:
			return true
		case a.SubmittedAt == nil && b.SubmittedAt != nil:
			return false
		}
		if a.ApplicationNo != b.ApplicationNo {
			return a.ApplicationNo < b.ApplicationNo
		}
		return a.ApplicationID.String() < b.ApplicationID.String()
	})
	for i := range items {
		items[i].Rank = i + 1
	}
}

// ToCandidate maps persisted records onto the scorer input.
func ToCandidate(rec CandidateRecords) Candidate {
	c := Candidate{
		DateOfBirth:         rec.Applicant.DateOfBirth,
		PermanentDistrictID: rec.PermanentDistrictID,
		Educations:          make([]Education, 0, len(rec.Educations)),
		Experiences:         make([]Experience, 0, len(rec.Experiences)),
	}
	for _, edu := range rec.Educations {
		c.Educations = append(c.Educations, Education{Rank: edu.DisplayOrder, Percentage: edu.Percentage})
	}
	for _, exp := range rec.Experiences {
		c.Experiences = append(c.Experiences, Experience{Start: exp.StartDate, End: exp.EndDate, Relevant: exp.IsRelevant})
	}
	return c
}
