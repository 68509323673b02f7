package performance

import (
	"context"

	"gorm.io/gorm"

	"hrms/internal/platform/db"
)

type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) CreateReview(ctx context.Context, r *Review) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(r).Error, "review")
}

func (s *Store) GetReview(ctx context.Context, id string) (*Review, error) {
	var r Review
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "review")
	}
	return &r, nil
}

// TransitionReview applies fields only while the review is still in status from.
func (s *Store) TransitionReview(ctx context.Context, id, from string, fields map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Review{}).Where("id = ? AND status = ?", id, from).Updates(fields)
	return res.RowsAffected == 1, res.Error
}

// SearchReviews filters by c. participant, when set, limits results to
// reviews where that employee is the reviewee or the reviewer.
func (s *Store) SearchReviews(ctx context.Context, c ReviewCriteria, participant string, limit, offset int) ([]Review, int64, error) {
	q := s.db.WithContext(ctx).Model(&Review{})
	if c.EmployeeID != "" {
		q = q.Where("employee_id = ?", c.EmployeeID)
	}
	if c.ReviewerID != "" {
		q = q.Where("reviewer_id = ?", c.ReviewerID)
	}
	if c.Status != "" {
		q = q.Where("status = ?", c.Status)
	}
	if participant != "" {
		q = q.Where("(employee_id = ? AND status <> ?) OR reviewer_id = ?", participant, ReviewDraft, participant)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Review
	err := db.Paginate(q.Order("period_end DESC").Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) EmployeeReviews(ctx context.Context, employeeID string) ([]Review, error) {
	var out []Review
	err := s.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("period_end").Find(&out).Error
	return out, err
}

func (s *Store) CreateGoal(ctx context.Context, g *Goal) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(g).Error, "goal")
}

func (s *Store) GetGoal(ctx context.Context, id string) (*Goal, error) {
	var g Goal
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "goal")
	}
	return &g, nil
}

func (s *Store) UpdateGoalFields(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Goal{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return db.TranslateError(res.Error, "goal")
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "goal")
	}
	return nil
}

func (s *Store) ListGoals(ctx context.Context, employeeID, status string) ([]Goal, error) {
	q := s.db.WithContext(ctx).Where("employee_id = ?", employeeID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []Goal
	err := q.Order("created_at").Order("id").Find(&out).Error
	return out, err
}
