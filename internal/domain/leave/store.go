package leave

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrms/internal/platform/db"
)

type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) Transaction(ctx context.Context, fn func(st *Store) error) error {
	return db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) CreateType(ctx context.Context, lt *LeaveType) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(lt).Error, "leave type")
}

func (s *Store) GetType(ctx context.Context, id string) (*LeaveType, error) {
	var lt LeaveType
	if err := s.db.WithContext(ctx).First(&lt, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "leave type")
	}
	return &lt, nil
}

func (s *Store) TypeCodeTaken(ctx context.Context, code, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&LeaveType{}).Where("LOWER(code) = ?", strings.ToLower(code))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) ListTypes(ctx context.Context, activeOnly bool) ([]LeaveType, error) {
	q := s.db.WithContext(ctx).Order("name")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []LeaveType
	err := q.Find(&out).Error
	return out, err
}

func (s *Store) UpdateTypeFields(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&LeaveType{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return db.TranslateError(res.Error, "leave type")
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "leave type")
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, employeeID, typeID string, year int) (*LeaveBalance, error) {
	var b LeaveBalance
	err := s.db.WithContext(ctx).
		First(&b, "employee_id = ? AND leave_type_id = ? AND year = ?", employeeID, typeID, year).Error
	if err != nil {
		return nil, db.TranslateError(err, "leave balance")
	}
	return &b, nil
}

// LockBalance reads a balance with a row lock on databases that support it.
func (s *Store) LockBalance(ctx context.Context, employeeID, typeID string, year int) (*LeaveBalance, error) {
	var b LeaveBalance
	q := s.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.First(&b, "employee_id = ? AND leave_type_id = ? AND year = ?", employeeID, typeID, year).Error
	if err != nil {
		return nil, db.TranslateError(err, "leave balance")
	}
	return &b, nil
}

func (s *Store) CreateBalance(ctx context.Context, b *LeaveBalance) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(b).Error, "leave balance")
}

func (s *Store) UpdateBalanceFields(ctx context.Context, id string, fields map[string]any) error {
	return db.TranslateError(s.db.WithContext(ctx).Model(&LeaveBalance{}).Where("id = ?", id).Updates(fields).Error, "leave balance")
}

// AdjustBalance adds deltas to the pending and used counters.
func (s *Store) AdjustBalance(ctx context.Context, id string, pending, used float64) error {
	return s.db.WithContext(ctx).Model(&LeaveBalance{}).Where("id = ?", id).Updates(map[string]any{
		"pending": gorm.Expr("pending + ?", pending),
		"used":    gorm.Expr("used + ?", used),
	}).Error
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	q := s.db.WithContext(ctx).Where("employee_id = ?", employeeID)
	if year > 0 {
		q = q.Where("year = ?", year)
	}
	var out []LeaveBalance
	err := q.Order("year DESC, leave_type_id").Find(&out).Error
	return out, err
}

func (s *Store) BalanceExists(ctx context.Context, employeeID, typeID string, year int) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&LeaveBalance{}).
		Where("employee_id = ? AND leave_type_id = ? AND year = ?", employeeID, typeID, year).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateRequest(ctx context.Context, r *LeaveRequest) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(r).Error, "leave request")
}

func (s *Store) GetRequest(ctx context.Context, id string) (*LeaveRequest, error) {
	var r LeaveRequest
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "leave request")
	}
	return &r, nil
}

// TransitionRequest moves a request out of one of the from statuses. It
// reports false when another writer got there first.
func (s *Store) TransitionRequest(ctx context.Context, id string, from []string, fields map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&LeaveRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

// HasOverlap looks for pending or approved requests that share a day with the range.
func (s *Store) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&LeaveRequest{}).
		Where("employee_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			employeeID, []string{StatusPending, StatusApproved}, end, start).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) SearchRequests(ctx context.Context, c Criteria, limit, offset int) ([]LeaveRequest, int64, error) {
	q := s.db.WithContext(ctx).Model(&LeaveRequest{})
	if c.EmployeeID != "" {
		q = q.Where("employee_id = ?", c.EmployeeID)
	}
	if c.ManagerID != "" {
		q = q.Where("employee_id IN (?)", s.db.Table("employees").Select("id").Where("manager_id = ?", c.ManagerID))
	}
	if c.Status != "" {
		q = q.Where("status = ?", c.Status)
	}
	if c.LeaveTypeID != "" {
		q = q.Where("leave_type_id = ?", c.LeaveTypeID)
	}
	if c.From != nil {
		q = q.Where("end_date >= ?", *c.From)
	}
	if c.To != nil {
		q = q.Where("start_date <= ?", *c.To)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []LeaveRequest
	err := db.Paginate(q.Order("start_date DESC").Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&LeaveRequest{}).Where("status = ?", StatusPending).Count(&n).Error
	return n, err
}
