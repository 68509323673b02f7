package payroll

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"hrms/internal/domain/core"
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

func (s *Store) CreatePayGrade(ctx context.Context, g *PayGrade) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(g).Error, "pay grade")
}

func (s *Store) GetPayGrade(ctx context.Context, id string) (*PayGrade, error) {
	var g PayGrade
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "pay grade")
	}
	return &g, nil
}

func (s *Store) PayGradeCodeTaken(ctx context.Context, code, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&PayGrade{}).Where("LOWER(code) = ?", strings.ToLower(code))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) ListPayGrades(ctx context.Context) ([]PayGrade, error) {
	var out []PayGrade
	err := s.db.WithContext(ctx).Order("min_salary, code").Find(&out).Error
	return out, err
}

func (s *Store) SavePayGrade(ctx context.Context, g *PayGrade) error {
	return db.TranslateError(s.db.WithContext(ctx).Save(g).Error, "pay grade")
}

func (s *Store) DeletePayGrade(ctx context.Context, id string) error {
	return db.TranslateError(s.db.WithContext(ctx).Delete(&PayGrade{}, "id = ?", id).Error, "pay grade")
}

func (s *Store) CountGradeAssignments(ctx context.Context, gradeID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&core.Employee{}).Where("pay_grade_id = ?", gradeID).Count(&n).Error
	return n, err
}

func (s *Store) LatestSalary(ctx context.Context, employeeID string, onOrBefore *time.Time) (*SalaryHistory, error) {
	q := s.db.WithContext(ctx).Where("employee_id = ?", employeeID)
	if onOrBefore != nil {
		q = q.Where("effective_date <= ?", *onOrBefore)
	}
	var h SalaryHistory
	if err := q.Order("effective_date DESC, created_at DESC").First(&h).Error; err != nil {
		return nil, db.TranslateError(err, "salary history")
	}
	return &h, nil
}

func (s *Store) CreateSalaryHistory(ctx context.Context, h *SalaryHistory) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(h).Error, "salary history")
}

func (s *Store) SetEmployeeSalary(ctx context.Context, employeeID string, amount float64) error {
	return s.db.WithContext(ctx).Model(&core.Employee{}).Where("id = ?", employeeID).Update("salary", amount).Error
}

func (s *Store) SalaryHistory(ctx context.Context, employeeID string) ([]SalaryHistory, error) {
	var out []SalaryHistory
	err := s.db.WithContext(ctx).Where("employee_id = ?", employeeID).
		Order("effective_date DESC, created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) CreateBonus(ctx context.Context, b *Bonus) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(b).Error, "bonus")
}

func (s *Store) GetBonus(ctx context.Context, id string) (*Bonus, error) {
	var b Bonus
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "bonus")
	}
	return &b, nil
}

func (s *Store) TransitionBonus(ctx context.Context, id string, from []string, fields map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Bonus{}).Where("id = ? AND status IN ?", id, from).Updates(fields)
	return res.RowsAffected == 1, res.Error
}

func (s *Store) ListBonuses(ctx context.Context, employeeID, status string, limit, offset int) ([]Bonus, int64, error) {
	q := s.db.WithContext(ctx).Model(&Bonus{})
	if employeeID != "" {
		q = q.Where("employee_id = ?", employeeID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Bonus
	err := db.Paginate(q.Order("award_date DESC").Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

// BonusesBetween returns approved or paid bonuses awarded in [from, to).
func (s *Store) BonusesBetween(ctx context.Context, employeeID string, from, to time.Time) ([]Bonus, error) {
	var out []Bonus
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND status IN ? AND award_date >= ? AND award_date < ?",
			employeeID, []string{BonusApproved, BonusPaid}, from, to).
		Order("award_date").Find(&out).Error
	return out, err
}

func (s *Store) CreateDeduction(ctx context.Context, d *Deduction) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(d).Error, "deduction")
}

func (s *Store) GetDeduction(ctx context.Context, id string) (*Deduction, error) {
	var d Deduction
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "deduction")
	}
	return &d, nil
}

func (s *Store) DeleteDeduction(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Deduction{}, "id = ?", id).Error
}

func (s *Store) ListDeductions(ctx context.Context, employeeID string) ([]Deduction, error) {
	var out []Deduction
	err := s.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("start_date DESC").Find(&out).Error
	return out, err
}

// DeductionsStartingBefore returns deductions that began before to and had
// not ended before from.
func (s *Store) DeductionsStartingBefore(ctx context.Context, employeeID string, from, to time.Time) ([]Deduction, error) {
	var out []Deduction
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND start_date < ? AND (end_date IS NULL OR end_date >= ?)", employeeID, to, from).
		Order("start_date").Find(&out).Error
	return out, err
}

// PayrollTotals sums current salaries of employed staff by department.
func (s *Store) PayrollTotals(ctx context.Context) ([]DepartmentPayroll, error) {
	var out []DepartmentPayroll
	err := s.db.WithContext(ctx).Model(&core.Employee{}).
		Select("COALESCE(department_id, '') AS department_id, COUNT(*) AS headcount, COALESCE(SUM(salary), 0) AS annual_salary").
		Where("status <> ?", core.StatusTerminated).
		Group("department_id").
		Order("department_id").
		Scan(&out).Error
	return out, err
}

type DepartmentPayroll struct {
	DepartmentID string  `json:"departmentId"`
	Headcount    int64   `json:"headcount"`
	AnnualSalary float64 `json:"annualSalary"`
}
