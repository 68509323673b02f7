package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"hrms/internal/domain/attendance"
	"hrms/internal/domain/core"
	"hrms/internal/domain/leave"
	"hrms/internal/domain/payroll"
	"hrms/internal/domain/performance"
	"hrms/internal/platform/db"
)

// Store runs the read-only aggregate queries behind reports and dashboards,
// plus persistence of generated reports.
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) CreateReport(ctx context.Context, r *Report) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(r).Error, "report")
}

func (s *Store) GetReport(ctx context.Context, id string) (*Report, error) {
	var r Report
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "report")
	}
	return &r, nil
}

// ListReports omits results; callers fetch one report to see its rows.
func (s *Store) ListReports(ctx context.Context, reportType string, limit, offset int) ([]Report, int64, error) {
	q := s.db.WithContext(ctx).Model(&Report{})
	if reportType != "" {
		q = q.Where("type = ?", reportType)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Report
	err := db.Paginate(q.Omit("result").Order("created_at DESC").Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

type headcountRow struct {
	Department string
	Status     string
	Headcount  int64
}

func (s *Store) Headcount(ctx context.Context, departmentID string) ([]headcountRow, error) {
	q := s.db.WithContext(ctx).Table("employees AS e").
		Select("COALESCE(d.name, 'Unassigned') AS department, e.status AS status, COUNT(*) AS headcount").
		Joins("LEFT JOIN departments d ON d.id = e.department_id").
		Where("e.deleted_at IS NULL")
	if departmentID != "" {
		q = q.Where("e.department_id = ?", departmentID)
	}
	var rows []headcountRow
	err := q.Group("d.name, e.status").Order("department, status").Scan(&rows).Error
	return rows, err
}

type leaveUsageRow struct {
	EmployeeCode string
	FirstName    string
	LastName     string
	LeaveType    string
	Allocated    float64
	CarriedOver  float64
	Used         float64
	Pending      float64
}

func (s *Store) LeaveUsage(ctx context.Context, year int, departmentID string) ([]leaveUsageRow, error) {
	q := s.db.WithContext(ctx).Table("leave_balances AS b").
		Select("e.employee_code, e.first_name, e.last_name, t.code AS leave_type, b.allocated, b.carried_over, b.used, b.pending").
		Joins("JOIN employees e ON e.id = b.employee_id").
		Joins("JOIN leave_types t ON t.id = b.leave_type_id").
		Where("b.year = ? AND e.deleted_at IS NULL", year)
	if departmentID != "" {
		q = q.Where("e.department_id = ?", departmentID)
	}
	var rows []leaveUsageRow
	err := q.Order("e.employee_code, t.code").Scan(&rows).Error
	return rows, err
}

type attendanceRow struct {
	EmployeeCode string
	FirstName    string
	LastName     string
	DaysWorked   int64
	Minutes      int64
	AutoClosed   int64
	Corrected    int64
}

func (s *Store) Attendance(ctx context.Context, from, to time.Time, departmentID string) ([]attendanceRow, error) {
	q := s.db.WithContext(ctx).Table("time_attendance AS a").
		Select(`e.employee_code, e.first_name, e.last_name,
			COUNT(DISTINCT a.work_date) AS days_worked,
			COALESCE(SUM(a.worked_minutes), 0) AS minutes,
			SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END) AS auto_closed,
			SUM(CASE WHEN a.status = ? THEN 1 ELSE 0 END) AS corrected`,
			attendance.StatusAutoClosed, attendance.StatusCorrected).
		Joins("JOIN employees e ON e.id = a.employee_id").
		Where("a.work_date >= ? AND a.work_date <= ? AND a.status <> ?", from, to, attendance.StatusOpen)
	if departmentID != "" {
		q = q.Where("e.department_id = ?", departmentID)
	}
	var rows []attendanceRow
	err := q.Group("e.id, e.employee_code, e.first_name, e.last_name").Order("e.employee_code").Scan(&rows).Error
	return rows, err
}

type payrollRow struct {
	Department   string
	Headcount    int64
	AnnualSalary float64
}

func (s *Store) PayrollByDepartment(ctx context.Context, departmentID string) ([]payrollRow, error) {
	q := s.db.WithContext(ctx).Table("employees AS e").
		Select("COALESCE(d.name, 'Unassigned') AS department, COUNT(*) AS headcount, COALESCE(SUM(e.salary), 0) AS annual_salary").
		Joins("LEFT JOIN departments d ON d.id = e.department_id").
		Where("e.deleted_at IS NULL AND e.status <> ?", core.StatusTerminated)
	if departmentID != "" {
		q = q.Where("e.department_id = ?", departmentID)
	}
	var rows []payrollRow
	err := q.Group("d.name").Order("department").Scan(&rows).Error
	return rows, err
}

// BonusTotal sums approved and paid bonuses awarded in [from, to).
func (s *Store) BonusTotal(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&payroll.Bonus{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status IN ? AND award_date >= ? AND award_date < ?", []string{payroll.BonusApproved, payroll.BonusPaid}, from, to).
		Scan(&total).Error
	return total, err
}

type countRow struct {
	Label string
	Count int64
}

func (s *Store) EmployeesByStatus(ctx context.Context) ([]countRow, error) {
	var rows []countRow
	err := s.db.WithContext(ctx).Table("employees").
		Select("status AS label, COUNT(*) AS count").
		Where("deleted_at IS NULL").
		Group("status").Order("status").Scan(&rows).Error
	return rows, err
}

func (s *Store) EmployeesByDepartment(ctx context.Context) ([]countRow, error) {
	var rows []countRow
	err := s.db.WithContext(ctx).Table("employees AS e").
		Select("COALESCE(d.name, 'Unassigned') AS label, COUNT(*) AS count").
		Joins("LEFT JOIN departments d ON d.id = e.department_id").
		Where("e.deleted_at IS NULL AND e.status <> ?", core.StatusTerminated).
		Group("d.name").Order("label").Scan(&rows).Error
	return rows, err
}

func (s *Store) count(ctx context.Context, table, query string, args ...any) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table(table).Where(query, args...).Count(&n).Error
	return n, err
}

func (s *Store) PendingLeave(ctx context.Context) (int64, error) {
	return s.count(ctx, "leave_requests", "status = ?", leave.StatusPending)
}

func (s *Store) PendingCorrections(ctx context.Context) (int64, error) {
	return s.count(ctx, "attendance_corrections", "status = ?", attendance.CorrectionPending)
}

func (s *Store) PendingBonuses(ctx context.Context) (int64, error) {
	return s.count(ctx, "bonuses", "status = ?", payroll.BonusPending)
}

func (s *Store) ExpiringDocuments(ctx context.Context, from, to time.Time) (int64, error) {
	return s.count(ctx, "documents", "deleted_at IS NULL AND expires_at >= ? AND expires_at <= ?", from, to)
}

func (s *Store) TeamSize(ctx context.Context, managerID string) (int64, error) {
	return s.count(ctx, "employees", "deleted_at IS NULL AND manager_id = ? AND status <> ?", managerID, core.StatusTerminated)
}

func (s *Store) TeamPendingLeave(ctx context.Context, managerID string) (int64, error) {
	return s.count(ctx, "leave_requests", "status = ? AND employee_id IN (?)",
		leave.StatusPending, s.db.Table("employees").Select("id").Where("manager_id = ?", managerID))
}

func (s *Store) TeamPendingCorrections(ctx context.Context, managerID string) (int64, error) {
	return s.count(ctx, "attendance_corrections", "status = ? AND employee_id IN (?)",
		attendance.CorrectionPending, s.db.Table("employees").Select("id").Where("manager_id = ?", managerID))
}

func (s *Store) DraftReviews(ctx context.Context, reviewerID string) (int64, error) {
	return s.count(ctx, "performance_reviews", "reviewer_id = ? AND status = ?", reviewerID, performance.ReviewDraft)
}

func (s *Store) LeaveRemaining(ctx context.Context, employeeID string, year int) (float64, error) {
	var remaining float64
	err := s.db.WithContext(ctx).Model(&leave.LeaveBalance{}).
		Select("COALESCE(SUM(allocated + carried_over - used - pending), 0)").
		Where("employee_id = ? AND year = ?", employeeID, year).
		Scan(&remaining).Error
	return remaining, err
}

func (s *Store) EmployeePendingLeave(ctx context.Context, employeeID string) (int64, error) {
	return s.count(ctx, "leave_requests", "employee_id = ? AND status = ?", employeeID, leave.StatusPending)
}

func (s *Store) ActiveGoals(ctx context.Context, employeeID string) (int64, error) {
	return s.count(ctx, "goals", "employee_id = ? AND status IN ?", employeeID,
		[]string{performance.GoalNotStarted, performance.GoalInProgress})
}

func (s *Store) UnreadNotifications(ctx context.Context, userID string) (int64, error) {
	return s.count(ctx, "notifications", "user_id = ? AND read_at IS NULL", userID)
}
