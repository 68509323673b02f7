// Package reports generates and stores tabular HR reports and serves the
// role dashboards.
package reports

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
)

const defaultAttendanceWindowDays = 30

type Service struct {
	store *Store
	audit audit.Recorder
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store *Store, recorder audit.Recorder, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store: store,
		audit: recorder,
		log:   log.Named("reports"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func parseDay(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperr.Validation(field, "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

// normalize fills defaults so that a stored report records exactly what it covers.
func (s *Service) normalize(reportType string, p Params) (Params, error) {
	now := s.now()
	switch reportType {
	case TypeLeaveUsage:
		if p.Year == 0 {
			p.Year = now.Year()
		}
		if p.Year < 2000 || p.Year > 2100 {
			return p, apperr.Validation("year", "must be a valid calendar year")
		}
	case TypeAttendance:
		from, err := parseDay("from", p.From)
		if err != nil {
			return p, err
		}
		to, err := parseDay("to", p.To)
		if err != nil {
			return p, err
		}
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if to != nil {
			end = *to
		}
		start := end.AddDate(0, 0, -defaultAttendanceWindowDays)
		if from != nil {
			start = *from
		}
		if end.Before(start) {
			return p, apperr.Validation("to", "must not be before from")
		}
		p.From, p.To = start.Format("2006-01-02"), end.Format("2006-01-02")
	case TypePayroll:
		if p.Year == 0 {
			p.Year = now.Year()
		}
		if p.Month == 0 {
			p.Month = int(now.Month())
		}
		if p.Month < 1 || p.Month > 12 {
			return p, apperr.Validation("month", "must be between 1 and 12")
		}
	}
	return p, nil
}

// Generate computes a report and stores it.
func (s *Service) Generate(ctx context.Context, actor access.Actor, reportType string, params Params) (*Report, error) {
	reportType = strings.ToUpper(strings.TrimSpace(reportType))
	if !slices.Contains(Types, reportType) {
		return nil, apperr.Validation("type", "must be one of "+strings.Join(Types, ", "))
	}
	params, err := s.normalize(reportType, params)
	if err != nil {
		return nil, err
	}
	var result Result
	switch reportType {
	case TypeHeadcount:
		result, err = s.headcount(ctx, params)
	case TypeLeaveUsage:
		result, err = s.leaveUsage(ctx, params)
	case TypeAttendance:
		result, err = s.attendance(ctx, params)
	case TypePayroll:
		result, err = s.payroll(ctx, params)
	}
	if err != nil {
		return nil, err
	}
	r := &Report{Type: reportType, Parameters: params, Result: result, RowCount: len(result.Rows), GeneratedBy: actor.UserID}
	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "reports.generate", "report", r.ID, nil, map[string]any{"type": reportType, "parameters": params})
	s.log.Info("report generated", zap.String("type", reportType), zap.Int("rows", r.RowCount))
	return r, nil
}

func (s *Service) headcount(ctx context.Context, p Params) (Result, error) {
	rows, err := s.store.Headcount(ctx, p.DepartmentID)
	if err != nil {
		return Result{}, err
	}
	res := Result{Columns: []string{"department", "status", "headcount"}, Rows: [][]any{}}
	var total int64
	for _, r := range rows {
		res.Rows = append(res.Rows, []any{r.Department, r.Status, r.Headcount})
		total += r.Headcount
	}
	res.Totals = map[string]any{"headcount": total}
	return res, nil
}

func (s *Service) leaveUsage(ctx context.Context, p Params) (Result, error) {
	rows, err := s.store.LeaveUsage(ctx, p.Year, p.DepartmentID)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Columns: []string{"employeeCode", "employeeName", "leaveType", "allocated", "carriedOver", "used", "pending", "remaining"},
		Rows:    [][]any{},
	}
	var used, pending float64
	for _, r := range rows {
		remaining := r.Allocated + r.CarriedOver - r.Used - r.Pending
		res.Rows = append(res.Rows, []any{r.EmployeeCode, r.FirstName + " " + r.LastName, r.LeaveType,
			r.Allocated, r.CarriedOver, r.Used, r.Pending, remaining})
		used += r.Used
		pending += r.Pending
	}
	res.Totals = map[string]any{"used": used, "pending": pending}
	return res, nil
}

func (s *Service) attendance(ctx context.Context, p Params) (Result, error) {
	from, _ := time.Parse("2006-01-02", p.From)
	to, _ := time.Parse("2006-01-02", p.To)
	rows, err := s.store.Attendance(ctx, from, to, p.DepartmentID)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Columns: []string{"employeeCode", "employeeName", "daysWorked", "hoursWorked", "autoClosed", "corrected"},
		Rows:    [][]any{},
	}
	var minutes int64
	for _, r := range rows {
		res.Rows = append(res.Rows, []any{r.EmployeeCode, r.FirstName + " " + r.LastName, r.DaysWorked,
			hours(r.Minutes), r.AutoClosed, r.Corrected})
		minutes += r.Minutes
	}
	res.Totals = map[string]any{"hoursWorked": hours(minutes)}
	return res, nil
}

func hours(minutes int64) float64 {
	return float64(minutes*100/60) / 100
}

func (s *Service) payroll(ctx context.Context, p Params) (Result, error) {
	rows, err := s.store.PayrollByDepartment(ctx, p.DepartmentID)
	if err != nil {
		return Result{}, err
	}
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	bonuses, err := s.store.BonusTotal(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		return Result{}, err
	}
	res := Result{Columns: []string{"department", "headcount", "annualSalary", "monthlySalary"}, Rows: [][]any{}}
	var annual float64
	for _, r := range rows {
		res.Rows = append(res.Rows, []any{r.Department, r.Headcount, r.AnnualSalary, cents(r.AnnualSalary / 12)})
		annual += r.AnnualSalary
	}
	res.Totals = map[string]any{"annualSalary": annual, "monthlySalary": cents(annual / 12), "bonuses": bonuses}
	return res, nil
}

func cents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	return s.store.GetReport(ctx, id)
}

func (s *Service) List(ctx context.Context, reportType string, limit, offset int) ([]Report, int64, error) {
	reportType = strings.ToUpper(reportType)
	if reportType != "" && !slices.Contains(Types, reportType) {
		return nil, 0, apperr.Validation("type", "must be one of "+strings.Join(Types, ", "))
	}
	return s.store.ListReports(ctx, reportType, limit, offset)
}
