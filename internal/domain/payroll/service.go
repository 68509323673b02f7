package payroll

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/core"
	"hrms/internal/platform/events"
)

// Directory resolves employees for payroll rules.
type Directory interface {
	Lookup(ctx context.Context, id string) (*core.Employee, error)
}

type Service struct {
	store     *Store
	directory Directory
	events    events.Publisher
	audit     audit.Recorder
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store *Store, directory Directory, publisher events.Publisher, recorder audit.Recorder, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:     store,
		directory: directory,
		events:    publisher,
		audit:     recorder,
		log:       log.Named("payroll"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// authorize lets HR and the employee read pay data.
func authorize(actor access.Actor, employeeID string) error {
	if actor.IsHR() || actor.IsEmployee(employeeID) {
		return nil
	}
	return apperr.Forbidden("not allowed to access this employee's pay data")
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func validateGrade(in PayGradeInput, requireCode bool) error {
	var fields []apperr.FieldError
	if requireCode && strings.TrimSpace(in.Code) == "" {
		fields = append(fields, apperr.FieldError{Field: "code", Reason: "is required"})
	}
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Reason: "is required"})
	}
	if in.MinSalary < 0 {
		fields = append(fields, apperr.FieldError{Field: "minSalary", Reason: "must not be negative"})
	}
	if in.MinSalary > in.MaxSalary {
		fields = append(fields, apperr.FieldError{Field: "maxSalary", Reason: "must be greater than or equal to minSalary"})
	}
	if c := normalizeCurrency(in.Currency); len(c) != 3 {
		fields = append(fields, apperr.FieldError{Field: "currency", Reason: "must be a 3 letter ISO code"})
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}

func (s *Service) CreatePayGrade(ctx context.Context, actor access.Actor, in PayGradeInput) (*PayGrade, error) {
	if err := validateGrade(in, true); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	taken, err := s.store.PayGradeCodeTaken(ctx, code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("pay_grade_code_taken", "pay grade code already exists")
	}
	g := &PayGrade{
		Code:      code,
		Name:      strings.TrimSpace(in.Name),
		MinSalary: in.MinSalary,
		MaxSalary: in.MaxSalary,
		Currency:  normalizeCurrency(in.Currency),
	}
	if err := s.store.CreatePayGrade(ctx, g); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "payroll.pay_grade.create", "pay_grade", g.ID, nil, g)
	return g, nil
}

func (s *Service) ListPayGrades(ctx context.Context) ([]PayGrade, error) {
	return s.store.ListPayGrades(ctx)
}

func (s *Service) GetPayGrade(ctx context.Context, id string) (*PayGrade, error) {
	return s.store.GetPayGrade(ctx, id)
}

func (s *Service) UpdatePayGrade(ctx context.Context, actor access.Actor, id string, in PayGradeInput) (*PayGrade, error) {
	g, err := s.store.GetPayGrade(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateGrade(in, false); err != nil {
		return nil, err
	}
	before := *g
	if code := strings.ToUpper(strings.TrimSpace(in.Code)); code != "" && code != g.Code {
		taken, err := s.store.PayGradeCodeTaken(ctx, code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("pay_grade_code_taken", "pay grade code already exists")
		}
		g.Code = code
	}
	g.Name = strings.TrimSpace(in.Name)
	g.MinSalary = in.MinSalary
	g.MaxSalary = in.MaxSalary
	g.Currency = normalizeCurrency(in.Currency)
	if err := s.store.SavePayGrade(ctx, g); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "payroll.pay_grade.update", "pay_grade", id, before, g)
	return g, nil
}

func (s *Service) DeletePayGrade(ctx context.Context, actor access.Actor, id string) error {
	g, err := s.store.GetPayGrade(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.store.CountGradeAssignments(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("pay_grade_in_use", "pay grade is assigned to employees")
	}
	if err := s.store.DeletePayGrade(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "payroll.pay_grade.delete", "pay_grade", id, g, nil)
	return nil
}

// ChangeSalary records a new salary and makes it the employee's current one.
func (s *Service) ChangeSalary(ctx context.Context, actor access.Actor, employeeID string, in SalaryChange) (*SalaryHistory, error) {
	if in.Amount <= 0 {
		return nil, apperr.Validation("amount", "must be greater than zero")
	}
	if in.EffectiveDate.IsZero() {
		in.EffectiveDate = s.now()
	}
	effective := dayOf(in.EffectiveDate)
	emp, err := s.directory.Lookup(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp.Status == core.StatusTerminated {
		return nil, apperr.InvalidState("employee_terminated", "employee is terminated")
	}
	currency := normalizeCurrency(in.Currency)
	if emp.PayGradeID != nil {
		grade, err := s.store.GetPayGrade(ctx, *emp.PayGradeID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		if grade != nil {
			if in.Amount < grade.MinSalary || in.Amount > grade.MaxSalary {
				return nil, apperr.Validation("amount", fmt.Sprintf("must be within pay grade %s range %.2f-%.2f", grade.Code, grade.MinSalary, grade.MaxSalary))
			}
			if strings.TrimSpace(in.Currency) == "" {
				currency = grade.Currency
			}
		}
	}

	var previous *float64
	h := &SalaryHistory{
		EmployeeID:    employeeID,
		Amount:        in.Amount,
		Currency:      currency,
		EffectiveDate: effective,
		Reason:        strings.TrimSpace(in.Reason),
		ChangedBy:     actor.UserID,
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		latest, err := st.LatestSalary(ctx, employeeID, nil)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if latest != nil {
			if effective.Before(latest.EffectiveDate) {
				return apperr.Validation("effectiveDate", "must not be before the latest salary change on "+latest.EffectiveDate.Format("2006-01-02"))
			}
			previous = &latest.Amount
		} else if emp.Salary != nil && *emp.Salary > 0 && dayOf(emp.HireDate).Before(effective) {
			// keep the salary the employee was hired on so earlier payslips still resolve
			opening := &SalaryHistory{
				EmployeeID:    employeeID,
				Amount:        *emp.Salary,
				Currency:      currency,
				EffectiveDate: dayOf(emp.HireDate),
				Reason:        "opening salary",
				ChangedBy:     actor.UserID,
			}
			if err := st.CreateSalaryHistory(ctx, opening); err != nil {
				return err
			}
			previous = emp.Salary
		}
		if err := st.CreateSalaryHistory(ctx, h); err != nil {
			return err
		}
		return st.SetEmployeeSalary(ctx, employeeID, in.Amount)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "payroll.salary.change", "employee", employeeID,
		map[string]any{"salary": emp.Salary}, map[string]any{"salary": in.Amount, "effectiveDate": effective})
	s.events.Publish(ctx, events.NewEvent(events.SalaryChanged, employeeID, actor.UserID, map[string]any{
		"employeeId":     employeeID,
		"previousAmount": previous,
		"amount":         in.Amount,
		"currency":       currency,
		"effectiveDate":  effective.Format("2006-01-02"),
	}))
	return h, nil
}

func (s *Service) SalaryHistory(ctx context.Context, actor access.Actor, employeeID string) ([]SalaryHistory, error) {
	if err := authorize(actor, employeeID); err != nil {
		return nil, err
	}
	return s.store.SalaryHistory(ctx, employeeID)
}

func (s *Service) CreateBonus(ctx context.Context, actor access.Actor, employeeID string, in BonusInput) (*Bonus, error) {
	var fields []apperr.FieldError
	if in.Amount <= 0 {
		fields = append(fields, apperr.FieldError{Field: "amount", Reason: "must be greater than zero"})
	}
	bonusType := strings.ToUpper(strings.TrimSpace(in.Type))
	if !slices.Contains(BonusTypes, bonusType) {
		fields = append(fields, apperr.FieldError{Field: "type", Reason: "must be one of " + strings.Join(BonusTypes, ", ")})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}
	emp, err := s.directory.Lookup(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp.Status == core.StatusTerminated {
		return nil, apperr.InvalidState("employee_terminated", "employee is terminated")
	}
	award := in.AwardDate
	if award.IsZero() {
		award = s.now()
	}
	b := &Bonus{
		EmployeeID: employeeID,
		Amount:     roundCents(in.Amount),
		Type:       bonusType,
		Reason:     strings.TrimSpace(in.Reason),
		AwardDate:  dayOf(award),
		Status:     BonusPending,
	}
	if err := s.store.CreateBonus(ctx, b); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "payroll.bonus.create", "bonus", b.ID, nil, b)
	return b, nil
}

func (s *Service) ApproveBonus(ctx context.Context, actor access.Actor, id string) (*Bonus, error) {
	b, err := s.store.GetBonus(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsEmployee(b.EmployeeID) {
		return nil, apperr.Forbidden("cannot approve your own bonus")
	}
	now := s.now()
	fields := map[string]any{"status": BonusApproved, "approved_at": now}
	if actor.UserID != "" {
		fields["approved_by"] = actor.UserID
	}
	return s.transitionBonus(ctx, actor, b, []string{BonusPending}, fields, "approve")
}

func (s *Service) MarkBonusPaid(ctx context.Context, actor access.Actor, id string) (*Bonus, error) {
	b, err := s.store.GetBonus(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transitionBonus(ctx, actor, b, []string{BonusApproved}, map[string]any{"status": BonusPaid}, "pay")
}

func (s *Service) CancelBonus(ctx context.Context, actor access.Actor, id string) (*Bonus, error) {
	b, err := s.store.GetBonus(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transitionBonus(ctx, actor, b, []string{BonusPending, BonusApproved}, map[string]any{"status": BonusCancelled}, "cancel")
}

func (s *Service) transitionBonus(ctx context.Context, actor access.Actor, b *Bonus, from []string, fields map[string]any, verb string) (*Bonus, error) {
	if !slices.Contains(from, b.Status) {
		return nil, apperr.InvalidState("invalid_bonus_state", fmt.Sprintf("cannot %s a bonus that is %s", verb, strings.ToLower(b.Status)))
	}
	ok, err := s.store.TransitionBonus(ctx, b.ID, from, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("invalid_bonus_state", "bonus changed concurrently")
	}
	after, err := s.store.GetBonus(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "payroll.bonus."+verb, "bonus", b.ID, b, after)
	return after, nil
}

func (s *Service) ListBonuses(ctx context.Context, actor access.Actor, employeeID, status string, limit, offset int) ([]Bonus, int64, error) {
	if employeeID == "" && !actor.IsHR() {
		employeeID = actor.EmployeeID
		if employeeID == "" {
			return []Bonus{}, 0, nil
		}
	}
	if employeeID != "" {
		if err := authorize(actor, employeeID); err != nil {
			return nil, 0, err
		}
	}
	return s.store.ListBonuses(ctx, employeeID, strings.ToUpper(status), limit, offset)
}

func (s *Service) CreateDeduction(ctx context.Context, actor access.Actor, employeeID string, in DeductionInput) (*Deduction, error) {
	var fields []apperr.FieldError
	if in.Amount <= 0 {
		fields = append(fields, apperr.FieldError{Field: "amount", Reason: "must be greater than zero"})
	}
	dType := strings.ToUpper(strings.TrimSpace(in.Type))
	if !slices.Contains(DeductionTypes, dType) {
		fields = append(fields, apperr.FieldError{Field: "type", Reason: "must be one of " + strings.Join(DeductionTypes, ", ")})
	}
	if in.StartDate.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "startDate", Reason: "is required"})
	}
	if in.EndDate != nil && !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		fields = append(fields, apperr.FieldError{Field: "endDate", Reason: "must not be before startDate"})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}
	if _, err := s.directory.Lookup(ctx, employeeID); err != nil {
		return nil, err
	}
	d := &Deduction{
		EmployeeID:  employeeID,
		Amount:      roundCents(in.Amount),
		Type:        dType,
		Description: strings.TrimSpace(in.Description),
		StartDate:   dayOf(in.StartDate),
		Recurring:   in.Recurring,
	}
	if in.EndDate != nil {
		end := dayOf(*in.EndDate)
		d.EndDate = &end
	}
	if err := s.store.CreateDeduction(ctx, d); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "payroll.deduction.create", "deduction", d.ID, nil, d)
	return d, nil
}

func (s *Service) DeleteDeduction(ctx context.Context, actor access.Actor, id string) error {
	d, err := s.store.GetDeduction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDeduction(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "payroll.deduction.delete", "deduction", id, d, nil)
	return nil
}

func (s *Service) ListDeductions(ctx context.Context, actor access.Actor, employeeID string) ([]Deduction, error) {
	if err := authorize(actor, employeeID); err != nil {
		return nil, err
	}
	return s.store.ListDeductions(ctx, employeeID)
}

// Payslip computes one month of pay: a twelfth of the salary in effect at
// month end, approved bonuses awarded in the month and deductions active in it.
func (s *Service) Payslip(ctx context.Context, actor access.Actor, employeeID string, year, month int) (*Payslip, error) {
	if month < 1 || month > 12 {
		return nil, apperr.Validation("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return nil, apperr.Validation("year", "must be a valid calendar year")
	}
	if err := authorize(actor, employeeID); err != nil {
		return nil, err
	}
	emp, err := s.directory.Lookup(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	start, next := monthRange(year, month)
	lastDay := next.AddDate(0, 0, -1)

	annual, currency := 0.0, DefaultCurrency
	latest, err := s.store.LatestSalary(ctx, employeeID, &lastDay)
	switch {
	case err == nil:
		annual, currency = latest.Amount, latest.Currency
	case apperr.Is(err, apperr.KindNotFound):
		// the current salary only applies when no recorded change postdates the month
		_, anyErr := s.store.LatestSalary(ctx, employeeID, nil)
		switch {
		case apperr.Is(anyErr, apperr.KindNotFound):
			if emp.Salary != nil {
				annual = *emp.Salary
			}
		case anyErr != nil:
			return nil, anyErr
		}
	default:
		return nil, err
	}
	if emp.HireDate.After(lastDay) || (emp.TerminationDate != nil && emp.TerminationDate.Before(start)) {
		annual = 0
	}

	bonuses, err := s.store.BonusesBetween(ctx, employeeID, start, next)
	if err != nil {
		return nil, err
	}
	deductions, err := s.store.DeductionsStartingBefore(ctx, employeeID, start, next)
	if err != nil {
		return nil, err
	}
	var lines []InputLine
	for _, b := range bonuses {
		lines = append(lines, InputLine{Type: LineEarning, Label: strings.ToLower(b.Type) + " bonus", Amount: b.Amount})
	}
	for _, d := range deductions {
		if !deductionApplies(d, start, next) {
			continue
		}
		label := strings.ToLower(d.Type)
		if d.Description != "" {
			label += ": " + d.Description
		}
		lines = append(lines, InputLine{Type: LineDeduction, Label: label, Amount: d.Amount})
	}

	base := MonthlyPay(annual)
	gross, totalDeductions, net := ComputePayroll(base, lines)
	if lines == nil {
		lines = []InputLine{}
	}
	return &Payslip{
		EmployeeID:      emp.ID,
		EmployeeCode:    emp.EmployeeCode,
		EmployeeName:    emp.FullName(),
		Year:            year,
		Month:           month,
		Currency:        currency,
		AnnualSalary:    annual,
		BasePay:         base,
		Lines:           lines,
		Gross:           gross,
		TotalDeductions: totalDeductions,
		Net:             net,
		GeneratedAt:     s.now(),
	}, nil
}

func (s *Service) PayrollTotals(ctx context.Context) ([]DepartmentPayroll, error) {
	return s.store.PayrollTotals(ctx)
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
