package payroll

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/core"
	"hrms/internal/platform/crypto"
	"hrms/internal/platform/db/dbtest"
	"hrms/internal/platform/events"
)

var hr = access.Actor{UserID: "hr-user", EmployeeID: "hr-employee", Roles: []string{access.RoleHR}}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	svc    *Service
	core   *core.Service
	worker *core.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.Open(t, append(append([]any{}, core.Models...), Models...)...)
	sealer, err := crypto.New("")
	require.NoError(t, err)
	coreSvc := core.NewService(core.NewStore(gdb), sealer, events.Noop{}, audit.Nop{}, nil, zap.NewNop())
	svc := NewService(NewStore(gdb), coreSvc, events.Noop{}, audit.Nop{}, zap.NewNop())
	svc.now = func() time.Time { return day("2025-03-15") }

	worker, err := coreSvc.Create(context.Background(), hr, core.EmployeeInput{
		FirstName: "Pat", LastName: "Payee", Email: "pat@example.com", HireDate: day("2020-01-01"),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, core: coreSvc, worker: worker}
}

func TestPayGrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePayGrade(ctx, hr, PayGradeInput{Code: "g1", Name: "Grade 1", MinSalary: 50000, MaxSalary: 40000})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	g, err := f.svc.CreatePayGrade(ctx, hr, PayGradeInput{Code: "g1", Name: "Grade 1", MinSalary: 40000, MaxSalary: 60000})
	require.NoError(t, err)
	assert.Equal(t, "G1", g.Code)
	assert.Equal(t, DefaultCurrency, g.Currency)

	_, err = f.svc.CreatePayGrade(ctx, hr, PayGradeInput{Code: "G1", Name: "Again", MinSalary: 1, MaxSalary: 2})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.core.Update(ctx, hr, f.worker.ID, core.EmployeeUpdate{PayGradeID: &g.ID})
	require.NoError(t, err)
	err = f.svc.DeletePayGrade(ctx, hr, g.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 90000})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 55000})
	require.NoError(t, err)
}

func TestChangeSalaryHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	first, err := f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 60000, EffectiveDate: day("2025-01-01"), Reason: "annual review"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, first.Currency)

	_, err = f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 65000, EffectiveDate: day("2024-12-01")})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "backdated change must be rejected")

	_, err = f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 72000, EffectiveDate: day("2025-04-01")})
	require.NoError(t, err)

	emp, err := f.core.Lookup(ctx, f.worker.ID)
	require.NoError(t, err)
	require.NotNil(t, emp.Salary)
	assert.Equal(t, 72000.0, *emp.Salary)

	history, err := f.svc.SalaryHistory(ctx, hr, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 72000.0, history[0].Amount)

	self := access.Actor{UserID: "u-pat", EmployeeID: f.worker.ID, Roles: []string{access.RoleUser}}
	_, err = f.svc.SalaryHistory(ctx, self, f.worker.ID)
	require.NoError(t, err)
	stranger := access.Actor{UserID: "u-x", EmployeeID: "someone-else", Roles: []string{access.RoleUser}}
	_, err = f.svc.SalaryHistory(ctx, stranger, f.worker.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestBonusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBonus(ctx, hr, f.worker.ID, BonusInput{Amount: 100, Type: "lottery"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	b, err := f.svc.CreateBonus(ctx, hr, f.worker.ID, BonusInput{Amount: 500, Type: "spot"})
	require.NoError(t, err)
	assert.Equal(t, BonusPending, b.Status)

	self := access.Actor{UserID: "u-pat", EmployeeID: f.worker.ID, Roles: []string{access.RoleHR}}
	_, err = f.svc.ApproveBonus(ctx, self, b.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.MarkBonusPaid(ctx, hr, b.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	approved, err := f.svc.ApproveBonus(ctx, hr, b.ID)
	require.NoError(t, err)
	assert.Equal(t, BonusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, hr.UserID, *approved.ApprovedBy)

	paid, err := f.svc.MarkBonusPaid(ctx, hr, b.ID)
	require.NoError(t, err)
	assert.Equal(t, BonusPaid, paid.Status)

	_, err = f.svc.CancelBonus(ctx, hr, b.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	list, total, err := f.svc.ListBonuses(ctx, hr, f.worker.ID, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestPayslip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 60000, EffectiveDate: day("2025-01-01")})
	require.NoError(t, err)
	_, err = f.svc.ChangeSalary(ctx, hr, f.worker.ID, SalaryChange{Amount: 72000, EffectiveDate: day("2025-04-01")})
	require.NoError(t, err)

	bonus, err := f.svc.CreateBonus(ctx, hr, f.worker.ID, BonusInput{Amount: 250, Type: "SPOT", AwardDate: day("2025-03-10")})
	require.NoError(t, err)
	_, err = f.svc.ApproveBonus(ctx, hr, bonus.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateBonus(ctx, hr, f.worker.ID, BonusInput{Amount: 999, Type: "SPOT", AwardDate: day("2025-03-11")})
	require.NoError(t, err)

	_, err = f.svc.CreateDeduction(ctx, hr, f.worker.ID, DeductionInput{Amount: 300, Type: "PENSION", StartDate: day("2025-01-01"), Recurring: true})
	require.NoError(t, err)
	_, err = f.svc.CreateDeduction(ctx, hr, f.worker.ID, DeductionInput{Amount: 50, Type: "LOAN", StartDate: day("2025-02-01")})
	require.NoError(t, err)

	slip, err := f.svc.Payslip(ctx, hr, f.worker.ID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 60000.0, slip.AnnualSalary)
	assert.Equal(t, 5000.0, slip.BasePay)
	assert.Equal(t, 5250.0, slip.Gross)
	assert.Equal(t, 300.0, slip.TotalDeductions)
	assert.Equal(t, 4950.0, slip.Net)
	assert.Len(t, slip.Lines, 2)

	april, err := f.svc.Payslip(ctx, hr, f.worker.ID, 2025, 4)
	require.NoError(t, err)
	assert.Equal(t, 6000.0, april.BasePay)
	assert.Equal(t, 5700.0, april.Net)

	_, err = f.svc.Payslip(ctx, hr, f.worker.ID, 2025, 13)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	var buf bytes.Buffer
	require.NoError(t, WritePayslipPDF(&buf, slip))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestPayslipUsesSalaryInEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hired := 48000.0
	emp, err := f.core.Create(ctx, hr, core.EmployeeInput{
		FirstName: "Sam", LastName: "Salaried", Email: "sam@example.com", HireDate: day("2024-06-01"), Salary: &hired,
	})
	require.NoError(t, err)

	_, err = f.svc.ChangeSalary(ctx, hr, emp.ID, SalaryChange{Amount: 60000, EffectiveDate: day("2025-04-01")})
	require.NoError(t, err)

	history, err := f.svc.SalaryHistory(ctx, hr, emp.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 48000.0, history[1].Amount)
	assert.Equal(t, day("2024-06-01"), history[1].EffectiveDate.UTC())

	march, err := f.svc.Payslip(ctx, hr, emp.ID, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, march.BasePay)
	april, err := f.svc.Payslip(ctx, hr, emp.ID, 2025, 4)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, april.BasePay)

	// a change recorded without an opening row must not leak into earlier months
	late := 90000.0
	other, err := f.core.Create(ctx, hr, core.EmployeeInput{
		FirstName: "Lee", LastName: "Later", Email: "lee@example.com", HireDate: day("2024-01-01"), Salary: &late,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.store.CreateSalaryHistory(ctx, &SalaryHistory{
		EmployeeID: other.ID, Amount: late, Currency: DefaultCurrency, EffectiveDate: day("2025-06-01"), ChangedBy: hr.UserID,
	}))
	before, err := f.svc.Payslip(ctx, hr, other.ID, 2025, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, before.BasePay)
}

func TestDeductions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	end := day("2025-01-01")
	_, err := f.svc.CreateDeduction(ctx, hr, f.worker.ID, DeductionInput{Amount: 10, Type: "TAX", StartDate: day("2025-02-01"), EndDate: &end})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	d, err := f.svc.CreateDeduction(ctx, hr, f.worker.ID, DeductionInput{Amount: 10, Type: "tax", StartDate: day("2025-02-01")})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteDeduction(ctx, hr, d.ID))

	list, err := f.svc.ListDeductions(ctx, hr, f.worker.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = f.svc.DeleteDeduction(ctx, hr, d.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
