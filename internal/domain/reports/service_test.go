package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/attendance"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/core"
	"hrms/internal/domain/documents"
	"hrms/internal/domain/leave"
	"hrms/internal/domain/notifications"
	"hrms/internal/domain/payroll"
	"hrms/internal/domain/performance"
	"hrms/internal/platform/crypto"
	"hrms/internal/platform/db/dbtest"
	"hrms/internal/platform/events"
)

var hr = access.Actor{UserID: "hr-user", Roles: []string{access.RoleHR}}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	svc     *Service
	db      *gorm.DB
	manager *core.Employee
	worker  *core.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	var models []any
	for _, set := range [][]any{core.Models, leave.Models, attendance.Models, payroll.Models, performance.Models,
		documents.Models, notifications.Models, Models} {
		models = append(models, set...)
	}
	gdb := dbtest.Open(t, models...)
	sealer, err := crypto.New("")
	require.NoError(t, err)
	coreSvc := core.NewService(core.NewStore(gdb), sealer, events.Noop{}, audit.Nop{}, nil, zap.NewNop())

	eng, err := coreSvc.CreateDepartment(ctx, hr, core.DepartmentInput{Code: "ENG", Name: "Engineering"})
	require.NoError(t, err)
	mgrSalary, workerSalary := 60000.0, 48000.0
	mgr, err := coreSvc.Create(ctx, hr, core.EmployeeInput{
		FirstName: "Mia", LastName: "Manager", Email: "mia@example.com", HireDate: day("2019-01-01"),
		DepartmentID: &eng.ID, Salary: &mgrSalary,
	})
	require.NoError(t, err)
	worker, err := coreSvc.Create(ctx, hr, core.EmployeeInput{
		FirstName: "Will", LastName: "Worker", Email: "will@example.com", HireDate: day("2020-01-01"),
		DepartmentID: &eng.ID, ManagerID: &mgr.ID, Salary: &workerSalary,
	})
	require.NoError(t, err)
	_, err = coreSvc.Create(ctx, hr, core.EmployeeInput{FirstName: "Fay", LastName: "Floater", Email: "fay@example.com", HireDate: day("2021-01-01")})
	require.NoError(t, err)

	svc := NewService(NewStore(gdb), audit.Nop{}, zap.NewNop())
	svc.now = func() time.Time { return day("2025-03-15") }
	return &fixture{svc: svc, db: gdb, manager: mgr, worker: worker}
}

func TestGenerateHeadcount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Generate(ctx, hr, "headcount", Params{})
	require.NoError(t, err)
	assert.Equal(t, TypeHeadcount, r.Type)
	assert.Equal(t, []string{"department", "status", "headcount"}, r.Result.Columns)
	require.Len(t, r.Result.Rows, 2)
	assert.Equal(t, "Engineering", r.Result.Rows[0][0])
	assert.EqualValues(t, 2, r.Result.Rows[0][2])
	assert.Equal(t, "Unassigned", r.Result.Rows[1][0])
	assert.EqualValues(t, 3, r.Result.Totals["headcount"])
	assert.Equal(t, 2, r.RowCount)

	stored, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RowCount)
	assert.Len(t, stored.Result.Rows, 2)

	_, err = f.svc.Generate(ctx, hr, "turnover", Params{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGeneratePayrollAndLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&payroll.Bonus{EmployeeID: f.worker.ID, Amount: 400, Type: "SPOT", AwardDate: day("2025-03-02"), Status: payroll.BonusApproved}).Error)
	require.NoError(t, f.db.Create(&payroll.Bonus{EmployeeID: f.worker.ID, Amount: 900, Type: "SPOT", AwardDate: day("2025-03-03"), Status: payroll.BonusPending}).Error)

	r, err := f.svc.Generate(ctx, hr, TypePayroll, Params{})
	require.NoError(t, err)
	assert.Equal(t, 2025, r.Parameters.Year)
	assert.Equal(t, 3, r.Parameters.Month)
	require.Len(t, r.Result.Rows, 2)
	assert.Equal(t, 108000.0, r.Result.Rows[0][2])
	assert.Equal(t, 9000.0, r.Result.Rows[0][3])
	assert.Equal(t, 400.0, r.Result.Totals["bonuses"])

	_, err = f.svc.Generate(ctx, hr, TypePayroll, Params{Month: 14})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	annual := &leave.LeaveType{Code: "ANNUAL", Name: "Annual", DefaultDays: 20, Paid: true, Active: true}
	require.NoError(t, f.db.Create(annual).Error)
	require.NoError(t, f.db.Create(&leave.LeaveBalance{EmployeeID: f.worker.ID, LeaveTypeID: annual.ID, Year: 2025, Allocated: 20, Used: 3, Pending: 2}).Error)

	usage, err := f.svc.Generate(ctx, hr, TypeLeaveUsage, Params{})
	require.NoError(t, err)
	require.Len(t, usage.Result.Rows, 1)
	row := usage.Result.Rows[0]
	assert.Equal(t, "Will Worker", row[1])
	assert.Equal(t, "ANNUAL", row[2])
	assert.Equal(t, 15.0, row[7])

	list, total, err := f.svc.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)
}

func TestGenerateAttendanceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := day("2025-03-10").Add(9 * time.Hour)
	out := in.Add(8 * time.Hour)
	require.NoError(t, f.db.Create(&attendance.Record{
		EmployeeID: f.worker.ID, WorkDate: day("2025-03-10"), ClockIn: in, ClockOut: &out,
		WorkedMinutes: 480, Status: attendance.StatusClosed,
	}).Error)

	r, err := f.svc.Generate(ctx, hr, TypeAttendance, Params{})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-13", r.Parameters.From)
	assert.Equal(t, "2025-03-15", r.Parameters.To)
	require.Len(t, r.Result.Rows, 1)
	assert.Equal(t, 8.0, r.Result.Rows[0][3])

	_, err = f.svc.Generate(ctx, hr, TypeAttendance, Params{From: "2025-03-10", To: "2025-03-01"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.Generate(ctx, hr, TypeAttendance, Params{From: "10/03/2025"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDashboardSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&performance.Goal{EmployeeID: f.worker.ID, Title: "Ship it", Status: performance.GoalInProgress}).Error)
	require.NoError(t, f.db.Create(&performance.Goal{EmployeeID: f.worker.ID, Title: "Done", Status: performance.GoalCompleted, Progress: 100}).Error)

	worker := access.Actor{UserID: "u-will", EmployeeID: f.worker.ID, Roles: []string{access.RoleUser}}
	d, err := f.svc.Dashboard(ctx, worker)
	require.NoError(t, err)
	require.NotNil(t, d.Employee)
	assert.EqualValues(t, 1, d.Employee.ActiveGoals)
	assert.Nil(t, d.Manager)
	assert.Nil(t, d.HR)

	manager := access.Actor{UserID: "u-mia", EmployeeID: f.manager.ID, Roles: []string{access.RoleUser, access.RoleManager}}
	d, err = f.svc.Dashboard(ctx, manager)
	require.NoError(t, err)
	require.NotNil(t, d.Manager)
	assert.EqualValues(t, 1, d.Manager.TeamSize)

	d, err = f.svc.Dashboard(ctx, hr)
	require.NoError(t, err)
	assert.Nil(t, d.Employee)
	require.NotNil(t, d.HR)
	assert.EqualValues(t, 3, d.HR.Headcount)
	assert.EqualValues(t, 2, d.HR.ByDepartment["Engineering"])
	assert.EqualValues(t, 3, d.HR.ByStatus[core.StatusActive])
}
