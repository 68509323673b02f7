package leave

import (
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

type sentNotification struct {
	employeeID string
	kind       string
}

type notifierStub struct{ sent []sentNotification }

func (n *notifierStub) NotifyEmployee(_ context.Context, employeeID, kind string, _ map[string]any) {
	n.sent = append(n.sent, sentNotification{employeeID: employeeID, kind: kind})
}

type decisionCounter map[string]int

func (d decisionCounter) ObserveLeaveDecision(decision string) { d[decision]++ }

var hr = access.Actor{UserID: "hr-user", EmployeeID: "hr-employee", Roles: []string{access.RoleHR}}

type fixture struct {
	svc       *Service
	core      *core.Service
	notifier  *notifierStub
	decisions decisionCounter
	manager   *core.Employee
	worker    *core.Employee
	annual    *LeaveType
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	gdb := dbtest.Open(t, append(append([]any{}, core.Models...), Models...)...)
	sealer, err := crypto.New("")
	require.NoError(t, err)
	coreSvc := core.NewService(core.NewStore(gdb), sealer, events.Noop{}, audit.Nop{}, nil, zap.NewNop())
	notifier := &notifierStub{}
	decisions := decisionCounter{}
	svc := NewService(NewStore(gdb), coreSvc, events.Noop{}, audit.Nop{}, notifier, decisions, zap.NewNop())
	svc.now = func() time.Time { return day("2025-03-01") }

	mgr, err := coreSvc.Create(ctx, hr, core.EmployeeInput{FirstName: "Mia", LastName: "Manager", Email: "mia@example.com", HireDate: day("2019-01-01")})
	require.NoError(t, err)
	worker, err := coreSvc.Create(ctx, hr, core.EmployeeInput{FirstName: "Will", LastName: "Worker", Email: "will@example.com", HireDate: day("2020-01-01"), ManagerID: &mgr.ID})
	require.NoError(t, err)

	annual, err := svc.CreateType(ctx, hr, TypeInput{Code: "annual", Name: "Annual leave", DefaultDays: 20, Paid: true, RequiresApproval: true})
	require.NoError(t, err)
	_, err = svc.AllocateBalance(ctx, hr, AllocateInput{EmployeeID: worker.ID, LeaveTypeID: annual.ID, Year: 2025, Allocated: 10})
	require.NoError(t, err)

	return &fixture{svc: svc, core: coreSvc, notifier: notifier, decisions: decisions, manager: mgr, worker: worker, annual: annual}
}

func (f *fixture) actorFor(emp *core.Employee, roles ...string) access.Actor {
	return access.Actor{UserID: "user-" + emp.ID, EmployeeID: emp.ID, Roles: roles}
}

func (f *fixture) balance(t *testing.T) LeaveBalance {
	t.Helper()
	balances, err := f.svc.ListBalances(context.Background(), hr, f.worker.ID, 2025)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	return balances[0]
}

func TestSubmitAndApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	worker := f.actorFor(f.worker, access.RoleUser)
	manager := f.actorFor(f.manager, access.RoleManager)

	req, err := f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-04-07"), EndDate: day("2025-04-09"), EndHalf: true})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 2.5, req.Days)
	assert.Equal(t, 2.5, f.balance(t).Pending)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, f.manager.ID, f.notifier.sent[0].employeeID)

	_, err = f.svc.Approve(ctx, worker, req.ID, "")
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	approved, err := f.svc.Approve(ctx, manager, req.ID, "enjoy")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, f.manager.ID, *approved.ApproverID)

	b := f.balance(t)
	assert.Equal(t, 0.0, b.Pending)
	assert.Equal(t, 2.5, b.Used)
	assert.Equal(t, 1, f.decisions["approved"])

	_, err = f.svc.Reject(ctx, manager, req.ID, "too late")
	require.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestSubmitRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	worker := f.actorFor(f.worker, access.RoleUser)

	_, err := f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-04-09"), EndDate: day("2025-04-07")})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-05-01"), EndDate: day("2025-05-20")})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "insufficient_balance", appErr.Code)

	_, err = f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-06-02"), EndDate: day("2025-06-03")})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-06-03"), EndDate: day("2025-06-04")})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Submit(ctx, worker, SubmitInput{EmployeeID: f.manager.ID, LeaveTypeID: f.annual.ID, StartDate: day("2025-06-10"), EndDate: day("2025-06-10")})
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Submit(ctx, hr, SubmitInput{EmployeeID: f.manager.ID, LeaveTypeID: f.annual.ID, StartDate: day("2025-06-10"), EndDate: day("2025-06-10")})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "no_balance", appErr.Code)
}

func TestUnpaidTypeAutoApproves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sick, err := f.svc.CreateType(ctx, hr, TypeInput{Code: "sick", Name: "Sick leave"})
	require.NoError(t, err)

	req, err := f.svc.Submit(ctx, f.actorFor(f.worker, access.RoleUser), SubmitInput{LeaveTypeID: sick.ID, StartDate: day("2025-03-03"), EndDate: day("2025-03-03")})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, req.Status)
	require.NotNil(t, req.DecidedAt)
	assert.Empty(t, f.notifier.sent)

	_, err = f.svc.CreateType(ctx, hr, TypeInput{Code: "SICK", Name: "dup"})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	worker := f.actorFor(f.worker, access.RoleUser)
	_, err = f.svc.CreateType(ctx, worker, TypeInput{Code: "GYM", Name: "Gym leave"})
	require.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.AllocateBalance(ctx, worker, AllocateInput{EmployeeID: f.worker.ID, LeaveTypeID: sick.ID, Year: 2025, Allocated: 99})
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestRejectAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	worker := f.actorFor(f.worker, access.RoleUser)

	first, err := f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-04-01"), EndDate: day("2025-04-02")})
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, hr, first.ID, "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	rejected, err := f.svc.Reject(ctx, hr, first.ID, "busy period")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, 0.0, f.balance(t).Pending)

	second, err := f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-04-01"), EndDate: day("2025-04-03")})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, hr, second.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3.0, f.balance(t).Used)

	stranger := access.Actor{EmployeeID: "someone", Roles: []string{access.RoleUser}}
	_, err = f.svc.Cancel(ctx, stranger, second.ID, "")
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	cancelled, err := f.svc.Cancel(ctx, worker, second.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 0.0, f.balance(t).Used)

	_, err = f.svc.Cancel(ctx, worker, second.ID, "")
	require.True(t, apperr.Is(err, apperr.KindInvalidState))

	past, err := f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-02-20"), EndDate: day("2025-02-20")})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, hr, past.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, worker, past.ID, "")
	require.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestSearchVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	worker := f.actorFor(f.worker, access.RoleUser)
	manager := f.actorFor(f.manager, access.RoleManager)
	_, err := f.svc.Submit(ctx, worker, SubmitInput{LeaveTypeID: f.annual.ID, StartDate: day("2025-04-01"), EndDate: day("2025-04-01")})
	require.NoError(t, err)

	_, total, err := f.svc.Search(ctx, worker, Criteria{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = f.svc.Search(ctx, manager, Criteria{ManagerID: f.manager.ID, Status: "pending"}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, _, err = f.svc.Search(ctx, worker, Criteria{EmployeeID: f.manager.ID}, 10, 0)
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	from := day("2025-05-01")
	_, total, err = f.svc.Search(ctx, hr, Criteria{From: &from}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestRunAccrual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.core.Create(ctx, hr, core.EmployeeInput{FirstName: "New", LastName: "Hire", Email: "new@example.com", HireDate: day("2025-07-02")})
	require.NoError(t, err)

	summary, err := f.svc.RunAccrual(ctx, 2025)
	require.NoError(t, err)
	// worker already has a 2025 balance; manager gets 20, the new hire 10
	assert.Equal(t, 2, summary.BalancesCreated)
	assert.Equal(t, 30.0, summary.DaysAllocated)

	again, err := f.svc.RunAccrual(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, again.BalancesCreated)

	next, err := f.svc.RunAccrual(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, next.BalancesCreated)
	balances, err := f.svc.ListBalances(ctx, hr, f.worker.ID, 2026)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, float64(MaxCarryOverDays), balances[0].CarriedOver)
}
