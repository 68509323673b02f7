package core

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/platform/crypto"
	"hrms/internal/platform/db/dbtest"
	"hrms/internal/platform/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type linkRecorder map[string]string

func (l linkRecorder) LinkEmployee(_ context.Context, userID, employeeID string) error {
	l[userID] = employeeID
	return nil
}

type memoryPhotos struct{ saved int }

func (m *memoryPhotos) SavePhoto(_ context.Context, _ access.Actor, _, _ string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	m.saved++
	return "file-1", nil
}

var hr = access.Actor{UserID: "hr-user", Roles: []string{access.RoleHR}}

type fixture struct {
	svc    *Service
	store  *Store
	events *recordingPublisher
	links  linkRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.Open(t, Models...)
	sealer, err := crypto.New("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	pub := &recordingPublisher{}
	links := linkRecorder{}
	store := NewStore(gdb)
	svc := NewService(store, sealer, pub, audit.Nop{}, links, zap.NewNop())
	return &fixture{svc: svc, store: store, events: pub, links: links}
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) employee(t *testing.T, first, last string, mutate ...func(*EmployeeInput)) *Employee {
	t.Helper()
	in := EmployeeInput{
		FirstName: first,
		LastName:  last,
		Email:     first + "." + last + "@example.com",
		HireDate:  date("2022-03-01"),
	}
	for _, m := range mutate {
		m(&in)
	}
	emp, err := f.svc.Create(context.Background(), hr, in)
	require.NoError(t, err)
	return emp
}

func TestCreateEmployeeEncryptsSensitiveFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.employee(t, "ada", "lovelace", func(in *EmployeeInput) {
		in.NationalID = "NAT-42"
		in.BankAccount = "DE001234"
	})
	assert.Equal(t, StatusActive, emp.Status)
	assert.Equal(t, EmploymentFullTime, emp.EmploymentType)
	assert.NotEmpty(t, emp.EmployeeCode)

	stored, err := f.store.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(stored.NationalIDEnc), "NAT-42")
	assert.Empty(t, stored.NationalID)

	got, err := f.svc.Get(ctx, hr, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "NAT-42", got.NationalID)
	assert.Equal(t, "DE001234", got.BankAccount)

	self := access.Actor{EmployeeID: emp.ID, Roles: []string{access.RoleUser}}
	got, err = f.svc.Get(ctx, self, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "NAT-42", got.NationalID)

	other := access.Actor{EmployeeID: "someone-else", Roles: []string{access.RoleUser}}
	_, err = f.svc.Get(ctx, other, emp.ID)
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	assert.Equal(t, []string{events.EmployeeCreated}, f.events.types())
}

func TestCreateEmployeeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "ada", "lovelace", func(in *EmployeeInput) { in.EmployeeCode = "E-1" })

	_, err := f.svc.Create(ctx, hr, EmployeeInput{FirstName: "x", LastName: "y", Email: "ADA.lovelace@example.com", HireDate: date("2022-01-01")})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Create(ctx, hr, EmployeeInput{EmployeeCode: "e-1", FirstName: "x", LastName: "y", Email: "x@example.com", HireDate: date("2022-01-01")})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Create(ctx, hr, EmployeeInput{FirstName: "x", Email: "bad", EmploymentType: "SEASONAL"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Fields, 4)

	missing := "nope"
	_, err = f.svc.Create(ctx, hr, EmployeeInput{FirstName: "x", LastName: "y", Email: "x@example.com", HireDate: date("2022-01-01"), DepartmentID: &missing})
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateEmployeeRejectsInactiveDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep, err := f.svc.CreateDepartment(ctx, hr, DepartmentInput{Code: "ops", Name: "Operations"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteDepartment(ctx, hr, dep.ID))

	_, err = f.svc.Create(ctx, hr, EmployeeInput{FirstName: "x", LastName: "y", Email: "x@example.com", HireDate: date("2022-01-01"), DepartmentID: &dep.ID})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "departmentId", appErr.Fields[0].Field)
}

func TestAssignManagerRejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ceo := f.employee(t, "carla", "ceo")
	vp := f.employee(t, "victor", "vp")
	eng := f.employee(t, "eve", "engineer")

	_, err := f.svc.AssignManager(ctx, hr, vp.ID, ceo.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignManager(ctx, hr, eng.ID, vp.ID)
	require.NoError(t, err)

	_, err = f.svc.AssignManager(ctx, hr, ceo.ID, eng.ID)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "manager_cycle", appErr.Code)

	_, err = f.svc.AssignManager(ctx, hr, ceo.ID, ceo.ID)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.AssignManager(ctx, hr, ceo.ID, "missing")
	require.True(t, apperr.Is(err, apperr.KindNotFound))

	managed, err := f.svc.IsInChain(ctx, ceo.ID, eng.ID)
	require.NoError(t, err)
	assert.True(t, managed)

	tree, err := f.svc.Hierarchy(ctx, hr, ceo.ID, 5)
	require.NoError(t, err)
	require.Len(t, tree.Reports, 1)
	assert.Equal(t, vp.ID, tree.Reports[0].ID)
	require.Len(t, tree.Reports[0].Reports, 1)
	assert.Equal(t, eng.ID, tree.Reports[0].Reports[0].ID)

	shallow, err := f.svc.Hierarchy(ctx, hr, ceo.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, shallow.Reports[0].Reports)
}

func TestAssignManagerRejectsTerminatedManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gone := f.employee(t, "gone", "manager")
	emp := f.employee(t, "eve", "engineer")
	_, err := f.svc.ChangeStatus(ctx, hr, gone.ID, StatusTerminated, nil)
	require.NoError(t, err)

	_, err = f.svc.AssignManager(ctx, hr, emp.ID, gone.ID)
	require.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestChangeStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.employee(t, "mona", "manager")
	emp := f.employee(t, "ed", "report")
	_, err := f.svc.AssignManager(ctx, hr, emp.ID, mgr.ID)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, hr, mgr.ID, StatusActive, nil)
	require.True(t, apperr.Is(err, apperr.KindInvalidState))

	got, err := f.svc.ChangeStatus(ctx, hr, mgr.ID, "on_leave", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusOnLeave, got.Status)

	_, err = f.svc.ChangeStatus(ctx, hr, mgr.ID, StatusInactive, nil)
	require.True(t, apperr.Is(err, apperr.KindInvalidState))

	effective := date("2024-06-30")
	got, err = f.svc.ChangeStatus(ctx, hr, mgr.ID, StatusTerminated, &effective)
	require.NoError(t, err)
	require.NotNil(t, got.TerminationDate)
	assert.True(t, got.TerminationDate.Equal(effective))

	report, err := f.store.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Nil(t, report.ManagerID)

	_, err = f.svc.ChangeStatus(ctx, hr, mgr.ID, StatusActive, nil)
	require.True(t, apperr.Is(err, apperr.KindInvalidState))

	assert.Contains(t, f.events.types(), events.EmployeeTerminated)
}

func TestDeleteIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.employee(t, "del", "eted")

	require.NoError(t, f.svc.Delete(ctx, hr, emp.ID))
	_, err := f.svc.Get(ctx, hr, emp.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound))

	var raw Employee
	require.NoError(t, f.store.db.Unscoped().First(&raw, "id = ?", emp.ID).Error)
	assert.Equal(t, StatusTerminated, raw.Status)
	assert.True(t, raw.DeletedAt.Valid)

	_, err = f.svc.Create(ctx, hr, EmployeeInput{FirstName: "x", LastName: "y", Email: emp.Email, HireDate: date("2023-01-01")})
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSearchCriteriaAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boss := f.employee(t, "bella", "boss")
	f.employee(t, "adam", "smith", func(in *EmployeeInput) {
		in.EmploymentType = EmploymentContract
		in.HireDate = date("2020-01-15")
		in.ManagerID = &boss.ID
	})
	f.employee(t, "anna", "smithers", func(in *EmployeeInput) { in.ManagerID = &boss.ID })
	f.employee(t, "zed", "other")

	list, total, err := f.svc.Search(ctx, hr, EmployeeCriteria{Name: "SMITH"}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	from := date("2021-01-01")
	list, _, err = f.svc.Search(ctx, hr, EmployeeCriteria{Name: "smith", HiredFrom: &from}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "anna", list[0].FirstName)

	list, _, err = f.svc.Search(ctx, hr, EmployeeCriteria{EmploymentType: "contract"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, _, err = f.svc.Search(ctx, hr, EmployeeCriteria{Sort: "firstName", Desc: true}, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "zed", list[0].FirstName)

	manager := access.Actor{EmployeeID: boss.ID, Roles: []string{access.RoleManager}}
	_, total, err = f.svc.Search(ctx, manager, EmployeeCriteria{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	nobody := access.Actor{UserID: "u", Roles: []string{access.RoleUser}}
	_, total, err = f.svc.Search(ctx, nobody, EmployeeCriteria{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestUpdateEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "taken", "email")
	emp := f.employee(t, "ursula", "update")

	clash := "taken.email@example.com"
	_, err := f.svc.Update(ctx, hr, emp.ID, EmployeeUpdate{Email: &clash})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	blank := " "
	_, err = f.svc.Update(ctx, hr, emp.ID, EmployeeUpdate{FirstName: &blank})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	phone := "+1 555 0100"
	account := "NL99BANK"
	got, err := f.svc.Update(ctx, hr, emp.ID, EmployeeUpdate{Phone: &phone, BankAccount: &account})
	require.NoError(t, err)
	assert.Equal(t, phone, got.Phone)
	assert.Equal(t, account, got.BankAccount)
	assert.Contains(t, f.events.types(), events.EmployeeUpdated)
}

func TestLinkUserAndPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.employee(t, "a", "one")
	b := f.employee(t, "b", "two")

	_, err := f.svc.LinkUser(ctx, hr, a.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, f.links["user-1"])

	_, err = f.svc.LinkUser(ctx, hr, b.ID, "user-1")
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.UploadPhoto(ctx, hr, a.ID, "cv.pdf", "application/pdf", bytes.NewReader([]byte("x")))
	require.True(t, apperr.Is(err, apperr.KindValidation))

	photos := &memoryPhotos{}
	f.svc.SetPhotoStore(photos)
	got, err := f.svc.UploadPhoto(ctx, hr, a.ID, "me.png", "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	require.NotNil(t, got.PhotoFileID)
	assert.Equal(t, "file-1", *got.PhotoFileID)
	assert.Equal(t, 1, photos.saved)

	_, err = f.svc.UploadPhoto(ctx, hr, a.ID, "me.png", "IMAGE/PNG; name=me.png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	_, err = f.svc.UploadPhoto(ctx, hr, a.ID, "me", "", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.Equal(t, 3, photos.saved)
}
