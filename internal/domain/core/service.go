package core

import (
	"context"
	"fmt"
	"io"
	"mime"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/platform/crypto"
	"hrms/internal/platform/events"
)

// UserLinker keeps the user side of the employee link in sync.
type UserLinker interface {
	LinkEmployee(ctx context.Context, userID, employeeID string) error
}

// PhotoStore persists an uploaded image and returns its file ID.
type PhotoStore interface {
	SavePhoto(ctx context.Context, actor access.Actor, name, contentType string, r io.Reader) (string, error)
}

type Service struct {
	store  *Store
	sealer *crypto.Sealer
	events events.Publisher
	audit  audit.Recorder
	users  UserLinker
	photos PhotoStore
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store *Store, sealer *crypto.Sealer, publisher events.Publisher, recorder audit.Recorder, users UserLinker, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:  store,
		sealer: sealer,
		events: publisher,
		audit:  recorder,
		users:  users,
		log:    log.Named("core"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetPhotoStore(photos PhotoStore) {
	s.photos = photos
}

func (s *Service) today() time.Time {
	return s.now().Truncate(24 * time.Hour)
}

func (s *Service) Create(ctx context.Context, actor access.Actor, in EmployeeInput) (*Employee, error) {
	if in.EmploymentType == "" {
		in.EmploymentType = EmploymentFullTime
	}
	in.EmploymentType = strings.ToUpper(in.EmploymentType)
	if err := validateEmployeeInput(in); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.EmployeeCode)
	if code == "" {
		code = "EMP-" + strings.ToUpper(uuid.NewString()[:8])
	}
	emailAddr := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureUnique(ctx, "", emailAddr, code); err != nil {
		return nil, err
	}
	if err := s.checkOrgRefs(ctx, in.DepartmentID, in.PositionID); err != nil {
		return nil, err
	}
	if in.ManagerID != nil && *in.ManagerID != "" {
		if _, err := s.activeManager(ctx, *in.ManagerID); err != nil {
			return nil, err
		}
	}

	emp := &Employee{
		EmployeeCode:   code,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          emailAddr,
		Phone:          strings.TrimSpace(in.Phone),
		DateOfBirth:    in.DateOfBirth,
		HireDate:       in.HireDate.UTC(),
		EmploymentType: in.EmploymentType,
		Status:         StatusActive,
		DepartmentID:   emptyToNil(in.DepartmentID),
		PositionID:     emptyToNil(in.PositionID),
		ManagerID:      emptyToNil(in.ManagerID),
		PayGradeID:     emptyToNil(in.PayGradeID),
		Salary:         in.Salary,
		Address:        in.Address,
		NationalID:     in.NationalID,
		BankAccount:    in.BankAccount,
	}
	if err := s.seal(emp); err != nil {
		return nil, err
	}
	if err := s.store.CreateEmployee(ctx, emp); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.employee.create", "employee", emp.ID, nil, redacted(emp))
	s.events.Publish(ctx, events.NewEvent(events.EmployeeCreated, emp.ID, actor.UserID, employeePayload(emp)))
	return emp, nil
}

func validateEmployeeInput(in EmployeeInput) error {
	var fields []apperr.FieldError
	if strings.TrimSpace(in.FirstName) == "" {
		fields = append(fields, apperr.FieldError{Field: "firstName", Reason: "is required"})
	}
	if strings.TrimSpace(in.LastName) == "" {
		fields = append(fields, apperr.FieldError{Field: "lastName", Reason: "is required"})
	}
	if !strings.Contains(in.Email, "@") {
		fields = append(fields, apperr.FieldError{Field: "email", Reason: "must be a valid email"})
	}
	if in.HireDate.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "hireDate", Reason: "is required"})
	}
	if !slices.Contains(EmploymentTypes, in.EmploymentType) {
		fields = append(fields, apperr.FieldError{Field: "employmentType", Reason: "must be one of " + strings.Join(EmploymentTypes, ", ")})
	}
	if in.Salary != nil && *in.Salary < 0 {
		fields = append(fields, apperr.FieldError{Field: "salary", Reason: "must not be negative"})
	}
	if in.DateOfBirth != nil && !in.HireDate.IsZero() && !in.DateOfBirth.Before(in.HireDate) {
		fields = append(fields, apperr.FieldError{Field: "dateOfBirth", Reason: "must be before hireDate"})
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}

func (s *Service) ensureUnique(ctx context.Context, selfID, emailAddr, code string) error {
	if emailAddr != "" {
		taken, err := s.store.EmployeeTaken(ctx, "email", emailAddr, selfID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email_taken", "employee email already exists")
		}
	}
	if code != "" {
		taken, err := s.store.EmployeeTaken(ctx, "employee_code", code, selfID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("employee_code_taken", "employee code already exists")
		}
	}
	return nil
}

// checkOrgRefs requires referenced departments and positions to exist and be active.
func (s *Service) checkOrgRefs(ctx context.Context, departmentID, positionID *string) error {
	if departmentID != nil && *departmentID != "" {
		dep, err := s.store.GetDepartment(ctx, *departmentID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.Validation("departmentId", "department does not exist")
			}
			return err
		}
		if !dep.Active {
			return apperr.Validation("departmentId", "department is inactive")
		}
	}
	if positionID != nil && *positionID != "" {
		pos, err := s.store.GetPosition(ctx, *positionID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.Validation("positionId", "position does not exist")
			}
			return err
		}
		if !pos.Active {
			return apperr.Validation("positionId", "position is inactive")
		}
	}
	return nil
}

func (s *Service) activeManager(ctx context.Context, managerID string) (*Employee, error) {
	mgr, err := s.store.GetEmployee(ctx, managerID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("manager")
		}
		return nil, err
	}
	if mgr.Status == StatusTerminated {
		return nil, apperr.InvalidState("manager_terminated", "manager is terminated")
	}
	return mgr, nil
}

func (s *Service) seal(emp *Employee) error {
	var err error
	if emp.NationalIDEnc, err = s.sealer.SealString(emp.NationalID); err != nil {
		return fmt.Errorf("seal national id: %w", err)
	}
	if emp.BankAccountEnc, err = s.sealer.SealString(emp.BankAccount); err != nil {
		return fmt.Errorf("seal bank account: %w", err)
	}
	return nil
}

func (s *Service) open(emp *Employee) error {
	var err error
	if emp.NationalID, err = s.sealer.OpenString(emp.NationalIDEnc); err != nil {
		return fmt.Errorf("open national id: %w", err)
	}
	if emp.BankAccount, err = s.sealer.OpenString(emp.BankAccountEnc); err != nil {
		return fmt.Errorf("open bank account: %w", err)
	}
	return nil
}

// present decrypts what the actor may see and strips the rest.
func (s *Service) present(emp *Employee, actor access.Actor) error {
	if actor.IsHR() || actor.IsEmployee(emp.ID) {
		if err := s.open(emp); err != nil {
			return err
		}
	}
	FilterEmployeeFields(emp, actor)
	return nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (*Employee, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, emp); err != nil {
		return nil, err
	}
	if err := s.present(emp, actor); err != nil {
		return nil, err
	}
	return emp, nil
}

// Lookup loads an employee without visibility rules, for other services.
func (s *Service) Lookup(ctx context.Context, id string) (*Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) authorizeView(ctx context.Context, actor access.Actor, emp *Employee) error {
	if actor.IsHR() || actor.IsEmployee(emp.ID) {
		return nil
	}
	if actor.EmployeeID != "" {
		managed, err := s.IsInChain(ctx, actor.EmployeeID, emp.ID)
		if err != nil {
			return err
		}
		if managed {
			return nil
		}
	}
	return apperr.Forbidden("not allowed to view this employee")
}

// IsInChain reports whether managerID appears above employeeID in the
// reporting line.
func (s *Service) IsInChain(ctx context.Context, managerID, employeeID string) (bool, error) {
	current := employeeID
	for i := 0; i < maxChainWalk; i++ {
		next, err := s.store.ManagerOf(ctx, current)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return false, nil
			}
			return false, err
		}
		if next == nil {
			return false, nil
		}
		if *next == managerID {
			return true, nil
		}
		current = *next
	}
	return false, nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id string, in EmployeeUpdate) (*Employee, error) {
	before, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	var issues []apperr.FieldError
	setString := func(column, field string, value *string, required bool) {
		if value == nil {
			return
		}
		v := strings.TrimSpace(*value)
		if required && v == "" {
			issues = append(issues, apperr.FieldError{Field: field, Reason: "must not be empty"})
			return
		}
		fields[column] = v
	}
	setString("first_name", "firstName", in.FirstName, true)
	setString("last_name", "lastName", in.LastName, true)
	setString("phone", "phone", in.Phone, false)
	setString("address", "address", in.Address, false)
	if in.Email != nil {
		emailAddr := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(emailAddr, "@") {
			issues = append(issues, apperr.FieldError{Field: "email", Reason: "must be a valid email"})
		} else {
			fields["email"] = emailAddr
		}
	}
	if in.EmploymentType != nil {
		et := strings.ToUpper(*in.EmploymentType)
		if !slices.Contains(EmploymentTypes, et) {
			issues = append(issues, apperr.FieldError{Field: "employmentType", Reason: "must be one of " + strings.Join(EmploymentTypes, ", ")})
		} else {
			fields["employment_type"] = et
		}
	}
	if in.DateOfBirth != nil {
		fields["date_of_birth"] = in.DateOfBirth.UTC()
	}
	if in.HireDate != nil {
		fields["hire_date"] = in.HireDate.UTC()
	}
	if len(issues) > 0 {
		return nil, apperr.ValidationFields(issues)
	}
	if in.DepartmentID != nil {
		fields["department_id"] = emptyToNil(in.DepartmentID)
	}
	if in.PositionID != nil {
		fields["position_id"] = emptyToNil(in.PositionID)
	}
	if in.PayGradeID != nil {
		fields["pay_grade_id"] = emptyToNil(in.PayGradeID)
	}
	if emailAddr, ok := fields["email"].(string); ok {
		if err := s.ensureUnique(ctx, id, emailAddr, ""); err != nil {
			return nil, err
		}
	}
	if err := s.checkOrgRefs(ctx, in.DepartmentID, in.PositionID); err != nil {
		return nil, err
	}
	if in.NationalID != nil {
		sealed, err := s.sealer.SealString(*in.NationalID)
		if err != nil {
			return nil, err
		}
		fields["national_id_enc"] = sealed
	}
	if in.BankAccount != nil {
		sealed, err := s.sealer.SealString(*in.BankAccount)
		if err != nil {
			return nil, err
		}
		fields["bank_account_enc"] = sealed
	}
	if len(fields) == 0 {
		return s.Get(ctx, actor, id)
	}
	if err := s.store.UpdateEmployeeFields(ctx, id, fields); err != nil {
		return nil, err
	}
	after, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.employee.update", "employee", id, before, after)
	s.events.Publish(ctx, events.NewEvent(events.EmployeeUpdated, id, actor.UserID, employeePayload(after)))
	if err := s.present(after, actor); err != nil {
		return nil, err
	}
	return after, nil
}

// Delete terminates the employee when still employed and hides the record.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id string) error {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	wasTerminated := emp.Status == StatusTerminated
	err = s.store.Transaction(ctx, func(st *Store) error {
		if !wasTerminated {
			if err := s.terminate(ctx, st, id, s.today()); err != nil {
				return err
			}
		}
		return st.SoftDeleteEmployee(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "core.employee.delete", "employee", id, emp, nil)
	if !wasTerminated {
		s.events.Publish(ctx, events.NewEvent(events.EmployeeTerminated, id, actor.UserID, map[string]any{
			"employeeId": id, "previousStatus": emp.Status,
		}))
	}
	return nil
}

func (s *Service) terminate(ctx context.Context, st *Store, id string, on time.Time) error {
	if err := st.UpdateEmployeeFields(ctx, id, map[string]any{
		"status":           StatusTerminated,
		"termination_date": on,
	}); err != nil {
		return err
	}
	detached, err := st.DetachReports(ctx, id)
	if err != nil {
		return err
	}
	if detached > 0 {
		s.log.Info("detached direct reports of terminated employee", zap.String("employee_id", id), zap.Int64("reports", detached))
	}
	return nil
}

func (s *Service) Search(ctx context.Context, actor access.Actor, c EmployeeCriteria, limit, offset int) ([]Employee, int64, error) {
	if c.Status != "" {
		c.Status = strings.ToUpper(c.Status)
	}
	if c.EmploymentType != "" {
		c.EmploymentType = strings.ToUpper(c.EmploymentType)
	}
	if !actor.IsHR() {
		visible, err := s.visibleIDs(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		c.restrictIDs = visible
	}
	list, total, err := s.store.SearchEmployees(ctx, c, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		if err := s.present(&list[i], actor); err != nil {
			return nil, 0, err
		}
	}
	return list, total, nil
}

// visibleIDs is the actor's own record plus, for managers, everyone below them.
func (s *Service) visibleIDs(ctx context.Context, actor access.Actor) ([]string, error) {
	if actor.EmployeeID == "" {
		return []string{}, nil
	}
	ids := []string{actor.EmployeeID}
	if !actor.IsManager() {
		return ids, nil
	}
	frontier := []string{actor.EmployeeID}
	seen := map[string]bool{actor.EmployeeID: true}
	for depth := 0; depth < maxChainWalk && len(frontier) > 0; depth++ {
		reports, err := s.store.ReportsOf(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, r := range reports {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			ids = append(ids, r.ID)
			frontier = append(frontier, r.ID)
		}
	}
	return ids, nil
}

func (s *Service) AssignManager(ctx context.Context, actor access.Actor, id, managerID string) (*Employee, error) {
	if strings.TrimSpace(managerID) == "" {
		return nil, apperr.Validation("managerId", "is required")
	}
	if id == managerID {
		return nil, apperr.Validation("managerId", "an employee cannot manage themselves")
	}
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeManager(ctx, managerID); err != nil {
		return nil, err
	}
	// the new manager must not already report to this employee
	cycle, err := s.IsInChain(ctx, id, managerID)
	if err != nil {
		return nil, err
	}
	if cycle {
		return nil, apperr.InvalidState("manager_cycle", "manager reports to this employee")
	}
	if err := s.store.UpdateEmployeeFields(ctx, id, map[string]any{"manager_id": managerID}); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.employee.manager_change", "employee", id,
		map[string]any{"managerId": emp.ManagerID}, map[string]any{"managerId": managerID})
	emp.ManagerID = &managerID
	s.events.Publish(ctx, events.NewEvent(events.EmployeeUpdated, id, actor.UserID, employeePayload(emp)))
	return s.Get(ctx, actor, id)
}

func (s *Service) RemoveManager(ctx context.Context, actor access.Actor, id string) (*Employee, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp.ManagerID == nil {
		return nil, apperr.InvalidState("no_manager", "employee has no manager")
	}
	if err := s.store.UpdateEmployeeFields(ctx, id, map[string]any{"manager_id": nil}); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.employee.manager_change", "employee", id,
		map[string]any{"managerId": emp.ManagerID}, map[string]any{"managerId": nil})
	return s.Get(ctx, actor, id)
}

func (s *Service) DirectReports(ctx context.Context, actor access.Actor, id string) ([]Employee, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, emp); err != nil {
		return nil, err
	}
	reports, err := s.store.ReportsOf(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	for i := range reports {
		FilterEmployeeFields(&reports[i], actor)
	}
	return reports, nil
}

// Hierarchy returns the reporting subtree rooted at id, depth levels deep.
func (s *Service) Hierarchy(ctx context.Context, actor access.Actor, id string, depth int) (*OrgNode, error) {
	if depth <= 0 {
		depth = defaultHierarchyDepth
	}
	if depth > maxHierarchyDepth {
		depth = maxHierarchyDepth
	}
	root, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, root); err != nil {
		return nil, err
	}

	children := map[string][]Employee{}
	frontier := []string{root.ID}
	seen := map[string]bool{root.ID: true}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		reports, err := s.store.ReportsOf(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = nil
		for _, r := range reports {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			children[*r.ManagerID] = append(children[*r.ManagerID], r)
			frontier = append(frontier, r.ID)
		}
	}
	node := buildNode(*root, children)
	return &node, nil
}

func buildNode(emp Employee, children map[string][]Employee) OrgNode {
	node := OrgNode{
		ID:         emp.ID,
		Name:       emp.FullName(),
		Status:     emp.Status,
		PositionID: emp.PositionID,
		Reports:    []OrgNode{},
	}
	for _, child := range children[emp.ID] {
		node.Reports = append(node.Reports, buildNode(child, children))
	}
	return node
}

func (s *Service) ChangeStatus(ctx context.Context, actor access.Actor, id, status string, effective *time.Time) (*Employee, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !slices.Contains(Statuses, status) {
		return nil, apperr.Validation("status", "must be one of "+strings.Join(Statuses, ", "))
	}
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp.Status == status {
		return nil, apperr.InvalidState("status_unchanged", "employee already has status "+status)
	}
	if !slices.Contains(statusTransitions[emp.Status], status) {
		return nil, apperr.InvalidState("invalid_transition", fmt.Sprintf("cannot change status from %s to %s", emp.Status, status))
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		if status == StatusTerminated {
			on := s.today()
			if effective != nil {
				on = effective.UTC()
			}
			return s.terminate(ctx, st, id, on)
		}
		return st.UpdateEmployeeFields(ctx, id, map[string]any{"status": status})
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.employee.status_change", "employee", id,
		map[string]string{"status": emp.Status}, map[string]string{"status": status})
	payload := map[string]any{"employeeId": id, "from": emp.Status, "to": status}
	s.events.Publish(ctx, events.NewEvent(events.EmployeeStatusChanged, id, actor.UserID, payload))
	if status == StatusTerminated {
		s.events.Publish(ctx, events.NewEvent(events.EmployeeTerminated, id, actor.UserID, payload))
	}
	return s.Get(ctx, actor, id)
}

func (s *Service) UploadPhoto(ctx context.Context, actor access.Actor, id, name, contentType string, r io.Reader) (*Employee, error) {
	// bytes are sniffed by the photo store
	if declared, _, err := mime.ParseMediaType(contentType); err == nil && !slices.Contains(photoContentTypes, strings.ToLower(declared)) {
		return nil, apperr.Validation("file", "must be a JPEG, PNG, GIF or WebP image")
	}
	if _, err := s.store.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	if s.photos == nil {
		return nil, apperr.InvalidState("photos_unavailable", "photo storage is not configured")
	}
	fileID, err := s.photos.SavePhoto(ctx, actor, name, contentType, r)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateEmployeeFields(ctx, id, map[string]any{"photo_file_id": fileID}); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.employee.photo", "employee", id, nil, map[string]string{"photoFileId": fileID})
	return s.Get(ctx, actor, id)
}

// LinkUser attaches a login to the employee. An empty userID unlinks.
func (s *Service) LinkUser(ctx context.Context, actor access.Actor, id, userID string) (*Employee, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		existing, err := s.store.EmployeeByUserID(ctx, userID)
		switch {
		case err == nil && existing.ID != id:
			return nil, apperr.Conflict("user_already_linked", "user is linked to another employee")
		case err != nil && !apperr.Is(err, apperr.KindNotFound):
			return nil, err
		}
	}
	var value any
	if userID != "" {
		value = userID
	}
	if err := s.store.UpdateEmployeeFields(ctx, id, map[string]any{"user_id": value}); err != nil {
		return nil, err
	}
	if s.users != nil {
		if emp.UserID != nil && *emp.UserID != userID {
			if err := s.users.LinkEmployee(ctx, *emp.UserID, ""); err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return nil, err
			}
		}
		if userID != "" {
			if err := s.users.LinkEmployee(ctx, userID, id); err != nil {
				return nil, err
			}
		}
	}
	s.audit.Record(ctx, actor, "core.employee.link_user", "employee", id,
		map[string]any{"userId": emp.UserID}, map[string]any{"userId": value})
	return s.Get(ctx, actor, id)
}

// ActiveEmployees lists employees that are currently employed.
func (s *Service) ActiveEmployees(ctx context.Context) ([]Employee, error) {
	return s.store.ActiveEmployees(ctx)
}

// UserIDForEmployee returns the linked user, or "" when none is linked.
func (s *Service) UserIDForEmployee(ctx context.Context, employeeID string) (string, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return "", err
	}
	if emp.UserID == nil {
		return "", nil
	}
	return *emp.UserID, nil
}

// redacted copies emp without decrypted values, for audit snapshots.
func redacted(emp *Employee) Employee {
	out := *emp
	out.NationalID = ""
	out.BankAccount = ""
	return out
}

func employeePayload(emp *Employee) map[string]any {
	return map[string]any{
		"employeeId":   emp.ID,
		"employeeCode": emp.EmployeeCode,
		"email":        emp.Email,
		"status":       emp.Status,
		"departmentId": emp.DepartmentID,
		"positionId":   emp.PositionID,
		"managerId":    emp.ManagerID,
	}
}

func emptyToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
