package core

import (
	"context"
	"sort"
	"strings"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
)

func (s *Service) CreateDepartment(ctx context.Context, actor access.Actor, in DepartmentInput) (*Department, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if err := requireFields(map[string]string{"code": code, "name": name}); err != nil {
		return nil, err
	}
	taken, err := s.store.DepartmentCodeTaken(ctx, code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("department_code_taken", "department code already exists")
	}
	if err := s.checkParent(ctx, "", in.ParentID); err != nil {
		return nil, err
	}
	if err := s.checkHead(ctx, in.HeadEmployeeID); err != nil {
		return nil, err
	}
	dep := &Department{
		Code:           code,
		Name:           name,
		Description:    in.Description,
		ParentID:       emptyToNil(in.ParentID),
		HeadEmployeeID: emptyToNil(in.HeadEmployeeID),
		Active:         true,
	}
	if err := s.store.CreateDepartment(ctx, dep); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.department.create", "department", dep.ID, nil, dep)
	return dep, nil
}

func (s *Service) GetDepartment(ctx context.Context, id string) (*Department, error) {
	return s.store.GetDepartment(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context, f DepartmentFilter, limit, offset int) ([]Department, int64, error) {
	return s.store.ListDepartments(ctx, f, limit, offset)
}

func (s *Service) UpdateDepartment(ctx context.Context, actor access.Actor, id string, in DepartmentInput) (*Department, error) {
	before, err := s.store.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if code := strings.ToUpper(strings.TrimSpace(in.Code)); code != "" && code != before.Code {
		taken, err := s.store.DepartmentCodeTaken(ctx, code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("department_code_taken", "department code already exists")
		}
		fields["code"] = code
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		fields["name"] = name
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.ParentID != nil {
		if err := s.checkParent(ctx, id, in.ParentID); err != nil {
			return nil, err
		}
		fields["parent_id"] = emptyToNil(in.ParentID)
	}
	if in.HeadEmployeeID != nil {
		if err := s.checkHead(ctx, in.HeadEmployeeID); err != nil {
			return nil, err
		}
		fields["head_employee_id"] = emptyToNil(in.HeadEmployeeID)
	}
	if len(fields) > 0 {
		if err := s.store.UpdateDepartmentFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	after, err := s.store.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.department.update", "department", id, before, after)
	return after, nil
}

// checkParent validates a parent reference. For an existing department the
// parent chain is walked upward and must not reach the department itself.
func (s *Service) checkParent(ctx context.Context, selfID string, parentID *string) error {
	if parentID == nil || strings.TrimSpace(*parentID) == "" {
		return nil
	}
	current := strings.TrimSpace(*parentID)
	if current == selfID {
		return apperr.InvalidState("department_cycle", "a department cannot be its own parent")
	}
	parent, err := s.store.GetDepartment(ctx, current)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("parentId", "department does not exist")
		}
		return err
	}
	if !parent.Active {
		return apperr.Validation("parentId", "department is inactive")
	}
	if selfID == "" {
		return nil
	}
	for i := 0; i < maxChainWalk && parent.ParentID != nil; i++ {
		if *parent.ParentID == selfID {
			return apperr.InvalidState("department_cycle", "parent would create a cycle")
		}
		if parent, err = s.store.GetDepartment(ctx, *parent.ParentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkHead(ctx context.Context, headID *string) error {
	if headID == nil || strings.TrimSpace(*headID) == "" {
		return nil
	}
	head, err := s.store.GetEmployee(ctx, strings.TrimSpace(*headID))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("headEmployeeId", "employee does not exist")
		}
		return err
	}
	if head.Status == StatusTerminated {
		return apperr.Validation("headEmployeeId", "employee is terminated")
	}
	return nil
}

// DeleteDepartment deactivates the department.
func (s *Service) DeleteDepartment(ctx context.Context, actor access.Actor, id string) error {
	dep, err := s.store.GetDepartment(ctx, id)
	if err != nil {
		return err
	}
	if !dep.Active {
		return apperr.InvalidState("department_inactive", "department is already inactive")
	}
	employees, err := s.store.CountActiveEmployees(ctx, "department_id", id)
	if err != nil {
		return err
	}
	if employees > 0 {
		return apperr.Conflict("department_has_employees", "department still has active employees")
	}
	children, err := s.store.CountActiveChildDepartments(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return apperr.Conflict("department_has_children", "department still has active sub-departments")
	}
	if err := s.store.UpdateDepartmentFields(ctx, id, map[string]any{"active": false}); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "core.department.delete", "department", id, dep, nil)
	return nil
}

func (s *Service) DepartmentEmployees(ctx context.Context, actor access.Actor, id string, limit, offset int) ([]Employee, int64, error) {
	if _, err := s.store.GetDepartment(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.Search(ctx, actor, EmployeeCriteria{DepartmentID: id}, limit, offset)
}

func (s *Service) CreatePosition(ctx context.Context, actor access.Actor, in PositionInput) (*Position, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	title := strings.TrimSpace(in.Title)
	if err := requireFields(map[string]string{"code": code, "title": title}); err != nil {
		return nil, err
	}
	if err := validateSalaryRange(in.MinSalary, in.MaxSalary); err != nil {
		return nil, err
	}
	taken, err := s.store.PositionCodeTaken(ctx, code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("position_code_taken", "position code already exists")
	}
	if err := s.checkOrgRefs(ctx, in.DepartmentID, nil); err != nil {
		return nil, err
	}
	pos := &Position{
		Code:         code,
		Title:        title,
		Description:  in.Description,
		DepartmentID: emptyToNil(in.DepartmentID),
		PayGradeID:   emptyToNil(in.PayGradeID),
		MinSalary:    in.MinSalary,
		MaxSalary:    in.MaxSalary,
		Active:       true,
	}
	if err := s.store.CreatePosition(ctx, pos); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.position.create", "position", pos.ID, nil, pos)
	return pos, nil
}

func (s *Service) GetPosition(ctx context.Context, id string) (*Position, error) {
	return s.store.GetPosition(ctx, id)
}

func (s *Service) ListPositions(ctx context.Context, f PositionFilter, limit, offset int) ([]Position, int64, error) {
	return s.store.ListPositions(ctx, f, limit, offset)
}

func (s *Service) UpdatePosition(ctx context.Context, actor access.Actor, id string, in PositionInput) (*Position, error) {
	before, err := s.store.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if code := strings.ToUpper(strings.TrimSpace(in.Code)); code != "" && code != before.Code {
		taken, err := s.store.PositionCodeTaken(ctx, code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("position_code_taken", "position code already exists")
		}
		fields["code"] = code
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		fields["title"] = title
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.DepartmentID != nil {
		if err := s.checkOrgRefs(ctx, in.DepartmentID, nil); err != nil {
			return nil, err
		}
		fields["department_id"] = emptyToNil(in.DepartmentID)
	}
	if in.PayGradeID != nil {
		fields["pay_grade_id"] = emptyToNil(in.PayGradeID)
	}
	minSalary, maxSalary := before.MinSalary, before.MaxSalary
	if in.MinSalary != nil {
		minSalary = in.MinSalary
		fields["min_salary"] = *in.MinSalary
	}
	if in.MaxSalary != nil {
		maxSalary = in.MaxSalary
		fields["max_salary"] = *in.MaxSalary
	}
	if err := validateSalaryRange(minSalary, maxSalary); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.store.UpdatePositionFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	after, err := s.store.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "core.position.update", "position", id, before, after)
	return after, nil
}

// DeletePosition deactivates the position.
func (s *Service) DeletePosition(ctx context.Context, actor access.Actor, id string) error {
	pos, err := s.store.GetPosition(ctx, id)
	if err != nil {
		return err
	}
	if !pos.Active {
		return apperr.InvalidState("position_inactive", "position is already inactive")
	}
	holders, err := s.store.CountActiveEmployees(ctx, "position_id", id)
	if err != nil {
		return err
	}
	if holders > 0 {
		return apperr.Conflict("position_in_use", "position is held by active employees")
	}
	if err := s.store.UpdatePositionFields(ctx, id, map[string]any{"active": false}); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "core.position.delete", "position", id, pos, nil)
	return nil
}

func validateSalaryRange(minSalary, maxSalary *float64) error {
	var fields []apperr.FieldError
	if minSalary != nil && *minSalary < 0 {
		fields = append(fields, apperr.FieldError{Field: "minSalary", Reason: "must not be negative"})
	}
	if minSalary != nil && maxSalary != nil && *minSalary > *maxSalary {
		fields = append(fields, apperr.FieldError{Field: "maxSalary", Reason: "must be greater than or equal to minSalary"})
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}

func requireFields(values map[string]string) error {
	var fields []apperr.FieldError
	for field, value := range values {
		if value == "" {
			fields = append(fields, apperr.FieldError{Field: field, Reason: "is required"})
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}
