package core

import (
	"context"
	"strings"

	"gorm.io/gorm"

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

func (s *Store) CreateEmployee(ctx context.Context, emp *Employee) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(emp).Error, "employee")
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	var emp Employee
	if err := s.db.WithContext(ctx).First(&emp, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "employee")
	}
	return &emp, nil
}

// EmployeeTaken reports whether column=value is held by any employee other
// than excludeID, including soft-deleted rows.
func (s *Store) EmployeeTaken(ctx context.Context, column, value, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Unscoped().Model(&Employee{}).Where("LOWER("+column+") = ?", strings.ToLower(value))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) UpdateEmployeeFields(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Employee{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return db.TranslateError(res.Error, "employee")
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "employee")
	}
	return nil
}

func (s *Store) SoftDeleteEmployee(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Employee{}, "id = ?", id).Error
}

func applyEmployeeCriteria(q *gorm.DB, c EmployeeCriteria) *gorm.DB {
	like := func(v string) string { return "%" + strings.ToLower(strings.TrimSpace(v)) + "%" }
	if c.Name != "" {
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?",
			like(c.Name), like(c.Name), like(c.Name))
	}
	if c.FirstName != "" {
		q = q.Where("LOWER(first_name) LIKE ?", like(c.FirstName))
	}
	if c.LastName != "" {
		q = q.Where("LOWER(last_name) LIKE ?", like(c.LastName))
	}
	if c.Email != "" {
		q = q.Where("LOWER(email) LIKE ?", like(c.Email))
	}
	if c.Code != "" {
		q = q.Where("LOWER(employee_code) = ?", strings.ToLower(c.Code))
	}
	if c.DepartmentID != "" {
		q = q.Where("department_id = ?", c.DepartmentID)
	}
	if c.PositionID != "" {
		q = q.Where("position_id = ?", c.PositionID)
	}
	if c.ManagerID != "" {
		q = q.Where("manager_id = ?", c.ManagerID)
	}
	if c.Status != "" {
		q = q.Where("status = ?", c.Status)
	}
	if c.EmploymentType != "" {
		q = q.Where("employment_type = ?", c.EmploymentType)
	}
	if c.HiredFrom != nil {
		q = q.Where("hire_date >= ?", *c.HiredFrom)
	}
	if c.HiredTo != nil {
		q = q.Where("hire_date <= ?", *c.HiredTo)
	}
	if c.restrictIDs != nil {
		q = q.Where("id IN ?", c.restrictIDs)
	}
	return q
}

func (s *Store) SearchEmployees(ctx context.Context, c EmployeeCriteria, limit, offset int) ([]Employee, int64, error) {
	q := applyEmployeeCriteria(s.db.WithContext(ctx).Model(&Employee{}), c).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "last_name, first_name"
	if col, ok := employeeSortColumns[c.Sort]; ok {
		order = col
		if c.Desc {
			order += " DESC"
		}
	}
	var out []Employee
	err := db.Paginate(q.Order(order).Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

// ManagerOf returns the manager ID of an employee, nil when unset.
func (s *Store) ManagerOf(ctx context.Context, id string) (*string, error) {
	var emp Employee
	err := s.db.WithContext(ctx).Select("id", "manager_id").First(&emp, "id = ?", id).Error
	if err != nil {
		return nil, db.TranslateError(err, "employee")
	}
	return emp.ManagerID, nil
}

func (s *Store) ReportsOf(ctx context.Context, managerIDs []string) ([]Employee, error) {
	var out []Employee
	if len(managerIDs) == 0 {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("manager_id IN ?", managerIDs).Order("last_name, first_name").Find(&out).Error
	return out, err
}

func (s *Store) DetachReports(ctx context.Context, managerID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Employee{}).Where("manager_id = ?", managerID).Update("manager_id", nil)
	return res.RowsAffected, res.Error
}

func (s *Store) CountActiveEmployees(ctx context.Context, column, value string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Employee{}).
		Where(column+" = ? AND status <> ?", value, StatusTerminated).
		Count(&n).Error
	return n, err
}

func (s *Store) ActiveEmployees(ctx context.Context) ([]Employee, error) {
	var out []Employee
	err := s.db.WithContext(ctx).Where("status IN ?", []string{StatusActive, StatusOnLeave}).Order("id").Find(&out).Error
	return out, err
}

func (s *Store) EmployeeByUserID(ctx context.Context, userID string) (*Employee, error) {
	var emp Employee
	if err := s.db.WithContext(ctx).First(&emp, "user_id = ?", userID).Error; err != nil {
		return nil, db.TranslateError(err, "employee")
	}
	return &emp, nil
}

func (s *Store) CreateDepartment(ctx context.Context, dep *Department) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(dep).Error, "department")
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*Department, error) {
	var dep Department
	if err := s.db.WithContext(ctx).First(&dep, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "department")
	}
	return &dep, nil
}

func (s *Store) DepartmentCodeTaken(ctx context.Context, code, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&Department{}).Where("LOWER(code) = ?", strings.ToLower(code))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) ListDepartments(ctx context.Context, f DepartmentFilter, limit, offset int) ([]Department, int64, error) {
	q := s.db.WithContext(ctx).Model(&Department{})
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Name)+"%")
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Department
	err := db.Paginate(q.Order("name"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) UpdateDepartmentFields(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Department{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return db.TranslateError(res.Error, "department")
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "department")
	}
	return nil
}

func (s *Store) CountActiveChildDepartments(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Department{}).Where("parent_id = ? AND active = ?", id, true).Count(&n).Error
	return n, err
}

func (s *Store) DepartmentEmployees(ctx context.Context, id string, limit, offset int) ([]Employee, int64, error) {
	return s.SearchEmployees(ctx, EmployeeCriteria{DepartmentID: id}, limit, offset)
}

func (s *Store) CreatePosition(ctx context.Context, pos *Position) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(pos).Error, "position")
}

func (s *Store) GetPosition(ctx context.Context, id string) (*Position, error) {
	var pos Position
	if err := s.db.WithContext(ctx).First(&pos, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "position")
	}
	return &pos, nil
}

func (s *Store) PositionCodeTaken(ctx context.Context, code, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&Position{}).Where("LOWER(code) = ?", strings.ToLower(code))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) ListPositions(ctx context.Context, f PositionFilter, limit, offset int) ([]Position, int64, error) {
	q := s.db.WithContext(ctx).Model(&Position{})
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.DepartmentID != "" {
		q = q.Where("department_id = ?", f.DepartmentID)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Position
	err := db.Paginate(q.Order("title"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) UpdatePositionFields(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Position{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return db.TranslateError(res.Error, "position")
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "position")
	}
	return nil
}
