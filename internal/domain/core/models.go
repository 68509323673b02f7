package core

import (
	"time"

	"gorm.io/gorm"

	"hrms/internal/platform/db"
)

type Employee struct {
	db.Model
	EmployeeCode    string         `gorm:"size:32;not null;uniqueIndex" json:"employeeCode"`
	FirstName       string         `gorm:"size:100;not null" json:"firstName"`
	LastName        string         `gorm:"size:100;not null" json:"lastName"`
	Email           string         `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone           string         `gorm:"size:32" json:"phone,omitempty"`
	DateOfBirth     *time.Time     `json:"dateOfBirth,omitempty"`
	HireDate        time.Time      `gorm:"not null" json:"hireDate"`
	TerminationDate *time.Time     `json:"terminationDate,omitempty"`
	EmploymentType  string         `gorm:"size:16;not null" json:"employmentType"`
	Status          string         `gorm:"size:16;not null;index" json:"status"`
	DepartmentID    *string        `gorm:"size:36;index" json:"departmentId,omitempty"`
	PositionID      *string        `gorm:"size:36;index" json:"positionId,omitempty"`
	ManagerID       *string        `gorm:"size:36;index" json:"managerId,omitempty"`
	PayGradeID      *string        `gorm:"size:36" json:"payGradeId,omitempty"`
	Salary          *float64       `json:"salary,omitempty"`
	Address         string         `gorm:"size:500" json:"address,omitempty"`
	NationalIDEnc   []byte         `json:"-"`
	BankAccountEnc  []byte         `json:"-"`
	NationalID      string         `gorm:"-" json:"nationalId,omitempty"`
	BankAccount     string         `gorm:"-" json:"bankAccount,omitempty"`
	PhotoFileID     *string        `gorm:"size:36" json:"photoFileId,omitempty"`
	UserID          *string        `gorm:"size:36;index" json:"userId,omitempty"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Employee) TableName() string { return "employees" }

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

type Department struct {
	db.Model
	Code           string  `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Name           string  `gorm:"size:150;not null" json:"name"`
	Description    string  `gorm:"size:500" json:"description,omitempty"`
	ParentID       *string `gorm:"size:36;index" json:"parentId,omitempty"`
	HeadEmployeeID *string `gorm:"size:36" json:"headEmployeeId,omitempty"`
	Active         bool    `gorm:"not null" json:"active"`
}

func (Department) TableName() string { return "departments" }

type Position struct {
	db.Model
	Code         string   `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Title        string   `gorm:"size:150;not null" json:"title"`
	Description  string   `gorm:"size:500" json:"description,omitempty"`
	DepartmentID *string  `gorm:"size:36;index" json:"departmentId,omitempty"`
	PayGradeID   *string  `gorm:"size:36" json:"payGradeId,omitempty"`
	MinSalary    *float64 `json:"minSalary,omitempty"`
	MaxSalary    *float64 `json:"maxSalary,omitempty"`
	Active       bool     `gorm:"not null" json:"active"`
}

func (Position) TableName() string { return "positions" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&Employee{}, &Department{}, &Position{}}

type EmployeeInput struct {
	EmployeeCode   string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    *time.Time
	HireDate       time.Time
	EmploymentType string
	DepartmentID   *string
	PositionID     *string
	ManagerID      *string
	PayGradeID     *string
	Salary         *float64
	Address        string
	NationalID     string
	BankAccount    string
}

// EmployeeUpdate carries a partial update; nil fields are left unchanged and
// a pointer to "" clears an optional reference.
type EmployeeUpdate struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	DateOfBirth    *time.Time
	HireDate       *time.Time
	EmploymentType *string
	DepartmentID   *string
	PositionID     *string
	PayGradeID     *string
	Address        *string
	NationalID     *string
	BankAccount    *string
}

type EmployeeCriteria struct {
	Name           string
	FirstName      string
	LastName       string
	Email          string
	Code           string
	DepartmentID   string
	PositionID     string
	ManagerID      string
	Status         string
	EmploymentType string
	HiredFrom      *time.Time
	HiredTo        *time.Time
	Sort           string
	Desc           bool

	// restrictIDs limits results to these employees when non-nil.
	restrictIDs []string
}

type DepartmentInput struct {
	Code           string
	Name           string
	Description    string
	ParentID       *string
	HeadEmployeeID *string
}

type DepartmentFilter struct {
	Active *bool
	Name   string
}

type PositionInput struct {
	Code         string
	Title        string
	Description  string
	DepartmentID *string
	PayGradeID   *string
	MinSalary    *float64
	MaxSalary    *float64
}

type PositionFilter struct {
	Active       *bool
	DepartmentID string
}

// OrgNode is one employee in a reporting subtree.
type OrgNode struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	PositionID *string   `json:"positionId,omitempty"`
	Reports    []OrgNode `json:"reports"`
}
