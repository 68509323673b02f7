package leave

import (
	"time"

	"hrms/internal/platform/db"
)

type LeaveType struct {
	db.Model
	Code             string  `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Name             string  `gorm:"size:100;not null" json:"name"`
	DefaultDays      float64 `gorm:"not null" json:"defaultDays"`
	Paid             bool    `gorm:"not null" json:"paid"`
	RequiresApproval bool    `gorm:"not null" json:"requiresApproval"`
	Active           bool    `gorm:"not null" json:"active"`
}

func (LeaveType) TableName() string { return "leave_types" }

type LeaveBalance struct {
	db.Model
	EmployeeID  string  `gorm:"size:36;not null;uniqueIndex:ux_leave_balance" json:"employeeId"`
	LeaveTypeID string  `gorm:"size:36;not null;uniqueIndex:ux_leave_balance" json:"leaveTypeId"`
	Year        int     `gorm:"not null;uniqueIndex:ux_leave_balance" json:"year"`
	Allocated   float64 `gorm:"not null" json:"allocated"`
	Used        float64 `gorm:"not null" json:"used"`
	Pending     float64 `gorm:"not null" json:"pending"`
	CarriedOver float64 `gorm:"not null" json:"carriedOver"`
}

func (LeaveBalance) TableName() string { return "leave_balances" }

// Remaining is what can still be requested.
func (b LeaveBalance) Remaining() float64 {
	return b.Allocated + b.CarriedOver - b.Used - b.Pending
}

type LeaveRequest struct {
	db.Model
	EmployeeID   string     `gorm:"size:36;not null;index" json:"employeeId"`
	LeaveTypeID  string     `gorm:"size:36;not null;index" json:"leaveTypeId"`
	StartDate    time.Time  `gorm:"not null;index" json:"startDate"`
	EndDate      time.Time  `gorm:"not null" json:"endDate"`
	StartHalf    bool       `gorm:"not null" json:"startHalf"`
	EndHalf      bool       `gorm:"not null" json:"endHalf"`
	Days         float64    `gorm:"not null" json:"days"`
	Reason       string     `gorm:"size:1000" json:"reason,omitempty"`
	Status       string     `gorm:"size:16;not null;index" json:"status"`
	ApproverID   *string    `gorm:"size:36" json:"approverId,omitempty"`
	DecisionNote string     `gorm:"size:1000" json:"decisionNote,omitempty"`
	DecidedAt    *time.Time `json:"decidedAt,omitempty"`
}

func (LeaveRequest) TableName() string { return "leave_requests" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&LeaveType{}, &LeaveBalance{}, &LeaveRequest{}}

type TypeInput struct {
	Code             string
	Name             string
	DefaultDays      float64
	Paid             bool
	RequiresApproval bool
}

type SubmitInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	StartHalf   bool
	EndHalf     bool
	Reason      string
}

type AllocateInput struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int
	Allocated   float64
	CarriedOver float64
}

type Criteria struct {
	EmployeeID  string
	Status      string
	LeaveTypeID string
	From        *time.Time
	To          *time.Time
	// ManagerID selects requests of the manager's direct reports.
	ManagerID string
}

type AccrualSummary struct {
	Year            int     `json:"year"`
	BalancesCreated int     `json:"balancesCreated"`
	DaysAllocated   float64 `json:"daysAllocated"`
}
