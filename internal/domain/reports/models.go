package reports

import (
	"hrms/internal/platform/db"
)

const (
	TypeHeadcount  = "HEADCOUNT"
	TypeLeaveUsage = "LEAVE_USAGE"
	TypeAttendance = "ATTENDANCE"
	TypePayroll    = "PAYROLL"
)

var Types = []string{TypeHeadcount, TypeLeaveUsage, TypeAttendance, TypePayroll}

type Report struct {
	db.Model
	Type        string `gorm:"size:32;not null;index" json:"type"`
	Parameters  Params `gorm:"serializer:json;type:text" json:"parameters"`
	Result      Result `gorm:"serializer:json;type:text" json:"result"`
	RowCount    int    `gorm:"not null" json:"rowCount"`
	GeneratedBy string `gorm:"size:36" json:"generatedBy,omitempty"`
}

func (Report) TableName() string { return "reports" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&Report{}}

// Params narrows a report. Unused fields are ignored by report types that
// do not need them.
type Params struct {
	DepartmentID string `json:"departmentId,omitempty"`
	Year         int    `json:"year,omitempty"`
	Month        int    `json:"month,omitempty"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
}

type Result struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Totals  map[string]any `json:"totals,omitempty"`
}

type EmployeeDashboard struct {
	LeaveRemaining      float64 `json:"leaveRemaining"`
	PendingLeave        int64   `json:"pendingLeaveRequests"`
	ActiveGoals         int64   `json:"activeGoals"`
	UnreadNotifications int64   `json:"unreadNotifications"`
}

type ManagerDashboard struct {
	TeamSize         int64 `json:"teamSize"`
	PendingApprovals int64 `json:"pendingApprovals"`
	OpenCorrections  int64 `json:"openCorrections"`
	DraftReviews     int64 `json:"draftReviews"`
}

type HRDashboard struct {
	Headcount         int64            `json:"headcount"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ByDepartment      map[string]int64 `json:"byDepartment"`
	PendingLeave      int64            `json:"pendingLeave"`
	OpenCorrections   int64            `json:"openCorrections"`
	PendingBonuses    int64            `json:"pendingBonuses"`
	ExpiringDocuments int64            `json:"expiringDocuments"`
}

// Dashboard has one section per role the caller holds.
type Dashboard struct {
	Employee *EmployeeDashboard `json:"employee,omitempty"`
	Manager  *ManagerDashboard  `json:"manager,omitempty"`
	HR       *HRDashboard       `json:"hr,omitempty"`
}
