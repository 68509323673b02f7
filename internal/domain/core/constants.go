package core

const (
	StatusActive     = "ACTIVE"
	StatusInactive   = "INACTIVE"
	StatusOnLeave    = "ON_LEAVE"
	StatusTerminated = "TERMINATED"
)

const (
	EmploymentFullTime = "FULL_TIME"
	EmploymentPartTime = "PART_TIME"
	EmploymentContract = "CONTRACT"
	EmploymentIntern   = "INTERN"
)

var (
	Statuses        = []string{StatusActive, StatusInactive, StatusOnLeave, StatusTerminated}
	EmploymentTypes = []string{EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentIntern}
)

var statusTransitions = map[string][]string{
	StatusActive:     {StatusInactive, StatusOnLeave, StatusTerminated},
	StatusInactive:   {StatusActive, StatusTerminated},
	StatusOnLeave:    {StatusActive, StatusTerminated},
	StatusTerminated: {},
}

// employeeSortColumns maps the sort keys accepted by Search to columns.
var employeeSortColumns = map[string]string{
	"firstName":    "first_name",
	"lastName":     "last_name",
	"email":        "email",
	"employeeCode": "employee_code",
	"hireDate":     "hire_date",
	"status":       "status",
	"createdAt":    "created_at",
}

const (
	defaultHierarchyDepth = 3
	maxHierarchyDepth     = 10
	maxChainWalk          = 1000
)

var photoContentTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
