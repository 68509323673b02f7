package access

const (
	RoleUser       = "USER"
	RoleManager    = "MANAGER"
	RoleHR         = "HR"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// BuiltInRoles lists the seeded roles, lowest privilege first.
var BuiltInRoles = []string{RoleUser, RoleManager, RoleHR, RoleAdmin, RoleSuperAdmin}

const (
	PermEmployeesRead      = "employees.read"
	PermEmployeesWrite     = "employees.write"
	PermOrgRead            = "org.read"
	PermOrgWrite           = "org.write"
	PermLeaveRead          = "leave.read"
	PermLeaveWrite         = "leave.write"
	PermLeaveApprove       = "leave.approve"
	PermPayrollRead        = "payroll.read"
	PermPayrollWrite       = "payroll.write"
	PermPerformanceRead    = "performance.read"
	PermPerformanceWrite   = "performance.write"
	PermPerformanceReview  = "performance.review"
	PermAttendanceRead     = "attendance.read"
	PermAttendanceWrite    = "attendance.write"
	PermAttendanceApprove  = "attendance.approve"
	PermDocumentsRead      = "documents.read"
	PermDocumentsWrite     = "documents.write"
	PermNotificationsAdmin = "notifications.admin"
	PermUsersRead          = "users.read"
	PermUsersWrite         = "users.write"
	PermReportsRead        = "reports.read"
	PermReportsGenerate    = "reports.generate"
	PermAuditRead          = "audit.read"
	PermSystemAdmin        = "system.admin"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOrgRead,
	PermOrgWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermPayrollRead,
	PermPayrollWrite,
	PermPerformanceRead,
	PermPerformanceWrite,
	PermPerformanceReview,
	PermAttendanceRead,
	PermAttendanceWrite,
	PermAttendanceApprove,
	PermDocumentsRead,
	PermDocumentsWrite,
	PermNotificationsAdmin,
	PermUsersRead,
	PermUsersWrite,
	PermReportsRead,
	PermReportsGenerate,
	PermAuditRead,
	PermSystemAdmin,
}

var userPermissions = []string{
	PermEmployeesRead,
	PermOrgRead,
	PermLeaveRead,
	PermLeaveWrite,
	PermPayrollRead,
	PermPerformanceRead,
	PermAttendanceRead,
	PermAttendanceWrite,
	PermDocumentsRead,
}

var managerPermissions = append(append([]string{}, userPermissions...),
	PermLeaveApprove,
	PermPerformanceWrite,
	PermPerformanceReview,
	PermAttendanceApprove,
)

var hrPermissions = append(append([]string{}, managerPermissions...),
	PermEmployeesWrite,
	PermOrgWrite,
	PermPayrollWrite,
	PermDocumentsWrite,
	PermReportsRead,
	PermReportsGenerate,
)

var adminPermissions = append(append([]string{}, hrPermissions...),
	PermNotificationsAdmin,
	PermUsersRead,
	PermUsersWrite,
	PermAuditRead,
	PermSystemAdmin,
)

// RolePermissions holds the default grants written by the seed.
var RolePermissions = map[string][]string{
	RoleUser:       userPermissions,
	RoleManager:    managerPermissions,
	RoleHR:         hrPermissions,
	RoleAdmin:      adminPermissions,
	RoleSuperAdmin: DefaultPermissions,
}
