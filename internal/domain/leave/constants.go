package leave

const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

var Statuses = []string{StatusPending, StatusApproved, StatusRejected, StatusCancelled}

// MaxCarryOverDays caps how much unused paid leave moves into the next year.
const MaxCarryOverDays = 5

const (
	NotificationSubmitted = "LEAVE_SUBMITTED"
	NotificationApproved  = "LEAVE_APPROVED"
	NotificationRejected  = "LEAVE_REJECTED"
	NotificationCancelled = "LEAVE_CANCELLED"
)
