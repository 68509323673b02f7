package notifications

const (
	ChannelInApp = "IN_APP"
	ChannelEmail = "EMAIL"
	ChannelBoth  = "BOTH"
)

var Channels = []string{ChannelInApp, ChannelEmail, ChannelBoth}

// fallbackTitles are used for types that have no active template.
var fallbackTitles = map[string]string{
	"LEAVE_SUBMITTED":                "New leave request",
	"LEAVE_APPROVED":                 "Leave request approved",
	"LEAVE_REJECTED":                 "Leave request rejected",
	"LEAVE_CANCELLED":                "Leave request cancelled",
	"REVIEW_SUBMITTED":               "Performance review submitted",
	"REVIEW_COMPLETED":               "Performance review completed",
	"ATTENDANCE_AUTO_CLOSED":         "Attendance closed automatically",
	"ATTENDANCE_CORRECTION_APPROVED": "Attendance correction approved",
	"ATTENDANCE_CORRECTION_REJECTED": "Attendance correction rejected",
}
