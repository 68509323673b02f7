package attendance

import "time"

const (
	StatusOpen       = "OPEN"
	StatusClosed     = "CLOSED"
	StatusAutoClosed = "AUTO_CLOSED"
	StatusCorrected  = "CORRECTED"

	CorrectionPending  = "PENDING"
	CorrectionApproved = "APPROVED"
	CorrectionRejected = "REJECTED"
)

const (
	// StaleAfter is how long a record may stay open before the auto-close job picks it up.
	StaleAfter = 16 * time.Hour
	// StandardShift is credited to records closed by the auto-close job.
	StandardShift = 8 * time.Hour
	// MaxShift bounds corrected clock in/out windows.
	MaxShift = 24 * time.Hour
)

const (
	NotificationAutoClosed         = "ATTENDANCE_AUTO_CLOSED"
	NotificationCorrectionApproved = "ATTENDANCE_CORRECTION_APPROVED"
	NotificationCorrectionRejected = "ATTENDANCE_CORRECTION_REJECTED"
)
