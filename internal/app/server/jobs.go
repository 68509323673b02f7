package server

import (
	"context"
	"time"

	"hrms/internal/platform/config"
)

const (
	JobLeaveAccrual    = "leave_accrual"
	JobAttendanceClose = "attendance_auto_close"
)

// RegisterJobs adds the recurring jobs. Without JOBS_ENABLED they are still
// registered, with no schedule, so admins can trigger them by hand.
func RegisterJobs(svc *Services, cfg config.Config) error {
	accrualSpec, closeSpec := cfg.LeaveAccrualCron, cfg.AttendanceCloseCron
	if !cfg.JobsEnabled {
		accrualSpec, closeSpec = "", ""
	}
	if err := svc.Jobs.Register(JobLeaveAccrual, accrualSpec, func(ctx context.Context) (any, error) {
		return svc.Leave.RunAccrual(ctx, time.Now().UTC().Year())
	}); err != nil {
		return err
	}
	return svc.Jobs.Register(JobAttendanceClose, closeSpec, func(ctx context.Context) (any, error) {
		closed, err := svc.Attendance.AutoCloseStale(ctx)
		return map[string]int{"closed": closed}, err
	})
}
