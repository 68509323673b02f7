package reports

import (
	"context"
	"time"

	"hrms/internal/domain/access"
	"hrms/internal/domain/documents"
)

// Dashboard builds the sections the actor is entitled to. Callers without a
// linked employee get no employee or manager section.
func (s *Service) Dashboard(ctx context.Context, actor access.Actor) (*Dashboard, error) {
	out := &Dashboard{}
	if actor.EmployeeID != "" {
		section, err := s.employeeDashboard(ctx, actor)
		if err != nil {
			return nil, err
		}
		out.Employee = section
		if actor.IsManager() {
			if out.Manager, err = s.managerDashboard(ctx, actor.EmployeeID); err != nil {
				return nil, err
			}
		}
	}
	if actor.IsHR() {
		section, err := s.hrDashboard(ctx)
		if err != nil {
			return nil, err
		}
		out.HR = section
	}
	return out, nil
}

func (s *Service) employeeDashboard(ctx context.Context, actor access.Actor) (*EmployeeDashboard, error) {
	var (
		d   EmployeeDashboard
		err error
	)
	if d.LeaveRemaining, err = s.store.LeaveRemaining(ctx, actor.EmployeeID, s.now().Year()); err != nil {
		return nil, err
	}
	if d.PendingLeave, err = s.store.EmployeePendingLeave(ctx, actor.EmployeeID); err != nil {
		return nil, err
	}
	if d.ActiveGoals, err = s.store.ActiveGoals(ctx, actor.EmployeeID); err != nil {
		return nil, err
	}
	if d.UnreadNotifications, err = s.store.UnreadNotifications(ctx, actor.UserID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) managerDashboard(ctx context.Context, managerID string) (*ManagerDashboard, error) {
	var (
		d   ManagerDashboard
		err error
	)
	if d.TeamSize, err = s.store.TeamSize(ctx, managerID); err != nil {
		return nil, err
	}
	if d.PendingApprovals, err = s.store.TeamPendingLeave(ctx, managerID); err != nil {
		return nil, err
	}
	if d.OpenCorrections, err = s.store.TeamPendingCorrections(ctx, managerID); err != nil {
		return nil, err
	}
	if d.DraftReviews, err = s.store.DraftReviews(ctx, managerID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) hrDashboard(ctx context.Context) (*HRDashboard, error) {
	d := HRDashboard{ByStatus: map[string]int64{}, ByDepartment: map[string]int64{}}
	byStatus, err := s.store.EmployeesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range byStatus {
		d.ByStatus[r.Label] = r.Count
		d.Headcount += r.Count
	}
	byDepartment, err := s.store.EmployeesByDepartment(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range byDepartment {
		d.ByDepartment[r.Label] = r.Count
	}
	if d.PendingLeave, err = s.store.PendingLeave(ctx); err != nil {
		return nil, err
	}
	if d.OpenCorrections, err = s.store.PendingCorrections(ctx); err != nil {
		return nil, err
	}
	if d.PendingBonuses, err = s.store.PendingBonuses(ctx); err != nil {
		return nil, err
	}
	today := s.now().Truncate(24 * time.Hour)
	if d.ExpiringDocuments, err = s.store.ExpiringDocuments(ctx, today, today.AddDate(0, 0, documents.DefaultExpiringDays)); err != nil {
		return nil, err
	}
	return &d, nil
}
