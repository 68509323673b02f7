package leave

import (
	"context"
	"math"

	"go.uber.org/zap"

	"hrms/internal/apperr"
)

// RunAccrual allocates the yearly allowance of every active leave type with
// default days to active employees that have no balance for year yet. New
// hires get a prorated share and paid types carry over up to
// MaxCarryOverDays from the previous year.
func (s *Service) RunAccrual(ctx context.Context, year int) (AccrualSummary, error) {
	summary := AccrualSummary{Year: year}
	types, err := s.store.ListTypes(ctx, true)
	if err != nil {
		return summary, err
	}
	employees, err := s.directory.ActiveEmployees(ctx)
	if err != nil {
		return summary, err
	}
	for _, lt := range types {
		if lt.DefaultDays <= 0 {
			continue
		}
		for _, emp := range employees {
			exists, err := s.store.BalanceExists(ctx, emp.ID, lt.ID, year)
			if err != nil {
				return summary, err
			}
			if exists {
				continue
			}
			allocated := ProratedDays(lt.DefaultDays, emp.HireDate, year)
			if allocated <= 0 {
				continue
			}
			carried := 0.0
			if lt.Paid {
				prev, err := s.store.GetBalance(ctx, emp.ID, lt.ID, year-1)
				switch {
				case err == nil:
					carried = math.Max(0, math.Min(prev.Remaining(), MaxCarryOverDays))
				case !apperr.Is(err, apperr.KindNotFound):
					return summary, err
				}
			}
			balance := &LeaveBalance{
				EmployeeID:  emp.ID,
				LeaveTypeID: lt.ID,
				Year:        year,
				Allocated:   allocated,
				CarriedOver: carried,
			}
			if err := s.store.CreateBalance(ctx, balance); err != nil {
				if apperr.Is(err, apperr.KindConflict) {
					continue
				}
				return summary, err
			}
			summary.BalancesCreated++
			summary.DaysAllocated += allocated
		}
	}
	s.log.Info("leave accrual finished",
		zap.Int("year", year),
		zap.Int("balances", summary.BalancesCreated),
		zap.Float64("days", summary.DaysAllocated))
	return summary, nil
}
