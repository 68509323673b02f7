package leave

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/core"
	"hrms/internal/platform/events"
)

// Directory resolves employees for leave rules.
type Directory interface {
	Lookup(ctx context.Context, id string) (*core.Employee, error)
	ActiveEmployees(ctx context.Context) ([]core.Employee, error)
	IsInChain(ctx context.Context, managerID, employeeID string) (bool, error)
}

// Notifier delivers user-facing notifications about leave requests.
type Notifier interface {
	NotifyEmployee(ctx context.Context, employeeID, notificationType string, data map[string]any)
}

// DecisionObserver counts approvals and rejections.
type DecisionObserver interface {
	ObserveLeaveDecision(decision string)
}

type Service struct {
	store     *Store
	directory Directory
	events    events.Publisher
	audit     audit.Recorder
	notifier  Notifier
	decisions DecisionObserver
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store *Store, directory Directory, publisher events.Publisher, recorder audit.Recorder, notifier Notifier, decisions DecisionObserver, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:     store,
		directory: directory,
		events:    publisher,
		audit:     recorder,
		notifier:  notifier,
		decisions: decisions,
		log:       log.Named("leave"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) notify(ctx context.Context, employeeID, kind string, data map[string]any) {
	if s.notifier != nil && employeeID != "" {
		s.notifier.NotifyEmployee(ctx, employeeID, kind, data)
	}
}

func requireHR(actor access.Actor) error {
	if !actor.IsHR() {
		return apperr.Forbidden("only HR can manage leave types and balances")
	}
	return nil
}

func (s *Service) CreateType(ctx context.Context, actor access.Actor, in TypeInput) (*LeaveType, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	var fields []apperr.FieldError
	if code == "" {
		fields = append(fields, apperr.FieldError{Field: "code", Reason: "is required"})
	}
	if name == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Reason: "is required"})
	}
	if in.DefaultDays < 0 || in.DefaultDays > 366 {
		fields = append(fields, apperr.FieldError{Field: "defaultDays", Reason: "must be between 0 and 366"})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}
	taken, err := s.store.TypeCodeTaken(ctx, code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("leave_type_code_taken", "leave type code already exists")
	}
	lt := &LeaveType{
		Code:             code,
		Name:             name,
		DefaultDays:      in.DefaultDays,
		Paid:             in.Paid,
		RequiresApproval: in.RequiresApproval,
		Active:           true,
	}
	if err := s.store.CreateType(ctx, lt); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "leave.type.create", "leave_type", lt.ID, nil, lt)
	return lt, nil
}

func (s *Service) ListTypes(ctx context.Context, activeOnly bool) ([]LeaveType, error) {
	return s.store.ListTypes(ctx, activeOnly)
}

func (s *Service) GetType(ctx context.Context, id string) (*LeaveType, error) {
	return s.store.GetType(ctx, id)
}

func (s *Service) UpdateType(ctx context.Context, actor access.Actor, id string, in TypeInput) (*LeaveType, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	before, err := s.store.GetType(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DefaultDays < 0 || in.DefaultDays > 366 {
		return nil, apperr.Validation("defaultDays", "must be between 0 and 366")
	}
	fields := map[string]any{
		"default_days":      in.DefaultDays,
		"paid":              in.Paid,
		"requires_approval": in.RequiresApproval,
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		fields["name"] = name
	}
	if code := strings.ToUpper(strings.TrimSpace(in.Code)); code != "" && code != before.Code {
		taken, err := s.store.TypeCodeTaken(ctx, code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("leave_type_code_taken", "leave type code already exists")
		}
		fields["code"] = code
	}
	if err := s.store.UpdateTypeFields(ctx, id, fields); err != nil {
		return nil, err
	}
	after, err := s.store.GetType(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "leave.type.update", "leave_type", id, before, after)
	return after, nil
}

// DeleteType deactivates the type; existing requests and balances stay.
func (s *Service) DeleteType(ctx context.Context, actor access.Actor, id string) error {
	if err := requireHR(actor); err != nil {
		return err
	}
	lt, err := s.store.GetType(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateTypeFields(ctx, id, map[string]any{"active": false}); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, "leave.type.delete", "leave_type", id, lt, nil)
	return nil
}

func (s *Service) AllocateBalance(ctx context.Context, actor access.Actor, in AllocateInput) (*LeaveBalance, error) {
	if err := requireHR(actor); err != nil {
		return nil, err
	}
	if in.Year < 2000 || in.Year > 2100 {
		return nil, apperr.Validation("year", "must be a valid calendar year")
	}
	if in.Allocated < 0 || in.CarriedOver < 0 {
		return nil, apperr.Validation("allocated", "must not be negative")
	}
	if _, err := s.directory.Lookup(ctx, in.EmployeeID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetType(ctx, in.LeaveTypeID); err != nil {
		return nil, err
	}
	var result *LeaveBalance
	err := s.store.Transaction(ctx, func(st *Store) error {
		existing, err := st.LockBalance(ctx, in.EmployeeID, in.LeaveTypeID, in.Year)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if existing == nil {
			result = &LeaveBalance{
				EmployeeID:  in.EmployeeID,
				LeaveTypeID: in.LeaveTypeID,
				Year:        in.Year,
				Allocated:   in.Allocated,
				CarriedOver: in.CarriedOver,
			}
			return st.CreateBalance(ctx, result)
		}
		if in.Allocated+in.CarriedOver < existing.Used+existing.Pending {
			return apperr.Validation("allocated", "must cover days already used or pending")
		}
		if err := st.UpdateBalanceFields(ctx, existing.ID, map[string]any{
			"allocated":    in.Allocated,
			"carried_over": in.CarriedOver,
		}); err != nil {
			return err
		}
		existing.Allocated = in.Allocated
		existing.CarriedOver = in.CarriedOver
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "leave.balance.allocate", "leave_balance", result.ID, nil, result)
	return result, nil
}

func (s *Service) ListBalances(ctx context.Context, actor access.Actor, employeeID string, year int) ([]LeaveBalance, error) {
	if err := s.authorizeEmployee(ctx, actor, employeeID); err != nil {
		return nil, err
	}
	return s.store.ListBalances(ctx, employeeID, year)
}

// authorizeEmployee lets HR, the employee and anyone above them in the
// reporting line read the employee's leave data.
func (s *Service) authorizeEmployee(ctx context.Context, actor access.Actor, employeeID string) error {
	if actor.IsHR() || actor.IsEmployee(employeeID) {
		return nil
	}
	if actor.EmployeeID != "" {
		ok, err := s.directory.IsInChain(ctx, actor.EmployeeID, employeeID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return apperr.Forbidden("not allowed to access this employee's leave")
}

func (s *Service) Submit(ctx context.Context, actor access.Actor, in SubmitInput) (*LeaveRequest, error) {
	if in.EmployeeID == "" {
		in.EmployeeID = actor.EmployeeID
	}
	if in.EmployeeID == "" {
		return nil, apperr.Validation("employeeId", "is required")
	}
	if !actor.IsEmployee(in.EmployeeID) && !actor.IsHR() {
		return nil, apperr.Forbidden("cannot submit leave for another employee")
	}
	emp, err := s.directory.Lookup(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp.Status == core.StatusTerminated {
		return nil, apperr.InvalidState("employee_terminated", "employee is terminated")
	}
	lt, err := s.store.GetType(ctx, in.LeaveTypeID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("leaveTypeId", "leave type does not exist")
		}
		return nil, err
	}
	if !lt.Active {
		return nil, apperr.Validation("leaveTypeId", "leave type is inactive")
	}
	start, end := dayOf(in.StartDate), dayOf(in.EndDate)
	days, err := CalculateRequestDays(start, end, in.StartHalf, in.EndHalf)
	if err != nil {
		switch {
		case errors.Is(err, ErrEndBeforeStart):
			return nil, apperr.Validation("endDate", "must not be before startDate")
		case errors.Is(err, ErrSpansYears):
			return nil, apperr.Validation("endDate", "must be in the same year as startDate")
		default:
			return nil, apperr.Validation("endHalf", "half-day selection leaves no working time")
		}
	}

	req := &LeaveRequest{
		EmployeeID:  in.EmployeeID,
		LeaveTypeID: lt.ID,
		StartDate:   start,
		EndDate:     end,
		StartHalf:   in.StartHalf,
		EndHalf:     in.EndHalf,
		Days:        days,
		Reason:      strings.TrimSpace(in.Reason),
		Status:      StatusPending,
	}
	autoApprove := !lt.RequiresApproval
	if autoApprove {
		now := s.now()
		req.Status = StatusApproved
		req.DecidedAt = &now
		req.DecisionNote = "approved automatically"
	}

	err = s.store.Transaction(ctx, func(st *Store) error {
		overlap, err := st.HasOverlap(ctx, in.EmployeeID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return apperr.Conflict("leave_overlap", "request overlaps an existing pending or approved request")
		}
		balance, err := st.LockBalance(ctx, in.EmployeeID, lt.ID, start.Year())
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if lt.Paid {
			if balance == nil {
				return apperr.InvalidState("no_balance", "no leave balance allocated for this year")
			}
			if balance.Remaining() < days {
				return apperr.InvalidState("insufficient_balance", "not enough leave balance remaining")
			}
		}
		if err := st.CreateRequest(ctx, req); err != nil {
			return err
		}
		if balance == nil {
			return nil
		}
		if autoApprove {
			return st.AdjustBalance(ctx, balance.ID, 0, days)
		}
		return st.AdjustBalance(ctx, balance.ID, days, 0)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, "leave.request.submit", "leave_request", req.ID, nil, req)
	s.events.Publish(ctx, events.NewEvent(events.LeaveSubmitted, req.EmployeeID, actor.UserID, requestPayload(req)))
	if autoApprove {
		s.events.Publish(ctx, events.NewEvent(events.LeaveApproved, req.EmployeeID, actor.UserID, requestPayload(req)))
	} else if emp.ManagerID != nil {
		s.notify(ctx, *emp.ManagerID, NotificationSubmitted, map[string]any{
			"employeeName": emp.FullName(),
			"startDate":    start.Format("2006-01-02"),
			"endDate":      end.Format("2006-01-02"),
			"days":         days,
			"requestId":    req.ID,
		})
	}
	return req, nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (*LeaveRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeEmployee(ctx, actor, req.EmployeeID); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) Approve(ctx context.Context, actor access.Actor, id, note string) (*LeaveRequest, error) {
	return s.decide(ctx, actor, id, StatusApproved, note)
}

func (s *Service) Reject(ctx context.Context, actor access.Actor, id, note string) (*LeaveRequest, error) {
	if strings.TrimSpace(note) == "" {
		return nil, apperr.Validation("note", "a reason is required when rejecting")
	}
	return s.decide(ctx, actor, id, StatusRejected, note)
}

func (s *Service) decide(ctx context.Context, actor access.Actor, id, decision, note string) (*LeaveRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, apperr.InvalidState("not_pending", "only pending requests can be decided")
	}
	if actor.IsEmployee(req.EmployeeID) {
		return nil, apperr.Forbidden("cannot decide your own leave request")
	}
	emp, err := s.directory.Lookup(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	isManager := actor.EmployeeID != "" && emp.ManagerID != nil && *emp.ManagerID == actor.EmployeeID
	if !actor.IsHR() && !isManager {
		return nil, apperr.Forbidden("only HR or the employee's manager can decide")
	}

	now := s.now()
	fields := map[string]any{
		"status":        decision,
		"decision_note": strings.TrimSpace(note),
		"decided_at":    now,
	}
	if actor.EmployeeID != "" {
		fields["approver_id"] = actor.EmployeeID
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		ok, err := st.TransitionRequest(ctx, id, []string{StatusPending}, fields)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("not_pending", "only pending requests can be decided")
		}
		balance, err := st.LockBalance(ctx, req.EmployeeID, req.LeaveTypeID, req.StartDate.Year())
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil
			}
			return err
		}
		if decision == StatusApproved {
			return st.AdjustBalance(ctx, balance.ID, -req.Days, req.Days)
		}
		return st.AdjustBalance(ctx, balance.ID, -req.Days, 0)
	})
	if err != nil {
		return nil, err
	}
	after, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.decisions != nil {
		s.decisions.ObserveLeaveDecision(strings.ToLower(decision))
	}
	s.audit.Record(ctx, actor, "leave.request."+strings.ToLower(decision), "leave_request", id, req, after)
	eventType, notification := events.LeaveApproved, NotificationApproved
	if decision == StatusRejected {
		eventType, notification = events.LeaveRejected, NotificationRejected
	}
	s.events.Publish(ctx, events.NewEvent(eventType, after.EmployeeID, actor.UserID, requestPayload(after)))
	s.notify(ctx, after.EmployeeID, notification, map[string]any{
		"startDate": after.StartDate.Format("2006-01-02"),
		"endDate":   after.EndDate.Format("2006-01-02"),
		"days":      after.Days,
		"note":      after.DecisionNote,
		"requestId": after.ID,
	})
	return after, nil
}

// Cancel withdraws a pending request, or an approved one that has not
// started yet, and returns its days to the balance.
func (s *Service) Cancel(ctx context.Context, actor access.Actor, id, reason string) (*LeaveRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsEmployee(req.EmployeeID) && !actor.IsHR() {
		return nil, apperr.Forbidden("only the requester or HR can cancel")
	}
	today := dayOf(s.now())
	switch req.Status {
	case StatusPending:
	case StatusApproved:
		if !req.StartDate.After(today) {
			return nil, apperr.InvalidState("leave_started", "approved leave that has started cannot be cancelled")
		}
	default:
		return nil, apperr.InvalidState("not_cancellable", "request is already "+strings.ToLower(req.Status))
	}
	fields := map[string]any{"status": StatusCancelled}
	if reason = strings.TrimSpace(reason); reason != "" {
		fields["decision_note"] = reason
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		ok, err := st.TransitionRequest(ctx, id, []string{req.Status}, fields)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("not_cancellable", "request changed concurrently")
		}
		balance, err := st.LockBalance(ctx, req.EmployeeID, req.LeaveTypeID, req.StartDate.Year())
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil
			}
			return err
		}
		if req.Status == StatusPending {
			return st.AdjustBalance(ctx, balance.ID, -req.Days, 0)
		}
		return st.AdjustBalance(ctx, balance.ID, 0, -req.Days)
	})
	if err != nil {
		return nil, err
	}
	after, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "leave.request.cancel", "leave_request", id, req, after)
	s.events.Publish(ctx, events.NewEvent(events.LeaveCancelled, after.EmployeeID, actor.UserID, requestPayload(after)))
	if !actor.IsEmployee(after.EmployeeID) {
		s.notify(ctx, after.EmployeeID, NotificationCancelled, map[string]any{
			"startDate": after.StartDate.Format("2006-01-02"),
			"endDate":   after.EndDate.Format("2006-01-02"),
			"requestId": after.ID,
		})
	}
	return after, nil
}

// Search applies visibility: HR sees everything, managers their direct
// reports when filtering by manager, everyone else only their own requests.
func (s *Service) Search(ctx context.Context, actor access.Actor, c Criteria, limit, offset int) ([]LeaveRequest, int64, error) {
	c.Status = strings.ToUpper(c.Status)
	switch {
	case actor.IsHR():
	case c.ManagerID != "":
		if c.ManagerID != actor.EmployeeID {
			return nil, 0, apperr.Forbidden("can only list requests of your own reports")
		}
	case c.EmployeeID != "":
		if err := s.authorizeEmployee(ctx, actor, c.EmployeeID); err != nil {
			return nil, 0, err
		}
	default:
		if actor.EmployeeID == "" {
			return []LeaveRequest{}, 0, nil
		}
		c.EmployeeID = actor.EmployeeID
	}
	return s.store.SearchRequests(ctx, c, limit, offset)
}

func (s *Service) PendingCount(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}

func requestPayload(r *LeaveRequest) map[string]any {
	return map[string]any{
		"requestId":   r.ID,
		"employeeId":  r.EmployeeID,
		"leaveTypeId": r.LeaveTypeID,
		"startDate":   r.StartDate.Format("2006-01-02"),
		"endDate":     r.EndDate.Format("2006-01-02"),
		"days":        r.Days,
		"status":      r.Status,
	}
}
