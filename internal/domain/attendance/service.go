package attendance

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/core"
)

// Directory resolves employees and reporting lines.
type Directory interface {
	Lookup(ctx context.Context, id string) (*core.Employee, error)
	IsInChain(ctx context.Context, managerID, employeeID string) (bool, error)
}

// Notifier delivers user-facing notifications about attendance.
type Notifier interface {
	NotifyEmployee(ctx context.Context, employeeID, notificationType string, data map[string]any)
}

type Service struct {
	store     *Store
	directory Directory
	audit     audit.Recorder
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store *Store, directory Directory, recorder audit.Recorder, notifier Notifier, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:     store,
		directory: directory,
		audit:     recorder,
		notifier:  notifier,
		log:       log.Named("attendance"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) notify(ctx context.Context, employeeID, kind string, data map[string]any) {
	if s.notifier != nil && employeeID != "" {
		s.notifier.NotifyEmployee(ctx, employeeID, kind, data)
	}
}

// subject resolves which employee a clock operation is for. Only HR may act
// on behalf of someone else.
func subject(actor access.Actor, employeeID string) (string, error) {
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if employeeID == "" {
		return "", apperr.Validation("employeeId", "caller is not linked to an employee")
	}
	if !actor.IsEmployee(employeeID) && !actor.IsHR() {
		return "", apperr.Forbidden("can only record your own attendance")
	}
	return employeeID, nil
}

func (s *Service) authorizeView(ctx context.Context, actor access.Actor, employeeID string) error {
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
	return apperr.Forbidden("not allowed to access this employee's attendance")
}

func (s *Service) ClockIn(ctx context.Context, actor access.Actor, employeeID, notes string) (*Record, error) {
	employeeID, err := subject(actor, employeeID)
	if err != nil {
		return nil, err
	}
	emp, err := s.directory.Lookup(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp.Status == core.StatusTerminated || emp.Status == core.StatusInactive {
		return nil, apperr.InvalidState("employee_not_active", "employee is not active")
	}
	now := s.now()
	r := &Record{
		EmployeeID: employeeID,
		WorkDate:   dayOf(now),
		ClockIn:    now,
		Status:     StatusOpen,
		Notes:      strings.TrimSpace(notes),
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		open, err := st.OpenRecord(ctx, employeeID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		if open != nil {
			return apperr.Conflict("already_clocked_in", "employee is already clocked in since "+open.ClockIn.Format(time.RFC3339))
		}
		return st.CreateRecord(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "attendance.clock_in", "attendance", r.ID, nil, r)
	return r, nil
}

func (s *Service) openRecord(ctx context.Context, st *Store, employeeID string) (*Record, error) {
	r, err := st.OpenRecord(ctx, employeeID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.InvalidState("not_clocked_in", "employee is not clocked in")
	}
	return r, err
}

// ClockOut ends any running break and closes the open record.
func (s *Service) ClockOut(ctx context.Context, actor access.Actor, employeeID, notes string) (*Record, error) {
	employeeID, err := subject(actor, employeeID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var id string
	err = s.store.Transaction(ctx, func(st *Store) error {
		r, err := s.openRecord(ctx, st, employeeID)
		if err != nil {
			return err
		}
		id = r.ID
		if _, err := st.EndOpenBreaks(ctx, r.ID, now); err != nil {
			return err
		}
		var note *string
		if n := strings.TrimSpace(notes); n != "" {
			note = &n
		}
		ok, err := st.CloseRecord(ctx, r.ID, StatusClosed, now, WorkedMinutes(r.ClockIn, now, r.Breaks), note)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("not_clocked_in", "employee is not clocked in")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "attendance.clock_out", "attendance", id, nil, out)
	return out, nil
}

func (s *Service) StartBreak(ctx context.Context, actor access.Actor, employeeID string) (*Record, error) {
	employeeID, err := subject(actor, employeeID)
	if err != nil {
		return nil, err
	}
	var id string
	err = s.store.Transaction(ctx, func(st *Store) error {
		r, err := s.openRecord(ctx, st, employeeID)
		if err != nil {
			return err
		}
		id = r.ID
		for _, b := range r.Breaks {
			if b.EndedAt == nil {
				return apperr.InvalidState("break_in_progress", "a break is already in progress")
			}
		}
		return st.CreateBreak(ctx, &Break{AttendanceID: r.ID, StartedAt: s.now()})
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetRecord(ctx, id)
}

func (s *Service) EndBreak(ctx context.Context, actor access.Actor, employeeID string) (*Record, error) {
	employeeID, err := subject(actor, employeeID)
	if err != nil {
		return nil, err
	}
	var id string
	err = s.store.Transaction(ctx, func(st *Store) error {
		r, err := s.openRecord(ctx, st, employeeID)
		if err != nil {
			return err
		}
		id = r.ID
		n, err := st.EndOpenBreaks(ctx, r.ID, s.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.InvalidState("no_break_in_progress", "no break is in progress")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetRecord(ctx, id)
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (*Record, error) {
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, r.EmployeeID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) window(from, to *time.Time) (time.Time, time.Time, error) {
	end := dayOf(s.now())
	if to != nil {
		end = dayOf(*to)
	}
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = dayOf(*from)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperr.Validation("to", "must not be before from")
	}
	return start, end, nil
}

// List defaults to the last 30 days.
func (s *Service) List(ctx context.Context, actor access.Actor, employeeID string, from, to *time.Time, limit, offset int) ([]Record, int64, error) {
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if employeeID == "" {
		return []Record{}, 0, nil
	}
	if err := s.authorizeView(ctx, actor, employeeID); err != nil {
		return nil, 0, err
	}
	start, end, err := s.window(from, to)
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListRecords(ctx, employeeID, start, end, limit, offset)
}

func (s *Service) Summary(ctx context.Context, actor access.Actor, employeeID string, from, to *time.Time) (*Summary, error) {
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if err := s.authorizeView(ctx, actor, employeeID); err != nil {
		return nil, err
	}
	start, end, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	records, err := s.store.RecordsBetween(ctx, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	summary := summarize(records)
	summary.EmployeeID = employeeID
	summary.From = start.Format("2006-01-02")
	summary.To = end.Format("2006-01-02")
	return &summary, nil
}

func summarize(records []Record) Summary {
	var summary Summary
	days := map[string]struct{}{}
	for _, r := range records {
		summary.Records++
		switch r.Status {
		case StatusOpen:
			summary.Open = true
			continue
		case StatusAutoClosed:
			summary.AutoClosed++
		case StatusCorrected:
			summary.Corrected++
		}
		days[r.WorkDate.Format("2006-01-02")] = struct{}{}
		summary.TotalMinutes += r.WorkedMinutes
		if r.ClockOut != nil {
			summary.BreakMinutes += int(breakDuration(r.ClockIn, *r.ClockOut, r.Breaks) / time.Minute)
		}
	}
	summary.DaysWorked = len(days)
	if summary.DaysWorked > 0 {
		summary.AverageMinutes = float64(summary.TotalMinutes) / float64(summary.DaysWorked)
	}
	return summary
}

// RequestCorrection asks for a closed record's times to be replaced.
func (s *Service) RequestCorrection(ctx context.Context, actor access.Actor, attendanceID string, in CorrectionInput) (*Correction, error) {
	var fields []apperr.FieldError
	if strings.TrimSpace(in.Reason) == "" {
		fields = append(fields, apperr.FieldError{Field: "reason", Reason: "is required"})
	}
	if in.ClockIn.IsZero() || in.ClockOut.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "clockIn", Reason: "clock in and clock out are required"})
	} else if !in.ClockOut.After(in.ClockIn) {
		fields = append(fields, apperr.FieldError{Field: "clockOut", Reason: "must be after clockIn"})
	} else if in.ClockOut.Sub(in.ClockIn) > MaxShift {
		fields = append(fields, apperr.FieldError{Field: "clockOut", Reason: "shift must not exceed 24 hours"})
	}
	if in.ClockOut.After(s.now()) {
		fields = append(fields, apperr.FieldError{Field: "clockOut", Reason: "must not be in the future"})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}
	r, err := s.store.GetRecord(ctx, attendanceID)
	if err != nil {
		return nil, err
	}
	if !actor.IsEmployee(r.EmployeeID) && !actor.IsHR() {
		return nil, apperr.Forbidden("can only correct your own attendance")
	}
	if r.Status == StatusOpen {
		return nil, apperr.InvalidState("record_open", "clock out before requesting a correction")
	}
	pending, err := s.store.PendingCorrectionExists(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperr.Conflict("correction_pending", "a correction for this record is already pending")
	}
	c := &Correction{
		AttendanceID:      r.ID,
		EmployeeID:        r.EmployeeID,
		RequestedClockIn:  in.ClockIn.UTC(),
		RequestedClockOut: in.ClockOut.UTC(),
		Reason:            strings.TrimSpace(in.Reason),
		Status:            CorrectionPending,
	}
	if err := s.store.CreateCorrection(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "attendance.correction.request", "attendance_correction", c.ID, nil, c)
	return c, nil
}

func (s *Service) authorizeDecision(ctx context.Context, actor access.Actor, c *Correction) error {
	if actor.IsEmployee(c.EmployeeID) {
		return apperr.Forbidden("cannot review your own correction")
	}
	if actor.IsHR() {
		return nil
	}
	if actor.EmployeeID != "" {
		ok, err := s.directory.IsInChain(ctx, actor.EmployeeID, c.EmployeeID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return apperr.Forbidden("only HR or the employee's manager can review corrections")
}

// ApproveCorrection applies the requested times to the record and recomputes
// worked minutes against its breaks.
func (s *Service) ApproveCorrection(ctx context.Context, actor access.Actor, id, note string) (*Correction, error) {
	c, err := s.store.GetCorrection(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(ctx, actor, c); err != nil {
		return nil, err
	}
	if c.Status != CorrectionPending {
		return nil, apperr.InvalidState("correction_decided", "correction is already "+strings.ToLower(c.Status))
	}
	err = s.store.Transaction(ctx, func(st *Store) error {
		r, err := st.GetRecord(ctx, c.AttendanceID)
		if err != nil {
			return err
		}
		ok, err := st.DecideCorrection(ctx, c.ID, s.decisionFields(actor, CorrectionApproved, note))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("correction_decided", "correction changed concurrently")
		}
		return st.UpdateRecordFields(ctx, r.ID, map[string]any{
			"clock_in":       c.RequestedClockIn,
			"clock_out":      c.RequestedClockOut,
			"work_date":      dayOf(c.RequestedClockIn),
			"worked_minutes": WorkedMinutes(c.RequestedClockIn, c.RequestedClockOut, r.Breaks),
			"status":         StatusCorrected,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.afterDecision(ctx, actor, c, NotificationCorrectionApproved)
}

func (s *Service) RejectCorrection(ctx context.Context, actor access.Actor, id, note string) (*Correction, error) {
	if strings.TrimSpace(note) == "" {
		return nil, apperr.Validation("note", "is required when rejecting")
	}
	c, err := s.store.GetCorrection(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(ctx, actor, c); err != nil {
		return nil, err
	}
	if c.Status != CorrectionPending {
		return nil, apperr.InvalidState("correction_decided", "correction is already "+strings.ToLower(c.Status))
	}
	ok, err := s.store.DecideCorrection(ctx, c.ID, s.decisionFields(actor, CorrectionRejected, note))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("correction_decided", "correction changed concurrently")
	}
	return s.afterDecision(ctx, actor, c, NotificationCorrectionRejected)
}

func (s *Service) decisionFields(actor access.Actor, status, note string) map[string]any {
	fields := map[string]any{
		"status":      status,
		"reviewed_at": s.now(),
		"review_note": strings.TrimSpace(note),
	}
	if actor.EmployeeID != "" {
		fields["reviewer_id"] = actor.EmployeeID
	}
	return fields
}

func (s *Service) afterDecision(ctx context.Context, actor access.Actor, before *Correction, kind string) (*Correction, error) {
	after, err := s.store.GetCorrection(ctx, before.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "attendance.correction."+strings.ToLower(after.Status), "attendance_correction", after.ID, before, after)
	s.notify(ctx, after.EmployeeID, kind, map[string]any{"attendanceId": after.AttendanceID, "note": after.ReviewNote})
	return after, nil
}

// ListCorrections mirrors leave visibility: HR sees all, managers their
// direct reports, everyone else their own.
func (s *Service) ListCorrections(ctx context.Context, actor access.Actor, c CorrectionCriteria, limit, offset int) ([]Correction, int64, error) {
	c.Status = strings.ToUpper(c.Status)
	if c.Status != "" && !slices.Contains([]string{CorrectionPending, CorrectionApproved, CorrectionRejected}, c.Status) {
		return nil, 0, apperr.Validation("status", "must be PENDING, APPROVED or REJECTED")
	}
	switch {
	case actor.IsHR():
	case c.ManagerID != "":
		if c.ManagerID != actor.EmployeeID {
			return nil, 0, apperr.Forbidden("can only list corrections of your own reports")
		}
	case c.EmployeeID != "":
		if err := s.authorizeView(ctx, actor, c.EmployeeID); err != nil {
			return nil, 0, err
		}
	default:
		if actor.EmployeeID == "" {
			return []Correction{}, 0, nil
		}
		c.EmployeeID = actor.EmployeeID
	}
	return s.store.SearchCorrections(ctx, c, limit, offset)
}

func (s *Service) PendingCorrections(ctx context.Context) (int64, error) {
	return s.store.CountPendingCorrections(ctx)
}

// AutoCloseStale closes records left open longer than StaleAfter, crediting
// at most a standard shift.
func (s *Service) AutoCloseStale(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.store.StaleOpenRecords(ctx, now.Add(-StaleAfter))
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, r := range stale {
		clockOut := r.ClockIn.Add(StandardShift)
		for _, b := range r.Breaks {
			if b.StartedAt.After(clockOut) {
				clockOut = b.StartedAt
			}
			if b.EndedAt != nil && b.EndedAt.After(clockOut) {
				clockOut = *b.EndedAt
			}
		}
		if clockOut.After(now) {
			clockOut = now
		}
		note := strings.TrimSpace(r.Notes + " [auto-closed]")
		var updated bool
		err := s.store.Transaction(ctx, func(st *Store) error {
			if _, err := st.EndOpenBreaks(ctx, r.ID, clockOut); err != nil {
				return err
			}
			ok, err := st.CloseRecord(ctx, r.ID, StatusAutoClosed, clockOut, WorkedMinutes(r.ClockIn, clockOut, r.Breaks), &note)
			updated = ok
			return err
		})
		if err != nil {
			s.log.Warn("auto-close failed", zap.String("attendance_id", r.ID), zap.Error(err))
			continue
		}
		if !updated {
			// closed by the employee since the scan
			continue
		}
		closed++
		s.notify(ctx, r.EmployeeID, NotificationAutoClosed, map[string]any{
			"attendanceId": r.ID,
			"workDate":     r.WorkDate.Format("2006-01-02"),
		})
	}
	if closed > 0 {
		s.log.Info("stale attendance closed", zap.Int("count", closed))
	}
	return closed, nil
}
