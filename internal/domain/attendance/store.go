package attendance

import (
	"context"
	"time"

	"gorm.io/gorm"

	"hrms/internal/platform/db"
)

type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) Transaction(ctx context.Context, fn func(st *Store) error) error {
	return db.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) CreateRecord(ctx context.Context, r *Record) error {
	return db.TranslateError(s.db.WithContext(ctx).Omit("Breaks").Create(r).Error, "attendance record")
}

func (s *Store) GetRecord(ctx context.Context, id string) (*Record, error) {
	var r Record
	err := s.db.WithContext(ctx).Preload("Breaks", func(q *gorm.DB) *gorm.DB { return q.Order("started_at") }).
		First(&r, "id = ?", id).Error
	if err != nil {
		return nil, db.TranslateError(err, "attendance record")
	}
	return &r, nil
}

// OpenRecord returns the employee's open record, if any.
func (s *Store) OpenRecord(ctx context.Context, employeeID string) (*Record, error) {
	var r Record
	err := s.db.WithContext(ctx).Preload("Breaks", func(q *gorm.DB) *gorm.DB { return q.Order("started_at") }).
		Where("employee_id = ? AND status = ?", employeeID, StatusOpen).
		First(&r).Error
	if err != nil {
		return nil, db.TranslateError(err, "open attendance record")
	}
	return &r, nil
}

func (s *Store) UpdateRecordFields(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Record{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "attendance record")
	}
	return nil
}

// CloseRecord moves an open record to status; it reports false when the
// record was no longer open.
func (s *Store) CloseRecord(ctx context.Context, id, status string, clockOut time.Time, worked int, notes *string) (bool, error) {
	fields := map[string]any{"status": status, "clock_out": clockOut, "worked_minutes": worked}
	if notes != nil {
		fields["notes"] = *notes
	}
	res := s.db.WithContext(ctx).Model(&Record{}).Where("id = ? AND status = ?", id, StatusOpen).Updates(fields)
	return res.RowsAffected == 1, res.Error
}

func (s *Store) CreateBreak(ctx context.Context, b *Break) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(b).Error, "break")
}

func (s *Store) EndOpenBreaks(ctx context.Context, attendanceID string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Break{}).
		Where("attendance_id = ? AND ended_at IS NULL", attendanceID).
		Update("ended_at", at)
	return res.RowsAffected, res.Error
}

func (s *Store) ListRecords(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]Record, int64, error) {
	q := s.db.WithContext(ctx).Model(&Record{}).
		Where("employee_id = ? AND work_date >= ? AND work_date <= ?", employeeID, from, to).
		Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Record
	err := db.Paginate(q.Preload("Breaks").Order("clock_in DESC"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) RecordsBetween(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error) {
	var out []Record
	err := s.db.WithContext(ctx).Preload("Breaks").
		Where("employee_id = ? AND work_date >= ? AND work_date <= ?", employeeID, from, to).
		Order("clock_in").Find(&out).Error
	return out, err
}

// StaleOpenRecords lists open records clocked in before cutoff.
func (s *Store) StaleOpenRecords(ctx context.Context, cutoff time.Time) ([]Record, error) {
	var out []Record
	err := s.db.WithContext(ctx).Preload("Breaks").
		Where("status = ? AND clock_in < ?", StatusOpen, cutoff).
		Order("clock_in").Find(&out).Error
	return out, err
}

func (s *Store) CreateCorrection(ctx context.Context, c *Correction) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(c).Error, "correction")
}

func (s *Store) GetCorrection(ctx context.Context, id string) (*Correction, error) {
	var c Correction
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "correction")
	}
	return &c, nil
}

func (s *Store) PendingCorrectionExists(ctx context.Context, attendanceID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Correction{}).
		Where("attendance_id = ? AND status = ?", attendanceID, CorrectionPending).Count(&n).Error
	return n > 0, err
}

func (s *Store) DecideCorrection(ctx context.Context, id string, fields map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Correction{}).Where("id = ? AND status = ?", id, CorrectionPending).Updates(fields)
	return res.RowsAffected == 1, res.Error
}

func (s *Store) SearchCorrections(ctx context.Context, c CorrectionCriteria, limit, offset int) ([]Correction, int64, error) {
	q := s.db.WithContext(ctx).Model(&Correction{})
	if c.EmployeeID != "" {
		q = q.Where("employee_id = ?", c.EmployeeID)
	}
	if c.Status != "" {
		q = q.Where("status = ?", c.Status)
	}
	if c.ManagerID != "" {
		q = q.Where("employee_id IN (?)", s.db.Table("employees").Select("id").Where("manager_id = ?", c.ManagerID))
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Correction
	err := db.Paginate(q.Order("created_at DESC").Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) CountPendingCorrections(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Correction{}).Where("status = ?", CorrectionPending).Count(&n).Error
	return n, err
}
