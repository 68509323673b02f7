package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrms/internal/platform/db"
)

type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) CreateNotification(ctx context.Context, n *Notification) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(n).Error, "notification")
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, int64, error) {
	q := s.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Notification
	err := db.Paginate(q.Order("created_at DESC").Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ? AND read_at IS NULL", userID).Count(&n).Error
	return n, err
}

// MarkRead reports false when no notification with id belongs to userID.
func (s *Store) MarkRead(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).Update("read_at", at)
	if res.Error != nil || res.RowsAffected == 1 {
		return res.RowsAffected == 1, res.Error
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error
	return n > 0, err
}

func (s *Store) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).Update("read_at", at)
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteNotification(ctx context.Context, userID, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Notification{})
	return res.RowsAffected == 1, res.Error
}

func (s *Store) CreateTemplate(ctx context.Context, t *Template) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(t).Error, "notification template")
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var t Template
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "notification template")
	}
	return &t, nil
}

func (s *Store) ActiveTemplate(ctx context.Context, code string) (*Template, error) {
	var t Template
	if err := s.db.WithContext(ctx).Where("code = ? AND active = ?", code, true).First(&t).Error; err != nil {
		return nil, db.TranslateError(err, "notification template")
	}
	return &t, nil
}

func (s *Store) TemplateCodeTaken(ctx context.Context, code, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&Template{}).Where("code = ?", code)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) SaveTemplate(ctx context.Context, t *Template) error {
	return db.TranslateError(s.db.WithContext(ctx).Save(t).Error, "notification template")
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Template{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "notification template")
	}
	return nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	var out []Template
	err := s.db.WithContext(ctx).Order("code").Find(&out).Error
	return out, err
}

func (s *Store) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var p Preferences
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, db.TranslateError(err, "notification preferences")
	}
	return &p, nil
}

func (s *Store) UpsertPreferences(ctx context.Context, p *Preferences) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email_enabled", "in_app_enabled", "muted_types", "updated_at"}),
	}).Create(p).Error
}
