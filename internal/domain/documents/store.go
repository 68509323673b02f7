package documents

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

func (s *Store) CreateFile(ctx context.Context, f *File) error {
	return db.TranslateError(s.db.WithContext(ctx).Create(f).Error, "file")
}

func (s *Store) GetFile(ctx context.Context, id string) (*File, error) {
	var f File
	if err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "file")
	}
	return &f, nil
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&File{}, "id = ?", id).Error
}

func (s *Store) CreateDocument(ctx context.Context, d *Document) error {
	return db.TranslateError(s.db.WithContext(ctx).Omit("File").Create(d).Error, "document")
}

func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	if err := s.db.WithContext(ctx).Preload("File").First(&d, "id = ?", id).Error; err != nil {
		return nil, db.TranslateError(err, "document")
	}
	return &d, nil
}

// SoftDeleteDocument sets deleted_at; the stored file is kept.
func (s *Store) SoftDeleteDocument(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Document{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.TranslateError(gorm.ErrRecordNotFound, "document")
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, employeeID, category string, limit, offset int) ([]Document, int64, error) {
	q := s.db.WithContext(ctx).Model(&Document{})
	if employeeID != "" {
		q = q.Where("employee_id = ?", employeeID)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Document
	err := db.Paginate(q.Preload("File").Order("created_at DESC").Order("id"), limit, offset).Find(&out).Error
	return out, total, err
}

func (s *Store) ExpiringDocuments(ctx context.Context, from, to time.Time) ([]Document, error) {
	var out []Document
	err := s.db.WithContext(ctx).Preload("File").
		Where("expires_at IS NOT NULL AND expires_at >= ? AND expires_at <= ?", from, to).
		Order("expires_at").Find(&out).Error
	return out, err
}

// FileInUse reports whether a document that has not been deleted points at the file.
func (s *Store) FileInUse(ctx context.Context, fileID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Document{}).Where("file_id = ?", fileID).Count(&n).Error
	return n > 0, err
}
