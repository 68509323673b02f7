package documents

import (
	"time"

	"gorm.io/gorm"

	"hrms/internal/platform/db"
)

const (
	CategoryContract    = "CONTRACT"
	CategoryID          = "ID"
	CategoryCertificate = "CERTIFICATE"
	CategoryPolicy      = "POLICY"
	CategoryOther       = "OTHER"

	KindDocument = "DOCUMENT"
	KindPhoto    = "PHOTO"

	// DefaultExpiringDays is the window used by Expiring when none is given.
	DefaultExpiringDays = 30
	maxExpiringDays     = 365
)

var Categories = []string{CategoryContract, CategoryID, CategoryCertificate, CategoryPolicy, CategoryOther}

var allowedContentTypes = map[string]string{
	"application/pdf":    ".pdf",
	"image/png":          ".png",
	"image/jpeg":         ".jpg",
	"image/gif":          ".gif",
	"image/webp":         ".webp",
	"text/plain":         ".txt",
	"text/csv":           ".csv",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
}

type File struct {
	db.Model
	OriginalName    string  `gorm:"size:255;not null" json:"originalName"`
	StoredName      string  `gorm:"size:100;not null;uniqueIndex" json:"-"`
	ContentType     string  `gorm:"size:100;not null" json:"contentType"`
	Size            int64   `gorm:"not null" json:"size"`
	Checksum        string  `gorm:"size:64;not null" json:"checksum"`
	Kind            string  `gorm:"size:16;not null" json:"kind"`
	OwnerEmployeeID *string `gorm:"size:36;index" json:"ownerEmployeeId,omitempty"`
	UploadedBy      string  `gorm:"size:36" json:"uploadedBy,omitempty"`
}

func (File) TableName() string { return "files" }

type Document struct {
	db.Model
	EmployeeID  string         `gorm:"size:36;not null;index" json:"employeeId"`
	FileID      string         `gorm:"size:36;not null" json:"fileId"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Category    string         `gorm:"size:20;not null;index" json:"category"`
	Description string         `gorm:"size:1000" json:"description,omitempty"`
	ExpiresAt   *time.Time     `gorm:"index" json:"expiresAt,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	File        *File          `gorm:"foreignKey:FileID" json:"file,omitempty"`
}

func (Document) TableName() string { return "documents" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&File{}, &Document{}}

type DocumentInput struct {
	EmployeeID  string
	Title       string
	Category    string
	Description string
	ExpiresAt   *time.Time
}

type Upload struct {
	Name        string
	ContentType string
}
