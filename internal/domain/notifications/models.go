package notifications

import (
	"time"

	"hrms/internal/platform/db"
)

type Notification struct {
	db.Model
	UserID  string     `gorm:"size:36;not null;index" json:"userId"`
	Type    string     `gorm:"size:64;not null" json:"type"`
	Title   string     `gorm:"size:255;not null" json:"title"`
	Message string     `gorm:"type:text" json:"message"`
	Link    string     `gorm:"size:500" json:"link,omitempty"`
	ReadAt  *time.Time `gorm:"index" json:"readAt,omitempty"`
}

func (Notification) TableName() string { return "notifications" }

type Template struct {
	db.Model
	Code    string `gorm:"size:64;not null;uniqueIndex" json:"code"`
	Subject string `gorm:"size:255;not null" json:"subject"`
	Body    string `gorm:"type:text;not null" json:"body"`
	Channel string `gorm:"size:16;not null" json:"channel"`
	Active  bool   `gorm:"not null" json:"active"`
}

func (Template) TableName() string { return "notification_templates" }

type Preferences struct {
	UserID       string    `gorm:"primaryKey;size:36" json:"userId"`
	EmailEnabled bool      `gorm:"not null" json:"emailEnabled"`
	InAppEnabled bool      `gorm:"not null" json:"inAppEnabled"`
	MutedTypes   []string  `gorm:"serializer:json;type:text" json:"mutedTypes"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Preferences) TableName() string { return "notification_preferences" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&Notification{}, &Template{}, &Preferences{}}

type TemplateInput struct {
	Code    string
	Subject string
	Body    string
	Channel string
	Active  *bool
}

type PreferencesInput struct {
	EmailEnabled *bool
	InAppEnabled *bool
	MutedTypes   []string
}
