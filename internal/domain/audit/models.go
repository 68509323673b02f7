package audit

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"hrms/internal/platform/db"
)

type Log struct {
	db.Model
	ActorID    string `gorm:"size:36;index" json:"actorId"`
	Action     string `gorm:"size:100;not null;index" json:"action"`
	EntityType string `gorm:"size:64;not null;index:idx_audit_entity" json:"entityType"`
	EntityID   string `gorm:"size:64;index:idx_audit_entity" json:"entityId"`
	RequestID  string `gorm:"size:128" json:"requestId"`
	IP         string `gorm:"size:64" json:"ip"`
	Before     string `gorm:"type:text" json:"-"`
	After      string `gorm:"type:text" json:"-"`

	BeforeJSON json.RawMessage `gorm:"-" json:"before,omitempty"`
	AfterJSON  json.RawMessage `gorm:"-" json:"after,omitempty"`
}

func (Log) TableName() string { return "audit_logs" }

func (l *Log) AfterFind(*gorm.DB) error {
	if l.Before != "" {
		l.BeforeJSON = json.RawMessage(l.Before)
	}
	if l.After != "" {
		l.AfterJSON = json.RawMessage(l.After)
	}
	return nil
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	From       *time.Time
	To         *time.Time
}
