// Package audit records who changed what. Recording never fails the
// operation being audited; storage errors are logged.
package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrms/internal/domain/access"
	"hrms/internal/platform/db"
)

type Recorder interface {
	Record(ctx context.Context, actor access.Actor, action, entityType, entityID string, before, after any)
}

type Nop struct{}

func (Nop) Record(context.Context, access.Actor, string, string, string, any, any) {}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(gdb *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: gdb, log: log.Named("audit")}
}

func (s *Service) Record(ctx context.Context, actor access.Actor, action, entityType, entityID string, before, after any) {
	entry := Log{
		ActorID:    actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  actor.RequestID,
		IP:         actor.IP,
		Before:     s.encode(before),
		After:      s.encode(after),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Error("audit record failed", zap.Error(err), zap.String("action", action), zap.String("entity_id", entityID))
	}
}

func (s *Service) encode(value any) string {
	if value == nil {
		return ""
	}
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("audit payload marshal failed", zap.Error(err))
		return ""
	}
	return string(payload)
}

func (s *Service) query(ctx context.Context, filter Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&Log{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", filter.To.AddDate(0, 0, 1))
	}
	return q
}

func (s *Service) Search(ctx context.Context, filter Filter, limit, offset int) ([]Log, int64, error) {
	var total int64
	if err := s.query(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []Log
	err := db.Paginate(s.query(ctx, filter).Order("created_at DESC"), limit, offset).Find(&logs).Error
	return logs, total, err
}

const exportBatch = 500

// ExportCSV streams matching entries, newest first, without before/after payloads.
func (s *Service) ExportCSV(ctx context.Context, filter Filter, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "created_at", "actor_id", "action", "entity_type", "entity_id", "request_id", "ip"}); err != nil {
		return err
	}
	for offset := 0; ; offset += exportBatch {
		var batch []Log
		if err := s.query(ctx, filter).Order("created_at DESC").Order("id").Limit(exportBatch).Offset(offset).Find(&batch).Error; err != nil {
			return err
		}
		for _, entry := range batch {
			if err := cw.Write([]string{
				entry.ID,
				entry.CreatedAt.UTC().Format(time.RFC3339),
				entry.ActorID,
				entry.Action,
				entry.EntityType,
				entry.EntityID,
				entry.RequestID,
				entry.IP,
			}); err != nil {
				return err
			}
		}
		if len(batch) < exportBatch {
			break
		}
	}
	cw.Flush()
	return cw.Error()
}
