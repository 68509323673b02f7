package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrms/internal/domain/attendance"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/core"
	"hrms/internal/domain/documents"
	"hrms/internal/domain/leave"
	"hrms/internal/domain/notifications"
	"hrms/internal/domain/payroll"
	"hrms/internal/domain/performance"
	"hrms/internal/domain/reports"
	"hrms/internal/platform/config"
	"hrms/internal/platform/crypto"
	"hrms/internal/platform/email"
	"hrms/internal/platform/events"
	"hrms/internal/platform/jobs"
	"hrms/internal/platform/metrics"
	"hrms/internal/platform/realtime"
	"hrms/internal/platform/revocation"
	"hrms/internal/platform/storage"
)

// Infra holds the outbound adapters shared by the services.
type Infra struct {
	Revoked   revocation.Store
	Publisher events.Publisher
	Mailer    email.Mailer
	Blobs     *storage.Local
	Hub       *realtime.Hub
	Metrics   *metrics.Metrics
}

type Services struct {
	Audit         *audit.Service
	Auth          *auth.Service
	Core          *core.Service
	Leave         *leave.Service
	Payroll       *payroll.Service
	Performance   *performance.Service
	Attendance    *attendance.Service
	Documents     *documents.Service
	Notifications *notifications.Service
	Reports       *reports.Service
	Jobs          *jobs.Service
	Hub           *realtime.Hub
	Metrics       *metrics.Metrics
}

// NewInfra picks the Redis and Kafka adapters when configured and falls back
// to in-process ones otherwise.
func NewInfra(ctx context.Context, cfg config.Config, m *metrics.Metrics, log *zap.Logger) (*Infra, error) {
	infra := &Infra{
		Mailer:  email.New(cfg, log),
		Hub:     realtime.NewHub(log),
		Metrics: m,
	}

	if cfg.RedisURL != "" {
		store, err := revocation.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.Revoked = store
	} else {
		log.Warn("REDIS_URL not set, revoked tokens are kept in memory")
		infra.Revoked = revocation.NewMemory()
	}

	if len(cfg.KafkaBrokers) > 0 {
		infra.Publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log, m)
	} else {
		infra.Publisher = events.Noop{}
	}

	blobs, err := storage.NewLocal(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	infra.Blobs = blobs
	return infra, nil
}

// NewServices wires the domain services to each other and to infra.
func NewServices(gdb *gorm.DB, cfg config.Config, infra *Infra, log *zap.Logger) (*Services, error) {
	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, err
	}
	if !sealer.Configured() {
		log.Warn("DATA_ENCRYPTION_KEY not set, sensitive fields are stored unencrypted")
	}

	recorder := audit.NewService(gdb, log)
	authSvc := auth.NewService(auth.NewStore(gdb), auth.Options{
		JWTSecret:       cfg.JWTSecret,
		Issuer:          cfg.JWTIssuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		AllowSelfSignup: cfg.AllowSelfSignup,
	}, sealer, infra.Revoked, infra.Mailer, recorder, infra.Metrics, log)

	coreSvc := core.NewService(core.NewStore(gdb), sealer, infra.Publisher, recorder, authSvc, log)
	notifySvc := notifications.NewService(notifications.NewStore(gdb), authSvc, coreSvc, infra.Mailer, infra.Hub, recorder, log)
	docSvc := documents.NewService(documents.NewStore(gdb), infra.Blobs, coreSvc, recorder, cfg.MaxUploadBytes, log)
	coreSvc.SetPhotoStore(docSvc)

	return &Services{
		Audit:         recorder,
		Auth:          authSvc,
		Core:          coreSvc,
		Leave:         leave.NewService(leave.NewStore(gdb), coreSvc, infra.Publisher, recorder, notifySvc, infra.Metrics, log),
		Payroll:       payroll.NewService(payroll.NewStore(gdb), coreSvc, infra.Publisher, recorder, log),
		Performance:   performance.NewService(performance.NewStore(gdb), coreSvc, recorder, notifySvc, log),
		Attendance:    attendance.NewService(attendance.NewStore(gdb), coreSvc, recorder, notifySvc, log),
		Documents:     docSvc,
		Notifications: notifySvc,
		Reports:       reports.NewService(reports.NewStore(gdb), recorder, log),
		Jobs:          jobs.New(gdb, log, infra.Metrics),
		Hub:           infra.Hub,
		Metrics:       infra.Metrics,
	}, nil
}
