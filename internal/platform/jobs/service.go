// Package jobs schedules background work with cron expressions and records
// every run in job_runs.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrms/internal/apperr"
	"hrms/internal/platform/db"
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

const runTimeout = 30 * time.Minute

type JobRun struct {
	db.Model
	JobType     string     `gorm:"size:64;not null;index" json:"jobType"`
	Status      string     `gorm:"size:20;not null" json:"status"`
	Details     string     `gorm:"type:text" json:"-"`
	StartedAt   time.Time  `gorm:"not null" json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	DetailsJSON json.RawMessage `gorm:"-" json:"details,omitempty"`
}

func (JobRun) TableName() string { return "job_runs" }

func (r *JobRun) AfterFind(*gorm.DB) error {
	if r.Details != "" {
		r.DetailsJSON = json.RawMessage(r.Details)
	}
	return nil
}

// Func returns a JSON-serialisable summary of what it did.
type Func func(ctx context.Context) (any, error)

// Recorder receives run outcomes, typically the metrics registry.
type Recorder interface {
	ObserveJobRun(job, status string, duration time.Duration)
}

type registration struct {
	name string
	spec string
	run  Func
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	recorder Recorder
	cron     *cron.Cron

	mu   sync.Mutex
	jobs map[string]registration
}

func New(gdb *gorm.DB, log *zap.Logger, recorder Recorder) *Service {
	return &Service{
		db:       gdb,
		log:      log.Named("jobs"),
		recorder: recorder,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		jobs:     map[string]registration{},
	}
}

// Register adds a job. An empty spec registers a job that only runs on demand.
func (s *Service) Register(name, spec string, run Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.runScheduled(name) }); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
	}
	s.jobs[name] = registration{name: name, spec: spec, run: run}
	return nil
}

func (s *Service) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Strings("jobs", s.Names()))
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Service) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow executes a registered job synchronously.
func (s *Service) RunNow(ctx context.Context, name string) (JobRun, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return JobRun{}, apperr.NotFound("job")
	}
	// a manual run outlives the request that started it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)
	defer cancel()
	return s.execute(ctx, job)
}

func (s *Service) runScheduled(name string) {
	s.mu.Lock()
	job := s.jobs[name]
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.execute(ctx, job); err != nil {
		s.log.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
	}
}

func (s *Service) execute(ctx context.Context, job registration) (JobRun, error) {
	run := JobRun{JobType: job.name, Status: StatusRunning, StartedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		s.log.Warn("job run insert failed", zap.String("job", job.name), zap.Error(err))
	}

	details, runErr := job.run(ctx)
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Status = StatusCompleted
	if runErr != nil {
		run.Status = StatusFailed
		details = map[string]any{"error": runErr.Error()}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		s.log.Warn("job details marshal failed", zap.String("job", job.name), zap.Error(err))
		payload = []byte("{}")
	}
	run.Details = string(payload)
	run.DetailsJSON = payload

	if run.ID != "" {
		if err := s.db.WithContext(ctx).Model(&JobRun{}).Where("id = ?", run.ID).Updates(map[string]any{
			"status":       run.Status,
			"details":      run.Details,
			"completed_at": run.CompletedAt,
		}).Error; err != nil {
			s.log.Warn("job run update failed", zap.String("job", job.name), zap.Error(err))
		}
	}
	if s.recorder != nil {
		s.recorder.ObserveJobRun(job.name, run.Status, completed.Sub(run.StartedAt))
	}
	s.log.Info("job finished", zap.String("job", job.name), zap.String("status", run.Status))
	return run, runErr
}

// ListRuns returns the most recent runs, optionally for one job type.
func (s *Service) ListRuns(ctx context.Context, jobType string, limit, offset int) ([]JobRun, int64, error) {
	q := s.db.WithContext(ctx).Model(&JobRun{})
	if jobType != "" {
		q = q.Where("job_type = ?", jobType)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var runs []JobRun
	if err := db.Paginate(q.Order("started_at DESC"), limit, offset).Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
