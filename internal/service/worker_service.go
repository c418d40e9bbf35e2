package service

import (
	"context"
	"fmt"
	"time"

	"fad-monitoring-backend/internal/metrics"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/storage"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// WorkerConfig holds cron schedules and retention windows for maintenance jobs
type WorkerConfig struct {
	SessionPurgeSpec string
	OrphanSweepSpec  string
	SessionRetention time.Duration
	OrphanGrace      time.Duration
	JobTimeout       time.Duration
}

// WorkerService runs periodic cleanup of stale sessions and unreferenced upload files
type WorkerService struct {
	sessionRepo *repository.SessionRepository
	photoRepo   *repository.PhotoRepository
	infoRepo    *repository.ProgramInfoRepository
	store       storage.Store
	cfg         WorkerConfig
	cron        *cron.Cron
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewWorkerService(
	sessionRepo *repository.SessionRepository,
	photoRepo *repository.PhotoRepository,
	infoRepo *repository.ProgramInfoRepository,
	store storage.Store,
	cfg WorkerConfig,
	log logrus.FieldLogger,
) *WorkerService {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &WorkerService{
		sessionRepo: sessionRepo,
		photoRepo:   photoRepo,
		infoRepo:    infoRepo,
		store:       store,
		cfg:         cfg,
		log:         log.WithField("component", "worker"),
		now:         time.Now,
	}
}

// Start schedules the jobs. Empty specs disable the corresponding job.
func (w *WorkerService) Start() error {
	logger := cronLogger{log: w.log}
	w.cron = cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (int64, error)
	}{
		{"session_purge", w.cfg.SessionPurgeSpec, w.PurgeSessions},
		{"orphan_sweep", w.cfg.OrphanSweepSpec, w.SweepOrphans},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		job := job
		if _, err := w.cron.AddFunc(job.spec, func() { w.runJob(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.name, job.spec, err)
		}
	}

	w.cron.Start()
	w.log.Info("Background worker started")
	return nil
}

// Stop waits for running jobs to finish or ctx to expire
func (w *WorkerService) Stop(ctx context.Context) {
	if w.cron == nil {
		return
	}
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
	w.log.Info("Background worker stopped")
}

// cronLogger routes scheduler messages and recovered job panics through logrus
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

func (w *WorkerService) runJob(name string, run func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
	defer cancel()

	removed, err := run(ctx)
	entry := w.log.WithFields(logrus.Fields{"job": name, "removed": removed})
	if err != nil {
		entry.WithError(err).Error("maintenance job failed")
		return
	}
	metrics.RecordMaintenance(name, removed)
	if removed > 0 {
		entry.Info("maintenance job finished")
	}
}

// PurgeSessions deletes expired sessions and sessions revoked longer ago than the retention window
func (w *WorkerService) PurgeSessions(ctx context.Context) (int64, error) {
	now := w.now()
	return w.sessionRepo.PurgeStaleSessions(ctx, now, now.Add(-w.cfg.SessionRetention))
}

// SweepOrphans removes stored files no photo or program info image references.
// Files younger than the grace period are kept so in-flight uploads survive.
func (w *WorkerService) SweepOrphans(ctx context.Context) (int64, error) {
	files, err := w.store.List()
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}

	referenced := map[string]struct{}{}
	for _, list := range []func(context.Context) ([]string, error){w.photoRepo.ReferencedFilenames, w.infoRepo.ReferencedFilenames} {
		names, err := list(ctx)
		if err != nil {
			return 0, fmt.Errorf("load referenced files: %w", err)
		}
		for _, name := range names {
			referenced[name] = struct{}{}
		}
	}

	cutoff := w.now().Add(-w.cfg.OrphanGrace)
	var removed int64
	for _, f := range files {
		if _, ok := referenced[f.Name]; ok || f.ModTime.After(cutoff) {
			continue
		}
		if err := w.store.Remove(f.Name); err != nil {
			w.log.WithError(err).WithField("file", f.Name).Warn("failed to remove orphaned file")
			continue
		}
		removed++
	}
	return removed, nil
}
