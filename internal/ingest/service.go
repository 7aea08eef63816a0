package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/david/grantdesk/internal/models"
)

// RunLocker grants exclusive, cross-process ownership of a named job.
// ok is false when another holder has it.
type RunLocker interface {
	TryLock(ctx context.Context, name string) (release func(context.Context) error, ok bool, err error)
}

// RunLog records the lifecycle of each sync run.
type RunLog interface {
	Start(ctx context.Context, source string) (int64, error)
	Complete(ctx context.Context, runID int64, result models.SyncResult) error
	Fail(ctx context.Context, runID int64, errMsg string) error
}

// SyncService is the entry point every trigger calls. Concurrent callers in
// one process share a single run; runs in other processes are refused with
// ErrSyncInProgress while the lock is held.
type SyncService struct {
	syncer *Syncer
	locker RunLocker
	runs   RunLog
	group  singleflight.Group
}

// NewSyncService wires a syncer to its lock and run log. locker and runs may be nil.
func NewSyncService(syncer *Syncer, locker RunLocker, runs RunLog) *SyncService {
	return &SyncService{syncer: syncer, locker: locker, runs: runs}
}

// RunSync performs a full refresh. Once started the run is not cancelled by
// the caller's context.
func (s *SyncService) RunSync(ctx context.Context) (models.SyncResult, error) {
	ctx = context.WithoutCancel(ctx)

	v, err, shared := s.group.Do(s.syncer.Source.ID, func() (any, error) {
		return s.run(ctx)
	})
	if shared {
		zap.L().Info("sync: joined in-flight run", zap.String("source", s.syncer.Source.ID))
	}
	if err != nil {
		return models.SyncResult{}, err
	}
	return v.(models.SyncResult), nil
}

func (s *SyncService) run(ctx context.Context) (models.SyncResult, error) {
	source := s.syncer.Source.ID

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, "grant_sync:"+source)
		if err != nil {
			return models.SyncResult{}, eris.Wrap(err, "sync: acquire lock")
		}
		if !ok {
			return models.SyncResult{}, ErrSyncInProgress
		}
		defer func() {
			if err := release(ctx); err != nil {
				zap.L().Warn("sync: release lock", zap.String("source", source), zap.Error(err))
			}
		}()
	}

	var runID int64
	if s.runs != nil {
		id, err := s.runs.Start(ctx, source)
		if err != nil {
			zap.L().Warn("sync: could not record run start", zap.String("source", source), zap.Error(err))
		}
		runID = id
	}

	zap.L().Info("sync: starting", zap.String("source", source), zap.Int64("run_id", runID))

	result, err := s.syncer.Run(ctx)
	if err != nil {
		zap.L().Error("sync: failed",
			zap.String("source", source),
			zap.Int("processed", result.Total),
			zap.Error(err),
		)
		if s.runs != nil && runID != 0 {
			if logErr := s.runs.Fail(ctx, runID, err.Error()); logErr != nil {
				zap.L().Warn("sync: could not record run failure", zap.Error(logErr))
			}
		}
		return models.SyncResult{}, err
	}

	if s.runs != nil && runID != 0 {
		if logErr := s.runs.Complete(ctx, runID, result); logErr != nil {
			zap.L().Warn("sync: could not record run completion", zap.Error(logErr))
		}
	}

	zap.L().Info("sync: completed",
		zap.String("source", source),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("total", result.Total),
	)
	return result, nil
}
