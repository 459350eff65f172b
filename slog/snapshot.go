package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/cdbf"
)

// Ensure LoggingSnapshotService implements cdbf.SnapshotService.
var _ cdbf.SnapshotService = (*LoggingSnapshotService)(nil)

// LoggingSnapshotService wraps a SnapshotService with logging.
type LoggingSnapshotService struct {
	next   cdbf.SnapshotService
	logger *slog.Logger
}

// NewLoggingSnapshotService creates a new LoggingSnapshotService.
func NewLoggingSnapshotService(next cdbf.SnapshotService, logger *slog.Logger) *LoggingSnapshotService {
	return &LoggingSnapshotService{next: next, logger: logger}
}

// CreateSnapshot delegates to the wrapped service and logs the operation.
func (s *LoggingSnapshotService) CreateSnapshot(ctx context.Context, snap *cdbf.Snapshot) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("create snapshot",
			"name", snap.Name,
			"id", snap.ID,
			"generations", len(snap.Chain.Generations),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CreateSnapshot(ctx, snap)
}

// FindSnapshotByID delegates to the wrapped service and logs the operation.
func (s *LoggingSnapshotService) FindSnapshotByID(ctx context.Context, id string) (snap *cdbf.Snapshot, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find snapshot",
			"id", id,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindSnapshotByID(ctx, id)
}

// FindSnapshotByName delegates to the wrapped service and logs the operation.
func (s *LoggingSnapshotService) FindSnapshotByName(ctx context.Context, name string) (snap *cdbf.Snapshot, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find snapshot",
			"name", name,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindSnapshotByName(ctx, name)
}

// FindSnapshots delegates to the wrapped service and logs the operation.
func (s *LoggingSnapshotService) FindSnapshots(ctx context.Context, filter cdbf.SnapshotFilter) (snaps []*cdbf.Snapshot, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find snapshots",
			"count", len(snaps),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindSnapshots(ctx, filter)
}

// DeleteSnapshot delegates to the wrapped service and logs the operation.
func (s *LoggingSnapshotService) DeleteSnapshot(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("delete snapshot",
			"id", id,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DeleteSnapshot(ctx, id)
}
