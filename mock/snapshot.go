package mock

import (
	"context"

	"github.com/fwojciec/cdbf"
)

var _ cdbf.SnapshotService = (*SnapshotService)(nil)

// SnapshotService is a mock implementation of cdbf.SnapshotService.
type SnapshotService struct {
	CreateSnapshotFn     func(ctx context.Context, snap *cdbf.Snapshot) error
	FindSnapshotByIDFn   func(ctx context.Context, id string) (*cdbf.Snapshot, error)
	FindSnapshotByNameFn func(ctx context.Context, name string) (*cdbf.Snapshot, error)
	FindSnapshotsFn      func(ctx context.Context, filter cdbf.SnapshotFilter) ([]*cdbf.Snapshot, error)
	DeleteSnapshotFn     func(ctx context.Context, id string) error
}

func (s *SnapshotService) CreateSnapshot(ctx context.Context, snap *cdbf.Snapshot) error {
	return s.CreateSnapshotFn(ctx, snap)
}

func (s *SnapshotService) FindSnapshotByID(ctx context.Context, id string) (*cdbf.Snapshot, error) {
	return s.FindSnapshotByIDFn(ctx, id)
}

func (s *SnapshotService) FindSnapshotByName(ctx context.Context, name string) (*cdbf.Snapshot, error) {
	return s.FindSnapshotByNameFn(ctx, name)
}

func (s *SnapshotService) FindSnapshots(ctx context.Context, filter cdbf.SnapshotFilter) ([]*cdbf.Snapshot, error) {
	return s.FindSnapshotsFn(ctx, filter)
}

func (s *SnapshotService) DeleteSnapshot(ctx context.Context, id string) error {
	return s.DeleteSnapshotFn(ctx, id)
}
