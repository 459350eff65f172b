package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ cdbf.SnapshotService = (*SnapshotService)(nil)

// SnapshotService implements cdbf.SnapshotService using SQLite.
// Each generation is stored as one row with its cells in a BLOB.
type SnapshotService struct {
	db *DB
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(db *DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// CreateSnapshot stores snap and its generations in one transaction.
func (s *SnapshotService) CreateSnapshot(ctx context.Context, snap *cdbf.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id := uuid.New().String()
	createdAt := time.Now().UTC()
	cfg := snap.Chain.Config

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, indexer, initial_capacity, error_rate, expiration, growth, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, snap.Name, snap.Indexer, int64(cfg.InitialCapacity), cfg.ErrorRate, int64(cfg.Expiration),
		int64(cfg.Growth), snap.Chain.Active, formatTime(createdAt)); err != nil {
		return err
	}

	for i, g := range snap.Chain.Generations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO generations (snapshot_id, position, capacity, error_rate, expiration, count, head, unset, estimated, cells)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, int64(g.Config.Capacity), g.Config.ErrorRate, int64(g.Config.Expiration),
			int64(g.Count), int64(g.Head), g.Unset, g.Estimated, g.Cells); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	snap.ID = id
	snap.CreatedAt = createdAt
	return nil
}

// FindSnapshotByID retrieves a snapshot by ID, including generation cells.
func (s *SnapshotService) FindSnapshotByID(ctx context.Context, id string) (*cdbf.Snapshot, error) {
	return s.findOne(ctx, "id = ?", id)
}

// FindSnapshotByName retrieves the most recently created snapshot with
// the given name, including generation cells.
func (s *SnapshotService) FindSnapshotByName(ctx context.Context, name string) (*cdbf.Snapshot, error) {
	return s.findOne(ctx, "name = ?", name)
}

func (s *SnapshotService) findOne(ctx context.Context, where string, arg any) (*cdbf.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, indexer, initial_capacity, error_rate, expiration, growth, active, created_at
		FROM snapshots
		WHERE `+where+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, arg)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cdbf.Errorf(cdbf.ENOTFOUND, "snapshot not found")
	}
	if err != nil {
		return nil, err
	}

	if snap.Chain.Generations, err = s.findGenerations(ctx, snap.ID, true); err != nil {
		return nil, err
	}
	return snap, nil
}

// FindSnapshots retrieves snapshots matching the filter, newest first.
// Generation metadata is loaded without cells.
func (s *SnapshotService) FindSnapshots(ctx context.Context, filter cdbf.SnapshotFilter) ([]*cdbf.Snapshot, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, name, indexer, initial_capacity, error_rate, expiration, growth, active, created_at
		FROM snapshots WHERE 1=1`)

	if filter.Name != nil {
		query.WriteString(" AND name = ?")
		args = append(args, *filter.Name)
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*cdbf.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, snap := range snaps {
		if snap.Chain.Generations, err = s.findGenerations(ctx, snap.ID, false); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

// DeleteSnapshot permanently removes a snapshot and its generations.
func (s *SnapshotService) DeleteSnapshot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return cdbf.Errorf(cdbf.ENOTFOUND, "snapshot not found")
	}

	return nil
}

func (s *SnapshotService) findGenerations(ctx context.Context, snapshotID string, withCells bool) ([]cdbf.FilterState, error) {
	cells := "NULL"
	if withCells {
		cells = "cells"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT capacity, error_rate, expiration, count, head, unset, estimated, `+cells+`
		FROM generations
		WHERE snapshot_id = ?
		ORDER BY position
	`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gens := []cdbf.FilterState{}
	for rows.Next() {
		var g cdbf.FilterState
		var capacity, expiration, count, head int64
		if err := rows.Scan(&capacity, &g.Config.ErrorRate, &expiration, &count, &head,
			&g.Unset, &g.Estimated, &g.Cells); err != nil {
			return nil, err
		}
		g.Config.Capacity = uint(capacity)
		g.Config.Expiration = time.Duration(expiration)
		g.Count = uint(count)
		g.Head = uint(head)
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*cdbf.Snapshot, error) {
	var snap cdbf.Snapshot
	var initialCapacity, expiration, growth int64
	var createdAt string

	if err := row.Scan(&snap.ID, &snap.Name, &snap.Indexer, &initialCapacity, &snap.Chain.Config.ErrorRate,
		&expiration, &growth, &snap.Chain.Active, &createdAt); err != nil {
		return nil, err
	}

	snap.Chain.Config.InitialCapacity = uint(initialCapacity)
	snap.Chain.Config.Expiration = time.Duration(expiration)
	snap.Chain.Config.Growth = cdbf.GrowthFactor(growth)

	var err error
	if snap.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &snap, nil
}
