package cdbf

import (
	"context"
	"math"
	"time"
)

// FilterState is the serializable state of a single generation.
type FilterState struct {
	Config    Config  `json:"config"`
	Count     uint    `json:"count"`
	Head      uint    `json:"head"`
	Unset     float64 `json:"unset"`
	Estimated float64 `json:"estimated"`
	Cells     []byte  `json:"cells"`
}

// Validate returns an error if the state cannot belong to its config.
func (s *FilterState) Validate() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	n := s.Config.NumBits()
	if uint(len(s.Cells)) != n {
		return Errorf(EINVALID, "filter state has %d cells, want %d", len(s.Cells), n)
	}
	if s.Head >= n {
		return Errorf(EINVALID, "filter state refresh head %d out of range", s.Head)
	}
	if math.IsNaN(s.Unset) || s.Unset < 0 || s.Unset > 1 {
		return Errorf(EINVALID, "filter state unset ratio %v out of range", s.Unset)
	}
	if math.IsNaN(s.Estimated) || math.IsInf(s.Estimated, 0) {
		return Errorf(EINVALID, "filter state estimate %v is not finite", s.Estimated)
	}
	return nil
}

// NoActive marks a chain without an active generation.
const NoActive = -1

// ChainState is the serializable state of a chain.
type ChainState struct {
	Config      ChainConfig   `json:"config"`
	Active      int           `json:"active"`
	Generations []FilterState `json:"generations"`
}

// Validate returns an error if the chain state is inconsistent.
func (s *ChainState) Validate() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if s.Active < NoActive || s.Active >= len(s.Generations) {
		return Errorf(EINVALID, "chain state active generation %d out of range", s.Active)
	}
	for i := range s.Generations {
		if err := s.Generations[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot is a named, persisted copy of a chain.
type Snapshot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Indexer   string     `json:"indexer"`
	Chain     ChainState `json:"chain"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Validate returns an error if the snapshot contains invalid fields.
func (s *Snapshot) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "snapshot name required")
	}
	if s.Indexer == "" {
		return Errorf(EINVALID, "snapshot indexer required")
	}
	return s.Chain.Validate()
}

// SnapshotService represents a service for persisting chains.
type SnapshotService interface {
	// CreateSnapshot stores a new snapshot and assigns its ID.
	CreateSnapshot(ctx context.Context, snap *Snapshot) error

	// FindSnapshotByID retrieves a snapshot by ID.
	// Returns ENOTFOUND if snapshot does not exist.
	FindSnapshotByID(ctx context.Context, id string) (*Snapshot, error)

	// FindSnapshotByName retrieves the most recent snapshot with the name.
	// Returns ENOTFOUND if no snapshot has that name.
	FindSnapshotByName(ctx context.Context, name string) (*Snapshot, error)

	// FindSnapshots retrieves snapshot headers matching the filter.
	// Generation cells are not loaded.
	FindSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error)

	// DeleteSnapshot permanently removes a snapshot.
	// Returns ENOTFOUND if snapshot does not exist.
	DeleteSnapshot(ctx context.Context, id string) error
}

// SnapshotFilter represents a filter for FindSnapshots.
type SnapshotFilter struct {
	Name *string `json:"name"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
