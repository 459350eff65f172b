package cdbf

import (
	"math"
	"time"
)

// ShrinkRatio is the factor applied to the error rate of each new
// generation in a chain.
const ShrinkRatio = 0.9

// GrowthFactor is the capacity multiplier between consecutive generations.
type GrowthFactor uint

// Growth presets.
const (
	SmallSetGrowth GrowthFactor = 2
	LargeSetGrowth GrowthFactor = 4
)

// Config holds the immutable parameters of a single filter generation.
type Config struct {
	Capacity   uint          `json:"capacity"`
	ErrorRate  float64       `json:"errorRate"`
	Expiration time.Duration `json:"expiration"`
}

// Validate returns an error if the configuration cannot produce a filter.
func (c Config) Validate() error {
	if c.Capacity == 0 {
		return Errorf(EINVALID, "capacity must be > 0")
	}
	if !(c.ErrorRate > 0 && c.ErrorRate < 1) {
		return Errorf(EINVALID, "error rate must be between 0 and 1, got %v", c.ErrorRate)
	}
	if c.Expiration <= 0 {
		return Errorf(EINVALID, "expiration must be > 0, got %s", c.Expiration)
	}
	return nil
}

// NumSlices returns the number of hash functions, one per slice:
// ceil(log2(1/ErrorRate)).
func (c Config) NumSlices() uint {
	return uint(math.Ceil(math.Log2(1 / c.ErrorRate)))
}

// BitsPerSlice returns the number of cells in each slice:
// ceil(Capacity * |ln ErrorRate| / (NumSlices * ln(2)^2)).
func (c Config) BitsPerSlice() uint {
	k := float64(c.NumSlices())
	return uint(math.Ceil(float64(c.Capacity) * math.Abs(math.Log(c.ErrorRate)) / (k * math.Ln2 * math.Ln2)))
}

// NumBits returns the total number of cells.
func (c Config) NumBits() uint {
	return c.NumSlices() * c.BitsPerSlice()
}

// MaxElapsed returns the largest elapsed time accepted by one maintenance
// call. Anything longer would only repeat full sweeps of the cell array.
func (c Config) MaxElapsed() time.Duration {
	return 2 * c.Expiration
}

// ChainConfig holds the parameters of a growing chain of generations.
type ChainConfig struct {
	InitialCapacity uint          `json:"initialCapacity"`
	ErrorRate       float64       `json:"errorRate"`
	Expiration      time.Duration `json:"expiration"`
	Growth          GrowthFactor  `json:"growth"`
}

// Validate returns an error if the chain configuration is invalid.
func (c ChainConfig) Validate() error {
	if c.Growth != SmallSetGrowth && c.Growth != LargeSetGrowth {
		return Errorf(EINVALID, "growth factor must be %d or %d, got %d", SmallSetGrowth, LargeSetGrowth, c.Growth)
	}
	return c.Generation(0).Validate()
}

// MaxElapsed returns the largest elapsed time accepted by one maintenance
// call on the chain.
func (c ChainConfig) MaxElapsed() time.Duration {
	return 2 * c.Expiration
}

// Generation returns the configuration of the i-th generation of a chain.
func (c ChainConfig) Generation(i int) Config {
	cfg := Config{
		Capacity:   c.InitialCapacity,
		ErrorRate:  c.ErrorRate,
		Expiration: c.Expiration,
	}
	for range i {
		cfg = c.Next(cfg)
	}
	return cfg
}

// Next returns the configuration of the generation that follows prev.
func (c ChainConfig) Next(prev Config) Config {
	return Config{
		Capacity:   prev.Capacity * uint(c.Growth),
		ErrorRate:  prev.ErrorRate * ShrinkRatio,
		Expiration: prev.Expiration,
	}
}
