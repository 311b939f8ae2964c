package scanner

import "github.com/feral-file/ff-holder-indexer/internal/domain"

// Config holds the adaptive chunking parameters of a RangeLogFetcher
type Config struct {
	// DefaultChunkSize is the chunk size every scan starts with
	DefaultChunkSize uint64 `mapstructure:"default_chunk_size"`
	// MinChunkSize is the floor for halving; a range error at this size skips the chunk
	MinChunkSize uint64 `mapstructure:"min_chunk_size"`
	// MaxChunkSize caps growth after successful chunks
	MaxChunkSize uint64 `mapstructure:"max_chunk_size"`
	// GrowAfter is how many consecutive successes double the chunk size
	GrowAfter int `mapstructure:"grow_after"`
	// Direction is the walk order; descending unless set to asc
	Direction domain.ScanDirection `mapstructure:"direction"`
}

// Normalize fills defaults and enforces 1 <= min <= default <= max
func (c Config) Normalize() Config {
	if c.MinChunkSize == 0 {
		c.MinChunkSize = domain.DEFAULT_MIN_CHUNK_SIZE
	}
	if c.DefaultChunkSize == 0 {
		c.DefaultChunkSize = domain.DEFAULT_CHUNK_SIZE
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = domain.DEFAULT_MAX_CHUNK_SIZE
	}

	if c.MaxChunkSize < c.MinChunkSize {
		c.MaxChunkSize = c.MinChunkSize
	}
	if c.DefaultChunkSize < c.MinChunkSize {
		c.DefaultChunkSize = c.MinChunkSize
	}
	if c.DefaultChunkSize > c.MaxChunkSize {
		c.DefaultChunkSize = c.MaxChunkSize
	}

	if c.GrowAfter <= 0 {
		c.GrowAfter = domain.DEFAULT_GROW_AFTER
	}
	if c.Direction != domain.ScanDirectionAsc {
		c.Direction = domain.ScanDirectionDesc
	}

	return c
}
