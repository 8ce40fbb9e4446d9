package zipstream

import (
	"fmt"
	"time"
)

// DefaultChunkSize is the maximum number of bytes read from the compressor per iteration.
const DefaultChunkSize = 102400

// DefaultArchiveName is the suggested download filename when none is configured.
const DefaultArchiveName = "photos.zip"

// StreamConfig is the read-only configuration shared by every transfer.
// It is built once at startup and never mutated afterwards.
type StreamConfig struct {
	// NetworkDelay is slept between consecutive chunk writes to emulate a slow link.
	NetworkDelay time.Duration
	// ArchiveName is the filename suggested to the client in Content-Disposition.
	ArchiveName string
	// RootDir is the base directory every archive identifier is resolved under.
	RootDir string
	// ChunkSize bounds a single read from the compressor. Zero means DefaultChunkSize.
	ChunkSize int
}

// Validate checks the config and fills in defaults for zero values it can default.
func (c *StreamConfig) Validate() error {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}

	if c.ChunkSize < 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}

	if c.NetworkDelay < 0 {
		return fmt.Errorf("%w: network delay must not be negative, got %s", ErrInvalidConfig, c.NetworkDelay)
	}

	if c.ArchiveName == "" {
		return fmt.Errorf("%w: archive name cannot be empty", ErrInvalidConfig)
	}

	return nil
}

// ArchiveRequest identifies one directory to archive.
type ArchiveRequest struct {
	// ID is the untrusted identifier taken from the request path.
	ID string
	// Dir is the resolved absolute directory path.
	Dir string
}

// TransferStats summarizes a finished (or aborted) transfer.
type TransferStats struct {
	Chunks   int
	Bytes    int64
	Duration time.Duration
}
