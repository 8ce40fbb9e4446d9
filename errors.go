package zipstream

import "errors"

var (
	// ErrNotFound is returned when the requested archive directory does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when an archive identifier fails validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrSpawnFailed is returned when the compressor process cannot be started
	ErrSpawnFailed = errors.New("compressor spawn failed")
	// ErrCompressorRead is returned when reading compressor output fails mid-transfer
	ErrCompressorRead = errors.New("compressor read failed")
	// ErrClientWrite is returned when writing a chunk to the client fails
	ErrClientWrite = errors.New("client write failed")
	// ErrInvalidConfig is returned when a StreamConfig does not validate
	ErrInvalidConfig = errors.New("invalid config")
)
