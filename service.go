package zipstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DirResolver maps an untrusted archive identifier to a directory on disk.
type DirResolver interface {
	// Resolve validates id and returns the absolute path of the directory it names.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - id: The untrusted identifier taken from the request path
	//
	// Returns:
	//   - string: Absolute directory path
	//   - error: ErrInvalidInput for malformed ids, ErrNotFound if the directory
	//     does not exist or is not a directory, or other filesystem errors
	//
	// Implementations must not follow an id outside the configured root.
	Resolve(ctx context.Context, id string) (string, error)
}

// Compressor starts a process that writes a recursive zip archive of a directory
// to its standard output.
type Compressor interface {
	// Start spawns a compressor rooted at dir.
	//
	// Parameters:
	//   - ctx: Context checked before spawning. The process lifetime is not bound to it;
	//     callers own teardown through Process.Kill and Process.Wait.
	//   - dir: Absolute path of the directory to archive
	//
	// Returns:
	//   - Process: The running process
	//   - error: Any error preventing the process from starting
	Start(ctx context.Context, dir string) (Process, error)
}

// Process is a running compressor instance owned by exactly one transfer.
type Process interface {
	// Stdout returns the archive byte stream. Reads return io.EOF once the process
	// has finished writing, or an error once it has been killed.
	Stdout() io.Reader

	// Kill terminates the process without a grace period. It is safe to call on a
	// process that already exited.
	Kill() error

	// Wait drains any remaining output and reaps the process. It reports failures of
	// the process itself; termination caused by Kill is not an error.
	Wait() error
}

// ArchiveService opens archive transfers for directories under a configured root.
type ArchiveService struct {
	resolver   DirResolver
	compressor Compressor
	config     StreamConfig
}

// NewArchiveService validates cfg and returns a service that resolves identifiers with
// resolver and spawns compressors with compressor.
func NewArchiveService(resolver DirResolver, compressor Compressor, cfg StreamConfig) (*ArchiveService, error) {
	if resolver == nil || compressor == nil {
		return nil, fmt.Errorf("new archive service: %w: resolver and compressor are required", ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new archive service: %w", err)
	}

	return &ArchiveService{
		resolver:   resolver,
		compressor: compressor,
		config:     cfg,
	}, nil
}

// Config returns a copy of the service configuration.
func (s *ArchiveService) Config() StreamConfig {
	return s.config
}

// Open resolves id and spawns its compressor. Every error returned from Open happens
// before anything has been sent to the client, so callers can still report it.
//
// Error types returned:
//   - ErrInvalidInput: id is not a single safe path segment
//   - ErrNotFound: the directory does not exist
//   - ErrSpawnFailed: the compressor could not be started
//   - context.Canceled or context.DeadlineExceeded: ctx ended first
//
// On success the caller owns the returned Transfer and must either Stream it or Close it.
func (s *ArchiveService) Open(ctx context.Context, id string) (*Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open archive '%s': %w", id, err)
	}

	proc, err := s.compressor.Start(ctx, dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("open archive '%s': %w: %w", id, ErrSpawnFailed, err)
	}

	return &Transfer{
		request: ArchiveRequest{ID: id, Dir: dir},
		proc:    proc,
		config:  s.config,
		logger:  slog.With("archive_id", id),
	}, nil
}

// Transfer pumps one compressor's output to one client.
//
// The process is killed and reaped exactly once, by Close. Stream always calls Close
// before returning, whatever the outcome.
type Transfer struct {
	request ArchiveRequest
	proc    Process
	config  StreamConfig
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Request returns the resolved request this transfer serves.
func (t *Transfer) Request() ArchiveRequest {
	return t.request
}

// Filename returns the download name suggested to the client.
func (t *Transfer) Filename() string {
	return t.config.ArchiveName
}

// Stream copies the compressor output to w chunk by chunk, in order, until the
// compressor reaches end of output, a read or write fails, or ctx is cancelled.
//
// When NetworkDelay is set it is slept before every chunk write except the first, so
// K chunks are delayed by (K-1)*NetworkDelay in total and nothing follows the last one.
//
// Cancellation interrupts a pending read (the process is killed, which closes its
// output), a pending delay, and prevents any further write. The returned error is then
// ctx.Err() unwrapped. Read and write failures are returned wrapped in
// ErrCompressorRead and ErrClientWrite respectively.
func (t *Transfer) Stream(ctx context.Context, w io.Writer) (TransferStats, error) {
	var stats TransferStats
	start := time.Now()

	stop := context.AfterFunc(ctx, func() {
		if err := t.proc.Kill(); err != nil {
			t.logger.Warn("failed to kill compressor on cancel", "err", err)
		}
	})

	defer func() {
		stop()
		if err := t.Close(); err != nil {
			t.logger.Warn("compressor exited with error", "err", err)
		}
	}()

	stdout := t.proc.Stdout()
	buf := make([]byte, t.config.ChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		n, readErr := stdout.Read(buf)
		if n > 0 {
			if stats.Chunks > 0 && t.config.NetworkDelay > 0 {
				if err := sleep(ctx, t.config.NetworkDelay); err != nil {
					stats.Duration = time.Since(start)
					return stats, err
				}
			}

			if err := ctx.Err(); err != nil {
				stats.Duration = time.Since(start)
				return stats, err
			}

			t.logger.Debug("sending archive chunk", "chunk", stats.Chunks+1, "size", n)
			if _, err := w.Write(buf[:n]); err != nil {
				stats.Duration = time.Since(start)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return stats, ctxErr
				}
				return stats, fmt.Errorf("stream '%s': %w: %w", t.request.ID, ErrClientWrite, err)
			}

			stats.Chunks++
			stats.Bytes += int64(n)
		}

		if readErr != nil {
			stats.Duration = time.Since(start)
			// A killed process closes its output; report why it was killed.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			if errors.Is(readErr, io.EOF) {
				return stats, nil
			}
			return stats, fmt.Errorf("stream '%s': %w: %w", t.request.ID, ErrCompressorRead, readErr)
		}
	}
}

// Close kills the compressor and waits for it to be reaped. It is idempotent and
// returns the same result on every call.
func (t *Transfer) Close() error {
	t.closeOnce.Do(func() {
		if err := t.proc.Kill(); err != nil {
			t.logger.Warn("failed to kill compressor", "err", err)
		}
		t.closeErr = t.proc.Wait()
	})
	return t.closeErr
}

// sleep waits for d or until ctx is done, whichever happens first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
