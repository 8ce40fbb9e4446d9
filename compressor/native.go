package compressor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/sagarc03/zipstream"
)

// Native writes zip archives in-process.
type Native struct {
	level int
}

// NewNative returns a compressor that deflates entries at the given flate level
// (-1 for the library default, 0 to 9 otherwise).
func NewNative(level int) (*Native, error) {
	if level < flate.DefaultCompression || level > flate.BestCompression {
		return nil, fmt.Errorf("new native compressor: invalid level: %d", level)
	}
	return &Native{level: level}, nil
}

// Start begins writing an archive of dir. The archive is produced as it is read.
func (n *Native) Start(ctx context.Context, dir string) (zipstream.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("start: %s is not a directory", dir)
	}

	pr, pw := io.Pipe()
	p := &NativeProcess{stdout: pr, pw: pw, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		p.err = n.writeArchive(pw, os.DirFS(dir))
		// A nil error closes the pipe with io.EOF.
		_ = pw.CloseWithError(p.err)
	}()

	return p, nil
}

func (n *Native) writeArchive(w io.Writer, fsys fs.FS) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, n.level)
	})

	walkErr := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			hdr, err := zip.FileInfoHeader(info)
			if err != nil {
				return err
			}
			hdr.Name = name + "/"
			hdr.Method = zip.Store
			hdr.UncompressedSize64 = 0
			_, err = zw.CreateHeader(hdr)
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		return addFile(zw, fsys, name, info)
	})
	if walkErr != nil {
		return fmt.Errorf("write archive: %w", walkErr)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, fsys fs.FS, name string, info fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = io.Copy(fw, f)
	return err
}

// NativeProcess is an in-process archive writer presented as a process.
type NativeProcess struct {
	stdout *io.PipeReader
	pw     *io.PipeWriter
	done   chan struct{}
	err    error
	killed atomic.Bool
}

// Stdout returns the archive stream.
func (p *NativeProcess) Stdout() io.Reader {
	return p.stdout
}

// Kill closes the write end of the output. Pending and future reads fail with
// ErrKilled and the writer stops at its next write with io.ErrClosedPipe.
// Output already closed by a finished writer keeps its result.
func (p *NativeProcess) Kill() error {
	p.killed.Store(true)
	return p.pw.CloseWithError(ErrKilled)
}

// Wait discards any unread output and waits for the writer to stop.
func (p *NativeProcess) Wait() error {
	_, _ = io.Copy(io.Discard, p.stdout)
	<-p.done

	if p.err == nil || (p.killed.Load() && errors.Is(p.err, io.ErrClosedPipe)) {
		return nil
	}
	return fmt.Errorf("wait: %w", p.err)
}
