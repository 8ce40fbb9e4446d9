package compressor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sagarc03/zipstream"
)

// stderrTailSize bounds how much diagnostic output is kept per process.
const stderrTailSize = 4096

// Exec runs an external compressor command.
type Exec struct {
	command Command
}

// NewExec returns a compressor that runs command in the target directory.
// The command must write the archive to its standard output.
func NewExec(command Command) (*Exec, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("new exec compressor: command cannot be empty")
	}
	return &Exec{command: append(Command(nil), command...)}, nil
}

// Command returns the argv the compressor runs.
func (e *Exec) Command() Command {
	return append(Command(nil), e.command...)
}

// Start spawns the command with dir as its working directory.
func (e *Exec) Start(ctx context.Context, dir string) (zipstream.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The process is not tied to ctx: the transfer decides when to kill it.
	cmd := exec.Command(e.command[0], e.command[1:]...) //nolint:gosec // command comes from config
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr := &tailBuffer{max: stderrTailSize}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.command[0], err)
	}

	return &ExecProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// ExecProcess is a running external compressor.
type ExecProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	killed atomic.Bool
}

// Pid returns the operating system process id.
func (p *ExecProcess) Pid() int {
	return p.cmd.Process.Pid
}

// Stdout returns the read end of the child's standard output.
func (p *ExecProcess) Stdout() io.Reader {
	return p.stdout
}

// Kill sends SIGKILL. There is no graceful shutdown step.
func (p *ExecProcess) Kill() error {
	p.killed.Store(true)
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill: %w", err)
	}
	return nil
}

// Wait discards whatever is left on stdout and reaps the process. An exit caused by
// Kill is not reported; any other failure carries the tail of stderr.
func (p *ExecProcess) Wait() error {
	_, _ = io.Copy(io.Discard, p.stdout)

	err := p.cmd.Wait()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ExitCode is -1 when the process was terminated by a signal.
		if p.killed.Load() && exitErr.ExitCode() == -1 {
			return nil
		}
		if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
			return fmt.Errorf("wait: %w: %s", err, msg)
		}
	}

	return fmt.Errorf("wait: %w", err)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
