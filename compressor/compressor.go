// Package compressor provides the processes that produce archive streams.
//
// Two backends are available:
//
//   - exec: runs an external command (by default "zip -r - .") with its working
//     directory set to the target and reads the archive from its standard output.
//   - native: writes the same recursive zip stream in-process. Its output is a pipe,
//     so killing it closes the stream and reaping it waits for the writer to stop.
//
// Both return a zipstream.Process; the delivery loop cannot tell them apart.
package compressor

import (
	"errors"
	"fmt"

	"github.com/sagarc03/zipstream"
)

// Backend names accepted by New.
const (
	// BackendExec runs an external command.
	BackendExec = "exec"
	// BackendNative writes the archive in-process.
	BackendNative = "native"
)

// Command is an argv, program first. In configuration it may be given as one
// string split on whitespace.
type Command []string

// DefaultCommand recursively zips the working directory to standard output.
var DefaultCommand = Command{"zip", "-r", "-", "."}

// ErrKilled is the read error seen on a native process output after Kill.
var ErrKilled = errors.New("compressor killed")

// Config selects and configures a compressor backend.
type Config struct {
	Backend string   `mapstructure:"backend" yaml:"backend" validate:"required,oneof=exec native"`
	Command Command  `mapstructure:"command" yaml:"command" validate:"required_if=Backend exec"`
	Level   int      `mapstructure:"level" yaml:"level" validate:"min=-1,max=9"`
}

// New returns the compressor for cfg.Backend.
func New(cfg Config) (zipstream.Compressor, error) {
	switch cfg.Backend {
	case BackendExec, "":
		command := cfg.Command
		if len(command) == 0 {
			command = DefaultCommand
		}
		return NewExec(command)
	case BackendNative:
		return NewNative(cfg.Level)
	default:
		return nil, fmt.Errorf("new compressor: unsupported backend: %s (valid backends: exec, native)", cfg.Backend)
	}
}
