package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/zipstream"
	"github.com/sagarc03/zipstream/compressor"
	"github.com/sagarc03/zipstream/config"
	"github.com/sagarc03/zipstream/filesystem"
)

// openService builds the archive service described by cfg. The returned close
// function releases the archive root.
func openService(cfg *config.Config) (*zipstream.ArchiveService, *filesystem.Store, func(), error) {
	if err := os.MkdirAll(cfg.Archive.Root, 0o750); err != nil {
		return nil, nil, nil, fmt.Errorf("create archive root: %w", err)
	}

	root, err := os.OpenRoot(cfg.Archive.Root)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open archive root: %w", err)
	}
	closeRoot := func() { _ = root.Close() }

	store, err := filesystem.NewStore(root)
	if err != nil {
		closeRoot()
		return nil, nil, nil, err
	}

	comp, err := compressor.New(cfg.Compressor)
	if err != nil {
		closeRoot()
		return nil, nil, nil, err
	}

	service, err := zipstream.NewArchiveService(store, comp, cfg.Archive.Stream())
	if err != nil {
		closeRoot()
		return nil, nil, nil, fmt.Errorf("create service: %w", err)
	}

	slog.Debug("archive service ready",
		"root", store.Root(),
		"compressor", cfg.Compressor.Backend,
		"chunk_size", service.Config().ChunkSize,
		"network_delay", service.Config().NetworkDelay,
	)

	return service, store, closeRoot, nil
}
