// Package zipstream streams zip archives of server-side directories to HTTP
// clients while the archive is still being produced.
//
// An archive is produced by a compressor process rooted at the requested directory.
// Its output is forwarded chunk by chunk, optionally with an artificial delay between
// chunks to emulate a slow network, and the process is killed and reaped on every
// exit path: completion, I/O failure or cancellation.
//
// # Key Components
//
//   - ArchiveService: resolves an identifier and spawns its compressor
//   - Transfer: the delivery loop for one request, owning one Process
//   - DirResolver: maps identifiers to directories (see the filesystem package)
//   - Compressor / Process: spawn and supervise compressors (see the compressor package)
//
// # Example Usage
//
//	service, err := zipstream.NewArchiveService(resolver, comp, zipstream.StreamConfig{
//	    ArchiveName:  "photos.zip",
//	    NetworkDelay: 100 * time.Millisecond,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	transfer, err := service.Open(ctx, "7kna")
//	if err != nil {
//	    // ErrNotFound, ErrInvalidInput or ErrSpawnFailed; nothing was sent yet
//	}
//	stats, err := transfer.Stream(ctx, w)
//
// See the http package for the HTTP surface.
package zipstream
