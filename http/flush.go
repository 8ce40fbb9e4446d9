package http

import (
	"errors"
	"fmt"
	"net/http"
)

// flushWriter flushes the response after every write so each chunk reaches the
// client as soon as it is produced.
type flushWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	return &flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.Flush()
}

// Flush sends buffered data to the client. Writers that cannot flush are not an error.
func (f *flushWriter) Flush() error {
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("%w: %w", ErrFlushFailed, err)
	}
	return nil
}
