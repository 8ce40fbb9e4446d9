package http

import "errors"

// ErrFlushFailed is returned when headers or a chunk cannot be flushed to the client.
var ErrFlushFailed = errors.New("flush failed")
