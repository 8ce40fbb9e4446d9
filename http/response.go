package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"unicode"

	"github.com/sagarc03/zipstream"
)

// NotFoundMessage is the body of a not-found archive response.
const NotFoundMessage = "The archive does not exist or has been deleted."

// WriteError writes a short plain-text error response
func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if _, err := fmt.Fprintln(w, message); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

// HandleError writes the response for an error raised before any archive byte was sent.
// Unknown identifiers, malformed identifiers and compressors that cannot be started
// all look the same to the client: the archive is not available. A cancelled request
// gets no response, the client is gone.
func HandleError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("request cancelled", "error", err)
		return
	}

	if errors.Is(err, zipstream.ErrNotFound) ||
		errors.Is(err, zipstream.ErrInvalidInput) ||
		errors.Is(err, zipstream.ErrSpawnFailed) {
		slog.Info("archive not available", "error", err)
		WriteError(w, http.StatusNotFound, NotFoundMessage)
		return
	}

	slog.Error("request error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// ContentDisposition returns an attachment header value suggesting filename.
// Quotes, backslashes and control characters are dropped from the quoted name; a
// non-ASCII name is additionally sent as an RFC 5987 filename* parameter.
func ContentDisposition(filename string) string {
	ascii := true
	safe := strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || unicode.IsControl(r):
			return -1
		case r > unicode.MaxASCII:
			ascii = false
			return '_'
		default:
			return r
		}
	}, filename)

	value := fmt.Sprintf(`attachment; filename="%s"`, safe)
	if ascii {
		return value
	}

	if extended := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); extended != "" {
		// FormatMediaType emits filename*=utf-8''...; keep the ASCII fallback first.
		if _, param, ok := strings.Cut(extended, "; "); ok {
			value += "; " + param
		}
	}
	return value
}
