package api

import (
	"errors"
	"net/http"

	"github.com/gouveags/moviescore/cmd/identity"
)

// statusFor maps a caller-facing error kind to its HTTP status.
func statusFor(kind error) int {
	switch kind {
	case identity.ErrBadRequest:
		return http.StatusBadRequest
	case identity.ErrUnauthorized:
		return http.StatusUnauthorized
	case identity.ErrConflict:
		return http.StatusConflict
	case identity.ErrNotFound:
		return http.StatusNotFound
	case identity.ErrLocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// writeAuthError renders err in the error envelope. Internal failures are logged
// under event and answered with a fixed message.
func (h *Handler) writeAuthError(w http.ResponseWriter, event string, err error) {
	kind := identity.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		h.log.Error(event+".fail", "err", err)
		writeError(w, status, "server_error", "internal error")
		return
	}

	msg := identity.MessageOf(err)
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeError(w, status, kind.Error(), msg)
}

// kindLabel is the metrics/audit label for an outcome.
func kindLabel(err error) string {
	if err == nil {
		return "ok"
	}
	kind := identity.KindOf(err)
	if errors.Is(kind, identity.ErrInternal) {
		return "error"
	}
	return kind.Error()
}
