package parties

import (
	"net/http"

	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	commonhandler.WriteError(w, status, code, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	commonhandler.WriteJSON(w, status, payload)
}

func decodeJSON(r *http.Request, dst any) error {
	return commonhandler.DecodeJSON(r, dst)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, operation string, err error, args ...any) {
	h.metrics.Observe(operation, err)
	commonhandler.WriteDomainError(w, r, h.log, operation, err, args...)
}

func (h *Handlers) done(w http.ResponseWriter, operation string, status int, payload any) {
	h.metrics.Observe(operation, nil)
	writeJSON(w, status, payload)
}

func invalidJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
}
