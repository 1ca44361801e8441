package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/store"
	"giftcircle/internal/transport/httpserver/middleware"
	"giftcircle/pkg/logger"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type verificationDetails struct {
	Table string             `json:"table"`
	Steps []store.StepResult `json:"steps"`
}

// Observer records the outcome of every handled operation.
type Observer interface {
	Observe(operation string, err error)
}

type nopObserver struct{}

func (nopObserver) Observe(string, error) {}

func NopObserver() Observer {
	return nopObserver{}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, code, message)
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

func DecodeJSON(r *http.Request, dst any) error {
	return decodeJSON(r, dst)
}

// StatusOf maps an error kind to its HTTP status. Unauthorized becomes 401
// for anonymous callers and 403 for signed-in ones.
func StatusOf(err error, signedIn bool) int {
	switch domainerr.KindOf(err) {
	case domainerr.KindValidation:
		return http.StatusBadRequest
	case domainerr.KindConflict, domainerr.KindInvalidTransition:
		return http.StatusConflict
	case domainerr.KindNotFound:
		return http.StatusNotFound
	case domainerr.KindUnauthorized:
		if signedIn {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError logs err under operation and writes its envelope.
// Expected outcomes are logged as business errors, the rest as internal.
func WriteDomainError(w http.ResponseWriter, r *http.Request, log logger.Logger, operation string, err error, args ...any) {
	log = logger.FromContext(r.Context(), log)
	signedIn := middleware.UserIDFromContext(r.Context()) != nil
	status := StatusOf(err, signedIn)

	body := errorBody{
		Code:    domainerr.CodeOf(err),
		Message: domainerr.ReasonOf(err),
	}

	var verification *store.DeleteVerificationFailed
	switch {
	case errors.As(err, &verification):
		log.Critical(operation+": delete verification failed", append([]any{"err", err}, args...)...)
		body.Details = verificationDetails{Table: verification.Table, Steps: verification.Steps}
	case status == http.StatusInternalServerError:
		log.InternalError(operation+": failed", err, args...)
	default:
		log.BusinessError(operation+": rejected", err, args...)
	}

	writeJSON(w, status, errorEnvelope{Error: body})
}
