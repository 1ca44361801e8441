package common

import (
	"net/http"

	"giftcircle/internal/transport/httpserver/middleware"
	"giftcircle/pkg/logger"
)

type Handlers struct {
	log logger.Logger
}

func New(log logger.Logger) *Handlers {
	return &Handlers{log: log}
}

type healthResponse struct {
	Status string `json:"status"`
}

type authMeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *Handlers) AuthMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	writeJSON(w, http.StatusOK, authMeResponse{
		ID:    user.ID,
		Email: user.Email,
	})
}
