package realtime

import (
	"errors"
	"net/http"
	"strings"

	"giftcircle/internal/realtime"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	"giftcircle/pkg/logger"
)

type Handlers struct {
	Socket *realtime.Socket
	log    logger.Logger
}

func New(socket *realtime.Socket, log logger.Logger) *Handlers {
	return &Handlers{
		Socket: socket,
		log:    log,
	}
}

// Subscribe upgrades to a websocket streaming the changes of one scope,
// given as table, column and value query parameters.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.Socket == nil {
		commonhandler.WriteError(w, http.StatusNotImplemented, "realtime_disabled", "realtime is disabled")
		return
	}

	query := r.URL.Query()
	scope := realtime.Scope{
		Table:  strings.TrimSpace(query.Get("table")),
		Column: strings.TrimSpace(query.Get("column")),
		Value:  strings.TrimSpace(query.Get("value")),
	}
	if err := realtime.ValidateScope(scope); err != nil {
		if errors.Is(err, realtime.ErrScopeNotAllowed) {
			h.log.BusinessError("realtime.subscribe: scope rejected", err, "scope", scope.String())
			commonhandler.WriteError(w, http.StatusBadRequest, "invalid_scope", "subscription scope not allowed")
			return
		}
		h.log.InternalError("realtime.subscribe: validate scope failed", err)
		commonhandler.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	if err := h.Socket.Serve(w, r, scope); err != nil {
		h.log.Warn("realtime.subscribe: upgrade failed", "err", err, "scope", scope.String())
	}
}
