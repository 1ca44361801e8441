package claims

import (
	"net/http"

	claimsdomain "giftcircle/internal/domain/claims"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	"giftcircle/internal/transport/httpserver/middleware"
	"giftcircle/pkg/logger"
)

type Handlers struct {
	Claims  *claimsdomain.Service
	metrics commonhandler.Observer
	log     logger.Logger
}

func New(claims *claimsdomain.Service, metrics commonhandler.Observer, log logger.Logger) *Handlers {
	return &Handlers{
		Claims:  claims,
		metrics: metrics,
		log:     log,
	}
}

type linkRequest struct {
	FamilyIDs     []string `json:"family_ids"`
	DirectGiftIDs []string `json:"direct_gift_ids"`
}

type linkResponse struct {
	Families    int64 `json:"families"`
	DirectGifts int64 `json:"direct_gifts"`
	Total       int64 `json:"total"`
}

// Link attaches the anonymous records a device kept to the signed-in user.
func (h *Handlers) Link(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}

	identityID := ""
	if userID := middleware.UserIDFromContext(r.Context()); userID != nil {
		identityID = *userID
	}

	result, err := h.Claims.LinkClaims(r.Context(), identityID, claimsdomain.Claims{
		FamilyIDs:     req.FamilyIDs,
		DirectGiftIDs: req.DirectGiftIDs,
	})
	if err != nil {
		h.fail(w, r, "claims.link", err, "user_id", identityID)
		return
	}
	if result.Total() > 0 {
		h.log.Info("claims.link: records linked", "user_id", identityID, "families", result.Families, "direct_gifts", result.DirectGifts)
	}
	h.done(w, "claims.link", http.StatusOK, linkResponse{
		Families:    result.Families,
		DirectGifts: result.DirectGifts,
		Total:       result.Total(),
	})
}
