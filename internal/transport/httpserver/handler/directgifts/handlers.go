package directgifts

import (
	"net/http"
	"time"

	directgiftsdomain "giftcircle/internal/domain/directgifts"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	"giftcircle/internal/transport/httpserver/middleware"
	"giftcircle/pkg/logger"
)

type Handlers struct {
	DirectGifts *directgiftsdomain.Service
	metrics     commonhandler.Observer
	log         logger.Logger
}

func New(directGifts *directgiftsdomain.Service, metrics commonhandler.Observer, log logger.Logger) *Handlers {
	return &Handlers{
		DirectGifts: directGifts,
		metrics:     metrics,
		log:         log,
	}
}

type createRequest struct {
	Title         string   `json:"title"`
	RecipientName string   `json:"recipient_name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
}

type purchaseRequest struct {
	FinalPrice *float64 `json:"final_price"`
}

type directGiftResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	RecipientName string     `json:"recipient_name"`
	Description   *string    `json:"description"`
	Price         *float64   `json:"price"`
	FinalPrice    *float64   `json:"final_price"`
	ShareCode     string     `json:"share_code"`
	Status        string     `json:"status"`
	Claimed       bool       `json:"claimed"`
	PurchasedAt   *time.Time `json:"purchased_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type directGiftListResponse struct {
	Items []directGiftResponse `json:"items"`
}

func toResponse(gift directgiftsdomain.DirectGift) directGiftResponse {
	return directGiftResponse{
		ID:            gift.ID,
		Title:         gift.Title,
		RecipientName: gift.RecipientName,
		Description:   gift.Description,
		Price:         gift.Price,
		FinalPrice:    gift.FinalPrice,
		ShareCode:     gift.ShareCode,
		Status:        string(gift.Status),
		Claimed:       gift.OrganizerUserID != nil,
		PurchasedAt:   gift.PurchasedAt,
		CancelledAt:   gift.CancelledAt,
		CreatedAt:     gift.CreatedAt,
	}
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}

	gift, err := h.DirectGifts.Create(r.Context(), directgiftsdomain.CreateInput{
		Title:           req.Title,
		RecipientName:   req.RecipientName,
		Description:     req.Description,
		Price:           req.Price,
		OrganizerUserID: middleware.UserIDFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, "direct_gifts.create", err)
		return
	}
	h.done(w, "direct_gifts.create", http.StatusCreated, toResponse(*gift))
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := commonhandler.URLParam(w, r, "direct_gift_id")
	if !ok {
		return
	}

	gift, err := h.DirectGifts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "direct_gifts.get", err, "direct_gift_id", id)
		return
	}
	h.done(w, "direct_gifts.get", http.StatusOK, toResponse(*gift))
}

func (h *Handlers) GetByShareCode(w http.ResponseWriter, r *http.Request) {
	code, ok := commonhandler.URLParam(w, r, "code")
	if !ok {
		return
	}

	gift, err := h.DirectGifts.GetByShareCode(r.Context(), code)
	if err != nil {
		h.fail(w, r, "direct_gifts.get_by_share", err)
		return
	}
	h.done(w, "direct_gifts.get_by_share", http.StatusOK, toResponse(*gift))
}

func (h *Handlers) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	items, err := h.DirectGifts.ListForOrganizer(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, "direct_gifts.list_mine", err, "user_id", user.ID)
		return
	}

	response := make([]directGiftResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toResponse(item))
	}
	h.done(w, "direct_gifts.list_mine", http.StatusOK, directGiftListResponse{Items: response})
}

func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := commonhandler.URLParam(w, r, "direct_gift_id")
	if !ok {
		return
	}

	gift, err := h.DirectGifts.Cancel(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "direct_gifts.cancel", err, "direct_gift_id", id)
		return
	}
	h.done(w, "direct_gifts.cancel", http.StatusOK, toResponse(*gift))
}

func (h *Handlers) MarkPurchased(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	id, ok := commonhandler.URLParam(w, r, "direct_gift_id")
	if !ok {
		return
	}

	gift, err := h.DirectGifts.MarkPurchased(r.Context(), id, middleware.UserIDFromContext(r.Context()), req.FinalPrice)
	if err != nil {
		h.fail(w, r, "direct_gifts.purchase", err, "direct_gift_id", id)
		return
	}
	h.done(w, "direct_gifts.purchase", http.StatusOK, toResponse(*gift))
}
