package parties

import (
	"context"
	"errors"
	"net/http"
	"time"

	partiesdomain "giftcircle/internal/domain/parties"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
)

const receiptFormField = "receipt"

type createGiftRequest struct {
	ProposalID *string `json:"proposal_id"`
}

type finalizeGiftRequest struct {
	FinalPrice      *float64 `json:"final_price"`
	ReceiptImageURL *string  `json:"receipt_image_url"`
	Comment         *string  `json:"comment"`
}

type joinGiftRequest struct {
	FamilyName string `json:"family_name"`
}

type giftResponse struct {
	ID                 string     `json:"id"`
	PartyID            string     `json:"party_id"`
	ProposalID         *string    `json:"proposal_id"`
	ShareCode          string     `json:"share_code"`
	State              string     `json:"state"`
	ParticipationOpen  bool       `json:"participation_open"`
	FinalPrice         *float64   `json:"final_price"`
	ReceiptImageURL    *string    `json:"receipt_image_url"`
	CoordinatorComment *string    `json:"coordinator_comment"`
	PurchasedAt        *time.Time `json:"purchased_at"`
	ClosedAt           *time.Time `json:"closed_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

type participantResponse struct {
	ID         string    `json:"id"`
	GiftID     string    `json:"gift_id"`
	FamilyName string    `json:"family_name"`
	JoinedAt   time.Time `json:"joined_at"`
}

type participantListResponse struct {
	Items []participantResponse `json:"items"`
	Total int                   `json:"total"`
}

type receiptResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func toGiftResponse(gift partiesdomain.Gift) giftResponse {
	return giftResponse{
		ID:                 gift.ID,
		PartyID:            gift.PartyID,
		ProposalID:         gift.ProposalID,
		ShareCode:          gift.ShareCode,
		State:              string(gift.State()),
		ParticipationOpen:  gift.ParticipationOpen,
		FinalPrice:         gift.FinalPrice,
		ReceiptImageURL:    gift.ReceiptImageURL,
		CoordinatorComment: gift.CoordinatorComment,
		PurchasedAt:        gift.PurchasedAt,
		ClosedAt:           gift.ClosedAt,
		CreatedAt:          gift.CreatedAt,
	}
}

func toParticipantResponse(participant partiesdomain.Participant) participantResponse {
	return participantResponse{
		ID:         participant.ID,
		GiftID:     participant.GiftID,
		FamilyName: participant.FamilyName,
		JoinedAt:   participant.JoinedAt,
	}
}

func (h *Handlers) CreateGift(w http.ResponseWriter, r *http.Request) {
	var req createGiftRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}

	gift, err := h.Parties.CreateGift(r.Context(), partiesdomain.CreateGiftInput{
		PartyID:    partyID,
		ProposalID: req.ProposalID,
	})
	if err != nil {
		h.fail(w, r, "gifts.create", err, "party_id", partyID)
		return
	}
	h.done(w, "gifts.create", http.StatusCreated, toGiftResponse(*gift))
}

func (h *Handlers) GetGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := commonhandler.URLParam(w, r, "gift_id")
	if !ok {
		return
	}

	gift, err := h.Parties.GetGift(r.Context(), giftID)
	if err != nil {
		h.fail(w, r, "gifts.get", err, "gift_id", giftID)
		return
	}
	h.done(w, "gifts.get", http.StatusOK, toGiftResponse(*gift))
}

func (h *Handlers) GetGiftByShareCode(w http.ResponseWriter, r *http.Request) {
	code, ok := commonhandler.URLParam(w, r, "code")
	if !ok {
		return
	}

	gift, err := h.Parties.GetGiftByShareCode(r.Context(), code)
	if err != nil {
		h.fail(w, r, "gifts.get_by_share", err)
		return
	}
	h.done(w, "gifts.get_by_share", http.StatusOK, toGiftResponse(*gift))
}

func (h *Handlers) CloseParticipation(w http.ResponseWriter, r *http.Request) {
	h.setParticipation(w, r, "gifts.close", h.Parties.CloseParticipation)
}

func (h *Handlers) ReopenParticipation(w http.ResponseWriter, r *http.Request) {
	h.setParticipation(w, r, "gifts.reopen", h.Parties.ReopenParticipation)
}

func (h *Handlers) setParticipation(w http.ResponseWriter, r *http.Request, operation string, apply func(ctx context.Context, giftID string) (*partiesdomain.Gift, error)) {
	giftID, ok := commonhandler.URLParam(w, r, "gift_id")
	if !ok {
		return
	}

	gift, err := apply(r.Context(), giftID)
	if err != nil {
		h.fail(w, r, operation, err, "gift_id", giftID)
		return
	}
	h.done(w, operation, http.StatusOK, toGiftResponse(*gift))
}

func (h *Handlers) FinalizeGift(w http.ResponseWriter, r *http.Request) {
	var req finalizeGiftRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	giftID, ok := commonhandler.URLParam(w, r, "gift_id")
	if !ok {
		return
	}

	gift, err := h.Parties.FinalizeGift(r.Context(), giftID, partiesdomain.FinalizeInput{
		FinalPrice:      req.FinalPrice,
		ReceiptImageURL: req.ReceiptImageURL,
		Comment:         req.Comment,
	})
	if err != nil {
		h.fail(w, r, "gifts.finalize", err, "gift_id", giftID)
		return
	}
	h.log.Info("gifts.finalize: gift purchased", "gift_id", giftID, "party_id", gift.PartyID)
	h.done(w, "gifts.finalize", http.StatusOK, toGiftResponse(*gift))
}

func (h *Handlers) DeleteGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := commonhandler.URLParam(w, r, "gift_id")
	if !ok {
		return
	}

	result, err := h.Parties.DeleteGift(r.Context(), giftID)
	if err != nil {
		h.fail(w, r, "gifts.delete", err, "gift_id", giftID)
		return
	}
	h.done(w, "gifts.delete", http.StatusOK, report(result))
}

func (h *Handlers) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	if h.Receipts == nil {
		writeError(w, http.StatusNotImplemented, "receipts_disabled", "receipt storage is not configured")
		return
	}
	giftID, ok := commonhandler.URLParam(w, r, "gift_id")
	if !ok {
		return
	}

	gift, err := h.Parties.GetGift(r.Context(), giftID)
	if err != nil {
		h.fail(w, r, "gifts.upload_receipt", err, "gift_id", giftID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Receipts.MaxSize()+1<<20)
	file, header, err := r.FormFile(receiptFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "receipt_too_large", "receipt image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "receipt file is required")
		return
	}
	defer file.Close()

	receipt, err := h.Receipts.Upload(r.Context(), gift.ID, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		h.fail(w, r, "gifts.upload_receipt", err, "gift_id", giftID)
		return
	}
	h.done(w, "gifts.upload_receipt", http.StatusCreated, receiptResponse{Key: receipt.Key, URL: receipt.URL})
}

func (h *Handlers) JoinGift(w http.ResponseWriter, r *http.Request) {
	var req joinGiftRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	giftID, ok := commonhandler.URLParam(w, r, "gift_id")
	if !ok {
		return
	}

	participant, err := h.Parties.JoinGift(r.Context(), giftID, req.FamilyName)
	if err != nil {
		h.fail(w, r, "participants.join", err, "gift_id", giftID)
		return
	}
	h.done(w, "participants.join", http.StatusCreated, toParticipantResponse(*participant))
}

func (h *Handlers) ListParticipants(w http.ResponseWriter, r *http.Request) {
	giftID, ok := commonhandler.URLParam(w, r, "gift_id")
	if !ok {
		return
	}

	items, err := h.Parties.ListParticipants(r.Context(), giftID)
	if err != nil {
		h.fail(w, r, "participants.list", err, "gift_id", giftID)
		return
	}

	response := make([]participantResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toParticipantResponse(item))
	}
	h.done(w, "participants.list", http.StatusOK, participantListResponse{Items: response, Total: len(response)})
}

func (h *Handlers) LeaveGift(w http.ResponseWriter, r *http.Request) {
	participantID, ok := commonhandler.URLParam(w, r, "participant_id")
	if !ok {
		return
	}

	if err := h.Parties.LeaveGift(r.Context(), participantID); err != nil {
		h.fail(w, r, "participants.leave", err, "participant_id", participantID)
		return
	}
	h.metrics.Observe("participants.leave", nil)
	w.WriteHeader(http.StatusNoContent)
}
