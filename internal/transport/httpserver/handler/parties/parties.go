package parties

import (
	"net/http"
	"time"

	partiesdomain "giftcircle/internal/domain/parties"
	"giftcircle/internal/store"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
)

type createPartyRequest struct {
	EventDate           string   `json:"event_date"`
	CoordinatorFamilyID *string  `json:"coordinator_family_id"`
	BirthdayIDs         []string `json:"birthday_ids"`
}

type updatePartyRequest struct {
	EventDate           *string                              `json:"event_date"`
	CoordinatorFamilyID commonhandler.OptionalNullableString `json:"coordinator_family_id"`
}

type partyResponse struct {
	ID                  string        `json:"id"`
	GroupID             string        `json:"group_id"`
	EventDate           string        `json:"event_date"`
	CoordinatorFamilyID *string       `json:"coordinator_family_id"`
	BirthdayIDs         []string      `json:"birthday_ids"`
	Status              string        `json:"status"`
	Gift                *giftResponse `json:"gift"`
	CreatedAt           time.Time     `json:"created_at"`
}

type partyListResponse struct {
	Items []partyResponse `json:"items"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type warningsResponse struct {
	Warnings []string `json:"warnings"`
}

func toPartyResponse(party partiesdomain.PartyDetails) partyResponse {
	birthdayIDs := party.BirthdayIDs
	if birthdayIDs == nil {
		birthdayIDs = []string{}
	}
	response := partyResponse{
		ID:                  party.ID,
		GroupID:             party.GroupID,
		EventDate:           commonhandler.FormatDate(party.EventDate),
		CoordinatorFamilyID: party.CoordinatorFamilyID,
		BirthdayIDs:         birthdayIDs,
		Status:              string(party.Status),
		CreatedAt:           party.CreatedAt,
	}
	if party.Gift != nil {
		gift := toGiftResponse(*party.Gift)
		response.Gift = &gift
	}
	return response
}

func report(r *store.DeleteReport) *store.DeleteReport {
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}

func (h *Handlers) CreateParty(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}
	eventDate, err := commonhandler.ParseDateRequired(req.EventDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid event_date")
		return
	}

	party, err := h.Parties.CreateParty(r.Context(), partiesdomain.CreatePartyInput{
		GroupID:             groupID,
		EventDate:           eventDate,
		CoordinatorFamilyID: req.CoordinatorFamilyID,
		BirthdayIDs:         req.BirthdayIDs,
	})
	if err != nil {
		h.fail(w, r, "parties.create", err, "group_id", groupID)
		return
	}
	h.done(w, "parties.create", http.StatusCreated, toPartyResponse(*party))
}

func (h *Handlers) ListParties(w http.ResponseWriter, r *http.Request) {
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}

	items, err := h.Parties.ListParties(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "parties.list", err, "group_id", groupID)
		return
	}

	response := make([]partyResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toPartyResponse(item))
	}
	h.done(w, "parties.list", http.StatusOK, partyListResponse{Items: response})
}

func (h *Handlers) GetParty(w http.ResponseWriter, r *http.Request) {
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}

	party, err := h.Parties.GetParty(r.Context(), partyID)
	if err != nil {
		h.fail(w, r, "parties.get", err, "party_id", partyID)
		return
	}
	h.done(w, "parties.get", http.StatusOK, toPartyResponse(*party))
}

func (h *Handlers) GetPartyStatus(w http.ResponseWriter, r *http.Request) {
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}

	status, err := h.Parties.Status(r.Context(), partyID)
	if err != nil {
		h.fail(w, r, "parties.status", err, "party_id", partyID)
		return
	}
	h.done(w, "parties.status", http.StatusOK, statusResponse{Status: string(status)})
}

func (h *Handlers) UpdateParty(w http.ResponseWriter, r *http.Request) {
	var req updatePartyRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}
	if req.EventDate == nil && !req.CoordinatorFamilyID.Set {
		writeError(w, http.StatusBadRequest, "invalid_request", "no fields to update")
		return
	}

	eventDate, err := commonhandler.ParseDateParam(req.EventDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid event_date")
		return
	}
	input := partiesdomain.UpdatePartyInput{EventDate: eventDate}
	if req.CoordinatorFamilyID.Set {
		input.CoordinatorFamilyID = req.CoordinatorFamilyID.Value
		input.ClearCoordinator = req.CoordinatorFamilyID.Value == nil
	}

	party, err := h.Parties.UpdateParty(r.Context(), partyID, input)
	if err != nil {
		h.fail(w, r, "parties.update", err, "party_id", partyID)
		return
	}
	h.done(w, "parties.update", http.StatusOK, toPartyResponse(*party))
}

func (h *Handlers) ValidatePartyDeletion(w http.ResponseWriter, r *http.Request) {
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}

	warnings, err := h.Parties.ValidatePartyDeletion(r.Context(), partyID)
	if err != nil {
		h.fail(w, r, "parties.validate_delete", err, "party_id", partyID)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	h.done(w, "parties.validate_delete", http.StatusOK, warningsResponse{Warnings: warnings})
}

func (h *Handlers) DeleteParty(w http.ResponseWriter, r *http.Request) {
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}

	result, err := h.Parties.DeleteParty(r.Context(), partyID)
	if err != nil {
		h.fail(w, r, "parties.delete", err, "party_id", partyID)
		return
	}
	h.done(w, "parties.delete", http.StatusOK, report(result))
}
