package groups

import (
	"net/http"
	"time"

	groupsdomain "giftcircle/internal/domain/groups"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
)

type createBirthdayRequest struct {
	ChildName string `json:"child_name"`
	BirthDate string `json:"birth_date"`
}

type createIdeaRequest struct {
	Text  string   `json:"text"`
	Price *float64 `json:"price"`
	Link  *string  `json:"link"`
}

type birthdayResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	ChildName string    `json:"child_name"`
	BirthDate string    `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
}

type birthdayListResponse struct {
	Items []birthdayResponse `json:"items"`
}

type ideaResponse struct {
	ID         string    `json:"id"`
	BirthdayID string    `json:"birthday_id"`
	Text       string    `json:"text"`
	Price      *float64  `json:"price"`
	Link       *string   `json:"link"`
	CreatedAt  time.Time `json:"created_at"`
}

type ideaListResponse struct {
	Items []ideaResponse `json:"items"`
}

func toBirthdayResponse(birthday groupsdomain.Birthday) birthdayResponse {
	return birthdayResponse{
		ID:        birthday.ID,
		GroupID:   birthday.GroupID,
		ChildName: birthday.ChildName,
		BirthDate: commonhandler.FormatDate(birthday.BirthDate),
		CreatedAt: birthday.CreatedAt,
	}
}

func toIdeaResponse(idea groupsdomain.Idea) ideaResponse {
	return ideaResponse{
		ID:         idea.ID,
		BirthdayID: idea.BirthdayID,
		Text:       idea.Text,
		Price:      idea.Price,
		Link:       idea.Link,
		CreatedAt:  idea.CreatedAt,
	}
}

func (h *Handlers) CreateBirthday(w http.ResponseWriter, r *http.Request) {
	var req createBirthdayRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}
	birthDate, err := commonhandler.ParseDateRequired(req.BirthDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid birth_date")
		return
	}

	birthday, err := h.Groups.CreateBirthday(r.Context(), groupID, req.ChildName, birthDate)
	if err != nil {
		h.fail(w, r, "birthdays.create", err, "group_id", groupID)
		return
	}
	h.done(w, "birthdays.create", http.StatusCreated, toBirthdayResponse(*birthday))
}

func (h *Handlers) ListBirthdays(w http.ResponseWriter, r *http.Request) {
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}

	items, err := h.Groups.ListBirthdays(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "birthdays.list", err, "group_id", groupID)
		return
	}

	response := make([]birthdayResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toBirthdayResponse(item))
	}
	h.done(w, "birthdays.list", http.StatusOK, birthdayListResponse{Items: response})
}

func (h *Handlers) GetBirthday(w http.ResponseWriter, r *http.Request) {
	birthdayID, ok := commonhandler.URLParam(w, r, "birthday_id")
	if !ok {
		return
	}

	birthday, err := h.Groups.GetBirthday(r.Context(), birthdayID)
	if err != nil {
		h.fail(w, r, "birthdays.get", err, "birthday_id", birthdayID)
		return
	}
	h.done(w, "birthdays.get", http.StatusOK, toBirthdayResponse(*birthday))
}

func (h *Handlers) DeleteBirthday(w http.ResponseWriter, r *http.Request) {
	birthdayID, ok := commonhandler.URLParam(w, r, "birthday_id")
	if !ok {
		return
	}

	result, err := h.Groups.DeleteBirthday(r.Context(), birthdayID)
	if err != nil {
		h.fail(w, r, "birthdays.delete", err, "birthday_id", birthdayID)
		return
	}
	h.done(w, "birthdays.delete", http.StatusOK, report(result))
}

func (h *Handlers) CreateIdea(w http.ResponseWriter, r *http.Request) {
	var req createIdeaRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	birthdayID, ok := commonhandler.URLParam(w, r, "birthday_id")
	if !ok {
		return
	}

	idea, err := h.Groups.CreateIdea(r.Context(), groupsdomain.CreateIdeaInput{
		BirthdayID: birthdayID,
		Text:       req.Text,
		Price:      req.Price,
		Link:       req.Link,
	})
	if err != nil {
		h.fail(w, r, "ideas.create", err, "birthday_id", birthdayID)
		return
	}
	h.done(w, "ideas.create", http.StatusCreated, toIdeaResponse(*idea))
}

func (h *Handlers) ListIdeas(w http.ResponseWriter, r *http.Request) {
	birthdayID, ok := commonhandler.URLParam(w, r, "birthday_id")
	if !ok {
		return
	}

	items, err := h.Groups.ListIdeas(r.Context(), birthdayID)
	if err != nil {
		h.fail(w, r, "ideas.list", err, "birthday_id", birthdayID)
		return
	}

	response := make([]ideaResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toIdeaResponse(item))
	}
	h.done(w, "ideas.list", http.StatusOK, ideaListResponse{Items: response})
}

func (h *Handlers) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	ideaID, ok := commonhandler.URLParam(w, r, "idea_id")
	if !ok {
		return
	}

	if err := h.Groups.DeleteIdea(r.Context(), ideaID); err != nil {
		h.fail(w, r, "ideas.delete", err, "idea_id", ideaID)
		return
	}
	h.metrics.Observe("ideas.delete", nil)
	w.WriteHeader(http.StatusNoContent)
}
