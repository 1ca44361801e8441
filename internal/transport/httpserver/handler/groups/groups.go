package groups

import (
	"net/http"
	"time"

	groupsdomain "giftcircle/internal/domain/groups"
	"giftcircle/internal/store"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	"giftcircle/internal/transport/httpserver/middleware"
)

type createGroupRequest struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	Type              string  `json:"type"`
	CreatorFamilyName string  `json:"creator_family_name"`
}

type updateGroupRequest struct {
	Name        *string                              `json:"name"`
	Description commonhandler.OptionalNullableString `json:"description"`
	Type        *string                              `json:"type"`
}

type joinGroupRequest struct {
	InviteCode string `json:"invite_code"`
	FamilyName string `json:"family_name"`
}

type groupResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Type            string    `json:"type"`
	InviteCode      string    `json:"invite_code"`
	CreatorFamilyID *string   `json:"creator_family_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type familyResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Name      string    `json:"name"`
	IsCreator bool      `json:"is_creator"`
	Claimed   bool      `json:"claimed"`
	CreatedAt time.Time `json:"created_at"`
}

type createGroupResponse struct {
	Group  groupResponse  `json:"group"`
	Family familyResponse `json:"family"`
}

type groupListResponse struct {
	Items []groupResponse `json:"items"`
}

type familyListResponse struct {
	Items []familyResponse `json:"items"`
}

type warningsResponse struct {
	Warnings []string `json:"warnings"`
}

func toGroupResponse(group groupsdomain.Group) groupResponse {
	return groupResponse{
		ID:              group.ID,
		Name:            group.Name,
		Description:     group.Description,
		Type:            string(group.Type),
		InviteCode:      group.InviteCode,
		CreatorFamilyID: group.CreatorFamilyID,
		CreatedAt:       group.CreatedAt,
	}
}

func toFamilyResponse(family groupsdomain.Family) familyResponse {
	return familyResponse{
		ID:        family.ID,
		GroupID:   family.GroupID,
		Name:      family.Name,
		IsCreator: family.IsCreator,
		Claimed:   family.UserID != nil,
		CreatedAt: family.CreatedAt,
	}
}

func warnings(values []string) warningsResponse {
	if values == nil {
		values = []string{}
	}
	return warningsResponse{Warnings: values}
}

func report(r *store.DeleteReport) *store.DeleteReport {
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}

func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}

	result, err := h.Groups.CreateGroup(r.Context(), groupsdomain.CreateGroupInput{
		Name:              req.Name,
		Description:       req.Description,
		Type:              groupsdomain.GroupType(req.Type),
		CreatorFamilyName: req.CreatorFamilyName,
		UserID:            middleware.UserIDFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, "groups.create", err)
		return
	}

	h.done(w, "groups.create", http.StatusCreated, createGroupResponse{
		Group:  toGroupResponse(result.Group),
		Family: toFamilyResponse(result.Family),
	})
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}

	group, err := h.Groups.GetGroup(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "groups.get", err, "group_id", groupID)
		return
	}
	h.done(w, "groups.get", http.StatusOK, toGroupResponse(*group))
}

func (h *Handlers) GetGroupByInviteCode(w http.ResponseWriter, r *http.Request) {
	code, ok := commonhandler.URLParam(w, r, "code")
	if !ok {
		return
	}

	group, err := h.Groups.GetGroupByInviteCode(r.Context(), code)
	if err != nil {
		h.fail(w, r, "groups.get_by_invite", err)
		return
	}
	h.done(w, "groups.get_by_invite", http.StatusOK, toGroupResponse(*group))
}

func (h *Handlers) ListMyGroups(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	items, err := h.Groups.ListGroupsForUser(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, "groups.list_mine", err, "user_id", user.ID)
		return
	}

	response := make([]groupResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toGroupResponse(item))
	}
	h.done(w, "groups.list_mine", http.StatusOK, groupListResponse{Items: response})
}

func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}
	if req.Name == nil && !req.Description.Set && req.Type == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "no fields to update")
		return
	}

	input := groupsdomain.UpdateGroupInput{Name: req.Name}
	if req.Description.Set {
		description := ""
		if req.Description.Value != nil {
			description = *req.Description.Value
		}
		input.Description = &description
	}
	if req.Type != nil {
		groupType := groupsdomain.GroupType(*req.Type)
		input.Type = &groupType
	}

	group, err := h.Groups.UpdateGroup(r.Context(), groupID, input)
	if err != nil {
		h.fail(w, r, "groups.update", err, "group_id", groupID)
		return
	}
	h.done(w, "groups.update", http.StatusOK, toGroupResponse(*group))
}

func (h *Handlers) ValidateGroupDeletion(w http.ResponseWriter, r *http.Request) {
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}

	result, err := h.Groups.ValidateGroupDeletion(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "groups.validate_delete", err, "group_id", groupID)
		return
	}
	h.done(w, "groups.validate_delete", http.StatusOK, warnings(result))
}

func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}

	result, err := h.Groups.DeleteGroup(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "groups.delete", err, "group_id", groupID)
		return
	}
	h.log.Info("groups.delete: group removed", "group_id", groupID, "steps", len(result.Steps))
	h.done(w, "groups.delete", http.StatusOK, report(result))
}

func (h *Handlers) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}

	family, err := h.Groups.JoinGroup(r.Context(), req.InviteCode, req.FamilyName, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "groups.join", err)
		return
	}
	h.done(w, "groups.join", http.StatusCreated, toFamilyResponse(*family))
}

func (h *Handlers) ListFamilies(w http.ResponseWriter, r *http.Request) {
	groupID, ok := commonhandler.URLParam(w, r, "group_id")
	if !ok {
		return
	}

	items, err := h.Groups.ListFamilies(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, "families.list", err, "group_id", groupID)
		return
	}

	response := make([]familyResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toFamilyResponse(item))
	}
	h.done(w, "families.list", http.StatusOK, familyListResponse{Items: response})
}

func (h *Handlers) GetFamily(w http.ResponseWriter, r *http.Request) {
	familyID, ok := commonhandler.URLParam(w, r, "family_id")
	if !ok {
		return
	}

	family, err := h.Groups.GetFamily(r.Context(), familyID)
	if err != nil {
		h.fail(w, r, "families.get", err, "family_id", familyID)
		return
	}
	h.done(w, "families.get", http.StatusOK, toFamilyResponse(*family))
}

func (h *Handlers) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	familyID, ok := commonhandler.URLParam(w, r, "family_id")
	if !ok {
		return
	}

	result, err := h.Groups.DeleteFamily(r.Context(), familyID, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "families.delete", err, "family_id", familyID)
		return
	}
	h.done(w, "families.delete", http.StatusOK, report(result))
}
