package voting

import (
	"net/http"
	"time"

	votingdomain "giftcircle/internal/domain/voting"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
)

type itemRequest struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	Link  *string  `json:"link"`
}

type createProposalRequest struct {
	Name           string        `json:"name"`
	Description    *string       `json:"description"`
	TotalPrice     float64       `json:"total_price"`
	VotingDeadline *time.Time    `json:"voting_deadline"`
	Items          []itemRequest `json:"items"`
}

type voteRequest struct {
	VoterName string `json:"voter_name"`
}

type itemResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Link     *string  `json:"link"`
	Position int      `json:"position"`
}

type proposalResponse struct {
	ID             string         `json:"id"`
	PartyID        string         `json:"party_id"`
	Name           string         `json:"name"`
	Description    *string        `json:"description"`
	TotalPrice     float64        `json:"total_price"`
	VotingDeadline *time.Time     `json:"voting_deadline"`
	IsSelected     bool           `json:"is_selected"`
	VoteCount      int            `json:"vote_count"`
	Items          []itemResponse `json:"items"`
	CreatedAt      time.Time      `json:"created_at"`
}

type proposalListResponse struct {
	Items []proposalResponse `json:"items"`
}

type voteResponse struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposal_id"`
	VoterName  string    `json:"voter_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type voteListResponse struct {
	Items []voteResponse `json:"items"`
	Total int            `json:"total"`
}

type warningsResponse struct {
	Warnings []string `json:"warnings"`
}

func toProposalResponse(proposal votingdomain.ProposalDetails) proposalResponse {
	items := make([]itemResponse, 0, len(proposal.Items))
	for _, item := range proposal.Items {
		items = append(items, itemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Link:     item.Link,
			Position: item.Position,
		})
	}
	return proposalResponse{
		ID:             proposal.ID,
		PartyID:        proposal.PartyID,
		Name:           proposal.Name,
		Description:    proposal.Description,
		TotalPrice:     proposal.TotalPrice,
		VotingDeadline: proposal.VotingDeadline,
		IsSelected:     proposal.IsSelected,
		VoteCount:      proposal.VoteCount,
		Items:          items,
		CreatedAt:      proposal.CreatedAt,
	}
}

func toVoteResponse(vote votingdomain.Vote) voteResponse {
	return voteResponse{
		ID:         vote.ID,
		ProposalID: vote.ProposalID,
		VoterName:  vote.VoterName,
		CreatedAt:  vote.CreatedAt,
	}
}

func (h *Handlers) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}

	items := make([]votingdomain.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, votingdomain.ItemInput{Name: item.Name, Price: item.Price, Link: item.Link})
	}

	proposal, err := h.Voting.CreateProposal(r.Context(), votingdomain.CreateProposalInput{
		PartyID:        partyID,
		Name:           req.Name,
		Description:    req.Description,
		TotalPrice:     req.TotalPrice,
		VotingDeadline: req.VotingDeadline,
		Items:          items,
	})
	if err != nil {
		h.fail(w, r, "proposals.create", err, "party_id", partyID)
		return
	}
	h.done(w, "proposals.create", http.StatusCreated, toProposalResponse(*proposal))
}

func (h *Handlers) ListProposals(w http.ResponseWriter, r *http.Request) {
	partyID, ok := commonhandler.URLParam(w, r, "party_id")
	if !ok {
		return
	}

	items, err := h.Voting.ListProposals(r.Context(), partyID)
	if err != nil {
		h.fail(w, r, "proposals.list", err, "party_id", partyID)
		return
	}

	response := make([]proposalResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toProposalResponse(item))
	}
	h.done(w, "proposals.list", http.StatusOK, proposalListResponse{Items: response})
}

func (h *Handlers) GetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := commonhandler.URLParam(w, r, "proposal_id")
	if !ok {
		return
	}

	proposal, err := h.Voting.GetProposal(r.Context(), proposalID)
	if err != nil {
		h.fail(w, r, "proposals.get", err, "proposal_id", proposalID)
		return
	}
	h.done(w, "proposals.get", http.StatusOK, toProposalResponse(*proposal))
}

func (h *Handlers) SelectProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := commonhandler.URLParam(w, r, "proposal_id")
	if !ok {
		return
	}

	if _, err := h.Voting.SelectProposal(r.Context(), proposalID); err != nil {
		h.fail(w, r, "proposals.select", err, "proposal_id", proposalID)
		return
	}
	proposal, err := h.Voting.GetProposal(r.Context(), proposalID)
	if err != nil {
		h.fail(w, r, "proposals.select", err, "proposal_id", proposalID)
		return
	}
	h.done(w, "proposals.select", http.StatusOK, toProposalResponse(*proposal))
}

func (h *Handlers) ValidateProposalDeletion(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := commonhandler.URLParam(w, r, "proposal_id")
	if !ok {
		return
	}

	warnings, err := h.Voting.ValidateProposalDeletion(r.Context(), proposalID)
	if err != nil {
		h.fail(w, r, "proposals.validate_delete", err, "proposal_id", proposalID)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	h.done(w, "proposals.validate_delete", http.StatusOK, warningsResponse{Warnings: warnings})
}

func (h *Handlers) DeleteProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := commonhandler.URLParam(w, r, "proposal_id")
	if !ok {
		return
	}

	result, err := h.Voting.DeleteProposal(r.Context(), proposalID)
	if err != nil {
		h.fail(w, r, "proposals.delete", err, "proposal_id", proposalID)
		return
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	h.done(w, "proposals.delete", http.StatusOK, result)
}

func (h *Handlers) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	proposalID, ok := commonhandler.URLParam(w, r, "proposal_id")
	if !ok {
		return
	}

	vote, err := h.Voting.Vote(r.Context(), proposalID, req.VoterName)
	if err != nil {
		h.fail(w, r, "votes.create", err, "proposal_id", proposalID)
		return
	}
	h.done(w, "votes.create", http.StatusCreated, toVoteResponse(*vote))
}

func (h *Handlers) ListVotes(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := commonhandler.URLParam(w, r, "proposal_id")
	if !ok {
		return
	}

	items, err := h.Voting.ListVotes(r.Context(), proposalID)
	if err != nil {
		h.fail(w, r, "votes.list", err, "proposal_id", proposalID)
		return
	}

	response := make([]voteResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toVoteResponse(item))
	}
	h.done(w, "votes.list", http.StatusOK, voteListResponse{Items: response, Total: len(response)})
}

func (h *Handlers) RetractVote(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := commonhandler.URLParam(w, r, "proposal_id")
	if !ok {
		return
	}
	voterName := r.URL.Query().Get("voter_name")

	if err := h.Voting.RetractVote(r.Context(), proposalID, voterName); err != nil {
		h.fail(w, r, "votes.retract", err, "proposal_id", proposalID)
		return
	}
	h.metrics.Observe("votes.retract", nil)
	w.WriteHeader(http.StatusNoContent)
}

