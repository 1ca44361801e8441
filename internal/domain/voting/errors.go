package voting

import "giftcircle/internal/domain/domainerr"

var (
	ErrPartyNotFound       = domainerr.New(domainerr.KindNotFound, "party_not_found", "party not found")
	ErrProposalNotFound    = domainerr.New(domainerr.KindNotFound, "proposal_not_found", "proposal not found")
	ErrVoteNotFound        = domainerr.New(domainerr.KindNotFound, "vote_not_found", "vote not found")
	ErrDuplicateVote       = domainerr.New(domainerr.KindConflict, "already_voted", "already voted")
	ErrVotingClosed        = domainerr.New(domainerr.KindInvalidTransition, "voting_closed", "voting closed")
	ErrPartyPurchased      = domainerr.New(domainerr.KindInvalidTransition, "gift_already_purchased", "the party gift was already purchased")
	ErrProposalInUse       = domainerr.New(domainerr.KindInvalidTransition, "proposal_in_use", "proposal is referenced by a gift")
	ErrSelectionIncomplete = domainerr.New(domainerr.KindConflict, "selection_incomplete", "proposal selected but other proposals are still selected; retry")
)
