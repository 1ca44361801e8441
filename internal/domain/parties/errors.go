package parties

import "giftcircle/internal/domain/domainerr"

var (
	ErrGroupNotFound       = domainerr.New(domainerr.KindNotFound, "group_not_found", "group not found")
	ErrPartyNotFound       = domainerr.New(domainerr.KindNotFound, "party_not_found", "party not found")
	ErrBirthdayNotFound    = domainerr.New(domainerr.KindNotFound, "birthday_not_found", "birthday not found")
	ErrFamilyNotFound      = domainerr.New(domainerr.KindNotFound, "family_not_found", "family not found")
	ErrProposalNotFound    = domainerr.New(domainerr.KindNotFound, "proposal_not_found", "proposal not found")
	ErrGiftNotFound        = domainerr.New(domainerr.KindNotFound, "gift_not_found", "gift not found")
	ErrParticipantNotFound = domainerr.New(domainerr.KindNotFound, "participant_not_found", "participant not found")

	ErrInvalidEventDate        = domainerr.New(domainerr.KindValidation, "invalid_event_date", "event date is required")
	ErrCelebrantRequired       = domainerr.New(domainerr.KindValidation, "celebrant_required", "a party needs at least one birthday")
	ErrCelebrantOutsideGroup   = domainerr.New(domainerr.KindValidation, "celebrant_outside_group", "birthday belongs to another group")
	ErrCoordinatorOutsideGroup = domainerr.New(domainerr.KindValidation, "coordinator_outside_group", "coordinator family belongs to another group")
	ErrProposalOutsideParty    = domainerr.New(domainerr.KindValidation, "proposal_outside_party", "proposal belongs to another party")
	ErrFinalPriceRequired      = domainerr.New(domainerr.KindValidation, "final_price_required", "final price is required")

	ErrGiftExists     = domainerr.New(domainerr.KindConflict, "gift_exists", "party already has a gift")
	ErrShareCodeTaken = domainerr.New(domainerr.KindConflict, "share_code_taken", "share code collision; retry")

	ErrGiftPurchased       = domainerr.New(domainerr.KindInvalidTransition, "gift_already_purchased", "gift already purchased")
	ErrParticipationClosed = domainerr.New(domainerr.KindInvalidTransition, "participation_closed", "participation is closed")
)
