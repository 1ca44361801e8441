package directgifts

import "giftcircle/internal/domain/domainerr"

var (
	ErrNotFound       = domainerr.New(domainerr.KindNotFound, "direct_gift_not_found", "gift not found")
	ErrNotOrganizer   = domainerr.New(domainerr.KindUnauthorized, "not_organizer", "only the organizer can change this gift")
	ErrShareCodeTaken = domainerr.New(domainerr.KindConflict, "share_code_taken", "share code collision; retry")
	ErrConcurrentEdit = domainerr.New(domainerr.KindConflict, "concurrent_update", "gift changed while updating; retry")

	ErrCancelPurchased   = domainerr.New(domainerr.KindInvalidTransition, "gift_already_purchased", "cannot cancel a purchased gift")
	ErrAlreadyCancelled  = domainerr.New(domainerr.KindInvalidTransition, "already_cancelled", "already cancelled")
	ErrAlreadyPurchased  = domainerr.New(domainerr.KindInvalidTransition, "gift_already_purchased", "gift already purchased")
	ErrPurchaseCancelled = domainerr.New(domainerr.KindInvalidTransition, "gift_cancelled", "cannot purchase a cancelled gift")
)
