package groups

import "giftcircle/internal/domain/domainerr"

var (
	ErrGroupNotFound      = domainerr.New(domainerr.KindNotFound, "group_not_found", "group not found")
	ErrInviteCodeNotFound = domainerr.New(domainerr.KindNotFound, "invite_code_not_found", "invite code not found")
	ErrFamilyNotFound     = domainerr.New(domainerr.KindNotFound, "family_not_found", "family not found")
	ErrBirthdayNotFound   = domainerr.New(domainerr.KindNotFound, "birthday_not_found", "birthday not found")
	ErrIdeaNotFound       = domainerr.New(domainerr.KindNotFound, "idea_not_found", "idea not found")

	ErrInvalidGroupType = domainerr.New(domainerr.KindValidation, "invalid_group_type", "group type must be class, friends, family, work or other")
	ErrInviteCodeTaken  = domainerr.New(domainerr.KindConflict, "invite_code_taken", "invite code collision; retry")

	ErrNotFamilyOwner = domainerr.New(domainerr.KindUnauthorized, "not_family_owner", "only the family owner can remove this family")
	ErrCreatorFamily  = domainerr.New(domainerr.KindInvalidTransition, "creator_family", "the creator family cannot be removed")
)
