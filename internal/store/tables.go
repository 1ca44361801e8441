package store

const (
	TableGroups         = "groups"
	TableFamilies       = "families"
	TableBirthdays      = "birthdays"
	TableIdeas          = "ideas"
	TableParties        = "parties"
	TablePartyBirthdays = "party_birthdays"
	TableProposals      = "proposals"
	TableProposalItems  = "proposal_items"
	TableVotes          = "votes"
	TableGifts          = "gifts"
	TableParticipants   = "participants"
	TableDirectGifts    = "direct_gifts"
)

// Unique constraint names as declared in migrations.
const (
	ConstraintGroupInviteCode   = "groups_invite_code_key"
	ConstraintVoteVoter         = "votes_proposal_id_voter_name_key"
	ConstraintGiftShareCode     = "gifts_share_code_key"
	ConstraintGiftParty         = "gifts_party_id_key"
	ConstraintDirectGiftShare   = "direct_gifts_share_code_key"
	ConstraintPartyBirthdayPair = "party_birthdays_pkey"
)
