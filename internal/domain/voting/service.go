package voting

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/store"
	"github.com/google/uuid"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type giftRef struct {
	ID          string
	PartyID     string
	ProposalID  *string
	PurchasedAt *time.Time
}

func (s *Service) CreateProposal(ctx context.Context, input CreateProposalInput) (*ProposalDetails, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domainerr.Validation("name is required")
	}
	if input.TotalPrice < 0 {
		return nil, domainerr.Validation("total price must be non-negative")
	}

	items := make([]ProposalItem, 0, len(input.Items))
	for i, item := range input.Items {
		itemName := strings.TrimSpace(item.Name)
		if itemName == "" {
			return nil, domainerr.Validation("item name is required")
		}
		if item.Price != nil && *item.Price < 0 {
			return nil, domainerr.Validation("item price must be non-negative")
		}
		items = append(items, ProposalItem{
			Name:     itemName,
			Price:    item.Price,
			Link:     trimmedOrNil(item.Link),
			Position: i,
		})
	}

	count, err := s.store.Count(ctx, store.TableParties, store.Where{"id": input.PartyID})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrPartyNotFound
	}
	if err := s.ensurePartyNotPurchased(ctx, input.PartyID); err != nil {
		return nil, err
	}

	proposal := Proposal{
		ID:             uuid.NewString(),
		PartyID:        input.PartyID,
		Name:           name,
		Description:    trimmedOrNil(input.Description),
		TotalPrice:     input.TotalPrice,
		VotingDeadline: input.VotingDeadline,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.Insert(ctx, store.TableProposals, &proposal); err != nil {
			return err
		}
		for i := range items {
			items[i].ID = uuid.NewString()
			items[i].ProposalID = proposal.ID
			if err := tx.Insert(ctx, store.TableProposalItems, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ProposalDetails{Proposal: proposal, Items: items}, nil
}

func (s *Service) GetProposal(ctx context.Context, proposalID string) (*ProposalDetails, error) {
	proposal, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	details, err := s.withDetails(ctx, []Proposal{*proposal})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *Service) ListProposals(ctx context.Context, partyID string) ([]ProposalDetails, error) {
	var proposals []Proposal
	if err := s.store.Select(ctx, store.TableProposals, store.Where{"party_id": partyID}, &proposals, "created_at asc"); err != nil {
		return nil, err
	}
	return s.withDetails(ctx, proposals)
}

func (s *Service) withDetails(ctx context.Context, proposals []Proposal) ([]ProposalDetails, error) {
	if len(proposals) == 0 {
		return []ProposalDetails{}, nil
	}
	ids := make([]string, 0, len(proposals))
	for _, proposal := range proposals {
		ids = append(ids, proposal.ID)
	}

	var items []ProposalItem
	if err := s.store.Select(ctx, store.TableProposalItems, store.Where{"proposal_id": ids}, &items, "position asc"); err != nil {
		return nil, err
	}
	var votes []Vote
	if err := s.store.Select(ctx, store.TableVotes, store.Where{"proposal_id": ids}, &votes); err != nil {
		return nil, err
	}

	itemsByProposal := make(map[string][]ProposalItem, len(proposals))
	for _, item := range items {
		itemsByProposal[item.ProposalID] = append(itemsByProposal[item.ProposalID], item)
	}
	votesByProposal := make(map[string]int, len(proposals))
	for _, vote := range votes {
		votesByProposal[vote.ProposalID]++
	}

	result := make([]ProposalDetails, 0, len(proposals))
	for _, proposal := range proposals {
		proposalItems := itemsByProposal[proposal.ID]
		if proposalItems == nil {
			proposalItems = []ProposalItem{}
		}
		result = append(result, ProposalDetails{
			Proposal:  proposal,
			Items:     proposalItems,
			VoteCount: votesByProposal[proposal.ID],
		})
	}
	return result, nil
}

// Vote records one vote. The (proposal_id, voter_name) unique index is the
// only serialization point: of two concurrent votes by the same name, the
// second gets ErrDuplicateVote.
func (s *Service) Vote(ctx context.Context, proposalID, voterName string) (*Vote, error) {
	voterName, err := normalizeVoterName(voterName)
	if err != nil {
		return nil, err
	}

	proposal, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !proposal.VotingOpen(s.now()) {
		return nil, ErrVotingClosed
	}

	vote := Vote{
		ID:         uuid.NewString(),
		ProposalID: proposal.ID,
		VoterName:  voterName,
	}
	if err := s.store.Insert(ctx, store.TableVotes, &vote); err != nil {
		if store.IsConstraint(err, store.ConstraintVoteVoter) {
			return nil, domainerr.Wrap(ErrDuplicateVote, err)
		}
		return nil, err
	}
	return &vote, nil
}

func (s *Service) RetractVote(ctx context.Context, proposalID, voterName string) error {
	voterName, err := normalizeVoterName(voterName)
	if err != nil {
		return err
	}

	proposal, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if !proposal.VotingOpen(s.now()) {
		return ErrVotingClosed
	}

	deleted, err := s.store.Delete(ctx, store.TableVotes, store.Where{"proposal_id": proposalID, "voter_name": voterName})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrVoteNotFound
	}
	return nil
}

func (s *Service) ListVotes(ctx context.Context, proposalID string) ([]Vote, error) {
	if _, err := s.loadProposal(ctx, proposalID); err != nil {
		return nil, err
	}
	var votes []Vote
	if err := s.store.Select(ctx, store.TableVotes, store.Where{"proposal_id": proposalID}, &votes, "created_at asc"); err != nil {
		return nil, err
	}
	return votes, nil
}

// SelectProposal marks proposalID as the party's choice in two statements:
// set the flag on the proposal, then clear it on its siblings. The party is
// read from the row just updated, never from the caller. There is no
// transaction around the two phases: if the second fails, more than one
// proposal stays selected until a later SelectProposal converges the party
// again. Two racing selections may also clear each other; a later solo
// selection repairs that the same way.
func (s *Service) SelectProposal(ctx context.Context, proposalID string) (*Proposal, error) {
	current, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePartyNotPurchased(ctx, current.PartyID); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, store.TableProposals, store.Where{"id": proposalID}, map[string]any{"is_selected": true})
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, ErrProposalNotFound
	}

	selected, err := s.loadProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var siblings []Proposal
	if err := s.store.Select(ctx, store.TableProposals, store.Where{"party_id": selected.PartyID, "is_selected": true}, &siblings); err != nil {
		return nil, domainerr.Wrap(ErrSelectionIncomplete, err)
	}
	others := make([]string, 0, len(siblings))
	for _, sibling := range siblings {
		if sibling.ID != selected.ID {
			others = append(others, sibling.ID)
		}
	}
	if len(others) > 0 {
		if _, err := s.store.Update(ctx, store.TableProposals, store.Where{"id": others, "party_id": selected.PartyID}, map[string]any{"is_selected": false}); err != nil {
			return nil, domainerr.Wrap(ErrSelectionIncomplete, err)
		}
	}

	return selected, nil
}

func (s *Service) ValidateProposalDeletion(ctx context.Context, proposalID string) ([]string, error) {
	if _, err := s.loadProposal(ctx, proposalID); err != nil {
		return nil, err
	}
	votes, err := s.store.Count(ctx, store.TableVotes, store.Where{"proposal_id": proposalID})
	if err != nil {
		return nil, err
	}
	warnings := []string{}
	if votes > 0 {
		warnings = append(warnings, pluralize(votes, "vote", "votes")+" will be removed")
	}
	return warnings, nil
}

func (s *Service) DeleteProposal(ctx context.Context, proposalID string) (*store.DeleteReport, error) {
	warnings, err := s.ValidateProposalDeletion(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	referenced, err := s.store.Count(ctx, store.TableGifts, store.Where{"proposal_id": proposalID})
	if err != nil {
		return nil, err
	}
	if referenced > 0 {
		return nil, ErrProposalInUse
	}

	plan := store.Plan{
		Steps:  DeletionSteps([]string{proposalID}),
		Verify: store.Step{Table: store.TableProposals, Where: store.Where{"id": proposalID}},
	}
	steps, err := plan.Execute(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return &store.DeleteReport{Warnings: warnings, Steps: steps}, nil
}

// DeletionSteps removes proposals with everything they own, children first.
func DeletionSteps(proposalIDs []string) []store.Step {
	return []store.Step{
		{Table: store.TableVotes, Where: store.Where{"proposal_id": proposalIDs}},
		{Table: store.TableProposalItems, Where: store.Where{"proposal_id": proposalIDs}},
		{Table: store.TableProposals, Where: store.Where{"id": proposalIDs}},
	}
}

func (s *Service) ensurePartyNotPurchased(ctx context.Context, partyID string) error {
	var gifts []giftRef
	if err := s.store.Select(ctx, store.TableGifts, store.Where{"party_id": partyID}, &gifts); err != nil {
		return err
	}
	for _, gift := range gifts {
		if gift.PurchasedAt != nil {
			return ErrPartyPurchased
		}
	}
	return nil
}

func (s *Service) loadProposal(ctx context.Context, proposalID string) (*Proposal, error) {
	var proposal Proposal
	if err := s.store.SelectOne(ctx, store.TableProposals, store.Where{"id": proposalID}, &proposal); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func normalizeVoterName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domainerr.Validation("voter name is required")
	}
	if utf8.RuneCountInString(name) > MaxVoterNameLength {
		return "", domainerr.Validation("voter name is too long")
	}
	return name, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func pluralize(n int64, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.FormatInt(n, 10) + " " + many
}
