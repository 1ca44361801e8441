package parties

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giftcircle/internal/domain/tokens"
	"giftcircle/internal/domain/voting"
	"giftcircle/internal/store"
	"github.com/google/uuid"
)

type Service struct {
	store     store.Store
	now       func() time.Time
	shareCode func() (string, error)
}

func NewService(st store.Store) *Service {
	return &Service{
		store:     st,
		now:       func() time.Time { return time.Now().UTC() },
		shareCode: tokens.ShareCode,
	}
}

type memberRef struct {
	ID      string
	GroupID string
}

func (s *Service) CreateParty(ctx context.Context, input CreatePartyInput) (*PartyDetails, error) {
	if input.EventDate.IsZero() {
		return nil, ErrInvalidEventDate
	}
	birthdayIDs := dedupe(input.BirthdayIDs)
	if len(birthdayIDs) == 0 {
		return nil, ErrCelebrantRequired
	}

	groups, err := s.store.Count(ctx, store.TableGroups, store.Where{"id": input.GroupID})
	if err != nil {
		return nil, err
	}
	if groups == 0 {
		return nil, ErrGroupNotFound
	}
	if err := s.checkBirthdays(ctx, input.GroupID, birthdayIDs); err != nil {
		return nil, err
	}
	if input.CoordinatorFamilyID != nil {
		if err := s.checkCoordinator(ctx, input.GroupID, *input.CoordinatorFamilyID); err != nil {
			return nil, err
		}
	}

	party := Party{
		ID:                  uuid.NewString(),
		GroupID:             input.GroupID,
		EventDate:           dateOnly(input.EventDate),
		CoordinatorFamilyID: input.CoordinatorFamilyID,
	}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.Insert(ctx, store.TableParties, &party); err != nil {
			return err
		}
		for _, birthdayID := range birthdayIDs {
			link := PartyBirthday{PartyID: party.ID, BirthdayID: birthdayID}
			if err := tx.Insert(ctx, store.TablePartyBirthdays, &link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PartyDetails{Party: party, BirthdayIDs: birthdayIDs, Status: StatusPending}, nil
}

func (s *Service) GetParty(ctx context.Context, partyID string) (*PartyDetails, error) {
	party, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	details, err := s.withDetails(ctx, []Party{*party})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *Service) ListParties(ctx context.Context, groupID string) ([]PartyDetails, error) {
	var parties []Party
	if err := s.store.Select(ctx, store.TableParties, store.Where{"group_id": groupID}, &parties, "event_date asc", "created_at asc"); err != nil {
		return nil, err
	}
	return s.withDetails(ctx, parties)
}

func (s *Service) withDetails(ctx context.Context, parties []Party) ([]PartyDetails, error) {
	if len(parties) == 0 {
		return []PartyDetails{}, nil
	}
	ids := make([]string, 0, len(parties))
	for _, party := range parties {
		ids = append(ids, party.ID)
	}

	var links []PartyBirthday
	if err := s.store.Select(ctx, store.TablePartyBirthdays, store.Where{"party_id": ids}, &links); err != nil {
		return nil, err
	}
	var proposals []voting.Proposal
	if err := s.store.Select(ctx, store.TableProposals, store.Where{"party_id": ids}, &proposals); err != nil {
		return nil, err
	}
	var gifts []Gift
	if err := s.store.Select(ctx, store.TableGifts, store.Where{"party_id": ids}, &gifts); err != nil {
		return nil, err
	}

	birthdays := make(map[string][]string, len(parties))
	for _, link := range links {
		birthdays[link.PartyID] = append(birthdays[link.PartyID], link.BirthdayID)
	}
	snapshots := make(map[string]*Snapshot, len(parties))
	for _, id := range ids {
		snapshots[id] = &Snapshot{}
	}
	for _, proposal := range proposals {
		snapshots[proposal.PartyID].Proposals = append(snapshots[proposal.PartyID].Proposals, proposal)
	}
	for i := range gifts {
		snapshots[gifts[i].PartyID].Gift = &gifts[i]
	}

	result := make([]PartyDetails, 0, len(parties))
	for _, party := range parties {
		snapshot := snapshots[party.ID]
		birthdayIDs := birthdays[party.ID]
		if birthdayIDs == nil {
			birthdayIDs = []string{}
		}
		result = append(result, PartyDetails{
			Party:       party,
			BirthdayIDs: birthdayIDs,
			Status:      ComputeStatus(*snapshot),
			Gift:        snapshot.Gift,
		})
	}
	return result, nil
}

func (s *Service) UpdateParty(ctx context.Context, partyID string, input UpdatePartyInput) (*PartyDetails, error) {
	party, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}

	patch := map[string]any{}
	if input.EventDate != nil {
		if input.EventDate.IsZero() {
			return nil, ErrInvalidEventDate
		}
		patch["event_date"] = dateOnly(*input.EventDate)
	}
	switch {
	case input.ClearCoordinator:
		patch["coordinator_family_id"] = nil
	case input.CoordinatorFamilyID != nil:
		if err := s.checkCoordinator(ctx, party.GroupID, *input.CoordinatorFamilyID); err != nil {
			return nil, err
		}
		patch["coordinator_family_id"] = *input.CoordinatorFamilyID
	}

	if len(patch) > 0 {
		updated, err := s.store.Update(ctx, store.TableParties, store.Where{"id": partyID}, patch)
		if err != nil {
			return nil, err
		}
		if updated == 0 {
			return nil, ErrPartyNotFound
		}
	}
	return s.GetParty(ctx, partyID)
}

// Status reads the party's proposals and gift and derives its status.
func (s *Service) Status(ctx context.Context, partyID string) (Status, error) {
	details, err := s.GetParty(ctx, partyID)
	if err != nil {
		return "", err
	}
	return details.Status, nil
}

func (s *Service) ValidatePartyDeletion(ctx context.Context, partyID string) ([]string, error) {
	if _, err := s.loadParty(ctx, partyID); err != nil {
		return nil, err
	}
	return DeletionWarnings(ctx, s.store, []string{partyID})
}

func (s *Service) DeleteParty(ctx context.Context, partyID string) (*store.DeleteReport, error) {
	warnings, err := s.ValidatePartyDeletion(ctx, partyID)
	if err != nil {
		return nil, err
	}

	var results []store.StepResult
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		steps, err := DeletionSteps(ctx, tx, []string{partyID})
		if err != nil {
			return err
		}
		plan := store.Plan{
			Steps:  steps,
			Verify: store.Step{Table: store.TableParties, Where: store.Where{"id": partyID}},
		}
		results, err = plan.Execute(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &store.DeleteReport{Warnings: warnings, Steps: results}, nil
}

// DeletionSteps lists what must go, children first, to delete the given
// parties: participants, gifts, proposals with their votes and items,
// celebrant links, then the parties.
func DeletionSteps(ctx context.Context, st store.Store, partyIDs []string) ([]store.Step, error) {
	var gifts []Gift
	if err := st.Select(ctx, store.TableGifts, store.Where{"party_id": partyIDs}, &gifts); err != nil {
		return nil, err
	}
	giftIDs := make([]string, 0, len(gifts))
	for _, gift := range gifts {
		giftIDs = append(giftIDs, gift.ID)
	}

	var proposals []voting.Proposal
	if err := st.Select(ctx, store.TableProposals, store.Where{"party_id": partyIDs}, &proposals); err != nil {
		return nil, err
	}
	proposalIDs := make([]string, 0, len(proposals))
	for _, proposal := range proposals {
		proposalIDs = append(proposalIDs, proposal.ID)
	}

	steps := []store.Step{
		{Table: store.TableParticipants, Where: store.Where{"gift_id": giftIDs}},
		{Table: store.TableGifts, Where: store.Where{"party_id": partyIDs}},
	}
	steps = append(steps, voting.DeletionSteps(proposalIDs)...)
	steps = append(steps,
		store.Step{Table: store.TablePartyBirthdays, Where: store.Where{"party_id": partyIDs}},
		store.Step{Table: store.TableParties, Where: store.Where{"id": partyIDs}},
	)
	return steps, nil
}

// DeletionWarnings reports what deleting the given parties would discard.
// Warnings never block the delete.
func DeletionWarnings(ctx context.Context, st store.Store, partyIDs []string) ([]string, error) {
	warnings := []string{}

	var gifts []Gift
	if err := st.Select(ctx, store.TableGifts, store.Where{"party_id": partyIDs}, &gifts); err != nil {
		return nil, err
	}
	for _, gift := range gifts {
		if gift.PurchasedAt != nil {
			warnings = append(warnings, "gift already purchased")
			continue
		}
		participants, err := st.Count(ctx, store.TableParticipants, store.Where{"gift_id": gift.ID})
		if err != nil {
			return nil, err
		}
		if participants > 0 {
			warnings = append(warnings, fmt.Sprintf("active gift with %d participants", participants))
		}
	}

	var proposals []voting.Proposal
	if err := st.Select(ctx, store.TableProposals, store.Where{"party_id": partyIDs}, &proposals); err != nil {
		return nil, err
	}
	if len(proposals) > 0 {
		ids := make([]string, 0, len(proposals))
		for _, proposal := range proposals {
			ids = append(ids, proposal.ID)
		}
		var votes []voting.Vote
		if err := st.Select(ctx, store.TableVotes, store.Where{"proposal_id": ids}, &votes); err != nil {
			return nil, err
		}
		voted := make(map[string]bool)
		for _, vote := range votes {
			voted[vote.ProposalID] = true
		}
		if len(voted) > 0 {
			warnings = append(warnings, fmt.Sprintf("%d proposals with votes", len(voted)))
		}
	}
	return warnings, nil
}

func (s *Service) checkBirthdays(ctx context.Context, groupID string, birthdayIDs []string) error {
	var birthdays []memberRef
	if err := s.store.Select(ctx, store.TableBirthdays, store.Where{"id": birthdayIDs}, &birthdays); err != nil {
		return err
	}
	if len(birthdays) != len(birthdayIDs) {
		return ErrBirthdayNotFound
	}
	for _, birthday := range birthdays {
		if birthday.GroupID != groupID {
			return ErrCelebrantOutsideGroup
		}
	}
	return nil
}

func (s *Service) checkCoordinator(ctx context.Context, groupID, familyID string) error {
	var family memberRef
	if err := s.store.SelectOne(ctx, store.TableFamilies, store.Where{"id": familyID}, &family); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFamilyNotFound
		}
		return err
	}
	if family.GroupID != groupID {
		return ErrCoordinatorOutsideGroup
	}
	return nil
}

func (s *Service) loadParty(ctx context.Context, partyID string) (*Party, error) {
	var party Party
	if err := s.store.SelectOne(ctx, store.TableParties, store.Where{"id": partyID}, &party); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPartyNotFound
		}
		return nil, err
	}
	return &party, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
