package parties

import (
	"context"
	"errors"
	"strings"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/domain/voting"
	"giftcircle/internal/store"
	"github.com/google/uuid"
)

func (s *Service) CreateGift(ctx context.Context, input CreateGiftInput) (*Gift, error) {
	if _, err := s.loadParty(ctx, input.PartyID); err != nil {
		return nil, err
	}
	if input.ProposalID != nil {
		var proposal voting.Proposal
		if err := s.store.SelectOne(ctx, store.TableProposals, store.Where{"id": *input.ProposalID}, &proposal); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrProposalNotFound
			}
			return nil, err
		}
		if proposal.PartyID != input.PartyID {
			return nil, ErrProposalOutsideParty
		}
	}

	code, err := s.shareCode()
	if err != nil {
		return nil, err
	}
	gift := Gift{
		ID:                uuid.NewString(),
		PartyID:           input.PartyID,
		ProposalID:        input.ProposalID,
		ShareCode:         code,
		ParticipationOpen: true,
	}
	if err := s.store.Insert(ctx, store.TableGifts, &gift); err != nil {
		switch {
		case store.IsConstraint(err, store.ConstraintGiftParty):
			return nil, domainerr.Wrap(ErrGiftExists, err)
		case store.IsConstraint(err, store.ConstraintGiftShareCode):
			return nil, domainerr.Wrap(ErrShareCodeTaken, err)
		}
		return nil, err
	}
	return &gift, nil
}

func (s *Service) GetGift(ctx context.Context, giftID string) (*Gift, error) {
	return s.findGift(ctx, store.Where{"id": giftID})
}

func (s *Service) GetGiftByShareCode(ctx context.Context, shareCode string) (*Gift, error) {
	shareCode = strings.TrimSpace(shareCode)
	if shareCode == "" {
		return nil, ErrGiftNotFound
	}
	return s.findGift(ctx, store.Where{"share_code": shareCode})
}

func (s *Service) CloseParticipation(ctx context.Context, giftID string) (*Gift, error) {
	return s.setParticipation(ctx, giftID, false)
}

func (s *Service) ReopenParticipation(ctx context.Context, giftID string) (*Gift, error) {
	return s.setParticipation(ctx, giftID, true)
}

func (s *Service) setParticipation(ctx context.Context, giftID string, open bool) (*Gift, error) {
	updated, err := s.store.Update(ctx, store.TableGifts,
		store.Where{"id": giftID, "purchased_at": nil},
		map[string]any{"participation_open": open},
	)
	if err != nil {
		return nil, err
	}
	gift, err := s.GetGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, ErrGiftPurchased
	}
	return gift, nil
}

// FinalizeGift records the purchase. The update only matches a gift that is
// not yet purchased, so of two concurrent finalizations exactly one wins.
func (s *Service) FinalizeGift(ctx context.Context, giftID string, input FinalizeInput) (*Gift, error) {
	if input.FinalPrice == nil {
		return nil, ErrFinalPriceRequired
	}
	if *input.FinalPrice < 0 {
		return nil, domainerr.Validation("final price must be non-negative")
	}

	now := s.now()
	updated, err := s.store.Update(ctx, store.TableGifts,
		store.Where{"id": giftID, "purchased_at": nil},
		map[string]any{
			"final_price":         *input.FinalPrice,
			"receipt_image_url":   trimmedOrNil(input.ReceiptImageURL),
			"coordinator_comment": trimmedOrNil(input.Comment),
			"purchased_at":        now,
			"closed_at":           now,
			"participation_open":  false,
		},
	)
	if err != nil {
		return nil, err
	}
	gift, err := s.GetGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, ErrGiftPurchased
	}
	return gift, nil
}

func (s *Service) DeleteGift(ctx context.Context, giftID string) (*store.DeleteReport, error) {
	gift, err := s.GetGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.PurchasedAt != nil {
		return nil, ErrGiftPurchased
	}

	warnings := []string{}
	participants, err := s.store.Count(ctx, store.TableParticipants, store.Where{"gift_id": giftID})
	if err != nil {
		return nil, err
	}
	if participants > 0 {
		warnings = append(warnings, "active gift with participants")
	}

	plan := store.Plan{
		Steps: []store.Step{
			{Table: store.TableParticipants, Where: store.Where{"gift_id": giftID}},
			{Table: store.TableGifts, Where: store.Where{"id": giftID, "purchased_at": nil}},
		},
		Verify: store.Step{Table: store.TableGifts, Where: store.Where{"id": giftID}},
	}
	steps, err := plan.Execute(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return &store.DeleteReport{Warnings: warnings, Steps: steps}, nil
}

func (s *Service) JoinGift(ctx context.Context, giftID, familyName string) (*Participant, error) {
	familyName = strings.TrimSpace(familyName)
	if familyName == "" {
		return nil, domainerr.Validation("family name is required")
	}

	gift, err := s.GetGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	switch gift.State() {
	case GiftPurchased:
		return nil, ErrGiftPurchased
	case GiftClosed:
		return nil, ErrParticipationClosed
	}

	participant := Participant{
		ID:         uuid.NewString(),
		GiftID:     gift.ID,
		FamilyName: familyName,
	}
	if err := s.store.Insert(ctx, store.TableParticipants, &participant); err != nil {
		return nil, err
	}

	// A finalize can commit between the state check and the insert.
	current, err := s.GetGift(ctx, gift.ID)
	if err != nil {
		return nil, err
	}
	if current.PurchasedAt != nil {
		if _, err := s.store.Delete(ctx, store.TableParticipants, store.Where{"id": participant.ID}); err != nil {
			return nil, err
		}
		return nil, ErrGiftPurchased
	}
	return &participant, nil
}

func (s *Service) ListParticipants(ctx context.Context, giftID string) ([]Participant, error) {
	if _, err := s.GetGift(ctx, giftID); err != nil {
		return nil, err
	}
	var participants []Participant
	if err := s.store.Select(ctx, store.TableParticipants, store.Where{"gift_id": giftID}, &participants, "joined_at asc"); err != nil {
		return nil, err
	}
	return participants, nil
}

func (s *Service) LeaveGift(ctx context.Context, participantID string) error {
	var participant Participant
	if err := s.store.SelectOne(ctx, store.TableParticipants, store.Where{"id": participantID}, &participant); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	gift, err := s.GetGift(ctx, participant.GiftID)
	if err != nil {
		return err
	}
	if gift.PurchasedAt != nil {
		return ErrGiftPurchased
	}

	deleted, err := s.store.Delete(ctx, store.TableParticipants, store.Where{"id": participantID})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (s *Service) findGift(ctx context.Context, where store.Where) (*Gift, error) {
	var gift Gift
	if err := s.store.SelectOne(ctx, store.TableGifts, where, &gift); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGiftNotFound
		}
		return nil, err
	}
	return &gift, nil
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
