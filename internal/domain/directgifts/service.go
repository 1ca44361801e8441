package directgifts

import (
	"context"
	"errors"
	"strings"
	"time"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/domain/tokens"
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

func (s *Service) Create(ctx context.Context, input CreateInput) (*DirectGift, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainerr.Validation("title is required")
	}
	recipient := strings.TrimSpace(input.RecipientName)
	if recipient == "" {
		return nil, domainerr.Validation("recipient name is required")
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, domainerr.Validation("price must be non-negative")
	}

	code, err := s.shareCode()
	if err != nil {
		return nil, err
	}
	gift := DirectGift{
		ID:              uuid.NewString(),
		Title:           title,
		RecipientName:   recipient,
		Description:     trimmedOrNil(input.Description),
		Price:           input.Price,
		ShareCode:       code,
		Status:          StatusOpen,
		OrganizerUserID: trimmedOrNil(input.OrganizerUserID),
	}
	if err := s.store.Insert(ctx, store.TableDirectGifts, &gift); err != nil {
		if store.IsConstraint(err, store.ConstraintDirectGiftShare) {
			return nil, domainerr.Wrap(ErrShareCodeTaken, err)
		}
		return nil, err
	}
	return &gift, nil
}

func (s *Service) Get(ctx context.Context, id string) (*DirectGift, error) {
	return s.find(ctx, store.Where{"id": id})
}

func (s *Service) GetByShareCode(ctx context.Context, shareCode string) (*DirectGift, error) {
	shareCode = strings.TrimSpace(shareCode)
	if shareCode == "" {
		return nil, ErrNotFound
	}
	return s.find(ctx, store.Where{"share_code": shareCode})
}

func (s *Service) ListForOrganizer(ctx context.Context, userID string) ([]DirectGift, error) {
	var gifts []DirectGift
	if err := s.store.Select(ctx, store.TableDirectGifts, store.Where{"organizer_user_id": userID}, &gifts, "created_at desc"); err != nil {
		return nil, err
	}
	return gifts, nil
}

// Cancel moves an open gift to cancelled. actorUserID is nil for anonymous
// callers.
func (s *Service) Cancel(ctx context.Context, id string, actorUserID *string) (*DirectGift, error) {
	return s.transition(ctx, id, actorUserID, func(gift *DirectGift) (map[string]any, error) {
		switch gift.Status {
		case StatusPurchased:
			return nil, ErrCancelPurchased
		case StatusCancelled:
			return nil, ErrAlreadyCancelled
		}
		return map[string]any{
			"status":       string(StatusCancelled),
			"cancelled_at": s.now(),
		}, nil
	})
}

func (s *Service) MarkPurchased(ctx context.Context, id string, actorUserID *string, finalPrice *float64) (*DirectGift, error) {
	if finalPrice != nil && *finalPrice < 0 {
		return nil, domainerr.Validation("final price must be non-negative")
	}
	return s.transition(ctx, id, actorUserID, func(gift *DirectGift) (map[string]any, error) {
		switch gift.Status {
		case StatusPurchased:
			return nil, ErrAlreadyPurchased
		case StatusCancelled:
			return nil, ErrPurchaseCancelled
		}
		patch := map[string]any{
			"status":       string(StatusPurchased),
			"purchased_at": s.now(),
		}
		if finalPrice != nil {
			patch["final_price"] = *finalPrice
		}
		return patch, nil
	})
}

// transition applies a status change guarded by ownership and current
// status. The update is conditioned on the status and organizer that were
// checked and is issued once. When a concurrent change makes it match
// nothing, the gift is read again only to report why; callers decide
// whether to retry.
func (s *Service) transition(ctx context.Context, id string, actorUserID *string, next func(*DirectGift) (map[string]any, error)) (*DirectGift, error) {
	gift, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAct(gift, actorUserID) {
		return nil, ErrNotOrganizer
	}
	patch, err := next(gift)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, store.TableDirectGifts,
		store.Where{"id": id, "status": string(StatusOpen), "organizer_user_id": organizerFilter(gift.OrganizerUserID)},
		patch,
	)
	if err != nil {
		return nil, err
	}
	if updated > 0 {
		return s.Get(ctx, id)
	}
	return nil, s.lostRace(ctx, id, actorUserID, next)
}

// lostRace explains a guarded update that matched no row.
func (s *Service) lostRace(ctx context.Context, id string, actorUserID *string, next func(*DirectGift) (map[string]any, error)) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canAct(current, actorUserID) {
		return ErrNotOrganizer
	}
	if _, err := next(current); err != nil {
		return err
	}
	return ErrConcurrentEdit
}

// canAct reports whether actor may change gift. Unclaimed gifts are open to
// anyone; claimed gifts only to their organizer.
func canAct(gift *DirectGift, actorUserID *string) bool {
	if gift.OrganizerUserID == nil {
		return true
	}
	return actorUserID != nil && *actorUserID == *gift.OrganizerUserID
}

func organizerFilter(organizer *string) any {
	if organizer == nil {
		return nil
	}
	return *organizer
}

func (s *Service) find(ctx context.Context, where store.Where) (*DirectGift, error) {
	var gift DirectGift
	if err := s.store.SelectOne(ctx, store.TableDirectGifts, where, &gift); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
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
