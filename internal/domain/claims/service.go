// Package claims links records created anonymously to the account that
// signs in afterwards.
package claims

import (
	"context"
	"strings"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/store"
	"github.com/google/uuid"
)

const DefaultMaxBatch = 50

var (
	ErrUnauthenticated = domainerr.New(domainerr.KindUnauthorized, "unauthenticated", "sign in to link your data")
	ErrBatchTooLarge   = domainerr.New(domainerr.KindValidation, "claim_batch_too_large", "too many claims in one request")
	ErrInvalidToken    = domainerr.New(domainerr.KindValidation, "invalid_claim_token", "claim token is not a valid id")
)

// Claims are the record ids a device kept while its user was anonymous.
type Claims struct {
	FamilyIDs     []string
	DirectGiftIDs []string
}

// Result counts the rows that were actually linked. Zero means nothing was
// left to link, which includes rows already linked to this identity.
type Result struct {
	Families    int64
	DirectGifts int64
}

func (r Result) Total() int64 {
	return r.Families + r.DirectGifts
}

type Service struct {
	store    store.Store
	maxBatch int
}

func NewService(st store.Store, maxBatch int) *Service {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Service{store: st, maxBatch: maxBatch}
}

// LinkClaims assigns every unowned candidate to identityID. Ownership is
// only ever set where it is NULL, in a single conditional update per table,
// so a row owned by anyone, this identity included, is skipped.
func (s *Service) LinkClaims(ctx context.Context, identityID string, claims Claims) (Result, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return Result{}, ErrUnauthenticated
	}
	if len(claims.FamilyIDs)+len(claims.DirectGiftIDs) > s.maxBatch {
		return Result{}, ErrBatchTooLarge
	}

	familyIDs, err := canonical(claims.FamilyIDs)
	if err != nil {
		return Result{}, err
	}
	directGiftIDs, err := canonical(claims.DirectGiftIDs)
	if err != nil {
		return Result{}, err
	}

	var result Result
	if len(familyIDs) > 0 {
		result.Families, err = s.store.Update(ctx, store.TableFamilies,
			store.Where{"id": familyIDs, "user_id": nil},
			map[string]any{"user_id": identityID},
		)
		if err != nil {
			return Result{}, err
		}
	}
	if len(directGiftIDs) > 0 {
		result.DirectGifts, err = s.store.Update(ctx, store.TableDirectGifts,
			store.Where{"id": directGiftIDs, "organizer_user_id": nil},
			map[string]any{"organizer_user_id": identityID},
		)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func canonical(tokens []string) ([]string, error) {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		id, err := uuid.Parse(strings.TrimSpace(token))
		if err != nil {
			return nil, domainerr.Wrap(ErrInvalidToken, err)
		}
		value := id.String()
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out, nil
}
