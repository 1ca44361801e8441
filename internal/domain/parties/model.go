package parties

import (
	"time"

	"giftcircle/internal/domain/voting"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusVoting    Status = "voting"
	StatusDecided   Status = "decided"
	StatusPurchased Status = "purchased"
)

type Party struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	GroupID             string    `gorm:"type:uuid;index;not null"`
	EventDate           time.Time `gorm:"type:date;not null"`
	CoordinatorFamilyID *string   `gorm:"type:uuid"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

// PartyBirthday links a party to one of its celebrants.
type PartyBirthday struct {
	PartyID    string `gorm:"type:uuid;primaryKey"`
	BirthdayID string `gorm:"type:uuid;primaryKey"`
}

type GiftState string

const (
	GiftOpen      GiftState = "open"
	GiftClosed    GiftState = "closed"
	GiftPurchased GiftState = "purchased"
)

type Gift struct {
	ID                 string   `gorm:"type:uuid;primaryKey"`
	PartyID            string   `gorm:"type:uuid;not null"`
	ProposalID         *string  `gorm:"type:uuid"`
	ShareCode          string   `gorm:"size:32;not null"`
	ParticipationOpen  bool     `gorm:"not null"`
	FinalPrice         *float64 `gorm:"type:numeric(12,2)"`
	ReceiptImageURL    *string  `gorm:"type:text"`
	CoordinatorComment *string  `gorm:"type:text"`
	PurchasedAt        *time.Time
	ClosedAt           *time.Time
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

func (g Gift) State() GiftState {
	switch {
	case g.PurchasedAt != nil:
		return GiftPurchased
	case !g.ParticipationOpen:
		return GiftClosed
	default:
		return GiftOpen
	}
}

type Participant struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	GiftID     string    `gorm:"type:uuid;index;not null"`
	FamilyName string    `gorm:"not null"`
	JoinedAt   time.Time `gorm:"autoCreateTime"`
}

// Snapshot is the read state a party status is derived from.
type Snapshot struct {
	Proposals []voting.Proposal
	Gift      *Gift
}

type PartyDetails struct {
	Party
	BirthdayIDs []string
	Status      Status
	Gift        *Gift
}

type CreatePartyInput struct {
	GroupID             string
	EventDate           time.Time
	CoordinatorFamilyID *string
	BirthdayIDs         []string
}

type UpdatePartyInput struct {
	EventDate           *time.Time
	CoordinatorFamilyID *string
	ClearCoordinator    bool
}

type CreateGiftInput struct {
	PartyID    string
	ProposalID *string
}

type FinalizeInput struct {
	FinalPrice      *float64
	ReceiptImageURL *string
	Comment         *string
}
