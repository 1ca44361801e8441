package directgifts

import "time"

type Status string

const (
	StatusOpen      Status = "open"
	StatusPurchased Status = "purchased"
	StatusCancelled Status = "cancelled"
)

// DirectGift is a standalone gift outside any group. OrganizerUserID is nil
// until the organizer claims it; while nil anyone holding the share code may
// act on it.
type DirectGift struct {
	ID              string   `gorm:"type:uuid;primaryKey"`
	Title           string   `gorm:"not null"`
	RecipientName   string   `gorm:"not null"`
	Description     *string  `gorm:"type:text"`
	Price           *float64 `gorm:"type:numeric(12,2)"`
	FinalPrice      *float64 `gorm:"type:numeric(12,2)"`
	ShareCode       string   `gorm:"size:32;not null"`
	Status          Status   `gorm:"type:varchar(16);not null"`
	OrganizerUserID *string  `gorm:"type:text"`
	PurchasedAt     *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

type CreateInput struct {
	Title           string
	RecipientName   string
	Description     *string
	Price           *float64
	OrganizerUserID *string
}
