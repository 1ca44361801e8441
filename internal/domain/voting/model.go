package voting

import "time"

const MaxVoterNameLength = 80

type Proposal struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	PartyID        string    `gorm:"type:uuid;index;not null"`
	Name           string    `gorm:"not null"`
	Description    *string   `gorm:"type:text"`
	TotalPrice     float64   `gorm:"type:numeric(12,2);not null"`
	VotingDeadline *time.Time
	IsSelected     bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

type ProposalItem struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ProposalID string    `gorm:"type:uuid;index;not null"`
	Name       string    `gorm:"not null"`
	Price      *float64  `gorm:"type:numeric(12,2)"`
	Link       *string   `gorm:"type:text"`
	Position   int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

type Vote struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ProposalID string    `gorm:"type:uuid;not null"`
	VoterName  string    `gorm:"size:80;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

type ProposalDetails struct {
	Proposal
	Items     []ProposalItem
	VoteCount int
}

// VotingOpen reports whether votes are still accepted at now.
func (p Proposal) VotingOpen(now time.Time) bool {
	return p.VotingDeadline == nil || now.Before(*p.VotingDeadline)
}

type ItemInput struct {
	Name  string
	Price *float64
	Link  *string
}

type CreateProposalInput struct {
	PartyID        string
	Name           string
	Description    *string
	TotalPrice     float64
	VotingDeadline *time.Time
	Items          []ItemInput
}
