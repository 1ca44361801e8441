package groups

import "time"

type GroupType string

const (
	TypeClass   GroupType = "class"
	TypeFriends GroupType = "friends"
	TypeFamily  GroupType = "family"
	TypeWork    GroupType = "work"
	TypeOther   GroupType = "other"
)

func (t GroupType) Valid() bool {
	switch t {
	case TypeClass, TypeFriends, TypeFamily, TypeWork, TypeOther:
		return true
	}
	return false
}

type Group struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"not null"`
	Description     *string   `gorm:"type:text"`
	Type            GroupType `gorm:"type:varchar(16);not null"`
	InviteCode      string    `gorm:"size:16;not null"`
	CreatorFamilyID *string   `gorm:"type:uuid"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// Family is a household inside a group. UserID stays empty until the family
// is claimed by an authenticated account.
type Family struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	GroupID   string    `gorm:"type:uuid;index;not null"`
	Name      string    `gorm:"not null"`
	IsCreator bool      `gorm:"not null"`
	UserID    *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Birthday struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	GroupID   string    `gorm:"type:uuid;index;not null"`
	ChildName string    `gorm:"not null"`
	BirthDate time.Time `gorm:"type:date;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Idea struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	BirthdayID string    `gorm:"type:uuid;index;not null"`
	Text       string    `gorm:"type:text;not null"`
	Price      *float64  `gorm:"type:numeric(12,2)"`
	Link       *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

type CreateGroupInput struct {
	Name              string
	Description       *string
	Type              GroupType
	CreatorFamilyName string
	UserID            *string
}

// CreateGroupResult carries the creator family; its ID is the claim token
// the caller keeps until it signs in.
type CreateGroupResult struct {
	Group  Group
	Family Family
}

type UpdateGroupInput struct {
	Name        *string
	Description *string
	Type        *GroupType
}

type CreateIdeaInput struct {
	BirthdayID string
	Text       string
	Price      *float64
	Link       *string
}
