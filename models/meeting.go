package models

import "time"

// MeetingProposal is an officer meeting poll. It stays open until an
// officer finalizes it; the reminder scanner nudges officers who have not
// recorded availability on low-response proposals.
type MeetingProposal struct {
	ProposalID  int        `gorm:"primaryKey;column:proposal_id" json:"proposal_id"`
	Title       string     `gorm:"column:title" json:"title"`
	Description *string    `gorm:"column:description" json:"description,omitempty"`
	ProposedFor *time.Time `gorm:"column:proposed_for" json:"proposed_for,omitempty"`
	Finalized   bool       `gorm:"column:finalized" json:"finalized"`
	FinalizedAt *time.Time `gorm:"column:finalized_at" json:"finalized_at,omitempty"`
	CreatedBy   int        `gorm:"column:created_by" json:"created_by"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`

	Creator   *User                 `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Responses []MeetingAvailability `gorm:"foreignKey:ProposalID" json:"responses,omitempty"`
}

// MeetingAvailability is one officer's recorded availability for a
// proposal. One row per (proposal, user).
type MeetingAvailability struct {
	AvailabilityID int       `gorm:"primaryKey;column:availability_id" json:"availability_id"`
	ProposalID     int       `gorm:"column:proposal_id" json:"proposal_id"`
	UserID         int       `gorm:"column:user_id" json:"user_id"`
	Response       string    `gorm:"column:response" json:"response"` // available|unavailable|maybe
	Note           *string   `gorm:"column:note" json:"note,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (MeetingProposal) TableName() string {
	return "meeting_proposals"
}

func (MeetingAvailability) TableName() string {
	return "meeting_availability"
}
