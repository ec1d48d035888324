package models

import (
	"time"
)

// Broad role names stored in the roles table.
const (
	RoleOfficer   = "officer"
	RoleCommittee = "committee"
)

// Committee position names stored in the positions table. These are the
// exact strings the workflow role resolver matches on.
const (
	PositionSubmissionsCoordinator = "Submissions Coordinator"
	PositionProofreader            = "Proofreader"
	PositionLeadDesign             = "Lead Design"
	PositionEditorInChief          = "Editor-in-Chief"
)

type User struct {
	UserID    int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname string     `gorm:"column:user_lname" json:"user_lname"`
	Email     string     `gorm:"column:email;unique" json:"email"`
	Password  string     `gorm:"column:password" json:"-"`
	IsMember  bool       `gorm:"column:is_member" json:"is_member"`
	CreateAt  *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt  *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Roles     []Role     `gorm:"many2many:user_roles;foreignKey:UserID;joinForeignKey:user_id;References:RoleID;joinReferences:role_id" json:"roles,omitempty"`
	Positions []Position `gorm:"many2many:user_positions;foreignKey:UserID;joinForeignKey:user_id;References:PositionID;joinReferences:position_id" json:"positions,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

type Position struct {
	PositionID   int        `gorm:"primaryKey;column:position_id" json:"position_id"`
	PositionName string     `gorm:"column:position_name" json:"position_name"`
	OfficerOnly  bool       `gorm:"column:officer_only" json:"officer_only"`
	IsActive     string     `gorm:"column:is_active" json:"is_active"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// RoleNames flattens the broad role relation into plain names.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	return names
}

// PositionNames flattens the position relation into plain names.
func (u *User) PositionNames() []string {
	names := make([]string, 0, len(u.Positions))
	for _, p := range u.Positions {
		names = append(names, p.PositionName)
	}
	return names
}

// HasOfficerOnlyPosition reports whether any held position is reserved to
// officers (e.g. Treasurer). Such positions grant the officer override.
func (u *User) HasOfficerOnlyPosition() bool {
	for _, p := range u.Positions {
		if p.OfficerOnly {
			return true
		}
	}
	return false
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

func (Position) TableName() string {
	return "positions"
}
