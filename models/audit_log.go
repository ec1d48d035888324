package models

import "time"

// AuditLogEntry is an immutable record of one workflow action. The
// submission id column carries no foreign key on purpose: the trail must
// stay queryable after a submission is deleted by admin tooling.
type AuditLogEntry struct {
	AuditID        int       `gorm:"primaryKey;column:audit_id" json:"audit_id"`
	ActorID        int       `gorm:"column:actor_id" json:"actor_id"`
	SubmissionID   int       `gorm:"column:submission_id" json:"submission_id"`
	Action         string    `gorm:"column:action" json:"action"`
	PreviousStatus *string   `gorm:"column:previous_status" json:"previous_status"`
	NewStatus      *string   `gorm:"column:new_status" json:"new_status"`
	Details        *string   `gorm:"column:details" json:"details,omitempty"`
	IPAddress      string    `gorm:"column:ip_address" json:"ip_address"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}
