package models

import "time"

// Reminder ledger entity types.
const (
	ReminderEntitySubmission = "submission"
	ReminderEntityTask       = "task"
	ReminderEntityMeeting    = "meeting"
)

// ReminderLedgerEntry records one sent reminder. Write-once per send; read
// only for the "sent within cooldown" dedup check.
type ReminderLedgerEntry struct {
	LedgerID   int       `gorm:"primaryKey;column:ledger_id" json:"ledger_id"`
	EntityType string    `gorm:"column:entity_type" json:"entity_type"`
	EntityID   int       `gorm:"column:entity_id" json:"entity_id"`
	Kind       string    `gorm:"column:kind" json:"kind"`
	Recipient  string    `gorm:"column:recipient" json:"recipient"`
	SentAt     time.Time `gorm:"column:sent_at" json:"sent_at"`
}

func (ReminderLedgerEntry) TableName() string {
	return "reminder_ledger"
}
