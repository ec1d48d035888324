package models

import "time"

// Officer task statuses.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// OfficerTask is a plain officer work item. No committee gate: any officer
// may create or update, and the reminder scanner sweeps the table for
// overdue and stale entries.
type OfficerTask struct {
	TaskID      int        `gorm:"primaryKey;column:task_id" json:"task_id"`
	Title       string     `gorm:"column:title" json:"title"`
	Description *string    `gorm:"column:description" json:"description,omitempty"`
	AssigneeID  *int       `gorm:"column:assignee_id" json:"assignee_id,omitempty"`
	DueDate     *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	Status      string     `gorm:"column:status" json:"status"`
	CreatedBy   int        `gorm:"column:created_by" json:"created_by"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`

	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Creator  *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (OfficerTask) TableName() string {
	return "officer_tasks"
}
