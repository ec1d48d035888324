package models

import "time"

// SubmissionType distinguishes written pieces from visual work. The
// committee pipeline routes committed pieces by this type.
type SubmissionType string

const (
	SubmissionTypeWriting SubmissionType = "writing"
	SubmissionTypeVisual  SubmissionType = "visual"
)

// Status is the coarse author-facing state of a submission.
const (
	StatusSubmitted     = "submitted"
	StatusNeedsRevision = "needs_revision"
	StatusPublished     = "published"
	StatusDeclined      = "declined"
	StatusWithdrawn     = "withdrawn"
)

// CommitteeStatus is the fine-grained workflow state. A nil column means
// the submission has not been picked up by the coordinator yet.
type CommitteeStatus string

const (
	CommitteePendingCoordinator  CommitteeStatus = "pending_coordinator"
	CommitteeWithCoordinator     CommitteeStatus = "with_coordinator"
	CommitteeCoordinatorApproved CommitteeStatus = "coordinator_approved"
	CommitteeCoordinatorDeclined CommitteeStatus = "coordinator_declined"
	CommitteeChangesRequested    CommitteeStatus = "changes_requested"
	CommitteeProofreaderCommit   CommitteeStatus = "proofreader_committed"
	CommitteeLeadDesignCommit    CommitteeStatus = "lead_design_committed"
	CommitteeWithEditorInChief   CommitteeStatus = "with_editor_in_chief"
	CommitteeEditorApproved      CommitteeStatus = "editor_approved"
	CommitteeEditorDeclined      CommitteeStatus = "editor_declined"
)

// ActiveCommitteeStatuses are the non-terminal states the reminder scanner
// sweeps over.
var ActiveCommitteeStatuses = []CommitteeStatus{
	CommitteePendingCoordinator,
	CommitteeWithCoordinator,
	CommitteeCoordinatorApproved,
	CommitteeChangesRequested,
	CommitteeProofreaderCommit,
	CommitteeLeadDesignCommit,
	CommitteeWithEditorInChief,
}

// IsTerminal reports whether the workflow is finished for this state.
func (s CommitteeStatus) IsTerminal() bool {
	switch s {
	case CommitteeCoordinatorDeclined, CommitteeEditorApproved, CommitteeEditorDeclined:
		return true
	}
	return false
}

type Submission struct {
	SubmissionID     int            `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	SubmissionNumber string         `gorm:"column:submission_number;unique" json:"submission_number"`
	UserID           int            `gorm:"column:user_id" json:"user_id"`
	Title            string         `gorm:"column:title" json:"title"`
	SubmissionType   SubmissionType `gorm:"column:submission_type" json:"submission_type"`
	Genre            string         `gorm:"column:genre" json:"genre"`
	Summary          *string        `gorm:"column:summary" json:"summary,omitempty"`
	ContentWarning   *string        `gorm:"column:content_warning" json:"content_warning,omitempty"`
	FileReference    string         `gorm:"column:file_reference" json:"file_reference"`

	Status          string           `gorm:"column:status" json:"status"`
	CommitteeStatus *CommitteeStatus `gorm:"column:committee_status" json:"committee_status"`

	GoogleDocLink  *string `gorm:"column:google_doc_link" json:"google_doc_link,omitempty"`
	DesignToolLink *string `gorm:"column:design_tool_link" json:"design_tool_link,omitempty"`

	// Stage timestamps stay set once the submission has passed through a
	// stage; a revision loop never clears them.
	CoordinatorReviewedAt  *time.Time `gorm:"column:coordinator_reviewed_at" json:"coordinator_reviewed_at,omitempty"`
	ProofreaderCommittedAt *time.Time `gorm:"column:proofreader_committed_at" json:"proofreader_committed_at,omitempty"`
	LeadDesignCommittedAt  *time.Time `gorm:"column:lead_design_committed_at" json:"lead_design_committed_at,omitempty"`
	EditorReviewedAt       *time.Time `gorm:"column:editor_reviewed_at" json:"editor_reviewed_at,omitempty"`

	DeclineReason *string `gorm:"column:decline_reason" json:"decline_reason,omitempty"`
	EditorNotes   *string `gorm:"column:editor_notes" json:"editor_notes,omitempty"`

	SubmittedAt time.Time  `gorm:"column:submitted_at" json:"submitted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt   *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	User     *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Comments []CommitteeComment `gorm:"foreignKey:SubmissionID" json:"committee_comments,omitempty"`
}

// CurrentCommitteeStatus normalizes the nullable column: a submission the
// coordinator has not touched yet behaves as pending_coordinator.
func (s *Submission) CurrentCommitteeStatus() CommitteeStatus {
	if s.CommitteeStatus == nil {
		return CommitteePendingCoordinator
	}
	return *s.CommitteeStatus
}

// CommitteeComment is one append-only entry in a submission's review
// discussion. Rows are never updated or removed.
type CommitteeComment struct {
	CommentID    int       `gorm:"primaryKey;column:comment_id" json:"comment_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	ActorID      int       `gorm:"column:actor_id" json:"actor_id"`
	Role         string    `gorm:"column:role" json:"role"`
	Action       string    `gorm:"column:action" json:"action"`
	Text         string    `gorm:"column:text" json:"text"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (CommitteeComment) TableName() string {
	return "committee_comments"
}
