package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"publication-portal-api/models"
	"publication-portal-api/utils"

	"gorm.io/gorm"
)

// Workflow actions accepted by Apply.
const (
	ActionReview         = "review"
	ActionApprove        = "approve"
	ActionDecline        = "decline"
	ActionRequestChanges = "request_changes"
	ActionCommit         = "commit"
	ActionFinalApprove   = "final_approve"
	ActionFinalDecline   = "final_decline"
)

var (
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrSubmissionWithdrawn = errors.New("submission has been withdrawn by the author")
	ErrUnknownAction       = errors.New("unknown workflow action")
	ErrActionNotAllowed    = errors.New("action not permitted for this role and state")
	ErrLinkRequired        = errors.New("a valid link URL is required for this action")
	ErrWorkflowBusy        = errors.New("submission is locked by another workflow request")
)

// ConversionError carries the document-conversion collaborator's failure
// through to the HTTP layer with its reported status.
type ConversionError struct {
	Message string
	Status  int
}

func (e *ConversionError) Error() string { return e.Message }

type stampField int

const (
	stampNone stampField = iota
	stampCoordinator
	stampProofreader
	stampLeadDesign
	stampEditor
)

// transitionRule is one row of the committee workflow table. Illegal
// transitions are simply absent from the map.
type transitionRule struct {
	role          WorkflowRole
	next          models.CommitteeStatus
	convert       bool // second coordinator review: call doc conversion, leave state alone
	requireLink   bool
	linkColumn    string
	onlyType      models.SubmissionType // zero value = any type
	stamp         stampField
	declineReason bool
	editorNotes   bool
	authorStatus  string
	auditAction   string
}

var editorDecisionStates = []models.CommitteeStatus{
	models.CommitteeLeadDesignCommit,
	models.CommitteeProofreaderCommit,
	models.CommitteeWithEditorInChief,
}

// workflowTransitions maps (current state, action) to candidate rules.
// Candidates are tried in order; the first whose role and type guard match
// the request wins.
var workflowTransitions = buildTransitionTable()

func buildTransitionTable() map[models.CommitteeStatus]map[string][]transitionRule {
	t := map[models.CommitteeStatus]map[string][]transitionRule{}
	add := func(state models.CommitteeStatus, action string, rule transitionRule) {
		if t[state] == nil {
			t[state] = map[string][]transitionRule{}
		}
		t[state][action] = append(t[state][action], rule)
	}

	add(models.CommitteePendingCoordinator, ActionReview, transitionRule{
		role:        RoleSubmissionsCoordinator,
		next:        models.CommitteeWithCoordinator,
		auditAction: "committee_review",
	})
	add(models.CommitteeWithCoordinator, ActionReview, transitionRule{
		role:        RoleSubmissionsCoordinator,
		next:        models.CommitteeWithCoordinator,
		convert:     true,
		auditAction: "committee_review",
	})
	add(models.CommitteeWithCoordinator, ActionApprove, transitionRule{
		role:        RoleSubmissionsCoordinator,
		next:        models.CommitteeCoordinatorApproved,
		stamp:       stampCoordinator,
		auditAction: "committee_approve",
	})
	add(models.CommitteeWithCoordinator, ActionDecline, transitionRule{
		role:          RoleSubmissionsCoordinator,
		next:          models.CommitteeCoordinatorDeclined,
		stamp:         stampCoordinator,
		declineReason: true,
		authorStatus:  models.StatusDeclined,
		auditAction:   "committee_decline",
	})
	add(models.CommitteeWithCoordinator, ActionRequestChanges, transitionRule{
		role:         RoleSubmissionsCoordinator,
		next:         models.CommitteeChangesRequested,
		editorNotes:  true,
		authorStatus: models.StatusNeedsRevision,
		auditAction:  "committee_request_changes",
	})

	add(models.CommitteeCoordinatorApproved, ActionCommit, transitionRule{
		role:        RoleProofreader,
		next:        models.CommitteeProofreaderCommit,
		requireLink: true,
		linkColumn:  "google_doc_link",
		onlyType:    models.SubmissionTypeWriting,
		stamp:       stampProofreader,
		auditAction: "committee_commit",
	})
	add(models.CommitteeCoordinatorApproved, ActionCommit, transitionRule{
		role:        RoleLeadDesign,
		next:        models.CommitteeLeadDesignCommit,
		requireLink: true,
		linkColumn:  "design_tool_link",
		onlyType:    models.SubmissionTypeVisual,
		stamp:       stampLeadDesign,
		auditAction: "committee_commit",
	})
	add(models.CommitteeProofreaderCommit, ActionCommit, transitionRule{
		role:        RoleLeadDesign,
		next:        models.CommitteeLeadDesignCommit,
		requireLink: true,
		linkColumn:  "design_tool_link",
		stamp:       stampLeadDesign,
		auditAction: "committee_commit",
	})

	for _, state := range editorDecisionStates {
		approve := transitionRule{
			role:        RoleEditorInChief,
			next:        models.CommitteeEditorApproved,
			stamp:       stampEditor,
			auditAction: "committee_final_approve",
		}
		decline := transitionRule{
			role:          RoleEditorInChief,
			next:          models.CommitteeEditorDeclined,
			stamp:         stampEditor,
			declineReason: true,
			authorStatus:  models.StatusDeclined,
			auditAction:   "committee_final_decline",
		}
		add(state, ActionApprove, approve)
		add(state, ActionFinalApprove, approve)
		add(state, ActionDecline, decline)
		add(state, ActionFinalDecline, decline)
		add(state, ActionRequestChanges, transitionRule{
			role:         RoleEditorInChief,
			next:         models.CommitteeChangesRequested,
			stamp:        stampEditor,
			editorNotes:  true,
			authorStatus: models.StatusNeedsRevision,
			auditAction:  "committee_request_changes",
		})
	}

	return t
}

var knownActions = map[string]bool{
	ActionReview:         true,
	ActionApprove:        true,
	ActionDecline:        true,
	ActionRequestChanges: true,
	ActionCommit:         true,
	ActionFinalApprove:   true,
	ActionFinalDecline:   true,
}

// lookupTransition resolves the rule for one request, or reports why none
// applies. Officer-derived editors may take any row regardless of its role
// gate; the type guard still applies.
func lookupTransition(state models.CommitteeStatus, action string, actor Actor, subType models.SubmissionType) (*transitionRule, error) {
	if !knownActions[action] {
		return nil, ErrUnknownAction
	}
	candidates := workflowTransitions[state][action]
	for i := range candidates {
		rule := &candidates[i]
		if rule.onlyType != "" && rule.onlyType != subType {
			continue
		}
		if rule.role == actor.Role || actor.OfficerOverride {
			return rule, nil
		}
	}
	return nil, ErrActionNotAllowed
}

// WorkflowInput is the caller-supplied payload for one transition.
type WorkflowInput struct {
	Action     string
	Comment    string
	LinkURL    string
	AssigneeID *int
	ClientIP   string
}

// WorkflowResult reports the applied transition. GoogleDocURL is set only
// on the conversion path, where the state is left untouched.
type WorkflowResult struct {
	NewStatus    models.CommitteeStatus
	AuthorStatus string
	GoogleDocURL string
}

// TransitionNotifier receives committed transitions for advisory
// notification. Implementations must swallow their own failures.
type TransitionNotifier interface {
	NotifyTransition(sub *models.Submission, previous, next models.CommitteeStatus)
}

// DocumentConverter is the external collaborator that converts a
// submission's file into an editable document.
type DocumentConverter interface {
	Convert(ctx context.Context, submissionID, actorID int) (string, error)
}

type WorkflowService struct {
	db        *gorm.DB
	notifier  TransitionNotifier
	converter DocumentConverter
}

func NewWorkflowService(db *gorm.DB, notifier TransitionNotifier, converter DocumentConverter) *WorkflowService {
	return &WorkflowService{db: db, notifier: notifier, converter: converter}
}

// Apply validates and performs one workflow transition. State update,
// comment append and audit append commit in a single transaction; the
// notification dispatch afterwards is best-effort and never affects the
// result.
func (s *WorkflowService) Apply(ctx context.Context, submissionID int, actor Actor, input WorkflowInput) (*WorkflowResult, error) {
	if !knownActions[input.Action] {
		return nil, ErrUnknownAction
	}

	release, err := s.acquireLock(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	defer release()

	var sub models.Submission
	if err := s.db.WithContext(ctx).
		Where("submission_id = ? AND deleted_at IS NULL", submissionID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	// Withdrawal is terminal for the committee too: no transition may
	// advance a piece the author pulled.
	if sub.Status == models.StatusWithdrawn {
		return nil, ErrSubmissionWithdrawn
	}

	state := sub.CurrentCommitteeStatus()
	rule, err := lookupTransition(state, input.Action, actor, sub.SubmissionType)
	if err != nil {
		return nil, err
	}

	link := strings.TrimSpace(input.LinkURL)
	if rule.requireLink && !utils.ValidateLinkURL(link) {
		return nil, ErrLinkRequired
	}

	if rule.convert {
		return s.applyConversion(ctx, &sub, actor, rule, input)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"committee_status": string(rule.next),
		"updated_at":       now,
	}
	switch rule.stamp {
	case stampCoordinator:
		updates["coordinator_reviewed_at"] = now
	case stampProofreader:
		updates["proofreader_committed_at"] = now
	case stampLeadDesign:
		updates["lead_design_committed_at"] = now
	case stampEditor:
		updates["editor_reviewed_at"] = now
	}
	comment := strings.TrimSpace(input.Comment)
	if rule.requireLink {
		updates[rule.linkColumn] = link
	}
	if rule.declineReason {
		updates["decline_reason"] = comment
	}
	if rule.editorNotes {
		updates["editor_notes"] = comment
	}
	if rule.authorStatus != "" {
		updates["status"] = rule.authorStatus
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Submission{}).
			Where("submission_id = ?", sub.SubmissionID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update submission status: %w", err)
		}
		if comment != "" {
			if err := tx.Create(&models.CommitteeComment{
				SubmissionID: sub.SubmissionID,
				ActorID:      actor.UserID,
				Role:         string(actor.Role),
				Action:       input.Action,
				Text:         comment,
				CreatedAt:    now,
			}).Error; err != nil {
				return fmt.Errorf("failed to append committee comment: %w", err)
			}
		}
		if err := tx.Create(s.auditEntry(&sub, actor, rule.auditAction, state, rule.next, input, link, now)).Error; err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Mirror every persisted column onto the in-memory struct; the
	// notifier reads it after dispatch and must see what was written.
	next := rule.next
	sub.CommitteeStatus = &next
	sub.UpdatedAt = now
	switch rule.stamp {
	case stampCoordinator:
		sub.CoordinatorReviewedAt = &now
	case stampProofreader:
		sub.ProofreaderCommittedAt = &now
	case stampLeadDesign:
		sub.LeadDesignCommittedAt = &now
	case stampEditor:
		sub.EditorReviewedAt = &now
	}
	if rule.requireLink {
		switch rule.linkColumn {
		case "google_doc_link":
			sub.GoogleDocLink = &link
		case "design_tool_link":
			sub.DesignToolLink = &link
		}
	}
	if rule.declineReason {
		sub.DeclineReason = &comment
	}
	if rule.editorNotes {
		sub.EditorNotes = &comment
	}
	if rule.authorStatus != "" {
		sub.Status = rule.authorStatus
	}
	if s.notifier != nil {
		subCopy := sub
		go s.notifier.NotifyTransition(&subCopy, state, next)
	}

	return &WorkflowResult{NewStatus: next, AuthorStatus: sub.Status}, nil
}

// applyConversion handles the coordinator's repeated review press: the
// external conversion collaborator runs, state and stage timestamps stay
// untouched, and the action is still audited.
func (s *WorkflowService) applyConversion(ctx context.Context, sub *models.Submission, actor Actor, rule *transitionRule, input WorkflowInput) (*WorkflowResult, error) {
	if s.converter == nil {
		return nil, &ConversionError{Message: "document conversion is not configured", Status: 503}
	}
	docURL, err := s.converter.Convert(ctx, sub.SubmissionID, actor.UserID)
	if err != nil {
		var convErr *ConversionError
		if errors.As(err, &convErr) {
			return nil, convErr
		}
		return nil, &ConversionError{Message: err.Error(), Status: 502}
	}

	now := time.Now()
	state := sub.CurrentCommitteeStatus()
	entry := s.auditEntry(sub, actor, rule.auditAction, state, state, input, docURL, now)
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		// The conversion already happened; a lost audit row is logged, not
		// surfaced.
		log.Printf("audit append failed for conversion on submission %d: %v", sub.SubmissionID, err)
	}

	return &WorkflowResult{NewStatus: state, AuthorStatus: sub.Status, GoogleDocURL: docURL}, nil
}

func (s *WorkflowService) auditEntry(sub *models.Submission, actor Actor, action string, prev, next models.CommitteeStatus, input WorkflowInput, link string, now time.Time) *models.AuditLogEntry {
	details := map[string]interface{}{
		"role": string(actor.Role),
	}
	if c := strings.TrimSpace(input.Comment); c != "" {
		details["comment"] = c
	}
	if link != "" {
		details["link"] = link
	}
	if input.AssigneeID != nil {
		details["assignee_id"] = *input.AssigneeID
	}
	serialized, _ := json.Marshal(details)
	blob := string(serialized)
	prevStr := string(prev)
	nextStr := string(next)
	return &models.AuditLogEntry{
		ActorID:        actor.UserID,
		SubmissionID:   sub.SubmissionID,
		Action:         action,
		PreviousStatus: &prevStr,
		NewStatus:      &nextStr,
		Details:        &blob,
		IPAddress:      input.ClientIP,
		CreatedAt:      now,
	}
}

// acquireLock serializes transitions per submission id with a named MySQL
// lock. Cross-submission requests run in parallel.
func (s *WorkflowService) acquireLock(ctx context.Context, submissionID int) (func(), error) {
	lockName := fmt.Sprintf("submission_workflow_%d", submissionID)
	var ok int
	if err := s.db.WithContext(ctx).Raw("SELECT GET_LOCK(?, 10)", lockName).Scan(&ok).Error; err != nil {
		return nil, fmt.Errorf("failed to acquire workflow lock: %w", err)
	}
	if ok != 1 {
		return nil, ErrWorkflowBusy
	}
	return func() {
		var released int
		if err := s.db.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error; err != nil {
			log.Printf("failed to release workflow lock %s: %v", lockName, err)
		}
	}, nil
}
