package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"publication-portal-api/models"
)

func coordinator() Actor {
	return Actor{UserID: 1, Role: RoleSubmissionsCoordinator}
}

func TestLookupTransitionTable(t *testing.T) {
	proofreader := Actor{UserID: 2, Role: RoleProofreader}
	leadDesign := Actor{UserID: 3, Role: RoleLeadDesign}
	editor := Actor{UserID: 4, Role: RoleEditorInChief}
	officer := Actor{UserID: 5, Role: RoleEditorInChief, OfficerOverride: true}

	tests := []struct {
		name     string
		state    models.CommitteeStatus
		action   string
		actor    Actor
		subType  models.SubmissionType
		wantNext models.CommitteeStatus
		wantErr  error
	}{
		{
			name:     "coordinator picks up pending submission",
			state:    models.CommitteePendingCoordinator,
			action:   ActionReview,
			actor:    coordinator(),
			subType:  models.SubmissionTypeWriting,
			wantNext: models.CommitteeWithCoordinator,
		},
		{
			name:    "proofreader cannot pick up pending submission",
			state:   models.CommitteePendingCoordinator,
			action:  ActionReview,
			actor:   Actor{UserID: 2, Role: RoleProofreader},
			subType: models.SubmissionTypeWriting,
			wantErr: ErrActionNotAllowed,
		},
		{
			name:     "coordinator approve hands off",
			state:    models.CommitteeWithCoordinator,
			action:   ActionApprove,
			actor:    coordinator(),
			subType:  models.SubmissionTypeWriting,
			wantNext: models.CommitteeCoordinatorApproved,
		},
		{
			name:     "proofreader commits writing piece",
			state:    models.CommitteeCoordinatorApproved,
			action:   ActionCommit,
			actor:    proofreader,
			subType:  models.SubmissionTypeWriting,
			wantNext: models.CommitteeProofreaderCommit,
		},
		{
			name:    "proofreader cannot commit visual piece",
			state:   models.CommitteeCoordinatorApproved,
			action:  ActionCommit,
			actor:   proofreader,
			subType: models.SubmissionTypeVisual,
			wantErr: ErrActionNotAllowed,
		},
		{
			name:     "lead design commits visual piece directly",
			state:    models.CommitteeCoordinatorApproved,
			action:   ActionCommit,
			actor:    leadDesign,
			subType:  models.SubmissionTypeVisual,
			wantNext: models.CommitteeLeadDesignCommit,
		},
		{
			name:     "lead design commits after proofreader",
			state:    models.CommitteeProofreaderCommit,
			action:   ActionCommit,
			actor:    leadDesign,
			subType:  models.SubmissionTypeWriting,
			wantNext: models.CommitteeLeadDesignCommit,
		},
		{
			name:     "editor final approve",
			state:    models.CommitteeLeadDesignCommit,
			action:   ActionFinalApprove,
			actor:    editor,
			subType:  models.SubmissionTypeWriting,
			wantNext: models.CommitteeEditorApproved,
		},
		{
			name:     "editor plain approve works in editor states",
			state:    models.CommitteeWithEditorInChief,
			action:   ActionApprove,
			actor:    editor,
			subType:  models.SubmissionTypeVisual,
			wantNext: models.CommitteeEditorApproved,
		},
		{
			name:     "editor request_changes loops back",
			state:    models.CommitteeProofreaderCommit,
			action:   ActionRequestChanges,
			actor:    editor,
			subType:  models.SubmissionTypeWriting,
			wantNext: models.CommitteeChangesRequested,
		},
		{
			name:     "officer override takes coordinator row",
			state:    models.CommitteeWithCoordinator,
			action:   ActionApprove,
			actor:    officer,
			subType:  models.SubmissionTypeWriting,
			wantNext: models.CommitteeCoordinatorApproved,
		},
		{
			name:    "officer override still respects type guard",
			state:   models.CommitteeCoordinatorApproved,
			action:  ActionCommit,
			actor:   Actor{UserID: 5, Role: RoleEditorInChief, OfficerOverride: true},
			subType: models.SubmissionTypeWriting,
			// first matching candidate is the proofreader row for writing
			wantNext: models.CommitteeProofreaderCommit,
		},
		{
			name:    "no transitions out of terminal decline",
			state:   models.CommitteeEditorDeclined,
			action:  ActionApprove,
			actor:   editor,
			subType: models.SubmissionTypeWriting,
			wantErr: ErrActionNotAllowed,
		},
		{
			name:    "unknown action",
			state:   models.CommitteeWithCoordinator,
			action:  "escalate",
			actor:   coordinator(),
			subType: models.SubmissionTypeWriting,
			wantErr: ErrUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := lookupTransition(tt.state, tt.action, tt.actor, tt.subType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rule.next != tt.wantNext {
				t.Fatalf("got next %s, want %s", rule.next, tt.wantNext)
			}
		})
	}
}

func TestDeclineRulesCarryReasonAndAuthorStatus(t *testing.T) {
	rule, err := lookupTransition(models.CommitteeWithCoordinator, ActionDecline, coordinator(), models.SubmissionTypeWriting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rule.declineReason {
		t.Error("coordinator decline should store decline_reason")
	}
	if rule.authorStatus != models.StatusDeclined {
		t.Errorf("author status = %q, want %q", rule.authorStatus, models.StatusDeclined)
	}

	rule, err = lookupTransition(models.CommitteeWithEditorInChief, ActionFinalDecline, Actor{UserID: 4, Role: RoleEditorInChief}, models.SubmissionTypeVisual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.next != models.CommitteeEditorDeclined || !rule.declineReason {
		t.Errorf("final decline rule = %+v", rule)
	}
}

func TestSecondReviewIsConversionNotRestamp(t *testing.T) {
	rule, err := lookupTransition(models.CommitteeWithCoordinator, ActionReview, coordinator(), models.SubmissionTypeWriting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rule.convert {
		t.Error("second review should take the conversion path")
	}
	if rule.stamp != stampNone {
		t.Error("second review must not re-stamp coordinator_reviewed_at")
	}
	if rule.next != models.CommitteeWithCoordinator {
		t.Errorf("second review must leave state alone, got %s", rule.next)
	}
}

func TestCommitRulesRequireLink(t *testing.T) {
	for _, st := range []models.CommitteeStatus{models.CommitteeCoordinatorApproved, models.CommitteeProofreaderCommit} {
		for _, rules := range workflowTransitions[st] {
			for _, rule := range rules {
				if rule.auditAction == "committee_commit" && !rule.requireLink {
					t.Errorf("commit rule out of %s does not require a link", st)
				}
			}
		}
	}
}

type notifiedTransition struct {
	sub      models.Submission
	previous models.CommitteeStatus
	next     models.CommitteeStatus
}

type captureNotifier struct {
	ch chan notifiedTransition
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan notifiedTransition, 1)}
}

func (c *captureNotifier) NotifyTransition(sub *models.Submission, previous, next models.CommitteeStatus) {
	c.ch <- notifiedTransition{sub: *sub, previous: previous, next: next}
}

func (c *captureNotifier) wait(t *testing.T) notifiedTransition {
	t.Helper()
	select {
	case got := <-c.ch:
		return got
	case <-time.After(time.Second):
		t.Fatal("transition notification never dispatched")
		return notifiedTransition{}
	}
}

func TestApplyCoordinatorApprove(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			args:    []driver.Value{"submission_workflow_7"},
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "submission_type", "status", "committee_status", "updated_at"},
			rows: [][]driver.Value{
				{int64(7), "SUB-AB12CD34", int64(42), "October feature", "writing", "submitted", "with_coordinator", time.Now().Add(-time.Hour)},
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `submissions` SET"),
			result:  scriptedResult{rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `committee_comments`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `audit_log`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			args:    []driver.Value{"submission_workflow_7"},
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	notifier := newCaptureNotifier()
	svc := NewWorkflowService(db, notifier, nil)

	result, err := svc.Apply(context.Background(), 7, coordinator(), WorkflowInput{
		Action:  ActionApprove,
		Comment: "reads clean, sending on",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.NewStatus != models.CommitteeCoordinatorApproved {
		t.Errorf("new status = %s, want %s", result.NewStatus, models.CommitteeCoordinatorApproved)
	}

	got := notifier.wait(t)
	if got.previous != models.CommitteeWithCoordinator || got.next != models.CommitteeCoordinatorApproved {
		t.Errorf("notified with %s -> %s", got.previous, got.next)
	}
	if got.sub.CoordinatorReviewedAt == nil {
		t.Error("notifier saw a submission without the coordinator stamp just written")
	}

	if err := state.verifyComplete(); err != nil {
		t.Error(err)
	}
}

// The notifier must see the columns the transition just wrote; the
// changes-requested email quotes editor_notes from the struct it is
// handed.
func TestApplyRequestChangesHandsNotesToNotifier(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "submission_type", "status", "committee_status"},
			rows: [][]driver.Value{
				{int64(7), "SUB-AB12CD34", int64(42), "October feature", "writing", "submitted", "with_coordinator"},
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `submissions` SET"),
			result:  scriptedResult{rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `committee_comments`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `audit_log`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	notifier := newCaptureNotifier()
	svc := NewWorkflowService(db, notifier, nil)

	const notes = "please tighten the second act"
	result, err := svc.Apply(context.Background(), 7, coordinator(), WorkflowInput{
		Action:  ActionRequestChanges,
		Comment: notes,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.NewStatus != models.CommitteeChangesRequested {
		t.Errorf("new status = %s", result.NewStatus)
	}
	if result.AuthorStatus != models.StatusNeedsRevision {
		t.Errorf("author status = %s", result.AuthorStatus)
	}

	got := notifier.wait(t)
	if got.next != models.CommitteeChangesRequested {
		t.Errorf("notified with next %s", got.next)
	}
	if got.sub.EditorNotes == nil || *got.sub.EditorNotes != notes {
		t.Errorf("notifier saw editor notes %v, want %q", got.sub.EditorNotes, notes)
	}
	if got.sub.Status != models.StatusNeedsRevision {
		t.Errorf("notifier saw author status %s", got.sub.Status)
	}

	if err := state.verifyComplete(); err != nil {
		t.Error(err)
	}
}

func TestApplyRejectsWithdrawnSubmission(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "submission_type", "status", "committee_status"},
			rows: [][]driver.Value{
				{int64(7), "SUB-AB12CD34", int64(42), "October feature", "writing", "withdrawn", "with_coordinator"},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewWorkflowService(db, nil, nil)
	_, err := svc.Apply(context.Background(), 7, coordinator(), WorkflowInput{Action: ActionApprove})
	if !errors.Is(err, ErrSubmissionWithdrawn) {
		t.Fatalf("got err %v, want ErrSubmissionWithdrawn", err)
	}

	if err := state.verifyComplete(); err != nil {
		t.Error(err)
	}
}

type fakeConverter struct {
	url   string
	err   error
	calls int
}

func (f *fakeConverter) Convert(ctx context.Context, submissionID, actorID int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

// A second review on with_coordinator runs the converter and returns its
// URL; state stays put, no stamp is touched, and the action is audited.
// The step script has no UPDATE in it, so any state write would fail the
// test as an unexpected query.
func TestApplySecondReviewRunsConversion(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "submission_type", "status", "committee_status"},
			rows: [][]driver.Value{
				{int64(7), "SUB-AB12CD34", int64(42), "October feature", "writing", "submitted", "with_coordinator"},
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `audit_log`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	converter := &fakeConverter{url: "https://docs.example/converted/7"}
	svc := NewWorkflowService(db, nil, converter)

	result, err := svc.Apply(context.Background(), 7, coordinator(), WorkflowInput{Action: ActionReview})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if converter.calls != 1 {
		t.Errorf("converter called %d times, want 1", converter.calls)
	}
	if result.GoogleDocURL != "https://docs.example/converted/7" {
		t.Errorf("doc url = %q", result.GoogleDocURL)
	}
	if result.NewStatus != models.CommitteeWithCoordinator {
		t.Errorf("conversion changed state to %s", result.NewStatus)
	}

	if err := state.verifyComplete(); err != nil {
		t.Error(err)
	}
}

func TestApplyConversionErrorSurfacesStatus(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "submission_type", "status", "committee_status"},
			rows: [][]driver.Value{
				{int64(7), "SUB-AB12CD34", int64(42), "October feature", "writing", "submitted", "with_coordinator"},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	converter := &fakeConverter{err: &ConversionError{Message: "file is not convertible", Status: 422}}
	svc := NewWorkflowService(db, nil, converter)

	_, err := svc.Apply(context.Background(), 7, coordinator(), WorkflowInput{Action: ActionReview})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("got err %v, want *ConversionError", err)
	}
	if convErr.Status != 422 || convErr.Message != "file is not convertible" {
		t.Errorf("conversion error = %+v", convErr)
	}

	if err := state.verifyComplete(); err != nil {
		t.Error(err)
	}
}

func TestApplyCommitRejectsBadLink(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `submissions`"),
			columns: []string{"submission_id", "submission_number", "user_id", "title", "submission_type", "status", "committee_status"},
			rows: [][]driver.Value{
				{int64(9), "SUB-EF56GH78", int64(42), "Cover art", "visual", "submitted", "coordinator_approved"},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewWorkflowService(db, nil, nil)
	_, err := svc.Apply(context.Background(), 9, Actor{UserID: 3, Role: RoleLeadDesign}, WorkflowInput{
		Action:  ActionCommit,
		LinkURL: "not a url",
	})
	if !errors.Is(err, ErrLinkRequired) {
		t.Fatalf("got err %v, want ErrLinkRequired", err)
	}

	if err := state.verifyComplete(); err != nil {
		t.Error(err)
	}
}

func TestApplyReportsBusyWhenLockHeld(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"ok"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewWorkflowService(db, nil, nil)
	_, err := svc.Apply(context.Background(), 7, coordinator(), WorkflowInput{Action: ActionApprove})
	if !errors.Is(err, ErrWorkflowBusy) {
		t.Fatalf("got err %v, want ErrWorkflowBusy", err)
	}

	if err := state.verifyComplete(); err != nil {
		t.Error(err)
	}
}
