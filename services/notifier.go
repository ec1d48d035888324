package services

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"publication-portal-api/config"
	"publication-portal-api/models"

	"gorm.io/gorm"
)

// Recipient is one resolved notification target.
type Recipient struct {
	UserID int    `gorm:"column:user_id"`
	Email  string `gorm:"column:email"`
	Fname  string `gorm:"column:user_fname"`
	Lname  string `gorm:"column:user_lname"`
}

func (r Recipient) DisplayName() string {
	name := strings.TrimSpace(r.Fname + " " + r.Lname)
	if name == "" {
		return r.Email
	}
	return name
}

// ResponsiblePositions maps a committee status to the position(s) that
// should act on it next. The reminder scanner resolves responsible parties
// through the same function, so dispatcher and scanner can never diverge.
// changes_requested has no position: the author is responsible.
func ResponsiblePositions(status models.CommitteeStatus, subType models.SubmissionType) []string {
	switch status {
	case models.CommitteePendingCoordinator, models.CommitteeWithCoordinator:
		return []string{models.PositionSubmissionsCoordinator}
	case models.CommitteeCoordinatorApproved:
		if subType == models.SubmissionTypeVisual {
			return []string{models.PositionLeadDesign}
		}
		return []string{models.PositionProofreader}
	case models.CommitteeProofreaderCommit:
		return []string{models.PositionLeadDesign}
	case models.CommitteeLeadDesignCommit, models.CommitteeWithEditorInChief:
		return []string{models.PositionEditorInChief}
	}
	return nil
}

// handoffStates are the new states that put the submission in front of a
// different role and therefore trigger a notification.
var handoffStates = map[models.CommitteeStatus]bool{
	models.CommitteeCoordinatorApproved: true,
	models.CommitteeProofreaderCommit:   true,
	models.CommitteeLeadDesignCommit:    true,
}

type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

// NotifyTransition dispatches the advisory notification for a committed
// transition. All failures are logged and swallowed: the state change has
// already committed and is the source of truth.
func (n *Notifier) NotifyTransition(sub *models.Submission, previous, next models.CommitteeStatus) {
	switch {
	case handoffStates[next]:
		n.notifyNextRole(sub, next)
	case next == models.CommitteeChangesRequested:
		n.notifyAuthorChangesRequested(sub)
	}
}

// NotifyNewSubmission tells the Submissions Coordinator and the
// Editor-in-Chief that a fresh piece arrived.
func (n *Notifier) NotifyNewSubmission(sub *models.Submission) {
	recipients := n.PositionRecipients(models.PositionSubmissionsCoordinator, models.PositionEditorInChief)
	subject := fmt.Sprintf("New submission: %s", sub.Title)
	message := fmt.Sprintf("A new %s submission %q (%s) was received and is waiting for coordinator review.",
		sub.SubmissionType, sub.Title, sub.SubmissionNumber)
	n.deliver(sub, recipients, subject, message, "info", "submission_received")
}

func (n *Notifier) notifyNextRole(sub *models.Submission, next models.CommitteeStatus) {
	positions := ResponsiblePositions(next, sub.SubmissionType)
	if len(positions) == 0 {
		return
	}
	recipients := n.PositionRecipients(positions...)
	subject := fmt.Sprintf("Submission %s is ready for your review", sub.SubmissionNumber)
	message := fmt.Sprintf("Submission %q (%s) moved to %s and is now waiting on %s.",
		sub.Title, sub.SubmissionNumber, next, strings.Join(positions, ", "))
	n.deliver(sub, recipients, subject, message, "info", "submission_handoff")
}

func (n *Notifier) notifyAuthorChangesRequested(sub *models.Submission) {
	var author Recipient
	if err := n.db.Table("users").
		Select("user_id, email, user_fname, user_lname").
		Where("user_id = ? AND delete_at IS NULL", sub.UserID).
		Scan(&author).Error; err != nil || author.Email == "" {
		log.Printf("changes-requested notification: author lookup failed for submission %d: %v", sub.SubmissionID, err)
		return
	}
	subject := fmt.Sprintf("Changes requested on %q", sub.Title)
	notes := ""
	if sub.EditorNotes != nil {
		notes = *sub.EditorNotes
	}
	message := fmt.Sprintf("The committee requested changes on your submission %q (%s).", sub.Title, sub.SubmissionNumber)
	if notes != "" {
		message += "\n\nNotes from the committee:\n" + notes
	}
	n.deliver(sub, []Recipient{author}, subject, message, "warning", "changes_requested")
}

// PositionRecipients resolves every active member holding one of the given
// positions. Zero recipients is a valid outcome, not an error.
func (n *Notifier) PositionRecipients(positions ...string) []Recipient {
	var recipients []Recipient
	err := n.db.Table("users").
		Select("users.user_id, users.email, users.user_fname, users.user_lname").
		Joins("JOIN user_positions up ON up.user_id = users.user_id").
		Joins("JOIN positions p ON p.position_id = up.position_id").
		Where("p.position_name IN ? AND users.delete_at IS NULL", positions).
		Scan(&recipients).Error
	if err != nil {
		log.Printf("failed to resolve recipients for positions %v: %v", positions, err)
		return nil
	}
	return recipients
}

// OfficerRecipients resolves every member holding the broad officer role.
func (n *Notifier) OfficerRecipients() []Recipient {
	var recipients []Recipient
	err := n.db.Table("users").
		Select("users.user_id, users.email, users.user_fname, users.user_lname").
		Joins("JOIN user_roles ur ON ur.user_id = users.user_id").
		Joins("JOIN roles r ON r.role_id = ur.role_id").
		Where("r.role = ? AND users.delete_at IS NULL", models.RoleOfficer).
		Scan(&recipients).Error
	if err != nil {
		log.Printf("failed to resolve officer recipients: %v", err)
		return nil
	}
	return recipients
}

// SendReminder sends one reminder email. The error return lets the scanner
// keep an accurate sent count; log-only mailer mode counts as success.
func (n *Notifier) SendReminder(to Recipient, subject, message string) error {
	if to.Email == "" {
		return fmt.Errorf("recipient %d has no email", to.UserID)
	}
	html := buildFormalEmailHTML(subject, to.DisplayName(), message)
	return config.SendMail([]string{to.Email}, subject, html)
}

// deliver writes in-app notification rows synchronously, then emails each
// recipient and publishes the outbox event in the background.
func (n *Notifier) deliver(sub *models.Submission, recipients []Recipient, subject, message, kind, eventKey string) {
	subID := uint(sub.SubmissionID)
	now := time.Now()
	for _, r := range recipients {
		row := models.Notification{
			UserID:              uint(r.UserID),
			Title:               subject,
			Message:             message,
			Type:                kind,
			RelatedSubmissionID: &subID,
			CreateAt:            now,
		}
		if err := n.db.Create(&row).Error; err != nil {
			log.Printf("failed to store notification for user %d: %v", r.UserID, err)
		}
	}

	n.publishOutboxEvent(sub, recipients, subject, eventKey)

	targets := make([]Recipient, len(recipients))
	copy(targets, recipients)
	go func() {
		for _, r := range targets {
			if r.Email == "" {
				continue
			}
			html := buildFormalEmailHTML(subject, r.DisplayName(), message)
			sendMailSafe([]string{r.Email}, subject, html)
		}
	}()
}

func (n *Notifier) publishOutboxEvent(sub *models.Submission, recipients []Recipient, subject, eventKey string) {
	emails := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.Email != "" {
			emails = append(emails, r.Email)
		}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event":             eventKey,
		"submission_id":     sub.SubmissionID,
		"submission_number": sub.SubmissionNumber,
		"subject":           subject,
		"recipients":        emails,
		"at":                time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	config.PublishNotificationEvent(fmt.Sprintf("%d", sub.SubmissionID), payload)
}

func sendMailSafe(to []string, subject, html string) {
	if err := config.SendMail(to, subject, html); err != nil {
		log.Printf("notification email send failed (subject=%q to=%v): %v", subject, to, err)
	}
}

func buildFormalEmailHTML(subject, recipientName, message string) string {
	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "there"
	}

	escapedSubject := template.HTMLEscapeString(subject)
	escapedGreeting := template.HTMLEscapeString(fmt.Sprintf("Dear %s,", name))
	escapedMessage := template.HTMLEscapeString(strings.TrimSpace(message))
	escapedMessage = strings.ReplaceAll(strings.ReplaceAll(escapedMessage, "\r\n", "\n"), "\r", "\n")
	escapedMessage = strings.ReplaceAll(escapedMessage, "\n", "<br />")

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.7;color:#111827;">%s</p>
    <p style="margin:0 0 0 0;font-size:16px;line-height:1.7;color:#111827;word-break:break-word;">%s</p>
  </div>
</div>
</body>
</html>`, escapedSubject, escapedGreeting, escapedMessage)
}
