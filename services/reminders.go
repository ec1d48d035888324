package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"publication-portal-api/config"
	"publication-portal-api/models"

	"gorm.io/gorm"
)

// ReminderCooldown is both the staleness threshold that makes an entity
// eligible for a reminder and the dedup window that suppresses repeats.
// The product treats these as one knob; keep them a single constant.
const ReminderCooldown = 72 * time.Hour

type ReminderKind string

const (
	ReminderStaleSubmissions    ReminderKind = "stale_submissions"
	ReminderOverdueTasks        ReminderKind = "overdue_tasks"
	ReminderStaleTasks          ReminderKind = "stale_tasks"
	ReminderLowResponseMeetings ReminderKind = "low_response_meetings"
)

// ParseReminderKind validates an externally supplied kind name.
func ParseReminderKind(raw string) (ReminderKind, bool) {
	switch ReminderKind(raw) {
	case ReminderStaleSubmissions, ReminderOverdueTasks, ReminderStaleTasks, ReminderLowResponseMeetings:
		return ReminderKind(raw), true
	}
	return "", false
}

type ReminderService struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewReminderService(db *gorm.DB, notifier *Notifier) *ReminderService {
	return &ReminderService{db: db, notifier: notifier}
}

// Scan sweeps one reminder kind and returns how many reminders were
// actually sent. A single entity's lookup or send failure is logged and
// skipped; the scan continues.
func (s *ReminderService) Scan(ctx context.Context, kind ReminderKind) (int, error) {
	switch kind {
	case ReminderStaleSubmissions:
		return s.scanStaleSubmissions(ctx)
	case ReminderOverdueTasks:
		return s.scanOverdueTasks(ctx)
	case ReminderStaleTasks:
		return s.scanStaleTasks(ctx)
	case ReminderLowResponseMeetings:
		return s.scanLowResponseMeetings(ctx)
	}
	return 0, fmt.Errorf("unknown reminder kind %q", kind)
}

// staleReference picks the timestamp a submission's idle duration is
// measured from, per its current committee state. Missing stage stamps
// fall back to updated_at.
func staleReference(sub *models.Submission) time.Time {
	pick := func(t *time.Time) time.Time {
		if t != nil {
			return *t
		}
		return sub.UpdatedAt
	}
	switch sub.CurrentCommitteeStatus() {
	case models.CommitteeCoordinatorApproved:
		return pick(sub.CoordinatorReviewedAt)
	case models.CommitteeProofreaderCommit:
		return pick(sub.ProofreaderCommittedAt)
	case models.CommitteeLeadDesignCommit:
		return pick(sub.LeadDesignCommittedAt)
	}
	return sub.UpdatedAt
}

// isLowResponse reports whether fewer than half of all officers have
// recorded availability.
func isLowResponse(officerCount, respondedCount int) bool {
	if officerCount == 0 {
		return false
	}
	return respondedCount*2 < officerCount
}

// pendingResponders filters the officers who have not responded yet.
func pendingResponders(officers []Recipient, responded []int) []Recipient {
	seen := make(map[int]bool, len(responded))
	for _, id := range responded {
		seen[id] = true
	}
	pending := make([]Recipient, 0, len(officers))
	for _, o := range officers {
		if !seen[o.UserID] {
			pending = append(pending, o)
		}
	}
	return pending
}

func (s *ReminderService) scanStaleSubmissions(ctx context.Context) (int, error) {
	states := make([]string, 0, len(models.ActiveCommitteeStatuses))
	for _, st := range models.ActiveCommitteeStatuses {
		states = append(states, string(st))
	}

	// A submission the coordinator never picked up still has a NULL
	// committee_status column, same as the review queue filter.
	var subs []models.Submission
	if err := s.db.WithContext(ctx).
		Where("(committee_status IN ? OR committee_status IS NULL) AND status <> ? AND deleted_at IS NULL", states, models.StatusWithdrawn).
		Find(&subs).Error; err != nil {
		return 0, fmt.Errorf("failed to list active submissions: %w", err)
	}

	now := time.Now()
	sent := 0
	for i := range subs {
		sub := &subs[i]
		if now.Sub(staleReference(sub)) < ReminderCooldown {
			continue
		}

		state := sub.CurrentCommitteeStatus()
		var recipients []Recipient
		if state == models.CommitteeChangesRequested {
			// The ball is in the author's court.
			recipients = s.authorRecipient(ctx, sub.UserID)
		} else {
			recipients = s.notifier.PositionRecipients(ResponsiblePositions(state, sub.SubmissionType)...)
		}

		subject := fmt.Sprintf("Reminder: submission %s is waiting on you", sub.SubmissionNumber)
		message := fmt.Sprintf("Submission %q (%s) has been sitting in %s since %s. Please take a look.",
			sub.Title, sub.SubmissionNumber, state, staleReference(sub).Format("Jan 2"))

		for _, r := range recipients {
			sent += s.remind(ctx, models.ReminderEntitySubmission, sub.SubmissionID, ReminderStaleSubmissions, r, subject, message, now)
		}
	}
	return sent, nil
}

func (s *ReminderService) scanOverdueTasks(ctx context.Context) (int, error) {
	now := time.Now()
	var tasks []models.OfficerTask
	if err := s.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", now, models.TaskStatusCompleted).
		Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	sent := 0
	for i := range tasks {
		task := &tasks[i]
		subject := fmt.Sprintf("Overdue task: %s", task.Title)
		message := fmt.Sprintf("The task %q was due %s and is still open.", task.Title, task.DueDate.Format("Jan 2"))
		for _, r := range s.taskRecipients(ctx, task) {
			sent += s.remind(ctx, models.ReminderEntityTask, task.TaskID, ReminderOverdueTasks, r, subject, message, now)
		}
	}
	return sent, nil
}

func (s *ReminderService) scanStaleTasks(ctx context.Context) (int, error) {
	now := time.Now()
	var tasks []models.OfficerTask
	if err := s.db.WithContext(ctx).
		Where("status = ? AND due_date IS NULL AND created_at <= ?", models.TaskStatusTodo, now.Add(-ReminderCooldown)).
		Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("failed to list stale tasks: %w", err)
	}

	sent := 0
	for i := range tasks {
		task := &tasks[i]
		subject := fmt.Sprintf("Task still untouched: %s", task.Title)
		message := fmt.Sprintf("The task %q has no due date and has not moved since %s.", task.Title, task.CreatedAt.Format("Jan 2"))
		for _, r := range s.taskRecipients(ctx, task) {
			sent += s.remind(ctx, models.ReminderEntityTask, task.TaskID, ReminderStaleTasks, r, subject, message, now)
		}
	}
	return sent, nil
}

func (s *ReminderService) scanLowResponseMeetings(ctx context.Context) (int, error) {
	now := time.Now()
	var proposals []models.MeetingProposal
	if err := s.db.WithContext(ctx).
		Where("finalized = ? AND created_at <= ?", false, now.Add(-ReminderCooldown)).
		Find(&proposals).Error; err != nil {
		return 0, fmt.Errorf("failed to list open meeting proposals: %w", err)
	}

	officers := s.notifier.OfficerRecipients()
	if len(officers) == 0 {
		return 0, nil
	}

	sent := 0
	for i := range proposals {
		proposal := &proposals[i]
		var responded []int
		if err := s.db.WithContext(ctx).
			Model(&models.MeetingAvailability{}).
			Where("proposal_id = ?", proposal.ProposalID).
			Pluck("user_id", &responded).Error; err != nil {
			log.Printf("reminder scan: failed to load responses for proposal %d: %v", proposal.ProposalID, err)
			continue
		}
		if !isLowResponse(len(officers), len(responded)) {
			continue
		}

		subject := fmt.Sprintf("Please respond: %s", proposal.Title)
		message := fmt.Sprintf("The meeting proposal %q is still waiting for your availability.", proposal.Title)
		for _, r := range pendingResponders(officers, responded) {
			sent += s.remind(ctx, models.ReminderEntityMeeting, proposal.ProposalID, ReminderLowResponseMeetings, r, subject, message, now)
		}
	}
	return sent, nil
}

func (s *ReminderService) taskRecipients(ctx context.Context, task *models.OfficerTask) []Recipient {
	if task.AssigneeID != nil {
		return s.authorRecipient(ctx, *task.AssigneeID)
	}
	return s.notifier.OfficerRecipients()
}

func (s *ReminderService) authorRecipient(ctx context.Context, userID int) []Recipient {
	var r Recipient
	if err := s.db.WithContext(ctx).Table("users").
		Select("user_id, email, user_fname, user_lname").
		Where("user_id = ? AND delete_at IS NULL", userID).
		Scan(&r).Error; err != nil || r.Email == "" {
		log.Printf("reminder scan: recipient lookup failed for user %d: %v", userID, err)
		return nil
	}
	return []Recipient{r}
}

// remind sends one deduplicated reminder. Returns 1 when an email actually
// went out and a ledger row was recorded, 0 otherwise. The dedup rule is a
// sliding window: a (entity, recipient, kind) triple is suppressed only
// while a ledger entry younger than the cooldown exists.
func (s *ReminderService) remind(ctx context.Context, entityType string, entityID int, kind ReminderKind, to Recipient, subject, message string, now time.Time) int {
	var recent int64
	err := s.db.WithContext(ctx).
		Model(&models.ReminderLedgerEntry{}).
		Where("entity_type = ? AND entity_id = ? AND kind = ? AND recipient = ? AND sent_at > ?",
			entityType, entityID, string(kind), to.Email, now.Add(-ReminderCooldown)).
		Count(&recent).Error
	if err != nil {
		log.Printf("reminder scan: ledger check failed for %s %d -> %s: %v", entityType, entityID, to.Email, err)
		return 0
	}
	if recent > 0 {
		return 0
	}

	// The guard key is the serialization point between overlapping scan
	// runs: only the scan that wins the SET NX sends.
	guardKey := fmt.Sprintf("reminder:%s:%s:%d:%s", kind, entityType, entityID, to.Email)
	if config.Redis != nil {
		ok, err := config.Redis.SetNX(ctx, guardKey, 1, ReminderCooldown).Result()
		if err != nil {
			log.Printf("reminder scan: redis guard failed for %s: %v", guardKey, err)
		} else if !ok {
			return 0
		}
	}

	if err := s.notifier.SendReminder(to, subject, message); err != nil {
		log.Printf("reminder scan: send failed for %s %d -> %s: %v", entityType, entityID, to.Email, err)
		if config.Redis != nil {
			// Release the guard so the next scheduled scan can retry.
			if delErr := config.Redis.Del(ctx, guardKey).Err(); delErr != nil {
				log.Printf("reminder scan: failed to release guard %s: %v", guardKey, delErr)
			}
		}
		return 0
	}

	if err := s.db.WithContext(ctx).Create(&models.ReminderLedgerEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Kind:       string(kind),
		Recipient:  to.Email,
		SentAt:     now,
	}).Error; err != nil {
		log.Printf("reminder scan: ledger write failed for %s %d -> %s: %v", entityType, entityID, to.Email, err)
	}
	return 1
}
