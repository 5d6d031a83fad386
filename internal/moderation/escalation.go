package moderation

import (
	"context"
	"log"
)

// Outcome is the escalation decision for one violation: the persisted
// record, whether the ban action should run, and the single private
// message owed to the violator.
type Outcome struct {
	Record    Record
	ShouldBan bool
	Message   string
}

// Escalation is the warn-then-ban policy over the warning store. States per
// (user, chat) move CLEAN -> WARNED -> BANNED and never back.
type Escalation struct {
	store *WarningStore
}

func NewEscalation(store *WarningStore) *Escalation {
	return &Escalation{store: store}
}

const (
	warnMessage = "⚠️ *WARNING - FIRST AND FINAL*\n\n" +
		"Your message was *deleted* for containing inappropriate content " +
		"(spam, abuse, or policy violation).\n\n" +
		"🚨 *You are now being tracked:*\n" +
		"• This warning is logged permanently\n" +
		"• Your user ID is recorded\n" +
		"• *NEXT violation = PERMANENT BAN*\n\n" +
		"This is your only warning. Follow community guidelines."

	banMessage = "🚫 *BANNED*\n\n" +
		"You have been *permanently removed* from the group.\n\n" +
		"Reason: Repeated violations of community guidelines " +
		"(spam, abuse, or inappropriate content).\n\n" +
		"This was your 2nd violation. This action is logged."
)

// RecordViolation applies one violation and selects the message to send.
// A persist failure is logged here; the in-memory count still drives the
// decision so the user never sees an understated count.
func (e *Escalation) RecordViolation(ctx context.Context, userID, chatID int64, username, reason string) Outcome {
	rec, err := e.store.RecordViolation(ctx, userID, chatID, username, reason)
	if err != nil {
		log.Printf("[warnings] persist failed for user=%d chat=%d count=%d: %v",
			userID, chatID, rec.WarningCount, err)
	}

	shouldBan := rec.WarningCount >= e.store.Threshold()
	msg := warnMessage
	if shouldBan {
		msg = banMessage
	}

	log.Printf("[warnings] user=%d chat=%d count=%d ban=%v", userID, chatID, rec.WarningCount, shouldBan)
	return Outcome{Record: rec, ShouldBan: shouldBan, Message: msg}
}
