// Package bot routes inbound chat messages through moderation and the
// agent pipeline. Group chats get the full moderate/warn/ban treatment;
// private chats skip escalation.
package bot

import (
	"context"
	"time"

	"github.com/vidyalinkco/studybot/internal/moderation"
	"github.com/vidyalinkco/studybot/internal/profile"
	"github.com/vidyalinkco/studybot/internal/tools"
)

const (
	ChatKindPrivate = "private"
	ChatKindGroup   = "group"
)

// Message is one inbound chat message, already mapped from the wire
// format by the transport.
type Message struct {
	UserID    int64
	Username  string
	ChatID    int64
	MessageID int
	ChatKind  string
	ChatTitle string
	Text      string
	// ReplyToText carries the text of a quoted message, if any.
	ReplyToText string
	// BotMention is the token that addresses the bot (e.g. "@studybot").
	BotMention string
	// Command is the bot command name without the slash (e.g. "start").
	Command string
}

// Transport is the outbound side of the chat platform. Implementations
// must be safe for concurrent use; the router runs one goroutine per
// inbound message.
type Transport interface {
	// Send posts text to a chat and returns the new message's ID.
	Send(ctx context.Context, chatID int64, text string) (int, error)
	// SendPrivate delivers text to a user's private chat.
	SendPrivate(ctx context.Context, userID int64, text string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	Ban(ctx context.Context, chatID, userID int64) error
	// ScheduleDelete removes a message after the delay. Fire-and-forget:
	// it returns immediately and failures are only logged.
	ScheduleDelete(chatID int64, messageID int, delay time.Duration)
}

// Moderator classifies one message. Fail-open: implementations return an
// unflagged verdict when the classifier is unavailable.
type Moderator interface {
	Check(ctx context.Context, text string) moderation.Verdict
}

// Escalator applies the warn-then-ban policy for one violation.
type Escalator interface {
	RecordViolation(ctx context.Context, userID, chatID int64, username, reason string) moderation.Outcome
}

// Profiles reads and writes student profiles. The Update method also
// satisfies tools.ProfileUpdater so the same value backs the agent's
// profile tool.
type Profiles interface {
	Get(ctx context.Context, userID int64, username string) (*profile.Profile, error)
	Update(ctx context.Context, userID int64, class int, subject string) error
}

// Agent resolves one user turn into reply text. A non-nil error marks
// the text as a fallback apology.
type Agent interface {
	Process(ctx context.Context, userMessage string, userID int64, prof *profile.Profile, updater tools.ProfileUpdater, chatType string) (string, error)
}

// InteractionLog records handled exchanges, best-effort.
type InteractionLog interface {
	LogInteraction(userID, chatID int64, route, userMessage, botResponse string) error
}
