package bot

import (
	"context"
	"log"

	"github.com/vidyalinkco/studybot/internal/agent"
)

const (
	welcomeMessage = "👋 Hey! I'm your study buddy!\n\n" +
		"I can help you find:\n" +
		"📚 Notes, books & sample papers\n" +
		"🎬 Video lessons\n\n" +
		"Just tell me what you need!"

	flaggedNotice = "⚠️ Your message was flagged. Please use appropriate language."
)

// DirectMessageRouter handles private chats: moderation without
// escalation, then the agent. Flagged DMs get a plain warning, nothing
// is deleted and no ban state accrues.
type DirectMessageRouter struct {
	transport    Transport
	moderator    Moderator
	profiles     Profiles
	agent        Agent
	interactions InteractionLog
}

func NewDirectMessageRouter(transport Transport, moderator Moderator, profiles Profiles, ag Agent, interactions InteractionLog) *DirectMessageRouter {
	return &DirectMessageRouter{
		transport:    transport,
		moderator:    moderator,
		profiles:     profiles,
		agent:        ag,
		interactions: interactions,
	}
}

func (r *DirectMessageRouter) Handle(ctx context.Context, msg Message) {
	if msg.Command == "start" {
		r.reply(ctx, msg.ChatID, welcomeMessage)
		return
	}

	verdict := r.moderator.Check(ctx, msg.Text)
	if verdict.Flagged {
		log.Printf("[direct] message flagged (%s) user=%d", verdict.Category, msg.UserID)
		r.reply(ctx, msg.ChatID, flaggedNotice)
		r.record(msg, "moderation", flaggedNotice)
		return
	}

	prof, err := r.profiles.Get(ctx, msg.UserID, msg.Username)
	if err != nil {
		log.Printf("[direct] profile lookup failed for user=%d: %v", msg.UserID, err)
	}

	// On agent failure the returned text is already the apology.
	reply, _ := r.agent.Process(ctx, msg.Text, msg.UserID, prof, r.profiles, agent.ChatTypePrivate)
	r.reply(ctx, msg.ChatID, reply)
	r.record(msg, "agent", reply)
}

func (r *DirectMessageRouter) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.transport.Send(ctx, chatID, text); err != nil {
		log.Printf("[direct] send to chat=%d failed: %v", chatID, err)
	}
}

func (r *DirectMessageRouter) record(msg Message, route, reply string) {
	if r.interactions == nil {
		return
	}
	if err := r.interactions.LogInteraction(msg.UserID, msg.ChatID, route, msg.Text, reply); err != nil {
		log.Printf("[direct] interaction log failed: %v", err)
	}
}
