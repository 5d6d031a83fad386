package bot

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/vidyalinkco/studybot/internal/agent"
	"github.com/vidyalinkco/studybot/internal/config"
)

const (
	helpPrompt = "Hi! How can I help you? 💬"

	needDetailsPrompt = "💬 *Need more details!*\n\n" +
		"Please DM me with your class and subject, " +
		"or ask in full like: \"Class 12 AI sample papers\""

	groupApology = "Sorry, I encountered an error. Please try again."
)

// GroupOrchestrator handles every group message: moderation first, then a
// reply only when the bot is mentioned. Replies that carry no lasting
// value (prompts, apologies) are transient and auto-delete; agent answers
// stay visible.
type GroupOrchestrator struct {
	transport  Transport
	moderator  Moderator
	escalation Escalator
	profiles   Profiles
	agent      Agent
	helper     GroupHelper

	deleteDelay time.Duration
}

func NewGroupOrchestrator(transport Transport, moderator Moderator, escalation Escalator, profiles Profiles, ag Agent, cfg config.ModerationConfig) *GroupOrchestrator {
	return &GroupOrchestrator{
		transport:   transport,
		moderator:   moderator,
		escalation:  escalation,
		profiles:    profiles,
		agent:       ag,
		deleteDelay: time.Duration(cfg.AutoDeleteDelay) * time.Second,
	}
}

// HandleMessage runs the group pipeline for one inbound message. Every
// message is moderated; only mentions get a reply.
func (o *GroupOrchestrator) HandleMessage(ctx context.Context, msg Message) {
	// The mention token is stripped before moderation so the bot's own
	// handle cannot trip the classifier.
	stripped := msg.Text
	if msg.BotMention != "" {
		stripped = strings.TrimSpace(strings.ReplaceAll(msg.Text, msg.BotMention, ""))
	}

	verdict := o.moderator.Check(ctx, stripped)
	if verdict.Flagged {
		log.Printf("[group] message flagged (%s) user=%d chat=%d", verdict.Category, msg.UserID, msg.ChatID)
		o.handleViolation(ctx, msg)
		return
	}

	if msg.BotMention == "" || !strings.Contains(msg.Text, msg.BotMention) {
		return
	}

	gc := o.helper.ExtractFromGroupName(msg.ChatTitle)
	enriched := o.helper.BuildContextMessage(stripped, msg.ReplyToText, gc)
	if enriched == "" {
		o.sendTransient(ctx, msg.ChatID, helpPrompt)
		return
	}

	prof, err := o.profiles.Get(ctx, msg.UserID, msg.Username)
	if err != nil {
		log.Printf("[group] profile lookup failed for user=%d: %v", msg.UserID, err)
	}

	if !o.helper.HasSufficientContext(stripped, gc, prof) {
		o.sendTransient(ctx, msg.ChatID, needDetailsPrompt)
		return
	}

	reply, err := o.agent.Process(ctx, enriched, msg.UserID, prof, o.profiles, agent.ChatTypeGroup)
	if err != nil {
		// Apologies add noise to the group; deliver and clean up.
		o.sendTransient(ctx, msg.ChatID, reply)
		return
	}
	if _, err := o.transport.Send(ctx, msg.ChatID, reply); err != nil {
		log.Printf("[group] send reply to chat=%d failed: %v", msg.ChatID, err)
	}
}

// handleViolation deletes the message, records the violation, warns the
// user privately and bans at the threshold. Delete, DM and ban are all
// best-effort; the warning record is the source of truth.
func (o *GroupOrchestrator) handleViolation(ctx context.Context, msg Message) {
	if err := o.transport.Delete(ctx, msg.ChatID, msg.MessageID); err != nil {
		log.Printf("[group] delete message %d in chat=%d failed: %v", msg.MessageID, msg.ChatID, err)
	}

	outcome := o.escalation.RecordViolation(ctx, msg.UserID, msg.ChatID, msg.Username, "content_violation")

	if err := o.transport.SendPrivate(ctx, msg.UserID, outcome.Message); err != nil {
		log.Printf("[group] warning DM to user=%d failed: %v", msg.UserID, err)
	}

	if !outcome.ShouldBan {
		return
	}
	if err := o.transport.Ban(ctx, msg.ChatID, msg.UserID); err != nil {
		log.Printf("[group] ban user=%d in chat=%d failed (bot admin rights?): %v", msg.UserID, msg.ChatID, err)
		return
	}
	log.Printf("[group] banned user=%d in chat=%d", msg.UserID, msg.ChatID)
}

func (o *GroupOrchestrator) sendTransient(ctx context.Context, chatID int64, text string) {
	id, err := o.transport.Send(ctx, chatID, text)
	if err != nil {
		log.Printf("[group] transient send to chat=%d failed: %v", chatID, err)
		return
	}
	o.transport.ScheduleDelete(chatID, id, o.deleteDelay)
}
