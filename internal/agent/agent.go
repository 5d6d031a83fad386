// Package agent drives the tool-calling conversational loop: one
// completion round trip per user turn, tools dispatched in order, reply
// recorded in the bounded history.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vidyalinkco/studybot/internal/config"
	"github.com/vidyalinkco/studybot/internal/convo"
	"github.com/vidyalinkco/studybot/internal/llm"
	"github.com/vidyalinkco/studybot/internal/profile"
	"github.com/vidyalinkco/studybot/internal/tools"
)

// Completer is the slice of the completion gateway the agent needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Result, error)
}

const (
	// ChatTypePrivate and ChatTypeGroup scope the history window: group
	// replies are public and must not leak long private context.
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"

	apologyReply  = "Sorry, I encountered an error. Please try again."
	notFoundReply = "I couldn't find what you're looking for."
	idleReply     = "How can I help you?"
)

type Agent struct {
	gateway  Completer
	registry *tools.Registry
	history  *convo.Store

	model        string
	maxTokens    int
	temperature  float64
	privateLimit int
	groupLimit   int
}

func New(gateway Completer, registry *tools.Registry, history *convo.Store, cfg config.AgentConfig) *Agent {
	return &Agent{
		gateway:      gateway,
		registry:     registry,
		history:      history,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		privateLimit: cfg.PrivateHistoryLimit,
		groupLimit:   cfg.GroupHistoryLimit,
	}
}

// Process resolves one user turn. The returned text is always safe to
// send to the user; a non-nil error reports that the text is a fallback
// apology so callers can deliver it differently (e.g. auto-deleted in
// groups).
func (a *Agent) Process(ctx context.Context, userMessage string, userID int64, prof *profile.Profile, updater tools.ProfileUpdater, chatType string) (string, error) {
	limit := a.privateLimit
	if chatType == ChatTypeGroup {
		limit = a.groupLimit
	}

	messages := make([]llm.Message, 0, limit+2)
	messages = append(messages, llm.Message{Role: "system", Content: buildSystemPrompt(prof)})
	for _, turn := range a.history.Tail(userID, limit) {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})

	result, err := a.gateway.Complete(ctx, llm.Request{
		Model:       a.model,
		Messages:    messages,
		Tools:       a.registry.Definitions(),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		// The turn is not recorded: a phantom exchange would pollute
		// the next turn's context.
		log.Printf("[agent] completion failed for user=%d: %v", userID, err)
		return apologyReply, fmt.Errorf("completion: %w", err)
	}

	reply, err := a.resolve(ctx, result, userID, prof, updater)
	if err != nil {
		return reply, err
	}

	a.history.Append(userID, convo.RoleUser, userMessage)
	a.history.Append(userID, convo.RoleAssistant, reply)
	return reply, nil
}

// resolve turns the completion result into reply text. Tool calls are
// dispatched in order within this single round; there is no second
// completion call per turn.
func (a *Agent) resolve(ctx context.Context, result *llm.Result, userID int64, prof *profile.Profile, updater tools.ProfileUpdater) (string, error) {
	if len(result.ToolCalls) == 0 {
		if text := strings.TrimSpace(result.Text); text != "" {
			return text, nil
		}
		return idleReply, nil
	}

	inv := tools.Invocation{UserID: userID, Profile: prof, Profiles: updater}
	var results []string
	for _, call := range result.ToolCalls {
		log.Printf("[agent] tool call %s(%s) for user=%d", call.Name, call.Arguments, userID)
		out, err := a.registry.Dispatch(ctx, call.Name, call.Arguments, inv)
		if err != nil {
			log.Printf("[agent] dispatch %s failed: %v", call.Name, err)
			return apologyReply, fmt.Errorf("dispatch %s: %w", call.Name, err)
		}
		if out != "" {
			results = append(results, out)
		}
	}
	if len(results) == 0 {
		return notFoundReply, nil
	}
	return strings.Join(results, "\n\n"), nil
}

func buildSystemPrompt(prof *profile.Profile) string {
	var b strings.Builder
	b.WriteString("You are a friendly study assistant for school students. " +
		"You help them find notes, books, syllabus, sample papers and educational videos, " +
		"and keep their class and subject preferences up to date. " +
		"Use the available tools to answer resource questions; never invent links. " +
		"Keep replies short and encouraging.")

	if prof != nil && (prof.CurrentClass != 0 || prof.PreferredSubject != "") {
		b.WriteString("\n\nStudent profile:")
		if prof.CurrentClass != 0 {
			fmt.Fprintf(&b, "\n- Class: %d", prof.CurrentClass)
		}
		if prof.PreferredSubject != "" {
			fmt.Fprintf(&b, "\n- Preferred subject: %s", prof.PreferredSubject)
		}
	}
	return b.String()
}
