// Package moderation decides whether a message is safe to process and
// escalates repeated violations toward a ban.
package moderation

import (
	"context"
	"log"
	"strings"

	"github.com/vidyalinkco/studybot/internal/llm"
)

// Completer is the slice of the completion gateway the moderator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Result, error)
}

type Verdict struct {
	Flagged  bool
	Category string
	Raw      string
}

const moderationPrompt = `You are a strict content moderator for a student study group.
Decide if the message below is spam, abuse, or unsafe.

Flag as YES if the message contains any of:
- Spam: promotions, scams, unsolicited invite links
- Abuse: profanity, slurs, or insults in ANY language, including Hindi and Hinglish
- Safety: threats, hate speech, harassment, adult content

Answer with exactly one word: YES or NO.

Message: %s`

// Moderator runs a single binary classification per message. This is the
// only moderation decision point in the pipeline.
type Moderator struct {
	gateway Completer
	model   string
}

func NewModerator(gateway Completer, model string) *Moderator {
	return &Moderator{gateway: gateway, model: model}
}

// Check classifies text. Empty text short-circuits without a remote call.
// Gateway failures fail open: the message is allowed and the error logged.
func (m *Moderator) Check(ctx context.Context, text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{}
	}

	result, err := m.gateway.Complete(ctx, llm.Request{
		Model: m.model,
		Messages: []llm.Message{
			{Role: "user", Content: strings.Replace(moderationPrompt, "%s", text, 1)},
		},
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		log.Printf("[moderation] check failed, allowing message: %v", err)
		return Verdict{Flagged: false, Category: "error", Raw: err.Error()}
	}

	raw := strings.ToUpper(strings.TrimSpace(result.Text))
	flagged := strings.HasPrefix(raw, "YES")
	category := ""
	if flagged {
		category = "content_violation"
		log.Printf("[moderation] message flagged: %q -> %s", truncate(text, 50), raw)
	}
	return Verdict{Flagged: flagged, Category: category, Raw: raw}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
