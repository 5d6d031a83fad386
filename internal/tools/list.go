package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vidyalinkco/studybot/internal/resources"
)

// ListResourcesTool answers "what's available" queries with per-subject
// material counts for one class.
type ListResourcesTool struct {
	index *resources.Index
}

func NewListResourcesTool(index *resources.Index) *ListResourcesTool {
	return &ListResourcesTool{index: index}
}

func (t *ListResourcesTool) Name() string { return "list_available_resources" }

func (t *ListResourcesTool) Description() string {
	return "Show what study materials are available for a specific class"
}

func (t *ListResourcesTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"class_number": map[string]any{
				"type":        "integer",
				"description": "Class number to show resources for (10, 11, or 12)",
				"enum":        Classes,
			},
		},
		"required": []string{},
	}
}

func (t *ListResourcesTool) Execute(ctx context.Context, args string, inv Invocation) string {
	class := int(gjson.Get(args, "class_number").Int())
	if class == 0 && inv.Profile != nil {
		class = inv.Profile.CurrentClass
	}
	if class == 0 {
		return "Which class (10-12) would you like to see resources for?"
	}

	counts, err := t.index.Counts(ctx, class)
	if err != nil {
		log.Printf("[tools] resource count failed for class %d: %v", class, err)
		counts = nil
	}
	if len(counts) == 0 {
		return fmt.Sprintf("📚 No study materials indexed for Class %d yet. Check back soon!", class)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 **Available materials for Class %d:**\n\n", class)
	current := ""
	for _, c := range counts {
		if c.Subject != current {
			current = c.Subject
			fmt.Fprintf(&b, "*%s*\n", c.Subject)
		}
		fmt.Fprintf(&b, "  • %s: %d files\n", c.ResourceType, c.Count)
	}
	return b.String()
}
