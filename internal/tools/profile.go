package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"
)

// ProfileTool applies class/subject changes to the caller's profile.
// The update is all-or-nothing per call.
type ProfileTool struct{}

func NewProfileTool() *ProfileTool { return &ProfileTool{} }

func (t *ProfileTool) Name() string { return "update_user_profile" }

func (t *ProfileTool) Description() string {
	return "Update user's class or subject preference in their profile"
}

func (t *ProfileTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"class_number": map[string]any{
				"type":        "integer",
				"description": "New class number (10, 11, or 12)",
				"enum":        Classes,
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "New preferred subject",
				"enum":        Subjects,
			},
		},
		"required": []string{},
	}
}

func (t *ProfileTool) Execute(ctx context.Context, args string, inv Invocation) string {
	if inv.Profiles == nil || inv.UserID == 0 {
		return "Unable to update profile at this time."
	}

	class := int(gjson.Get(args, "class_number").Int())
	subject := gjson.Get(args, "subject").String()
	if class == 0 && subject == "" {
		return "Please specify what you'd like to update (class or subject)."
	}

	if err := inv.Profiles.Update(ctx, inv.UserID, class, subject); err != nil {
		log.Printf("[tools] profile update failed for user=%d: %v", inv.UserID, err)
		return "Failed to save profile updates. Please try again."
	}

	var lines []string
	if class != 0 {
		lines = append(lines, fmt.Sprintf("✅ Updated class to %d", class))
	}
	if subject != "" {
		lines = append(lines, fmt.Sprintf("✅ Updated subject to %s", subject))
	}
	return strings.Join(lines, "\n")
}
