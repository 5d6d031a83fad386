package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vidyalinkco/studybot/internal/resources"
)

// Catalog constants shared by the resource tools.
var (
	Subjects      = []string{"AI", "IT", "CS", "IP"}
	Classes       = []any{10, 11, 12}
	ResourceTypes = []string{"Notes", "Books", "Syllabus", "Sample Question Papers"}
)

// MissingParams instructs the agent to ask the user instead of guessing.
const MissingParams = "MISSING_PARAMS: I need both class and subject to fetch notes. " +
	"Please ask the user: 'Which class (10-12) and subject (AI/CS/IP/IT) are you looking for?'"

// listCap bounds the file enumeration fallback.
const listCap = 5

// NotesTool retrieves study materials: a folder link when the index has
// one, an enumerated file list otherwise.
type NotesTool struct {
	index *resources.Index
}

func NewNotesTool(index *resources.Index) *NotesTool {
	return &NotesTool{index: index}
}

func (t *NotesTool) Name() string { return "get_notes" }

func (t *NotesTool) Description() string {
	return "Retrieve study materials including notes, books, syllabus, or sample papers for a specific class and subject"
}

func (t *NotesTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"class_number": map[string]any{
				"type":        "integer",
				"description": "Class number (10, 11, or 12)",
				"enum":        Classes,
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject code",
				"enum":        Subjects,
			},
			"resource_type": map[string]any{
				"type":        "string",
				"description": "Type of resource to retrieve",
				"enum":        ResourceTypes,
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "Optional specific topic (e.g., 'NLP', 'Computer Vision', 'Unit 1')",
			},
		},
		// All optional: user profile supplies defaults.
		"required": []string{},
	}
}

func (t *NotesTool) Execute(ctx context.Context, args string, inv Invocation) string {
	class := int(gjson.Get(args, "class_number").Int())
	subject := gjson.Get(args, "subject").String()
	resourceType := gjson.Get(args, "resource_type").String()
	topic := gjson.Get(args, "topic").String()

	if inv.Profile != nil {
		if class == 0 {
			class = inv.Profile.CurrentClass
		}
		if subject == "" {
			subject = inv.Profile.PreferredSubject
		}
	}
	if resourceType == "" {
		resourceType = "Notes"
	}

	if class == 0 || subject == "" {
		return MissingParams
	}

	// Folder link preferred, adaptive to topic.
	folder, err := t.index.FindFolder(ctx, class, subject, resourceType, topic)
	if err != nil {
		log.Printf("[tools] folder lookup failed: %v", err)
	}
	if folder != nil {
		topicText := ""
		if topic != "" {
			topicText = fmt.Sprintf(" (%s)", topic)
		}
		return fmt.Sprintf(
			"📚 **%s for Class %d %s%s:**\n\n"+
				"🔗 [Open Folder in Google Drive](%s)\n\n"+
				"💡 Tip: You can browse all files in the folder and download what you need!",
			resourceType, class, subject, topicText, folder.URL)
	}

	// Fallback: enumerate individual files.
	files, err := t.index.FindFiles(ctx, class, subject, resourceType, topic)
	if err != nil {
		log.Printf("[tools] file lookup failed: %v", err)
	}
	if len(files) == 0 {
		suggestion := ""
		if topic != "" {
			suggestion = fmt.Sprintf(" for topic '%s'", topic)
		}
		return fmt.Sprintf("📚 No %s found for Class %d %s%s. Try a different search or contact admin.",
			resourceType, class, subject, suggestion)
	}

	topicText := ""
	if topic != "" {
		topicText = " - " + topic
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 **%s for Class %d %s%s:**\n\n", resourceType, class, subject, topicText)
	for i, f := range files {
		if i == listCap {
			break
		}
		fmt.Fprintf(&b, "📄 [%s](%s)\n", f.Title, f.URL)
	}
	if len(files) > listCap {
		fmt.Fprintf(&b, "\n📦 ...and %d more files available!", len(files)-listCap)
	}
	return b.String()
}
