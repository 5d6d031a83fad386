package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vidyalinkco/studybot/internal/profile"
)

// Matches "Class 12", "class12", "Class-12", "class 12th".
var classPattern = regexp.MustCompile(`(?i)class[\s\-_]?(\d{1,2})(?:th)?`)

var (
	groupSubjects = []string{"AI", "CS", "IP", "IT"}
	validClasses  = map[int]bool{10: true, 11: true, 12: true}

	// Keywords that mark a message as a resource request, which needs
	// class or subject context before the agent can answer usefully.
	resourceKeywords = []string{"notes", "paper", "book", "syllabus", "material", "pdf"}
)

// GroupContext is the class/subject hint parsed from a group's title.
// Zero values mean the title carried no hint.
type GroupContext struct {
	Class   int
	Subject string
}

func (gc GroupContext) empty() bool { return gc.Class == 0 && gc.Subject == "" }

func (gc GroupContext) hint() string {
	var parts []string
	if gc.Class != 0 {
		parts = append(parts, fmt.Sprintf("Class %d", gc.Class))
	}
	if gc.Subject != "" {
		parts = append(parts, gc.Subject)
	}
	return strings.Join(parts, " ")
}

// GroupHelper extracts context from group titles and quoted replies so
// that "@bot sample papers?" in "Class 12 AI Study" needs no follow-up
// questions.
type GroupHelper struct{}

// ExtractFromGroupName parses class and subject from a group title.
// "Class 12 AI Study Group" yields {12, "AI"}; titles without a valid
// class (10-12) or known subject yield zero fields.
func (GroupHelper) ExtractFromGroupName(title string) GroupContext {
	var gc GroupContext
	if title == "" {
		return gc
	}

	if m := classPattern.FindStringSubmatch(title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && validClasses[n] {
			gc.Class = n
		}
	}

	upper := strings.ToUpper(title)
	for _, s := range groupSubjects {
		if strings.Contains(upper, s) {
			gc.Subject = s
			break
		}
	}
	return gc
}

// BuildContextMessage prepends bracketed context hints to the user's
// message so the agent sees them as part of the turn. Returns "" when
// there is nothing to send.
func (GroupHelper) BuildContextMessage(userMessage, repliedText string, gc GroupContext) string {
	var parts []string
	if !gc.empty() {
		parts = append(parts, "[Group context: "+gc.hint()+"]")
	}
	if repliedText != "" {
		parts = append(parts, "[Replying to: "+repliedText+"]")
	}
	if userMessage != "" {
		parts = append(parts, userMessage)
	}
	return strings.Join(parts, "\n")
}

// HasSufficientContext reports whether a message can be answered without
// asking questions in the group. Only resource requests need context;
// class or subject from the group title or the user's profile is enough.
func (GroupHelper) HasSufficientContext(userMessage string, gc GroupContext, prof *profile.Profile) bool {
	lower := strings.ToLower(userMessage)
	resourceRequest := false
	for _, kw := range resourceKeywords {
		if strings.Contains(lower, kw) {
			resourceRequest = true
			break
		}
	}
	if !resourceRequest {
		return true
	}

	hasClass := gc.Class != 0 || (prof != nil && prof.CurrentClass != 0)
	hasSubject := gc.Subject != "" || (prof != nil && prof.PreferredSubject != "")
	return hasClass || hasSubject
}
