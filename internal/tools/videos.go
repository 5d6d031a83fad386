package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vidyalinkco/studybot/internal/videos"
)

// VideosTool searches the channel's educational videos by topic. Empty and
// errored searches both degrade to a "try a broader term" message.
type VideosTool struct {
	searcher videos.Searcher
}

func NewVideosTool(searcher videos.Searcher) *VideosTool {
	return &VideosTool{searcher: searcher}
}

func (t *VideosTool) Name() string { return "search_videos" }

func (t *VideosTool) Description() string {
	return "Search for educational videos on a specific topic from the YouTube channel"
}

func (t *VideosTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Topic or keyword to search for (e.g., 'Python basics', 'data structures')",
			},
		},
		"required": []string{"topic"},
	}
}

func (t *VideosTool) Execute(ctx context.Context, args string, _ Invocation) string {
	topic := strings.TrimSpace(gjson.Get(args, "topic").String())
	if topic == "" {
		return "Please provide a topic to search videos for."
	}

	results, err := t.searcher.Search(ctx, topic)
	if err != nil {
		log.Printf("[tools] video search failed for %q: %v", topic, err)
		results = nil
	}
	if len(results) == 0 {
		return fmt.Sprintf("🎬 No videos found for '%s'. Try a broader term!", topic)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎬 **Videos on %s:**\n\n", topic)
	for _, v := range results {
		fmt.Fprintf(&b, "▶️ [%s](%s)\n", v.Title, v.URL)
	}
	return b.String()
}
