// Package videos resolves topic searches against an external video
// catalog. The production implementation targets the YouTube Data API,
// scoped to the channel configured for the bot.
package videos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Video struct {
	Title string
	URL   string
}

// Searcher is the collaborator the video tool depends on.
type Searcher interface {
	Search(ctx context.Context, topic string) ([]Video, error)
}

const (
	searchEndpoint   = "https://www.googleapis.com/youtube/v3/search"
	maxSearchResults = 5
)

type YouTubeClient struct {
	apiKey     string
	channelID  string
	httpClient *http.Client
	endpoint   string
}

func NewYouTubeClient(apiKey, channelID string) *YouTubeClient {
	return &YouTubeClient{
		apiKey:     apiKey,
		channelID:  channelID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   searchEndpoint,
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *YouTubeClient) Search(ctx context.Context, topic string) ([]Video, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", topic)
	q.Set("channelId", c.channelID)
	q.Set("type", "video")
	q.Set("maxResults", fmt.Sprintf("%d", maxSearchResults))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video search status %d: %s", resp.StatusCode, body)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	out := make([]Video, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		out = append(out, Video{
			Title: item.Snippet.Title,
			URL:   "https://www.youtube.com/watch?v=" + item.ID.VideoID,
		})
	}
	return out, nil
}
