package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	driveFilesEndpoint = "https://www.googleapis.com/drive/v3/files"
	folderMimeType     = "application/vnd.google-apps.folder"
)

// DriveClient lists a Google Drive folder tree through the public REST
// API. It implements FileStore for the sync service.
type DriveClient struct {
	apiKey     string
	httpClient *http.Client

	// endpoint is overridable in tests.
	endpoint string
}

func NewDriveClient(apiKey string) *DriveClient {
	return &DriveClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   driveFilesEndpoint,
	}
}

type driveItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	WebViewLink string `json:"webViewLink"`
}

type driveListing struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveItem `json:"files"`
}

// List walks the folder tree under rootFolderID breadth-first and returns
// every folder and file with its store-relative path.
func (c *DriveClient) List(ctx context.Context, rootFolderID string) ([]Entry, error) {
	if rootFolderID == "" {
		return nil, fmt.Errorf("drive root folder id is empty")
	}

	type pending struct {
		id   string
		path string
	}
	queue := []pending{{id: rootFolderID}}

	var entries []Entry
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		items, err := c.listChildren(ctx, cur.id)
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", cur.id, err)
		}

		for _, item := range items {
			if item.MimeType == folderMimeType {
				entries = append(entries, Entry{
					ID:       item.ID,
					Name:     item.Name,
					Path:     cur.path,
					URL:      item.WebViewLink,
					IsFolder: true,
				})
				childPath := item.Name
				if cur.path != "" {
					childPath = cur.path + "/" + item.Name
				}
				queue = append(queue, pending{id: item.ID, path: childPath})
				continue
			}
			entries = append(entries, Entry{
				ID:   item.ID,
				Name: item.Name,
				Path: cur.path,
				URL:  item.WebViewLink,
			})
		}
	}
	return entries, nil
}

func (c *DriveClient) listChildren(ctx context.Context, folderID string) ([]driveItem, error) {
	var items []driveItem
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
		q.Set("fields", "nextPageToken, files(id, name, mimeType, webViewLink)")
		q.Set("pageSize", "1000")
		q.Set("key", c.apiKey)
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		var listing driveListing
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("drive listing: unexpected status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode drive listing: %w", err)
		}
		resp.Body.Close()

		items = append(items, listing.Files...)
		if listing.NextPageToken == "" {
			return items, nil
		}
		pageToken = listing.NextPageToken
	}
}
