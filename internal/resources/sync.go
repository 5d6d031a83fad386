package resources

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"
)

// Entry is one item from the external file store listing. Path is the
// store-relative folder path, without the entry's own name for files.
type Entry struct {
	ID       string
	Name     string
	Path     string
	URL      string
	IsFolder bool
}

// FileStore is the external store the index syncs from (Drive-like:
// recursive listing under a root folder).
type FileStore interface {
	List(ctx context.Context, rootFolderID string) ([]Entry, error)
}

// Folder hierarchy the sync expects: Class {n}/{subject}/{type}[/{topic}].
var classDirPattern = regexp.MustCompile(`(?i)^class[\s\-_]?(\d{1,2})(?:th)?$`)

type SyncService struct {
	index        *Index
	fileStore    FileStore
	rootFolderID string
	cron         *rcron.Cron
}

func NewSyncService(index *Index, fs FileStore, rootFolderID string) *SyncService {
	return &SyncService{index: index, fileStore: fs, rootFolderID: rootFolderID}
}

// Run performs one full sync: list the file store (with bounded retry),
// parse entries into index rows, and atomically replace the index.
func (s *SyncService) Run(ctx context.Context) error {
	runID := uuid.NewString()[:8]
	log.Printf("[sync] run %s: listing file store", runID)

	entries, err := backoff.Retry(ctx, func() ([]Entry, error) {
		return s.fileStore.List(ctx, s.rootFolderID)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(4))
	if err != nil {
		return fmt.Errorf("list file store: %w", err)
	}

	var folders []Folder
	var files []File
	skipped := 0
	for _, e := range entries {
		if e.IsFolder {
			f, ok := parseFolder(e)
			if !ok {
				skipped++
				continue
			}
			folders = append(folders, f)
			continue
		}
		f, ok := parseFile(e)
		if !ok {
			skipped++
			continue
		}
		files = append(files, f)
	}

	if err := s.index.Replace(ctx, folders, files); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	log.Printf("[sync] run %s: indexed %d folders, %d files (%d skipped)",
		runID, len(folders), len(files), skipped)
	return nil
}

// Schedule registers the sync on a cron expression and starts the runner.
// Call the returned stop function on shutdown.
func (s *SyncService) Schedule(spec string) (func(), error) {
	s.cron = rcron.New(rcron.WithSeconds())
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.Run(ctx); err != nil {
			log.Printf("[sync] scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule sync %q: %w", spec, err)
	}
	s.cron.Start()
	log.Printf("[sync] scheduled with %q", spec)
	return func() { s.cron.Stop() }, nil
}

// parseMeta maps a path like "Class 10/AI/Notes/NLP" onto index metadata.
func parseMeta(path string) (class int, subject, resourceType, topic string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return 0, "", "", "", false
	}
	m := classDirPattern.FindStringSubmatch(strings.TrimSpace(parts[0]))
	if m == nil {
		return 0, "", "", "", false
	}
	class, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", "", "", false
	}
	subject = strings.TrimSpace(parts[1])
	resourceType = strings.TrimSpace(parts[2])
	if len(parts) > 3 {
		topic = strings.TrimSpace(parts[3])
	}
	return class, subject, resourceType, topic, true
}

func parseFolder(e Entry) (Folder, bool) {
	full := strings.Trim(e.Path, "/")
	if full == "" {
		full = e.Name
	} else {
		full = full + "/" + e.Name
	}
	class, subject, resourceType, topic, ok := parseMeta(full)
	if !ok {
		return Folder{}, false
	}
	return Folder{
		Path:         full,
		FolderID:     e.ID,
		URL:          e.URL,
		Class:        class,
		Subject:      subject,
		ResourceType: resourceType,
		Topic:        topic,
	}, true
}

func parseFile(e Entry) (File, bool) {
	class, subject, resourceType, topic, ok := parseMeta(e.Path)
	if !ok {
		return File{}, false
	}
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	return File{
		ID:           id,
		Title:        e.Name,
		URL:          e.URL,
		Class:        class,
		Subject:      subject,
		ResourceType: resourceType,
		Topic:        topic,
	}, true
}
