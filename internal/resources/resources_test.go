package resources

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vidyalinkco/studybot/internal/store"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewIndex(s)
}

func seed(t *testing.T, ix *Index, folders []Folder, files []File) {
	t.Helper()
	if err := ix.Replace(context.Background(), folders, files); err != nil {
		t.Fatalf("Replace error: %v", err)
	}
}

func TestFindFolderPrefersTopicMatch(t *testing.T) {
	ix := newTestIndex(t)
	seed(t, ix, []Folder{
		{Path: "Class 10/AI/Notes", FolderID: "f1", URL: "http://drive/f1", Class: 10, Subject: "AI", ResourceType: "Notes"},
		{Path: "Class 10/AI/Notes/NLP", FolderID: "f2", URL: "http://drive/f2", Class: 10, Subject: "AI", ResourceType: "Notes", Topic: "NLP"},
	}, nil)
	ctx := context.Background()

	f, err := ix.FindFolder(ctx, 10, "AI", "Notes", "NLP")
	if err != nil {
		t.Fatalf("FindFolder error: %v", err)
	}
	if f == nil || f.FolderID != "f2" {
		t.Fatalf("expected topic folder f2, got %+v", f)
	}

	f, err = ix.FindFolder(ctx, 10, "AI", "Notes", "")
	if err != nil {
		t.Fatalf("FindFolder error: %v", err)
	}
	if f == nil || f.FolderID != "f1" {
		t.Fatalf("expected type folder f1, got %+v", f)
	}

	// Unknown topic: no folder, caller falls back to files.
	f, err = ix.FindFolder(ctx, 10, "AI", "Notes", "Robotics")
	if err != nil {
		t.Fatalf("FindFolder error: %v", err)
	}
	if f != nil {
		t.Fatalf("expected nil folder, got %+v", f)
	}
}

func TestFindFiles(t *testing.T) {
	ix := newTestIndex(t)
	seed(t, ix, nil, []File{
		{ID: "a", Title: "Unit 1", URL: "u1", Class: 10, Subject: "AI", ResourceType: "Notes"},
		{ID: "b", Title: "Unit 2", URL: "u2", Class: 10, Subject: "AI", ResourceType: "Notes"},
		{ID: "c", Title: "NLP Intro", URL: "u3", Class: 10, Subject: "AI", ResourceType: "Notes", Topic: "NLP"},
		{ID: "d", Title: "CS Paper", URL: "u4", Class: 12, Subject: "CS", ResourceType: "Sample Question Papers"},
	})
	ctx := context.Background()

	files, err := ix.FindFiles(ctx, 10, "AI", "Notes", "")
	if err != nil {
		t.Fatalf("FindFiles error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}

	files, err = ix.FindFiles(ctx, 10, "AI", "Notes", "NLP")
	if err != nil {
		t.Fatalf("FindFiles error: %v", err)
	}
	if len(files) != 1 || files[0].Title != "NLP Intro" {
		t.Fatalf("unexpected topic files: %+v", files)
	}

	files, err = ix.FindFiles(ctx, 11, "IP", "Books", "")
	if err != nil {
		t.Fatalf("FindFiles error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}

func TestCounts(t *testing.T) {
	ix := newTestIndex(t)
	seed(t, ix, nil, []File{
		{ID: "a", Title: "n1", URL: "u", Class: 10, Subject: "AI", ResourceType: "Notes"},
		{ID: "b", Title: "n2", URL: "u", Class: 10, Subject: "AI", ResourceType: "Notes"},
		{ID: "c", Title: "b1", URL: "u", Class: 10, Subject: "CS", ResourceType: "Books"},
		{ID: "d", Title: "x", URL: "u", Class: 12, Subject: "AI", ResourceType: "Notes"},
	})

	counts, err := ix.Counts(context.Background(), 10)
	if err != nil {
		t.Fatalf("Counts error: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(counts), counts)
	}
	if counts[0].Subject != "AI" || counts[0].ResourceType != "Notes" || counts[0].Count != 2 {
		t.Fatalf("unexpected first group: %+v", counts[0])
	}
	if counts[1].Subject != "CS" || counts[1].Count != 1 {
		t.Fatalf("unexpected second group: %+v", counts[1])
	}
}

func TestParseMeta(t *testing.T) {
	cases := []struct {
		path    string
		class   int
		subject string
		rtype   string
		topic   string
		ok      bool
	}{
		{"Class 10/AI/Notes", 10, "AI", "Notes", "", true},
		{"class-12/CS/Sample Question Papers", 12, "CS", "Sample Question Papers", "", true},
		{"Class 11/IP/Notes/Unit 1", 11, "IP", "Notes", "Unit 1", true},
		{"Misc/Stuff", 0, "", "", "", false},
		{"Class 10/AI", 0, "", "", "", false},
	}
	for _, tc := range cases {
		class, subject, rtype, topic, ok := parseMeta(tc.path)
		if ok != tc.ok {
			t.Errorf("%q: ok = %v, want %v", tc.path, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if class != tc.class || subject != tc.subject || rtype != tc.rtype || topic != tc.topic {
			t.Errorf("%q: got (%d, %q, %q, %q)", tc.path, class, subject, rtype, topic)
		}
	}
}

type fakeFileStore struct {
	entries []Entry
	fails   int
	calls   int
}

func (f *fakeFileStore) List(_ context.Context, _ string) ([]Entry, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("transient listing error")
	}
	return f.entries, nil
}

func TestSyncRun(t *testing.T) {
	ix := newTestIndex(t)
	fs := &fakeFileStore{
		fails: 1, // first listing attempt fails, retry succeeds
		entries: []Entry{
			{ID: "root", Name: "Class 10", Path: "", IsFolder: true},
			{ID: "sub", Name: "AI", Path: "Class 10", IsFolder: true},
			{ID: "f1", Name: "Notes", Path: "Class 10/AI", URL: "http://drive/f1", IsFolder: true},
			{ID: "a", Name: "Unit 1.pdf", Path: "Class 10/AI/Notes", URL: "http://drive/a"},
			{ID: "b", Name: "Unit 2.pdf", Path: "Class 10/AI/Notes", URL: "http://drive/b"},
			{ID: "junk", Name: "README.txt", Path: "Misc"},
		},
	}
	svc := NewSyncService(ix, fs, "root-id")

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if fs.calls != 2 {
		t.Fatalf("expected 2 list calls (1 retry), got %d", fs.calls)
	}

	ctx := context.Background()
	folder, err := ix.FindFolder(ctx, 10, "AI", "Notes", "")
	if err != nil {
		t.Fatalf("FindFolder error: %v", err)
	}
	if folder == nil || folder.URL != "http://drive/f1" {
		t.Fatalf("unexpected folder: %+v", folder)
	}

	files, err := ix.FindFiles(ctx, 10, "AI", "Notes", "")
	if err != nil {
		t.Fatalf("FindFiles error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
}

func TestSyncReplacesOldIndex(t *testing.T) {
	ix := newTestIndex(t)
	seed(t, ix, nil, []File{{ID: "old", Title: "stale", URL: "u", Class: 10, Subject: "AI", ResourceType: "Notes"}})

	fs := &fakeFileStore{entries: []Entry{
		{ID: "new", Name: "fresh.pdf", Path: "Class 10/AI/Notes", URL: "u2"},
	}}
	if err := NewSyncService(ix, fs, "root").Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	files, err := ix.FindFiles(context.Background(), 10, "AI", "Notes", "")
	if err != nil {
		t.Fatalf("FindFiles error: %v", err)
	}
	if len(files) != 1 || files[0].ID != "new" {
		t.Fatalf("stale rows survived sync: %+v", files)
	}
}
