package feeds

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSources_MissingFileFallsBackToDefaults(t *testing.T) {
	s := NewSources(filepath.Join(t.TempDir(), "LEARNING_SOURCES.md"), discardLogger())
	if got := s.Feeds(); !reflect.DeepEqual(got, defaultFeeds) {
		t.Errorf("Feeds() = %v, want defaults", got)
	}
}

func TestSources_ParsesListEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LEARNING_SOURCES.md")
	content := `# Learning sources

Some prose that is not a feed.

- https://news.google.com/rss/search?q=golang
- https://evil.example.com/rss
- http://techcrunch.com/feed/
plain line
- not a url
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSources(path, discardLogger())
	want := []string{
		"https://news.google.com/rss/search?q=golang",
		"http://techcrunch.com/feed/",
	}
	if got := s.Feeds(); !reflect.DeepEqual(got, want) {
		t.Errorf("Feeds() = %v, want %v", got, want)
	}
}

func TestSources_AllEntriesUntrustedFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LEARNING_SOURCES.md")
	content := "- https://evil.example.com/a\n- https://also.bad.net/b\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSources(path, discardLogger())
	if got := s.Feeds(); !reflect.DeepEqual(got, defaultFeeds) {
		t.Errorf("Feeds() = %v, want defaults", got)
	}
}

func TestSources_ReloadPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LEARNING_SOURCES.md")
	s := NewSources(path, discardLogger())
	if got := s.Feeds(); !reflect.DeepEqual(got, defaultFeeds) {
		t.Fatalf("initial Feeds() = %v, want defaults", got)
	}
	if err := os.WriteFile(path, []byte("- https://rss.cnn.com/rss/edition.rss\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.reload()
	want := []string{"https://rss.cnn.com/rss/edition.rss"}
	if got := s.Feeds(); !reflect.DeepEqual(got, want) {
		t.Errorf("Feeds() after reload = %v, want %v", got, want)
	}
}
