package feeds

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// defaultFeeds is used when no learning-sources file lists a usable feed.
var defaultFeeds = []string{
	"https://news.google.com/rss/search?q=AI+technology&hl=ko&gl=KR",
	"https://news.google.com/rss/search?q=technology+trends&hl=en&gl=US",
	"https://news.google.com/rss/search?q=programming&hl=ko&gl=KR",
}

// Sources resolves the active feed list from a LEARNING_SOURCES.md file.
// Lines of the form "- http..." are candidate URLs; anything not on the
// host allowlist is dropped. The file is re-read when the watcher sees it
// change.
type Sources struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	feeds []string
}

// NewSources loads the initial feed list from path.
func NewSources(path string, logger *slog.Logger) *Sources {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sources{path: path, logger: logger}
	s.reload()
	return s
}

// NewStatic returns a Sources with a fixed feed list, bypassing the file and
// the allowlist.
func NewStatic(feeds []string) *Sources {
	return &Sources{
		logger: slog.Default(),
		feeds:  append([]string(nil), feeds...),
	}
}

// Feeds returns the active feed URLs.
func (s *Sources) Feeds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.feeds))
	copy(out, s.feeds)
	return out
}

func (s *Sources) reload() {
	feeds := parseSourcesFile(s.path)
	if len(feeds) == 0 {
		feeds = append([]string(nil), defaultFeeds...)
	}
	s.mu.Lock()
	s.feeds = feeds
	s.mu.Unlock()
	s.logger.Info("learning sources loaded", "count", len(feeds))
}

func parseSourcesFile(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var feeds []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- http") {
			continue
		}
		url := strings.TrimSpace(strings.TrimLeft(line, "- "))
		if IsAllowedURL(url) {
			feeds = append(feeds, url)
		}
	}
	return feeds
}

// Watch re-reads the sources file whenever it changes. Blocks until ctx is
// cancelled; callers run it in a goroutine.
func (s *Sources) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	_ = fsw.Add(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Info("learning sources changed", "path", ev.Name, "op", ev.Op.String())
			s.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("sources watcher error", "error", err)
		}
	}
}
