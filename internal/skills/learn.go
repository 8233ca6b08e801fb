package skills

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/basket/gyeol/internal/store"
)

// maxFeedBody caps how much of a feed response is read (1 MiB).
const maxFeedBody = 1 << 20

// titlesPerFeed is how many entry titles each feed may contribute per cycle.
const titlesPerFeed = 3

// LearnRSS fetches the configured feeds and records previously unseen entry
// titles as learned topics. Fetch failures are logged and skipped; the skill
// reports how many topics were actually new.
func (r *Runner) LearnRSS(ctx context.Context) store.SkillResult {
	var learned []string
	for _, feedURL := range r.deps.Sources.Feeds() {
		titles, err := r.fetchTitles(ctx, feedURL)
		if err != nil {
			r.deps.Logger.Warn("rss fetch failed", "feed", feedURL, "error", err)
			continue
		}
		if len(titles) > titlesPerFeed {
			titles = titles[:titlesPerFeed]
		}
		for _, title := range titles {
			if r.deps.Shared.AddTopic(title) {
				learned = append(learned, title)
			}
		}
	}
	return store.SkillResult{
		Skill:  SkillLearnRSS,
		OK:     true,
		Detail: fmt.Sprintf("Learned %d new topics", len(learned)),
	}
}

func (r *Runner) fetchTitles(ctx context.Context, feedURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.deps.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, err
	}
	return r.deps.Titles.ExtractTitles(string(body)), nil
}
