package feeds

import (
	"regexp"
	"strings"
)

// TitleExtractor pulls entry titles out of a fetched feed document. The
// default is a heuristic pattern match, not a structural parser: malformed
// feeds degrade to zero titles rather than erroring.
type TitleExtractor interface {
	ExtractTitles(document string) []string
}

var titleRe = regexp.MustCompile(`<title>(.*?)</title>`)

// RegexExtractor extracts <title> elements, skipping the first one (the
// channel title) and stripping CDATA wrappers.
type RegexExtractor struct{}

// ExtractTitles returns the entry titles in document order.
func (RegexExtractor) ExtractTitles(document string) []string {
	matches := titleRe.FindAllStringSubmatch(document, -1)
	if len(matches) <= 1 {
		return nil
	}
	var titles []string
	for _, m := range matches[1:] {
		clean := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(m[1], "<![CDATA[", ""), "]]>", ""))
		if clean != "" {
			titles = append(titles, clean)
		}
	}
	return titles
}
