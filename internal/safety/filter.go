// Package safety holds the content denylist filter and the response cleaner.
// Both are pure functions with no I/O; the filter runs before any model call.
package safety

import (
	"regexp"
)

// CheckResult is the outcome of a content check.
type CheckResult struct {
	Blocked bool
	Reason  string // reason key for the security log
}

// Filter blocks messages matching a fixed denylist of harmful-content patterns.
type Filter struct{}

// NewFilter creates a new Filter instance.
func NewFilter() *Filter {
	return &Filter{}
}

type blockPattern struct {
	re     *regexp.Regexp
	reason string
}

// blockPatterns is checked in order; the first match wins.
var blockPatterns = []blockPattern{
	{
		re:     regexp.MustCompile(`(?i)(how to|make|create|build)\s+(bomb|weapon|virus|malware)`),
		reason: "weapons_instructions",
	},
	{
		re:     regexp.MustCompile(`(?i)(kill|harm|hurt|attack)\s+(people|person|someone)`),
		reason: "violence",
	},
	{
		re:     regexp.MustCompile(`(?i)self[- ]?harm`),
		reason: "self_harm",
	},
	{
		re:     regexp.MustCompile(`(?i)suicide\s+(method|way|how)`),
		reason: "suicide_method",
	},
	{
		re:     regexp.MustCompile(`시발|씨발|ㅅㅂ|ㅆㅂ|개새끼|병신|ㅂㅅ|지랄|ㅈㄹ|꺼져|죽어|니애미|느금마`),
		reason: "profanity_ko",
	},
	{
		re:     regexp.MustCompile(`(?i)(hack|exploit|ddos|phishing|ransomware)\s+(how|tutorial|guide)`),
		reason: "hacking_tutorial",
	},
}

// Check returns the block decision for text. Identical input always yields an
// identical decision and reason.
func (f *Filter) Check(text string) CheckResult {
	for _, p := range blockPatterns {
		if p.re.MatchString(text) {
			return CheckResult{Blocked: true, Reason: p.reason}
		}
	}
	return CheckResult{}
}
