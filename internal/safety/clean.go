package safety

import (
	"regexp"
	"strings"
)

var (
	reBold         = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic       = regexp.MustCompile(`\*(.+?)\*`)
	reStarRuns     = regexp.MustCompile(`\*{2,}`)
	reCodeSpan     = regexp.MustCompile("`([^`]+)`")
	reHeading      = regexp.MustCompile(`(?m)^#+\s`)
	reListItem     = regexp.MustCompile(`(?m)^[-*]\s`)
	reManyNewlines = regexp.MustCompile(`\n{3,}`)
	reBlankLine    = regexp.MustCompile(`(?m)^[ \t]+$`)
	reTwoNewlines  = regexp.MustCompile(`\n{2,}`)

	reHangul       = regexp.MustCompile(`[\x{AC00}-\x{D7AF}]`)
	reCJKIdeograph = regexp.MustCompile(`[\x{4E00}-\x{9FFF}\x{3400}-\x{4DBF}\x{F900}-\x{FAFF}]`)
	reEmptyParens  = regexp.MustCompile(`\(\s*\)`)
	reEmptyBracket = regexp.MustCompile(`\[\s*\]`)
	reDoubleSpace  = regexp.MustCompile(`  +`)
)

// StripCJKIdeographs removes CJK ideographs from text that is predominantly
// Korean (at least 2 Hangul runes). Text without that much Hangul is returned
// unchanged so legitimate Chinese responses are never touched.
func StripCJKIdeographs(text string) string {
	if len(reHangul.FindAllString(text, 2)) < 2 {
		return text
	}
	text = reCJKIdeograph.ReplaceAllString(text, "")
	text = reEmptyParens.ReplaceAllString(text, "")
	text = reEmptyBracket.ReplaceAllString(text, "")
	text = reDoubleSpace.ReplaceAllString(text, " ")
	return text
}

// Clean strips markdown markers from a model response, collapses excess blank
// lines and removes leaked CJK ideographs from Korean text. It never fails
// and is idempotent.
func Clean(text string) string {
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = reBold.ReplaceAllString(text, "$1")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reStarRuns.ReplaceAllString(text, "")
	text = reCodeSpan.ReplaceAllString(text, "$1")
	text = reHeading.ReplaceAllString(text, "")
	text = reListItem.ReplaceAllString(text, "")
	text = reManyNewlines.ReplaceAllString(text, "\n\n")
	text = reBlankLine.ReplaceAllString(text, "")
	text = reTwoNewlines.ReplaceAllString(text, "\n\n")
	text = StripCJKIdeographs(text)
	return strings.TrimSpace(text)
}
