// Package lang detects the dominant script of a text by counting runes in
// fixed Unicode ranges. It is a majority heuristic, not a classifier.
package lang

// Supported language codes, in tie-break order.
var checkOrder = []string{"ko", "en", "ja", "zh", "ar", "hi"}

// Default is returned when no supported script is present.
const Default = "en"

type runeRange struct {
	lo, hi rune
}

var scriptRanges = map[string][]runeRange{
	"ko": {{0xAC00, 0xD7AF}, {0x1100, 0x11FF}, {0x3130, 0x318F}},
	"en": {{'a', 'z'}, {'A', 'Z'}},
	"ja": {{0x3040, 0x309F}, {0x30A0, 0x30FF}},
	"zh": {{0x4E00, 0x9FFF}},
	"ar": {{0x0600, 0x06FF}},
	"hi": {{0x0900, 0x097F}},
}

// Detect returns the language whose script has the highest rune count in
// text. Ties break in check order; all-zero counts return Default.
func Detect(text string) string {
	counts := make(map[string]int, len(checkOrder))
	for _, r := range text {
		for lang, ranges := range scriptRanges {
			for _, rr := range ranges {
				if r >= rr.lo && r <= rr.hi {
					counts[lang]++
					break
				}
			}
		}
	}

	best := Default
	bestCount := 0
	for _, lang := range checkOrder {
		if counts[lang] > bestCount {
			best = lang
			bestCount = counts[lang]
		}
	}
	if bestCount == 0 {
		return Default
	}
	return best
}
