package llm

import (
	"testing"
)

func TestExtractJSON_FencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n{\"warmth\": 2}\n```\nDone."
	got := ExtractJSON(text)
	if got != `{"warmth": 2}` {
		t.Errorf("ExtractJSON = %q", got)
	}
}

func TestExtractJSON_RawObject(t *testing.T) {
	text := `Sure! {"logic": -1, "note": "has } in string: \"}\""} trailing`
	got := ExtractJSON(text)
	if got == "" || !isJSON(got) {
		t.Errorf("failed to extract balanced object, got %q", got)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if got := ExtractJSON("just some prose with no braces"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := ExtractJSON("unbalanced { brace"); got != "" {
		t.Errorf("expected empty for unbalanced input, got %q", got)
	}
}

func TestParseAdjustments_FlatObject(t *testing.T) {
	deltas, ok := ParseAdjustments(`{"warmth": 2, "logic": -3, "humor": 1}`)
	if !ok {
		t.Fatal("expected ok")
	}
	if deltas["warmth"] != 2 || deltas["logic"] != -3 || deltas["humor"] != 1 {
		t.Errorf("deltas = %v", deltas)
	}
	if _, present := deltas["energy"]; present {
		t.Error("absent traits must not appear in deltas")
	}
}

func TestParseAdjustments_NestedReflection(t *testing.T) {
	text := "```json\n" +
		`{"reflection":"We talked a lot about music.","personality_adjustments":{"creativity":4,"energy":-2},"learned":["jazz"]}` +
		"\n```"
	deltas, ok := ParseAdjustments(text)
	if !ok {
		t.Fatal("expected ok")
	}
	if deltas["creativity"] != 4 || deltas["energy"] != -2 {
		t.Errorf("deltas = %v", deltas)
	}
}

func TestParseAdjustments_FloatsTruncate(t *testing.T) {
	deltas, ok := ParseAdjustments(`{"warmth": 1.9}`)
	if !ok || deltas["warmth"] != 1 {
		t.Errorf("deltas = %v ok=%v", deltas, ok)
	}
}

func TestParseAdjustments_Malformed(t *testing.T) {
	cases := []string{
		"no json at all",
		`{"warmth": "high"}`,
		`{"personality_adjustments": {"warmth": "lots"}}`,
		`{}`,
		`{"other_key": 1}`,
	}
	for _, in := range cases {
		if deltas, ok := ParseAdjustments(in); ok {
			t.Errorf("ParseAdjustments(%q) = %v, expected not-ok", in, deltas)
		}
	}
}
