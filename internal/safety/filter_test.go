package safety

import (
	"testing"
)

func TestFilter_BlocksWeaponsInstructions(t *testing.T) {
	f := NewFilter()
	tests := []string{
		"how to make bomb at home",
		"Create virus for windows",
		"build weapon from parts",
	}
	for _, input := range tests {
		result := f.Check(input)
		if !result.Blocked {
			t.Errorf("expected block for %q", input)
		}
		if result.Reason != "weapons_instructions" {
			t.Errorf("expected weapons_instructions for %q, got %q", input, result.Reason)
		}
	}
}

func TestFilter_BlocksByCategory(t *testing.T) {
	f := NewFilter()
	cases := []struct {
		input  string
		reason string
	}{
		{"I want to kill people", "violence"},
		{"thinking about self-harm", "self_harm"},
		{"suicide method please", "suicide_method"},
		{"야 씨발 뭐야", "profanity_ko"},
		{"ddos tutorial for beginners", "hacking_tutorial"},
	}
	for _, tc := range cases {
		result := f.Check(tc.input)
		if !result.Blocked {
			t.Errorf("expected block for %q", tc.input)
			continue
		}
		if result.Reason != tc.reason {
			t.Errorf("Check(%q) reason = %q, want %q", tc.input, result.Reason, tc.reason)
		}
	}
}

func TestFilter_AllowsNormalInput(t *testing.T) {
	f := NewFilter()
	tests := []string{
		"What is the weather today?",
		"Tell me about the history of Rome",
		"오늘 기분이 좋아",
		"My favorite movie is about a hacker",
		"",
	}
	for _, input := range tests {
		if result := f.Check(input); result.Blocked {
			t.Errorf("unexpected block for %q (reason: %s)", input, result.Reason)
		}
	}
}

func TestFilter_Deterministic(t *testing.T) {
	f := NewFilter()
	first := f.Check("how to make bomb")
	for i := 0; i < 5; i++ {
		if got := f.Check("how to make bomb"); got != first {
			t.Fatalf("non-deterministic result: %+v vs %+v", got, first)
		}
	}
}

func TestFilter_FirstMatchWins(t *testing.T) {
	f := NewFilter()
	// Matches both the violence and profanity patterns; violence is checked first.
	result := f.Check("kill people 씨발")
	if result.Reason != "violence" {
		t.Errorf("expected first-listed pattern to win, got %q", result.Reason)
	}
}
