package lang

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"korean", "안녕하세요", "ko"},
		{"english", "Hello there", "en"},
		{"japanese hiragana", "こんにちは", "ja"},
		{"japanese katakana", "コンニチハ", "ja"},
		{"chinese", "你好世界再见", "zh"},
		{"arabic", "مرحبا بالعالم", "ar"},
		{"hindi", "नमस्ते दुनिया", "hi"},
		{"digits only", "123", "en"},
		{"empty", "", "en"},
		{"punctuation", "!?.,;", "en"},
		{"mixed korean majority", "안녕하세요 hi", "ko"},
		{"mixed english majority", "hello world 안", "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.in); got != tc.want {
				t.Errorf("Detect(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDetect_TieBreaksByCheckOrder(t *testing.T) {
	// One Hangul rune and one CJK rune: ko is checked before zh.
	if got := Detect("안中"); got != "ko" {
		t.Errorf("expected ko on tie, got %q", got)
	}
}
