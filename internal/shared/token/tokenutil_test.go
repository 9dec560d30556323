package token

import (
	"strings"
	"testing"
)

func TestEstimateGrowsWithText(t *testing.T) {
	if got := Estimate(""); got != 0 {
		t.Fatalf("empty text is zero tokens, got %d", got)
	}
	if got := Estimate("   "); got != 0 {
		t.Fatalf("whitespace is zero tokens, got %d", got)
	}
	if got := Estimate("hi"); got != 1 {
		t.Fatalf("tiny text rounds up to one token, got %d", got)
	}

	short := Estimate("kubernetes scheduling")
	long := Estimate(strings.Repeat("kubernetes scheduling ", 50))
	if long <= short {
		t.Fatalf("longer text must estimate more tokens: %d vs %d", short, long)
	}
}

func TestEstimateNeverBelowWordCount(t *testing.T) {
	// Ten one-letter words: runes/4 would undercount badly.
	text := "a b c d e f g h i j"
	if got := Estimate(text); got < 10 {
		t.Fatalf("estimate must be at least the word count, got %d", got)
	}
}

func TestTruncateLeavesShortTextAlone(t *testing.T) {
	text := "short enough"
	if got := Truncate(text, 100); got != text {
		t.Fatalf("text under the limit must pass through, got %q", got)
	}
	if got := Truncate(text, 0); got != text {
		t.Fatalf("non-positive limit disables truncation, got %q", got)
	}
}

func TestTruncateCutsLongText(t *testing.T) {
	text := strings.Repeat("kubernetes ", 500)
	got := Truncate(text, 40)
	if len(got) >= len(text) {
		t.Fatalf("long text must be cut")
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncation must be marked with an ellipsis")
	}
}
