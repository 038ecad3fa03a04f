package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestSegment(t *testing.T) {
	c := New(DefaultOptions())

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:  "plain sentences",
			input: "The cat sat down. The dog barked loudly. Everyone went home.",
			expected: []string{
				"The cat sat down.",
				"The dog barked loudly.",
				"Everyone went home.",
			},
		},
		{
			name:  "protected abbreviations",
			input: "Dr. Smith went home. He was tired. The U.S. economy grew. It grew by 3%.",
			expected: []string{
				"Dr. Smith went home.",
				"He was tired.",
				"The U.S. economy grew.",
				"It grew by 3%.",
			},
		},
		{
			name:  "multi part abbreviation",
			input: "The U.S.A. hosted the games. Many nations attended.",
			expected: []string{
				"The U.S.A. hosted the games.",
				"Many nations attended.",
			},
		},
		{
			name:  "time markers",
			input: "The meeting starts at 3 p.m. today. Arrive early if possible.",
			expected: []string{
				"The meeting starts at 3 p.m. today.",
				"Arrive early if possible.",
			},
		},
		{
			name:  "question and exclamation",
			input: "Is it ready? Yes! Ship it today.",
			expected: []string{
				"Is it ready?",
				"Yes!",
				"Ship it today.",
			},
		},
		{
			name:     "no boundary",
			input:    "a single sentence with no terminal break",
			expected: []string{"a single sentence with no terminal break"},
		},
		{
			name:     "short fragments dropped",
			input:    "A. Really short leading fragment here. B.",
			expected: []string{"Really short leading fragment here."},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := c.Segment(test.input)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("Segment(%q) = %#v, want %#v", test.input, got, test.expected)
			}
		})
	}
}

func TestSegmentPreservesAllText(t *testing.T) {
	c := New(DefaultOptions())
	input := "Prof. Jones visited the U.S. last year. She met Dr. Smith at 9 a.m. sharp. A.I. research was the topic. They talked for hours."

	sentences := c.Segment(input)
	joined := strings.Join(strings.Fields(strings.Join(sentences, " ")), " ")
	want := strings.Join(strings.Fields(input), " ")
	if joined != want {
		t.Errorf("segmentation lost text:\n got %q\nwant %q", joined, want)
	}
}

func TestProtectRestoreRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "usa", input: "The U.S.A. and the U.S. are the same place."},
		{name: "ai", input: "A.I. systems write code."},
		{name: "title", input: "Dr. Smith and Mr. Lee agreed."},
		{name: "no specials", input: "Nothing to protect here."},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			protected := protectSpecialCases(test.input)
			restored := restoreSpecialCases(protected)
			// Restoration normalizes the whitespace that the protection
			// step collapsed, so compare word sequences.
			got := strings.Join(strings.Fields(restored), " ")
			want := strings.Join(strings.Fields(test.input), " ")
			if got != want {
				t.Errorf("round trip changed text: got %q, want %q", got, want)
			}
		})
	}
}

func TestProtectedTextHasNoFalseBoundaries(t *testing.T) {
	protected := protectSpecialCases("Dr. Smith saw the U.S.A. at noon. Tomorrow he leaves.")
	// Only the real boundary before "Tomorrow" should remain.
	matches := boundaryPattern.FindAllString(protected, -1)
	if len(matches) != 1 {
		t.Errorf("expected exactly 1 boundary in %q, found %d (%v)", protected, len(matches), matches)
	}
}
