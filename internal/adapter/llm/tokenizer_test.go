package llm

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		minTokens int
		maxTokens int
	}{
		{
			name:      "empty string",
			text:      "",
			minTokens: 0,
			maxTokens: 0,
		},
		{
			name:      "single word",
			text:      "hello",
			minTokens: 1,
			maxTokens: 2,
		},
		{
			name:      "quiz question",
			text:      "Download the CSV file and compute the sum of the second column.",
			minTokens: 10,
			maxTokens: 18,
		},
		{
			name:      "longer page content",
			text:      strings.Repeat("This is a test sentence. ", 100),
			minTokens: 500,
			maxTokens: 700,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.text)
			if got < tt.minTokens || got > tt.maxTokens {
				t.Errorf("EstimateTokens() = %d, want between %d and %d",
					got, tt.minTokens, tt.maxTokens)
			}
		})
	}
}

func TestEstimateTokens_Consistency(t *testing.T) {
	// Same input should always produce same output
	text := "Question 7: what is the secret code printed in the page footer?"

	first := EstimateTokens(text)
	for i := 0; i < 10; i++ {
		got := EstimateTokens(text)
		if got != first {
			t.Errorf("EstimateTokens() inconsistent: got %d, want %d", got, first)
		}
	}
}

func TestEstimateTokens_LargeInput(t *testing.T) {
	// A big scraped page should estimate roughly in proportion to size
	largeText := strings.Repeat("<tr><td>row value</td><td>1234</td></tr>\n", 1000)

	tokens := EstimateTokens(largeText)

	if tokens < 8000 || tokens > 30000 {
		t.Errorf("EstimateTokens() for large input = %d, expected 8000-30000", tokens)
	}
}
