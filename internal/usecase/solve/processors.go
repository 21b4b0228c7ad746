package solve

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"quizsolver/internal/domain"
)

// Deterministic processors try to answer without an LLM call. Each
// returns ok=false when it cannot produce a confident answer, and the
// solver falls through to the provider.

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	secretCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)secret\s+code\s+is\s*:?\s*([0-9]{4,})`),
		regexp.MustCompile(`(?i)secret\s+code\s*:\s*(\S{4,})`),
		regexp.MustCompile(`(?i)the\s+code\s+is\s*:?\s*([0-9]{4,})`),
		regexp.MustCompile(`(?i)code\s*=\s*"?([0-9]{4,})"?`),
	}
)

// sumNumbers adds every numeric token in raw tabular data. Returns the
// sum and how many numbers contributed to it.
func sumNumbers(body []byte) (float64, int) {
	matches := numberPattern.FindAllString(string(body), -1)
	var sum float64
	count := 0
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	return sum, count
}

// extractSecretCode searches page text for a disclosed code value.
func extractSecretCode(text string) (string, bool) {
	for _, p := range secretCodePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimRight(m[1], ".,;"), true
		}
	}
	return "", false
}

// coerceAnswer converts a provider's text reply into the grader's
// expected shape. Unparseable replies fall back to the trimmed text.
func coerceAnswer(text string, format domain.AnswerFormat) any {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.Trim(trimmed, "`\"'")

	switch format {
	case domain.FormatNumber:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			// Integers submit as integers so graders doing exact
			// comparison accept them.
			if v == float64(int64(v)) {
				return int64(v)
			}
			return v
		}
		// Pull the first numeric token out of a wordy reply.
		if m := numberPattern.FindString(trimmed); m != "" {
			if v, err := strconv.ParseFloat(m, 64); err == nil {
				if v == float64(int64(v)) {
					return int64(v)
				}
				return v
			}
		}
		return trimmed

	case domain.FormatBoolean:
		switch strings.ToLower(trimmed) {
		case "true", "yes":
			return true
		case "false", "no":
			return false
		}
		return trimmed

	case domain.FormatJSON:
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
		return trimmed

	default:
		return trimmed
	}
}
