package solve

import (
	"strings"

	"quizsolver/internal/domain"
)

// DefaultMaxPromptTokens bounds prompt size when no budget is configured.
const DefaultMaxPromptTokens = 4096

// PromptBuilder assembles provider prompts from sanitized quiz material.
type PromptBuilder struct {
	estimate  TokenEstimator
	maxTokens int
}

// NewPromptBuilder constructs a PromptBuilder. A nil estimator falls
// back to a length-based approximation.
func NewPromptBuilder(estimate TokenEstimator, maxTokens int) *PromptBuilder {
	if estimate == nil {
		estimate = func(text string) int { return len(text) / 4 }
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxPromptTokens
	}
	return &PromptBuilder{estimate: estimate, maxTokens: maxTokens}
}

// Build produces the prompt for one quiz question. The context must
// already be sanitized; the builder only shapes and bounds it.
func (b *PromptBuilder) Build(inst domain.Instructions, sanitizedContext string) string {
	var sb strings.Builder

	sb.WriteString("Answer the following quiz question.\n\n")
	sb.WriteString("Question: ")
	if inst.Question != "" {
		sb.WriteString(inst.Question)
	} else {
		sb.WriteString("(see page content below)")
	}
	sb.WriteString("\n")

	if directive := formatDirective(inst.AnswerFormat); directive != "" {
		sb.WriteString(directive)
		sb.WriteString("\n")
	}

	head := sb.String()
	budget := b.maxTokens - b.estimate(head)
	if budget <= 0 {
		return head
	}

	context := b.truncateToBudget(sanitizedContext, budget)
	if context != "" {
		sb.WriteString("\nPage content:\n")
		sb.WriteString(context)
		sb.WriteString("\n")
	}

	sb.WriteString("\nReply with only the answer, no explanation.")
	return sb.String()
}

// truncateToBudget trims text until it fits the token budget. Cuts are
// made from the end because questions front-load the relevant material.
func (b *PromptBuilder) truncateToBudget(text string, budget int) string {
	if b.estimate(text) <= budget {
		return text
	}

	// Binary search the longest prefix that fits.
	lo, hi := 0, len(text)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.estimate(text[:mid]) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return strings.TrimSpace(text[:lo])
}

func formatDirective(format domain.AnswerFormat) string {
	switch format {
	case domain.FormatNumber:
		return "The answer must be a number."
	case domain.FormatBoolean:
		return "The answer must be true or false."
	case domain.FormatJSON:
		return "The answer must be a JSON value."
	case domain.FormatString:
		return "The answer must be a short string."
	default:
		return ""
	}
}
