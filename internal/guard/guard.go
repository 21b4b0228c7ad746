// Package guard screens untrusted quiz text before it reaches an LLM
// provider. It rejects instruction-override and exfiltration attempts
// and sanitizes anything it lets through.
package guard

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"quizsolver/internal/domain"
	"quizsolver/internal/redaction"
)

// Guard is the input guard. A single instance is shared across requests.
type Guard struct {
	rules    []rule
	redactor *redaction.Engine
}

type rule struct {
	name    string
	pattern *regexp.Regexp
}

// Options configures a Guard.
type Options struct {
	// CodeWords are protected values that must never be forwarded and
	// whose disclosure must never be requested.
	CodeWords []string

	// DenyPatterns are extra rejection regexes, applied to normalized text.
	DenyPatterns []string
}

// New builds a Guard with the built-in rules plus any configured extras.
// Invalid extra patterns are an error: a guard with silently missing
// rules is worse than no guard.
func New(opts Options) (*Guard, error) {
	rules := builtinRules()
	for i, p := range opts.DenyPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile deny pattern %q: %w", p, err)
		}
		rules = append(rules, rule{name: fmt.Sprintf("custom-%d", i), pattern: re})
	}

	redactor := redaction.NewEngine()
	redactor.Protect(opts.CodeWords...)

	return &Guard{rules: rules, redactor: redactor}, nil
}

// Protect registers additional protected values after construction,
// such as the per-request submission secret.
func (g *Guard) Protect(values ...string) {
	g.redactor.Protect(values...)
}

// Inspect decides whether untrusted text may be forwarded to an LLM.
// Allowed text comes back sanitized: protected values and
// credential-shaped strings are replaced with stable placeholders.
func (g *Guard) Inspect(text string) domain.GuardVerdict {
	normalized := Normalize(text)

	for _, r := range g.rules {
		if r.pattern.MatchString(normalized) {
			return domain.GuardVerdict{
				Allowed: false,
				Reason:  "instruction override or exfiltration attempt detected",
				Rule:    r.name,
			}
		}
	}

	sanitized, err := g.redactor.Redact(text)
	if err != nil {
		return domain.GuardVerdict{Allowed: false, Reason: "redaction failed", Rule: "redaction"}
	}

	return domain.GuardVerdict{Allowed: true, Sanitized: sanitized}
}

// Normalize flattens the evasions that defeat naive pattern matching:
// compatibility forms (NFKC), full-width characters, case, and runs of
// whitespace. Detection rules match against this form.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = width.Fold.String(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}
