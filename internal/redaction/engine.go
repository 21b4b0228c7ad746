package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Engine performs secret detection and redaction on untrusted quiz text
// before it is forwarded to an LLM provider or written to logs.
//
// Two classes of values are masked: credential-shaped strings matched
// by pattern, and explicitly protected values (submission secrets,
// configured code words, provider API keys) matched literally.
type Engine struct {
	patterns []*regexp.Regexp

	// A single engine is shared across concurrent requests, each of
	// which may register its own submission secret.
	mu        sync.RWMutex
	protected map[string]struct{}
}

// NewEngine creates a redaction engine with the default secret patterns.
func NewEngine() *Engine {
	return &Engine{
		patterns:  defaultPatterns(),
		protected: make(map[string]struct{}),
	}
}

// Protect registers literal values that must never survive redaction.
// Empty and very short values are ignored to avoid mangling prose.
// Registering the same value again is a no-op.
func (e *Engine) Protect(values ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range values {
		if len(v) < 4 {
			continue
		}
		e.protected[v] = struct{}{}
	}
}

// Redact scans input for secrets and replaces them with stable placeholders.
func (e *Engine) Redact(input string) (string, error) {
	result := input
	seenSecrets := make(map[string]string) // secret -> placeholder

	e.mu.RLock()
	for value := range e.protected {
		if strings.Contains(result, value) {
			seenSecrets[value] = e.generatePlaceholder(value)
		}
	}
	e.mu.RUnlock()

	for _, pattern := range e.patterns {
		matches := pattern.FindAllString(result, -1)
		for _, match := range matches {
			if _, seen := seenSecrets[match]; seen {
				continue
			}
			seenSecrets[match] = e.generatePlaceholder(match)
		}
	}

	for secret, placeholder := range seenSecrets {
		result = strings.ReplaceAll(result, secret, placeholder)
	}

	return result, nil
}

// Contains reports whether any protected value appears verbatim in content.
func (e *Engine) Contains(content string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for value := range e.protected {
		if strings.Contains(content, value) {
			return true
		}
	}
	return false
}

// IsRedacted checks if the content contains redaction placeholders.
func (e *Engine) IsRedacted(content string) bool {
	return strings.Contains(content, "<REDACTED:")
}

// generatePlaceholder creates a stable, unique placeholder for a secret.
func (e *Engine) generatePlaceholder(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	hashStr := hex.EncodeToString(hash[:])[:8]
	return fmt.Sprintf("<REDACTED:%s>", hashStr)
}

// defaultPatterns returns the default set of regex patterns for secret detection.
func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// OpenAI API keys, including project-scoped sk-proj- keys
		`sk-proj-[a-zA-Z0-9]{20,}`,
		`sk-[a-zA-Z0-9]{20,}`,
		// Anthropic API keys
		`sk-ant-[a-zA-Z0-9\-]{20,}`,
		// AWS Access Key ID
		`AKIA[0-9A-Z]{16}`,
		// GitHub tokens
		`gh[posr]_[a-zA-Z0-9]{20,}`,
		// Google API keys
		`AIza[0-9A-Za-z\-_]{35}`,
		// JWT tokens
		`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		// Private keys (PEM format)
		`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----`,
		// Slack tokens
		`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
		// Generic bearer tokens
		`Bearer\s+[a-zA-Z0-9_\-\.]+`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}

	return compiled
}
