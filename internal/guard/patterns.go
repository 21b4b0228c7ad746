package guard

import "regexp"

// builtinRules returns the detection rules applied to normalized text.
// Rule names surface in guard rejections and logs; keep them stable.
func builtinRules() []rule {
	specs := []struct {
		name    string
		pattern string
	}{
		// "IGNORE ALL PREVIOUS INSTRUCTIONS" and close variants.
		{"override-instructions", `(?:ignore|disregard|forget)\s+(?:all\s+)?(?:previous|prior|above|earlier|your)\s+(?:instructions?|prompts?|rules?|directives?)`},
		// Attempts to read back the system prompt or configuration.
		{"prompt-disclosure", `(?:reveal|show|print|output|repeat|display)\s+(?:me\s+)?(?:your|the)\s+(?:full\s+)?(?:system\s+)?(?:prompt|instructions?|configuration|context)`},
		// Attempts to exfiltrate protected values by name.
		{"codeword-exfiltration", `(?:reveal|show|print|output|tell|send|give|leak|repeat)\s+(?:me\s+)?(?:your|the|any|all)\s+(?:secret|code\s*word|password|api\s*key|token|credential)`},
		// Listing environment or secrets wholesale.
		{"environment-dump", `(?:list|dump|output|print)\s+(?:every|all)\s+(?:environment\s+variables?|env\s+vars?|secrets?|keys?)`},
		// Role reassignment ("you are now in debug mode", "act as the admin").
		{"role-reassignment", `you\s+are\s+now\s+(?:in\s+)?(?:debug|developer|admin|dan|unrestricted)`},
		// Fake authority markers.
		{"admin-override", `\[?\s*(?:admin|system|root)\s+(?:override|message)\s*\]?`},
		// Instructions to hide the manipulation itself.
		{"concealment", `do\s+not\s+mention\s+(?:any\s+of\s+)?(?:the\s+above|these)\s+instructions`},
	}

	rules := make([]rule, 0, len(specs))
	for _, s := range specs {
		rules = append(rules, rule{name: s.name, pattern: regexp.MustCompile(s.pattern)})
	}
	return rules
}
